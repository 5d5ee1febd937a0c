package link

import (
	"context"
	"errors"
	"io"

	"github.com/golang/glog"

	"github.com/robotalks/lowcar/pkg/board"
	"github.com/robotalks/lowcar/pkg/framework"
	"github.com/robotalks/lowcar/pkg/lowcar/msgs"
)

// Pump reads messages from a link and posts them to the loop for a
// board. Invalid records are dropped. It implements framework.Runnable.
type Pump struct {
	Link Reader
	UID  msgs.UID
	Loop framework.LoopControl
	// Reply optionally overrides where direct replies go.
	Reply board.Sender
}

// Name implements framework.Named.
func (p *Pump) Name() string {
	return "pump:" + p.UID.String()
}

// Run implements framework.Runnable.
// The link is closed on cancel if it's an io.Closer.
func (p *Pump) Run(ctx context.Context) error {
	onCancel := func() {}
	if closer, ok := p.Link.(io.Closer); ok {
		onCancel = func() { closer.Close() }
	}
	return framework.RunWithContextCancel(ctx, onCancel, p.pump)
}

func (p *Pump) pump() error {
	for {
		msg, err := p.Link.ReadMessage()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			if errors.Is(err, msgs.ErrPayloadTooLarge) || errors.Is(err, msgs.ErrMalformed) {
				glog.Warningf("%s: %v", p.Name(), err)
				continue
			}
			return err
		}
		glog.V(4).Infof("%s: %s", p.Name(), msg)
		p.Loop.PostMessage(&board.Inbound{UID: p.UID, Message: msg, Reply: p.Reply})
		p.Loop.TriggerNext()
	}
}
