package mqtt

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/lowcar/pkg/lowcar/msgs"
)

// Topic suffixes, seen from the host: it transmits on tx and receives
// on rx.
const (
	TopicTx = "tx"
	TopicRx = "rx"
)

// DefaultPublishTimeout bounds how long WriteMessage waits for a publish.
const DefaultPublishTimeout = 50 * time.Millisecond

// ErrPublishTimeout is returned by WriteMessage when a publish is not
// completed within PublishTimeout.
var ErrPublishTimeout = errors.New("mqtt publish timeout")

// BoardTopic returns the topic of a board for the suffix.
func BoardTopic(uid msgs.UID, suffix string) string {
	return "lowcar/" + uid.String() + "/" + suffix
}

// ReadWriter implements link.ReadWriter for a single board.
type ReadWriter struct {
	Queue    *Queue
	SubTopic string
	PubTopic string
	// WriteMessage runs on the control loop, so it never waits longer.
	PublishTimeout time.Duration

	msgCh     chan *msgs.Message
	done      chan struct{}
	closeOnce sync.Once
}

// NewReadWriter creates a ReadWriter with explicit topics.
func NewReadWriter(q *Queue, sub, pub string) *ReadWriter {
	return &ReadWriter{
		Queue:          q,
		SubTopic:       sub,
		PubTopic:       pub,
		PublishTimeout: DefaultPublishTimeout,
		msgCh:          make(chan *msgs.Message, 16),
		done:           make(chan struct{}),
	}
}

// ForBoard creates the ReadWriter used by a board.
func ForBoard(q *Queue, uid msgs.UID) *ReadWriter {
	return NewReadWriter(q, BoardTopic(uid, TopicTx), BoardTopic(uid, TopicRx))
}

// ForHost creates the ReadWriter a host uses to talk to a board.
func ForHost(q *Queue, uid msgs.UID) *ReadWriter {
	return NewReadWriter(q, BoardTopic(uid, TopicRx), BoardTopic(uid, TopicTx))
}

// Name implements framework.Named.
func (p *ReadWriter) Name() string {
	return "mqtt:" + p.SubTopic
}

// ReadMessage implements link.Reader.
func (p *ReadWriter) ReadMessage() (*msgs.Message, error) {
	select {
	case msg := <-p.msgCh:
		return msg, nil
	case <-p.done:
		return nil, io.EOF
	}
}

// WriteMessage implements link.Writer.
func (p *ReadWriter) WriteMessage(msg *msgs.Message) error {
	rec, err := msg.MarshalBinary()
	if err != nil {
		return err
	}
	token := p.Queue.Pub(p.PubTopic, rec)
	if !token.WaitTimeout(p.PublishTimeout) {
		return ErrPublishTimeout
	}
	return token.Error()
}

// Close stops ReadMessage.
func (p *ReadWriter) Close() error {
	p.closeOnce.Do(func() { close(p.done) })
	return nil
}

// Run implements framework.Runnable.
func (p *ReadWriter) Run(ctx context.Context) error {
	sub := p.Queue.Sub(p.SubTopic, p.handleMsg)
	defer sub.Close()
	defer p.Close()
	<-ctx.Done()
	return ctx.Err()
}

func (p *ReadWriter) handleMsg(topic string, payload []byte) {
	msg := &msgs.Message{}
	if err := msg.UnmarshalBinary(payload); err != nil {
		glog.Warningf("%s: invalid record dropped: %v", topic, err)
		return
	}
	select {
	case p.msgCh <- msg:
	case <-p.done:
	}
}
