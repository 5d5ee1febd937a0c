// Package board dispatches host messages to a lowcar device and runs
// its periodic work: actions, subscriptions and the heartbeat watchdog.
package board

import (
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/lowcar/pkg/lowcar/device"
	"github.com/robotalks/lowcar/pkg/lowcar/msgs"
	"github.com/robotalks/lowcar/pkg/lowcar/param"
)

// Board hosts a single device, as a physical lowcar board does.
type Board struct {
	// HeartbeatTimeout disables the device when no message arrived from
	// the host for that long. 0 turns the watchdog off.
	HeartbeatTimeout time.Duration

	dev          device.Device
	sub          msgs.Subscription
	lastData     time.Time
	lastActivity time.Time
	timedOut     bool
}

// New creates a Board.
func New(dev device.Device) *Board {
	return &Board{dev: dev}
}

// UID returns the UID of the device.
func (b *Board) UID() msgs.UID {
	return b.dev.UID()
}

// Device returns the hosted device.
func (b *Board) Device() device.Device {
	return b.dev
}

// Subscription returns the current subscription.
func (b *Board) Subscription() msgs.Subscription {
	return b.sub
}

// HandleMessage handles a message from the host and returns the replies.
func (b *Board) HandleMessage(now time.Time, msg *msgs.Message) []*msgs.Message {
	b.lastActivity, b.timedOut = now, false
	glog.V(2).Infof("%s: recv %s", b.UID(), msg)
	switch msg.ID {
	case msgs.Ping:
		b.dev.Enable()
		return reply(b.subscriptionResponse())
	case msgs.SubscriptionRequest:
		sub, err := msgs.DecodeSubscription(msg)
		if err != nil {
			return reply(malformed())
		}
		b.subscribe(now, sub)
		b.dev.Enable()
		return reply(b.subscriptionResponse())
	case msgs.DeviceRead:
		params, err := msgs.DecodeParamMap(msg.Data())
		if err != nil {
			return reply(malformed())
		}
		return reply(b.readData(params))
	case msgs.DeviceWrite:
		return reply(b.write(msg.Data()))
	case msgs.DeviceDisable:
		b.dev.Disable()
		return nil
	case msgs.HeartbeatRequest:
		data := msg.Data()
		if len(data) < 1 {
			return reply(malformed())
		}
		return reply(msgs.NewHeartbeat(msgs.HeartbeatResponse, data[0]))
	case msgs.HeartbeatResponse:
		return nil
	}
	glog.Warningf("%s: unexpected message %s", b.UID(), msg.ID)
	return reply(msgs.NewError(uint8(param.CodeUnexpectedMessage), msgs.NoParam))
}

// Tick runs the watchdog, the device action and the subscription.
func (b *Board) Tick(now time.Time) []*msgs.Message {
	if b.HeartbeatTimeout > 0 && !b.lastActivity.IsZero() && !b.timedOut &&
		now.Sub(b.lastActivity) > b.HeartbeatTimeout {
		glog.Warningf("%s: no message from host in %s, disabling", b.UID(), b.HeartbeatTimeout)
		b.timedOut = true
		b.dev.Disable()
	}
	b.dev.Action()
	if b.sub.Params == 0 || b.sub.Delay <= 0 || now.Sub(b.lastData) < b.sub.Delay {
		return nil
	}
	b.lastData = now
	return reply(b.readData(b.sub.Params))
}

func (b *Board) subscribe(now time.Time, sub msgs.Subscription) {
	b.sub.Params = sub.Params & device.ParamMap(b.dev)
	b.sub.Delay = sub.Delay
	b.lastData = now
	glog.V(2).Infof("%s: subscribed %v every %s", b.UID(), b.sub.Params.IDs(), b.sub.Delay)
}

func (b *Board) subscriptionResponse() *msgs.Message {
	return msgs.NewSubscriptionResponse(msgs.Subscription{
		Params: b.sub.Params,
		Delay:  b.sub.Delay,
		UID:    b.UID(),
	})
}

func (b *Board) readData(params msgs.ParamMap) *msgs.Message {
	m, err := device.ReadData(b.dev, params)
	if err != nil {
		glog.V(2).Infof("%s: read %v: %v", b.UID(), params.IDs(), err)
		return errorMessage(err)
	}
	return m
}

func (b *Board) write(data []byte) *msgs.Message {
	params, err := msgs.DecodeParamMap(data)
	if err != nil {
		return malformed()
	}
	if err := device.WriteValues(b.dev, params, data[msgs.ParamMapSize:]); err != nil {
		glog.V(2).Infof("%s: write %v: %v", b.UID(), params.IDs(), err)
		return errorMessage(err)
	}
	return b.readData(params)
}

func reply(msg *msgs.Message) []*msgs.Message {
	return []*msgs.Message{msg}
}

func malformed() *msgs.Message {
	return msgs.NewError(uint8(param.CodeMalformedPayload), msgs.NoParam)
}

func errorMessage(err error) *msgs.Message {
	return msgs.NewError(uint8(param.CodeOf(err)), param.ParamOf(err))
}
