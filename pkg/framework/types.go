// Package framework provides the fixed-interval control loop boards
// run on, and helpers to run background workers beside it.
package framework

import (
	"context"
	"time"
)

// Named is implemented by workers that report a name in logs.
type Named interface {
	Name() string
}

// Runnable is a background worker stopped by canceling its context.
type Runnable interface {
	Run(context.Context) error
}

// Message is anything posted to the loop from outside, e.g. a record
// received on a host link.
type Message interface{}

// Controller is called once per iteration at its priority level.
type Controller interface {
	Control(ControlContext) error
}

// ControlFunc is the func form of Controller.
type ControlFunc func(ControlContext) error

// Control implements Controller.
func (f ControlFunc) Control(ctx ControlContext) error {
	return f(ctx)
}

// ControlContext is what a Controller sees of the running iteration.
type ControlContext interface {
	Context() context.Context
	// Time is when the iteration started, taken from the loop clock.
	Time() time.Time
	PriorityLevel() int
	// Messages holds what was posted before the iteration started.
	// Messages nobody takes are dropped at the end of the iteration.
	Messages() MessageStore
	// PostRun adds one-shot hooks run after the controllers of the
	// current level. Hooks added from a hook run next iteration.
	PostRun(hooks ...Controller)

	LoopControl
}

// PriorityLevels is the number of priority levels, 0 runs first.
const PriorityLevels int = 16

// Priority levels used by boards and links.
const (
	// PrLvSense reads inputs, e.g. encoders.
	PrLvSense int = 4
	// PrLvControl handles host messages and ticks devices.
	PrLvControl int = 8
	// PrLvActuate writes outputs.
	PrLvActuate int = 12
)

// LoopControl is the part of the loop safe to use from any goroutine.
type LoopControl interface {
	// PostRunAt adds one-shot hooks run the next time the priority
	// level runs.
	PostRunAt(priorityLevel int, controllers ...Controller)
	// PostMessage queues msg for the next iteration.
	PostMessage(Message)
	// TriggerNext starts the next iteration without waiting for the
	// interval.
	TriggerNext()
}

// MessageStore gives controllers the messages of an iteration.
type MessageStore interface {
	ProcessMessages(MessageProcessor)
}

// MessageProcessor visits messages in posting order.
type MessageProcessor interface {
	ProcessMessage(MessageProcessingContext)
}

// ProcessMessageFunc is the func form of MessageProcessor.
type ProcessMessageFunc func(MessageProcessingContext)

// ProcessMessage implements MessageProcessor.
func (f ProcessMessageFunc) ProcessMessage(mc MessageProcessingContext) {
	f(mc)
}

// MessageProcessingContext is passed for each visited message.
type MessageProcessingContext interface {
	CurrentMessage() Message
	// MessageTaken removes the message so later processors skip it.
	MessageTaken()
	// StopProcessing ends the visit after the current message.
	StopProcessing()
}
