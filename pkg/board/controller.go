package board

import (
	"github.com/golang/glog"

	"github.com/robotalks/lowcar/pkg/framework"
	"github.com/robotalks/lowcar/pkg/lowcar/msgs"
)

// Sender delivers messages to the host.
type Sender interface {
	WriteMessage(*msgs.Message) error
}

// SendFunc is the func form of Sender.
type SendFunc func(*msgs.Message) error

// WriteMessage implements Sender.
func (f SendFunc) WriteMessage(msg *msgs.Message) error {
	return f(msg)
}

// Inbound is a host message posted to the loop for a board.
type Inbound struct {
	UID     msgs.UID
	Message *msgs.Message
	// Reply receives the direct replies instead of the board's Sender
	// when set.
	Reply Sender
}

type boardEntry struct {
	board  *Board
	sender Sender
}

// Controller runs boards inside a framework.Loop.
// Boards must be added before the loop starts.
type Controller struct {
	entries []*boardEntry
	byUID   map[msgs.UID]*boardEntry
}

// NewController creates a Controller.
func NewController() *Controller {
	return &Controller{byUID: make(map[msgs.UID]*boardEntry)}
}

// Add adds a board with the Sender its messages go to.
func (c *Controller) Add(b *Board, sender Sender) *Controller {
	e := &boardEntry{board: b, sender: sender}
	c.entries = append(c.entries, e)
	c.byUID[b.UID()] = e
	return c
}

// Boards returns the boards in the order they were added.
func (c *Controller) Boards() []*Board {
	boards := make([]*Board, len(c.entries))
	for n, e := range c.entries {
		boards[n] = e.board
	}
	return boards
}

// Board finds a board by UID.
func (c *Controller) Board(uid msgs.UID) *Board {
	if e := c.byUID[uid]; e != nil {
		return e.board
	}
	return nil
}

// AddToLoop implements framework.LoopAdder.
func (c *Controller) AddToLoop(l *framework.Loop) {
	l.AddController(framework.PrLvControl, c)
}

// Control implements framework.Controller.
func (c *Controller) Control(cc framework.ControlContext) error {
	now := cc.Time()
	cc.Messages().ProcessMessages(framework.ProcessMessageFunc(func(mc framework.MessageProcessingContext) {
		in, ok := mc.CurrentMessage().(*Inbound)
		if !ok {
			return
		}
		mc.MessageTaken()
		e := c.byUID[in.UID]
		if e == nil {
			glog.Warningf("message %s for unknown board %s dropped", in.Message, in.UID)
			return
		}
		sender := e.sender
		if in.Reply != nil {
			sender = in.Reply
		}
		send(e.board, sender, e.board.HandleMessage(now, in.Message))
	}))
	for _, e := range c.entries {
		send(e.board, e.sender, e.board.Tick(now))
	}
	return nil
}

func send(b *Board, sender Sender, replies []*msgs.Message) {
	if sender == nil {
		return
	}
	for _, msg := range replies {
		if err := sender.WriteMessage(msg); err != nil {
			glog.Warningf("%s: send %s error: %v", b.UID(), msg.ID, err)
		}
	}
}
