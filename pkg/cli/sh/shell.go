// Package sh provides an interactive console talking to boards
// through the control loop.
package sh

import (
	"flag"
	"fmt"
	"strconv"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/lowcar/pkg/board"
	"github.com/robotalks/lowcar/pkg/framework"
	"github.com/robotalks/lowcar/pkg/lowcar/device"
	"github.com/robotalks/lowcar/pkg/lowcar/msgs"
)

// DefaultTimeout is how long to wait for a reply.
const DefaultTimeout = time.Second

// Shell provides ishell backed interactive shell.
type Shell struct {
	Interactive bool
	Timeout     time.Duration

	Shell      *ishell.Shell
	Controller *board.Controller
	Loop       framework.LoopControl
	Board      *board.Board

	heartbeatID uint8
}

const (
	shellKey         = "$shell"
	unselectedPrompt = "[none] > "
)

var (
	evalOnly bool

	commands = []*ishell.Cmd{
		&BoardsCmd,
		&PingCmd,
		&ReadCmd,
		&WriteCmd,
		&DisableCmd,
		&SubCmd,
		&HeartbeatCmd,
		&StatusCmd,
	}
)

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.BoolVar(&evalOnly, "e", evalOnly, "Evaluation only, no interactive shell.")
}

// New creates a new shell. The first board is selected.
func New(ctl *board.Controller, loop framework.LoopControl) *Shell {
	s := &Shell{
		Interactive: !evalOnly,
		Timeout:     DefaultTimeout,
		Shell:       ishell.New(),
		Controller:  ctl,
		Loop:        loop,
	}
	s.Shell.Set(shellKey, s)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	if boards := ctl.Boards(); len(boards) > 0 {
		s.Select(boards[0])
	} else {
		s.Shell.SetPrompt(unselectedPrompt)
	}
	return s
}

// ShellFrom gets Shell from ishell context.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// Select selects the board commands are sent to.
func (s *Shell) Select(b *board.Board) {
	s.Board = b
	s.Shell.SetPrompt(fmt.Sprintf("%s > ", b.UID()))
}

// Do posts msg to the selected board and waits for the replies.
// Messages without a reply return immediately.
func (s *Shell) Do(msg *msgs.Message) ([]*msgs.Message, error) {
	if s.Board == nil {
		return nil, fmt.Errorf("no board selected")
	}
	replyCh := make(chan *msgs.Message, 4)
	s.Loop.PostMessage(&board.Inbound{
		UID:     s.Board.UID(),
		Message: msg,
		Reply: board.SendFunc(func(m *msgs.Message) error {
			select {
			case replyCh <- m:
				return nil
			default:
				return fmt.Errorf("console busy")
			}
		}),
	})
	s.Loop.TriggerNext()
	if msg.ID == msgs.DeviceDisable {
		return nil, nil
	}
	select {
	case m := <-replyCh:
		return []*msgs.Message{m}, nil
	case <-time.After(s.Timeout):
		return nil, fmt.Errorf("%s timeout", msg.ID)
	}
}

// DoAndPrint sends msg and prints the replies.
func (s *Shell) DoAndPrint(c *ishell.Context, msg *msgs.Message) {
	replies, err := s.Do(msg)
	if err != nil {
		c.Err(err)
		return
	}
	if len(replies) == 0 {
		c.Println("OK")
	}
	for _, m := range replies {
		c.Println(FormatReply(s.Board.Device(), m))
	}
}

// Run runs the shell, or a single command from args.
func (s *Shell) Run(args ...string) error {
	if len(args) > 0 {
		return s.Shell.Process(args...)
	}
	if !s.Interactive {
		return fmt.Errorf("command expected")
	}
	s.Shell.Run()
	return nil
}

// MustSelect wraps command func requiring a selected board.
func MustSelect(fn func(s *Shell, c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		s := ShellFrom(c)
		if s.Board == nil {
			c.Err(fmt.Errorf("no board selected"))
			return
		}
		fn(s, c)
	}
}

var (
	// BoardsCmd lists or selects boards.
	BoardsCmd = ishell.Cmd{
		Name:    "boards",
		Aliases: []string{"b"},
		Help:    "[INDEX|UID]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			boards := s.Controller.Boards()
			if len(c.Args) == 0 {
				for n, b := range boards {
					mark := " "
					if b == s.Board {
						mark = "*"
					}
					c.Printf("%s%d %s\n", mark, n, b.UID())
				}
				return
			}
			for n, b := range boards {
				if c.Args[0] == strconv.Itoa(n) || c.Args[0] == b.UID().String() {
					s.Select(b)
					return
				}
			}
			c.Err(fmt.Errorf("unknown board %q", c.Args[0]))
		},
	}

	// PingCmd pings the board, which enables it.
	PingCmd = ishell.Cmd{
		Name: "ping",
		Help: "",
		Func: MustSelect(func(s *Shell, c *ishell.Context) {
			s.DoAndPrint(c, &msgs.Message{ID: msgs.Ping})
		}),
	}

	// ReadCmd reads parameters.
	ReadCmd = ishell.Cmd{
		Name:    "read",
		Aliases: []string{"r"},
		Help:    "[PARAM...]",
		Func: MustSelect(func(s *Shell, c *ishell.Context) {
			params, err := ParseParams(s.Board.Device(), c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			s.DoAndPrint(c, msgs.NewDeviceRead(params))
		}),
	}

	// WriteCmd writes parameters.
	WriteCmd = ishell.Cmd{
		Name:    "write",
		Aliases: []string{"w"},
		Help:    "PARAM VALUE [PARAM VALUE...]",
		Func: MustSelect(func(s *Shell, c *ishell.Context) {
			msg, err := NewWrite(s.Board.Device(), c.Args)
			if err != nil {
				c.Err(err)
				return
			}
			s.DoAndPrint(c, msg)
		}),
	}

	// DisableCmd disables the board.
	DisableCmd = ishell.Cmd{
		Name: "disable",
		Help: "",
		Func: MustSelect(func(s *Shell, c *ishell.Context) {
			s.DoAndPrint(c, &msgs.Message{ID: msgs.DeviceDisable})
		}),
	}

	// SubCmd subscribes parameters.
	SubCmd = ishell.Cmd{
		Name: "sub",
		Help: "DELAY [PARAM...]",
		Func: MustSelect(func(s *Shell, c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("DELAY required"))
				return
			}
			delay, err := ParseDelay(c.Args[0])
			if err != nil {
				c.Err(fmt.Errorf("invalid DELAY: %v", err))
				return
			}
			params, err := ParseParams(s.Board.Device(), c.Args[1:])
			if err != nil {
				c.Err(err)
				return
			}
			s.DoAndPrint(c, msgs.NewSubscriptionRequest(params, delay))
		}),
	}

	// HeartbeatCmd sends a heartbeat request.
	HeartbeatCmd = ishell.Cmd{
		Name:    "heartbeat",
		Aliases: []string{"hb"},
		Help:    "",
		Func: MustSelect(func(s *Shell, c *ishell.Context) {
			s.heartbeatID++
			s.DoAndPrint(c, msgs.NewHeartbeat(msgs.HeartbeatRequest, s.heartbeatID))
		}),
	}

	// StatusCmd shows the selected board and all parameter values.
	StatusCmd = ishell.Cmd{
		Name:    "status",
		Aliases: []string{"s"},
		Help:    "",
		Func: MustSelect(func(s *Shell, c *ishell.Context) {
			dev := s.Board.Device()
			c.Printf("%s %s\n", s.Board.UID(), formatParamNames(dev, device.ParamMap(dev)))
			s.DoAndPrint(c, msgs.NewDeviceRead(device.ParamMap(dev)))
		}),
	}
)
