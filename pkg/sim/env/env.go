// Package env assembles simulated boards, their links and the control
// loop from command line flags and a board config file.
package env

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io/ioutil"
	"net/http"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/glog"
	"gopkg.in/yaml.v3"

	"github.com/robotalks/lowcar/pkg/board"
	fx "github.com/robotalks/lowcar/pkg/framework"
	"github.com/robotalks/lowcar/pkg/link"
	"github.com/robotalks/lowcar/pkg/link/mqtt"
	"github.com/robotalks/lowcar/pkg/link/websocket"
	"github.com/robotalks/lowcar/pkg/sim"
)

// Config provides the options of a simulator.
type Config struct {
	// ConfigFile is the YAML board config.
	ConfigFile string
	// WebSocketAddr is the address to serve websocket links, empty to disable.
	WebSocketAddr string
	// SerialPort links the first board to a serial port, empty to disable.
	SerialPort string
	BaudRate   int
	Interval   time.Duration

	MQTT *mqtt.Config
}

var defaultConfig = Config{
	ConfigFile: "lowcar.yaml",
	BaudRate:   link.DefaultBaudRate,
	Interval:   fx.DefaultInterval,
	MQTT:       mqtt.Default(),
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.ConfigFile, "config", defaultConfig.ConfigFile, "Board config file.")
	flag.StringVar(&defaultConfig.WebSocketAddr, "ws", defaultConfig.WebSocketAddr, "Serve websocket links on address.")
	flag.StringVar(&defaultConfig.SerialPort, "serial", defaultConfig.SerialPort, "Serial port linked to the first board.")
	flag.IntVar(&defaultConfig.BaudRate, "baud", defaultConfig.BaudRate, "Serial baud rate.")
	flag.DurationVar(&defaultConfig.Interval, "interval", defaultConfig.Interval, "Control loop interval.")
	mqtt.SetupFlags()
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Env is the simulated environment.
type Env struct {
	Config     *Config
	Clock      clock.Clock
	Loop       *fx.Loop
	Controller *board.Controller
	Rigs       map[string]*sim.Rig

	outs    []*link.Fanout
	closers []func() error
}

// fileConfig is the board config with the simulated hardware per board
// name.
type fileConfig struct {
	Sim map[string]yaml.Node `yaml:"sim"`
}

// NewEnv creates Env from config.
func (c *Config) NewEnv() (*Env, error) {
	data, err := ioutil.ReadFile(c.ConfigFile)
	if err != nil {
		return nil, err
	}
	return c.NewEnvFrom(data, clock.New())
}

// NewEnvFrom creates Env from config file content.
func (c *Config) NewEnvFrom(data []byte, clk clock.Clock) (*Env, error) {
	boardConf, err := board.LoadConfig(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, err
	}
	if len(boardConf.Boards) == 0 {
		return nil, fmt.Errorf("no boards configured")
	}

	e := &Env{
		Config:     c,
		Clock:      clk,
		Loop:       &fx.Loop{Interval: c.Interval, Clock: clk},
		Controller: board.NewController(),
		Rigs:       make(map[string]*sim.Rig),
	}
	for _, dc := range boardConf.Boards {
		simConf := sim.DefaultConfig()
		if node, ok := fc.Sim[dc.Name]; ok {
			if err := node.Decode(&simConf); err != nil {
				return nil, fmt.Errorf("sim %s: %w", dc.Name, err)
			}
		}
		if err := simConf.Validate(); err != nil {
			return nil, fmt.Errorf("sim %s: %w", dc.Name, err)
		}
		uid, err := dc.UID()
		if err != nil {
			return nil, fmt.Errorf("board %s: %w", dc.Name, err)
		}
		rig := sim.NewRig(simConf, clk)
		dev, err := board.NewDevice(uid, dc, rig.Hardware())
		if err != nil {
			return nil, fmt.Errorf("board %s: %w", dc.Name, err)
		}
		b := board.New(dev)
		b.HeartbeatTimeout = boardConf.HeartbeatTimeout
		out := &link.Fanout{}
		e.Controller.Add(b, out)
		e.Rigs[dc.Name] = rig
		e.outs = append(e.outs, out)
		glog.Infof("board %s: %s", dc.Name, uid)
	}
	e.Loop.Add(e.Controller)
	if err := e.setupLinks(); err != nil {
		e.Close()
		return nil, err
	}
	return e, nil
}

func (e *Env) setupLinks() error {
	boards := e.Controller.Boards()
	if c := e.Config.MQTT; c != nil {
		q, err := c.NewQueue()
		if err != nil {
			return fmt.Errorf("MQTT: %w", err)
		}
		if q != nil {
			e.Loop.AddRunnable(q)
			for n, b := range boards {
				rw := mqtt.ForBoard(q, b.UID())
				e.outs[n].Attach(rw)
				e.Loop.AddRunnable(rw, &link.Pump{Link: rw, UID: b.UID(), Loop: e.Loop})
			}
		}
	}
	if addr := e.Config.WebSocketAddr; addr != "" {
		mux := http.NewServeMux()
		for n, b := range boards {
			mux.Handle(websocket.Path(b.UID()), websocket.Handler(b.UID(), e.Loop, e.outs[n]))
		}
		srv := &http.Server{Addr: addr, Handler: mux}
		e.Loop.AddRunnable(fx.NamedRun("websocket", fx.RunFunc(func(ctx context.Context) error {
			glog.Infof("serving websocket on %s", addr)
			return fx.RunWithContextCloser(ctx, srv, srv.ListenAndServe)
		})))
	}
	if port := e.Config.SerialPort; port != "" {
		s, err := link.OpenSerial(port, e.Config.BaudRate)
		if err != nil {
			return err
		}
		e.closers = append(e.closers, s.Close)
		e.outs[0].Attach(s)
		e.Loop.AddRunnable(&link.Pump{Link: s, UID: boards[0].UID(), Loop: e.Loop})
	}
	return nil
}

// Close releases links opened by NewEnv.
func (e *Env) Close() error {
	var errs fx.AggregatedError
	for _, fn := range e.closers {
		errs.Add(fn())
	}
	e.closers = nil
	return errs.Aggregate()
}
