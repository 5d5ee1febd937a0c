package env

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/lowcar/pkg/board"
	"github.com/robotalks/lowcar/pkg/lowcar/devices/polarbear"
	"github.com/robotalks/lowcar/pkg/lowcar/msgs"
)

const testConfig = `
heartbeat_timeout: 1s
boards:
  - name: left
    type: polar_bear
    year: 20
    serial: 1
  - name: pack
    type: battery_buzzer
    year: 20
    serial: 2
sim:
  left:
    motor:
      max_speed: 3000
      time_constant: 0s
`

func newTestConfig() *Config {
	conf := NewConfig()
	conf.MQTT = nil
	return conf
}

func TestNewEnv(t *testing.T) {
	clk := clock.NewMock()
	e, err := newTestConfig().NewEnvFrom([]byte(testConfig), clk)
	require.NoError(t, err)
	defer e.Close()

	boards := e.Controller.Boards()
	require.Len(t, boards, 2)
	assert.Equal(t, msgs.UID{DeviceType: msgs.PolarBear, Year: 20, ID: 1}, boards[0].UID())
	assert.Equal(t, time.Second, boards[0].HeartbeatTimeout)
	assert.Contains(t, e.Rigs, "left")
	assert.Contains(t, e.Rigs, "pack")

	// drive the simulated motor through the loop.
	var replies []*msgs.Message
	reply := board.SendFunc(func(m *msgs.Message) error {
		replies = append(replies, m)
		return nil
	})
	uid := boards[0].UID()
	write, err := msgs.NewDeviceValues(msgs.DeviceWrite, msgs.ParamMapOf(polarbear.ParamDriveMode), []byte{0})
	require.NoError(t, err)
	e.Loop.PostMessage(&board.Inbound{UID: uid, Message: &msgs.Message{ID: msgs.Ping}, Reply: reply})
	e.Loop.PostMessage(&board.Inbound{UID: uid, Message: write, Reply: reply})
	e.Loop.PostMessage(&board.Inbound{UID: uid, Message: msgs.NewHeartbeat(msgs.HeartbeatRequest, 1), Reply: reply})
	e.Loop.Iterate(context.Background())
	require.Len(t, replies, 3)
	assert.Equal(t, msgs.SubscriptionResponse, replies[0].ID)
	assert.Equal(t, msgs.DeviceData, replies[1].ID)
	assert.Equal(t, msgs.HeartbeatResponse, replies[2].ID)

	duty, err := msgs.NewDeviceValues(msgs.DeviceWrite, msgs.ParamMapOf(polarbear.ParamDutyCycle), []byte{0, 0, 0x80, 0x3f})
	require.NoError(t, err)
	e.Loop.PostMessage(&board.Inbound{UID: uid, Message: duty, Reply: reply})
	for i := 0; i < 30; i++ {
		clk.Add(10 * time.Millisecond)
		e.Loop.Iterate(context.Background())
	}
	rig := e.Rigs["left"]
	assert.Equal(t, 255, rig.Motor.Level())
	assert.InDelta(t, 3000, rig.Motor.Speed(), 1e-6)

	// host goes silent.
	clk.Add(2 * time.Second)
	e.Loop.Iterate(context.Background())
	assert.Zero(t, rig.Motor.Level())
}

func TestNewEnvErrors(t *testing.T) {
	tests := []struct {
		name   string
		config string
	}{
		{"no boards", "boards: []"},
		{"bad sim", "boards:\n  - {name: a, type: polar_bear, serial: 1}\nsim:\n  a:\n    motor: {max_speed: 0}"},
		{"unsupported", "boards:\n  - {name: a, type: line_follower, serial: 1}"},
		{"serial", "boards:\n  - {name: a, type: polar_bear, serial: 1}"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			conf := newTestConfig()
			if test.name == "serial" {
				conf.SerialPort = "/nonexistent/tty"
			}
			_, err := conf.NewEnvFrom([]byte(test.config), clock.NewMock())
			assert.Error(t, err)
		})
	}
}
