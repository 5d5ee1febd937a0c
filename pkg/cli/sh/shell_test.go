package sh

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/lowcar/pkg/board"
	"github.com/robotalks/lowcar/pkg/framework"
	"github.com/robotalks/lowcar/pkg/lowcar/devices/polarbear"
	"github.com/robotalks/lowcar/pkg/lowcar/msgs"
	"github.com/robotalks/lowcar/pkg/lowcar/param"
	"github.com/robotalks/lowcar/pkg/sim"
)

var testUID = msgs.UID{DeviceType: msgs.PolarBear, Year: 20, ID: 1}

func newTestBoard(t *testing.T) *board.Board {
	rig := sim.NewRig(sim.DefaultConfig(), nil)
	dev, err := board.NewDevice(testUID, board.DeviceConfig{PolarBear: polarbear.DefaultConfig()}, rig.Hardware())
	require.NoError(t, err)
	return board.New(dev)
}

func TestParseParams(t *testing.T) {
	dev := newTestBoard(t).Device()
	m, err := ParseParams(dev, []string{"pid_kp", "0", "0x0c"})
	require.NoError(t, err)
	assert.Equal(t, msgs.ParamMapOf(polarbear.ParamKp, polarbear.ParamDutyCycle, polarbear.ParamMaxSpeed), m)

	m, err = ParseParams(dev, nil)
	require.NoError(t, err)
	assert.Len(t, m.IDs(), len(dev.Params()))

	_, err = ParseParams(dev, []string{"speed"})
	assert.Error(t, err)
	_, err = ParseParams(dev, []string{"14"})
	assert.Error(t, err)
}

func TestParseDelay(t *testing.T) {
	d, err := ParseDelay("250")
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, d)
	d, err = ParseDelay("1.5s")
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Millisecond, d)
	_, err = ParseDelay("soon")
	assert.Error(t, err)
}

func TestNewWrite(t *testing.T) {
	dev := newTestBoard(t).Device()
	m, err := NewWrite(dev, []string{"drive_mode", "0", "duty_cycle", "0.5"})
	require.NoError(t, err)
	assert.Equal(t, msgs.DeviceWrite, m.ID)
	assert.Equal(t, []byte{0x41, 0x00, 0x00, 0x00, 0x00, 0x3f, 0x00}, m.Data())

	for _, args := range [][]string{
		nil,
		{"pid_kp"},
		{"pid_kp", "x"},
		{"nothing", "1"},
		{"pid_kp", "1", "pid_kp", "2"},
	} {
		_, err := NewWrite(dev, args)
		assert.Error(t, err, "%v", args)
	}
}

func TestFormatReply(t *testing.T) {
	dev := newTestBoard(t).Device()
	values := make([]byte, 5)
	param.FloatValue(0.25).Encode(values)
	values[4] = 1
	data, err := msgs.NewDeviceValues(msgs.DeviceData, msgs.ParamMapOf(polarbear.ParamKp, polarbear.ParamDriveMode), values)
	require.NoError(t, err)
	assert.Equal(t, "pid_kp=0.25\ndrive_mode=1", FormatReply(dev, data))

	assert.Equal(t, "error: pid_kd: invalid encoding",
		FormatReply(dev, msgs.NewError(uint8(param.CodeInvalidEncoding), polarbear.ParamKd)))
	assert.Equal(t, "error: unexpected message",
		FormatReply(dev, msgs.NewError(uint8(param.CodeUnexpectedMessage), msgs.NoParam)))
	assert.Equal(t, "heartbeat 3", FormatReply(dev, msgs.NewHeartbeat(msgs.HeartbeatResponse, 3)))
	assert.Equal(t, testUID.String()+" params=[duty_cycle enabled] delay=100ms",
		FormatReply(dev, msgs.NewSubscriptionResponse(msgs.Subscription{
			Params: msgs.ParamMapOf(polarbear.ParamDutyCycle, polarbear.ParamEnabled),
			Delay:  100 * time.Millisecond,
			UID:    testUID,
		})))
}

func TestDo(t *testing.T) {
	b := newTestBoard(t)
	ctl := board.NewController().Add(b, nil)
	loop := framework.NewLoop()
	loop.Add(ctl)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)

	s := &Shell{Controller: ctl, Loop: loop, Timeout: time.Second}
	_, err := s.Do(&msgs.Message{ID: msgs.Ping})
	assert.Error(t, err, "no board selected")

	s.Board = b
	replies, err := s.Do(&msgs.Message{ID: msgs.Ping})
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Equal(t, msgs.SubscriptionResponse, replies[0].ID)

	msg, err := NewWrite(b.Device(), []string{"pid_kp", "0.75"})
	require.NoError(t, err)
	replies, err = s.Do(msg)
	require.NoError(t, err)
	assert.Equal(t, "pid_kp=0.75", FormatReply(b.Device(), replies[0]))

	replies, err = s.Do(&msgs.Message{ID: msgs.DeviceDisable})
	assert.NoError(t, err)
	assert.Empty(t, replies)
}
