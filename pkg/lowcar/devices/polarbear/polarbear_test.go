package polarbear

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/lowcar/pkg/lowcar/device"
	"github.com/robotalks/lowcar/pkg/lowcar/encoder"
	"github.com/robotalks/lowcar/pkg/lowcar/msgs"
	"github.com/robotalks/lowcar/pkg/lowcar/param"
)

const tickInterval = 10 * time.Millisecond

var testUID = msgs.UID{DeviceType: msgs.PolarBear, Year: 20, ID: 0xbea5}

type fakePWM struct {
	levels [3]uint8
	fail   bool
}

func (f *fakePWM) SetPWM(channel int, level uint8) error {
	if f.fail {
		return errors.New("driver fault")
	}
	f.levels[channel] = level
	return nil
}

type testRig struct {
	t   *testing.T
	clk *clock.Mock
	pwm *fakePWM
	enc *encoder.Counter
	pb  *PolarBear

	// feedback scales the signed output into encoder ticks per tick,
	// 0 keeps the encoder still.
	feedback int32
}

var _ device.Device = &PolarBear{}

func newTestRig(t *testing.T, conf Config) *testRig {
	r := &testRig{
		t:   t,
		clk: clock.NewMock(),
		pwm: &fakePWM{},
		enc: &encoder.Counter{},
	}
	pb, err := New(testUID, conf, Hardware{PWM: r.pwm, Encoder: r.enc, Clock: r.clk})
	require.NoError(t, err)
	r.pb = pb
	return r
}

func (r *testRig) tick() (pwm1, pwm2 int) {
	r.clk.Add(tickInterval)
	r.pb.Action()
	pwm1, pwm2 = r.pb.Outputs()
	require.Equal(r.t, uint8(pwm1), r.pwm.levels[PWMChannel1])
	require.Equal(r.t, uint8(pwm2), r.pwm.levels[PWMChannel2])
	r.enc.Add(int32(pwm1-pwm2) * r.feedback)
	return
}

func (r *testRig) write(id uint8, v param.Value) error {
	b := make([]byte, v.Kind().Size())
	v.Encode(b)
	n, err := r.pb.Write(id, b)
	if err == nil {
		require.Equal(r.t, len(b), n)
	}
	return err
}

func (r *testRig) read(id uint8) param.Value {
	p, ok := device.Lookup(r.pb, id)
	require.True(r.t, ok)
	b := make([]byte, 4)
	n, err := r.pb.Read(id, b)
	require.NoError(r.t, err)
	v, ok := param.Decode(p.Kind, b[:n])
	require.True(r.t, ok)
	return v
}

func (r *testRig) drive(duty float32) {
	require.NoError(r.t, r.write(ParamDutyCycle, param.FloatValue(duty)))
}

func openLoopConfig() Config {
	conf := DefaultConfig()
	conf.DriveMode = OpenLoop
	return conf
}

func TestNewValidation(t *testing.T) {
	_, err := New(testUID, DefaultConfig(), Hardware{})
	require.Error(t, err)
	_, err = New(testUID, DefaultConfig(), Hardware{PWM: &fakePWM{}})
	require.Error(t, err, "PID mode requires an encoder")
	_, err = New(testUID, openLoopConfig(), Hardware{PWM: &fakePWM{}})
	require.NoError(t, err)
	conf := DefaultConfig()
	conf.DPWMDt = 0
	_, err = New(testUID, conf, Hardware{PWM: &fakePWM{}, Encoder: &encoder.Counter{}})
	require.Error(t, err)
}

func TestInitiallyDisabled(t *testing.T) {
	r := newTestRig(t, DefaultConfig())
	require.False(t, r.pb.Enabled())
	require.False(t, r.read(ParamEnabled).Bool())
	r.drive(0.8)
	require.Zero(t, r.read(ParamDutyCycle).Float(), "target ignored while disabled")
	for i := 0; i < 5; i++ {
		pwm1, pwm2 := r.tick()
		require.Zero(t, pwm1)
		require.Zero(t, pwm2)
	}
}

func TestDisabledOutputsNeutral(t *testing.T) {
	for _, target := range []float32{-100, -1, -0.3, 0, 0.02, 0.5, 1, 100} {
		r := newTestRig(t, DefaultConfig())
		r.feedback = 1
		r.pb.Enable()
		r.drive(target)
		for i := 0; i < 20; i++ {
			r.tick()
		}
		r.pb.Disable()
		r.drive(target)
		for n := 0; n < 30; n++ {
			pwm1, pwm2 := r.tick()
			require.Zero(t, pwm1, "target %v tick %d", target, n)
			require.Zero(t, pwm2, "target %v tick %d", target, n)
		}
	}
}

func TestRampLimit(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	for _, dpwm := range []float64{1, 3.5, 10, 40} {
		conf := DefaultConfig()
		conf.DPWMDt = dpwm
		conf.Kd = 0.01
		r := newTestRig(t, conf)
		r.feedback = 4
		r.pb.Enable()
		prev1, prev2 := r.pb.Outputs()
		for n := 0; n < 2000; n++ {
			if n%50 == 0 {
				r.drive(float32(rnd.Float64()*4 - 2))
			}
			pwm1, pwm2 := r.tick()
			require.True(t, math.Abs(float64(pwm1-prev1)) <= dpwm, "dpwm %v tick %d: %d -> %d", dpwm, n, prev1, pwm1)
			require.True(t, math.Abs(float64(pwm2-prev2)) <= dpwm, "dpwm %v tick %d: %d -> %d", dpwm, n, prev2, pwm2)
			require.True(t, pwm1 == 0 || pwm2 == 0)
			prev1, prev2 = pwm1, pwm2
		}
	}
}

func TestDeadBand(t *testing.T) {
	conf := openLoopConfig()
	conf.DeadBand = 5
	conf.DPWMDt = 255
	r := newTestRig(t, conf)
	r.pb.Enable()
	r.drive(100.0 / MaxPWM)
	pwm1, _ := r.tick()
	require.Equal(t, 100, pwm1)

	for _, level := range []int{96, 97, 100, 103, 104} {
		r.drive(float32(float64(level) / MaxPWM))
		pwm1, _ = r.tick()
		require.Equal(t, 100, pwm1, "desired %d within deadband", level)
	}
	r.drive(105.0 / MaxPWM)
	pwm1, _ = r.tick()
	require.Equal(t, 105, pwm1)
	r.drive(0)
	pwm1, pwm2 := r.tick()
	require.Zero(t, pwm1)
	require.Zero(t, pwm2)
}

func TestReverse(t *testing.T) {
	conf := openLoopConfig()
	conf.DPWMDt = 50
	r := newTestRig(t, conf)
	r.pb.Enable()
	r.drive(0.5)
	for i := 0; i < 5; i++ {
		r.tick()
	}
	pwm1, pwm2 := r.pb.Outputs()
	require.Equal(t, 128, pwm1)
	require.Zero(t, pwm2)

	r.drive(-1)
	expected := [][2]int{{78, 0}, {28, 0}, {0, 22}, {0, 72}}
	for _, e := range expected {
		pwm1, pwm2 = r.tick()
		require.Equal(t, e, [2]int{pwm1, pwm2})
	}
	for i := 0; i < 10; i++ {
		pwm1, pwm2 = r.tick()
	}
	require.Zero(t, pwm1)
	require.Equal(t, MaxPWM, pwm2)
	require.Equal(t, int16(MaxPWM), r.read(ParamPWM2).Int16())
}

func TestIdempotentEnableDisable(t *testing.T) {
	once, twice := newTestRig(t, DefaultConfig()), newTestRig(t, DefaultConfig())
	once.feedback, twice.feedback = 2, 2
	once.pb.Enable()
	twice.pb.Enable()
	twice.pb.Enable()
	for _, r := range []*testRig{once, twice} {
		r.drive(0.6)
		for i := 0; i < 10; i++ {
			r.tick()
		}
	}
	twice.pb.Enable()
	for i := 0; i < 10; i++ {
		p1, p2 := once.tick()
		q1, q2 := twice.tick()
		require.Equal(t, [2]int{p1, p2}, [2]int{q1, q2})
	}
	require.Equal(t, once.pb.pid.Integral(), twice.pb.pid.Integral())

	once.pb.Disable()
	twice.pb.Disable()
	twice.pb.Disable()
	require.Equal(t, once.pb.Enabled(), twice.pb.Enabled())
	require.Equal(t, once.pb.Target(), twice.pb.Target())
	p1, p2 := once.pb.Outputs()
	q1, q2 := twice.pb.Outputs()
	require.Equal(t, [2]int{p1, p2}, [2]int{q1, q2})
}

func TestParamRoundTrip(t *testing.T) {
	r := newTestRig(t, DefaultConfig())
	r.pb.Enable()
	testCases := []struct {
		id    uint8
		value param.Value
	}{
		{ParamDutyCycle, param.FloatValue(-0.35)},
		{ParamDutyCycle, param.FloatValue(100)},
		{ParamKp, param.FloatValue(0.75)},
		{ParamKi, param.FloatValue(0)},
		{ParamKd, param.FloatValue(0.125)},
		{ParamDeadBand, param.FloatValue(3)},
		{ParamDPWMDt, param.FloatValue(12.5)},
		{ParamDriveMode, param.Uint8Value(uint8(OpenLoop))},
		{ParamDriveMode, param.Uint8Value(uint8(PIDVelocity))},
		{ParamMaxSpeed, param.FloatValue(1500)},
	}
	for _, tc := range testCases {
		require.NoError(t, r.write(tc.id, tc.value))
		require.Equal(t, tc.value, r.read(tc.id), "param %d", tc.id)
	}
	for _, p := range r.pb.Params() {
		if p.Writable {
			continue
		}
		b := make([]byte, p.Kind.Size())
		_, err := r.pb.Write(p.ID, b)
		require.True(t, errors.Is(err, param.ErrReadOnly), "param %s", p.Name)
	}
}

func TestInvalidValues(t *testing.T) {
	r := newTestRig(t, DefaultConfig())
	r.pb.Enable()
	require.True(t, errors.Is(r.write(ParamDPWMDt, param.FloatValue(0)), param.ErrInvalidEncoding))
	require.True(t, errors.Is(r.write(ParamDeadBand, param.FloatValue(-1)), param.ErrInvalidEncoding))
	require.True(t, errors.Is(r.write(ParamKp, param.FloatValue(-1)), param.ErrInvalidEncoding))
	require.True(t, errors.Is(r.write(ParamDriveMode, param.Uint8Value(2)), param.ErrInvalidEncoding))
	require.True(t, errors.Is(r.write(ParamDutyCycle, param.FloatValue(float32(math.Inf(1)))), param.ErrInvalidEncoding))
	require.Equal(t, float32(DefaultDPWMDt), r.read(ParamDPWMDt).Float())
	require.Equal(t, float32(DefaultDeadBand), r.read(ParamDeadBand).Float())
	require.Equal(t, uint8(PIDVelocity), r.read(ParamDriveMode).Uint8())
}

func TestRampStepBelowOneUnit(t *testing.T) {
	conf := openLoopConfig()
	conf.DPWMDt = 0.5
	require.Error(t, conf.Validate())
	_, err := New(testUID, conf, Hardware{PWM: &fakePWM{}})
	require.Error(t, err)

	r := newTestRig(t, openLoopConfig())
	r.pb.Enable()
	require.True(t, errors.Is(r.write(ParamDPWMDt, param.FloatValue(0.5)), param.ErrInvalidEncoding))
	require.NoError(t, r.write(ParamDPWMDt, param.FloatValue(MinDPWMDt)))
	r.drive(1)
	for n := 1; n <= 100; n++ {
		pwm1, pwm2 := r.tick()
		require.Equal(t, n, pwm1)
		require.Zero(t, pwm2)
	}
}

func TestUnknownParameter(t *testing.T) {
	r := newTestRig(t, DefaultConfig())
	r.pb.Enable()
	r.drive(0.4)
	for i := 0; i < 3; i++ {
		r.tick()
	}
	pwm1, pwm2 := r.pb.Outputs()
	target := r.pb.Target()

	buf := []byte{1, 2, 3, 4}
	_, err := r.pb.Read(13, buf)
	require.True(t, errors.Is(err, param.ErrUnknownParameter))
	require.Equal(t, []byte{1, 2, 3, 4}, buf)
	_, err = r.pb.Write(15, []byte{0, 0, 0x80, 0x3f})
	require.True(t, errors.Is(err, param.ErrUnknownParameter))

	q1, q2 := r.pb.Outputs()
	require.Equal(t, [2]int{pwm1, pwm2}, [2]int{q1, q2})
	require.Equal(t, target, r.pb.Target())
}

func TestBufferTooSmall(t *testing.T) {
	r := newTestRig(t, DefaultConfig())
	_, err := r.pb.Read(ParamEncPos, make([]byte, 3))
	require.True(t, errors.Is(err, param.ErrBufferTooSmall))
	n, err := r.pb.Read(ParamEnabled, make([]byte, 1))
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestScenarioRampThenDisable(t *testing.T) {
	conf := DefaultConfig()
	conf.DeadBand, conf.DPWMDt = 5, 10
	r := newTestRig(t, conf)
	r.pb.Enable()
	r.drive(100)
	pwm1, pwm2 := r.tick()
	require.True(t, pwm1 <= 10 && pwm2 == 0)
	require.Equal(t, 10, pwm1)
	pwm1, _ = r.tick()
	require.Equal(t, 20, pwm1)
	r.pb.Disable()
	pwm1, pwm2 = r.tick()
	require.Zero(t, pwm1)
	require.Zero(t, pwm2)
}

func TestReEnableDoesNotCarryIntegral(t *testing.T) {
	conf := DefaultConfig()
	conf.Ki, conf.DPWMDt = 50, 10
	r := newTestRig(t, conf)
	r.pb.Enable()
	r.drive(0.9)
	for i := 0; i < 200; i++ {
		r.tick()
	}
	require.NotZero(t, r.pb.pid.Integral())
	r.pb.Disable()
	require.Zero(t, r.pb.pid.Integral())
	r.pb.Enable()
	r.drive(0.9)
	pwm1, pwm2 := r.tick()
	require.True(t, pwm1 <= 10 && pwm2 == 0)
}

func TestPIDCorrectsStall(t *testing.T) {
	conf := DefaultConfig()
	conf.DPWMDt = 255
	stalled := newTestRig(t, conf)
	stalled.pb.Enable()
	stalled.drive(0.2)
	for i := 0; i < 100; i++ {
		stalled.tick()
	}
	pwm1, _ := stalled.pb.Outputs()
	require.True(t, pwm1 > 51, "PID pushes harder than open loop against a stalled motor: %d", pwm1)

	open := newTestRig(t, openLoopConfig())
	open.pb.Enable()
	open.drive(0.2)
	for i := 0; i < 100; i++ {
		open.tick()
	}
	pwm1, _ = open.pb.Outputs()
	require.Equal(t, 51, pwm1)
}

func TestEncoderFeedbackParams(t *testing.T) {
	r := newTestRig(t, openLoopConfig())
	r.feedback = 1
	r.pb.Enable()
	r.drive(1)
	r.tick()
	r.tick()
	require.Equal(t, int32(10), r.read(ParamEncPos).Int32())
	require.InDelta(t, 1000, r.read(ParamEncVel).Float(), 1e-3)
}

func TestTickDivider(t *testing.T) {
	conf := openLoopConfig()
	conf.TickDivider = 3
	r := newTestRig(t, conf)
	r.pb.Enable()
	r.drive(1)
	var levels []int
	for i := 0; i < 6; i++ {
		pwm1, _ := r.tick()
		levels = append(levels, pwm1)
	}
	require.Equal(t, []int{0, 0, 10, 10, 10, 20}, levels)
}

func TestPWMFaultDisables(t *testing.T) {
	r := newTestRig(t, openLoopConfig())
	r.pb.Enable()
	r.drive(1)
	r.tick()
	r.pwm.fail = true
	r.clk.Add(tickInterval)
	r.pb.Action()
	require.False(t, r.pb.Enabled())
	pwm1, pwm2 := r.pb.Outputs()
	require.Zero(t, pwm1)
	require.Zero(t, pwm2)
}
