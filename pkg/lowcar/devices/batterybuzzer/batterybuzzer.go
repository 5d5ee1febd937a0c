// Package batterybuzzer implements the battery telemetry device.
package batterybuzzer

import (
	"fmt"

	"github.com/golang/glog"

	"github.com/robotalks/lowcar/pkg/lowcar/device"
	"github.com/robotalks/lowcar/pkg/lowcar/msgs"
	"github.com/robotalks/lowcar/pkg/lowcar/param"
)

// Parameter IDs other than voltages.
const (
	ParamIsUnsafe          uint8 = 0
	ParamCalibrated        uint8 = 1
	ParamTripleCalibration uint8 = 2
	ParamCalib0            uint8 = 10
	ParamCalib1            uint8 = 11
	ParamCalib2            uint8 = 12
)

// Safety thresholds
const (
	MinCellVoltage   = 3.3
	MaxCellImbalance = 0.5
)

// Reading is one sample of the balance connector.
// Taps are cumulative: Taps[i] is the voltage across cells 1..i+1.
type Reading struct {
	Taps [3]float32
	VRef float32
}

// Sampler samples the balance connector.
type Sampler interface {
	Sample() (Reading, error)
}

// BatteryBuzzer reports cell voltages and flags an unsafe pack.
type BatteryBuzzer struct {
	device.Base

	sampler  Sampler
	tracker  *VoltageTracker
	isUnsafe bool
}

// New creates a BatteryBuzzer.
func New(uid msgs.UID, sampler Sampler) (*BatteryBuzzer, error) {
	if sampler == nil {
		return nil, fmt.Errorf("battery buzzer %s: sampler required", uid)
	}
	b := &BatteryBuzzer{sampler: sampler, tracker: NewVoltageTracker()}
	bindings := append(b.tracker.bindings(),
		param.Binding{ID: ParamIsUnsafe, Name: "is_unsafe", Kind: param.Bool,
			Get: func() param.Value { return param.BoolValue(b.isUnsafe) }},
		param.Binding{ID: ParamCalibrated, Name: "calibrated", Kind: param.Bool,
			Get: func() param.Value { return param.BoolValue(b.Calibrated()) }},
		param.Binding{ID: ParamTripleCalibration, Name: "triple_calibration", Kind: param.Bool,
			Get: func() param.Value { return param.BoolValue(b.tracker.TripleCalibration()) },
			Set: func(v param.Value) bool { b.tracker.SetTripleCalibration(v.Bool()); return true }},
	)
	for i := 0; i < CalibCount; i++ {
		index := i
		bindings = append(bindings, param.Binding{
			ID:   ParamCalib0 + uint8(i),
			Name: fmt.Sprintf("calib_%d", i),
			Kind: param.Float,
			Get:  func() param.Value { return param.FloatValue(b.tracker.Calib(index)) },
			Set: func(v param.Value) bool {
				b.tracker.SetCalib(index, v.Float())
				return true
			},
			Valid: func(v param.Value) bool { return v.Float() > 0 },
		})
	}
	store, err := param.NewStore(bindings...)
	if err != nil {
		return nil, err
	}
	b.Base = device.NewBase(uid, store)
	return b, nil
}

// Tracker returns the voltage store.
func (b *BatteryBuzzer) Tracker() *VoltageTracker {
	return b.tracker
}

// Calibrated indicates all calibration factors in use were set.
func (b *BatteryBuzzer) Calibrated() bool {
	n := 1
	if b.tracker.TripleCalibration() {
		n = CalibCount
	}
	for i := 0; i < n; i++ {
		if b.tracker.Calib(i) == 1 {
			return false
		}
	}
	return true
}

// Unsafe indicates the last sample was outside the safe range.
func (b *BatteryBuzzer) Unsafe() bool {
	return b.isUnsafe
}

// Enable implements Device. There are no outputs to drive.
func (b *BatteryBuzzer) Enable() {}

// Disable implements Device. Telemetry keeps sampling while disabled.
func (b *BatteryBuzzer) Disable() {}

// Action implements Device.
func (b *BatteryBuzzer) Action() {
	r, err := b.sampler.Sample()
	if err != nil {
		glog.Warningf("%s: sample error: %v", b.UID(), err)
		return
	}
	t := b.tracker
	var taps [3]float32
	for i := range taps {
		taps[i] = r.Taps[i] * t.factor(i)
	}
	cells := [3]float32{taps[0], taps[1] - taps[0], taps[2] - taps[1]}
	t.SetVoltage(ParamVCell1, cells[0])
	t.SetVoltage(ParamVCell2, cells[1])
	t.SetVoltage(ParamVCell3, cells[2])
	t.SetVoltage(ParamVBatt, taps[2])
	t.SetVoltage(ParamDVCell2, abs(cells[1]-cells[0]))
	t.SetVoltage(ParamDVCell3, abs(cells[2]-cells[1]))
	t.SetVoltage(ParamVRefGuess, r.VRef)

	unsafe := false
	for _, v := range cells {
		if v < MinCellVoltage {
			unsafe = true
		}
	}
	if abs(cells[1]-cells[0]) > MaxCellImbalance || abs(cells[2]-cells[1]) > MaxCellImbalance ||
		abs(cells[2]-cells[0]) > MaxCellImbalance {
		unsafe = true
	}
	if unsafe && !b.isUnsafe {
		glog.Warningf("%s: battery unsafe: cells %.2fV %.2fV %.2fV", b.UID(), cells[0], cells[1], cells[2])
	}
	b.isUnsafe = unsafe
}

func abs(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
