package batterybuzzer

import (
	"github.com/robotalks/lowcar/pkg/lowcar/param"
)

// Voltage parameter IDs
const (
	ParamVCell1    uint8 = 3
	ParamVCell2    uint8 = 4
	ParamVCell3    uint8 = 5
	ParamVBatt     uint8 = 6
	ParamDVCell2   uint8 = 7
	ParamDVCell3   uint8 = 8
	ParamVRefGuess uint8 = 9
)

// CalibCount is the number of calibration factors.
const CalibCount = 3

// VoltageTracker keeps the latest voltage telemetry of a 3-cell pack.
type VoltageTracker struct {
	values            [ParamVRefGuess - ParamVCell1 + 1]float32
	calib             [CalibCount]float32
	tripleCalibration bool
}

// NewVoltageTracker creates a VoltageTracker using triple calibration
// with unit factors.
func NewVoltageTracker() *VoltageTracker {
	return &VoltageTracker{
		calib:             [CalibCount]float32{1, 1, 1},
		tripleCalibration: true,
	}
}

func (t *VoltageTracker) index(id uint8) (int, bool) {
	if id < ParamVCell1 || id > ParamVRefGuess {
		return 0, false
	}
	return int(id - ParamVCell1), true
}

// Voltage returns a voltage value.
func (t *VoltageTracker) Voltage(id uint8) (float32, error) {
	i, ok := t.index(id)
	if !ok {
		return 0, &param.Error{Code: param.CodeUnknownParameter, Param: id}
	}
	return t.values[i], nil
}

// SetVoltage updates a voltage value.
func (t *VoltageTracker) SetVoltage(id uint8, v float32) error {
	i, ok := t.index(id)
	if !ok {
		return &param.Error{Code: param.CodeUnknownParameter, Param: id}
	}
	t.values[i] = v
	return nil
}

// Calib returns a calibration factor.
func (t *VoltageTracker) Calib(index int) float32 {
	return t.calib[index]
}

// SetCalib updates a calibration factor.
func (t *VoltageTracker) SetCalib(index int, v float32) {
	t.calib[index] = v
}

// TripleCalibration indicates each cell tap uses its own factor.
func (t *VoltageTracker) TripleCalibration() bool {
	return t.tripleCalibration
}

// SetTripleCalibration selects triple or single calibration.
func (t *VoltageTracker) SetTripleCalibration(en bool) {
	t.tripleCalibration = en
}

// factor returns the calibration applied to tap i.
func (t *VoltageTracker) factor(i int) float32 {
	if t.tripleCalibration {
		return t.calib[i]
	}
	return t.calib[0]
}

func (t *VoltageTracker) bindings() []param.Binding {
	names := []string{"v_cell1", "v_cell2", "v_cell3", "v_batt", "dv_cell2", "dv_cell3", "vref_guess"}
	bindings := make([]param.Binding, 0, len(names))
	for n, name := range names {
		id := ParamVCell1 + uint8(n)
		bindings = append(bindings, param.Binding{
			ID:   id,
			Name: name,
			Kind: param.Float,
			Get: func() param.Value {
				v, _ := t.Voltage(id)
				return param.FloatValue(v)
			},
		})
	}
	return bindings
}
