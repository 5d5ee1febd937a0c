package sim

import (
	"sync"

	"github.com/robotalks/lowcar/pkg/lowcar/devices/batterybuzzer"
)

// Battery simulates a 3-cell pack on the balance connector.
type Battery struct {
	lock  sync.Mutex
	cells [3]float32
	vref  float32
}

// NewBattery creates a Battery.
func NewBattery(conf BatteryConfig) *Battery {
	b := &Battery{vref: conf.VRef}
	copy(b.cells[:], conf.Cells)
	return b
}

// SetCells changes the cell voltages.
func (b *Battery) SetCells(c1, c2, c3 float32) {
	b.lock.Lock()
	b.cells = [3]float32{c1, c2, c3}
	b.lock.Unlock()
}

// Sample implements batterybuzzer.Sampler.
func (b *Battery) Sample() (r batterybuzzer.Reading, err error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	var sum float32
	for n, v := range b.cells {
		sum += v
		r.Taps[n] = sum
	}
	r.VRef = b.vref
	return
}
