// Package device defines the contract every lowcar device implements.
package device

import (
	"github.com/robotalks/lowcar/pkg/lowcar/msgs"
	"github.com/robotalks/lowcar/pkg/lowcar/param"
)

// Device is a peripheral exposed to the host through parameters.
//
// All methods are invoked from the same control loop and never
// concurrently with each other.
type Device interface {
	// UID returns the immutable identity of the device.
	UID() msgs.UID
	// Params lists the parameters recognized by the device, ordered by id.
	Params() []param.Param
	// Read copies the current value of a parameter into buf and returns
	// the number of bytes written.
	Read(id uint8, buf []byte) (int, error)
	// Write decodes and applies a parameter value from buf and returns
	// the number of bytes consumed.
	Write(id uint8, buf []byte) (int, error)
	// Check validates a parameter value in buf the way Write does,
	// without applying it, and returns the number of bytes it occupies.
	Check(id uint8, buf []byte) (int, error)
	// Enable allows periodic actions to drive outputs.
	Enable()
	// Disable puts the device into its safe state. It never fails.
	Disable()
	// Action is invoked on every control tick.
	Action()
}

// Base implements identity and parameter access over a param.Store.
// Concrete devices embed it and provide Enable, Disable and Action.
type Base struct {
	uid   msgs.UID
	store *param.Store
}

// NewBase creates a Base.
func NewBase(uid msgs.UID, store *param.Store) Base {
	return Base{uid: uid, store: store}
}

// UID implements Device.
func (b *Base) UID() msgs.UID { return b.uid }

// Params implements Device.
func (b *Base) Params() []param.Param { return b.store.Params() }

// Store returns the parameter store.
func (b *Base) Store() *param.Store { return b.store }

// Read implements Device.
func (b *Base) Read(id uint8, buf []byte) (int, error) {
	return b.store.Read(id, buf)
}

// Write implements Device.
func (b *Base) Write(id uint8, buf []byte) (int, error) {
	return b.store.Write(id, buf)
}

// Check implements Device.
func (b *Base) Check(id uint8, buf []byte) (int, error) {
	_, n, err := b.store.Check(id, buf)
	return n, err
}

// Lookup finds a parameter recognized by dev.
func Lookup(dev Device, id uint8) (param.Param, bool) {
	for _, p := range dev.Params() {
		if p.ID == id {
			return p, true
		}
	}
	return param.Param{}, false
}

// LookupName finds a parameter recognized by dev by its name.
func LookupName(dev Device, name string) (param.Param, bool) {
	for _, p := range dev.Params() {
		if p.Name == name {
			return p, true
		}
	}
	return param.Param{}, false
}

// ParamMap returns the bitmap of all parameters recognized by dev.
func ParamMap(dev Device) msgs.ParamMap {
	var m msgs.ParamMap
	for _, p := range dev.Params() {
		m = m.With(p.ID)
	}
	return m
}
