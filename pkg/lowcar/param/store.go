// Package param implements the per-device parameter store.
package param

import (
	"fmt"
	"sort"
)

// MaxID is the largest parameter id, bounded by the width of the
// parameter bitmap used on the wire.
const MaxID = 15

// Param describes a parameter exposed for host read/write.
type Param struct {
	ID       uint8
	Name     string
	Kind     Kind
	Writable bool
}

// Getter reads the current value of a parameter.
type Getter func() Value

// Setter applies a decoded value. It returns false if the value is
// not acceptable for the parameter, in which case state must be left
// unchanged.
type Setter func(Value) bool

// Validator reports whether a decoded value is acceptable. It must not
// change any state.
type Validator func(Value) bool

// Binding binds a parameter to its accessors.
type Binding struct {
	ID   uint8
	Name string
	Kind Kind
	Get  Getter
	Set  Setter // nil for read-only parameters
	// Valid is checked before Set, and by Check without Set. A value
	// accepted by Valid must be accepted by Set.
	Valid Validator
}

// Store maps parameter ids to accessors.
type Store struct {
	bindings map[uint8]*Binding
	params   []Param
}

// NewStore creates a Store and validates bindings.
func NewStore(bindings ...Binding) (*Store, error) {
	s := &Store{bindings: make(map[uint8]*Binding, len(bindings))}
	names := make(map[string]bool, len(bindings))
	for i := range bindings {
		b := &bindings[i]
		switch {
		case b.ID > MaxID:
			return nil, fmt.Errorf("param %q: id %d out of range", b.Name, b.ID)
		case b.Name == "":
			return nil, fmt.Errorf("param %d: name required", b.ID)
		case b.Kind.Size() == 0:
			return nil, fmt.Errorf("param %q: invalid kind %s", b.Name, b.Kind)
		case b.Get == nil:
			return nil, fmt.Errorf("param %q: getter required", b.Name)
		case s.bindings[b.ID] != nil:
			return nil, fmt.Errorf("param %q: duplicated id %d", b.Name, b.ID)
		case names[b.Name]:
			return nil, fmt.Errorf("param %d: duplicated name %q", b.ID, b.Name)
		}
		s.bindings[b.ID], names[b.Name] = b, true
		s.params = append(s.params, Param{ID: b.ID, Name: b.Name, Kind: b.Kind, Writable: b.Set != nil})
	}
	sort.Slice(s.params, func(i, j int) bool { return s.params[i].ID < s.params[j].ID })
	return s, nil
}

// MustNewStore is NewStore which panics on error, for statically
// defined parameter sets.
func MustNewStore(bindings ...Binding) *Store {
	s, err := NewStore(bindings...)
	if err != nil {
		panic(err)
	}
	return s
}

// Params lists parameters ordered by id.
func (s *Store) Params() []Param {
	return s.params
}

// Lookup finds a parameter by id.
func (s *Store) Lookup(id uint8) (Param, bool) {
	b := s.bindings[id]
	if b == nil {
		return Param{}, false
	}
	return Param{ID: b.ID, Name: b.Name, Kind: b.Kind, Writable: b.Set != nil}, true
}

// LookupName finds a parameter by name.
func (s *Store) LookupName(name string) (Param, bool) {
	for _, p := range s.params {
		if p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}

// Get returns the current value of a parameter.
func (s *Store) Get(id uint8) (Value, error) {
	b := s.bindings[id]
	if b == nil {
		return Value{}, newError(CodeUnknownParameter, id)
	}
	return b.Get(), nil
}

// Set applies a value to a parameter.
func (s *Store) Set(id uint8, v Value) error {
	b := s.bindings[id]
	if b == nil {
		return newError(CodeUnknownParameter, id)
	}
	if b.Set == nil {
		return newError(CodeReadOnly, id)
	}
	if v.Kind() != b.Kind || !b.accepts(v) || !b.Set(v) {
		return newError(CodeInvalidEncoding, id)
	}
	return nil
}

func (b *Binding) accepts(v Value) bool {
	return b.Valid == nil || b.Valid(v)
}

// Read encodes the current value of a parameter into buf and
// returns the number of bytes written. Nothing is written on error.
func (s *Store) Read(id uint8, buf []byte) (int, error) {
	b := s.bindings[id]
	if b == nil {
		return 0, newError(CodeUnknownParameter, id)
	}
	size := b.Kind.Size()
	if len(buf) < size {
		return 0, newError(CodeBufferTooSmall, id)
	}
	b.Get().Encode(buf[:size])
	return size, nil
}

// Check decodes and validates buf for a parameter without applying it,
// and returns the number of bytes the value occupies.
func (s *Store) Check(id uint8, buf []byte) (Value, int, error) {
	b := s.bindings[id]
	if b == nil {
		return Value{}, 0, newError(CodeUnknownParameter, id)
	}
	if b.Set == nil {
		return Value{}, 0, newError(CodeReadOnly, id)
	}
	size := b.Kind.Size()
	if len(buf) < size {
		return Value{}, 0, newError(CodeBufferTooSmall, id)
	}
	v, ok := Decode(b.Kind, buf[:size])
	if !ok || !b.accepts(v) {
		return Value{}, 0, newError(CodeInvalidEncoding, id)
	}
	return v, size, nil
}

// Write decodes buf and applies it to a parameter, returning the
// number of bytes consumed. State is unchanged on error.
func (s *Store) Write(id uint8, buf []byte) (int, error) {
	v, n, err := s.Check(id, buf)
	if err != nil {
		return 0, err
	}
	if !s.bindings[id].Set(v) {
		return 0, newError(CodeInvalidEncoding, id)
	}
	return n, nil
}
