package param

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
)

// Kind is the wire type of a parameter.
type Kind uint8

// Kinds
const (
	Bool Kind = iota + 1
	Uint8
	Int16
	Int32
	Float
)

// Size returns the encoded width in bytes.
func (k Kind) Size() int {
	switch k {
	case Bool, Uint8:
		return 1
	case Int16:
		return 2
	case Int32, Float:
		return 4
	}
	return 0
}

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case Bool:
		return "bool"
	case Uint8:
		return "uint8"
	case Int16:
		return "int16"
	case Int32:
		return "int32"
	case Float:
		return "float"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Value is a typed parameter value.
type Value struct {
	kind Kind
	bits uint32
}

// BoolValue creates a Bool value.
func BoolValue(v bool) Value {
	if v {
		return Value{kind: Bool, bits: 1}
	}
	return Value{kind: Bool}
}

// Uint8Value creates a Uint8 value.
func Uint8Value(v uint8) Value { return Value{kind: Uint8, bits: uint32(v)} }

// Int16Value creates an Int16 value.
func Int16Value(v int16) Value { return Value{kind: Int16, bits: uint32(uint16(v))} }

// Int32Value creates an Int32 value.
func Int32Value(v int32) Value { return Value{kind: Int32, bits: uint32(v)} }

// FloatValue creates a Float value.
func FloatValue(v float32) Value { return Value{kind: Float, bits: math.Float32bits(v)} }

// Kind returns the kind of the value.
func (v Value) Kind() Kind { return v.kind }

// Bool returns the value as bool.
func (v Value) Bool() bool { return v.bits != 0 }

// Uint8 returns the value as uint8.
func (v Value) Uint8() uint8 { return uint8(v.bits) }

// Int16 returns the value as int16.
func (v Value) Int16() int16 { return int16(uint16(v.bits)) }

// Int32 returns the value as int32.
func (v Value) Int32() int32 { return int32(v.bits) }

// Float returns the value as float32.
func (v Value) Float() float32 { return math.Float32frombits(v.bits) }

// String implements fmt.Stringer.
func (v Value) String() string {
	switch v.kind {
	case Bool:
		return strconv.FormatBool(v.Bool())
	case Uint8:
		return strconv.Itoa(int(v.Uint8()))
	case Int16:
		return strconv.Itoa(int(v.Int16()))
	case Int32:
		return strconv.Itoa(int(v.Int32()))
	case Float:
		return strconv.FormatFloat(float64(v.Float()), 'g', -1, 32)
	}
	return "<invalid>"
}

// Encode writes the little-endian encoding into b, which must hold
// v.Kind().Size() bytes.
func (v Value) Encode(b []byte) {
	switch v.kind.Size() {
	case 1:
		b[0] = byte(v.bits)
	case 2:
		binary.LittleEndian.PutUint16(b, uint16(v.bits))
	case 4:
		binary.LittleEndian.PutUint32(b, v.bits)
	}
}

// Decode decodes a value of kind k from b.
// Bools must be 0 or 1 and floats must be finite.
func Decode(k Kind, b []byte) (Value, bool) {
	v := Value{kind: k}
	switch k.Size() {
	case 0:
		return v, false
	case 1:
		v.bits = uint32(b[0])
	case 2:
		v.bits = uint32(binary.LittleEndian.Uint16(b))
	case 4:
		v.bits = binary.LittleEndian.Uint32(b)
	}
	switch k {
	case Bool:
		if v.bits > 1 {
			return v, false
		}
	case Float:
		f := float64(v.Float())
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return v, false
		}
	}
	return v, true
}

// Parse parses the text form of a value of kind k.
func Parse(k Kind, s string) (Value, error) {
	switch k {
	case Bool:
		b, err := strconv.ParseBool(s)
		return BoolValue(b), err
	case Uint8:
		n, err := strconv.ParseUint(s, 0, 8)
		return Uint8Value(uint8(n)), err
	case Int16:
		n, err := strconv.ParseInt(s, 0, 16)
		return Int16Value(int16(n)), err
	case Int32:
		n, err := strconv.ParseInt(s, 0, 32)
		return Int32Value(int32(n)), err
	case Float:
		f, err := strconv.ParseFloat(s, 32)
		return FloatValue(float32(f)), err
	}
	return Value{}, fmt.Errorf("unsupported kind %s", k)
}
