package param

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

type testState struct {
	speed   float32
	mode    uint8
	ticks   int32
	enabled bool
}

func newTestStore(st *testState) *Store {
	return MustNewStore(
		Binding{ID: 0, Name: "speed", Kind: Float,
			Get: func() Value { return FloatValue(st.speed) },
			Set: func(v Value) bool { st.speed = v.Float(); return true }},
		Binding{ID: 1, Name: "mode", Kind: Uint8,
			Get:   func() Value { return Uint8Value(st.mode) },
			Set:   func(v Value) bool { st.mode = v.Uint8(); return true },
			Valid: func(v Value) bool { return v.Uint8() <= 1 }},
		Binding{ID: 2, Name: "ticks", Kind: Int32,
			Get: func() Value { return Int32Value(st.ticks) }},
		Binding{ID: 5, Name: "enabled", Kind: Bool,
			Get: func() Value { return BoolValue(st.enabled) },
			Set: func(v Value) bool { st.enabled = v.Bool(); return true }},
	)
}

func encode(v Value) []byte {
	b := make([]byte, v.Kind().Size())
	v.Encode(b)
	return b
}

func TestNewStoreValidation(t *testing.T) {
	get := func() Value { return BoolValue(false) }
	testCases := []struct {
		name     string
		bindings []Binding
	}{
		{"id out of range", []Binding{{ID: 16, Name: "a", Kind: Bool, Get: get}}},
		{"no name", []Binding{{ID: 1, Kind: Bool, Get: get}}},
		{"bad kind", []Binding{{ID: 1, Name: "a", Get: get}}},
		{"no getter", []Binding{{ID: 1, Name: "a", Kind: Bool}}},
		{"duplicated id", []Binding{{ID: 1, Name: "a", Kind: Bool, Get: get}, {ID: 1, Name: "b", Kind: Bool, Get: get}}},
		{"duplicated name", []Binding{{ID: 1, Name: "a", Kind: Bool, Get: get}, {ID: 2, Name: "a", Kind: Bool, Get: get}}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewStore(tc.bindings...)
			require.Error(t, err)
		})
	}
}

func TestStoreParams(t *testing.T) {
	s := newTestStore(&testState{})
	params := s.Params()
	require.Len(t, params, 4)
	require.Equal(t, Param{ID: 2, Name: "ticks", Kind: Int32}, params[2])
	require.Equal(t, uint8(5), params[3].ID)
	p, ok := s.LookupName("mode")
	require.True(t, ok)
	require.True(t, p.Writable)
}

func TestStoreRoundTrip(t *testing.T) {
	s := newTestStore(&testState{})
	testCases := []struct {
		id    uint8
		value Value
	}{
		{0, FloatValue(-0.75)},
		{0, FloatValue(100)},
		{1, Uint8Value(1)},
		{5, BoolValue(true)},
		{5, BoolValue(false)},
	}
	for _, tc := range testCases {
		n, err := s.Write(tc.id, encode(tc.value))
		require.NoError(t, err)
		require.Equal(t, tc.value.Kind().Size(), n)
		buf := make([]byte, 8)
		n, err = s.Read(tc.id, buf)
		require.NoError(t, err)
		require.Equal(t, encode(tc.value), buf[:n])
	}
}

func TestStoreUnknownParameter(t *testing.T) {
	st := &testState{speed: 3}
	s := newTestStore(st)
	buf := []byte{0xaa, 0xaa, 0xaa, 0xaa}
	n, err := s.Read(3, buf)
	require.Zero(t, n)
	require.True(t, errors.Is(err, ErrUnknownParameter))
	require.Equal(t, []byte{0xaa, 0xaa, 0xaa, 0xaa}, buf)
	require.Equal(t, uint8(3), ParamOf(err))

	_, err = s.Write(9, encode(FloatValue(1)))
	require.True(t, errors.Is(err, ErrUnknownParameter))
	require.Equal(t, float32(3), st.speed)
	_, err = s.Get(9)
	require.Equal(t, CodeUnknownParameter, CodeOf(err))
}

func TestStoreBufferTooSmall(t *testing.T) {
	st := &testState{}
	s := newTestStore(st)
	buf := []byte{0xaa, 0xaa, 0xaa}
	_, err := s.Read(0, buf)
	require.True(t, errors.Is(err, ErrBufferTooSmall))
	require.Equal(t, []byte{0xaa, 0xaa, 0xaa}, buf)
	_, err = s.Write(0, []byte{0, 0})
	require.True(t, errors.Is(err, ErrBufferTooSmall))
}

func TestStoreInvalidEncoding(t *testing.T) {
	st := &testState{speed: 0.5}
	s := newTestStore(st)
	_, err := s.Write(0, encode(FloatValue(float32(math.NaN()))))
	require.True(t, errors.Is(err, ErrInvalidEncoding))
	require.Equal(t, float32(0.5), st.speed)
	_, err = s.Write(5, []byte{2})
	require.True(t, errors.Is(err, ErrInvalidEncoding))
	_, err = s.Write(1, []byte{7})
	require.True(t, errors.Is(err, ErrInvalidEncoding))
	require.Zero(t, st.mode)
	require.Equal(t, CodeInvalidEncoding, CodeOf(s.Set(0, Uint8Value(1))))
}

func TestStoreCheck(t *testing.T) {
	st := &testState{}
	s := newTestStore(st)
	v, n, err := s.Check(1, []byte{1, 0xff})
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, Uint8Value(1), v)
	require.Zero(t, st.mode, "Check never applies")

	_, _, err = s.Check(1, []byte{2})
	require.True(t, errors.Is(err, ErrInvalidEncoding))
	require.Equal(t, uint8(1), ParamOf(err))
	require.Equal(t, CodeInvalidEncoding, CodeOf(s.Set(1, Uint8Value(2))))
	require.Zero(t, st.mode)

	_, _, err = s.Check(2, encode(Int32Value(1)))
	require.True(t, errors.Is(err, ErrReadOnly))
	_, _, err = s.Check(0, []byte{0, 0})
	require.True(t, errors.Is(err, ErrBufferTooSmall))
}

func TestStoreReadOnly(t *testing.T) {
	st := &testState{ticks: 12}
	s := newTestStore(st)
	_, err := s.Write(2, encode(Int32Value(1)))
	require.True(t, errors.Is(err, ErrReadOnly))
	require.False(t, errors.Is(err, ErrUnknownParameter))
	v, err := s.Get(2)
	require.NoError(t, err)
	require.Equal(t, int32(12), v.Int32())
}

func TestParse(t *testing.T) {
	v, err := Parse(Float, "0.25")
	require.NoError(t, err)
	require.Equal(t, float32(0.25), v.Float())
	v, err = Parse(Int16, "-12")
	require.NoError(t, err)
	require.Equal(t, "-12", v.String())
	_, err = Parse(Uint8, "300")
	require.Error(t, err)
}
