package msgs

import (
	"errors"
	"fmt"
)

// MaxPayloadSize is the maximum number of payload bytes in a message.
const MaxPayloadSize = 100

// MessageID identifies the kind of a message.
type MessageID byte

// Message IDs
const (
	Ping                 MessageID = 0x00
	SubscriptionRequest  MessageID = 0x01
	SubscriptionResponse MessageID = 0x02
	DeviceRead           MessageID = 0x03
	DeviceWrite          MessageID = 0x04
	DeviceData           MessageID = 0x05
	DeviceDisable        MessageID = 0x06
	HeartbeatRequest     MessageID = 0x07
	HeartbeatResponse    MessageID = 0x08
	Error                MessageID = 0xFF
)

var messageIDNames = map[MessageID]string{
	Ping:                 "PING",
	SubscriptionRequest:  "SUBSCRIPTION_REQUEST",
	SubscriptionResponse: "SUBSCRIPTION_RESPONSE",
	DeviceRead:           "DEVICE_READ",
	DeviceWrite:          "DEVICE_WRITE",
	DeviceData:           "DEVICE_DATA",
	DeviceDisable:        "DEVICE_DISABLE",
	HeartbeatRequest:     "HEARTBEAT_REQUEST",
	HeartbeatResponse:    "HEARTBEAT_RESPONSE",
	Error:                "ERROR",
}

// String implements fmt.Stringer.
func (id MessageID) String() string {
	if name, ok := messageIDNames[id]; ok {
		return name
	}
	return fmt.Sprintf("MessageID(0x%02x)", byte(id))
}

// IsKnown indicates the id is one of the defined message ids.
func (id MessageID) IsKnown() bool {
	_, ok := messageIDNames[id]
	return ok
}

var (
	// ErrPayloadTooLarge indicates a payload exceeds MaxPayloadSize.
	ErrPayloadTooLarge = errors.New("payload too large")
	// ErrMalformed indicates an encoded message or payload is truncated
	// or inconsistent.
	ErrMalformed = errors.New("malformed message")
)

// Message is a decoded lowcar message.
// Only Payload[:PayloadLength] is meaningful.
type Message struct {
	ID            MessageID
	PayloadLength uint8
	Payload       [MaxPayloadSize]byte
}

// NewMessage creates a message with a copy of payload.
func NewMessage(id MessageID, payload []byte) (*Message, error) {
	if len(payload) > MaxPayloadSize {
		return nil, ErrPayloadTooLarge
	}
	m := &Message{ID: id, PayloadLength: uint8(len(payload))}
	copy(m.Payload[:], payload)
	return m, nil
}

// Data returns the valid part of the payload.
func (m *Message) Data() []byte {
	n := int(m.PayloadLength)
	if n > MaxPayloadSize {
		n = MaxPayloadSize
	}
	return m.Payload[:n]
}

// String implements fmt.Stringer.
func (m *Message) String() string {
	return fmt.Sprintf("%s[% x]", m.ID, m.Data())
}

// MarshalBinary encodes the message as [id, len, payload...].
func (m *Message) MarshalBinary() ([]byte, error) {
	if int(m.PayloadLength) > MaxPayloadSize {
		return nil, ErrPayloadTooLarge
	}
	b := make([]byte, int(m.PayloadLength)+2)
	b[0], b[1] = byte(m.ID), m.PayloadLength
	copy(b[2:], m.Data())
	return b, nil
}

// UnmarshalBinary decodes a record produced by MarshalBinary.
func (m *Message) UnmarshalBinary(data []byte) error {
	if len(data) < 2 {
		return ErrMalformed
	}
	l := int(data[1])
	if l > MaxPayloadSize {
		return ErrPayloadTooLarge
	}
	if len(data) != l+2 {
		return ErrMalformed
	}
	m.ID, m.PayloadLength = MessageID(data[0]), data[1]
	copy(m.Payload[:], data[2:])
	return nil
}
