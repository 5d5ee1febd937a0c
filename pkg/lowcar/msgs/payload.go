package msgs

import (
	"encoding/binary"
	"time"
)

// MaxParams is the number of parameter ids addressable by a ParamMap.
const MaxParams = 16

// ParamMapSize is the encoded size of a ParamMap.
const ParamMapSize = 2

// ParamMap is a bitmap of parameter ids.
type ParamMap uint16

// ParamMapOf builds a ParamMap from ids; ids >= MaxParams are ignored.
func ParamMapOf(ids ...uint8) ParamMap {
	var m ParamMap
	for _, id := range ids {
		m = m.With(id)
	}
	return m
}

// Has indicates id is selected.
func (m ParamMap) Has(id uint8) bool {
	return id < MaxParams && m&(1<<id) != 0
}

// With returns the map with id selected.
func (m ParamMap) With(id uint8) ParamMap {
	if id >= MaxParams {
		return m
	}
	return m | (1 << id)
}

// IDs returns selected ids in ascending order.
func (m ParamMap) IDs() []uint8 {
	var ids []uint8
	for id := uint8(0); id < MaxParams; id++ {
		if m.Has(id) {
			ids = append(ids, id)
		}
	}
	return ids
}

// DecodeParamMap decodes the leading ParamMap of a payload.
func DecodeParamMap(b []byte) (ParamMap, error) {
	if len(b) < ParamMapSize {
		return 0, ErrMalformed
	}
	return ParamMap(binary.LittleEndian.Uint16(b)), nil
}

// Subscription is the content of SUBSCRIPTION_REQUEST/RESPONSE.
type Subscription struct {
	Params ParamMap
	Delay  time.Duration
	UID    UID // only in SUBSCRIPTION_RESPONSE
}

// NewSubscriptionRequest builds a SUBSCRIPTION_REQUEST.
func NewSubscriptionRequest(params ParamMap, delay time.Duration) *Message {
	m := &Message{ID: SubscriptionRequest, PayloadLength: 4}
	binary.LittleEndian.PutUint16(m.Payload[0:], uint16(params))
	binary.LittleEndian.PutUint16(m.Payload[2:], delayMillis(delay))
	return m
}

// NewSubscriptionResponse builds a SUBSCRIPTION_RESPONSE.
func NewSubscriptionResponse(sub Subscription) *Message {
	m := &Message{ID: SubscriptionResponse, PayloadLength: 4 + UIDSize}
	binary.LittleEndian.PutUint16(m.Payload[0:], uint16(sub.Params))
	binary.LittleEndian.PutUint16(m.Payload[2:], delayMillis(sub.Delay))
	sub.UID.Put(m.Payload[4:])
	return m
}

// DecodeSubscription decodes a SUBSCRIPTION_REQUEST or SUBSCRIPTION_RESPONSE payload.
func DecodeSubscription(m *Message) (sub Subscription, err error) {
	data := m.Data()
	if len(data) < 4 {
		return sub, ErrMalformed
	}
	sub.Params = ParamMap(binary.LittleEndian.Uint16(data))
	sub.Delay = time.Duration(binary.LittleEndian.Uint16(data[2:])) * time.Millisecond
	if m.ID == SubscriptionResponse {
		sub.UID, err = DecodeUID(data[4:])
	}
	return
}

func delayMillis(d time.Duration) uint16 {
	ms := d / time.Millisecond
	if ms > 0xffff {
		ms = 0xffff
	}
	if ms < 0 {
		ms = 0
	}
	return uint16(ms)
}

// NewDeviceRead builds a DEVICE_READ for params.
func NewDeviceRead(params ParamMap) *Message {
	m := &Message{ID: DeviceRead, PayloadLength: ParamMapSize}
	binary.LittleEndian.PutUint16(m.Payload[0:], uint16(params))
	return m
}

// NewDeviceValues builds a DEVICE_WRITE or DEVICE_DATA message from
// params and their already encoded values in ascending id order.
func NewDeviceValues(id MessageID, params ParamMap, values []byte) (*Message, error) {
	if len(values)+ParamMapSize > MaxPayloadSize {
		return nil, ErrPayloadTooLarge
	}
	m := &Message{ID: id, PayloadLength: uint8(len(values) + ParamMapSize)}
	binary.LittleEndian.PutUint16(m.Payload[0:], uint16(params))
	copy(m.Payload[ParamMapSize:], values)
	return m, nil
}

// NewHeartbeat builds a HEARTBEAT_REQUEST or HEARTBEAT_RESPONSE.
func NewHeartbeat(id MessageID, heartbeatID uint8) *Message {
	m := &Message{ID: id, PayloadLength: 1}
	m.Payload[0] = heartbeatID
	return m
}

// NoParam is used in ERROR messages not related to a parameter.
const NoParam uint8 = 0xFF

// NewError builds an ERROR message.
func NewError(code, param uint8) *Message {
	m := &Message{ID: Error, PayloadLength: 2}
	m.Payload[0], m.Payload[1] = code, param
	return m
}

// DecodeError decodes an ERROR payload.
func DecodeError(m *Message) (code, param uint8, err error) {
	data := m.Data()
	if len(data) < 2 {
		return 0, 0, ErrMalformed
	}
	return data[0], data[1], nil
}
