package device

import (
	"github.com/robotalks/lowcar/pkg/lowcar/msgs"
	"github.com/robotalks/lowcar/pkg/lowcar/param"
)

// ReadValues reads the selected parameters into a DEVICE_DATA payload
// body (values only, ascending id order). The first failure aborts.
func ReadValues(dev Device, params msgs.ParamMap) ([]byte, error) {
	buf := make([]byte, msgs.MaxPayloadSize-msgs.ParamMapSize)
	var n int
	for _, id := range params.IDs() {
		size, err := dev.Read(id, buf[n:])
		if err != nil {
			return nil, err
		}
		n += size
	}
	return buf[:n], nil
}

// ReadData builds a DEVICE_DATA message for the selected parameters.
func ReadData(dev Device, params msgs.ParamMap) (*msgs.Message, error) {
	values, err := ReadValues(dev, params)
	if err != nil {
		return nil, err
	}
	return msgs.NewDeviceValues(msgs.DeviceData, params, values)
}

// WriteValues applies the values of a DEVICE_WRITE payload body. All
// values are checked by the device before the first write, so a
// rejected value leaves the device unchanged.
func WriteValues(dev Device, params msgs.ParamMap, values []byte) error {
	var off int
	for _, id := range params.IDs() {
		size, err := dev.Check(id, values[off:])
		if err != nil {
			return err
		}
		off += size
	}
	if off != len(values) {
		return &param.Error{Code: param.CodeMalformedPayload, Param: msgs.NoParam}
	}
	off = 0
	for _, id := range params.IDs() {
		n, err := dev.Write(id, values[off:])
		if err != nil {
			return err
		}
		off += n
	}
	return nil
}
