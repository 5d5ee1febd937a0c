package sh

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/robotalks/lowcar/pkg/lowcar/device"
	"github.com/robotalks/lowcar/pkg/lowcar/msgs"
	"github.com/robotalks/lowcar/pkg/lowcar/param"
)

// LookupParam finds a parameter by name or id.
func LookupParam(dev device.Device, s string) (param.Param, error) {
	if p, ok := device.LookupName(dev, s); ok {
		return p, nil
	}
	if id, err := strconv.ParseUint(s, 0, 8); err == nil {
		if p, ok := device.Lookup(dev, uint8(id)); ok {
			return p, nil
		}
	}
	return param.Param{}, fmt.Errorf("unknown parameter %q", s)
}

// ParseParams converts parameter names or ids to a ParamMap.
// No argument selects all parameters.
func ParseParams(dev device.Device, args []string) (msgs.ParamMap, error) {
	if len(args) == 0 {
		return device.ParamMap(dev), nil
	}
	var m msgs.ParamMap
	for _, arg := range args {
		p, err := LookupParam(dev, arg)
		if err != nil {
			return 0, err
		}
		m = m.With(p.ID)
	}
	return m, nil
}

// ParseDelay parses a duration, plain numbers are milliseconds.
func ParseDelay(s string) (time.Duration, error) {
	if ms, err := strconv.ParseUint(s, 10, 16); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	return time.ParseDuration(s)
}

// NewWrite builds a DEVICE_WRITE from name/value pairs.
func NewWrite(dev device.Device, args []string) (*msgs.Message, error) {
	if len(args) == 0 || len(args)%2 != 0 {
		return nil, fmt.Errorf("PARAM VALUE pairs expected")
	}
	type entry struct {
		p param.Param
		v param.Value
	}
	var entries []entry
	var m msgs.ParamMap
	for n := 0; n < len(args); n += 2 {
		p, err := LookupParam(dev, args[n])
		if err != nil {
			return nil, err
		}
		if m.Has(p.ID) {
			return nil, fmt.Errorf("parameter %s repeated", p.Name)
		}
		v, err := param.Parse(p.Kind, args[n+1])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p.Name, err)
		}
		m = m.With(p.ID)
		entries = append(entries, entry{p: p, v: v})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].p.ID < entries[j].p.ID })
	var values []byte
	for _, e := range entries {
		b := make([]byte, e.p.Kind.Size())
		e.v.Encode(b)
		values = append(values, b...)
	}
	return msgs.NewDeviceValues(msgs.DeviceWrite, m, values)
}

// FormatReply formats a message from a board for display.
func FormatReply(dev device.Device, msg *msgs.Message) string {
	switch msg.ID {
	case msgs.DeviceData:
		return formatData(dev, msg)
	case msgs.SubscriptionResponse:
		sub, err := msgs.DecodeSubscription(msg)
		if err != nil {
			break
		}
		return fmt.Sprintf("%s params=%s delay=%s", sub.UID, formatParamNames(dev, sub.Params), sub.Delay)
	case msgs.HeartbeatResponse:
		if data := msg.Data(); len(data) > 0 {
			return fmt.Sprintf("heartbeat %d", data[0])
		}
	case msgs.Error:
		code, id, err := msgs.DecodeError(msg)
		if err != nil {
			break
		}
		if id == msgs.NoParam {
			return fmt.Sprintf("error: %s", param.Code(code))
		}
		name := strconv.Itoa(int(id))
		if p, ok := device.Lookup(dev, id); ok {
			name = p.Name
		}
		return fmt.Sprintf("error: %s: %s", name, param.Code(code))
	}
	return msg.String()
}

func formatParamNames(dev device.Device, m msgs.ParamMap) string {
	var w bytes.Buffer
	w.WriteByte('[')
	for n, id := range m.IDs() {
		if n > 0 {
			w.WriteByte(' ')
		}
		if p, ok := device.Lookup(dev, id); ok {
			w.WriteString(p.Name)
		} else {
			w.WriteString(strconv.Itoa(int(id)))
		}
	}
	w.WriteByte(']')
	return w.String()
}

func formatData(dev device.Device, msg *msgs.Message) string {
	data := msg.Data()
	params, err := msgs.DecodeParamMap(data)
	if err != nil {
		return msg.String()
	}
	data = data[msgs.ParamMapSize:]
	var w bytes.Buffer
	for _, id := range params.IDs() {
		p, ok := device.Lookup(dev, id)
		if !ok || len(data) < p.Kind.Size() {
			fmt.Fprintf(&w, "?% x", data)
			break
		}
		v, ok := param.Decode(p.Kind, data[:p.Kind.Size()])
		data = data[p.Kind.Size():]
		if w.Len() > 0 {
			w.WriteByte('\n')
		}
		if !ok {
			fmt.Fprintf(&w, "%s=?", p.Name)
			continue
		}
		fmt.Fprintf(&w, "%s=%s", p.Name, v)
	}
	return w.String()
}
