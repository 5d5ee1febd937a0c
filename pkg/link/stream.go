package link

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/goburrow/serial"

	"github.com/robotalks/lowcar/pkg/lowcar/msgs"
)

// Stream implements ReadWriter over a byte stream.
type Stream struct {
	rw        io.ReadWriter
	writeLock sync.Mutex
}

// NewStream creates a Stream.
func NewStream(rw io.ReadWriter) *Stream {
	return &Stream{rw: rw}
}

// ReadMessage implements Reader.
func (s *Stream) ReadMessage() (*msgs.Message, error) {
	var hdr [2]byte
	if _, err := io.ReadFull(s.rw, hdr[:]); err != nil {
		return nil, err
	}
	if hdr[1] > msgs.MaxPayloadSize {
		// skip the payload to stay aligned on the next record.
		if _, err := io.CopyN(io.Discard, s.rw, int64(hdr[1])); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("record length %d: %w", hdr[1], msgs.ErrPayloadTooLarge)
	}
	msg := &msgs.Message{ID: msgs.MessageID(hdr[0]), PayloadLength: hdr[1]}
	if _, err := io.ReadFull(s.rw, msg.Payload[:msg.PayloadLength]); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return msg, nil
}

// WriteMessage implements Writer.
func (s *Stream) WriteMessage(msg *msgs.Message) error {
	rec, err := msg.MarshalBinary()
	if err != nil {
		return err
	}
	s.writeLock.Lock()
	defer s.writeLock.Unlock()
	_, err = s.rw.Write(rec)
	return err
}

// Close closes the underlying stream if it's an io.Closer.
func (s *Stream) Close() error {
	if closer, ok := s.rw.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// DefaultBaudRate is the baud rate of lowcar boards.
const DefaultBaudRate = 115200

// OpenSerial opens a serial port as a Stream.
func OpenSerial(address string, baudRate int) (*Stream, error) {
	if baudRate <= 0 {
		baudRate = DefaultBaudRate
	}
	port, err := serial.Open(&serial.Config{
		Address:  address,
		BaudRate: baudRate,
		DataBits: 8,
		StopBits: 1,
		Parity:   "N",
		Timeout:  time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", address, err)
	}
	return NewStream(&serialPort{Port: port}), nil
}

// serialPort blocks reads across read timeouts.
type serialPort struct {
	serial.Port
}

func (p *serialPort) Read(b []byte) (int, error) {
	for {
		n, err := p.Port.Read(b)
		if n == 0 && err == serial.ErrTimeout {
			continue
		}
		return n, err
	}
}
