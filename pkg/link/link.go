// Package link carries lowcar messages between boards and the host.
//
// Every message travels as a self-delimiting record: id, payload length
// and payload, see msgs.Message.MarshalBinary.
package link

import (
	"sync"

	"github.com/robotalks/lowcar/pkg/framework"
	"github.com/robotalks/lowcar/pkg/lowcar/msgs"
)

// Reader reads messages.
type Reader interface {
	ReadMessage() (*msgs.Message, error)
}

// Writer writes messages.
type Writer interface {
	WriteMessage(*msgs.Message) error
}

// ReadWriter reads and writes messages.
type ReadWriter interface {
	Reader
	Writer
}

// Fanout writes messages to all attached Writers.
// With nothing attached, messages are discarded.
type Fanout struct {
	lock    sync.RWMutex
	writers []*fanoutEntry
}

type fanoutEntry struct {
	w Writer
}

// Attach adds w and returns the func detaching it.
func (f *Fanout) Attach(w Writer) (detach func()) {
	e := &fanoutEntry{w: w}
	f.lock.Lock()
	f.writers = append(f.writers, e)
	f.lock.Unlock()
	return func() {
		f.lock.Lock()
		defer f.lock.Unlock()
		for n, entry := range f.writers {
			if entry == e {
				f.writers = append(f.writers[:n:n], f.writers[n+1:]...)
				return
			}
		}
	}
}

// Len returns the number of attached Writers.
func (f *Fanout) Len() int {
	f.lock.RLock()
	defer f.lock.RUnlock()
	return len(f.writers)
}

// WriteMessage implements Writer.
func (f *Fanout) WriteMessage(msg *msgs.Message) error {
	f.lock.RLock()
	writers := f.writers
	f.lock.RUnlock()
	var errs framework.AggregatedError
	for _, e := range writers {
		errs.Add(e.w.WriteMessage(msg))
	}
	return errs.Aggregate()
}
