// Package websocket carries lowcar messages over websocket, one binary
// frame per record.
package websocket

import (
	"net/http"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"

	"github.com/robotalks/lowcar/pkg/framework"
	"github.com/robotalks/lowcar/pkg/link"
	"github.com/robotalks/lowcar/pkg/lowcar/msgs"
)

// ReadWriter implements link.ReadWriter.
type ReadWriter websocket.Conn

// New wraps websocket.Conn.
func New(conn *websocket.Conn) *ReadWriter {
	return (*ReadWriter)(conn)
}

// Dial connects to a websocket server.
func Dial(url, origin string) (*ReadWriter, error) {
	conn, err := websocket.Dial(url, "", origin)
	if err != nil {
		return nil, err
	}
	return New(conn), nil
}

// ReadMessage implements link.Reader.
func (p *ReadWriter) ReadMessage() (*msgs.Message, error) {
	var rec []byte
	if err := websocket.Message.Receive((*websocket.Conn)(p), &rec); err != nil {
		return nil, err
	}
	msg := &msgs.Message{}
	if err := msg.UnmarshalBinary(rec); err != nil {
		return nil, err
	}
	return msg, nil
}

// WriteMessage implements link.Writer.
func (p *ReadWriter) WriteMessage(msg *msgs.Message) error {
	rec, err := msg.MarshalBinary()
	if err != nil {
		return err
	}
	return websocket.Message.Send((*websocket.Conn)(p), rec)
}

// Close implements io.Closer.
func (p *ReadWriter) Close() error {
	return (*websocket.Conn)(p).Close()
}

// Handler serves host connections of a board. Messages received are
// posted to loop, and the connection is attached to out while open.
func Handler(uid msgs.UID, loop framework.LoopControl, out *link.Fanout) http.Handler {
	return websocket.Handler(func(conn *websocket.Conn) {
		rw := New(conn)
		detach := out.Attach(rw)
		defer detach()
		glog.Infof("%s: host connected from %s", uid, conn.Request().RemoteAddr)
		pump := &link.Pump{Link: rw, UID: uid, Loop: loop}
		if err := pump.Run(conn.Request().Context()); err != nil {
			glog.V(2).Infof("%s: host disconnected: %v", uid, err)
		}
	})
}

// Path returns the HTTP path Handler is served at for a board.
func Path(uid msgs.UID) string {
	return "/lowcar/" + uid.String()
}
