package websocket

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait = 10 * time.Second
	readWait  = 5 * time.Minute
)

// Conn serializes writes: the timer forwarder and the read loop share one socket.
type Conn struct {
	raw *websocket.Conn
	mu  sync.Mutex
}

// Wrap takes ownership of an upgraded connection.
func Wrap(raw *websocket.Conn) *Conn {
	return &Conn{raw: raw}
}

// Send writes one event.
func (c *Conn) Send(event Event, data any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.raw.SetWriteDeadline(time.Now().Add(writeWait))
	return c.raw.WriteJSON(Envelope{Event: event, Data: data})
}

// SendError writes an error event.
func (c *Conn) SendError(code, msg string) error {
	return c.Send(EventError, ErrorPayload{Code: code, Message: msg})
}

// Read decodes the next client request. The deadline is renewed per message.
func (c *Conn) Read(req *Request) error {
	c.raw.SetReadDeadline(time.Now().Add(readWait))
	return c.raw.ReadJSON(req)
}

// Close sends a normal close frame and closes the socket.
func (c *Conn) Close() error {
	c.mu.Lock()
	_ = c.raw.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.mu.Unlock()
	return c.raw.Close()
}

// IsUnexpectedClose reports close errors other than a normal or going-away close.
func IsUnexpectedClose(err error) bool {
	return websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure)
}
