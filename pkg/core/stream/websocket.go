package stream

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const closeWriteTimeout = 2 * time.Second

// WebsocketChannel adapts a gorilla websocket connection to the Channel
// interface and pumps its inbound frames into a session.
type WebsocketChannel struct {
	conn      *websocket.Conn
	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

// NewWebsocketChannel wraps an already-dialed connection.
func NewWebsocketChannel(conn *websocket.Conn) *WebsocketChannel {
	return &WebsocketChannel{conn: conn}
}

// Send writes one text frame. Safe for concurrent use.
func (c *WebsocketChannel) Send(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Close sends a normal close frame and tears down the connection. Idempotent.
func (c *WebsocketChannel) Close() error {
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(closeWriteTimeout))
		c.writeMu.Unlock()
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

// Pump reads frames until the connection closes, feeding the session.
// Run it on its own goroutine after the session is constructed, so no
// inbound frame is ever delivered to an unregistered handler.
func (c *WebsocketChannel) Pump(s *Session) {
	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			code, reason := 0, ""
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				code, reason = closeErr.Code, closeErr.Text
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.HandleClose(code, reason, nil)
			} else {
				s.HandleClose(code, reason, err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		if err := s.HandleMessage(data); err != nil {
			// Frame reached a terminal state (remote error or decode
			// failure); nothing further to read.
			_ = c.Close()
			return
		}
	}
}
