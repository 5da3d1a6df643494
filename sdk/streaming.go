package voxa

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/voxa-ai/voxa-go/pkg/core/protocol"
	"github.com/voxa-ai/voxa-go/pkg/core/stream"
)

// openStreamSession dials the websocket for path, constructs the session
// before any frame can be read, writes the setup envelope exactly once,
// and starts the read pump. The caller is expected to AwaitReady next.
func (c *Client) openStreamSession(ctx context.Context, path string, setup protocol.Setup) (*stream.Session, error) {
	wsURL, err := c.websocketEndpoint(path)
	if err != nil {
		return nil, err
	}

	dialer := websocket.DefaultDialer
	if dialer == nil {
		dialer = &websocket.Dialer{}
	}

	dialCtx := ctx
	var cancel context.CancelFunc
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		dialCtx, cancel = context.WithTimeout(ctx, defaultConnectTimeout)
		defer cancel()
	}

	conn, resp, err := dialer.DialContext(dialCtx, wsURL, c.headers())
	if err != nil {
		if resp != nil {
			return nil, &TransportError{Op: "GET", URL: wsURL, Err: fmt.Errorf("websocket dial failed (status %d): %w", resp.StatusCode, err)}
		}
		return nil, &TransportError{Op: "GET", URL: wsURL, Err: err}
	}

	streamID := uuid.NewString()
	ch := stream.NewWebsocketChannel(conn)
	session := stream.New(ch, c.logger.With("stream_id", streamID))
	if err := session.Start(setup); err != nil {
		_ = ch.Close()
		return nil, err
	}
	go ch.Pump(session)

	c.logger.Debug("stream opened", "path", path, "stream_id", streamID)
	return session, nil
}
