package stream

import (
	"errors"
	"fmt"
)

// ErrSessionClosed is the terminal outcome of a session that was closed
// locally before the remote sent a terminal envelope. Kept distinct from
// both remote error envelopes and unclean transport closes.
var ErrSessionClosed = errors.New("stream: session closed before completion")

// ConnectionError reports a channel-level failure: a transport error or an
// unclean close, with the close code and reason when the transport had one.
type ConnectionError struct {
	Code   int
	Reason string
	Err    error
}

func (e *ConnectionError) Error() string {
	switch {
	case e.Code != 0 && e.Reason != "":
		return fmt.Sprintf("stream: connection closed (code %d): %s", e.Code, e.Reason)
	case e.Code != 0:
		return fmt.Sprintf("stream: connection closed (code %d)", e.Code)
	case e.Err != nil:
		return fmt.Sprintf("stream: connection failed: %v", e.Err)
	default:
		return "stream: connection closed"
	}
}

func (e *ConnectionError) Unwrap() error { return e.Err }
