package stream

import (
	"bytes"
	"context"
	"strings"

	"github.com/voxa-ai/voxa-go/pkg/core/protocol"
)

// Selector chooses which message subtype a cursor consumes.
type Selector func(protocol.Message) bool

// AudioChunks selects inbound audio chunk envelopes.
func AudioChunks(m protocol.Message) bool {
	_, ok := m.(protocol.Audio)
	return ok
}

// TextSegments selects inbound text result envelopes.
func TextSegments(m protocol.Message) bool {
	_, ok := m.(protocol.Text)
	return ok
}

// Steps selects inbound analytics step envelopes.
func Steps(m protocol.Message) bool {
	_, ok := m.(protocol.Step)
	return ok
}

// NonReady selects every envelope except ready, preserving global arrival
// order across subtypes.
func NonReady(m protocol.Message) bool {
	_, ok := m.(protocol.Ready)
	return !ok
}

// Cursor is an independent read position over the session's append-only
// buffer. Each Messages call creates its own cursor starting at the
// beginning, so multiple consumers can replay the same history; arrival
// order within the selection is preserved exactly.
type Cursor struct {
	session  *Session
	selector Selector
	next     int
	current  protocol.Message
	err      error
}

// Messages returns a fresh cursor over messages matching selector
// (NonReady when nil).
func (s *Session) Messages(selector Selector) *Cursor {
	if selector == nil {
		selector = NonReady
	}
	return &Cursor{session: s, selector: selector}
}

// Next advances to the next matching message, blocking until one is
// appended, the session reaches a terminal state, or ctx is done. It
// returns false at a clean end; Err distinguishes failure from completion.
func (c *Cursor) Next(ctx context.Context) bool {
	if c.err != nil {
		return false
	}
	s := c.session
	for {
		s.mu.Lock()
		for c.next < len(s.msgs) {
			m := s.msgs[c.next]
			c.next++
			if c.selector(m) {
				s.mu.Unlock()
				c.current = m
				return true
			}
		}
		switch s.phase {
		case PhaseFailed:
			c.err = s.err
			s.mu.Unlock()
			return false
		case PhaseEnded:
			s.mu.Unlock()
			return false
		}
		wait := s.notify
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			c.err = ctx.Err()
			return false
		case <-wait:
		}
	}
}

// Message returns the message the last successful Next advanced to.
func (c *Cursor) Message() protocol.Message { return c.current }

// Err returns the error that ended iteration, nil after a clean end.
func (c *Cursor) Err() error { return c.err }

// CollectAudio drains audio chunks to the terminal state and concatenates
// them in arrival order.
func (s *Session) CollectAudio(ctx context.Context) ([]byte, error) {
	cur := s.Messages(AudioChunks)
	var buf bytes.Buffer
	for cur.Next(ctx) {
		if a, ok := cur.Message().(protocol.Audio); ok {
			buf.Write(a.Audio)
		}
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// CollectText drains text results to the terminal state and joins the
// fragments with single spaces in arrival order.
func (s *Session) CollectText(ctx context.Context) (string, error) {
	cur := s.Messages(TextSegments)
	var parts []string
	for cur.Next(ctx) {
		if t, ok := cur.Message().(protocol.Text); ok {
			parts = append(parts, t.Text)
		}
	}
	if err := cur.Err(); err != nil {
		return "", err
	}
	return strings.Join(parts, " "), nil
}
