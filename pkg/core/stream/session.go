// Package stream implements the duplex streaming session engine shared by
// the TTS and STT surfaces: one state machine multiplexing asynchronous
// inbound envelopes against synchronous caller operations, with replayable
// multi-consumer iteration over everything received.
package stream

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/voxa-ai/voxa-go/pkg/core"
	"github.com/voxa-ai/voxa-go/pkg/core/protocol"
)

// Phase is the session lifecycle state. Transitions are monotonic:
// Connecting -> AwaitingReady -> Active -> {Ended, Failed}, except that an
// error at any point jumps straight to Failed. Terminal phases never change.
type Phase int

const (
	PhaseConnecting Phase = iota
	PhaseAwaitingReady
	PhaseActive
	PhaseEnded
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseConnecting:
		return "connecting"
	case PhaseAwaitingReady:
		return "awaiting_ready"
	case PhaseActive:
		return "active"
	case PhaseEnded:
		return "ended"
	case PhaseFailed:
		return "failed"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Terminal reports whether no further phase transitions can occur.
func (p Phase) Terminal() bool { return p == PhaseEnded || p == PhaseFailed }

// Channel is the capability set the session needs from its transport. The
// owner of the connection pumps inbound frames into HandleMessage and
// reports closure via HandleClose; the session only ever writes and closes.
type Channel interface {
	Send(data []byte) error
	Close() error
}

// ReadyInfo is the remote-assigned metadata from the ready envelope.
type ReadyInfo struct {
	RequestID  string
	SampleRate int
	FrameSize  int
	Streams    []string
}

// Session is one logical streaming exchange over a duplex channel.
//
// All mutable state (phase, buffer, terminal error) is written only under
// mu by the inbound handlers; every other operation reads it or walks the
// append-only buffer through its own cursor. notify is closed and replaced
// on every mutation so waiters wake exactly when something changed.
type Session struct {
	ch     Channel
	logger *slog.Logger

	mu         sync.Mutex
	notify     chan struct{}
	phase      Phase
	ready      ReadyInfo
	readySet   bool
	msgs       []protocol.Message
	err        error
	localClose bool
}

// New creates a session around a freshly opened channel. The session starts
// in Connecting; Start moves it to AwaitingReady once setup is written.
func New(ch Channel, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		ch:     ch,
		logger: logger,
		notify: make(chan struct{}),
		phase:  PhaseConnecting,
	}
}

// Start writes the setup envelope exactly once and moves the session to
// AwaitingReady. Factories call this as soon as the channel reports open.
func (s *Session) Start(setup protocol.Setup) error {
	data, err := protocol.Encode(setup)
	if err != nil {
		return err
	}
	if err := s.ch.Send(data); err != nil {
		s.fail(&ConnectionError{Err: err})
		return &ConnectionError{Err: err}
	}
	s.mu.Lock()
	if s.phase == PhaseConnecting {
		s.phase = PhaseAwaitingReady
		s.broadcastLocked()
	}
	s.mu.Unlock()
	return nil
}

// Phase returns the current lifecycle phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// RequestID returns the remote-assigned request id, empty until ready.
func (s *Session) RequestID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready.RequestID
}

// HandleMessage decodes and applies one inbound frame. It is the single
// writer of session state. A returned error means the session has reached a
// terminal state because of this frame and the pump should stop reading.
func (s *Session) HandleMessage(data []byte) error {
	msg, err := protocol.Decode(data)
	if err != nil {
		s.fail(err)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase.Terminal() {
		return nil
	}

	s.msgs = append(s.msgs, msg)
	switch m := msg.(type) {
	case protocol.Ready:
		if !s.readySet {
			s.ready = ReadyInfo{
				RequestID:  m.RequestID,
				SampleRate: m.SampleRate,
				FrameSize:  m.FrameSize,
				Streams:    m.Streams,
			}
			s.readySet = true
		}
		s.phase = PhaseActive
	case protocol.ErrorMessage:
		s.phase = PhaseFailed
		s.err = core.NewRemoteError(m.Message, m.Code)
	case protocol.EndOfStream:
		s.phase = PhaseEnded
	}
	s.broadcastLocked()
	if s.phase == PhaseFailed {
		return s.err
	}
	return nil
}

// HandleClose records that the channel closed. A close that arrives before
// a terminal envelope fails the session: with ErrSessionClosed when the
// close was requested locally, otherwise with a ConnectionError carrying
// the transport's close code and reason.
func (s *Session) HandleClose(code int, reason string, cause error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase.Terminal() {
		return
	}
	if s.localClose {
		s.err = ErrSessionClosed
	} else {
		s.err = &ConnectionError{Code: code, Reason: reason, Err: cause}
	}
	s.phase = PhaseFailed
	s.broadcastLocked()
}

// AwaitReady blocks until the remote sends ready, returning its metadata.
// Every concurrent caller observes the same resolution. If the session
// fails first (or already has), the terminal error is returned instead.
func (s *Session) AwaitReady(ctx context.Context) (ReadyInfo, error) {
	for {
		s.mu.Lock()
		if s.readySet {
			info := s.ready
			s.mu.Unlock()
			return info, nil
		}
		switch s.phase {
		case PhaseFailed:
			err := s.err
			s.mu.Unlock()
			return ReadyInfo{}, err
		case PhaseEnded:
			s.mu.Unlock()
			return ReadyInfo{}, core.NewAPIError("stream ended before ready")
		}
		wait := s.notify
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return ReadyInfo{}, ctx.Err()
		case <-wait:
		}
	}
}

// SendText writes a text input envelope. Fire-and-forget; Active phase only.
func (s *Session) SendText(text string) error {
	return s.send(protocol.Text{Text: text})
}

// SendAudio writes an audio input envelope. Fire-and-forget; Active only.
func (s *Session) SendAudio(chunk []byte) error {
	return s.send(protocol.Audio{Audio: chunk})
}

// SendEndOfStream tells the remote no more input is coming. The local phase
// does not change; the remote may still be flushing buffered output and
// confirms with its own end_of_stream.
func (s *Session) SendEndOfStream() error {
	return s.send(protocol.EndOfStream{})
}

func (s *Session) send(msg protocol.Message) error {
	s.mu.Lock()
	phase := s.phase
	s.mu.Unlock()
	if phase != PhaseActive {
		return core.NewInvalidRequestError(fmt.Sprintf("session is not active (phase %s)", phase))
	}
	data, err := protocol.Encode(msg)
	if err != nil {
		return err
	}
	if err := s.ch.Send(data); err != nil {
		return &ConnectionError{Err: err}
	}
	return nil
}

// Close requests the channel to close. Idempotent. Waiters are resolved
// once the channel reports closure, not by this call itself.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.localClose {
		s.mu.Unlock()
		return nil
	}
	s.localClose = true
	s.mu.Unlock()
	return s.ch.Close()
}

// Err returns the terminal error, nil before failure or after a clean end.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Session) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase.Terminal() {
		return
	}
	s.phase = PhaseFailed
	s.err = err
	s.broadcastLocked()
}

// broadcastLocked wakes everything waiting on session state. Callers hold mu.
func (s *Session) broadcastLocked() {
	close(s.notify)
	s.notify = make(chan struct{})
}
