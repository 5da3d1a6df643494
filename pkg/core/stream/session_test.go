package stream

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/voxa-ai/voxa-go/pkg/core"
	"github.com/voxa-ai/voxa-go/pkg/core/protocol"
)

type fakeChannel struct {
	mu     sync.Mutex
	sent   [][]byte
	closed int
}

func (f *fakeChannel) Send(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, append([]byte(nil), data...))
	return nil
}

func (f *fakeChannel) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

func (f *fakeChannel) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func newStartedSession(t *testing.T) (*Session, *fakeChannel) {
	t.Helper()
	ch := &fakeChannel{}
	s := New(ch, nil)
	if err := s.Start(protocol.Setup{ModelID: "aria-2", Voice: "nova"}); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got := s.Phase(); got != PhaseAwaitingReady {
		t.Fatalf("phase=%s, want awaiting_ready", got)
	}
	return s, ch
}

func deliver(t *testing.T, s *Session, frames ...string) {
	t.Helper()
	for _, frame := range frames {
		if err := s.HandleMessage([]byte(frame)); err != nil {
			// Terminal frames (error envelopes) report themselves; that is
			// expected in tests that deliver them.
			var apiErr *core.Error
			if !errors.As(err, &apiErr) {
				t.Fatalf("HandleMessage(%s): %v", frame, err)
			}
		}
	}
}

func TestAwaitReady_ReturnsReadyMetadata(t *testing.T) {
	t.Parallel()
	s, _ := newStartedSession(t)

	deliver(t, s, `{"type":"ready","request_id":"req-123","sample_rate":24000,"frame_size":1920}`)

	info, err := s.AwaitReady(testContext(t))
	if err != nil {
		t.Fatalf("AwaitReady: %v", err)
	}
	if info.RequestID != "req-123" {
		t.Fatalf("request_id=%q, want req-123", info.RequestID)
	}
	if info.SampleRate != 24000 || info.FrameSize != 1920 {
		t.Fatalf("metadata=%+v", info)
	}
	if got := s.Phase(); got != PhaseActive {
		t.Fatalf("phase=%s, want active", got)
	}
}

func TestAwaitReady_BroadcastsToConcurrentWaiters(t *testing.T) {
	t.Parallel()
	s, _ := newStartedSession(t)
	ctx := testContext(t)

	const waiters = 8
	results := make(chan string, waiters)
	var started sync.WaitGroup
	started.Add(waiters)
	for i := 0; i < waiters; i++ {
		go func() {
			started.Done()
			info, err := s.AwaitReady(ctx)
			if err != nil {
				results <- "err:" + err.Error()
				return
			}
			results <- info.RequestID
		}()
	}
	started.Wait()

	deliver(t, s, `{"type":"ready","request_id":"req-broadcast"}`)

	for i := 0; i < waiters; i++ {
		if got := <-results; got != "req-broadcast" {
			t.Fatalf("waiter %d got %q", i, got)
		}
	}

	// A waiter arriving after resolution observes the same value.
	info, err := s.AwaitReady(ctx)
	if err != nil || info.RequestID != "req-broadcast" {
		t.Fatalf("late waiter: info=%+v err=%v", info, err)
	}
}

func TestSendBeforeReady_FailsLocally(t *testing.T) {
	t.Parallel()
	s, ch := newStartedSession(t)
	before := ch.sentCount()

	err := s.SendText("too early")
	if err == nil {
		t.Fatalf("expected local not-active error")
	}
	var apiErr *core.Error
	if !errors.As(err, &apiErr) || apiErr.Type != core.ErrInvalidRequest {
		t.Fatalf("err=%v, want invalid_request_error", err)
	}
	if got := ch.sentCount(); got != before {
		t.Fatalf("%d frames reached the channel, want %d", got, before)
	}
}

func TestSendAfterReady_WritesEnvelope(t *testing.T) {
	t.Parallel()
	s, ch := newStartedSession(t)
	deliver(t, s, `{"type":"ready","request_id":"r"}`)

	if err := s.SendText("hello"); err != nil {
		t.Fatalf("SendText: %v", err)
	}
	if err := s.SendEndOfStream(); err != nil {
		t.Fatalf("SendEndOfStream: %v", err)
	}

	// setup + text + end_of_stream
	if got := ch.sentCount(); got != 3 {
		t.Fatalf("sent %d frames, want 3", got)
	}
	msg, err := protocol.Decode(ch.sent[1])
	if err != nil {
		t.Fatalf("decode sent frame: %v", err)
	}
	text, ok := msg.(protocol.Text)
	if !ok || text.Text != "hello" {
		t.Fatalf("sent frame=%#v", msg)
	}
	// Sending end_of_stream does not change the local phase.
	if got := s.Phase(); got != PhaseActive {
		t.Fatalf("phase=%s, want active", got)
	}
}

func TestCollectAudio_ConcatenatesInArrivalOrder(t *testing.T) {
	t.Parallel()
	s, _ := newStartedSession(t)
	deliver(t, s,
		`{"type":"ready","request_id":"r"}`,
		`{"type":"audio","audio":"AQID"}`, // [1 2 3]
		`{"type":"audio","audio":"BAUG"}`, // [4 5 6]
		`{"type":"end_of_stream"}`,
	)

	audio, err := s.CollectAudio(testContext(t))
	if err != nil {
		t.Fatalf("CollectAudio: %v", err)
	}
	if !bytes.Equal(audio, []byte{1, 2, 3, 4, 5, 6}) {
		t.Fatalf("audio=%v", audio)
	}
}

func TestCollectText_JoinsWithSpaces(t *testing.T) {
	t.Parallel()
	s, _ := newStartedSession(t)
	deliver(t, s,
		`{"type":"ready","request_id":"r","sample_rate":24000,"frame_size":1920}`,
		`{"type":"text","text":"Hello","start_s":0.0}`,
		`{"type":"text","text":"world","start_s":0.5}`,
		`{"type":"end_of_stream"}`,
	)

	text, err := s.CollectText(testContext(t))
	if err != nil {
		t.Fatalf("CollectText: %v", err)
	}
	if text != "Hello world" {
		t.Fatalf("text=%q, want %q", text, "Hello world")
	}
}

func TestErrorBeforeReady_FailsAllConsumers(t *testing.T) {
	t.Parallel()
	s, _ := newStartedSession(t)
	ctx := testContext(t)

	// One waiter suspended before the error arrives.
	pending := make(chan error, 1)
	go func() {
		_, err := s.AwaitReady(ctx)
		pending <- err
	}()

	deliver(t, s, `{"type":"error","message":"Voice not found","code":404}`)

	assertRemoteError := func(err error) {
		t.Helper()
		var apiErr *core.Error
		if !errors.As(err, &apiErr) {
			t.Fatalf("err=%v, want *core.Error", err)
		}
		if apiErr.Message != "Voice not found" || apiErr.Code != 404 {
			t.Fatalf("err=%+v", apiErr)
		}
	}

	assertRemoteError(<-pending)

	// Waiters arriving after the failure observe the same error.
	_, err := s.AwaitReady(ctx)
	assertRemoteError(err)
	_, err = s.CollectAudio(ctx)
	assertRemoteError(err)
	_, err = s.CollectText(ctx)
	assertRemoteError(err)
}

func TestReadyThenError_FailsLateConsumers(t *testing.T) {
	t.Parallel()
	s, _ := newStartedSession(t)
	deliver(t, s,
		`{"type":"ready","request_id":"r"}`,
		`{"type":"audio","audio":"AQID"}`,
		`{"type":"error","message":"model overloaded","code":503}`,
	)

	// Ready resolved before the error, so AwaitReady still succeeds.
	info, err := s.AwaitReady(testContext(t))
	if err != nil || info.RequestID != "r" {
		t.Fatalf("AwaitReady after ready-then-error: info=%+v err=%v", info, err)
	}

	_, err = s.CollectAudio(testContext(t))
	var apiErr *core.Error
	if !errors.As(err, &apiErr) || apiErr.Code != 503 {
		t.Fatalf("CollectAudio err=%v, want code 503", err)
	}
}

func TestCursor_ReplaysHistoryIndependently(t *testing.T) {
	t.Parallel()
	s, _ := newStartedSession(t)
	deliver(t, s,
		`{"type":"ready","request_id":"r"}`,
		`{"type":"audio","audio":"AQ=="}`,
		`{"type":"text","text":"one"}`,
		`{"type":"audio","audio":"Ag=="}`,
		`{"type":"end_of_stream"}`,
	)
	ctx := testContext(t)

	// Two cursors over the same subtype both see the full history.
	for i := 0; i < 2; i++ {
		cur := s.Messages(AudioChunks)
		var got []byte
		for cur.Next(ctx) {
			got = append(got, cur.Message().(protocol.Audio).Audio...)
		}
		if cur.Err() != nil {
			t.Fatalf("cursor %d err: %v", i, cur.Err())
		}
		if !bytes.Equal(got, []byte{1, 2}) {
			t.Fatalf("cursor %d got %v", i, got)
		}
	}

	// The nil selector walks everything but ready, in global arrival order.
	cur := s.Messages(nil)
	var order []string
	for cur.Next(ctx) {
		switch cur.Message().(type) {
		case protocol.Audio:
			order = append(order, "audio")
		case protocol.Text:
			order = append(order, "text")
		case protocol.EndOfStream:
			order = append(order, "end_of_stream")
		}
	}
	want := []string{"audio", "text", "audio", "end_of_stream"}
	if len(order) != len(want) {
		t.Fatalf("order=%v", order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order=%v, want %v", order, want)
		}
	}
}

func TestCursor_WakesOnAppend(t *testing.T) {
	t.Parallel()
	s, _ := newStartedSession(t)
	deliver(t, s, `{"type":"ready","request_id":"r"}`)
	ctx := testContext(t)

	got := make(chan []byte, 1)
	go func() {
		audio, err := s.CollectAudio(ctx)
		if err != nil {
			got <- nil
			return
		}
		got <- audio
	}()

	time.Sleep(10 * time.Millisecond)
	deliver(t, s,
		`{"type":"audio","audio":"AQID"}`,
		`{"type":"end_of_stream"}`,
	)

	if audio := <-got; !bytes.Equal(audio, []byte{1, 2, 3}) {
		t.Fatalf("audio=%v", audio)
	}
}

func TestDecodeFailure_TerminatesSession(t *testing.T) {
	t.Parallel()
	s, _ := newStartedSession(t)

	if err := s.HandleMessage([]byte(`{"type":"telepathy"}`)); err == nil {
		t.Fatalf("expected decode error")
	}

	_, err := s.AwaitReady(testContext(t))
	var decodeErr *protocol.DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("AwaitReady err=%v, want *protocol.DecodeError", err)
	}
	if got := s.Phase(); got != PhaseFailed {
		t.Fatalf("phase=%s, want failed", got)
	}
}

func TestClose_Idempotent(t *testing.T) {
	t.Parallel()
	s, ch := newStartedSession(t)

	if err := s.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if ch.closed != 1 {
		t.Fatalf("channel closed %d times, want 1", ch.closed)
	}
}

func TestLocalClose_UnblocksWaitersWithSessionClosed(t *testing.T) {
	t.Parallel()
	s, _ := newStartedSession(t)
	deliver(t, s, `{"type":"ready","request_id":"r"}`)
	ctx := testContext(t)

	collected := make(chan error, 1)
	go func() {
		_, err := s.CollectAudio(ctx)
		collected <- err
	}()

	time.Sleep(10 * time.Millisecond)
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	// The channel reports closure after the local close request.
	s.HandleClose(1000, "", nil)

	if err := <-collected; !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("err=%v, want ErrSessionClosed", err)
	}
}

func TestUncleanClose_FailsWithConnectionError(t *testing.T) {
	t.Parallel()
	s, _ := newStartedSession(t)

	s.HandleClose(1006, "peer vanished", errors.New("read: connection reset"))

	_, err := s.AwaitReady(testContext(t))
	var connErr *ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("err=%v, want *ConnectionError", err)
	}
	if connErr.Code != 1006 || connErr.Reason != "peer vanished" {
		t.Fatalf("connErr=%+v", connErr)
	}
}

func TestCloseAfterCleanEnd_KeepsEndedState(t *testing.T) {
	t.Parallel()
	s, _ := newStartedSession(t)
	deliver(t, s,
		`{"type":"ready","request_id":"r"}`,
		`{"type":"end_of_stream"}`,
	)

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	s.HandleClose(1000, "", nil)

	if got := s.Phase(); got != PhaseEnded {
		t.Fatalf("phase=%s, want ended", got)
	}
	if err := s.Err(); err != nil {
		t.Fatalf("Err()=%v, want nil after clean end", err)
	}
}

func TestRequestID_SetOnce(t *testing.T) {
	t.Parallel()
	s, _ := newStartedSession(t)
	deliver(t, s,
		`{"type":"ready","request_id":"first"}`,
		`{"type":"ready","request_id":"second"}`,
	)
	if got := s.RequestID(); got != "first" {
		t.Fatalf("request_id=%q, want first", got)
	}
}

func TestStepCursor_YieldsAnalytics(t *testing.T) {
	t.Parallel()
	s, _ := newStartedSession(t)
	deliver(t, s,
		`{"type":"ready","request_id":"r"}`,
		`{"type":"step","step_idx":0,"vad":[{"horizon_s":0.5,"inactivity_prob":0.1}]}`,
		`{"type":"text","text":"hi"}`,
		`{"type":"step","step_idx":1,"vad":[{"horizon_s":0.5,"inactivity_prob":0.9}]}`,
		`{"type":"end_of_stream"}`,
	)

	cur := s.Messages(Steps)
	var idxs []int
	ctx := testContext(t)
	for cur.Next(ctx) {
		idxs = append(idxs, cur.Message().(protocol.Step).StepIdx)
	}
	if cur.Err() != nil {
		t.Fatalf("cursor err: %v", cur.Err())
	}
	if len(idxs) != 2 || idxs[0] != 0 || idxs[1] != 1 {
		t.Fatalf("step idxs=%v", idxs)
	}
}
