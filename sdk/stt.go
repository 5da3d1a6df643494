package voxa

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/voxa-ai/voxa-go/pkg/core"
	"github.com/voxa-ai/voxa-go/pkg/core/protocol"
	"github.com/voxa-ai/voxa-go/pkg/core/stream"
)

const sttStreamPath = "/v1/stt/stream"

// fallbackChunkSize is used when the ready metadata does not advertise a
// frame size. ~128ms at 16kHz 16-bit mono.
const fallbackChunkSize = 4096

// STTService provides streaming speech-to-text.
type STTService struct {
	client *Client
}

// STTStreamRequest configures an STT streaming session.
type STTStreamRequest struct {
	Model    string
	Language string

	// Encoding of the audio the caller will send; pcm_s16le by default.
	Encoding   string
	SampleRate int
}

func (r *STTStreamRequest) normalize() *STTStreamRequest {
	out := *r
	out.Model = strings.TrimSpace(out.Model)
	if out.Model == "" {
		out.Model = "scribe-1"
	}
	if out.Encoding == "" {
		out.Encoding = "pcm_s16le"
	}
	if out.SampleRate == 0 {
		out.SampleRate = 16000
	}
	return &out
}

// STTStream is a live transcription session: audio in, text results (and
// per-step voice-activity analytics) out.
type STTStream struct {
	session *stream.Session
}

// OpenStream opens an STT websocket session and sends its setup envelope.
// Call AwaitReady on the returned stream before sending audio.
func (s *STTService) OpenStream(ctx context.Context, req *STTStreamRequest) (*STTStream, error) {
	if req == nil {
		return nil, core.NewInvalidRequestError("req must not be nil")
	}
	normalized := req.normalize()

	session, err := s.client.openStreamSession(ctx, sttStreamPath, protocol.Setup{
		Model:    normalized.Model,
		Language: normalized.Language,
		InputFormat: &protocol.AudioFormat{
			Encoding:   normalized.Encoding,
			SampleRate: normalized.SampleRate,
		},
	})
	if err != nil {
		return nil, err
	}
	return &STTStream{session: session}, nil
}

// AwaitReady blocks until the remote acknowledges the session; the
// returned metadata carries the negotiated sample rate and frame size.
func (t *STTStream) AwaitReady(ctx context.Context) (stream.ReadyInfo, error) {
	return t.session.AwaitReady(ctx)
}

// SendAudio queues one audio chunk for transcription. Active sessions only.
func (t *STTStream) SendAudio(chunk []byte) error {
	return t.session.SendAudio(chunk)
}

// SendEndOfStream signals that no more audio is coming; the remote flushes
// remaining transcripts and then ends the stream.
func (t *STTStream) SendEndOfStream() error {
	return t.session.SendEndOfStream()
}

// TextSegments returns a fresh cursor over transcript fragments, replaying
// from the start of the session.
func (t *STTStream) TextSegments() *stream.Cursor {
	return t.session.Messages(stream.TextSegments)
}

// Steps returns a fresh cursor over voice-activity analytics envelopes.
func (t *STTStream) Steps() *stream.Cursor {
	return t.session.Messages(stream.Steps)
}

// Messages returns a fresh cursor with a caller-chosen selector.
func (t *STTStream) Messages(selector stream.Selector) *stream.Cursor {
	return t.session.Messages(selector)
}

// CollectText drains the session to completion and joins every transcript
// fragment with single spaces in arrival order.
func (t *STTStream) CollectText(ctx context.Context) (string, error) {
	return t.session.CollectText(ctx)
}

// RequestID returns the remote-assigned request id, empty until ready.
func (t *STTStream) RequestID() string {
	return t.session.RequestID()
}

// Close closes the underlying websocket. Idempotent.
func (t *STTStream) Close() error {
	return t.session.Close()
}

// recommendedChunkSize derives the input slice size from the negotiated
// frame size (pcm_s16le, 2 bytes per sample).
func recommendedChunkSize(info stream.ReadyInfo) int {
	if info.FrameSize > 0 {
		return info.FrameSize * 2
	}
	return fallbackChunkSize
}

// Transcribe is the one-shot convenience: slice the audio by the
// negotiated frame size, send it all, then collect the transcript.
func (s *STTService) Transcribe(ctx context.Context, audio []byte, req *STTStreamRequest) (string, error) {
	if req == nil {
		return "", core.NewInvalidRequestError("req must not be nil")
	}
	ctx, span := s.client.startSpan(ctx, "voxa.stt.transcribe",
		attribute.String("voxa.model", req.Model),
		attribute.Int("voxa.audio_bytes", len(audio)),
	)
	defer span.End()

	st, err := s.OpenStream(ctx, req)
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	defer st.Close()

	info, err := st.AwaitReady(ctx)
	if err != nil {
		span.RecordError(err)
		return "", err
	}

	chunkSize := recommendedChunkSize(info)
	for off := 0; off < len(audio); off += chunkSize {
		end := off + chunkSize
		if end > len(audio) {
			end = len(audio)
		}
		if err := st.SendAudio(audio[off:end]); err != nil {
			span.RecordError(err)
			return "", err
		}
	}
	if err := st.SendEndOfStream(); err != nil {
		span.RecordError(err)
		return "", err
	}
	text, err := st.CollectText(ctx)
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	return text, nil
}

// StreamAudio opens a session and feeds it from chunks on a background
// goroutine, sending end_of_stream when the channel closes. The returned
// stream is live immediately, so the caller can iterate transcripts while
// audio is still being fed.
func (s *STTService) StreamAudio(ctx context.Context, chunks <-chan []byte, req *STTStreamRequest) (*STTStream, error) {
	if req == nil {
		return nil, core.NewInvalidRequestError("req must not be nil")
	}
	st, err := s.OpenStream(ctx, req)
	if err != nil {
		return nil, err
	}
	if _, err := st.AwaitReady(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case chunk, ok := <-chunks:
				if !ok {
					_ = st.SendEndOfStream()
					return
				}
				if err := st.SendAudio(chunk); err != nil {
					return
				}
			}
		}
	}()
	return st, nil
}
