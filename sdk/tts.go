package voxa

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/voxa-ai/voxa-go/pkg/core"
	"github.com/voxa-ai/voxa-go/pkg/core/protocol"
	"github.com/voxa-ai/voxa-go/pkg/core/stream"
)

const ttsStreamPath = "/v1/tts/stream"

// TTSService provides streaming text-to-speech.
type TTSService struct {
	client *Client
}

// TTSStreamRequest configures a TTS streaming session.
type TTSStreamRequest struct {
	ModelID  string
	Voice    string
	Language string

	// Format is the output container: "raw" (pcm_s16le), "wav" or "mp3".
	// Defaults to raw.
	Format     string
	SampleRate int
}

func (r *TTSStreamRequest) normalize() (*TTSStreamRequest, error) {
	out := *r
	out.ModelID = strings.TrimSpace(out.ModelID)
	if out.ModelID == "" {
		out.ModelID = "aria-2"
	}
	out.Voice = strings.TrimSpace(out.Voice)
	if out.Voice == "" {
		return nil, core.NewInvalidRequestError("voice is required")
	}
	if out.SampleRate == 0 {
		out.SampleRate = 24000
	}
	switch out.Format {
	case "", "raw", "pcm":
		out.Format = "raw"
	case "wav", "mp3":
	default:
		return nil, core.NewInvalidRequestError("output format must be raw, wav or mp3")
	}
	return &out, nil
}

func (r *TTSStreamRequest) outputFormat() *protocol.AudioFormat {
	f := &protocol.AudioFormat{
		Container:  r.Format,
		SampleRate: r.SampleRate,
	}
	if r.Format == "raw" || r.Format == "wav" {
		f.Encoding = "pcm_s16le"
	}
	return f
}

// TTSStream is a live synthesis session: text in, audio chunks out.
type TTSStream struct {
	session *stream.Session
}

// OpenStream opens a TTS websocket session and sends its setup envelope.
// Call AwaitReady on the returned stream before sending text.
func (s *TTSService) OpenStream(ctx context.Context, req *TTSStreamRequest) (*TTSStream, error) {
	if req == nil {
		return nil, core.NewInvalidRequestError("req must not be nil")
	}
	normalized, err := req.normalize()
	if err != nil {
		return nil, err
	}

	session, err := s.client.openStreamSession(ctx, ttsStreamPath, protocol.Setup{
		ModelID:      normalized.ModelID,
		Voice:        normalized.Voice,
		Language:     normalized.Language,
		OutputFormat: normalized.outputFormat(),
	})
	if err != nil {
		return nil, err
	}
	return &TTSStream{session: session}, nil
}

// AwaitReady blocks until the remote acknowledges the session.
func (t *TTSStream) AwaitReady(ctx context.Context) (stream.ReadyInfo, error) {
	return t.session.AwaitReady(ctx)
}

// SendText queues a text fragment for synthesis. Active sessions only.
func (t *TTSStream) SendText(text string) error {
	return t.session.SendText(text)
}

// SendEndOfStream signals that no more text is coming; the remote flushes
// remaining audio and then ends the stream.
func (t *TTSStream) SendEndOfStream() error {
	return t.session.SendEndOfStream()
}

// AudioChunks returns a fresh cursor over synthesized audio chunks,
// replaying from the start of the session.
func (t *TTSStream) AudioChunks() *stream.Cursor {
	return t.session.Messages(stream.AudioChunks)
}

// Messages returns a fresh cursor with a caller-chosen selector.
func (t *TTSStream) Messages(selector stream.Selector) *stream.Cursor {
	return t.session.Messages(selector)
}

// CollectAudio drains the session to completion and concatenates every
// audio chunk in arrival order.
func (t *TTSStream) CollectAudio(ctx context.Context) ([]byte, error) {
	return t.session.CollectAudio(ctx)
}

// RequestID returns the remote-assigned request id, empty until ready.
func (t *TTSStream) RequestID() string {
	return t.session.RequestID()
}

// Close closes the underlying websocket. Idempotent.
func (t *TTSStream) Close() error {
	return t.session.Close()
}

// Synthesize is the one-shot convenience: send all text, then collect all
// audio. Built purely on the stream's public contract.
func (s *TTSService) Synthesize(ctx context.Context, text string, req *TTSStreamRequest) ([]byte, error) {
	if req == nil {
		return nil, core.NewInvalidRequestError("req must not be nil")
	}
	ctx, span := s.client.startSpan(ctx, "voxa.tts.synthesize",
		attribute.String("voxa.model_id", req.ModelID),
		attribute.String("voxa.voice", req.Voice),
		attribute.Int("voxa.text_len", len(text)),
	)
	defer span.End()

	st, err := s.OpenStream(ctx, req)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	defer st.Close()

	if _, err := st.AwaitReady(ctx); err != nil {
		span.RecordError(err)
		return nil, err
	}
	if err := st.SendText(text); err != nil {
		span.RecordError(err)
		return nil, err
	}
	if err := st.SendEndOfStream(); err != nil {
		span.RecordError(err)
		return nil, err
	}
	audio, err := st.CollectAudio(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return audio, nil
}

// StreamText opens a session and feeds it from texts on a background
// goroutine, sending end_of_stream when the channel closes. The returned
// stream is live immediately, so the caller can iterate audio while text
// is still being fed.
func (s *TTSService) StreamText(ctx context.Context, texts <-chan string, req *TTSStreamRequest) (*TTSStream, error) {
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
			case text, ok := <-texts:
				if !ok {
					_ = st.SendEndOfStream()
					return
				}
				if err := st.SendText(text); err != nil {
					return
				}
			}
		}
	}()
	return st, nil
}
