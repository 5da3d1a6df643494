// Package protocol implements the wire envelope codec for the Voxa
// realtime speech websocket. Every frame is a JSON object discriminated
// by its "type" field; audio payloads travel base64-encoded inside the
// envelope and surface here as raw bytes.
package protocol

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Envelope type tags.
const (
	TypeSetup       = "setup"
	TypeText        = "text"
	TypeAudio       = "audio"
	TypeReady       = "ready"
	TypeStep        = "step"
	TypeError       = "error"
	TypeEndOfStream = "end_of_stream"
)

// Message is one discriminated envelope exchanged over the duplex channel.
type Message interface {
	envelopeType() string
}

// AudioFormat describes a PCM or container format negotiated in setup.
type AudioFormat struct {
	Container  string `json:"container,omitempty"`
	Encoding   string `json:"encoding,omitempty"`
	SampleRate int    `json:"sample_rate,omitempty"`
}

// Setup is the first outbound envelope of a session. TTS sessions fill
// ModelID/Voice/OutputFormat, STT sessions fill Model/InputFormat.
type Setup struct {
	Type         string       `json:"type"`
	ModelID      string       `json:"model_id,omitempty"`
	Voice        string       `json:"voice,omitempty"`
	OutputFormat *AudioFormat `json:"output_format,omitempty"`
	Model        string       `json:"model,omitempty"`
	InputFormat  *AudioFormat `json:"input_format,omitempty"`
	Language     string       `json:"language,omitempty"`
}

func (Setup) envelopeType() string { return TypeSetup }

// Text carries a text fragment. Outbound for TTS input; inbound for STT
// results, where StartS is the fragment's start offset in seconds.
type Text struct {
	Type   string  `json:"type"`
	Text   string  `json:"text"`
	StartS float64 `json:"start_s,omitempty"`
}

func (Text) envelopeType() string { return TypeText }

// Audio carries one audio chunk in either direction.
type Audio struct {
	Type  string `json:"type"`
	Audio []byte `json:"audio"`
}

func (Audio) envelopeType() string { return TypeAudio }

// Ready is sent by the remote once the session is usable.
type Ready struct {
	Type       string   `json:"type"`
	RequestID  string   `json:"request_id"`
	SampleRate int      `json:"sample_rate,omitempty"`
	FrameSize  int      `json:"frame_size,omitempty"`
	Streams    []string `json:"streams,omitempty"`
}

func (Ready) envelopeType() string { return TypeReady }

// VADPrediction is one voice-activity horizon in a step envelope.
type VADPrediction struct {
	HorizonS       float64 `json:"horizon_s"`
	InactivityProb float64 `json:"inactivity_prob"`
}

// Step carries per-step analytics from STT sessions.
type Step struct {
	Type    string          `json:"type"`
	StepIdx int             `json:"step_idx"`
	VAD     []VADPrediction `json:"vad,omitempty"`
}

func (Step) envelopeType() string { return TypeStep }

// ErrorMessage is a remote error envelope; it terminates the session.
type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

func (ErrorMessage) envelopeType() string { return TypeError }

// EndOfStream marks the end of input (outbound) or output (inbound).
type EndOfStream struct {
	Type string `json:"type"`
}

func (EndOfStream) envelopeType() string { return TypeEndOfStream }

// DecodeError reports a malformed or unrecognized inbound frame.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode envelope: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("decode envelope: %s", e.Reason)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Encode serializes an envelope, stamping the type tag so callers never
// have to set it themselves. It does not fail for well-typed input.
func Encode(m Message) ([]byte, error) {
	switch v := m.(type) {
	case Setup:
		v.Type = TypeSetup
		return json.Marshal(v)
	case Text:
		v.Type = TypeText
		return json.Marshal(v)
	case Audio:
		v.Type = TypeAudio
		return json.Marshal(v)
	case Ready:
		v.Type = TypeReady
		return json.Marshal(v)
	case Step:
		v.Type = TypeStep
		return json.Marshal(v)
	case ErrorMessage:
		v.Type = TypeError
		return json.Marshal(v)
	case EndOfStream:
		v.Type = TypeEndOfStream
		return json.Marshal(v)
	default:
		return nil, fmt.Errorf("encode envelope: unsupported message %T", m)
	}
}

// Decode parses one envelope, dispatching on the type tag. Unrecognized
// tags and malformed payloads fail with a *DecodeError; no domain
// validation happens here.
func Decode(data []byte) (Message, error) {
	var tag struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return nil, &DecodeError{Reason: "malformed frame", Err: err}
	}
	typ := strings.TrimSpace(tag.Type)
	if typ == "" {
		return nil, &DecodeError{Reason: "frame missing type"}
	}

	switch typ {
	case TypeSetup:
		var m Setup
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, &DecodeError{Reason: "malformed setup", Err: err}
		}
		return m, nil
	case TypeText:
		var m Text
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, &DecodeError{Reason: "malformed text", Err: err}
		}
		return m, nil
	case TypeAudio:
		var m Audio
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, &DecodeError{Reason: "malformed audio", Err: err}
		}
		return m, nil
	case TypeReady:
		var m Ready
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, &DecodeError{Reason: "malformed ready", Err: err}
		}
		return m, nil
	case TypeStep:
		var m Step
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, &DecodeError{Reason: "malformed step", Err: err}
		}
		return m, nil
	case TypeError:
		var m ErrorMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, &DecodeError{Reason: "malformed error", Err: err}
		}
		return m, nil
	case TypeEndOfStream:
		return EndOfStream{Type: TypeEndOfStream}, nil
	default:
		return nil, &DecodeError{Reason: fmt.Sprintf("unrecognized type %q", typ)}
	}
}
