// Package voxa provides the Voxa Go SDK: realtime streaming speech
// synthesis (TTS) and transcription (STT) over websocket sessions, plus
// the plain REST resources around them (voice catalog, credit balance).
package voxa

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/voxa-ai/voxa-go/pkg/core"
)

const (
	defaultBaseURL = "https://api.voxa.ai"

	voxaVersionHeader = "Voxa-Version"
	voxaVersionValue  = "2025-06-01"

	defaultConnectTimeout = 15 * time.Second
)

// Client is the main entry point for the SDK.
type Client struct {
	TTS     *TTSService
	STT     *STTService
	Voices  *VoicesService
	Account *AccountService

	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
	tracer     trace.Tracer
}

// NewClient creates a new client. The API key is read from VOXA_API_KEY
// unless WithAPIKey overrides it.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: defaultBaseURL,
		apiKey:  os.Getenv("VOXA_API_KEY"),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = newDefaultHTTPClient()
	}
	if c.tracer == nil {
		c.tracer = noop.NewTracerProvider().Tracer("voxa")
	}

	c.TTS = &TTSService{client: c}
	c.STT = &STTService{client: c}
	c.Voices = &VoicesService{client: c}
	c.Account = &AccountService{client: c}
	return c
}

func (c *Client) endpoint(path string) string {
	return strings.TrimRight(c.baseURL, "/") + path
}

// websocketEndpoint converts the configured base URL to a ws(s) URL for path.
func (c *Client) websocketEndpoint(path string) (string, error) {
	u, err := url.Parse(c.endpoint(path))
	if err != nil {
		return "", core.NewInvalidRequestError("invalid base URL")
	}
	switch strings.ToLower(strings.TrimSpace(u.Scheme)) {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
		// already a websocket scheme.
	default:
		return "", core.NewInvalidRequestError("base URL must use http(s) or ws(s)")
	}
	return u.String(), nil
}

func (c *Client) headers() http.Header {
	h := make(http.Header)
	h.Set(voxaVersionHeader, voxaVersionValue)
	if c.apiKey != "" {
		h.Set("Authorization", "Bearer "+c.apiKey)
	}
	return h
}

// doJSON performs one REST round trip with the uniform status->error
// mapping. out may be nil for responses without a useful body.
func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	for k, v := range c.headers() {
		req.Header[k] = v
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: method, URL: c.endpoint(path), Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: method, URL: c.endpoint(path), Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return core.ErrorFromResponse(resp, respBody)
	}
	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

func (c *Client) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return c.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}
