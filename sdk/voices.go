package voxa

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/voxa-ai/voxa-go/pkg/core"
)

// VoicesService manages the voice catalog.
type VoicesService struct {
	client *Client
}

// Voice is one catalog entry.
type Voice struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Language    string    `json:"language,omitempty"`
	IsPublic    bool      `json:"is_public,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

// VoiceCreateRequest creates a custom voice.
type VoiceCreateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Language    string `json:"language,omitempty"`
	// Embedding is the voice embedding produced by the cloning endpoint.
	Embedding []float64 `json:"embedding,omitempty"`
}

// VoiceUpdateRequest updates mutable voice fields.
type VoiceUpdateRequest struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
}

type voiceListResponse struct {
	Voices []Voice `json:"voices"`
}

// List returns the voices visible to the caller.
func (s *VoicesService) List(ctx context.Context) ([]Voice, error) {
	var out voiceListResponse
	if err := s.client.doJSON(ctx, http.MethodGet, "/v1/voices", nil, &out); err != nil {
		return nil, err
	}
	return out.Voices, nil
}

// Get fetches one voice by id.
func (s *VoicesService) Get(ctx context.Context, id string) (*Voice, error) {
	if id == "" {
		return nil, core.NewInvalidRequestError("voice id is required")
	}
	var out Voice
	if err := s.client.doJSON(ctx, http.MethodGet, "/v1/voices/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Create adds a voice to the catalog.
func (s *VoicesService) Create(ctx context.Context, req *VoiceCreateRequest) (*Voice, error) {
	if req == nil {
		return nil, core.NewInvalidRequestError("req must not be nil")
	}
	var out Voice
	if err := s.client.doJSON(ctx, http.MethodPost, "/v1/voices", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Update modifies a voice.
func (s *VoicesService) Update(ctx context.Context, id string, req *VoiceUpdateRequest) (*Voice, error) {
	if id == "" {
		return nil, core.NewInvalidRequestError("voice id is required")
	}
	if req == nil {
		return nil, core.NewInvalidRequestError("req must not be nil")
	}
	var out Voice
	if err := s.client.doJSON(ctx, http.MethodPatch, "/v1/voices/"+url.PathEscape(id), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes a voice.
func (s *VoicesService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return core.NewInvalidRequestError("voice id is required")
	}
	return s.client.doJSON(ctx, http.MethodDelete, "/v1/voices/"+url.PathEscape(id), nil, nil)
}
