package core

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func responseWithStatus(status int, headers map[string]string) *http.Response {
	h := http.Header{}
	for k, v := range headers {
		h.Set(k, v)
	}
	return &http.Response{StatusCode: status, Header: h}
}

func TestErrorFromResponse_StatusMapping(t *testing.T) {
	cases := []struct {
		name     string
		status   int
		body     string
		wantType ErrorType
		wantMsg  string
	}{
		{"unauthorized", 401, `{"message":"invalid api key"}`, ErrAuthentication, "invalid api key"},
		{"forbidden", 403, `{"message":"plan does not allow this"}`, ErrPermission, "plan does not allow this"},
		{"not found", 404, `{"message":"Voice not found"}`, ErrNotFound, "Voice not found"},
		{"server error", 500, `{"error":"internal"}`, ErrAPI, "internal"},
		{"bad gateway", 502, ``, ErrAPI, "Bad Gateway"},
		{"other", 400, `{"message":"bad setup"}`, ErrInvalidRequest, "bad setup"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := ErrorFromResponse(responseWithStatus(tc.status, nil), []byte(tc.body))
			assert.Equal(t, tc.wantType, e.Type)
			assert.Equal(t, tc.wantMsg, e.Message)
			assert.Equal(t, tc.status, e.Code)
		})
	}
}

func TestErrorFromResponse_ValidationDetails(t *testing.T) {
	body := `{"message":"validation failed","detail":[{"loc":["voice","speed"],"msg":"must be between 0.6 and 1.5","type":"value_error"}]}`
	e := ErrorFromResponse(responseWithStatus(422, nil), []byte(body))
	require.Equal(t, ErrValidation, e.Type)
	require.Len(t, e.Details, 1)
	assert.Equal(t, []string{"voice", "speed"}, e.Details[0].Loc)
	assert.Equal(t, "must be between 0.6 and 1.5", e.Details[0].Message)
}

func TestErrorFromResponse_RateLimitRetryAfter(t *testing.T) {
	e := ErrorFromResponse(responseWithStatus(429, map[string]string{"Retry-After": "12"}), []byte(`{"message":"slow down"}`))
	require.Equal(t, ErrRateLimit, e.Type)
	require.NotNil(t, e.RetryAfter)
	assert.Equal(t, 12, *e.RetryAfter)
}

func TestErrorString(t *testing.T) {
	assert.Equal(t, "api_error: boom (code: 404)", NewRemoteError("boom", 404).Error())
	assert.Equal(t, "invalid_request_error: missing voice", NewInvalidRequestError("missing voice").Error())
}
