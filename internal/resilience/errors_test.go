package resilience

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"syscall"
	"testing"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
)

// apiError builds an SDK error with the request and response its Error
// method dereferences.
func apiError(code int) *sdk.Error {
	return &sdk.Error{
		StatusCode: code,
		Request:    httptest.NewRequest(http.MethodPost, "https://api.anthropic.com/v1/messages", nil),
		Response:   &http.Response{StatusCode: code},
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"explicit", NewTransientError(errors.New("rate limited"), 429), true},
		{"wrapped explicit", fmt.Errorf("call: %w", NewTransientError(errors.New("x"), 503)), true},
		{"eris wrapped explicit", eris.Wrap(NewTransientError(errors.New("x"), 503), "verify: extract"), true},
		{"api overloaded", apiError(529), true},
		{"api rate limited", eris.Wrap(apiError(429), "anthropic: create message"), true},
		{"api bad request", apiError(400), false},
		{"api unauthorized", apiError(401), false},
		{"network timeout", &net.DNSError{IsTimeout: true, Err: "timeout"}, true},
		{"connection reset", fmt.Errorf("read: %w", syscall.ECONNRESET), true},
		{"connection refused", fmt.Errorf("dial: %w", syscall.ECONNREFUSED), true},
		{"broken pipe text", errors.New("write: broken pipe"), true},
		{"plain", errors.New("invalid input"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 409, 429, 500, 502, 503, 504, 529} {
		assert.True(t, IsTransientHTTPStatus(code), "%d", code)
	}
	for _, code := range []int{200, 400, 401, 403, 404, 413, 422} {
		assert.False(t, IsTransientHTTPStatus(code), "%d", code)
	}
}

func TestClassify(t *testing.T) {
	assert.Equal(t, ClassTransient, Classify(NewTransientError(errors.New("x"), 503)))
	assert.Equal(t, ClassPermanent, Classify(errors.New("schema violation")))
}

func TestTransientError_Unwrap(t *testing.T) {
	inner := errors.New("inner")
	te := NewTransientError(inner, 500)
	assert.Equal(t, "inner", te.Error())
	assert.ErrorIs(t, te, inner)
}
