package llm

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"google.golang.org/genai"
)

func TestIsRateLimitError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"status code", errors.New("Error 429, Message: slow down"), true},
		{"resource exhausted", errors.New("rpc error: RESOURCE_EXHAUSTED"), true},
		{"quota", fmt.Errorf("failed to generate content: %w", errors.New("Quota exceeded for metric")), true},
		{"unrelated", errors.New("connection refused"), false},
		{"http status text", errors.New("unexpected status: 429 Too Many Requests"), true},
		{"429 inside a request id", errors.New("request req_84291a failed: connection reset"), false},
		{"429 as a byte count", errors.New("short read: got 429 of 1024 bytes"), false},
		{"genai too many requests", fmt.Errorf("failed to generate content: %w", genai.APIError{Code: 429, Message: "slow down"}), true},
		{"genai resource exhausted", genai.APIError{Code: 400, Status: "RESOURCE_EXHAUSTED"}, true},
		{"genai bad request", genai.APIError{Code: 400, Message: "model 4291 not found", Status: "INVALID_ARGUMENT"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRateLimitError(tt.err))
		})
	}
}

func TestRetryDelay(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want time.Duration
	}{
		{"nil", nil, 0},
		{"please retry in", errors.New("Error 429, Message: Please retry in 45.5s., Status: RESOURCE_EXHAUSTED"), 45500 * time.Millisecond},
		{"retryDelay field", errors.New(`details: [{"retryDelay": "12s"}]`), 12 * time.Second},
		{"no hint", errors.New("Error 429"), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RetryDelay(tt.err))
		})
	}
}
