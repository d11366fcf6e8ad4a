package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsErrorType_FollowsWrapping(t *testing.T) {
	err := fmt.Errorf("collect: %w", NewFetchFailed("https://example.com", 503, stderrors.New("boom")))

	assert.True(t, IsErrorType(err, ErrorTypeSearch))
	assert.False(t, IsErrorType(err, ErrorTypeStore))
	assert.True(t, IsErrorType(ErrNoSources, ErrorTypeResearch))
	assert.False(t, IsErrorType(nil, ErrorTypeResearch))

	joined := fmt.Errorf("%w: %w", ErrNoSources, NewFetchFailed("https://example.com", 404, nil))
	assert.True(t, IsErrorType(joined, ErrorTypeResearch))
	assert.True(t, IsErrorType(joined, ErrorTypeSearch))
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"no sources", ErrNoSources, true},
		{"no concepts", fmt.Errorf("cycle: %w", ErrNoConcepts), true},
		{"fetch 404", NewFetchFailed("https://example.com/x", 404, nil), false},
		{"no sources after 404", fmt.Errorf("%w: %w", ErrNoSources, NewFetchFailed("https://example.com/x", 404, nil)), true},
		{"fetch 429", NewFetchFailed("https://example.com/x", 429, nil), true},
		{"fetch transport", NewFetchFailed("https://example.com/x", 0, stderrors.New("reset")), true},
		{"timeout", NewContextTimeout("search", time.Second, nil), true},
		{"config", NewConfigValidationFailed("PORT", "bad"), false},
		{"plain", stderrors.New("plain"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestBaseError_Message(t *testing.T) {
	inner := stderrors.New("disk full")
	err := NewStoreSaveFailed("file", inner)

	assert.Equal(t, "[store] failed to save graph to file: disk full", err.Error())
	assert.ErrorIs(t, err, inner)
}
