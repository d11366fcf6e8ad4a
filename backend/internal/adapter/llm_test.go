package adapter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatServer(t *testing.T, failures int32, reply string) (*httptest.Server, *int32) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)

		var req openai.ChatCompletionRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		assert.Len(t, req.Messages, 2)

		if n <= failures {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`{"error":{"message":"upstream down"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			Model: req.Model,
			Choices: []openai.ChatCompletionChoice{{
				Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: reply},
			}},
		})
	}))
	return server, &calls
}

func TestLLMAdapter_Complete(t *testing.T) {
	server, calls := chatServer(t, 0, "  Machine learning builds models from data.\n")
	defer server.Close()

	a := NewLLMAdapter(server.URL+"/", "", "test-model")
	out, err := a.Complete(context.Background(), "system", "user")
	require.NoError(t, err)

	assert.Equal(t, "Machine learning builds models from data.", out)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestLLMAdapter_CompleteRetries(t *testing.T) {
	server, calls := chatServer(t, 2, "ok")
	defer server.Close()

	a := NewLLMAdapter(server.URL, "key", "test-model")
	a.backoff = time.Millisecond

	out, err := a.Complete(context.Background(), "system", "user")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, int32(3), atomic.LoadInt32(calls))
}

func TestLLMAdapter_CompleteGivesUp(t *testing.T) {
	server, calls := chatServer(t, 10, "never")
	defer server.Close()

	a := NewLLMAdapter(server.URL, "key", "test-model")
	a.backoff = time.Millisecond

	_, err := a.Complete(context.Background(), "system", "user")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Equal(t, int32(maxRetries), atomic.LoadInt32(calls))
}

// TestLLMAdapter_CompleteLive requires a running LiteLLM instance
func TestLLMAdapter_CompleteLive(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	a := NewLLMAdapter("http://localhost:4000", "", "openrouter/anthropic/claude-3.5-sonnet")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out, err := a.Complete(ctx, "You are a helpful assistant.", "Say hello in one sentence.")
	if err != nil {
		t.Skipf("LiteLLM not available: %v", err)
	}
	assert.NotEmpty(t, out)
}
