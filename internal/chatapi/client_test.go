package chatapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"school-chatbot/internal/models"
)

func newClient(t *testing.T, url string, retries int) *Client {
	t.Helper()
	c, err := NewClient(Config{
		Provider:   "groq",
		BaseURL:    url,
		APIKey:     "key",
		ModelName:  "llama",
		MaxRetries: retries,
		RetryDelay: time.Millisecond,
		Headers:    map[string]string{"X-Title": "School Chatbot"},
	}, zap.NewNop())
	require.NoError(t, err)
	return c
}

func TestGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		assert.Equal(t, "School Chatbot", r.Header.Get("X-Title"))

		var body chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Messages, 2)
		assert.Equal(t, "system", body.Messages[0].Role)
		assert.Equal(t, "User (student): tips?", body.Messages[1].Content)

		_, _ = w.Write([]byte(`{"id":"1","choices":[{"message":{"role":"assistant","content":"Study daily."}}]}`))
	}))
	defer srv.Close()

	out, err := newClient(t, srv.URL, 1).Generate(context.Background(), models.GenerationRequest{Role: models.RoleStudent, Prompt: "tips?"})
	require.NoError(t, err)
	assert.Equal(t, "Study daily.", out)
}

func TestGenerateRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()

	out, err := newClient(t, srv.URL, 3).Generate(context.Background(), models.GenerationRequest{Role: models.RoleParent, Prompt: "x"})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGenerateGivesUp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":{"message":"invalid model"}}`))
	}))
	defer srv.Close()

	_, err := newClient(t, srv.URL, 2).Generate(context.Background(), models.GenerationRequest{Role: models.RoleParent, Prompt: "x"})
	assert.ErrorContains(t, err, "failed after 2 attempts")
	assert.ErrorContains(t, err, "invalid model")
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient(Config{Provider: "openrouter", BaseURL: "http://x"}, zap.NewNop())
	assert.ErrorContains(t, err, "openrouter API key is required")
}
