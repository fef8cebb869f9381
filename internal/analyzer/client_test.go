package analyzer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompleteParsesResponse(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"model": "gpt-4o-mini",
			"choices": [{"message": {"content": "{\"overallScore\": 55}"}}],
			"usage": {"prompt_tokens": 900, "completion_tokens": 600, "total_tokens": 1500}
		}`))
	}))
	t.Cleanup(srv.Close)

	c := NewClient(ClientConfig{APIKey: "test-key", BaseURL: srv.URL})
	resp, err := c.Complete(context.Background(), ChatRequest{Model: "gpt-4o-mini", User: "analyze"})
	require.NoError(t, err)
	require.Equal(t, "gpt-4o-mini", resp.Model)
	require.Contains(t, resp.Content, "overallScore")
	require.Equal(t, 1500, resp.Usage.TotalTokens)
}

func TestCompleteDoesNotRetryUpstreamFailures(t *testing.T) {
	t.Parallel()

	// Redeliveries belong to the external queue; a transient upstream
	// failure must surface after exactly one call.
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"message": "rate limited"}}`))
	}))
	t.Cleanup(srv.Close)

	c := NewClient(ClientConfig{APIKey: "test-key", BaseURL: srv.URL})
	_, err := c.Complete(context.Background(), ChatRequest{Model: "gpt-4o-mini", User: "analyze"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "status 429")
	require.Equal(t, int32(1), calls.Load())
}

func TestCompleteRequiresAPIKeyAndModel(t *testing.T) {
	t.Parallel()

	c := NewClient(ClientConfig{})
	_, err := c.Complete(context.Background(), ChatRequest{Model: "gpt-4o-mini"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "llm.api_key")

	c = NewClient(ClientConfig{APIKey: "k"})
	_, err = c.Complete(context.Background(), ChatRequest{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "model is required")
}
