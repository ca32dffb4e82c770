package enhance

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(url string) *Client {
	return &Client{
		CompletionURL: url,
		APIKey:        "test-key",
		Model:         "gpt-4o-mini",
		MaxTokens:     5000,
		HTTPClient:    http.DefaultClient,
	}
}

func TestEnhanceReturnsTrimmedCompletion(t *testing.T) {
	var gotAuth string
	var gotReq chatRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"  a majestic cat, golden hour light, in 4K quality  "}}]}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	got := c.Enhance(context.Background(), "a cat")

	assert.Equal(t, "a majestic cat, golden hour light, in 4K quality", got)
	assert.Equal(t, "Bearer test-key", gotAuth)
	require.Len(t, gotReq.Messages, 2)
	assert.Equal(t, "system", gotReq.Messages[0].Role)
	assert.Contains(t, gotReq.Messages[1].Content, "a cat")
}

func TestEnhanceFallsBackOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"overloaded"}`, http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	assert.Equal(t, "a cat", c.Enhance(context.Background(), "a cat"))
}

func TestEnhanceFallsBackOnEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	assert.Equal(t, "sunset over water", c.Enhance(context.Background(), "sunset over water"))
}

func TestEnhanceFallsBackOnMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json at all`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	assert.Equal(t, "a cat", c.Enhance(context.Background(), "a cat"))
}

func TestEnhanceFallsBackWhenUnreachable(t *testing.T) {
	c := newTestClient("http://127.0.0.1:1")
	assert.Equal(t, "a cat", c.Enhance(context.Background(), "a cat"))
}
