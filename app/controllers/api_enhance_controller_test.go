package controllers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/focusdiff/focusdiff/internal/pkg/enhance"
)

func newEnhanceTestApp(t *testing.T, upstream http.HandlerFunc) *fiber.App {
	t.Helper()

	srv := httptest.NewServer(upstream)
	t.Cleanup(srv.Close)

	// Pre-seed the package singleton so the handler talks to the test server.
	enhanceClient = &enhance.Client{
		CompletionURL: srv.URL,
		APIKey:        "test-key",
		Model:         "test-model",
		MaxTokens:     100,
		HTTPClient:    &http.Client{Timeout: 5 * time.Second},
	}
	t.Cleanup(func() { enhanceClient = nil })

	app := fiber.New()
	app.Post("/api/v1/enhance", HandleEnhancePrompt)
	return app
}

func TestHandleEnhancePromptReturnsEnhancedPromptKey(t *testing.T) {
	app := newEnhanceTestApp(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"choices":[{"message":{"content":" a fox in golden hour light "}}]}`)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/enhance", strings.NewReader(`{"prompt":"a fox"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "a fox in golden hour light", body["enhanced_prompt"])
}

func TestHandleEnhancePromptRejectsEmptyPrompt(t *testing.T) {
	app := newEnhanceTestApp(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("upstream must not be called for an empty prompt")
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/enhance", strings.NewReader(`{"prompt":"  "}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
