package generation

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
)

func newTestQueueClient(url string) *QueueClient {
	return &QueueClient{
		BaseURL:      url,
		APIKey:       "test-key",
		ImageModel:   "acme/text-to-image",
		VideoModel:   "acme/image-to-video",
		PollInterval: time.Millisecond,
		HTTPClient:   &http.Client{Timeout: 5 * time.Second},
	}
}

func TestGenerateImageHappyPath(t *testing.T) {
	var polls int32
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/acme/text-to-image", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "Key test-key", r.Header.Get("Authorization"))

		var in ImageInput
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "a fox", in.Prompt)
		assert.Equal(t, 1, in.NumImages)

		json.NewEncoder(w).Encode(map[string]string{
			"request_id":   "req-1",
			"status_url":   srv.URL + "/acme/text-to-image/requests/req-1/status",
			"response_url": srv.URL + "/acme/text-to-image/requests/req-1",
		})
	})
	mux.HandleFunc("/acme/text-to-image/requests/req-1/status", func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&polls, 1) == 1 {
			json.NewEncoder(w).Encode(map[string]interface{}{
				"status": "IN_PROGRESS",
				"logs":   []map[string]string{{"message": "denoising"}},
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "COMPLETED",
			"logs":   []map[string]string{{"message": "done"}},
		})
	})
	mux.HandleFunc("/acme/text-to-image/requests/req-1", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"images": []map[string]interface{}{{"url": "https://cdn.example/out.png", "width": 1024, "height": 768}},
		})
	})

	c := newTestQueueClient(srv.URL)
	var logs []string
	out, err := c.GenerateImage(context.Background(), ImageInput{Prompt: "a fox", NumImages: 1}, func(l string) {
		logs = append(logs, l)
	})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/out.png", out.Images[0].URL)
	assert.Contains(t, logs, "denoising")
	assert.Contains(t, logs, "done")
}

func TestGenerateImageSubmitRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"invalid prompt"}`, http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	c := newTestQueueClient(srv.URL)
	_, err := c.GenerateImage(context.Background(), ImageInput{Prompt: ""}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid prompt")
}

func TestGenerateVideoFailureStatusSurfacesMessage(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/acme/image-to-video", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"request_id": "req-9",
			"status_url": srv.URL + "/acme/image-to-video/requests/req-9/status",
		})
	})
	mux.HandleFunc("/acme/image-to-video/requests/req-9/status", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "FAILED",
			"error":  "safety checker rejected the frame",
		})
	})

	c := newTestQueueClient(srv.URL)
	_, err := c.GenerateVideo(context.Background(), VideoInput{ImageURL: "https://cdn.example/in.png"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "safety checker rejected the frame")
}

func TestGenerateImageEmptyResultIsAnError(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/acme/text-to-image", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"request_id":   "req-2",
			"status_url":   srv.URL + "/s",
			"response_url": srv.URL + "/r",
		})
	})
	mux.HandleFunc("/s", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "COMPLETED"})
	})
	mux.HandleFunc("/r", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"images": []interface{}{}})
	})

	c := newTestQueueClient(srv.URL)
	_, err := c.GenerateImage(context.Background(), ImageInput{Prompt: "a fox"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no image")
}

func TestGenerateImageHonorsContextCancellation(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/acme/text-to-image", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"request_id": "req-3",
			"status_url": srv.URL + "/stuck",
		})
	})
	mux.HandleFunc("/stuck", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "IN_QUEUE"})
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	c := newTestQueueClient(srv.URL)
	c.PollInterval = 10 * time.Millisecond
	_, err := c.GenerateImage(ctx, ImageInput{Prompt: "a fox"}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
