package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/focusdiff/focusdiff/internal/pkg/env"
)

const (
	defaultQueueBaseURL = "https://queue.fal.run"
	defaultImageModel   = "fal-ai/flux/schnell"
	defaultVideoModel   = "fal-ai/stable-video"

	statusInQueue    = "IN_QUEUE"
	statusInProgress = "IN_PROGRESS"
	statusCompleted  = "COMPLETED"
)

// Client is the boundary to the hosted generation API. Implementations run
// one request to completion, feeding progress log lines to onLog as they
// arrive from the provider.
type Client interface {
	GenerateImage(ctx context.Context, input ImageInput, onLog func(string)) (*ImageOutput, error)
	GenerateVideo(ctx context.Context, input VideoInput, onLog func(string)) (*VideoOutput, error)
}

// QueueClient talks to a fal-style generation queue: submit a request, poll
// its status (collecting log lines), then fetch the terminal response.
type QueueClient struct {
	BaseURL    string
	APIKey     string
	ImageModel string
	VideoModel string

	PollInterval time.Duration
	HTTPClient   *http.Client
}

// NewQueueClientFromEnv builds a queue client from environment configuration.
func NewQueueClientFromEnv() *QueueClient {
	return &QueueClient{
		BaseURL:      strings.TrimRight(env.GetEnv("FAL_QUEUE_URL", defaultQueueBaseURL), "/"),
		APIKey:       strings.TrimSpace(env.GetEnv("FAL_KEY_SECRET", "")),
		ImageModel:   strings.TrimSpace(env.GetEnv("FAL_IMAGE_MODEL", defaultImageModel)),
		VideoModel:   strings.TrimSpace(env.GetEnv("FAL_VIDEO_MODEL", defaultVideoModel)),
		PollInterval: time.Second,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type queuedRequest struct {
	RequestID   string `json:"request_id"`
	StatusURL   string `json:"status_url"`
	ResponseURL string `json:"response_url"`
}

type queueStatus struct {
	Status string `json:"status"`
	Logs   []struct {
		Message string `json:"message"`
	} `json:"logs"`
	Error string `json:"error"`
}

func (c *QueueClient) GenerateImage(ctx context.Context, input ImageInput, onLog func(string)) (*ImageOutput, error) {
	qr, err := c.submit(ctx, c.ImageModel, input)
	if err != nil {
		return nil, err
	}
	if err := c.awaitCompletion(ctx, qr, onLog); err != nil {
		return nil, err
	}

	var out ImageOutput
	if err := c.fetchResponse(ctx, qr, &out); err != nil {
		return nil, err
	}
	if len(out.Images) == 0 || strings.TrimSpace(out.Images[0].URL) == "" {
		return nil, errors.New("generation response contained no image")
	}
	return &out, nil
}

func (c *QueueClient) GenerateVideo(ctx context.Context, input VideoInput, onLog func(string)) (*VideoOutput, error) {
	qr, err := c.submit(ctx, c.VideoModel, input)
	if err != nil {
		return nil, err
	}
	if err := c.awaitCompletion(ctx, qr, onLog); err != nil {
		return nil, err
	}

	var out VideoOutput
	if err := c.fetchResponse(ctx, qr, &out); err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.Video.URL) == "" {
		return nil, errors.New("generation response contained no video")
	}
	return &out, nil
}

// submit enqueues a request and returns the queue handle used for polling.
func (c *QueueClient) submit(ctx context.Context, model string, input interface{}) (*queuedRequest, error) {
	if strings.TrimSpace(c.APIKey) == "" {
		return nil, errors.New("FAL_KEY_SECRET is not configured")
	}
	if strings.TrimSpace(model) == "" {
		return nil, errors.New("generation model is not configured")
	}

	payload, err := json.Marshal(input)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/"+model, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Key "+c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("generation submit failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	var qr queuedRequest
	if err := json.Unmarshal(body, &qr); err != nil {
		return nil, err
	}
	if strings.TrimSpace(qr.RequestID) == "" {
		return nil, errors.New("generation submit returned no request id")
	}
	if qr.StatusURL == "" {
		qr.StatusURL = fmt.Sprintf("%s/%s/requests/%s/status", c.BaseURL, model, qr.RequestID)
	}
	if qr.ResponseURL == "" {
		qr.ResponseURL = fmt.Sprintf("%s/%s/requests/%s", c.BaseURL, model, qr.RequestID)
	}
	return &qr, nil
}

// awaitCompletion polls the status endpoint until the request completes,
// passing every arriving log line to onLog. Log lines carry no ordering
// guarantee beyond arrival order.
func (c *QueueClient) awaitCompletion(ctx context.Context, qr *queuedRequest, onLog func(string)) error {
	interval := c.PollInterval
	if interval <= 0 {
		interval = time.Second
	}

	for {
		st, err := c.pollStatus(ctx, qr)
		if err != nil {
			return err
		}
		if onLog != nil {
			for _, l := range st.Logs {
				onLog(l.Message)
			}
		}

		switch st.Status {
		case statusCompleted:
			return nil
		case statusInQueue, statusInProgress:
			// keep polling
		default:
			if st.Error != "" {
				return fmt.Errorf("generation failed: %s", st.Error)
			}
			return fmt.Errorf("generation ended in unexpected status %q", st.Status)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

func (c *QueueClient) pollStatus(ctx context.Context, qr *queuedRequest) (*queueStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, qr.StatusURL+"?logs=1", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Key "+c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("generation status poll failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	var st queueStatus
	if err := json.Unmarshal(body, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (c *QueueClient) fetchResponse(ctx context.Context, qr *queuedRequest, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, qr.ResponseURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Key "+c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("generation result fetch failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	return json.Unmarshal(body, out)
}
