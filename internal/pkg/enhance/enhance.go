package enhance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/focusdiff/focusdiff/internal/pkg/env"
)

const (
	defaultCompletionURL = "https://api.openai.com/v1/chat/completions"
	defaultModel         = "gpt-4o-mini"
	defaultMaxTokens     = 5000
)

// systemPrompt is the fixed instruction template sent with every request.
const systemPrompt = `You are an expert ai image prompt writer. Your task is to take a user's prompt and improve it to a more detailed one for better results.

A well-crafted prompt typically includes the following components:

1. Subject: The main focus of the image.
2. Style: The artistic approach or visual aesthetic (if illustration or anime always use famous illustrator or artist style as reference. For anime, always use Ghibli and Makoto Shinkai).
3. Composition: How elements are arranged within the frame.
4. Lighting: The type and quality of light in the scene.
5. Color Palette: The dominant colors or color scheme.
6. Mood/Atmosphere: The emotional tone or ambiance of the image.
7. Technical Details: Camera settings, perspective, or specific visual techniques.
8. Additional Elements: Supporting details or background information.
9. Always add keywords: in 4K quality, best artist, best quality, no compression

If the user already provided some of the components, preserve them and enhance them, but never overwrite them. If the components are missing from user's prompt, you can be creative. Aim to expand the prompt to around 50-75 words, but prioritize quality over length. Your enhanced version should inspire more imaginative and higher-quality image generations. Provide only the enhanced prompt back, nothing else. Do not explain your prompt nor converse with the user`

// Client is a stateless bridge to an OpenAI-compatible chat completions
// endpoint. Enhancement is free and never gates the caller: any failure or
// malformed response degrades to returning the raw prompt unchanged.
type Client struct {
	CompletionURL string
	APIKey        string
	Model         string
	MaxTokens     int

	HTTPClient *http.Client
}

// NewClientFromEnv builds an enhancement client from environment configuration.
func NewClientFromEnv() *Client {
	return &Client{
		CompletionURL: strings.TrimSpace(env.GetEnv("OPENAI_COMPLETION_URL", defaultCompletionURL)),
		APIKey:        strings.TrimSpace(env.GetEnv("OPENAI_API_KEY", "")),
		Model:         strings.TrimSpace(env.GetEnv("OPENAI_MODEL", defaultModel)),
		MaxTokens:     defaultMaxTokens,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Enhance returns an expanded version of prompt, or the prompt unchanged
// when the completion endpoint fails or returns nothing usable.
func (c *Client) Enhance(ctx context.Context, prompt string) string {
	enhanced, err := c.complete(ctx, prompt)
	if err != nil {
		log.Warnf("[Enhance] falling back to raw prompt: %v", err)
		return prompt
	}
	if enhanced == "" {
		return prompt
	}
	return enhanced
}

func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(chatRequest{
		Model: c.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: fmt.Sprintf("Enhance this image generation prompt: %q", prompt)},
		},
		MaxTokens: c.MaxTokens,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.CompletionURL, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("completion request failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	var out chatResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}
