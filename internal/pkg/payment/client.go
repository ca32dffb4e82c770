package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/focusdiff/focusdiff/internal/pkg/env"
)

const (
	defaultAPIBase = "https://api.stripe.com/v1"

	// StatusSucceeded is the terminal intent status that releases credits.
	StatusSucceeded = "succeeded"
)

// ErrPaymentSetupFailed signals that the processor rejected or failed the
// intent creation. The caller maps it to a retryable user-facing error.
var ErrPaymentSetupFailed = errors.New("payment setup failed")

// Intent is the subset of a processor payment intent the app cares about.
type Intent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
}

// Client talks to a Stripe-compatible payments API using form-encoded
// requests and secret-key bearer auth.
type Client struct {
	APIBase   string
	SecretKey string

	HTTPClient *http.Client
}

// NewClientFromEnv builds a payment client from environment configuration.
func NewClientFromEnv() *Client {
	return &Client{
		APIBase:   strings.TrimRight(env.GetEnv("STRIPE_API_BASE", defaultAPIBase), "/"),
		SecretKey: strings.TrimSpace(env.GetEnv("STRIPE_SECRET_KEY", "")),
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// CreateIntent opens a card payment intent for the given whole-dollar amount.
// The processor expects minor units, so dollars are converted to cents here.
func (c *Client) CreateIntent(ctx context.Context, amountUSD int64) (*Intent, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(amountUSD*100, 10))
	form.Set("currency", "usd")
	form.Set("payment_method_types[]", "card")

	intent, err := c.do(ctx, http.MethodPost, "/payment_intents", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPaymentSetupFailed, err)
	}
	return intent, nil
}

// GetIntent re-reads an intent by id so the server can verify its status
// instead of trusting what the browser reports.
func (c *Client) GetIntent(ctx context.Context, intentID string) (*Intent, error) {
	if intentID == "" {
		return nil, fmt.Errorf("empty intent id")
	}
	return c.do(ctx, http.MethodGet, "/payment_intents/"+url.PathEscape(intentID), nil)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (*Intent, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.APIBase+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.SecretKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("payments request failed: status=%d body=%s", resp.StatusCode, string(raw))
	}

	var intent Intent
	if err := json.Unmarshal(raw, &intent); err != nil {
		return nil, fmt.Errorf("decode intent: %w", err)
	}
	if intent.ID == "" || intent.ClientSecret == "" {
		return nil, fmt.Errorf("processor returned incomplete intent")
	}
	return &intent, nil
}
