package payment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateIntentSendsMinorUnits(t *testing.T) {
	var gotForm map[string]string
	var gotAuth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/payment_intents", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, r.ParseForm())
		gotForm = map[string]string{
			"amount":                 r.PostForm.Get("amount"),
			"currency":               r.PostForm.Get("currency"),
			"payment_method_types[]": r.PostForm.Get("payment_method_types[]"),
		}
		_, _ = w.Write([]byte(`{"id":"pi_123","client_secret":"pi_123_secret","status":"requires_payment_method","amount":2000,"currency":"usd"}`))
	}))
	defer srv.Close()

	c := &Client{APIBase: srv.URL, SecretKey: "sk_test", HTTPClient: http.DefaultClient}
	intent, err := c.CreateIntent(context.Background(), 20)
	require.NoError(t, err)

	assert.Equal(t, "pi_123", intent.ID)
	assert.Equal(t, "pi_123_secret", intent.ClientSecret)
	assert.Equal(t, "Bearer sk_test", gotAuth)
	assert.Equal(t, "2000", gotForm["amount"])
	assert.Equal(t, "usd", gotForm["currency"])
	assert.Equal(t, "card", gotForm["payment_method_types[]"])
}

func TestCreateIntentWrapsProcessorRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"invalid key"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := &Client{APIBase: srv.URL, SecretKey: "sk_bad", HTTPClient: http.DefaultClient}
	_, err := c.CreateIntent(context.Background(), 20)
	assert.ErrorIs(t, err, ErrPaymentSetupFailed)
}

func TestGetIntentReadsStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/payment_intents/pi_123", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":"pi_123","client_secret":"pi_123_secret","status":"succeeded","amount":2000,"currency":"usd"}`))
	}))
	defer srv.Close()

	c := &Client{APIBase: srv.URL, SecretKey: "sk_test", HTTPClient: http.DefaultClient}
	intent, err := c.GetIntent(context.Background(), "pi_123")
	require.NoError(t, err)
	assert.Equal(t, StatusSucceeded, intent.Status)
}

func TestGetIntentRejectsEmptyID(t *testing.T) {
	c := &Client{APIBase: "http://unused", SecretKey: "sk_test", HTTPClient: http.DefaultClient}
	_, err := c.GetIntent(context.Background(), "")
	assert.Error(t, err)
}

func TestIncompleteIntentBodyIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"succeeded"}`))
	}))
	defer srv.Close()

	c := &Client{APIBase: srv.URL, SecretKey: "sk_test", HTTPClient: http.DefaultClient}
	_, err := c.GetIntent(context.Background(), "pi_123")
	assert.Error(t, err)
}
