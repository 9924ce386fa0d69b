package paymentprovider

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/telehealth-storefront/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.PaymentProvider{APIURL: srv.URL, ShopID: "shop", SecretKey: "key"})
}

func TestClient_CreatePrice(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/prices", r.URL.Path)
		assert.Equal(t, "Basic "+base64.StdEncoding.EncodeToString([]byte("shop:key")), r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("Idempotence-Key"))

		var req CreatePriceRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "29.99", req.Amount.Value)
		assert.Equal(t, "month", req.Interval)
		assert.Equal(t, 3, req.IntervalCount)

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(Price{ID: "price_1", Active: true, Amount: req.Amount})
	})

	price, err := c.CreatePrice(context.Background(), CreatePriceRequest{
		Amount:        Amount{Value: "29.99", Currency: "USD"},
		Interval:      "month",
		IntervalCount: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, "price_1", price.ID)
}

func TestClient_ArchivePrice_Error(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/prices/price_1/archive", r.URL.Path)
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":"already archived"}`))
	})

	err := c.ArchivePrice(context.Background(), "price_1")
	require.Error(t, err)
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusConflict, statusErr.StatusCode)
	assert.Contains(t, statusErr.Body, "already archived")
}

func TestClient_CreateAndCancelSubscription(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/subscriptions":
			var req CreateSubscriptionRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "price_1", req.PriceID)
			assert.Equal(t, "sub-local", req.Metadata["subscription_id"])
			_ = json.NewEncoder(w).Encode(Subscription{ID: "psub_1", Status: "pending", ConfirmationURL: "https://pay/confirm"})
		case "/subscriptions/psub_1/cancel":
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	sub, err := c.CreateSubscription(context.Background(), CreateSubscriptionRequest{
		PriceID:  "price_1",
		Metadata: map[string]string{"subscription_id": "sub-local"},
	})
	require.NoError(t, err)
	assert.Equal(t, "psub_1", sub.ID)
	assert.Equal(t, "https://pay/confirm", sub.ConfirmationURL)

	require.NoError(t, c.CancelSubscription(context.Background(), "psub_1"))
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"event":"payment.succeeded"}`)
	sig := Sign("secret", body)

	tests := []struct {
		name      string
		secret    string
		body      []byte
		signature string
		want      bool
	}{
		{name: "valid", secret: "secret", body: body, signature: sig, want: true},
		{name: "wrong secret", secret: "other", body: body, signature: sig, want: false},
		{name: "tampered body", secret: "secret", body: []byte(`{}`), signature: sig, want: false},
		{name: "empty signature", secret: "secret", body: body, signature: "", want: false},
		{name: "empty secret", secret: "", body: body, signature: Sign("", body), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, VerifySignature(tt.secret, tt.body, tt.signature))
		})
	}
}
