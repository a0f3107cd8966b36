package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tranvd/cinebook/internal/domain"
)

const testChecksumKey = "test-checksum-key"

func signedWebhookPayload(t *testing.T, data map[string]any) []byte {
	t.Helper()

	signed, err := canonicalize(mustMarshal(t, data))
	require.NoError(t, err)

	mac := hmac.New(sha256.New, []byte(testChecksumKey))
	mac.Write([]byte(signed))

	payload := map[string]any{
		"code":      "00",
		"desc":      "success",
		"success":   true,
		"data":      data,
		"signature": hex.EncodeToString(mac.Sum(nil)),
	}

	return mustMarshal(t, payload)
}

func mustMarshal(t *testing.T, v any) []byte {
	t.Helper()

	b, err := json.Marshal(v)
	require.NoError(t, err)

	return b
}

func newTestProvider(endpoint string) *PayOSProvider {
	return NewPayOSProvider(
		"client-id",
		"api-key",
		testChecksumKey,
		endpoint,
		"https://example.com/return",
		"https://example.com/cancel",
	)
}

func TestVerifySignature(t *testing.T) {
	provider := newTestProvider("")

	data := map[string]any{
		"orderCode":           int64(123456),
		"amount":              int64(260000),
		"description":         "CINEBOOK 123456",
		"reference":           "FT2501234",
		"transactionDateTime": "2025-06-01 20:15:00",
		"code":                "00",
		"desc":                "success",
	}

	t.Run("accepts a correctly signed payload", func(t *testing.T) {
		payload := signedWebhookPayload(t, data)

		assert.NoError(t, provider.VerifySignature(payload))
	})

	t.Run("rejects a payload whose data was tampered with", func(t *testing.T) {
		payload := signedWebhookPayload(t, data)

		var envelope map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(payload, &envelope))

		tampered := map[string]any{}
		for k, v := range data {
			tampered[k] = v
		}
		tampered["amount"] = int64(1)

		envelope["data"] = mustMarshal(t, tampered)

		err := provider.VerifySignature(mustMarshal(t, envelope))

		assert.ErrorIs(t, err, domain.ErrInvalidSignature)
	})

	t.Run("rejects a missing signature", func(t *testing.T) {
		payload := mustMarshal(t, map[string]any{"code": "00", "data": data})

		err := provider.VerifySignature(payload)

		assert.ErrorIs(t, err, domain.ErrInvalidSignature)
	})

	t.Run("rejects a non-hex signature", func(t *testing.T) {
		payload := mustMarshal(t, map[string]any{
			"code":      "00",
			"data":      data,
			"signature": "not-hex",
		})

		err := provider.VerifySignature(payload)

		assert.ErrorIs(t, err, domain.ErrInvalidSignature)
	})
}

func TestParseWebhook(t *testing.T) {
	provider := newTestProvider("")

	t.Run("parses a successful notification", func(t *testing.T) {
		payload := signedWebhookPayload(t, map[string]any{
			"orderCode":           int64(123456),
			"amount":              int64(260000),
			"reference":           "FT2501234",
			"transactionDateTime": "2025-06-01 20:15:00",
			"code":                "00",
		})

		event, err := provider.ParseWebhook(payload)

		require.NoError(t, err)
		assert.Equal(t, int64(123456), event.OrderCode)
		assert.True(t, event.Amount.Equal(decimal.NewFromInt(260000)))
		assert.True(t, event.Succeeded)
		assert.Equal(t, "FT2501234", event.TransactionID)
		assert.Equal(t, 2025, event.TransactionAt.Year())
	})

	t.Run("marks non-success codes as failed", func(t *testing.T) {
		payload := mustMarshal(t, map[string]any{
			"code":    "01",
			"success": false,
			"data": map[string]any{
				"orderCode": int64(123456),
				"amount":    int64(260000),
				"code":      "01",
			},
			"signature": "ignored-here",
		})

		event, err := provider.ParseWebhook(payload)

		require.NoError(t, err)
		assert.False(t, event.Succeeded)
		assert.False(t, event.Cancelled)
		assert.Equal(t, "01", event.Code)
	})

	t.Run("flags an abandoned checkout as cancelled", func(t *testing.T) {
		payload := mustMarshal(t, map[string]any{
			"code":    "02",
			"success": false,
			"data": map[string]any{
				"orderCode": int64(123456),
				"amount":    int64(260000),
				"code":      "02",
			},
			"signature": "ignored-here",
		})

		event, err := provider.ParseWebhook(payload)

		require.NoError(t, err)
		assert.False(t, event.Succeeded)
		assert.True(t, event.Cancelled)
	})

	t.Run("fails on a malformed transaction time", func(t *testing.T) {
		payload := mustMarshal(t, map[string]any{
			"code":    "00",
			"success": true,
			"data": map[string]any{
				"orderCode":           int64(1),
				"transactionDateTime": "01/06/2025",
			},
		})

		_, err := provider.ParseWebhook(payload)

		assert.Error(t, err)
	})
}

func TestInitiateCheckout(t *testing.T) {
	t.Run("returns the checkout session on success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v2/payment-requests", r.URL.Path)
			assert.Equal(t, "client-id", r.Header.Get("x-client-id"))
			assert.Equal(t, "api-key", r.Header.Get("x-api-key"))

			var body checkoutRequestBody
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, int64(987654), body.OrderCode)
			assert.Equal(t, int64(260000), body.Amount)
			assert.NotEmpty(t, body.Signature)

			fmt.Fprintf(w, `{
				"code": "00",
				"desc": "success",
				"data": {"orderCode": 987654, "checkoutUrl": "https://pay.example.com/987654"}
			}`)
		}))
		defer server.Close()

		provider := newTestProvider(server.URL)

		session, err := provider.InitiateCheckout(context.Background(), domain.CheckoutRequest{
			OrderCode:   987654,
			Amount:      decimal.NewFromInt(260000),
			Description: "CINEBOOK 987654",
			Items: []domain.CheckoutItem{
				{Name: "Seat A1", Quantity: 1, Price: decimal.NewFromInt(130000)},
				{Name: "Seat A2", Quantity: 1, Price: decimal.NewFromInt(130000)},
			},
		})

		require.NoError(t, err)
		assert.Equal(t, int64(987654), session.OrderCode)
		assert.Equal(t, "https://pay.example.com/987654", session.CheckoutURL)
	})

	t.Run("surfaces provider rejections", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"code": "429", "desc": "too many requests"}`)
		}))
		defer server.Close()

		provider := newTestProvider(server.URL)

		_, err := provider.InitiateCheckout(context.Background(), domain.CheckoutRequest{OrderCode: 1})

		assert.ErrorContains(t, err, "too many requests")
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		}))
		defer server.Close()

		provider := newTestProvider(server.URL)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := provider.InitiateCheckout(ctx, domain.CheckoutRequest{OrderCode: 1})

		assert.Error(t, err)
	})
}
