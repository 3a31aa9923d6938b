package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace-checkout/models"
)

func TestRetrieveIntent(t *testing.T) {
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payment_intents/sec_1", r.URL.Path)
		assert.Equal(t, "GET", r.Method)
		assert.Equal(t, "Bearer sk_test_123", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(Intent{
			ID:           "pi_1",
			ClientSecret: "sec_1",
			Status:       "requires_payment_method",
			Metadata:     map[string]string{"order_id": "ORD-55"},
		})
	}))
	defer mockServer.Close()

	client := NewClient(mockServer.URL, "sk_test_123", 5*time.Second)

	intent, err := client.RetrieveIntent(context.Background(), "sec_1")
	require.NoError(t, err)
	assert.Equal(t, "pi_1", intent.ID)
	assert.Equal(t, "requires_payment_method", intent.Status)
	assert.Equal(t, "ORD-55", intent.Metadata["order_id"])
}

func TestCreatePaymentMethod_SendsBillingDetails(t *testing.T) {
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payment_methods", r.URL.Path)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		billing, ok := body["billing_details"].(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "Ada Buyer", billing["name"])
		assert.Equal(t, "US", billing["country"])

		json.NewEncoder(w).Encode(PaymentMethod{ID: "pm_1"})
	}))
	defer mockServer.Close()

	client := NewClient(mockServer.URL, "sk_test_123", 5*time.Second)

	pm, err := client.CreatePaymentMethod(context.Background(),
		models.CardInput{Number: "4242424242424242", ExpMonth: 12, ExpYear: 2030, CVC: "123"},
		models.ShippingInfo{FullName: "Ada Buyer", Email: "ada@example.com", Country: "US"},
	)
	require.NoError(t, err)
	assert.Equal(t, "pm_1", pm.ID)
}

func TestConfirmIntent_CardErrorIsTyped(t *testing.T) {
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusPaymentRequired)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error": map[string]interface{}{
				"type":         "card_error",
				"code":         "card_declined",
				"decline_code": "insufficient_funds",
				"message":      "Your card has insufficient funds.",
			},
		})
	}))
	defer mockServer.Close()

	client := NewClient(mockServer.URL, "sk_test_123", 5*time.Second)

	_, err := client.ConfirmIntent(context.Background(), "sec_1", "pm_1")
	require.Error(t, err)

	ge, ok := AsGatewayError(err)
	require.True(t, ok)
	assert.True(t, ge.IsCardError())
	assert.Equal(t, "insufficient_funds", ge.DeclineCode)
	assert.Equal(t, "Your card has insufficient funds.", ge.Message)
	assert.Equal(t, http.StatusPaymentRequired, ge.StatusCode)
}

func TestParseError_NonJSONBody(t *testing.T) {
	err := parseError(http.StatusBadGateway, []byte("Bad Gateway"))
	ge, ok := AsGatewayError(err)
	require.True(t, ok)
	assert.False(t, ge.IsCardError())
	assert.Contains(t, ge.Message, "status 502")
}

func TestCircuitBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	var hits int32
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"type":"api_error","message":"boom"}}`))
	}))
	defer mockServer.Close()

	client := NewClient(mockServer.URL, "sk_test_123", 5*time.Second)

	for i := 0; i < 5; i++ {
		_, err := client.RetrieveIntent(context.Background(), "sec_1")
		require.Error(t, err)
	}

	// Breaker is open now; the next call must fail fast without a request.
	_, err := client.RetrieveIntent(context.Background(), "sec_1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, gobreaker.ErrOpenState))
	assert.Equal(t, int32(5), atomic.LoadInt32(&hits))
}
