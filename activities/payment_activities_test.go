package activities

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/testsuite"

	"marketplace-checkout/gateway"
	"marketplace-checkout/models"
)

func newPaymentActivities(t *testing.T, handler http.HandlerFunc) (*PaymentActivities, *httptest.Server) {
	t.Helper()
	mockServer := httptest.NewServer(handler)
	gw := gateway.NewClient(mockServer.URL, "sk_test_123", 5*time.Second)
	return NewPaymentActivities(gw), mockServer
}

func writeIntent(w http.ResponseWriter, status string, metadata map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"id":            "pi_1",
		"client_secret": "sec_1",
		"status":        status,
		"metadata":      metadata,
	})
}

func writeGatewayError(w http.ResponseWriter, httpStatus int, errType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]interface{}{
			"type":    errType,
			"code":    "card_declined",
			"message": message,
		},
	})
}

func TestRetrievePaymentIntentStatus(t *testing.T) {
	tests := []struct {
		name          string
		mockHandler   func(w http.ResponseWriter, r *http.Request)
		wantStatus    string
		wantErr       bool
		errorContains string
	}{
		{
			name: "Success - Succeeded With Metadata",
			mockHandler: func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/v1/payment_intents/sec_1", r.URL.Path)
				assert.Equal(t, "Bearer sk_test_123", r.Header.Get("Authorization"))
				writeIntent(w, "succeeded", map[string]string{"order_id": "ORD-42"})
			},
			wantStatus: "succeeded",
		},
		{
			name: "Success - Requires Action",
			mockHandler: func(w http.ResponseWriter, r *http.Request) {
				writeIntent(w, "requires_action", nil)
			},
			wantStatus: "requires_action",
		},
		{
			name: "Failure - Gateway Error",
			mockHandler: func(w http.ResponseWriter, r *http.Request) {
				writeGatewayError(w, http.StatusInternalServerError, "api_error", "internal gateway error")
			},
			wantErr:       true,
			errorContains: "internal gateway error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testSuite := &testsuite.WorkflowTestSuite{}
			env := testSuite.NewTestActivityEnvironment()

			payAct, mockServer := newPaymentActivities(t, tt.mockHandler)
			defer mockServer.Close()
			env.RegisterActivity(payAct.RetrievePaymentIntentStatus)

			value, err := env.ExecuteActivity(payAct.RetrievePaymentIntentStatus, "sec_1")

			if tt.wantErr {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorContains)
				return
			}

			require.NoError(t, err)
			var result models.PaymentStatusResult
			require.NoError(t, value.Get(&result))
			assert.Equal(t, tt.wantStatus, result.Status)
			assert.False(t, result.Declined)
		})
	}
}

func TestCreatePaymentMethod(t *testing.T) {
	card := models.CardInput{Number: "4242424242424242", ExpMonth: 12, ExpYear: 2030, CVC: "123"}
	billing := models.ShippingInfo{FullName: "Ada Buyer", Email: "ada@example.com", Country: "US"}

	t.Run("Success", func(t *testing.T) {
		testSuite := &testsuite.WorkflowTestSuite{}
		env := testSuite.NewTestActivityEnvironment()

		payAct, mockServer := newPaymentActivities(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/payment_methods", r.URL.Path)
			assert.Equal(t, "POST", r.Method)

			var body map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "card", body["type"])

			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]string{"id": "pm_1"})
		})
		defer mockServer.Close()
		env.RegisterActivity(payAct.CreatePaymentMethod)

		value, err := env.ExecuteActivity(payAct.CreatePaymentMethod, models.PaymentMethodRequest{Card: card, Billing: billing})
		require.NoError(t, err)

		var result models.PaymentMethodResult
		require.NoError(t, value.Get(&result))
		assert.Equal(t, "pm_1", result.PaymentMethodID)
		assert.False(t, result.Declined)
	})

	t.Run("Card Error Becomes Declined Result", func(t *testing.T) {
		testSuite := &testsuite.WorkflowTestSuite{}
		env := testSuite.NewTestActivityEnvironment()

		payAct, mockServer := newPaymentActivities(t, func(w http.ResponseWriter, r *http.Request) {
			writeGatewayError(w, http.StatusPaymentRequired, "card_error", "Your card number is invalid.")
		})
		defer mockServer.Close()
		env.RegisterActivity(payAct.CreatePaymentMethod)

		value, err := env.ExecuteActivity(payAct.CreatePaymentMethod, models.PaymentMethodRequest{Card: card, Billing: billing})
		require.NoError(t, err)

		var result models.PaymentMethodResult
		require.NoError(t, value.Get(&result))
		assert.True(t, result.Declined)
		assert.Equal(t, "Your card number is invalid.", result.Message)
		assert.Empty(t, result.PaymentMethodID)
	})

	t.Run("Transport Error Is Activity Error", func(t *testing.T) {
		testSuite := &testsuite.WorkflowTestSuite{}
		env := testSuite.NewTestActivityEnvironment()

		payAct, mockServer := newPaymentActivities(t, func(w http.ResponseWriter, r *http.Request) {
			writeGatewayError(w, http.StatusBadGateway, "api_error", "upstream unavailable")
		})
		defer mockServer.Close()
		env.RegisterActivity(payAct.CreatePaymentMethod)

		_, err := env.ExecuteActivity(payAct.CreatePaymentMethod, models.PaymentMethodRequest{Card: card, Billing: billing})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "upstream unavailable")
	})
}

func TestConfirmPayment(t *testing.T) {
	tests := []struct {
		name         string
		mockHandler  func(w http.ResponseWriter, r *http.Request)
		wantStatus   string
		wantDeclined bool
		wantMessage  string
		wantErr      bool
	}{
		{
			name: "Success - Succeeded",
			mockHandler: func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/v1/payment_intents/sec_1/confirm", r.URL.Path)
				var body map[string]string
				require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				assert.Equal(t, "pm_1", body["payment_method_id"])
				writeIntent(w, "succeeded", map[string]string{"order_id": "ORD-42"})
			},
			wantStatus: "succeeded",
		},
		{
			name: "Success - Requires Action",
			mockHandler: func(w http.ResponseWriter, r *http.Request) {
				writeIntent(w, "requires_action", nil)
			},
			wantStatus: "requires_action",
		},
		{
			name: "Decline Becomes Result",
			mockHandler: func(w http.ResponseWriter, r *http.Request) {
				writeGatewayError(w, http.StatusPaymentRequired, "card_error", "Your card was declined.")
			},
			wantStatus:   "failed",
			wantDeclined: true,
			wantMessage:  "Your card was declined.",
		},
		{
			name: "Transport Error Is Activity Error",
			mockHandler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
				w.Write([]byte("Bad Gateway"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testSuite := &testsuite.WorkflowTestSuite{}
			env := testSuite.NewTestActivityEnvironment()

			payAct, mockServer := newPaymentActivities(t, tt.mockHandler)
			defer mockServer.Close()
			env.RegisterActivity(payAct.ConfirmPayment)

			value, err := env.ExecuteActivity(payAct.ConfirmPayment, models.ConfirmRequest{
				ClientSecret:    "sec_1",
				PaymentMethodID: "pm_1",
			})

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			var result models.PaymentStatusResult
			require.NoError(t, value.Get(&result))
			assert.Equal(t, tt.wantStatus, result.Status)
			assert.Equal(t, tt.wantDeclined, result.Declined)
			if tt.wantMessage != "" {
				assert.Equal(t, tt.wantMessage, result.Message)
			}
		})
	}
}
