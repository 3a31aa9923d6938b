package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"marketplace-checkout/models"
)

// Intent is the gateway-side record of an attempted charge.
type Intent struct {
	ID           string            `json:"id"`
	ClientSecret string            `json:"client_secret"`
	Status       string            `json:"status"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// PaymentMethod is a tokenized card.
type PaymentMethod struct {
	ID string `json:"id"`
}

type billingDetails struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
	Country string `json:"country"`
}

// Client talks to the card payment gateway. One instance is constructed at
// worker startup and injected into the payment activities; there is no
// package-level shared instance.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[[]byte]
}

// NewClient creates a gateway client with a request timeout and a circuit
// breaker around the wire calls.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		breaker: gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
			Name:     "payment-gateway",
			Interval: 60 * time.Second,
			Timeout:  30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
	}
}

// RetrieveIntent fetches the current status of a payment intent. Read-only and
// safe to call repeatedly; the orchestrator uses it as its idempotency probe
// before any confirmation attempt.
func (c *Client) RetrieveIntent(ctx context.Context, clientSecret string) (*Intent, error) {
	url := fmt.Sprintf("%s/v1/payment_intents/%s", c.baseURL, clientSecret)

	var intent Intent
	if err := c.call(ctx, http.MethodGet, url, nil, &intent); err != nil {
		return nil, err
	}
	return &intent, nil
}

// CreatePaymentMethod tokenizes card details with billing information taken
// from the shipping form.
func (c *Client) CreatePaymentMethod(ctx context.Context, card models.CardInput, billing models.ShippingInfo) (*PaymentMethod, error) {
	body := map[string]interface{}{
		"type": "card",
		"card": map[string]interface{}{
			"number":    card.Number,
			"exp_month": card.ExpMonth,
			"exp_year":  card.ExpYear,
			"cvc":       card.CVC,
		},
		"billing_details": billingDetails{
			Name:    billing.FullName,
			Email:   billing.Email,
			Phone:   billing.Phone,
			Address: billing.Address,
			City:    billing.City,
			State:   billing.State,
			Zip:     billing.Zip,
			Country: billing.Country,
		},
	}

	var pm PaymentMethod
	url := fmt.Sprintf("%s/v1/payment_methods", c.baseURL)
	if err := c.call(ctx, http.MethodPost, url, body, &pm); err != nil {
		return nil, err
	}
	return &pm, nil
}

// ConfirmIntent attempts to confirm a payment intent with a payment method.
// The caller must have checked the intent status first; confirming an already
// succeeded or canceled intent is a gateway error.
func (c *Client) ConfirmIntent(ctx context.Context, clientSecret, paymentMethodID string) (*Intent, error) {
	body := map[string]interface{}{
		"payment_method_id": paymentMethodID,
	}

	var intent Intent
	url := fmt.Sprintf("%s/v1/payment_intents/%s/confirm", c.baseURL, clientSecret)
	if err := c.call(ctx, http.MethodPost, url, body, &intent); err != nil {
		return nil, err
	}
	return &intent, nil
}

func (c *Client) call(ctx context.Context, method, url string, body interface{}, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal gateway request: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create gateway request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	respBody, err := c.breaker.Execute(func() ([]byte, error) {
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("gateway request failed: %w", err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read gateway response: %w", err)
		}

		if resp.StatusCode >= 400 {
			return nil, parseError(resp.StatusCode, data)
		}
		return data, nil
	})
	if err != nil {
		return err
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode gateway response: %w", err)
	}
	return nil
}
