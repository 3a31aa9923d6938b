package activities

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"marketplace-checkout/models"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
)

// ErrMissingClientSecret marks a 2xx intent-creation response without a client
// secret: the order exists but the gateway side is misconfigured. Non-retryable
// at the activity level; the buyer retries from the shipping step.
var ErrMissingClientSecret = errors.New("order intent created without client secret")

// CreateOrderWithPaymentIntent creates a pending order plus a payment intent
// and returns the gateway client secret. Executed at most once per checkout
// attempt; the workflow never calls it again for the same intent.
func (a *Activities) CreateOrderWithPaymentIntent(ctx context.Context, req models.OrderIntentRequest) (models.OrderIntent, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Creating order with payment intent", "checkout_id", req.CheckoutID, "lines", len(req.Lines))

	jsonData, err := json.Marshal(req)
	if err != nil {
		return models.OrderIntent{}, fmt.Errorf("failed to marshal order intent request: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/orders", a.ordersBaseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return models.OrderIntent{}, fmt.Errorf("failed to create order intent request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	activity.RecordHeartbeat(ctx, "calling order intent service")

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return models.OrderIntent{}, fmt.Errorf("failed to call order intent service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return models.OrderIntent{}, fmt.Errorf("order intent service returned status %d: %s", resp.StatusCode, string(body))
	}

	var intent models.OrderIntent
	if err := json.NewDecoder(resp.Body).Decode(&intent); err != nil {
		return models.OrderIntent{}, fmt.Errorf("failed to decode order intent response: %w", err)
	}

	if intent.ClientSecret == "" {
		// Distinguish "intent created but secret missing" from transport
		// failures for diagnostics; both surface as a setup failure.
		logger.Error("Order intent response missing client secret", "checkout_id", req.CheckoutID, "order_ids", intent.OrderIDs)
		return models.OrderIntent{}, temporal.NewNonRetryableApplicationError(
			"order intent service returned no client secret", "MissingClientSecret", ErrMissingClientSecret)
	}

	logger.Info("Order intent created", "checkout_id", req.CheckoutID,
		"order_ids", intent.OrderIDs, "total_amount", intent.TotalAmount)
	return intent, nil
}

// NotifyCustomer asks the orders service to send the buyer a notification.
// Best effort: the workflow logs failures and moves on.
func (a *Activities) NotifyCustomer(ctx context.Context, req models.NotificationRequest) error {
	logger := activity.GetLogger(ctx)
	logger.Info("Notifying customer", "checkout_id", req.CheckoutID, "message", req.Message)

	jsonData, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal notification request: %w", err)
	}

	url := fmt.Sprintf("%s/api/v1/notifications", a.ordersBaseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create notification request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to call notification endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("notification endpoint returned status %d: %s", resp.StatusCode, string(body))
	}

	logger.Info("Customer notified", "checkout_id", req.CheckoutID)
	return nil
}
