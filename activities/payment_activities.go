package activities

import (
	"context"
	"fmt"

	"marketplace-checkout/gateway"
	"marketplace-checkout/models"

	"go.temporal.io/sdk/activity"
)

// PaymentActivities contains all payment gateway activities. The gateway
// client is injected at worker startup.
type PaymentActivities struct {
	gateway *gateway.Client
}

// NewPaymentActivities creates a PaymentActivities instance.
func NewPaymentActivities(gw *gateway.Client) *PaymentActivities {
	return &PaymentActivities{gateway: gw}
}

// RetrievePaymentIntentStatus fetches the remote status of a payment intent.
// The workflow calls this before every confirmation attempt so a duplicate
// submit or a reload after a completed payment never re-confirms the secret.
func (p *PaymentActivities) RetrievePaymentIntentStatus(ctx context.Context, clientSecret string) (models.PaymentStatusResult, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Retrieving payment intent status")

	activity.RecordHeartbeat(ctx, "retrieving intent status")

	intent, err := p.gateway.RetrieveIntent(ctx, clientSecret)
	if err != nil {
		return models.PaymentStatusResult{}, fmt.Errorf("failed to retrieve payment intent: %w", err)
	}

	logger.Info("Payment intent status retrieved", "status", intent.Status)
	return models.PaymentStatusResult{
		Status:   intent.Status,
		Metadata: intent.Metadata,
	}, nil
}

// CreatePaymentMethod tokenizes the buyer's card. Card-level rejects come back
// as a declined result carrying the gateway's verbatim message; only transport
// and configuration problems are returned as errors.
func (p *PaymentActivities) CreatePaymentMethod(ctx context.Context, req models.PaymentMethodRequest) (models.PaymentMethodResult, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Creating payment method")

	activity.RecordHeartbeat(ctx, "creating payment method")

	pm, err := p.gateway.CreatePaymentMethod(ctx, req.Card, req.Billing)
	if err != nil {
		if ge, ok := gateway.AsGatewayError(err); ok && ge.IsCardError() {
			logger.Info("Card rejected by gateway", "code", ge.Code, "decline_code", ge.DeclineCode)
			return models.PaymentMethodResult{
				Declined: true,
				Message:  ge.Message,
			}, nil
		}
		return models.PaymentMethodResult{}, fmt.Errorf("failed to create payment method: %w", err)
	}

	logger.Info("Payment method created", "payment_method_id", pm.ID)
	return models.PaymentMethodResult{PaymentMethodID: pm.ID}, nil
}

// ConfirmPayment confirms a payment intent with a tokenized payment method.
// Declines are results, not errors, so the workflow can distinguish a card
// decline (retryable in place) from a transport failure.
func (p *PaymentActivities) ConfirmPayment(ctx context.Context, req models.ConfirmRequest) (models.PaymentStatusResult, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Confirming payment intent", "payment_method_id", req.PaymentMethodID)

	activity.RecordHeartbeat(ctx, "confirming payment")

	intent, err := p.gateway.ConfirmIntent(ctx, req.ClientSecret, req.PaymentMethodID)
	if err != nil {
		if ge, ok := gateway.AsGatewayError(err); ok && ge.IsCardError() {
			logger.Info("Payment declined", "code", ge.Code, "decline_code", ge.DeclineCode)
			return models.PaymentStatusResult{
				Status:   models.IntentStatusFailed,
				Declined: true,
				Message:  ge.Message,
			}, nil
		}
		return models.PaymentStatusResult{}, fmt.Errorf("failed to confirm payment: %w", err)
	}

	logger.Info("Payment confirmation returned", "status", intent.Status)
	return models.PaymentStatusResult{
		Status:   intent.Status,
		Metadata: intent.Metadata,
	}, nil
}
