package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/converter"

	"marketplace-checkout/models"
	"marketplace-checkout/workflows"
)

// TemporalClient is the slice of client.Client the handlers need; narrowed so
// tests can mock it.
type TemporalClient interface {
	ExecuteWorkflow(ctx context.Context, options client.StartWorkflowOptions, workflow interface{}, args ...interface{}) (client.WorkflowRun, error)
	SignalWorkflow(ctx context.Context, workflowID, runID, signalName string, arg interface{}) error
	QueryWorkflow(ctx context.Context, workflowID, runID, queryType string, args ...interface{}) (converter.EncodedValue, error)
}

type CheckoutHandler struct {
	temporal  TemporalClient
	taskQueue string
	timeout   time.Duration
}

func NewCheckoutHandler(temporal TemporalClient, taskQueue string, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{
		temporal:  temporal,
		taskQueue: taskQueue,
		timeout:   timeout,
	}
}

type StartCheckoutRequestDTO struct {
	UserID    string `json:"user_id"`
	ProductID int64  `json:"product_id,omitempty"`
	Quantity  int32  `json:"quantity,omitempty"`
}

type StartCheckoutResponseDTO struct {
	CheckoutID string `json:"checkout_id"`
}

type AcceptedResponseDTO struct {
	CheckoutID string `json:"checkout_id"`
	Status     string `json:"status"`
}

// POST /api/v1/checkout
func (h *CheckoutHandler) StartCheckout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req StartCheckoutRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.UserID == "" {
		respondError(w, http.StatusBadRequest, "missing_user_id", "user_id is required")
		return
	}
	if req.ProductID != 0 && req.Quantity < 1 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be at least 1 for a single-product checkout")
		return
	}

	checkoutID := "checkout-" + uuid.NewString()

	// One session per workflow id; a duplicate start must not spawn a second
	// session against the same id.
	options := client.StartWorkflowOptions{
		ID:                    checkoutID,
		TaskQueue:             h.taskQueue,
		WorkflowIDReusePolicy: enumspb.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
	}

	_, err := h.temporal.ExecuteWorkflow(ctx, options, workflows.CheckoutWorkflow, models.CheckoutInput{
		CheckoutID: checkoutID,
		UserID:     req.UserID,
		ProductID:  req.ProductID,
		Quantity:   req.Quantity,
	})
	if err != nil {
		respondError(w, http.StatusBadGateway, "start_failed", err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, StartCheckoutResponseDTO{CheckoutID: checkoutID})
}

// GET /api/v1/checkout/{checkout_id}
func (h *CheckoutHandler) GetCheckout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	checkoutID := chi.URLParam(r, "checkout_id")
	if checkoutID == "" {
		respondError(w, http.StatusBadRequest, "missing_checkout_id", "checkout_id is required")
		return
	}

	value, err := h.temporal.QueryWorkflow(ctx, checkoutID, "", workflows.QueryState)
	if err != nil {
		handleTemporalError(w, err)
		return
	}

	var snapshot models.CheckoutSnapshot
	if err := value.Get(&snapshot); err != nil {
		respondError(w, http.StatusInternalServerError, "decode_failed", "failed to decode session state")
		return
	}

	respondJSON(w, http.StatusOK, snapshot)
}

// POST /api/v1/checkout/{checkout_id}/shipping
func (h *CheckoutHandler) SubmitShipping(w http.ResponseWriter, r *http.Request) {
	var shipping models.ShippingInfo
	if err := json.NewDecoder(r.Body).Decode(&shipping); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	h.signal(w, r, workflows.SignalSubmitShipping, shipping)
}

// POST /api/v1/checkout/{checkout_id}/payment
func (h *CheckoutHandler) SubmitPayment(w http.ResponseWriter, r *http.Request) {
	var card models.CardInput
	if err := json.NewDecoder(r.Body).Decode(&card); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if card.Number == "" {
		respondError(w, http.StatusBadRequest, "missing_card_number", "card number is required")
		return
	}
	h.signal(w, r, workflows.SignalSubmitPayment, card)
}

// POST /api/v1/checkout/{checkout_id}/retry
func (h *CheckoutHandler) Retry(w http.ResponseWriter, r *http.Request) {
	h.signal(w, r, workflows.SignalRetry, nil)
}

// POST /api/v1/checkout/{checkout_id}/challenge
// Return URL hit after the buyer completes a 3-D Secure style challenge.
func (h *CheckoutHandler) CompleteChallenge(w http.ResponseWriter, r *http.Request) {
	h.signal(w, r, workflows.SignalCompleteChallenge, nil)
}

// DELETE /api/v1/checkout/{checkout_id}
func (h *CheckoutHandler) AbandonCheckout(w http.ResponseWriter, r *http.Request) {
	h.signal(w, r, workflows.SignalCancel, nil)
}

func (h *CheckoutHandler) signal(w http.ResponseWriter, r *http.Request, signalName string, payload interface{}) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	checkoutID := chi.URLParam(r, "checkout_id")
	if checkoutID == "" {
		respondError(w, http.StatusBadRequest, "missing_checkout_id", "checkout_id is required")
		return
	}

	if err := h.temporal.SignalWorkflow(ctx, checkoutID, "", signalName, payload); err != nil {
		handleTemporalError(w, err)
		return
	}

	respondJSON(w, http.StatusAccepted, AcceptedResponseDTO{CheckoutID: checkoutID, Status: "accepted"})
}

func handleTemporalError(w http.ResponseWriter, err error) {
	var notFound *serviceerror.NotFound
	if errors.As(err, &notFound) {
		respondError(w, http.StatusNotFound, "checkout_not_found", "no checkout session with that id")
		return
	}
	respondError(w, http.StatusBadGateway, "temporal_error", err.Error())
}
