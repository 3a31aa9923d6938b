package models

import "time"

// CheckoutState is the current state of a checkout session.
type CheckoutState string

const (
	StateIdle                  CheckoutState = "IDLE"
	StateLoadingCart           CheckoutState = "LOADING_CART"
	StateEmptyCart             CheckoutState = "EMPTY_CART"
	StateReadyForShipping      CheckoutState = "READY_FOR_SHIPPING"
	StateSubmittingOrder       CheckoutState = "SUBMITTING_ORDER"
	StateAwaitingPaymentMethod CheckoutState = "AWAITING_PAYMENT_METHOD"
	StateConfirmingPayment     CheckoutState = "CONFIRMING_PAYMENT"
	StateRequiresAction        CheckoutState = "REQUIRES_ACTION"
	StateSucceeded             CheckoutState = "SUCCEEDED"
	StateFailed                CheckoutState = "FAILED"
)

// IsTerminal reports whether the session can make no further progress.
// EMPTY_CART is terminal but is not a failure.
func (s CheckoutState) IsTerminal() bool {
	return s == StateSucceeded || s == StateEmptyCart
}

// IsBusy reports whether a collaborator call is in flight; submit controls
// must be disabled while busy.
func (s CheckoutState) IsBusy() bool {
	return s == StateLoadingCart || s == StateSubmittingOrder || s == StateConfirmingPayment
}

func (s CheckoutState) String() string {
	return string(s)
}

// ErrorKind classifies how a session failed (or degraded, for NAVIGATION_FALLBACK).
type ErrorKind string

const (
	ErrKindNone               ErrorKind = ""
	ErrKindCartLoad           ErrorKind = "CART_LOAD_ERROR"
	ErrKindValidation         ErrorKind = "VALIDATION_ERROR"
	ErrKindPaymentSetup       ErrorKind = "PAYMENT_SETUP_ERROR"
	ErrKindPaymentCanceled    ErrorKind = "PAYMENT_CANCELED"
	ErrKindPaymentDeclined    ErrorKind = "PAYMENT_DECLINED"
	ErrKindPaymentConfirm     ErrorKind = "PAYMENT_CONFIRM_ERROR"
	ErrKindNavigationFallback ErrorKind = "NAVIGATION_FALLBACK"
)

// Payment intent status values as reported by the gateway.
const (
	IntentStatusRequiresPaymentMethod = "requires_payment_method"
	IntentStatusRequiresAction        = "requires_action"
	IntentStatusProcessing            = "processing"
	IntentStatusSucceeded             = "succeeded"
	IntentStatusCanceled              = "canceled"
	IntentStatusFailed                = "failed"
)

// CheckoutSnapshot is the read-only view of a session returned by the state query.
type CheckoutSnapshot struct {
	CheckoutID       string        `json:"checkout_id"`
	State            CheckoutState `json:"state"`
	ErrorKind        ErrorKind     `json:"error_kind,omitempty"`
	ErrorMessage     string        `json:"error_message,omitempty"`
	Cart             []CartLine    `json:"cart,omitempty"`
	TotalAmount      int64         `json:"total_amount,omitempty"`
	OrderIDs         []string      `json:"order_ids,omitempty"`
	PaymentAttempts  int           `json:"payment_attempts"`
	CartLocked       bool          `json:"cart_locked"`
	NavigationTarget string        `json:"navigation_target,omitempty"`
	LastUpdated      time.Time     `json:"last_updated"`
}
