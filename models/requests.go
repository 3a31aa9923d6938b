package models

// CartRequest asks the cart store for the checkout contents. A non-zero
// ProductID requests a single-product context instead of the stored cart.
type CartRequest struct {
	UserID    string `json:"user_id"`
	ProductID int64  `json:"product_id,omitempty"`
	Quantity  int32  `json:"quantity,omitempty"`
}

// OrderIntentRequest creates a pending order plus payment intent.
type OrderIntentRequest struct {
	CheckoutID        string       `json:"checkout_id"`
	UserID            string       `json:"user_id"`
	Lines             []CartLine   `json:"lines"`
	Shipping          ShippingInfo `json:"shipping"`
	PaymentMethodHint string       `json:"payment_method_hint"`
}

// PaymentMethodRequest tokenizes card details with the gateway.
type PaymentMethodRequest struct {
	Card    CardInput    `json:"card"`
	Billing ShippingInfo `json:"billing"`
}

// PaymentMethodResult is the outcome of payment method creation. A card-level
// reject is reported as Declined with the gateway's verbatim message; transport
// problems are activity errors instead.
type PaymentMethodResult struct {
	PaymentMethodID string `json:"payment_method_id"`
	Declined        bool   `json:"declined"`
	Message         string `json:"message,omitempty"`
}

// ConfirmRequest confirms a payment intent with a tokenized payment method.
type ConfirmRequest struct {
	ClientSecret    string `json:"client_secret"`
	PaymentMethodID string `json:"payment_method_id"`
}

// PaymentStatusResult is the gateway-reported state of a payment intent, used
// both for the pre-confirm idempotency probe and for confirmation outcomes.
type PaymentStatusResult struct {
	Status   string            `json:"status"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Declined bool              `json:"declined"`
	Message  string            `json:"message,omitempty"`
}

// NotificationRequest tells the orders service to notify the buyer.
type NotificationRequest struct {
	CheckoutID string   `json:"checkout_id"`
	UserID     string   `json:"user_id"`
	Email      string   `json:"email"`
	OrderIDs   []string `json:"order_ids"`
	Message    string   `json:"message"`
}
