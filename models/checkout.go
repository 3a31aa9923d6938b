package models

// CartLine is a single purchasable line in a cart, as returned by the cart store.
// UnitPrice is in minor units (cents).
type CartLine struct {
	LineID      string `json:"line_id"`
	ProductID   int64  `json:"product_id"`
	Name        string `json:"name"`
	UnitPrice   int64  `json:"unit_price"`
	Quantity    int32  `json:"quantity"`
	Purchasable bool   `json:"purchasable"`
}

// Subtotal returns the line amount in minor units.
func (l CartLine) Subtotal() int64 {
	return l.UnitPrice * int64(l.Quantity)
}

// ShippingInfo is the shipping form submitted by the buyer. Every field is
// mandatory before an order intent may be created.
type ShippingInfo struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	City     string `json:"city"`
	State    string `json:"state"`
	Zip      string `json:"zip"`
	Country  string `json:"country"`
}

// CardInput carries raw card details from the payment form. The orchestrator
// never inspects it; it is forwarded to the payment gateway only.
type CardInput struct {
	Number   string `json:"number"`
	ExpMonth int32  `json:"exp_month"`
	ExpYear  int32  `json:"exp_year"`
	CVC      string `json:"cvc"`
}

// OrderIntent is the canonical response of the order intent service: one
// pending order (possibly split per seller) plus a gateway client secret.
// Immutable once returned.
type OrderIntent struct {
	OrderIDs     []string `json:"order_ids"`
	ClientSecret string   `json:"client_secret"`
	TotalAmount  int64    `json:"total_amount"`
}

// CheckoutInput starts a checkout session. ProductID/Quantity set means a
// single-product ("buy now") context instead of the stored cart.
type CheckoutInput struct {
	CheckoutID string `json:"checkout_id"`
	UserID     string `json:"user_id"`
	ProductID  int64  `json:"product_id,omitempty"`
	Quantity   int32  `json:"quantity,omitempty"`
}

// CheckoutResult is the workflow return value: the final snapshot of the session.
type CheckoutResult struct {
	CheckoutID       string        `json:"checkout_id"`
	State            CheckoutState `json:"state"`
	ErrorKind        ErrorKind     `json:"error_kind,omitempty"`
	ErrorMessage     string        `json:"error_message,omitempty"`
	OrderIDs         []string      `json:"order_ids,omitempty"`
	NavigationTarget string        `json:"navigation_target,omitempty"`
}
