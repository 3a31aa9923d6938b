package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Error is a structured error returned by the gateway API. Type "card_error"
// means the card was rejected and Message is safe to surface to the buyer
// verbatim; everything else is a transport or configuration problem.
type Error struct {
	StatusCode  int    `json:"-"`
	Type        string `json:"type"`
	Code        string `json:"code,omitempty"`
	DeclineCode string `json:"decline_code,omitempty"`
	Message     string `json:"message"`
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("gateway error (%s/%s): %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("gateway error (%s): %s", e.Type, e.Message)
}

// IsCardError reports whether the error is a card-level decline rather than a
// transport or configuration failure.
func (e *Error) IsCardError() bool {
	return e.Type == "card_error"
}

// AsGatewayError unwraps err into a *Error if it is one.
func AsGatewayError(err error) (*Error, bool) {
	var ge *Error
	if errors.As(err, &ge) {
		return ge, true
	}
	return nil, false
}

type errorEnvelope struct {
	Error Error `json:"error"`
}

func parseError(statusCode int, body []byte) error {
	var envelope errorEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.Error.Message == "" {
		return &Error{
			StatusCode: statusCode,
			Type:       "api_error",
			Message:    fmt.Sprintf("gateway returned status %d: %s", statusCode, string(body)),
		}
	}
	envelope.Error.StatusCode = statusCode
	return &envelope.Error
}
