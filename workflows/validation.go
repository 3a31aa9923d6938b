package workflows

import (
	"fmt"
	"strings"

	"marketplace-checkout/models"
)

// validateCheckout is the synchronous guard on the shipping submit: every
// shipping field present, every cart line purchasable with a sane quantity.
// Returns an empty string when the submit may proceed to intent creation.
func validateCheckout(shipping models.ShippingInfo, cart []models.CartLine) string {
	fields := []struct {
		name  string
		value string
	}{
		{"full_name", shipping.FullName},
		{"email", shipping.Email},
		{"phone", shipping.Phone},
		{"address", shipping.Address},
		{"city", shipping.City},
		{"state", shipping.State},
		{"zip", shipping.Zip},
		{"country", shipping.Country},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return fmt.Sprintf("%s is required", f.name)
		}
	}

	for _, line := range cart {
		if line.ProductID <= 0 {
			return fmt.Sprintf("cart line %s has no resolvable product", line.LineID)
		}
		if !line.Purchasable {
			return fmt.Sprintf("product %d is not purchasable", line.ProductID)
		}
		if line.Quantity < 1 {
			return fmt.Sprintf("product %d has invalid quantity %d", line.ProductID, line.Quantity)
		}
	}

	return ""
}
