package workflows

import (
	"strings"

	"marketplace-checkout/models"
)

const orderIDMetadataPrefix = "ORD-"

// ResolveNavigationTarget picks the post-payment destination with this
// priority: order id stored at intent creation, then the order id carried on
// the confirmed intent's metadata (ORD- prefix stripped), then the order list.
// The list fallback is reported as NAVIGATION_FALLBACK, which is non-fatal.
func ResolveNavigationTarget(orderIDs []string, metadata map[string]string) (string, models.ErrorKind) {
	if len(orderIDs) > 0 && orderIDs[0] != "" {
		return "/orders/" + orderIDs[0], models.ErrKindNone
	}

	if raw, ok := metadata["order_id"]; ok && raw != "" {
		id := strings.TrimPrefix(raw, orderIDMetadataPrefix)
		if id != "" {
			return "/orders/" + id, models.ErrKindNone
		}
	}

	return "/orders", models.ErrKindNavigationFallback
}
