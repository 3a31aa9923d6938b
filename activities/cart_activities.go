package activities

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"marketplace-checkout/models"

	"go.temporal.io/sdk/activity"
)

// Activities contains the cart store and order intent service activities.
type Activities struct {
	httpClient    *http.Client
	cartBaseURL   string
	ordersBaseURL string
}

// NewActivities creates an Activities instance bound to the cart store and
// order intent service base URLs.
func NewActivities(cartBaseURL, ordersBaseURL string) *Activities {
	return &Activities{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		cartBaseURL:   cartBaseURL,
		ordersBaseURL: ordersBaseURL,
	}
}

type cartResponse struct {
	Lines []models.CartLine `json:"lines"`
}

type productResponse struct {
	ProductID   int64  `json:"product_id"`
	Name        string `json:"name"`
	UnitPrice   int64  `json:"unit_price"`
	Purchasable bool   `json:"purchasable"`
}

// GetCart fetches the checkout contents from the cart store. A single-product
// context resolves the product directly and builds a one-line cart instead.
func (a *Activities) GetCart(ctx context.Context, req models.CartRequest) ([]models.CartLine, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Fetching checkout contents", "user_id", req.UserID, "product_id", req.ProductID)

	if req.ProductID != 0 {
		return a.getSingleProductLine(ctx, req)
	}

	url := fmt.Sprintf("%s/api/v1/carts/%s", a.cartBaseURL, req.UserID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cart request: %w", err)
	}

	activity.RecordHeartbeat(ctx, "calling cart store")

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to call cart store: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("cart store returned status %d: %s", resp.StatusCode, string(body))
	}

	var cart cartResponse
	if err := json.NewDecoder(resp.Body).Decode(&cart); err != nil {
		return nil, fmt.Errorf("failed to decode cart response: %w", err)
	}

	logger.Info("Cart fetched", "user_id", req.UserID, "lines", len(cart.Lines))
	return cart.Lines, nil
}

func (a *Activities) getSingleProductLine(ctx context.Context, req models.CartRequest) ([]models.CartLine, error) {
	logger := activity.GetLogger(ctx)

	url := fmt.Sprintf("%s/api/v1/products/%d", a.cartBaseURL, req.ProductID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create product request: %w", err)
	}

	activity.RecordHeartbeat(ctx, "resolving product")

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve product: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("product lookup returned status %d: %s", resp.StatusCode, string(body))
	}

	var product productResponse
	if err := json.NewDecoder(resp.Body).Decode(&product); err != nil {
		return nil, fmt.Errorf("failed to decode product response: %w", err)
	}

	quantity := req.Quantity
	if quantity < 1 {
		quantity = 1
	}

	logger.Info("Single-product context resolved", "product_id", product.ProductID, "quantity", quantity)
	return []models.CartLine{
		{
			LineID:      fmt.Sprintf("buy-now-%d", product.ProductID),
			ProductID:   product.ProductID,
			Name:        product.Name,
			UnitPrice:   product.UnitPrice,
			Quantity:    quantity,
			Purchasable: product.Purchasable,
		},
	}, nil
}
