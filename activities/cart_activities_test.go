package activities

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/testsuite"

	"marketplace-checkout/models"
)

func TestGetCart(t *testing.T) {
	tests := []struct {
		name          string
		request       models.CartRequest
		mockHandler   func(w http.ResponseWriter, r *http.Request)
		wantLines     int
		wantErr       bool
		errorContains string
	}{
		{
			name:    "Success - Cart With Lines",
			request: models.CartRequest{UserID: "user-1"},
			mockHandler: func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/v1/carts/user-1", r.URL.Path)
				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(cartResponse{
					Lines: []models.CartLine{
						{LineID: "line-1", ProductID: 7, UnitPrice: 1000, Quantity: 2, Purchasable: true},
						{LineID: "line-2", ProductID: 9, UnitPrice: 250, Quantity: 1, Purchasable: true},
					},
				})
			},
			wantLines: 2,
		},
		{
			name:    "Success - Empty Cart",
			request: models.CartRequest{UserID: "user-2"},
			mockHandler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(cartResponse{Lines: []models.CartLine{}})
			},
			wantLines: 0,
		},
		{
			name:    "Failure - Cart Store Error",
			request: models.CartRequest{UserID: "user-3"},
			mockHandler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte("Internal Server Error"))
			},
			wantErr:       true,
			errorContains: "status 500",
		},
		{
			name:    "Success - Single Product Context",
			request: models.CartRequest{UserID: "user-4", ProductID: 7, Quantity: 2},
			mockHandler: func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/v1/products/7", r.URL.Path)
				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(productResponse{
					ProductID:   7,
					Name:        "Walnut desk organizer",
					UnitPrice:   1000,
					Purchasable: true,
				})
			},
			wantLines: 1,
		},
		{
			name:    "Failure - Unknown Product",
			request: models.CartRequest{UserID: "user-5", ProductID: 404, Quantity: 1},
			mockHandler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
				w.Write([]byte("no such product"))
			},
			wantErr:       true,
			errorContains: "status 404",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testSuite := &testsuite.WorkflowTestSuite{}
			env := testSuite.NewTestActivityEnvironment()

			mockServer := httptest.NewServer(http.HandlerFunc(tt.mockHandler))
			defer mockServer.Close()

			act := NewActivities(mockServer.URL, mockServer.URL)
			env.RegisterActivity(act.GetCart)

			value, err := env.ExecuteActivity(act.GetCart, tt.request)

			if tt.wantErr {
				assert.Error(t, err)
				if tt.errorContains != "" {
					assert.Contains(t, err.Error(), tt.errorContains)
				}
				return
			}

			require.NoError(t, err)
			var lines []models.CartLine
			require.NoError(t, value.Get(&lines))
			assert.Len(t, lines, tt.wantLines)
		})
	}
}

func TestGetCart_SingleProductDefaultsQuantity(t *testing.T) {
	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestActivityEnvironment()

	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(productResponse{ProductID: 7, Name: "Widget", UnitPrice: 500, Purchasable: true})
	}))
	defer mockServer.Close()

	act := NewActivities(mockServer.URL, mockServer.URL)
	env.RegisterActivity(act.GetCart)

	value, err := env.ExecuteActivity(act.GetCart, models.CartRequest{UserID: "user-1", ProductID: 7})
	require.NoError(t, err)

	var lines []models.CartLine
	require.NoError(t, value.Get(&lines))
	require.Len(t, lines, 1)
	assert.Equal(t, int32(1), lines[0].Quantity)
	assert.Equal(t, "buy-now-7", lines[0].LineID)
}
