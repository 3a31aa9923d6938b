package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter wires the checkout session routes.
func NewRouter(h *CheckoutHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(RequestIDMiddleware)

	r.Route("/api/v1/checkout", func(r chi.Router) {
		r.Post("/", h.StartCheckout)
		r.Route("/{checkout_id}", func(r chi.Router) {
			r.Get("/", h.GetCheckout)
			r.Delete("/", h.AbandonCheckout)
			r.Post("/shipping", h.SubmitShipping)
			r.Post("/payment", h.SubmitPayment)
			r.Post("/retry", h.Retry)
			r.Post("/challenge", h.CompleteChallenge)
		})
	})

	return r
}

// RequestIDMiddleware tags each request with an id for log correlation.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = fmt.Sprintf("req-%d", time.Now().UnixNano())
		}
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r)
	})
}
