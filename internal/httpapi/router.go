package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// NewRouter assembles the API surface. The returned handler is wrapped
// with otelhttp so every route reports spans under one server name.
func NewRouter(
	cartHandler *CartHandler,
	checkoutHandler *CheckoutHandler,
	recentHandler *RecentHandler,
	requestTimeout time.Duration,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.Compress(5))
	r.Use(MockAuthMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartHandler.GetCart)
			r.Delete("/", cartHandler.ClearCart)
			r.Post("/items", cartHandler.AddItem)
			r.Put("/items/{product_id}", cartHandler.UpdateQuantity)
			r.Delete("/items/{product_id}", cartHandler.RemoveItem)
			r.Put("/address", cartHandler.SetShippingAddress)
			r.Put("/payment-method", cartHandler.SetPaymentMethod)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", checkoutHandler.CreateOrder)
			r.Get("/", checkoutHandler.ListOrders)
			r.Route("/{order_id}", func(r chi.Router) {
				r.Get("/", checkoutHandler.GetOrder)
				r.Post("/card-session", checkoutHandler.CreateCardSession)
				r.Post("/wallet-order", checkoutHandler.CreateWalletOrder)
				r.Post("/wallet-capture", checkoutHandler.CaptureWalletOrder)
				r.Post("/wallet-cancel", checkoutHandler.CancelWalletOrder)
				r.Post("/verify", checkoutHandler.Verify)
				r.Put("/deliver", checkoutHandler.MarkDelivered)
			})
		})

		r.Route("/products", func(r chi.Router) {
			r.Post("/{product_id}/viewed", recentHandler.RecordView)
			r.Get("/recently-viewed", recentHandler.ListViews)
		})
	})

	return otelhttp.NewHandler(r, "e-perfume-api")
}
