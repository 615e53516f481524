package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// NewRouter assembles the public surface. The otelhttp wrapper traces
// every request under one server span.
func NewRouter(cart *CartHandler, checkout *CheckoutHandler, orders *OrdersHandler, requestTimeout time.Duration) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.Compress(5))
	r.Use(SessionMiddleware)
	r.Use(AuthMiddleware)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cart.GetCart)
			r.Delete("/", cart.ClearCart)
			r.Post("/items", cart.AddItem)
			r.Put("/items/{slug}/{size}", cart.UpdateQuantity)
			r.Delete("/items/{slug}/{size}", cart.RemoveItem)
		})
		r.Route("/checkout", func(r chi.Router) {
			r.Post("/authorize", checkout.Authorize)
			r.Post("/capture", checkout.Capture)
			r.Post("/cancel", checkout.Cancel)
		})
		r.Route("/membership", func(r chi.Router) {
			r.Get("/", orders.Membership)
			r.Post("/activate", checkout.ActivateMembership)
		})
		r.Route("/orders", func(r chi.Router) {
			r.Get("/", orders.ListOrders)
			r.Get("/{id}", orders.GetOrder)
		})
	})

	return otelhttp.NewHandler(r, "storefront")
}
