package router

import (
	"net/http"

	"storefront/internal/handler"
	"storefront/internal/middleware"

	"github.com/rs/zerolog"
)

// Paths reachable without an API key. The gateway redirects the buyer's
// browser to the callback, so it cannot carry one.
const (
	HealthPath   = "/health"
	CallbackPath = "/api/checkout/callback"
)

// New creates a new HTTP router with all routes and middleware configured.
func New(
	checkoutHandler *handler.CheckoutHandler,
	orderHandler *handler.OrderHandler,
	apiKey string,
	logger zerolog.Logger,
) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET "+HealthPath, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy"}`))
	})

	mux.HandleFunc("POST /api/checkout", checkoutHandler.Initiate)
	mux.HandleFunc("GET "+CallbackPath, checkoutHandler.Callback)
	mux.HandleFunc("POST "+CallbackPath, checkoutHandler.Callback)

	mux.HandleFunc("GET /api/orders/{orderNumber}", orderHandler.Get)
	mux.HandleFunc("POST /api/orders/{orderNumber}/requery", orderHandler.Requery)
	mux.HandleFunc("POST /api/orders/{orderNumber}/cancel", orderHandler.Cancel)
	mux.HandleFunc("POST /api/orders/{orderNumber}/ship", orderHandler.Ship)
	mux.HandleFunc("POST /api/orders/{orderNumber}/deliver", orderHandler.Deliver)

	// Apply middleware in order: Recovery -> Logging -> RequestID -> CORS -> APIKeyAuth
	var handler http.Handler = mux
	handler = middleware.APIKeyAuth(apiKey, logger, HealthPath, CallbackPath)(handler)
	handler = middleware.CORS(handler)
	handler = middleware.RequestID(handler)
	handler = middleware.Logging(logger)(handler)
	handler = middleware.Recovery(logger)(handler)

	return handler
}
