package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter mounts every endpoint of spec.md §8 under /api/v1, grounded
// on the teacher's use of gorilla/mux for its other HTTP entry point
// (cmd/gateway). Observability and recovery wrap every route; admin and
// tenant auth are scoped to the routes that need them.
func NewRouter(h *Handler) http.Handler {
	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()

	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(requireAdmin(h.deps.AdminAPIKey))
	admin.HandleFunc("/tenants", h.handleCreateTenant).Methods(http.MethodPost)

	tenant := api.NewRoute().Subrouter()
	tenant.Use(requireTenant(h.deps.Registry))
	tenant.HandleFunc("/inventory/submit", h.handleSubmitInventory).Methods(http.MethodPost)
	tenant.HandleFunc("/wants/submit", h.handleSubmitWants).Methods(http.MethodPost)
	tenant.HandleFunc("/discovery/trades", h.handleDiscoverTrades).Methods(http.MethodPost)
	tenant.HandleFunc("/ws/cycles", h.handleWS).Methods(http.MethodGet)

	api.HandleFunc("/health", h.handleHealth).Methods(http.MethodGet)

	status := api.NewRoute().Subrouter()
	status.Use(requireAdmin(h.deps.AdminAPIKey))
	status.HandleFunc("/status", h.handleStatus).Methods(http.MethodGet)

	var handler http.Handler = r
	handler = withObservability("discovery-engine", h.deps.Log, h.deps.Metrics)(handler)
	handler = withRecovery(h.deps.Log)(handler)
	handler = withCORS(handler)
	handler = withRequestID(handler)
	return handler
}
