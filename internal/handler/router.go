package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pkordes/sitedrop/backend/internal/authz"
)

// Guard returns the middleware that admits only callers holding action on
// resource. middleware.RequirePermission bound to an enforcer is the
// production guard.
type Guard func(resource, action string) func(http.Handler) http.Handler

// NewRouter registers every API route on a fresh chi router. A nil guard
// disables role enforcement.
func NewRouter(s *Server, guard Guard) chi.Router {
	if guard == nil {
		guard = func(string, string) func(http.Handler) http.Handler {
			return func(next http.Handler) http.Handler { return next }
		}
	}

	r := chi.NewRouter()
	r.Get("/healthz", s.GetHealth)
	r.Get("/openapi.yaml", s.GetOpenAPI)

	r.Route("/suppliers/{supplierId}", func(r chi.Router) {
		r.With(guard(authz.ResourceSlots, authz.ActionWrite)).Put("/slots", s.PutSlots)
		r.With(guard(authz.ResourceSlots, authz.ActionRead)).Get("/slots", s.ListSlots)

		r.With(guard(authz.ResourceAvailability, authz.ActionRead)).Get("/availability/{day}", s.GetAvailability)
		r.With(guard(authz.ResourceAvailability, authz.ActionWrite)).Post("/availability/{day}/reconcile", s.ReconcileDay)

		r.With(guard(authz.ResourceOrders, authz.ActionCreate)).Post("/orders", s.PlaceOrder)
		r.With(guard(authz.ResourceOrders, authz.ActionRead)).Get("/orders", s.ListOrders)

		r.With(guard(authz.ResourceReports, authz.ActionRead)).Get("/reports/sla", s.GetSLAReport)
		r.With(guard(authz.ResourceReports, authz.ActionRead)).Get("/reports/orders", s.ExportOrders)
	})

	r.With(guard(authz.ResourceOrders, authz.ActionRead)).Get("/orders/{orderId}", s.GetOrder)
	r.With(guard(authz.ResourceOrderStatus, authz.ActionWrite)).Post("/orders/{orderId}/transitions", s.TransitionOrder)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})
	return r
}
