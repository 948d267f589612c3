package middleware

import (
	"encoding/json"
	"net/http"
)

// ActorRoleHeader carries the caller's role. An upstream gateway is expected
// to authenticate the caller and set it.
const ActorRoleHeader = "X-Actor-Role"

// Authorizer decides whether role may perform action on resource.
// authz.Enforcer implements it.
type Authorizer interface {
	Allow(role, resource, action string) (bool, error)
}

// RequirePermission returns a middleware that lets the request through only
// when the role in ActorRoleHeader holds action on resource. A missing role
// or a denied check answers 403.
func RequirePermission(a Authorizer, resource, action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := r.Header.Get(ActorRoleHeader)
			if role == "" {
				writeError(w, http.StatusForbidden, "forbidden", ActorRoleHeader+" header is required")
				return
			}

			ok, err := a.Allow(role, resource, action)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "internal_error", "authorization check failed")
				return
			}
			if !ok {
				writeError(w, http.StatusForbidden, "forbidden", "role "+role+" may not "+action+" "+resource)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError writes the API's standard error envelope.
func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]errorDetail{"error": {Code: code, Message: message}})
}
