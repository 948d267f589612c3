package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"
	"go.uber.org/zap"

	"github.com/pkordes/sitedrop/backend/internal/domain"
)

// ErrorDetail is the body of every error response: {"error": {...}}.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps ErrorDetail.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// errorMapping lists, in match order, the domain errors a handler can
// translate into a typed response.
var errorMapping = []struct {
	err    error
	status int
	code   string
}{
	{domain.ErrInvalidCapacity, http.StatusUnprocessableEntity, "invalid_capacity"},
	{domain.ErrValidation, http.StatusUnprocessableEntity, "validation_error"},
	{domain.ErrNotFound, http.StatusNotFound, "not_found"},
	{domain.ErrSlotUnknown, http.StatusUnprocessableEntity, "slot_unknown"},
	{domain.ErrSlotInactive, http.StatusConflict, "slot_inactive"},
	{domain.ErrSlotFull, http.StatusConflict, "slot_full"},
	{domain.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
}

// fail writes the response for a service error. Unmapped errors are logged
// and answered with a generic 500 so internals never leak to the caller.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	for _, m := range errorMapping {
		if errors.Is(err, m.err) {
			writeError(w, m.status, m.code, unwrapMessage(err, m.err))
			return
		}
	}
	s.log.Error("request failed",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
}

// unwrapMessage extracts the human-readable part that follows sentinel in a
// wrapped error.
// e.g. "service.CatalogService.UpsertSlots: validation error: slot label is required" → "slot label is required"
func unwrapMessage(err, sentinel error) string {
	msg := err.Error()
	marker := sentinel.Error() + ": "
	if i := strings.Index(msg, marker); i >= 0 {
		return msg[i+len(marker):]
	}
	return sentinel.Error()
}

func badRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, "bad_request", message)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: ErrorDetail{Code: code, Message: message}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck // the client has gone if this fails; nothing left to tell it.
	json.NewEncoder(w).Encode(v)
}

// decodeJSON reads the request body into dst, answering 413 or 400 itself
// when it cannot. It reports whether the handler should continue.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large")
			return false
		}
		badRequest(w, "malformed JSON body: "+err.Error())
		return false
	}
	return true
}

// pathUUID binds the {name} path segment as a UUID.
func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	var id openapi_types.UUID
	err := runtime.BindStyledParameterWithLocation("simple", false, name, runtime.ParamLocationPath, chi.URLParam(r, name), &id)
	return id, err
}

// pathDate binds the {name} path segment as a calendar date (YYYY-MM-DD).
func pathDate(r *http.Request, name string) (time.Time, error) {
	var d openapi_types.Date
	err := runtime.BindStyledParameterWithLocation("simple", false, name, runtime.ParamLocationPath, chi.URLParam(r, name), &d)
	return d.Time, err
}

// queryDate binds a required ?name=YYYY-MM-DD query parameter.
func queryDate(r *http.Request, name string) (time.Time, error) {
	var d openapi_types.Date
	err := runtime.BindQueryParameter("form", true, true, name, r.URL.Query(), &d)
	return d.Time, err
}
