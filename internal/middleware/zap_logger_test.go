package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/pkordes/sitedrop/backend/internal/middleware"
)

// TestZapLogger_logsRequestFields verifies that the ZapLogger middleware
// writes one structured entry containing method, path, status, duration,
// and the request ID placed in context by chi's RequestID middleware.
func TestZapLogger_logsRequestFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	h := middleware.NewZapLogger(zap.New(core))(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
	)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(middleware.ActorRoleHeader, "supplier")

	// Simulate what chimiddleware.RequestID does: inject a known ID into context.
	ctx := context.WithValue(req.Context(), chimiddleware.RequestIDKey, "test-req-id")
	req = req.WithContext(ctx)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, logs.Len())

	entry := logs.All()[0]
	fields := entry.ContextMap()
	assert.Equal(t, zapcore.InfoLevel, entry.Level)
	assert.Equal(t, "GET", fields["method"])
	assert.Equal(t, "/healthz", fields["path"])
	assert.EqualValues(t, http.StatusOK, fields["status"])
	assert.Equal(t, "test-req-id", fields["request_id"])
	assert.Equal(t, "supplier", fields["actor_role"])
	assert.Contains(t, fields, "duration_ms")
}

// TestZapLogger_serverErrorLogsAtError verifies that 5xx responses are
// logged at error level.
func TestZapLogger_serverErrorLogsAtError(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	h := middleware.NewZapLogger(zap.New(core))(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}),
	)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/suppliers", nil))

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, zapcore.ErrorLevel, logs.All()[0].Level)
}
