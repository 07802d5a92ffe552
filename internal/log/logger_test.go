package log

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel(""))
}

func TestLoggerAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelDebug, Component: ComponentLedger, Output: &buf})

	logger.Debug("hello", FieldAmount, 5)
	assert.Contains(t, buf.String(), "component=ledger")
	assert.Contains(t, buf.String(), "amount=5")

	buf.Reset()
	logger.WithComponent(ComponentWorker).Info("x")
	assert.Contains(t, buf.String(), "component=worker")
}

func TestMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Output: &buf})

	var seen string
	h := Middleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
		assert.Equal(t, ComponentHTTP, FromContext(r.Context()).Component())
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/budget?offset=-1", nil))

	_, err := uuid.Parse(seen)
	require.NoError(t, err)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))
	assert.Contains(t, buf.String(), "status_code=418")
	assert.Contains(t, buf.String(), "level=WARN")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	fixed := uuid.NewString()
	req.Header.Set(RequestIDHeader, fixed)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, fixed, seen)
}

func TestFromContextDefault(t *testing.T) {
	l := FromContext(httptest.NewRequest(http.MethodGet, "/", nil).Context())
	assert.Equal(t, "unknown", l.Component())
}
