package httpserver

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Clark-Hu/review-rateable/internal/config"
)

// newMiddlewareServer keeps the full middleware chain; no store is needed
// because /healthz reports 503 without one.
func newMiddlewareServer() *Server {
	return New(config.Config{}, nil, nil, zap.NewNop())
}

func TestRequestLogger_GeneratesCorrelationID(t *testing.T) {
	srv := newMiddlewareServer()

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	id := rec.Header().Get(correlationHeader)
	require.NotEmpty(t, id)
	_, err := uuid.Parse(id)
	assert.NoError(t, err)
}

func TestRequestLogger_PreservesCorrelationID(t *testing.T) {
	srv := newMiddlewareServer()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(correlationHeader, "upstream-123")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "upstream-123", rec.Header().Get(correlationHeader))
}

func TestRequestMetrics_CountsByRoutePattern(t *testing.T) {
	srv := newMiddlewareServer()
	counter := httpRequestsTotal.WithLabelValues(http.MethodGet, "/healthz", "503")
	before := testutil.ToFloat64(counter)

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	}

	assert.Equal(t, before+2, testutil.ToFloat64(counter))
	assert.GreaterOrEqual(t, testutil.CollectAndCount(httpRequestDuration), 1)
}
