package system

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func newSystemRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	require.NoError(t, mountRoutes(router))
	t.Cleanup(func() {
		MarkReady(false)
		SetPinger(nil)
	})
	return router
}

func get(router *gin.Engine, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealth(t *testing.T) {
	router := newSystemRouter(t)
	rec := get(router, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestReady(t *testing.T) {
	router := newSystemRouter(t)

	t.Run("starting until marked", func(t *testing.T) {
		require.Equal(t, http.StatusServiceUnavailable, get(router, "/ready").Code)
	})

	t.Run("ready once marked", func(t *testing.T) {
		MarkReady(true)
		require.Equal(t, http.StatusOK, get(router, "/ready").Code)
	})

	t.Run("degraded when the store is unreachable", func(t *testing.T) {
		MarkReady(true)
		SetPinger(func(ctx context.Context) error { return errors.New("connection refused") })
		require.Equal(t, http.StatusServiceUnavailable, get(router, "/ready").Code)

		SetPinger(func(ctx context.Context) error { return nil })
		require.Equal(t, http.StatusOK, get(router, "/ready").Code)
	})
}

func TestMetricsEndpoint(t *testing.T) {
	router := newSystemRouter(t)
	rec := get(router, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
}
