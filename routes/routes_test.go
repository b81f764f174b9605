package routes

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/harborline/shipment-tracker/app"
	"github.com/harborline/shipment-tracker/config"
)

func degradedDeps() *app.Dependencies {
	return &app.Dependencies{
		Config:    &config.Config{},
		Logger:    zap.NewNop(),
		ConfigErr: fmt.Errorf("auth provider base URL is required: set AUTH_BASE_URL"),
	}
}

func TestMisconfiguredGuard(t *testing.T) {
	router := SetupRoutes(degradedDeps())

	t.Run("api requests fail with 500 before auth", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/shipments", nil)
		// No Authorization header on purpose: misconfiguration must win
		// over the missing-token 401.
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Contains(t, rec.Body.String(), "AUTH_BASE_URL")
	})

	t.Run("auth requests fail with 500", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/auth/login", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("liveness stays reachable", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("readiness reports not ready without a database", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}
