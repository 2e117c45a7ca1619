package cmd

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rm-hull/blur-overlay/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRouter_Healthcheck(t *testing.T) {
	gin.SetMode(gin.TestMode)

	svc := service.New(service.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	pool, err := service.NewPool(svc, 1)
	require.NoError(t, err)
	pool.Start()

	r, err := newRouter(pool, service.DefaultParams(), false)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	pool.Shutdown()

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestPoolCheck(t *testing.T) {
	pool, err := service.NewPool(service.New(), 1)
	require.NoError(t, err)

	check := poolCheck{pool}
	assert.Equal(t, "blur-pool", check.Name())
	assert.True(t, check.Pass())

	pool.Shutdown()
	assert.False(t, check.Pass())
}
