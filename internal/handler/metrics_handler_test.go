package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/waste-mgmt-api/internal/service"
)

type pingerStub struct{ err error }

func (p pingerStub) PingContext(ctx context.Context) error { return p.err }

func TestMetricsHandlerReady(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c, w := newGinContext(http.MethodGet, "/ready", nil)
	NewMetricsHandler(nil, pingerStub{}).Ready(c)
	require.Equal(t, http.StatusOK, w.Code)

	c, w = newGinContext(http.MethodGet, "/ready", nil)
	NewMetricsHandler(nil, pingerStub{err: errors.New("connection refused")}).Ready(c)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestMetricsHandlerSnapshot(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	metrics.RecordCacheOperation(true, 0)

	c, w := newGinContext(http.MethodGet, "/metrics/snapshot", nil)
	NewMetricsHandler(metrics, nil).Snapshot(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"cache_hits":1`)
}
