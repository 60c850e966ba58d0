package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/waste-mgmt-api/internal/service"
)

// unmatchedRoute labels requests that hit no registered route.
const unmatchedRoute = "unmatched"

// Metrics records method, route template, status and latency for every request.
func Metrics(metrics *service.MetricsService) gin.HandlerFunc {
	if metrics == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		metrics.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
