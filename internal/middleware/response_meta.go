package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/waste-mgmt-api/pkg/middleware/requestid"
)

const (
	responseMetaKey  = "response_meta"
	requestStartKey  = "response_meta_start"
	cacheHitKey      = "cache_hit"
	processingKey    = "processing_time_ms"
	requestIDMetaKey = "request_id"
)

// WithResponseMeta starts the per-request meta map rendered into the envelope's "meta" field.
func WithResponseMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(requestStartKey, time.Now())
		c.Set(responseMetaKey, map[string]interface{}{})
		c.Next()
	}
}

// SetCacheHit records whether the payload was served from Redis.
func SetCacheHit(c *gin.Context, hit bool) {
	ensureMeta(c)[cacheHitKey] = hit
}

// ExtractMeta returns the meta map stamped with the request id and the time spent so far.
// It returns nil outside WithResponseMeta.
func ExtractMeta(c *gin.Context) map[string]interface{} {
	if c == nil {
		return nil
	}
	value, exists := c.Get(responseMetaKey)
	if !exists {
		return nil
	}
	meta, ok := value.(map[string]interface{})
	if !ok {
		return nil
	}
	if start, ok := c.Get(requestStartKey); ok {
		if t, ok := start.(time.Time); ok {
			meta[processingKey] = time.Since(t).Milliseconds()
		}
	}
	if id := requestid.Value(c); id != "" {
		meta[requestIDMetaKey] = id
	}
	return meta
}

func ensureMeta(c *gin.Context) map[string]interface{} {
	if value, exists := c.Get(responseMetaKey); exists {
		if meta, ok := value.(map[string]interface{}); ok {
			return meta
		}
	}
	meta := map[string]interface{}{}
	c.Set(responseMetaKey, meta)
	return meta
}
