package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/waste-mgmt-api/pkg/middleware/requestid"
)

func TestExtractMetaCarriesCacheHitAndRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(requestid.Middleware(), WithResponseMeta())

	var meta map[string]interface{}
	r.GET("/categories", func(c *gin.Context) {
		SetCacheHit(c, true)
		meta = ExtractMeta(c)
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/categories", nil)
	req.Header.Set("X-Request-ID", "req-42")
	r.ServeHTTP(httptest.NewRecorder(), req)

	require.NotNil(t, meta)
	assert.Equal(t, true, meta[cacheHitKey])
	assert.Equal(t, "req-42", meta[requestIDMetaKey])
	assert.Contains(t, meta, processingKey)
}

func TestExtractMetaWithoutMiddleware(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Nil(t, ExtractMeta(c))
	assert.Nil(t, ExtractMeta(nil))
}
