package cors

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// fixedHeaders go on every response. Content-Disposition is exposed so browsers can read report filenames.
var fixedHeaders = map[string]string{
	"Access-Control-Allow-Headers":  "Authorization, Content-Type, X-Requested-With, X-Request-ID",
	"Access-Control-Allow-Methods":  "GET, POST, PUT, DELETE, OPTIONS",
	"Access-Control-Expose-Headers": "Content-Disposition, X-Request-ID",
	"Access-Control-Max-Age":        "600",
}

// New allows the listed origins. An empty list or "*" allows any origin.
// Preflight requests are answered with 204 without reaching the handlers.
func New(allowedOrigins []string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	wildcard := len(allowedOrigins) == 0
	for _, origin := range allowedOrigins {
		origin = normalize(origin)
		if origin == "*" {
			wildcard = true
			continue
		}
		if origin != "" {
			allowed[origin] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Add("Vary", "Origin")

		origin := c.GetHeader("Origin")
		_, listed := allowed[normalize(origin)]
		switch {
		case origin != "" && listed:
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
		case wildcard:
			h.Set("Access-Control-Allow-Origin", "*")
		}
		for key, value := range fixedHeaders {
			h.Set(key, value)
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func normalize(origin string) string {
	return strings.ToLower(strings.TrimRight(strings.TrimSpace(origin), "/"))
}
