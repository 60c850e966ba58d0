package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/waste-mgmt-api/internal/middleware"
	"github.com/noah-isme/waste-mgmt-api/internal/service"
	appErrors "github.com/noah-isme/waste-mgmt-api/pkg/errors"
	"github.com/noah-isme/waste-mgmt-api/pkg/response"
)

// actorFromContext resolves the caller, writing 401 when the request is anonymous.
func actorFromContext(c *gin.Context) (service.Actor, bool) {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return service.Actor{}, false
	}
	return service.ActorFromClaims(claims), true
}

func bindJSON(c *gin.Context, dst interface{}, message string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, message))
		return false
	}
	return true
}

func pageParams(c *gin.Context) (int, int) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		page = 1
	}
	size, err := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if err != nil {
		size = 20
	}
	return page, size
}

func boolQuery(c *gin.Context, key string) *bool {
	raw := c.Query(key)
	if raw == "" {
		return nil
	}
	val, err := strconv.ParseBool(raw)
	if err != nil {
		return nil
	}
	return &val
}

// timeQuery accepts RFC3339 timestamps or plain dates.
func timeQuery(c *gin.Context, key string) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrValidation, key+" must be a date (YYYY-MM-DD) or RFC3339 timestamp")
}
