package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/waste-mgmt-api/internal/middleware"
	"github.com/noah-isme/waste-mgmt-api/internal/models"
	"github.com/noah-isme/waste-mgmt-api/internal/service"
	"github.com/noah-isme/waste-mgmt-api/pkg/response"
)

// WasteCategoryHandler manages waste category endpoints.
type WasteCategoryHandler struct {
	service *service.WasteCategoryService
}

// NewWasteCategoryHandler constructs a category handler.
func NewWasteCategoryHandler(svc *service.WasteCategoryService) *WasteCategoryHandler {
	return &WasteCategoryHandler{service: svc}
}

// List godoc
// @Summary List waste categories
// @Tags WasteCategories
// @Produce json
// @Param search query string false "Name filter"
// @Param active query bool false "Active filter"
// @Success 200 {object} response.Envelope
// @Router /waste-categories/get [get]
func (h *WasteCategoryHandler) List(c *gin.Context) {
	filter := models.WasteCategoryFilter{Search: c.Query("search"), Active: boolQuery(c, "active")}
	categories, cacheHit, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, categories, nil, middleware.ExtractMeta(c))
}

// Get godoc
// @Summary Get waste category
// @Tags WasteCategories
// @Produce json
// @Param id path string true "Category ID"
// @Success 200 {object} response.Envelope
// @Router /waste-categories/get/{id} [get]
func (h *WasteCategoryHandler) Get(c *gin.Context) {
	category, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, category, nil)
}

// Create godoc
// @Summary Create waste category
// @Tags WasteCategories
// @Accept json
// @Produce json
// @Param payload body service.CreateWasteCategoryRequest true "Category payload"
// @Success 201 {object} response.Envelope
// @Router /waste-categories/create [post]
func (h *WasteCategoryHandler) Create(c *gin.Context) {
	var req service.CreateWasteCategoryRequest
	if !bindJSON(c, &req, "invalid category payload") {
		return
	}
	category, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, category)
}

// Update godoc
// @Summary Update waste category
// @Tags WasteCategories
// @Accept json
// @Produce json
// @Param id path string true "Category ID"
// @Param payload body service.UpdateWasteCategoryRequest true "Category payload"
// @Success 200 {object} response.Envelope
// @Router /waste-categories/update/{id} [put]
func (h *WasteCategoryHandler) Update(c *gin.Context) {
	var req service.UpdateWasteCategoryRequest
	if !bindJSON(c, &req, "invalid category payload") {
		return
	}
	category, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, category, nil)
}

// Delete godoc
// @Summary Delete waste category
// @Tags WasteCategories
// @Param id path string true "Category ID"
// @Success 204 {object} response.Envelope
// @Router /waste-categories/delete/{id} [delete]
func (h *WasteCategoryHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
