package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/waste-mgmt-api/internal/models"
	"github.com/noah-isme/waste-mgmt-api/internal/service"
	"github.com/noah-isme/waste-mgmt-api/pkg/response"
)

// DistrictHandler manages district endpoints.
type DistrictHandler struct {
	service *service.DistrictService
}

// NewDistrictHandler constructs a district handler.
func NewDistrictHandler(svc *service.DistrictService) *DistrictHandler {
	return &DistrictHandler{service: svc}
}

// List godoc
// @Summary List districts
// @Tags Districts
// @Produce json
// @Param search query string false "Name or code"
// @Param active query bool false "Active filter"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /districts/get [get]
func (h *DistrictHandler) List(c *gin.Context) {
	filter := models.DistrictFilter{Search: c.Query("search"), Active: boolQuery(c, "active")}
	filter.Page, filter.PageSize = pageParams(c)

	districts, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, districts, pagination)
}

// Get godoc
// @Summary Get district
// @Tags Districts
// @Produce json
// @Param id path string true "District ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /districts/get/{id} [get]
func (h *DistrictHandler) Get(c *gin.Context) {
	district, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, district, nil)
}

// Create godoc
// @Summary Create district
// @Tags Districts
// @Accept json
// @Produce json
// @Param payload body service.CreateDistrictRequest true "District payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /districts/create [post]
func (h *DistrictHandler) Create(c *gin.Context) {
	var req service.CreateDistrictRequest
	if !bindJSON(c, &req, "invalid district payload") {
		return
	}
	district, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, district)
}

// Update godoc
// @Summary Update district
// @Tags Districts
// @Accept json
// @Produce json
// @Param id path string true "District ID"
// @Param payload body service.UpdateDistrictRequest true "District payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /districts/update/{id} [put]
func (h *DistrictHandler) Update(c *gin.Context) {
	var req service.UpdateDistrictRequest
	if !bindJSON(c, &req, "invalid district payload") {
		return
	}
	district, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, district, nil)
}

// Delete godoc
// @Summary Delete district
// @Description Refused while drivers or waste requests still reference the district
// @Tags Districts
// @Param id path string true "District ID"
// @Success 204 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /districts/delete/{id} [delete]
func (h *DistrictHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
