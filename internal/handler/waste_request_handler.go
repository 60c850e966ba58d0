package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/waste-mgmt-api/internal/dto"
	"github.com/noah-isme/waste-mgmt-api/internal/models"
	"github.com/noah-isme/waste-mgmt-api/internal/service"
	"github.com/noah-isme/waste-mgmt-api/pkg/response"
)

type wasteRequestService interface {
	Create(ctx context.Context, actor service.Actor, req dto.CreateWasteRequestRequest) (*models.WasteRequest, error)
	Update(ctx context.Context, actor service.Actor, id string, req dto.UpdateWasteRequestRequest) (*models.WasteRequest, error)
	AssignDriver(ctx context.Context, id string, req dto.AssignDriverRequest) (*models.WasteRequest, error)
	RespondAsDriver(ctx context.Context, actor service.Actor, id string, req dto.DriverResponseRequest) (*models.WasteRequest, error)
	UpdateStatus(ctx context.Context, id string, req dto.UpdateRequestStatusRequest) (*models.WasteRequest, error)
	ConfirmCollection(ctx context.Context, actor service.Actor, req dto.ConfirmCollectionRequest) (*models.WasteRequest, error)
	SubmitFeedback(ctx context.Context, actor service.Actor, req dto.FeedbackRequest) (*models.WasteRequest, error)
	Delete(ctx context.Context, actor service.Actor, id string) error
	Get(ctx context.Context, actor service.Actor, id string) (*dto.WasteRequestDetail, error)
	List(ctx context.Context, actor service.Actor, filter models.WasteRequestFilter) ([]models.WasteRequest, *models.Pagination, error)
}

// WasteRequestHandler exposes the pickup request lifecycle.
type WasteRequestHandler struct {
	service wasteRequestService
}

// NewWasteRequestHandler builds a new handler.
func NewWasteRequestHandler(service wasteRequestService) *WasteRequestHandler {
	return &WasteRequestHandler{service: service}
}

// Create godoc
// @Summary Submit a pickup request
// @Description Creates the request and its payment record
// @Tags WasteRequests
// @Accept json
// @Produce json
// @Param payload body dto.CreateWasteRequestRequest true "Request payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /waste-requests/create [post]
func (h *WasteRequestHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.CreateWasteRequestRequest
	if !bindJSON(c, &req, "invalid waste request payload") {
		return
	}
	record, err := h.service.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}

// List godoc
// @Summary List pickup requests
// @Description Admins see every request, drivers their assignments and users their own
// @Tags WasteRequests
// @Produce json
// @Param district query string false "District ID"
// @Param wasteCategory query string false "Category ID"
// @Param requestStatus query string false "Approval status"
// @Param collectionStatus query string false "Collection status"
// @Param paymentStatus query string false "Payment status"
// @Param from query string false "Pickup from"
// @Param to query string false "Pickup to"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /waste-requests/get [get]
func (h *WasteRequestHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	from, err := timeQuery(c, "from")
	if err != nil {
		response.Error(c, err)
		return
	}
	to, err := timeQuery(c, "to")
	if err != nil {
		response.Error(c, err)
		return
	}
	filter := models.WasteRequestFilter{
		DistrictID:        c.Query("district"),
		WasteCategoryID:   c.Query("wasteCategory"),
		RequestStatus:     models.ApprovalStatus(c.Query("requestStatus")),
		TruckDriverStatus: models.ApprovalStatus(c.Query("truckDriverStatus")),
		CollectionStatus:  models.ProgressStatus(c.Query("collectionStatus")),
		PaymentStatus:     models.ProgressStatus(c.Query("paymentStatus")),
		From:              from,
		To:                to,
	}
	filter.Page, filter.PageSize = pageParams(c)

	items, pagination, err := h.service.List(c.Request.Context(), actor, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get a pickup request
// @Tags WasteRequests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /waste-requests/get/{id} [get]
func (h *WasteRequestHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	detail, err := h.service.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Update godoc
// @Summary Edit a pickup request
// @Description Only allowed until the request is approved
// @Tags WasteRequests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.UpdateWasteRequestRequest true "Changes"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /waste-requests/update/{id} [put]
func (h *WasteRequestHandler) Update(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.UpdateWasteRequestRequest
	if !bindJSON(c, &req, "invalid waste request payload") {
		return
	}
	record, err := h.service.Update(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Delete godoc
// @Summary Delete a pickup request
// @Tags WasteRequests
// @Param id path string true "Request ID"
// @Success 204 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /waste-requests/delete/{id} [delete]
func (h *WasteRequestHandler) Delete(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AssignDriver godoc
// @Summary Assign a truck driver
// @Tags WasteRequests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.AssignDriverRequest true "Driver"
// @Success 200 {object} response.Envelope
// @Router /waste-requests/assign-driver/{id} [put]
func (h *WasteRequestHandler) AssignDriver(c *gin.Context) {
	var req dto.AssignDriverRequest
	if !bindJSON(c, &req, "invalid assignment payload") {
		return
	}
	record, err := h.service.AssignDriver(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// UpdateStatus godoc
// @Summary Approve or reject a request
// @Tags WasteRequests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.UpdateRequestStatusRequest true "Decision"
// @Success 200 {object} response.Envelope
// @Router /waste-requests/update-status/{id} [put]
func (h *WasteRequestHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdateRequestStatusRequest
	if !bindJSON(c, &req, "invalid status payload") {
		return
	}
	record, err := h.service.UpdateStatus(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// DriverResponse godoc
// @Summary Accept or reject an assignment
// @Tags WasteRequests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.DriverResponseRequest true "Response"
// @Success 200 {object} response.Envelope
// @Router /waste-requests/driver-response/{id} [put]
func (h *WasteRequestHandler) DriverResponse(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.DriverResponseRequest
	if !bindJSON(c, &req, "invalid driver response payload") {
		return
	}
	record, err := h.service.RespondAsDriver(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// ConfirmCollection godoc
// @Summary Mark waste as collected
// @Tags WasteRequests
// @Accept json
// @Produce json
// @Param payload body dto.ConfirmCollectionRequest true "Request"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /waste-requests/confirm-collection [put]
func (h *WasteRequestHandler) ConfirmCollection(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.ConfirmCollectionRequest
	if !bindJSON(c, &req, "invalid collection payload") {
		return
	}
	record, err := h.service.ConfirmCollection(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Feedback godoc
// @Summary Rate a pickup
// @Tags WasteRequests
// @Accept json
// @Produce json
// @Param payload body dto.FeedbackRequest true "Feedback"
// @Success 200 {object} response.Envelope
// @Router /waste-requests/feedback [put]
func (h *WasteRequestHandler) Feedback(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.FeedbackRequest
	if !bindJSON(c, &req, "invalid feedback payload") {
		return
	}
	record, err := h.service.SubmitFeedback(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}
