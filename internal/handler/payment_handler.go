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

type paymentService interface {
	Update(ctx context.Context, actor service.Actor, id string, req dto.UpdatePaymentRequest) (*models.Payment, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, actor service.Actor, id string) (*models.Payment, error)
	List(ctx context.Context, actor service.Actor, filter models.PaymentFilter) ([]models.Payment, *models.Pagination, error)
}

// PaymentHandler exposes payment endpoints. Payments are created alongside their waste request.
type PaymentHandler struct {
	service paymentService
}

// NewPaymentHandler builds a new handler.
func NewPaymentHandler(service paymentService) *PaymentHandler {
	return &PaymentHandler{service: service}
}

// List godoc
// @Summary List payments
// @Tags Payments
// @Produce json
// @Param paymentStatus query string false "Payment status"
// @Param isAdminPayment query bool false "Paid by the municipality"
// @Param from query string false "Due from"
// @Param to query string false "Due to"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /payments/get [get]
func (h *PaymentHandler) List(c *gin.Context) {
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
	filter := models.PaymentFilter{
		Status:         models.ProgressStatus(c.Query("paymentStatus")),
		IsAdminPayment: boolQuery(c, "isAdminPayment"),
		From:           from,
		To:             to,
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
// @Summary Get a payment
// @Tags Payments
// @Produce json
// @Param id path string true "Payment ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /payments/get/{id} [get]
func (h *PaymentHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	payment, err := h.service.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payment, nil)
}

// Update godoc
// @Summary Settle a payment
// @Description Records the method and status, mirroring the status onto the waste request
// @Tags Payments
// @Accept json
// @Produce json
// @Param id path string true "Payment ID"
// @Param payload body dto.UpdatePaymentRequest true "Payment"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /payments/update/{id} [put]
func (h *PaymentHandler) Update(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.UpdatePaymentRequest
	if !bindJSON(c, &req, "invalid payment payload") {
		return
	}
	payment, err := h.service.Update(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payment, nil)
}

// Delete godoc
// @Summary Cancel a payment
// @Tags Payments
// @Param id path string true "Payment ID"
// @Success 204 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /payments/delete/{id} [delete]
func (h *PaymentHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
