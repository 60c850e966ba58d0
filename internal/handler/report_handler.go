package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/waste-mgmt-api/internal/dto"
	"github.com/noah-isme/waste-mgmt-api/internal/models"
	"github.com/noah-isme/waste-mgmt-api/pkg/response"
)

type reportService interface {
	Generate(ctx context.Context, reportType models.ReportType, req dto.ReportRequest) (*dto.ReportFile, error)
}

// ReportHandler exposes downloadable PDF and CSV reports.
type ReportHandler struct {
	service reportService
}

// NewReportHandler constructs handler.
func NewReportHandler(service reportService) *ReportHandler {
	return &ReportHandler{service: service}
}

// WasteRequests godoc
// @Summary Waste request report
// @Tags Reports
// @Accept json
// @Produce application/pdf,text/csv
// @Param payload body dto.ReportRequest false "Report filters"
// @Success 200 {file} binary
// @Router /reports/waste-requests [post]
func (h *ReportHandler) WasteRequests(c *gin.Context) {
	h.generate(c, models.ReportWasteRequests)
}

// Payments godoc
// @Summary Payment report
// @Tags Reports
// @Accept json
// @Produce application/pdf,text/csv
// @Param payload body dto.ReportRequest false "Report filters"
// @Success 200 {file} binary
// @Router /reports/payments [post]
func (h *ReportHandler) Payments(c *gin.Context) {
	h.generate(c, models.ReportPayments)
}

// Drivers godoc
// @Summary Driver workload report
// @Tags Reports
// @Accept json
// @Produce application/pdf,text/csv
// @Param payload body dto.ReportRequest false "Report filters"
// @Success 200 {file} binary
// @Router /reports/drivers [post]
func (h *ReportHandler) Drivers(c *gin.Context) {
	h.generate(c, models.ReportDrivers)
}

// Districts godoc
// @Summary District volume report
// @Tags Reports
// @Accept json
// @Produce application/pdf,text/csv
// @Param payload body dto.ReportRequest false "Report filters"
// @Success 200 {file} binary
// @Router /reports/districts [post]
func (h *ReportHandler) Districts(c *gin.Context) {
	h.generate(c, models.ReportDistricts)
}

func (h *ReportHandler) generate(c *gin.Context, reportType models.ReportType) {
	var req dto.ReportRequest
	if c.Request.ContentLength != 0 {
		if !bindJSON(c, &req, "invalid report payload") {
			return
		}
	}
	if format := c.Query("format"); format != "" {
		req.Format = models.ReportFormat(format)
	}
	file, err := h.service.Generate(c.Request.Context(), reportType, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, file.ContentType, file.Filename, file.Data)
}
