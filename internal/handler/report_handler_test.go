package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/waste-mgmt-api/internal/dto"
	"github.com/noah-isme/waste-mgmt-api/internal/models"
	appErrors "github.com/noah-isme/waste-mgmt-api/pkg/errors"
)

type reportServiceMock struct {
	file       *dto.ReportFile
	err        error
	lastType   models.ReportType
	lastReq    dto.ReportRequest
	callsCount int
}

func (m *reportServiceMock) Generate(ctx context.Context, reportType models.ReportType, req dto.ReportRequest) (*dto.ReportFile, error) {
	m.callsCount++
	m.lastType = reportType
	m.lastReq = req
	return m.file, m.err
}

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func TestReportHandlerStreamsFile(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &reportServiceMock{
		file: &dto.ReportFile{Filename: "payments-20250301-083000.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.3")},
	}
	handler := NewReportHandler(mockSvc)

	payload, _ := json.Marshal(dto.ReportRequest{DistrictID: "district-c", Status: "COMPLETED"})
	c, w := newGinContext(http.MethodPost, "/reports/payments", payload)

	handler.Payments(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "payments-20250301-083000.pdf")
	assert.Equal(t, "%PDF-1.3", w.Body.String())
	assert.Equal(t, models.ReportPayments, mockSvc.lastType)
	assert.Equal(t, "district-c", mockSvc.lastReq.DistrictID)
}

func TestReportHandlerFormatQueryOverridesBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &reportServiceMock{
		file: &dto.ReportFile{Filename: "drivers.csv", ContentType: "text/csv", Data: []byte("id,name\n")},
	}
	handler := NewReportHandler(mockSvc)

	c, w := newGinContext(http.MethodPost, "/reports/drivers?format=csv", nil)

	handler.Drivers(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.ReportDrivers, mockSvc.lastType)
	assert.Equal(t, models.ReportFormatCSV, mockSvc.lastReq.Format)
}

func TestReportHandlerRejectsMalformedPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &reportServiceMock{}
	handler := NewReportHandler(mockSvc)

	c, w := newGinContext(http.MethodPost, "/reports/districts", []byte(`{"from":"yesterday"}`))

	handler.Districts(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, mockSvc.callsCount)
}

func TestReportHandlerPropagatesServiceError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &reportServiceMock{err: appErrors.Clone(appErrors.ErrValidation, "unsupported report format")}
	handler := NewReportHandler(mockSvc)

	c, w := newGinContext(http.MethodPost, "/reports/waste-requests?format=xlsx", nil)

	handler.WasteRequests(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "unsupported report format")
}
