package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/waste-mgmt-api/internal/dto"
	"github.com/noah-isme/waste-mgmt-api/internal/middleware"
	"github.com/noah-isme/waste-mgmt-api/internal/models"
	"github.com/noah-isme/waste-mgmt-api/internal/service"
	appErrors "github.com/noah-isme/waste-mgmt-api/pkg/errors"
)

type paymentServiceMock struct {
	payment    *models.Payment
	list       []models.Payment
	err        error
	lastActor  service.Actor
	lastID     string
	lastUpdate dto.UpdatePaymentRequest
	lastFilter models.PaymentFilter
	deleted    []string
}

func (m *paymentServiceMock) Update(ctx context.Context, actor service.Actor, id string, req dto.UpdatePaymentRequest) (*models.Payment, error) {
	m.lastActor, m.lastID, m.lastUpdate = actor, id, req
	return m.payment, m.err
}

func (m *paymentServiceMock) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return m.err
}

func (m *paymentServiceMock) Get(ctx context.Context, actor service.Actor, id string) (*models.Payment, error) {
	m.lastActor, m.lastID = actor, id
	return m.payment, m.err
}

func (m *paymentServiceMock) List(ctx context.Context, actor service.Actor, filter models.PaymentFilter) ([]models.Payment, *models.Pagination, error) {
	m.lastActor, m.lastFilter = actor, filter
	return m.list, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: len(m.list)}, m.err
}

func TestPaymentHandlerUpdate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	method := models.PaymentMethodCard
	mockSvc := &paymentServiceMock{payment: &models.Payment{ID: "pay-1", Method: &method, Status: models.ProgressCompleted, Amount: 25}}
	handler := NewPaymentHandler(mockSvc)

	c, w := newGinContext(http.MethodPut, "/payments/update/pay-1", []byte(`{"paymentMethod":"CARD","paymentStatus":"COMPLETED"}`))
	c.Params = gin.Params{{Key: "id", Value: "pay-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "user-1", Role: models.RoleUser})

	handler.Update(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pay-1", mockSvc.lastID)
	assert.Equal(t, models.PaymentMethodCard, mockSvc.lastUpdate.PaymentMethod)
	assert.Equal(t, models.ProgressCompleted, mockSvc.lastUpdate.PaymentStatus)
	assert.Contains(t, w.Body.String(), `"paymentStatus":"COMPLETED"`)
}

func TestPaymentHandlerListFilters(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &paymentServiceMock{list: []models.Payment{{ID: "pay-1"}}}
	handler := NewPaymentHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/payments/get?paymentStatus=PENDING&isAdminPayment=true&page_size=10", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.ProgressPending, mockSvc.lastFilter.Status)
	require.NotNil(t, mockSvc.lastFilter.IsAdminPayment)
	assert.True(t, *mockSvc.lastFilter.IsAdminPayment)
	assert.Equal(t, 1, mockSvc.lastFilter.Page)
	assert.Equal(t, 10, mockSvc.lastFilter.PageSize)
}

func TestPaymentHandlerDeleteGuard(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &paymentServiceMock{err: appErrors.Clone(appErrors.ErrConflict, "completed payments cannot be deleted")}
	handler := NewPaymentHandler(mockSvc)

	c, w := newGinContext(http.MethodDelete, "/payments/delete/pay-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "pay-1"}}

	handler.Delete(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, []string{"pay-1"}, mockSvc.deleted)
}

func TestPaymentHandlerGetNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &paymentServiceMock{err: appErrors.Clone(appErrors.ErrNotFound, "payment not found")}
	handler := NewPaymentHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/payments/get/missing", nil)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "user-1", Role: models.RoleUser})

	handler.Get(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}
