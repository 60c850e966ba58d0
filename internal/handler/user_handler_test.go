package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/waste-mgmt-api/internal/middleware"
	"github.com/noah-isme/waste-mgmt-api/internal/models"
	"github.com/noah-isme/waste-mgmt-api/internal/service"
	appErrors "github.com/noah-isme/waste-mgmt-api/pkg/errors"
)

type userServiceMock struct {
	users      []models.User
	err        error
	lastFilter models.UserFilter
	lastActor  service.Actor
	deleted    string
}

func (m *userServiceMock) List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	m.lastFilter = filter
	return m.users, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: len(m.users)}, m.err
}

func (m *userServiceMock) Get(ctx context.Context, id string) (*models.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &models.User{ID: id}, nil
}

func (m *userServiceMock) Create(ctx context.Context, actor service.Actor, req service.CreateUserRequest) (*models.User, error) {
	m.lastActor = actor
	return &models.User{ID: "new", Email: req.Email, Role: req.Role}, m.err
}

func (m *userServiceMock) Update(ctx context.Context, actor service.Actor, id string, req service.UpdateUserRequest) (*models.User, error) {
	m.lastActor = actor
	return &models.User{ID: id, FullName: req.FullName, Role: req.Role}, m.err
}

func (m *userServiceMock) Delete(ctx context.Context, actor service.Actor, id string) error {
	m.lastActor = actor
	if m.err == nil {
		m.deleted = id
	}
	return m.err
}

func TestUserHandlerListParsesFilter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &userServiceMock{users: []models.User{{ID: "d1", Role: models.RoleDriver}}}
	handler := NewUserHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/users?role=DRIVER&active=true&search=silva&page=2&page_size=5&sort_by=email", nil)
	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, mockSvc.lastFilter.Role)
	assert.Equal(t, models.RoleDriver, *mockSvc.lastFilter.Role)
	require.NotNil(t, mockSvc.lastFilter.Active)
	assert.True(t, *mockSvc.lastFilter.Active)
	assert.Equal(t, "silva", mockSvc.lastFilter.Search)
	assert.Equal(t, 2, mockSvc.lastFilter.Page)
	assert.Equal(t, 5, mockSvc.lastFilter.PageSize)
	assert.Equal(t, "email", mockSvc.lastFilter.SortBy)
}

func TestUserHandlerListIgnoresMalformedActive(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &userServiceMock{}
	handler := NewUserHandler(mockSvc)

	c, w := newGinContext(http.MethodGet, "/users?active=maybe", nil)
	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, mockSvc.lastFilter.Active)
	assert.Nil(t, mockSvc.lastFilter.Role)
	assert.Equal(t, 1, mockSvc.lastFilter.Page)
	assert.Equal(t, 20, mockSvc.lastFilter.PageSize)
}

func TestUserHandlerCreatePassesActor(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &userServiceMock{}
	handler := NewUserHandler(mockSvc)

	body := []byte(`{"email":"driver@example.com","fullName":"Kasun","role":"DRIVER","password":"secret123"}`)
	c, w := newGinContext(http.MethodPost, "/users", body)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})

	handler.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "admin-1", mockSvc.lastActor.UserID)
	assert.Contains(t, w.Body.String(), `"driver@example.com"`)
}

func TestUserHandlerDeleteSelfIsForbidden(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &userServiceMock{err: appErrors.Clone(appErrors.ErrForbidden, "cannot deactivate your own account")}
	handler := NewUserHandler(mockSvc)

	c, w := newGinContext(http.MethodDelete, "/users/admin-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "admin-1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})

	handler.Delete(c)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, mockSvc.deleted)
}

func TestUserHandlerDeleteWithoutClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &userServiceMock{}
	handler := NewUserHandler(mockSvc)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodDelete, "/users/u1", nil)
	c.Params = gin.Params{{Key: "id", Value: "u1"}}

	handler.Delete(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, mockSvc.deleted)
}
