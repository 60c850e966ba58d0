package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/waste-mgmt-api/internal/models"
	appErrors "github.com/noah-isme/waste-mgmt-api/pkg/errors"
)

type mockUserRepo struct {
	users          map[string]*models.User
	listUsers      []models.User
	listCount      int
	listErr        error
	findByIDErr    error
	findByEmailErr error
}

func (m *mockUserRepo) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	if m.listErr != nil {
		return nil, 0, m.listErr
	}
	if m.listUsers != nil {
		return m.listUsers, m.listCount, nil
	}
	var users []models.User
	for _, u := range m.users {
		users = append(users, *u)
	}
	return users, len(users), nil
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if m.findByIDErr != nil {
		return nil, m.findByIDErr
	}
	if user, ok := m.users[id]; ok {
		copy := *user
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.findByEmailErr != nil {
		return nil, m.findByEmailErr
	}
	for _, u := range m.users {
		if u.Email == email {
			copy := *u
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) Create(ctx context.Context, user *models.User) error {
	if m.users == nil {
		m.users = make(map[string]*models.User)
	}
	copy := *user
	m.users[user.ID] = &copy
	return nil
}

func (m *mockUserRepo) Update(ctx context.Context, user *models.User) error {
	if m.users == nil {
		m.users = make(map[string]*models.User)
	}
	copy := *user
	m.users[user.ID] = &copy
	return nil
}

func (m *mockUserRepo) Delete(ctx context.Context, id string) error {
	if user, ok := m.users[id]; ok {
		user.Active = false
		m.users[id] = user
		return nil
	}
	return sql.ErrNoRows
}

func TestUserServiceList(t *testing.T) {
	repo := &mockUserRepo{listUsers: []models.User{{ID: "1", Email: "a@example.com"}}, listCount: 1}
	svc := NewUserService(repo, validator.New(), zap.NewNop())
	users, pagination, err := svc.List(context.Background(), models.UserFilter{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Len(t, users, 1)
	assert.Equal(t, 1, pagination.TotalCount)
}

func TestUserServiceCreateDriverAccount(t *testing.T) {
	repo := &mockUserRepo{users: make(map[string]*models.User)}
	repo.findByEmailErr = sql.ErrNoRows
	svc := NewUserService(repo, validator.New(), zap.NewNop())
	user, err := svc.Create(context.Background(), Actor{UserID: "admin", Role: models.RoleAdmin}, CreateUserRequest{
		Email:    "DRIVER@EXAMPLE.COM",
		FullName: "Nimal",
		Password: "secret1",
		Role:     models.RoleDriver,
		Phone:    "0711234567",
		Active:   true,
	})
	require.NoError(t, err)
	assert.Equal(t, "driver@example.com", user.Email)
	assert.Equal(t, models.RoleDriver, user.Role)
	require.NotNil(t, user.Phone)
	assert.Nil(t, user.NIC)
	assert.Contains(t, repo.users, user.ID)
}

func TestUserServiceCreateRejectsUnknownRole(t *testing.T) {
	repo := &mockUserRepo{users: make(map[string]*models.User)}
	svc := NewUserService(repo, validator.New(), zap.NewNop())
	_, err := svc.Create(context.Background(), Actor{UserID: "admin", Role: models.RoleAdmin}, CreateUserRequest{
		Email: "x@example.com", FullName: "X", Password: "secret1", Role: "SUPERVISOR",
	})
	require.Error(t, err)
	assert.Empty(t, repo.users)
}

func TestUserServiceUpdate(t *testing.T) {
	repo := &mockUserRepo{users: map[string]*models.User{"1": {ID: "1", Email: "a@example.com", FullName: "Old", Role: models.RoleUser, Active: true}}}
	svc := NewUserService(repo, validator.New(), zap.NewNop())
	active := false
	user, err := svc.Update(context.Background(), Actor{UserID: "admin", Role: models.RoleAdmin}, "1", UpdateUserRequest{FullName: "New", Role: models.RoleDriver, Active: &active})
	require.NoError(t, err)
	assert.Equal(t, models.RoleDriver, user.Role)
	assert.False(t, user.Active)
}

func TestUserServiceUpdateOwnRoleForbidden(t *testing.T) {
	repo := &mockUserRepo{users: map[string]*models.User{"admin": {ID: "admin", FullName: "Admin", Role: models.RoleAdmin, Active: true}}}
	svc := NewUserService(repo, validator.New(), zap.NewNop())
	_, err := svc.Update(context.Background(), Actor{UserID: "admin", Role: models.RoleAdmin}, "admin", UpdateUserRequest{FullName: "Admin", Role: models.RoleUser})
	require.Error(t, err)
	assert.Equal(t, models.RoleAdmin, repo.users["admin"].Role)
}

func TestUserServiceDelete(t *testing.T) {
	repo := &mockUserRepo{users: map[string]*models.User{"1": {ID: "1", Email: "a@example.com", FullName: "Old", Role: models.RoleUser, Active: true}}}
	svc := NewUserService(repo, validator.New(), zap.NewNop())
	err := svc.Delete(context.Background(), Actor{UserID: "admin", Role: models.RoleAdmin}, "1")
	require.NoError(t, err)
	assert.False(t, repo.users["1"].Active)
}

func TestUserServiceUpdateContactDetails(t *testing.T) {
	repo := &mockUserRepo{users: map[string]*models.User{"1": {ID: "1", FullName: "Sunil", Role: models.RoleUser, Active: true}}}
	svc := NewUserService(repo, validator.New(), zap.NewNop())
	nic, phone := "199912345678", "0779876543"

	user, err := svc.Update(context.Background(), Actor{UserID: "admin", Role: models.RoleAdmin}, "1", UpdateUserRequest{
		FullName: " Sunil Silva ",
		Role:     models.RoleUser,
		NIC:      &nic,
		Phone:    &phone,
	})
	require.NoError(t, err)
	assert.Equal(t, "Sunil Silva", user.FullName)
	assert.True(t, user.Active)
	assert.True(t, user.CanRequestPickup())
}

func TestUserServiceCannotDeactivateSelf(t *testing.T) {
	repo := &mockUserRepo{users: map[string]*models.User{"admin": {ID: "admin", FullName: "Admin", Role: models.RoleAdmin, Active: true}}}
	svc := NewUserService(repo, validator.New(), zap.NewNop())
	admin := Actor{UserID: "admin", Role: models.RoleAdmin}
	inactive := false

	_, err := svc.Update(context.Background(), admin, "admin", UpdateUserRequest{FullName: "Admin", Role: models.RoleAdmin, Active: &inactive})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	err = svc.Delete(context.Background(), admin, "admin")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
	assert.True(t, repo.users["admin"].Active)
}

func TestUserServiceDeleteMissingUser(t *testing.T) {
	svc := NewUserService(&mockUserRepo{users: map[string]*models.User{}}, validator.New(), zap.NewNop())

	err := svc.Delete(context.Background(), Actor{UserID: "admin", Role: models.RoleAdmin}, "ghost")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}
