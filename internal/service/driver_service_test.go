package service

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/waste-mgmt-api/internal/dto"
	"github.com/noah-isme/waste-mgmt-api/internal/models"
	appErrors "github.com/noah-isme/waste-mgmt-api/pkg/errors"
	"github.com/noah-isme/waste-mgmt-api/pkg/storage"
)

var driverPNG = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}

func newDriverServiceForTest(t *testing.T, db *memDB) *DriverService {
	t.Helper()
	images, err := storage.NewLocalStorage(t.TempDir(), 1024, []string{"image/png"})
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Minute)
	return NewDriverService(newMemUnitOfWork(db), NewRelationshipService(zap.NewNop()), images, signer, validator.New(), zap.NewNop())
}

func validDriverRequest() CreateDriverRequest {
	return CreateDriverRequest{
		Name:          "Kamal Perera",
		Email:         "Kamal@Example.com",
		Phone:         "+94771234567",
		NIC:           "200012345678",
		VehicleNumber: "wp-ab123",
		DistrictID:    "district-c",
		City:          "b",
		UserID:        "driver-user-3",
	}
}

func newDriverFixture(t *testing.T) (*lifecycleFixture, *DriverService) {
	t.Helper()
	f := newLifecycleFixture(t)
	f.db.users["driver-user-3"] = models.User{ID: "driver-user-3", Email: "kamal@example.com", Role: models.RoleDriver, Active: true}
	return f, newDriverServiceForTest(t, f.db)
}

func TestDriverServiceCreateLinksDistrict(t *testing.T) {
	f, svc := newDriverFixture(t)

	driver, err := svc.Create(context.Background(), validDriverRequest())
	require.NoError(t, err)

	assert.Equal(t, "kamal@example.com", driver.Email)
	assert.Equal(t, "WP-AB123", driver.VehicleNumber)
	assert.True(t, driver.Active)
	assert.Equal(t, []string{driver.ID}, f.db.districtDrivers["district-c"])
}

func TestDriverServiceCreateValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CreateDriverRequest)
		want   *appErrors.Error
	}{
		{name: "short nic", mutate: func(r *CreateDriverRequest) { r.NIC = "12345" }, want: appErrors.ErrValidation},
		{name: "vehicle length", mutate: func(r *CreateDriverRequest) { r.VehicleNumber = "WP-1" }, want: appErrors.ErrValidation},
		{name: "city outside district", mutate: func(r *CreateDriverRequest) { r.City = "K" }, want: appErrors.ErrValidation},
		{name: "user is not a driver", mutate: func(r *CreateDriverRequest) { r.UserID = "user-1" }, want: appErrors.ErrValidation},
		{name: "user already linked", mutate: func(r *CreateDriverRequest) { r.UserID = "driver-user-1" }, want: appErrors.ErrConflict},
		{name: "duplicate vehicle", mutate: func(r *CreateDriverRequest) { r.VehicleNumber = "wp-12345" }, want: appErrors.ErrConflict},
		{name: "unknown district", mutate: func(r *CreateDriverRequest) { r.DistrictID = "district-x" }, want: appErrors.ErrNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f, svc := newDriverFixture(t)
			req := validDriverRequest()
			tc.mutate(&req)

			_, err := svc.Create(context.Background(), req)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)
			assert.Len(t, f.db.drivers, 2)
			assert.Empty(t, f.db.districtDrivers["district-c"])
		})
	}
}

func TestDriverServiceUpdateMovesDistrict(t *testing.T) {
	f, svc := newDriverFixture(t)
	driver, err := svc.Create(context.Background(), validDriverRequest())
	require.NoError(t, err)
	district, city := "district-k", "K"

	updated, err := svc.Update(context.Background(), driver.ID, UpdateDriverRequest{DistrictID: &district, City: &city})
	require.NoError(t, err)

	assert.Equal(t, "district-k", updated.DistrictID)
	assert.Empty(t, f.db.districtDrivers["district-c"])
	assert.Equal(t, []string{driver.ID}, f.db.districtDrivers["district-k"])
}

func TestDriverServiceDeleteGuards(t *testing.T) {
	f, svc := newDriverFixture(t)
	created := f.createRequest(t)
	_, err := f.svc.AssignDriver(context.Background(), created.ID, dto.AssignDriverRequest{DriverID: "driver-1"})
	require.NoError(t, err)

	err = svc.Delete(context.Background(), "driver-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrConflict)
	assert.Contains(t, err.Error(), "active driver")

	inactive := false
	_, err = svc.Update(context.Background(), "driver-1", UpdateDriverRequest{Active: &inactive})
	require.NoError(t, err)
	err = svc.Delete(context.Background(), "driver-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "driver has waste requests")

	_, err = svc.Update(context.Background(), "driver-2", UpdateDriverRequest{Active: &inactive})
	require.NoError(t, err)
	f.db.districtDrivers["district-c"] = []string{"driver-1", "driver-2"}
	require.NoError(t, svc.Delete(context.Background(), "driver-2"))
	assert.NotContains(t, f.db.drivers, "driver-2")
	assert.Equal(t, []string{"driver-1"}, f.db.districtDrivers["district-c"])
}

func TestDriverServiceImageLifecycle(t *testing.T) {
	f, svc := newDriverFixture(t)

	driver, err := svc.UploadImage(context.Background(), "driver-1", "Licence.PNG", driverPNG)
	require.NoError(t, err)
	require.Len(t, driver.Images, 1)
	assert.Contains(t, driver.Images[0], "drivers/driver-1/")
	assert.Equal(t, driver.Images, f.db.drivers["driver-1"].Images)

	link, err := svc.ImageLink(context.Background(), "driver-1", 0)
	require.NoError(t, err)
	assert.NotEmpty(t, link.Token)

	file, name, err := svc.OpenImage(link.Token)
	require.NoError(t, err)
	data, err := io.ReadAll(file)
	require.NoError(t, err)
	require.NoError(t, file.Close())
	assert.Equal(t, driverPNG, data)
	assert.Contains(t, name, ".png")

	_, err = svc.ImageLink(context.Background(), "driver-1", 3)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, _, err = svc.OpenImage(link.Token + "x")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestDriverServiceUploadRejectsDisallowedContent(t *testing.T) {
	f, svc := newDriverFixture(t)

	_, err := svc.UploadImage(context.Background(), "driver-1", "notes.txt", []byte("plain text"))
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Empty(t, f.db.drivers["driver-1"].Images)
}
