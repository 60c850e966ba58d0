package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/waste-mgmt-api/internal/dto"
	"github.com/noah-isme/waste-mgmt-api/internal/models"
	"github.com/noah-isme/waste-mgmt-api/internal/repository"
	appErrors "github.com/noah-isme/waste-mgmt-api/pkg/errors"
	"github.com/noah-isme/waste-mgmt-api/pkg/middleware/requestid"
)

var lifecycleNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

type lifecycleFixture struct {
	db      *memDB
	uow     *memUnitOfWork
	svc     *WasteRequestService
	citizen Actor
	admin   Actor
}

func newLifecycleFixture(t *testing.T) *lifecycleFixture {
	t.Helper()
	db := newMemDB()
	nic, phone := "199012345678", "+94770000001"
	db.users["user-1"] = models.User{ID: "user-1", Email: "citizen@example.com", FullName: "Citizen", Role: models.RoleUser, NIC: &nic, Phone: &phone, Active: true}
	db.users["user-2"] = models.User{ID: "user-2", Email: "other@example.com", FullName: "Other", Role: models.RoleUser, NIC: &nic, Phone: &phone, Active: true}
	db.users["driver-user-1"] = models.User{ID: "driver-user-1", Email: "driver@example.com", Role: models.RoleDriver, Active: true}
	db.districts["district-c"] = models.District{ID: "district-c", Name: "Colombo", Cities: pq.StringArray{"A", "B"}, Active: true, DistrictCode: "CMB"}
	db.districts["district-k"] = models.District{ID: "district-k", Name: "Kandy", Cities: pq.StringArray{"K"}, Active: true, DistrictCode: "KDY"}
	db.categories["plastic"] = models.WasteCategory{ID: "plastic", Name: "Plastic", PricePerKg: 2.5, Active: true, IsUserPaymentRequired: true}
	db.categories["hazard"] = models.WasteCategory{ID: "hazard", Name: "Hazardous", PricePerKg: 4, Active: true, IsUserPaymentRequired: false}
	db.drivers["driver-1"] = models.Driver{ID: "driver-1", Name: "Nimal", Phone: "+94770000009", VehicleNumber: "WP-12345", DistrictID: "district-c", City: "A", Active: true, UserID: "driver-user-1"}
	db.drivers["driver-2"] = models.Driver{ID: "driver-2", Name: "Sunil", VehicleNumber: "WP-54321", DistrictID: "district-c", City: "B", Active: true, UserID: "driver-user-2"}

	uow := newMemUnitOfWork(db)
	svc := NewWasteRequestService(uow, NewRelationshipService(zap.NewNop()), nil, validator.New(), zap.NewNop(), WasteRequestConfig{})
	svc.now = func() time.Time { return lifecycleNow }
	return &lifecycleFixture{
		db:      db,
		uow:     uow,
		svc:     svc,
		citizen: Actor{UserID: "user-1", Role: models.RoleUser},
		admin:   Actor{UserID: "admin-1", Role: models.RoleAdmin},
	}
}

func (f *lifecycleFixture) createRequest(t *testing.T) *models.WasteRequest {
	t.Helper()
	created, err := f.svc.Create(context.Background(), f.citizen, validCreateRequest())
	require.NoError(t, err)
	return created
}

func validCreateRequest() dto.CreateWasteRequestRequest {
	return dto.CreateWasteRequestRequest{
		WasteCategoryID: "plastic",
		DistrictID:      "district-c",
		City:            "A",
		Address:         "12 Temple Road",
		Location:        models.GeoPoint{Type: "Point", Coordinates: []float64{79.86, 6.92}},
		PickUpDate:      lifecycleNow.Add(72 * time.Hour),
		Quantity:        10,
		EstimatedPrice:  25,
	}
}

func TestWasteRequestServiceCreateDerivesPayment(t *testing.T) {
	f := newLifecycleFixture(t)

	created := f.createRequest(t)

	require.NotNil(t, created.PaymentID)
	payment, ok := f.db.payments[*created.PaymentID]
	require.True(t, ok)
	assert.Equal(t, 25.0, payment.Amount)
	assert.False(t, payment.IsAdminPayment)
	assert.Equal(t, models.ProgressPending, payment.Status)
	assert.Equal(t, created.PickUpDate.AddDate(0, 0, -1), payment.DueDate)
	assert.Equal(t, created.ID, payment.WasteRequestID)
	assert.Equal(t, "user-1", payment.UserID)

	assert.Equal(t, models.ApprovalPending, created.RequestStatus)
	assert.Equal(t, models.ApprovalPending, created.TruckDriverStatus)
	assert.Equal(t, models.ProgressPending, created.CollectionStatus)
	assert.Equal(t, models.ProgressPending, created.PaymentStatus)
	assert.Equal(t, []string{created.ID}, f.db.districtRequests["district-c"])
	assert.Equal(t, []models.EventType{models.EventRequestCreated}, f.db.eventTypes())
}

func TestWasteRequestServiceEventsCarryRequestID(t *testing.T) {
	f := newLifecycleFixture(t)
	ctx := requestid.NewContext(context.Background(), "req-7")

	_, err := f.svc.Create(ctx, f.citizen, validCreateRequest())
	require.NoError(t, err)

	require.Len(t, f.db.events, 1)
	assert.Equal(t, "req-7", f.db.events[0].CorrelationID)
}

func TestWasteRequestServiceCreateAdminPaidCategory(t *testing.T) {
	f := newLifecycleFixture(t)
	req := validCreateRequest()
	req.WasteCategoryID = "hazard"

	created, err := f.svc.Create(context.Background(), f.citizen, req)
	require.NoError(t, err)

	assert.True(t, f.db.payments[*created.PaymentID].IsAdminPayment)
}

func TestWasteRequestServiceCreateRejectsShortLeadTime(t *testing.T) {
	f := newLifecycleFixture(t)
	req := validCreateRequest()
	req.PickUpDate = lifecycleNow.Add(24 * time.Hour)

	_, err := f.svc.Create(context.Background(), f.citizen, req)
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Contains(t, err.Error(), "at least 2 days")
	assert.Empty(t, f.db.requests)
	assert.Empty(t, f.db.payments)
}

func TestWasteRequestServiceCreateValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*dto.CreateWasteRequestRequest)
		actor  Actor
		want   *appErrors.Error
	}{
		{name: "city outside district", mutate: func(r *dto.CreateWasteRequestRequest) { r.City = "K" }, want: appErrors.ErrValidation},
		{name: "bad location", mutate: func(r *dto.CreateWasteRequestRequest) { r.Location.Coordinates = []float64{200, 6} }, want: appErrors.ErrValidation},
		{name: "zero quantity", mutate: func(r *dto.CreateWasteRequestRequest) { r.Quantity = 0 }, want: appErrors.ErrValidation},
		{name: "unknown category", mutate: func(r *dto.CreateWasteRequestRequest) { r.WasteCategoryID = "glass" }, want: appErrors.ErrNotFound},
		{name: "unknown district", mutate: func(r *dto.CreateWasteRequestRequest) { r.DistrictID = "district-x" }, want: appErrors.ErrNotFound},
		{name: "profile incomplete", actor: Actor{UserID: "driver-user-1", Role: models.RoleDriver}, want: appErrors.ErrValidation},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newLifecycleFixture(t)
			req := validCreateRequest()
			if tc.mutate != nil {
				tc.mutate(&req)
			}
			actor := f.citizen
			if tc.actor.UserID != "" {
				actor = tc.actor
			}

			_, err := f.svc.Create(context.Background(), actor, req)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)
			assert.Empty(t, f.db.requests)
			assert.Empty(t, f.db.districtRequests["district-c"])
			assert.Empty(t, f.db.events)
		})
	}
}

func TestWasteRequestServiceDeleteAcceptedIsConflict(t *testing.T) {
	f := newLifecycleFixture(t)
	created := f.createRequest(t)
	_, err := f.svc.UpdateStatus(context.Background(), created.ID, dto.UpdateRequestStatusRequest{RequestStatus: models.ApprovalAccepted})
	require.NoError(t, err)
	before := f.db.clone()

	err = f.svc.Delete(context.Background(), f.citizen, created.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrConflict)
	assert.Equal(t, before.requests, f.db.requests)
	assert.Equal(t, before.payments, f.db.payments)
	assert.Equal(t, before.districtRequests, f.db.districtRequests)
}

func TestWasteRequestServiceDeleteCascades(t *testing.T) {
	f := newLifecycleFixture(t)
	created := f.createRequest(t)
	_, err := f.svc.AssignDriver(context.Background(), created.ID, dto.AssignDriverRequest{DriverID: "driver-1"})
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(context.Background(), f.citizen, created.ID))

	assert.Empty(t, f.db.requests)
	assert.Empty(t, f.db.payments)
	assert.Empty(t, f.db.districtRequests["district-c"])
	assert.Empty(t, f.db.driverRequests["driver-1"])
	assert.Equal(t, models.EventRequestDeleted, f.db.events[len(f.db.events)-1].Type)
}

func TestWasteRequestServiceDeleteOtherUsersRequestForbidden(t *testing.T) {
	f := newLifecycleFixture(t)
	created := f.createRequest(t)

	err := f.svc.Delete(context.Background(), Actor{UserID: "user-2", Role: models.RoleUser}, created.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
	assert.Len(t, f.db.requests, 1)
}

func TestWasteRequestServiceAssignDriver(t *testing.T) {
	f := newLifecycleFixture(t)
	created := f.createRequest(t)

	assigned, err := f.svc.AssignDriver(context.Background(), created.ID, dto.AssignDriverRequest{DriverID: "driver-1"})
	require.NoError(t, err)
	assert.True(t, assigned.AssignedTo("driver-1"))
	assert.Equal(t, []string{created.ID}, f.db.driverRequests["driver-1"])

	_, err = f.svc.AssignDriver(context.Background(), created.ID, dto.AssignDriverRequest{DriverID: "driver-1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrConflict)

	reassigned, err := f.svc.AssignDriver(context.Background(), created.ID, dto.AssignDriverRequest{DriverID: "driver-2"})
	require.NoError(t, err)
	assert.True(t, reassigned.AssignedTo("driver-2"))
	assert.Empty(t, f.db.driverRequests["driver-1"])
	assert.Equal(t, []string{created.ID}, f.db.driverRequests["driver-2"])
}

func TestWasteRequestServiceAssignAfterDriverAcceptedIsConflict(t *testing.T) {
	f := newLifecycleFixture(t)
	created := f.createRequest(t)
	_, err := f.svc.AssignDriver(context.Background(), created.ID, dto.AssignDriverRequest{DriverID: "driver-1"})
	require.NoError(t, err)
	_, err = f.svc.RespondAsDriver(context.Background(), Actor{UserID: "driver-user-1", Role: models.RoleDriver}, created.ID, dto.DriverResponseRequest{TruckDriverStatus: models.ApprovalAccepted})
	require.NoError(t, err)
	before := f.db.clone()

	_, err = f.svc.AssignDriver(context.Background(), created.ID, dto.AssignDriverRequest{DriverID: "driver-2"})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrConflict)
	assert.Equal(t, before.requests, f.db.requests)
	assert.Equal(t, before.driverRequests, f.db.driverRequests)
}

func TestWasteRequestServiceAssignInactiveDriver(t *testing.T) {
	f := newLifecycleFixture(t)
	created := f.createRequest(t)
	inactive := f.db.drivers["driver-2"]
	inactive.Active = false
	f.db.drivers["driver-2"] = inactive

	_, err := f.svc.AssignDriver(context.Background(), created.ID, dto.AssignDriverRequest{DriverID: "driver-2"})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Empty(t, f.db.driverRequests["driver-2"])
}

func TestWasteRequestServiceCreateRejectsLowercaseGeoJSONType(t *testing.T) {
	f := newLifecycleFixture(t)
	req := validCreateRequest()
	req.Location.Type = "point"

	_, err := f.svc.Create(context.Background(), f.citizen, req)
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Empty(t, f.db.requests)
}

func TestWasteRequestServiceUpdateAssignsDriverLikeAssignDriver(t *testing.T) {
	f := newLifecycleFixture(t)
	created := f.createRequest(t)
	driverID := "driver-1"

	updated, err := f.svc.Update(context.Background(), f.admin, created.ID, dto.UpdateWasteRequestRequest{DriverID: &driverID})
	require.NoError(t, err)
	assert.True(t, updated.AssignedTo("driver-1"))
	assert.Equal(t, []string{created.ID}, f.db.driverRequests["driver-1"])
	assert.Equal(t, []models.EventType{models.EventRequestCreated, models.EventDriverAssigned}, f.db.eventTypes())

	before := f.db.clone()
	_, err = f.svc.Update(context.Background(), f.admin, created.ID, dto.UpdateWasteRequestRequest{DriverID: &driverID})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrConflict)
	assert.Contains(t, err.Error(), "already assigned")
	assert.Equal(t, before.requests, f.db.requests)
	assert.Len(t, f.db.events, 2)
}

func TestWasteRequestServiceUpdateCategoryRederivesPayer(t *testing.T) {
	f := newLifecycleFixture(t)
	created := f.createRequest(t)
	category := "hazard"

	_, err := f.svc.Update(context.Background(), f.citizen, created.ID, dto.UpdateWasteRequestRequest{WasteCategoryID: &category})
	require.NoError(t, err)

	assert.True(t, f.db.payments[*created.PaymentID].IsAdminPayment)
	assert.Equal(t, "hazard", f.db.requests[created.ID].WasteCategoryID)
}

func TestWasteRequestServiceUpdatePropagatesPriceAndDate(t *testing.T) {
	f := newLifecycleFixture(t)
	created := f.createRequest(t)
	price := 40.0
	pickUp := lifecycleNow.Add(96 * time.Hour)

	_, err := f.svc.Update(context.Background(), f.citizen, created.ID, dto.UpdateWasteRequestRequest{EstimatedPrice: &price, PickUpDate: &pickUp})
	require.NoError(t, err)

	payment := f.db.payments[*created.PaymentID]
	assert.Equal(t, 40.0, payment.Amount)
	assert.Equal(t, pickUp.AddDate(0, 0, -1), payment.DueDate)
}

func TestWasteRequestServiceUpdateMovesDistrict(t *testing.T) {
	f := newLifecycleFixture(t)
	created := f.createRequest(t)
	district, city := "district-k", "K"

	updated, err := f.svc.Update(context.Background(), f.citizen, created.ID, dto.UpdateWasteRequestRequest{DistrictID: &district, City: &city})
	require.NoError(t, err)

	assert.Equal(t, "district-k", updated.DistrictID)
	assert.Empty(t, f.db.districtRequests["district-c"])
	assert.Equal(t, []string{created.ID}, f.db.districtRequests["district-k"])
}

func TestWasteRequestServiceUpdateCityMustMatchDistrict(t *testing.T) {
	f := newLifecycleFixture(t)
	created := f.createRequest(t)
	district := "district-k"

	_, err := f.svc.Update(context.Background(), f.citizen, created.ID, dto.UpdateWasteRequestRequest{DistrictID: &district})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	assert.Equal(t, []string{created.ID}, f.db.districtRequests["district-c"])
}

func TestWasteRequestServiceUpdateFrozenAfterAcceptance(t *testing.T) {
	f := newLifecycleFixture(t)
	created := f.createRequest(t)
	_, err := f.svc.UpdateStatus(context.Background(), created.ID, dto.UpdateRequestStatusRequest{RequestStatus: models.ApprovalAccepted})
	require.NoError(t, err)
	address := "99 New Street"

	_, err = f.svc.Update(context.Background(), f.admin, created.ID, dto.UpdateWasteRequestRequest{Address: &address})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrConflict)
	assert.Equal(t, "12 Temple Road", f.db.requests[created.ID].Address)

	_, err = f.svc.UpdateStatus(context.Background(), created.ID, dto.UpdateRequestStatusRequest{RequestStatus: models.ApprovalRejected})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrConflict)
}

func TestWasteRequestServiceUpdateStatusFieldsAdminOnly(t *testing.T) {
	f := newLifecycleFixture(t)
	created := f.createRequest(t)
	status := models.ApprovalAccepted

	_, err := f.svc.Update(context.Background(), f.citizen, created.ID, dto.UpdateWasteRequestRequest{RequestStatus: &status})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	paid := models.ProgressCompleted
	updated, err := f.svc.Update(context.Background(), f.admin, created.ID, dto.UpdateWasteRequestRequest{PaymentStatus: &paid})
	require.NoError(t, err)
	assert.Equal(t, models.ProgressCompleted, updated.PaymentStatus)
	assert.Equal(t, models.ProgressCompleted, f.db.payments[*created.PaymentID].Status)
}

func TestWasteRequestServiceUpdateStatusRejectsPending(t *testing.T) {
	f := newLifecycleFixture(t)
	created := f.createRequest(t)

	_, err := f.svc.UpdateStatus(context.Background(), created.ID, dto.UpdateRequestStatusRequest{RequestStatus: models.ApprovalPending})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestWasteRequestServiceRespondAsDriver(t *testing.T) {
	f := newLifecycleFixture(t)
	created := f.createRequest(t)
	driverActor := Actor{UserID: "driver-user-1", Role: models.RoleDriver}

	_, err := f.svc.RespondAsDriver(context.Background(), driverActor, created.ID, dto.DriverResponseRequest{TruckDriverStatus: models.ApprovalAccepted})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrConflict, "no driver assigned yet")

	_, err = f.svc.AssignDriver(context.Background(), created.ID, dto.AssignDriverRequest{DriverID: "driver-2"})
	require.NoError(t, err)
	_, err = f.svc.RespondAsDriver(context.Background(), driverActor, created.ID, dto.DriverResponseRequest{TruckDriverStatus: models.ApprovalAccepted})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = f.svc.AssignDriver(context.Background(), created.ID, dto.AssignDriverRequest{DriverID: "driver-1"})
	require.NoError(t, err)
	responded, err := f.svc.RespondAsDriver(context.Background(), driverActor, created.ID, dto.DriverResponseRequest{TruckDriverStatus: models.ApprovalRejected})
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalRejected, responded.TruckDriverStatus)
	assert.True(t, responded.AssignedTo("driver-1"))

	_, err = f.svc.RespondAsDriver(context.Background(), driverActor, created.ID, dto.DriverResponseRequest{TruckDriverStatus: models.ApprovalAccepted})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrConflict)
}

func TestWasteRequestServiceReassignAfterRejectionResetsResponse(t *testing.T) {
	f := newLifecycleFixture(t)
	created := f.createRequest(t)
	_, err := f.svc.AssignDriver(context.Background(), created.ID, dto.AssignDriverRequest{DriverID: "driver-1"})
	require.NoError(t, err)
	_, err = f.svc.RespondAsDriver(context.Background(), f.admin, created.ID, dto.DriverResponseRequest{TruckDriverStatus: models.ApprovalRejected})
	require.NoError(t, err)

	reassigned, err := f.svc.AssignDriver(context.Background(), created.ID, dto.AssignDriverRequest{DriverID: "driver-2"})
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalPending, reassigned.TruckDriverStatus)
}

func TestWasteRequestServiceConfirmCollectionIsIdempotent(t *testing.T) {
	f := newLifecycleFixture(t)
	created := f.createRequest(t)
	req := dto.ConfirmCollectionRequest{WasteRequestID: created.ID}

	first, err := f.svc.ConfirmCollection(context.Background(), f.admin, req)
	require.NoError(t, err)
	second, err := f.svc.ConfirmCollection(context.Background(), f.admin, req)
	require.NoError(t, err)

	assert.Equal(t, models.ProgressCompleted, first.CollectionStatus)
	assert.Equal(t, models.ProgressCompleted, second.CollectionStatus)
	assert.Equal(t, []models.EventType{
		models.EventRequestCreated,
		models.EventCollectionConfirmed,
		models.EventCollectionConfirmed,
	}, f.db.eventTypes())
}

func TestWasteRequestServiceConfirmCollectionRequiresAssignedDriver(t *testing.T) {
	f := newLifecycleFixture(t)
	created := f.createRequest(t)
	req := dto.ConfirmCollectionRequest{WasteRequestID: created.ID}
	assignedDriver := Actor{UserID: "driver-user-1", Role: models.RoleDriver}
	otherDriver := Actor{UserID: "driver-user-2", Role: models.RoleDriver}

	_, err := f.svc.ConfirmCollection(context.Background(), assignedDriver, req)
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrForbidden, "nobody assigned yet")

	_, err = f.svc.AssignDriver(context.Background(), created.ID, dto.AssignDriverRequest{DriverID: "driver-1"})
	require.NoError(t, err)

	_, err = f.svc.ConfirmCollection(context.Background(), otherDriver, req)
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
	assert.Equal(t, models.ProgressPending, f.db.requests[created.ID].CollectionStatus)

	confirmed, err := f.svc.ConfirmCollection(context.Background(), assignedDriver, req)
	require.NoError(t, err)
	assert.Equal(t, models.ProgressCompleted, confirmed.CollectionStatus)
}

func TestWasteRequestServiceFullyCompletedAfterEveryTrack(t *testing.T) {
	f := newLifecycleFixture(t)
	created := f.createRequest(t)
	payments := NewPaymentService(f.uow, nil, validator.New(), zap.NewNop())
	driverActor := Actor{UserID: "driver-user-1", Role: models.RoleDriver}
	ctx := context.Background()

	_, err := f.svc.AssignDriver(ctx, created.ID, dto.AssignDriverRequest{DriverID: "driver-1"})
	require.NoError(t, err)
	_, err = f.svc.RespondAsDriver(ctx, driverActor, created.ID, dto.DriverResponseRequest{TruckDriverStatus: models.ApprovalAccepted})
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(ctx, created.ID, dto.UpdateRequestStatusRequest{RequestStatus: models.ApprovalAccepted})
	require.NoError(t, err)
	_, err = f.svc.ConfirmCollection(ctx, driverActor, dto.ConfirmCollectionRequest{WasteRequestID: created.ID})
	require.NoError(t, err)

	detail, err := f.svc.Get(ctx, f.citizen, created.ID)
	require.NoError(t, err)
	assert.False(t, detail.FullyCompleted, "payment still pending")

	_, err = payments.Update(ctx, f.citizen, *created.PaymentID, dto.UpdatePaymentRequest{
		PaymentMethod: models.PaymentMethodCash,
		PaymentStatus: models.ProgressCompleted,
	})
	require.NoError(t, err)

	detail, err = f.svc.Get(ctx, f.citizen, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalAccepted, detail.RequestStatus)
	assert.Equal(t, models.ApprovalAccepted, detail.TruckDriverStatus)
	assert.Equal(t, models.ProgressCompleted, detail.CollectionStatus)
	assert.Equal(t, models.ProgressCompleted, detail.PaymentStatus)
	assert.True(t, detail.FullyCompleted)
	stored := f.db.requests[created.ID]
	assert.True(t, stored.FullyCompleted())
}

func TestWasteRequestServiceSubmitFeedback(t *testing.T) {
	f := newLifecycleFixture(t)
	created := f.createRequest(t)

	updated, err := f.svc.SubmitFeedback(context.Background(), f.citizen, dto.FeedbackRequest{WasteRequestID: created.ID, Rating: 4, Comment: "  on time  "})
	require.NoError(t, err)
	require.NotNil(t, updated.Rating)
	assert.Equal(t, 4, *updated.Rating)
	assert.Equal(t, "on time", *updated.Comment)

	_, err = f.svc.SubmitFeedback(context.Background(), f.citizen, dto.FeedbackRequest{WasteRequestID: created.ID, Rating: 6})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestWasteRequestServiceStaleVersionIsConflict(t *testing.T) {
	f := newLifecycleFixture(t)
	created := f.createRequest(t)
	f.db.requestUpdateErr = repository.ErrStaleVersion
	eventsBefore := len(f.db.events)

	_, err := f.svc.ConfirmCollection(context.Background(), f.admin, dto.ConfirmCollectionRequest{WasteRequestID: created.ID})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrConflict)
	assert.Contains(t, err.Error(), "modified concurrently")
	assert.Equal(t, models.ProgressPending, f.db.requests[created.ID].CollectionStatus)
	assert.Len(t, f.db.events, eventsBefore)
	assert.Equal(t, 1, f.uow.rollback)
}

func TestWasteRequestServiceGetAndList(t *testing.T) {
	f := newLifecycleFixture(t)
	created := f.createRequest(t)
	_, err := f.svc.AssignDriver(context.Background(), created.ID, dto.AssignDriverRequest{DriverID: "driver-1"})
	require.NoError(t, err)

	detail, err := f.svc.Get(context.Background(), f.citizen, created.ID)
	require.NoError(t, err)
	require.NotNil(t, detail.Payment)
	assert.Equal(t, 25.0, detail.Payment.Amount)
	assert.False(t, detail.FullyCompleted)

	_, err = f.svc.Get(context.Background(), Actor{UserID: "user-2", Role: models.RoleUser}, created.ID)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = f.svc.Get(context.Background(), Actor{UserID: "driver-user-1", Role: models.RoleDriver}, created.ID)
	assert.NoError(t, err)

	mine, pagination, err := f.svc.List(context.Background(), f.citizen, models.WasteRequestFilter{})
	require.NoError(t, err)
	assert.Len(t, mine, 1)
	assert.Equal(t, 1, pagination.TotalCount)

	others, _, err := f.svc.List(context.Background(), Actor{UserID: "user-2", Role: models.RoleUser}, models.WasteRequestFilter{})
	require.NoError(t, err)
	assert.Empty(t, others)

	assigned, _, err := f.svc.List(context.Background(), Actor{UserID: "driver-user-1", Role: models.RoleDriver}, models.WasteRequestFilter{})
	require.NoError(t, err)
	assert.Len(t, assigned, 1)
}

func TestWasteRequestServiceGetToleratesMissingPayment(t *testing.T) {
	f := newLifecycleFixture(t)
	created := f.createRequest(t)
	delete(f.db.payments, *created.PaymentID)

	detail, err := f.svc.Get(context.Background(), f.admin, created.ID)
	require.NoError(t, err)
	assert.Nil(t, detail.Payment)
}
