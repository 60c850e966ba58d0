package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/waste-mgmt-api/internal/dto"
	"github.com/noah-isme/waste-mgmt-api/internal/models"
	appErrors "github.com/noah-isme/waste-mgmt-api/pkg/errors"
)

const defaultMinLeadTime = 48 * time.Hour

// WasteRequestConfig tunes the lifecycle rules.
type WasteRequestConfig struct {
	MinLeadTime time.Duration
}

// WasteRequestService drives a waste request through its status tracks while keeping the
// district and driver back-references and the shadow payment consistent.
type WasteRequestService struct {
	uow       UnitOfWork
	relations *RelationshipService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	minLead   time.Duration
	now       func() time.Time
}

// NewWasteRequestService constructs the lifecycle engine.
func NewWasteRequestService(uow UnitOfWork, relations *RelationshipService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, cfg WasteRequestConfig) *WasteRequestService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if relations == nil {
		relations = NewRelationshipService(logger)
	}
	if cfg.MinLeadTime <= 0 {
		cfg.MinLeadTime = defaultMinLeadTime
	}
	return &WasteRequestService{
		uow:       uow,
		relations: relations,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		minLead:   cfg.MinLeadTime,
		now:       time.Now,
	}
}

// Create validates a pickup submission and, in one transaction, stores it, attaches it to its
// district, derives its payment and records a RequestCreated event.
func (s *WasteRequestService) Create(ctx context.Context, actor Actor, req dto.CreateWasteRequestRequest) (result *models.WasteRequest, err error) {
	defer func() { s.metrics.ObserveLifecycle("create", err) }()

	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid waste request payload")
	}
	if !req.Location.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "location must be a GeoJSON Point with [longitude, latitude]")
	}
	if err := s.checkLeadTime(req.PickUpDate); err != nil {
		return nil, err
	}

	err = s.uow.Do(ctx, func(st Stores) error {
		user, err := st.Users.FindByID(ctx, actor.UserID)
		if err != nil {
			return lookupError(err, "user")
		}
		if !user.CanRequestPickup() {
			return appErrors.Clone(appErrors.ErrValidation, "NIC and phone number are required to request a pickup")
		}
		category, err := st.Categories.FindByID(ctx, req.WasteCategoryID)
		if err != nil {
			return lookupError(err, "waste category")
		}
		if !category.Active {
			return appErrors.Clone(appErrors.ErrValidation, "waste category is inactive")
		}
		district, err := st.Districts.FindByID(ctx, req.DistrictID)
		if err != nil {
			return lookupError(err, "district")
		}
		if !district.HasCity(req.City) {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("city %q is not part of district %s", req.City, district.Name))
		}

		paymentID := uuid.NewString()
		record := &models.WasteRequest{
			WasteCategoryID:   category.ID,
			DistrictID:        district.ID,
			City:              strings.TrimSpace(req.City),
			Address:           strings.TrimSpace(req.Address),
			Location:          req.Location,
			PickUpDate:        req.PickUpDate.UTC(),
			Quantity:          req.Quantity,
			EstimatedPrice:    req.EstimatedPrice,
			UserID:            user.ID,
			PaymentID:         &paymentID,
			RequestStatus:     models.ApprovalPending,
			TruckDriverStatus: models.ApprovalPending,
			CollectionStatus:  models.ProgressPending,
			PaymentStatus:     models.ProgressPending,
		}
		if err := st.Requests.Create(ctx, record); err != nil {
			return writeError(err, "waste request", "create")
		}
		if err := s.relations.AttachRequestToDistrict(ctx, st, record.ID, district.ID); err != nil {
			return err
		}
		payment := derivePayment(record, category)
		payment.ID = paymentID
		if err := st.Payments.Create(ctx, payment); err != nil {
			return writeError(err, "payment", "create")
		}
		if err := s.emit(ctx, st, models.EventRequestCreated, record); err != nil {
			return err
		}
		result = record
		return nil
	})
	if err != nil {
		return nil, passThrough(err, "failed to create waste request")
	}
	s.logger.Info("waste request created", zap.String("request_id", result.ID), zap.String("user_id", result.UserID))
	return result, nil
}

// Update applies a partial edit. Once the request is approved, edits to any locked field are rejected.
func (s *WasteRequestService) Update(ctx context.Context, actor Actor, id string, req dto.UpdateWasteRequestRequest) (result *models.WasteRequest, err error) {
	defer func() { s.metrics.ObserveLifecycle("update", err) }()

	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid waste request payload")
	}
	if req.Location != nil && !req.Location.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "location must be a GeoJSON Point with [longitude, latitude]")
	}
	if err := validateStatusEdits(req); err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && (req.RequestStatus != nil || req.TruckDriverStatus != nil || req.CollectionStatus != nil || req.PaymentStatus != nil || req.DriverID != nil) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators can change statuses or drivers")
	}
	if req.PickUpDate != nil {
		if err := s.checkLeadTime(*req.PickUpDate); err != nil {
			return nil, err
		}
	}

	err = s.uow.Do(ctx, func(st Stores) error {
		record, err := st.Requests.FindByID(ctx, id)
		if err != nil {
			return lookupError(err, "waste request")
		}
		if !actor.IsAdmin() && record.UserID != actor.UserID {
			return appErrors.Clone(appErrors.ErrForbidden, "waste request belongs to another user")
		}
		if record.Frozen() && req.TouchesLockedFields() {
			return appErrors.Clone(appErrors.ErrConflict, "waste request has been accepted and can no longer be modified")
		}

		payment, err := s.paymentFor(ctx, st, record)
		if err != nil {
			return err
		}
		paymentChanged := false
		previousStatus := record.RequestStatus

		if req.WasteCategoryID != nil && *req.WasteCategoryID != record.WasteCategoryID {
			category, err := st.Categories.FindByID(ctx, *req.WasteCategoryID)
			if err != nil {
				return lookupError(err, "waste category")
			}
			if !category.Active {
				return appErrors.Clone(appErrors.ErrValidation, "waste category is inactive")
			}
			record.WasteCategoryID = category.ID
			if payment != nil {
				payment.IsAdminPayment = category.AdminPays()
				paymentChanged = true
			}
		}

		if req.DistrictID != nil || req.City != nil {
			districtID := record.DistrictID
			if req.DistrictID != nil {
				districtID = *req.DistrictID
			}
			city := record.City
			if req.City != nil {
				city = strings.TrimSpace(*req.City)
			}
			district, err := st.Districts.FindByID(ctx, districtID)
			if err != nil {
				return lookupError(err, "district")
			}
			if !district.HasCity(city) {
				return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("city %q is not part of district %s", city, district.Name))
			}
			if districtID != record.DistrictID {
				if err := s.relations.MoveRequestDistrict(ctx, st, record.ID, record.DistrictID, districtID); err != nil {
					return err
				}
				record.DistrictID = districtID
			}
			record.City = city
		}

		if req.Address != nil {
			record.Address = strings.TrimSpace(*req.Address)
		}
		if req.Location != nil {
			record.Location = *req.Location
		}
		if req.Quantity != nil {
			record.Quantity = *req.Quantity
		}
		if req.EstimatedPrice != nil {
			record.EstimatedPrice = *req.EstimatedPrice
			if payment != nil {
				payment.Amount = record.EstimatedPrice
				paymentChanged = true
			}
		}
		if req.PickUpDate != nil {
			record.PickUpDate = req.PickUpDate.UTC()
			if payment != nil {
				payment.DueDate = models.DueDateFor(record.PickUpDate)
				paymentChanged = true
			}
		}

		driverAssigned := false
		if req.DriverID != nil {
			if record.AssignedTo(*req.DriverID) {
				return appErrors.Clone(appErrors.ErrConflict, "driver is already assigned to this waste request")
			}
			if err := s.assign(ctx, st, record, *req.DriverID); err != nil {
				return err
			}
			driverAssigned = true
		}
		if req.RequestStatus != nil {
			record.RequestStatus = *req.RequestStatus
		}
		if req.TruckDriverStatus != nil {
			record.TruckDriverStatus = *req.TruckDriverStatus
		}
		if req.CollectionStatus != nil {
			record.CollectionStatus = *req.CollectionStatus
		}
		if req.PaymentStatus != nil {
			record.PaymentStatus = *req.PaymentStatus
			if payment != nil {
				payment.Status = *req.PaymentStatus
				paymentChanged = true
			}
		}

		if err := st.Requests.Update(ctx, record); err != nil {
			return writeError(err, "waste request", "update")
		}
		if paymentChanged {
			if err := st.Payments.Update(ctx, payment); err != nil {
				return writeError(err, "payment", "update")
			}
		}
		if driverAssigned {
			if err := s.emit(ctx, st, models.EventDriverAssigned, record); err != nil {
				return err
			}
		}
		if record.RequestStatus != previousStatus {
			if err := s.emit(ctx, st, models.EventRequestStatusChanged, record); err != nil {
				return err
			}
		}
		result = record
		return nil
	})
	if err != nil {
		return nil, passThrough(err, "failed to update waste request")
	}
	return result, nil
}

// AssignDriver hands the request to an active driver. Reassigning to the current driver is a Conflict.
func (s *WasteRequestService) AssignDriver(ctx context.Context, id string, req dto.AssignDriverRequest) (result *models.WasteRequest, err error) {
	defer func() { s.metrics.ObserveLifecycle("assign_driver", err) }()

	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid driver assignment payload")
	}
	err = s.uow.Do(ctx, func(st Stores) error {
		record, err := st.Requests.FindByID(ctx, id)
		if err != nil {
			return lookupError(err, "waste request")
		}
		if record.AssignedTo(req.DriverID) {
			return appErrors.Clone(appErrors.ErrConflict, "driver is already assigned to this waste request")
		}
		if err := s.assign(ctx, st, record, req.DriverID); err != nil {
			return err
		}
		if err := st.Requests.Update(ctx, record); err != nil {
			return writeError(err, "waste request", "update")
		}
		if err := s.emit(ctx, st, models.EventDriverAssigned, record); err != nil {
			return err
		}
		result = record
		return nil
	})
	if err != nil {
		return nil, passThrough(err, "failed to assign driver")
	}
	s.logger.Info("driver assigned", zap.String("request_id", id), zap.String("driver_id", req.DriverID))
	return result, nil
}

// RespondAsDriver records the assigned driver's decision. Only a PENDING decision may change.
func (s *WasteRequestService) RespondAsDriver(ctx context.Context, actor Actor, id string, req dto.DriverResponseRequest) (result *models.WasteRequest, err error) {
	defer func() { s.metrics.ObserveLifecycle("driver_response", err) }()

	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid driver response payload")
	}
	if !req.TruckDriverStatus.Decided() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "truck driver status must be ACCEPTED or REJECTED")
	}
	err = s.uow.Do(ctx, func(st Stores) error {
		record, err := st.Requests.FindByID(ctx, id)
		if err != nil {
			return lookupError(err, "waste request")
		}
		if !record.HasDriver() {
			return appErrors.Clone(appErrors.ErrConflict, "no driver is assigned to this waste request")
		}
		if err := s.requireAssignedDriver(ctx, st, actor, record); err != nil {
			return err
		}
		if record.TruckDriverStatus != models.ApprovalPending {
			return appErrors.Clone(appErrors.ErrConflict, "driver has already responded to this waste request")
		}
		record.TruckDriverStatus = req.TruckDriverStatus
		if err := st.Requests.Update(ctx, record); err != nil {
			return writeError(err, "waste request", "update")
		}
		if err := s.emit(ctx, st, models.EventDriverResponded, record); err != nil {
			return err
		}
		result = record
		return nil
	})
	if err != nil {
		return nil, passThrough(err, "failed to record driver response")
	}
	return result, nil
}

// UpdateStatus approves or rejects a request. An accepted request cannot be re-decided.
func (s *WasteRequestService) UpdateStatus(ctx context.Context, id string, req dto.UpdateRequestStatusRequest) (result *models.WasteRequest, err error) {
	defer func() { s.metrics.ObserveLifecycle("update_status", err) }()

	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid status payload")
	}
	if !req.RequestStatus.Decided() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "request status must be ACCEPTED or REJECTED")
	}
	err = s.uow.Do(ctx, func(st Stores) error {
		record, err := st.Requests.FindByID(ctx, id)
		if err != nil {
			return lookupError(err, "waste request")
		}
		if record.Frozen() {
			return appErrors.Clone(appErrors.ErrConflict, "waste request has already been accepted")
		}
		record.RequestStatus = req.RequestStatus
		if err := st.Requests.Update(ctx, record); err != nil {
			return writeError(err, "waste request", "update")
		}
		if err := s.emit(ctx, st, models.EventRequestStatusChanged, record); err != nil {
			return err
		}
		result = record
		return nil
	})
	if err != nil {
		return nil, passThrough(err, "failed to update waste request status")
	}
	return result, nil
}

// ConfirmCollection marks the request collected. Repeating it is harmless and re-notifies.
// Drivers may only confirm requests assigned to them.
func (s *WasteRequestService) ConfirmCollection(ctx context.Context, actor Actor, req dto.ConfirmCollectionRequest) (result *models.WasteRequest, err error) {
	defer func() { s.metrics.ObserveLifecycle("confirm_collection", err) }()

	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid collection payload")
	}
	err = s.uow.Do(ctx, func(st Stores) error {
		record, err := st.Requests.FindByID(ctx, req.WasteRequestID)
		if err != nil {
			return lookupError(err, "waste request")
		}
		if err := s.requireAssignedDriver(ctx, st, actor, record); err != nil {
			return err
		}
		record.CollectionStatus = models.ProgressCompleted
		if err := st.Requests.Update(ctx, record); err != nil {
			return writeError(err, "waste request", "update")
		}
		if err := s.emit(ctx, st, models.EventCollectionConfirmed, record); err != nil {
			return err
		}
		result = record
		return nil
	})
	if err != nil {
		return nil, passThrough(err, "failed to confirm collection")
	}
	return result, nil
}

// SubmitFeedback stores the requester's rating and comment.
func (s *WasteRequestService) SubmitFeedback(ctx context.Context, actor Actor, req dto.FeedbackRequest) (result *models.WasteRequest, err error) {
	defer func() { s.metrics.ObserveLifecycle("feedback", err) }()

	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid feedback payload")
	}
	err = s.uow.Do(ctx, func(st Stores) error {
		record, err := st.Requests.FindByID(ctx, req.WasteRequestID)
		if err != nil {
			return lookupError(err, "waste request")
		}
		if !actor.IsAdmin() && record.UserID != actor.UserID {
			return appErrors.Clone(appErrors.ErrForbidden, "waste request belongs to another user")
		}
		rating := req.Rating
		comment := strings.TrimSpace(req.Comment)
		record.Rating = &rating
		record.Comment = &comment
		if err := st.Requests.Update(ctx, record); err != nil {
			return writeError(err, "waste request", "update")
		}
		result = record
		return nil
	})
	if err != nil {
		return nil, passThrough(err, "failed to save feedback")
	}
	return result, nil
}

// Delete removes a request that has not been accepted, together with its payment and back-references.
func (s *WasteRequestService) Delete(ctx context.Context, actor Actor, id string) (err error) {
	defer func() { s.metrics.ObserveLifecycle("delete", err) }()

	err = s.uow.Do(ctx, func(st Stores) error {
		record, err := st.Requests.FindByID(ctx, id)
		if err != nil {
			return lookupError(err, "waste request")
		}
		if !actor.IsAdmin() && record.UserID != actor.UserID {
			return appErrors.Clone(appErrors.ErrForbidden, "waste request belongs to another user")
		}
		if record.Frozen() {
			return appErrors.Clone(appErrors.ErrConflict, "cannot delete an accepted waste request")
		}
		if err := s.relations.DetachRequestFromDistrict(ctx, st, record.ID, record.DistrictID); err != nil {
			return err
		}
		if err := s.relations.DetachRequestFromDriver(ctx, st, record); err != nil {
			return err
		}
		payment, err := s.paymentFor(ctx, st, record)
		if err != nil {
			return err
		}
		if payment != nil {
			if err := st.Payments.Delete(ctx, payment.ID); err != nil {
				return writeError(err, "payment", "delete")
			}
		}
		if err := st.Requests.Delete(ctx, record.ID); err != nil {
			return writeError(err, "waste request", "delete")
		}
		return s.emit(ctx, st, models.EventRequestDeleted, record)
	})
	if err != nil {
		return passThrough(err, "failed to delete waste request")
	}
	s.logger.Info("waste request deleted", zap.String("request_id", id))
	return nil
}

// Get returns a request with its payment. Requesters see their own, drivers their assignments.
func (s *WasteRequestService) Get(ctx context.Context, actor Actor, id string) (*dto.WasteRequestDetail, error) {
	st := s.uow.Stores()
	record, err := st.Requests.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "waste request")
	}
	if err := s.authorizeRead(ctx, st, actor, record); err != nil {
		return nil, err
	}
	payment, err := s.paymentFor(ctx, st, record)
	if err != nil {
		return nil, err
	}
	return &dto.WasteRequestDetail{WasteRequest: *record, Payment: payment, FullyCompleted: record.FullyCompleted()}, nil
}

// List returns requests visible to the actor: all for admins, assignments for drivers, own otherwise.
func (s *WasteRequestService) List(ctx context.Context, actor Actor, filter models.WasteRequestFilter) ([]models.WasteRequest, *models.Pagination, error) {
	st := s.uow.Stores()
	switch {
	case actor.IsAdmin():
	case actor.IsDriver():
		driver, err := st.Drivers.FindByUserID(ctx, actor.UserID)
		if err != nil {
			return nil, nil, lookupError(err, "driver")
		}
		filter.DriverID = driver.ID
	default:
		filter.UserID = actor.UserID
	}
	records, total, err := st.Requests.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list waste requests")
	}
	if records == nil {
		records = []models.WasteRequest{}
	}
	return records, paginationFor(filter.Page, filter.PageSize, total), nil
}

func (s *WasteRequestService) assign(ctx context.Context, st Stores, record *models.WasteRequest, driverID string) error {
	driver, err := st.Drivers.FindByID(ctx, driverID)
	if err != nil {
		return lookupError(err, "driver")
	}
	if !driver.Active {
		return appErrors.Clone(appErrors.ErrValidation, "driver is inactive")
	}
	return s.relations.AssignDriverToRequest(ctx, st, record, driver.ID)
}

// requireAssignedDriver lets admins through and otherwise requires the caller to be the request's driver.
func (s *WasteRequestService) requireAssignedDriver(ctx context.Context, st Stores, actor Actor, record *models.WasteRequest) error {
	if actor.IsAdmin() {
		return nil
	}
	driver, err := st.Drivers.FindByUserID(ctx, actor.UserID)
	if err != nil {
		return lookupError(err, "driver")
	}
	if !record.AssignedTo(driver.ID) {
		return appErrors.Clone(appErrors.ErrForbidden, "waste request is assigned to another driver")
	}
	return nil
}

func (s *WasteRequestService) authorizeRead(ctx context.Context, st Stores, actor Actor, record *models.WasteRequest) error {
	if actor.IsAdmin() || record.UserID == actor.UserID {
		return nil
	}
	if actor.IsDriver() && record.HasDriver() {
		driver, err := st.Drivers.FindByUserID(ctx, actor.UserID)
		if err == nil && record.AssignedTo(driver.ID) {
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrForbidden, "waste request belongs to another user")
}

func (s *WasteRequestService) paymentFor(ctx context.Context, st Stores, record *models.WasteRequest) (*models.Payment, error) {
	if record.PaymentID == nil {
		return nil, nil
	}
	payment, err := st.Payments.FindByID(ctx, *record.PaymentID)
	if err != nil {
		if isNoRows(err) {
			s.logger.Warn("waste request references a missing payment", zap.String("request_id", record.ID), zap.String("payment_id", *record.PaymentID))
			return nil, nil
		}
		return nil, lookupError(err, "payment")
	}
	return payment, nil
}

func (s *WasteRequestService) checkLeadTime(pickUp time.Time) error {
	earliest := s.now().Add(s.minLead)
	if pickUp.Before(earliest) {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("pick up date must be at least %s from now", humanDuration(s.minLead)))
	}
	return nil
}

func (s *WasteRequestService) emit(ctx context.Context, st Stores, eventType models.EventType, record *models.WasteRequest) error {
	return recordEvent(ctx, st, eventType, record)
}

func validateStatusEdits(req dto.UpdateWasteRequestRequest) error {
	if req.RequestStatus != nil && !req.RequestStatus.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "invalid request status")
	}
	if req.TruckDriverStatus != nil && !req.TruckDriverStatus.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "invalid truck driver status")
	}
	if req.CollectionStatus != nil && !req.CollectionStatus.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "invalid collection status")
	}
	if req.PaymentStatus != nil && !req.PaymentStatus.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "invalid payment status")
	}
	return nil
}

// derivePayment builds the shadow payment for a freshly created request.
func derivePayment(record *models.WasteRequest, category *models.WasteCategory) *models.Payment {
	return &models.Payment{
		Status:         models.ProgressPending,
		Amount:         record.EstimatedPrice,
		DueDate:        models.DueDateFor(record.PickUpDate),
		UserID:         record.UserID,
		WasteRequestID: record.ID,
		IsAdminPayment: category.AdminPays(),
	}
}

func humanDuration(d time.Duration) string {
	if d%(24*time.Hour) == 0 {
		days := int(d / (24 * time.Hour))
		if days == 1 {
			return "1 day"
		}
		return fmt.Sprintf("%d days", days)
	}
	return d.String()
}
