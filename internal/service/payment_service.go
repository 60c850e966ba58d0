package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/waste-mgmt-api/internal/dto"
	"github.com/noah-isme/waste-mgmt-api/internal/models"
	appErrors "github.com/noah-isme/waste-mgmt-api/pkg/errors"
)

// PaymentService settles and removes the payments that shadow waste requests.
type PaymentService struct {
	uow       UnitOfWork
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewPaymentService constructs a PaymentService.
func NewPaymentService(uow UnitOfWork, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *PaymentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentService{uow: uow, metrics: metrics, validator: validate, logger: logger, now: time.Now}
}

// Update records a payment method and status and mirrors the status onto the waste request.
func (s *PaymentService) Update(ctx context.Context, actor Actor, id string, req dto.UpdatePaymentRequest) (result *models.Payment, err error) {
	defer func() { s.metrics.ObserveLifecycle("update_payment", err) }()

	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid payment payload")
	}
	if !req.PaymentMethod.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid payment method")
	}
	if !req.PaymentStatus.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid payment status")
	}

	err = s.uow.Do(ctx, func(st Stores) error {
		payment, err := st.Payments.FindByID(ctx, id)
		if err != nil {
			return lookupError(err, "payment")
		}
		if !actor.IsAdmin() && payment.UserID != actor.UserID {
			return appErrors.Clone(appErrors.ErrForbidden, "payment belongs to another user")
		}
		request, err := st.Requests.FindByID(ctx, payment.WasteRequestID)
		if err != nil {
			return lookupError(err, "waste request")
		}
		if _, err := st.Users.FindByID(ctx, request.UserID); err != nil {
			return lookupError(err, "user")
		}

		method := req.PaymentMethod
		paidAt := s.now().UTC()
		payment.Method = &method
		payment.Status = req.PaymentStatus
		payment.PaymentDate = &paidAt
		if err := st.Payments.Update(ctx, payment); err != nil {
			return writeError(err, "payment", "update")
		}

		request.PaymentStatus = req.PaymentStatus
		if err := st.Requests.Update(ctx, request); err != nil {
			return writeError(err, "waste request", "update")
		}
		if payment.Status == models.ProgressCompleted {
			if err := recordEvent(ctx, st, models.EventPaymentSettled, request); err != nil {
				return err
			}
		}
		result = payment
		return nil
	})
	if err != nil {
		return nil, passThrough(err, "failed to update payment")
	}
	s.logger.Info("payment updated", zap.String("payment_id", id), zap.String("status", string(result.Status)))
	return result, nil
}

// Delete cancels a payment that has not been settled and whose request is still open.
func (s *PaymentService) Delete(ctx context.Context, id string) (err error) {
	defer func() { s.metrics.ObserveLifecycle("delete_payment", err) }()

	err = s.uow.Do(ctx, func(st Stores) error {
		payment, err := st.Payments.FindByID(ctx, id)
		if err != nil {
			return lookupError(err, "payment")
		}
		request, err := st.Requests.FindByID(ctx, payment.WasteRequestID)
		if err != nil {
			return lookupError(err, "waste request")
		}
		switch {
		case request.RequestStatus == models.ApprovalAccepted:
			return appErrors.Clone(appErrors.ErrConflict, "cannot delete the payment of an accepted waste request")
		case request.PaymentStatus == models.ProgressCompleted:
			return appErrors.Clone(appErrors.ErrConflict, "waste request has already been paid")
		case payment.Status == models.ProgressCompleted:
			return appErrors.Clone(appErrors.ErrConflict, "cannot delete a completed payment")
		}

		request.PaymentStatus = models.ProgressCancelled
		request.PaymentID = nil
		if err := st.Requests.Update(ctx, request); err != nil {
			return writeError(err, "waste request", "update")
		}
		if err := st.Payments.Delete(ctx, payment.ID); err != nil {
			return writeError(err, "payment", "delete")
		}
		return nil
	})
	if err != nil {
		return passThrough(err, "failed to delete payment")
	}
	s.logger.Info("payment deleted", zap.String("payment_id", id))
	return nil
}

// Get returns a payment visible to the actor.
func (s *PaymentService) Get(ctx context.Context, actor Actor, id string) (*models.Payment, error) {
	payment, err := s.uow.Stores().Payments.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "payment")
	}
	if !actor.IsAdmin() && payment.UserID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "payment belongs to another user")
	}
	return payment, nil
}

// List returns payments; non-admins only see their own.
func (s *PaymentService) List(ctx context.Context, actor Actor, filter models.PaymentFilter) ([]models.Payment, *models.Pagination, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "invalid payment status filter")
	}
	if !actor.IsAdmin() {
		filter.UserID = actor.UserID
	}
	payments, total, err := s.uow.Stores().Payments.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list payments")
	}
	if payments == nil {
		payments = []models.Payment{}
	}
	return payments, paginationFor(filter.Page, filter.PageSize, total), nil
}
