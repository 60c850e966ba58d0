package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/waste-mgmt-api/internal/models"
	appErrors "github.com/noah-isme/waste-mgmt-api/pkg/errors"
)

// RelationshipService keeps the back-reference sets of districts and drivers in step with
// the forward references held by drivers and waste requests. Every call runs on the Stores
// of the caller's unit of work, so it commits or rolls back with the primary change.
type RelationshipService struct {
	logger *zap.Logger
}

// NewRelationshipService constructs the maintainer.
func NewRelationshipService(logger *zap.Logger) *RelationshipService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RelationshipService{logger: logger}
}

// AttachRequestToDistrict adds the request to the district's request set.
func (s *RelationshipService) AttachRequestToDistrict(ctx context.Context, st Stores, requestID, districtID string) error {
	if _, err := st.Districts.FindByID(ctx, districtID); err != nil {
		return lookupError(err, "district")
	}
	if err := st.Relations.AttachDistrictRequest(ctx, districtID, requestID); err != nil {
		return writeError(err, "district", "attach request to")
	}
	return nil
}

// MoveRequestDistrict detaches the request from its old district (if that still exists)
// and attaches it to the new one.
func (s *RelationshipService) MoveRequestDistrict(ctx context.Context, st Stores, requestID, oldDistrictID, newDistrictID string) error {
	if oldDistrictID == newDistrictID {
		return s.AttachRequestToDistrict(ctx, st, requestID, newDistrictID)
	}
	if _, err := st.Districts.FindByID(ctx, newDistrictID); err != nil {
		return lookupError(err, "district")
	}
	if oldDistrictID != "" {
		_, err := st.Districts.FindByID(ctx, oldDistrictID)
		switch {
		case err == nil:
			if err := st.Relations.DetachDistrictRequest(ctx, oldDistrictID, requestID); err != nil {
				return writeError(err, "district", "detach request from")
			}
		case errors.Is(err, sql.ErrNoRows):
			s.logger.Debug("previous district missing, skipping detach", zap.String("district_id", oldDistrictID))
		default:
			return lookupError(err, "district")
		}
	}
	if err := st.Relations.AttachDistrictRequest(ctx, newDistrictID, requestID); err != nil {
		return writeError(err, "district", "attach request to")
	}
	return nil
}

// DetachRequestFromDistrict removes the request from the district's request set.
func (s *RelationshipService) DetachRequestFromDistrict(ctx context.Context, st Stores, requestID, districtID string) error {
	if districtID == "" {
		return nil
	}
	if err := st.Relations.DetachDistrictRequest(ctx, districtID, requestID); err != nil {
		return writeError(err, "district", "detach request from")
	}
	return nil
}

// AttachDriverToDistrict adds the driver to the district's driver set.
func (s *RelationshipService) AttachDriverToDistrict(ctx context.Context, st Stores, driverID, districtID string) error {
	if _, err := st.Districts.FindByID(ctx, districtID); err != nil {
		return lookupError(err, "district")
	}
	if err := st.Relations.AttachDistrictDriver(ctx, districtID, driverID); err != nil {
		return writeError(err, "district", "attach driver to")
	}
	return nil
}

// DetachDriverFromDistrict removes the driver from the district's driver set.
func (s *RelationshipService) DetachDriverFromDistrict(ctx context.Context, st Stores, driverID, districtID string) error {
	if districtID == "" {
		return nil
	}
	if err := st.Relations.DetachDistrictDriver(ctx, districtID, driverID); err != nil {
		return writeError(err, "district", "detach driver from")
	}
	return nil
}

// AssignDriverToRequest moves the request from its current driver to driverID and resets the
// driver's decision to PENDING. The caller persists req.
func (s *RelationshipService) AssignDriverToRequest(ctx context.Context, st Stores, req *models.WasteRequest, driverID string) error {
	if req.TruckDriverStatus == models.ApprovalAccepted {
		return appErrors.Clone(appErrors.ErrConflict, "driver has already accepted this request")
	}
	if req.HasDriver() && *req.DriverID != driverID {
		if err := st.Relations.DetachDriverRequest(ctx, *req.DriverID, req.ID); err != nil {
			return writeError(err, "driver", "detach request from")
		}
	}
	if err := st.Relations.AttachDriverRequest(ctx, driverID, req.ID); err != nil {
		return writeError(err, "driver", "attach request to")
	}
	assigned := driverID
	req.DriverID = &assigned
	req.TruckDriverStatus = models.ApprovalPending
	return nil
}

// DetachRequestFromDriver removes the request from its assigned driver's set, if any.
func (s *RelationshipService) DetachRequestFromDriver(ctx context.Context, st Stores, req *models.WasteRequest) error {
	if !req.HasDriver() {
		return nil
	}
	if err := st.Relations.DetachDriverRequest(ctx, *req.DriverID, req.ID); err != nil {
		return writeError(err, "driver", "detach request from")
	}
	return nil
}

// RequestIDsForDistrict lists the district's requests.
func (s *RelationshipService) RequestIDsForDistrict(ctx context.Context, st Stores, districtID string) ([]string, error) {
	ids, err := st.Relations.DistrictRequestIDs(ctx, districtID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load district requests")
	}
	return ids, nil
}

// DriverIDsForDistrict lists the district's drivers.
func (s *RelationshipService) DriverIDsForDistrict(ctx context.Context, st Stores, districtID string) ([]string, error) {
	ids, err := st.Relations.DistrictDriverIDs(ctx, districtID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load district drivers")
	}
	return ids, nil
}

// RequestIDsForDriver lists the driver's assigned requests.
func (s *RelationshipService) RequestIDsForDriver(ctx context.Context, st Stores, driverID string) ([]string, error) {
	ids, err := st.Relations.DriverRequestIDs(ctx, driverID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load driver requests")
	}
	return ids, nil
}
