package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/waste-mgmt-api/internal/models"
	appErrors "github.com/noah-isme/waste-mgmt-api/pkg/errors"
)

// CreateDistrictRequest captures fields for creating districts.
type CreateDistrictRequest struct {
	Name         string   `json:"name" validate:"required"`
	Cities       []string `json:"cities" validate:"required,min=1,dive,required"`
	DistrictCode string   `json:"districtCode" validate:"required"`
	Active       *bool    `json:"active"`
}

// UpdateDistrictRequest modifies district fields; omitted fields are kept.
type UpdateDistrictRequest struct {
	Name         *string  `json:"name" validate:"omitempty,min=1"`
	Cities       []string `json:"cities" validate:"omitempty,min=1,dive,required"`
	DistrictCode *string  `json:"districtCode" validate:"omitempty,min=1"`
	Active       *bool    `json:"active"`
}

// DistrictService handles district workflows.
type DistrictService struct {
	uow       UnitOfWork
	relations *RelationshipService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewDistrictService creates a new district service.
func NewDistrictService(uow UnitOfWork, relations *RelationshipService, validate *validator.Validate, logger *zap.Logger) *DistrictService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if relations == nil {
		relations = NewRelationshipService(logger)
	}
	return &DistrictService{uow: uow, relations: relations, validator: validate, logger: logger}
}

// List returns paginated districts.
func (s *DistrictService) List(ctx context.Context, filter models.DistrictFilter) ([]models.District, *models.Pagination, error) {
	districts, total, err := s.uow.Stores().Districts.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list districts")
	}
	if districts == nil {
		districts = []models.District{}
	}
	return districts, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Get returns a district with its driver and waste request references resolved.
func (s *DistrictService) Get(ctx context.Context, id string) (*models.District, error) {
	st := s.uow.Stores()
	district, err := st.Districts.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "district")
	}
	if err := s.populate(ctx, st, district); err != nil {
		return nil, err
	}
	return district, nil
}

// Create adds a district ensuring its code is unique.
func (s *DistrictService) Create(ctx context.Context, req CreateDistrictRequest) (*models.District, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid district payload")
	}
	cities := normalizeCities(req.Cities)
	if len(cities) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "district needs at least one city")
	}

	district := &models.District{
		Name:          strings.TrimSpace(req.Name),
		Cities:        cities,
		DistrictCode:  strings.ToUpper(strings.TrimSpace(req.DistrictCode)),
		Active:        true,
		TruckDrivers:  []string{},
		WasteRequests: []string{},
	}
	if req.Active != nil {
		district.Active = *req.Active
	}

	err := s.uow.Do(ctx, func(st Stores) error {
		exists, err := st.Districts.ExistsByCode(ctx, district.DistrictCode, "")
		if err != nil {
			return appErrors.Internal(err, "failed to check district code")
		}
		if exists {
			return appErrors.Clone(appErrors.ErrConflict, "district code already exists")
		}
		if err := st.Districts.Create(ctx, district); err != nil {
			return writeError(err, "district", "create")
		}
		return nil
	})
	if err != nil {
		return nil, passThrough(err, "failed to create district")
	}
	s.logger.Info("district created", zap.String("district_id", district.ID), zap.String("code", district.DistrictCode))
	return district, nil
}

// Update modifies an existing district.
func (s *DistrictService) Update(ctx context.Context, id string, req UpdateDistrictRequest) (*models.District, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid district payload")
	}

	var district *models.District
	err := s.uow.Do(ctx, func(st Stores) error {
		current, err := st.Districts.FindByID(ctx, id)
		if err != nil {
			return lookupError(err, "district")
		}
		if req.Name != nil {
			current.Name = strings.TrimSpace(*req.Name)
		}
		if req.Cities != nil {
			cities := normalizeCities(req.Cities)
			if len(cities) == 0 {
				return appErrors.Clone(appErrors.ErrValidation, "district needs at least one city")
			}
			if err := s.ensureDroppedCitiesUnused(ctx, st, current, cities); err != nil {
				return err
			}
			current.Cities = cities
		}
		if req.DistrictCode != nil {
			code := strings.ToUpper(strings.TrimSpace(*req.DistrictCode))
			exists, err := st.Districts.ExistsByCode(ctx, code, id)
			if err != nil {
				return appErrors.Internal(err, "failed to check district code")
			}
			if exists {
				return appErrors.Clone(appErrors.ErrConflict, "district code already exists")
			}
			current.DistrictCode = code
		}
		if req.Active != nil {
			current.Active = *req.Active
		}
		if err := st.Districts.Update(ctx, current); err != nil {
			return writeError(err, "district", "update")
		}
		district = current
		return s.populate(ctx, st, district)
	})
	if err != nil {
		return nil, passThrough(err, "failed to update district")
	}
	return district, nil
}

// Delete removes a district that no longer has drivers or waste requests.
func (s *DistrictService) Delete(ctx context.Context, id string) error {
	err := s.uow.Do(ctx, func(st Stores) error {
		district, err := st.Districts.FindByID(ctx, id)
		if err != nil {
			return lookupError(err, "district")
		}
		drivers, err := s.relations.DriverIDsForDistrict(ctx, st, district.ID)
		if err != nil {
			return err
		}
		if len(drivers) > 0 {
			return appErrors.Clone(appErrors.ErrConflict, "district has drivers")
		}
		requests, err := s.relations.RequestIDsForDistrict(ctx, st, district.ID)
		if err != nil {
			return err
		}
		if len(requests) > 0 {
			return appErrors.Clone(appErrors.ErrConflict, "district has waste requests")
		}
		if err := st.Districts.Delete(ctx, district.ID); err != nil {
			return writeError(err, "district", "delete")
		}
		return nil
	})
	if err != nil {
		return passThrough(err, "failed to delete district")
	}
	s.logger.Info("district deleted", zap.String("district_id", id))
	return nil
}

// ensureDroppedCitiesUnused rejects a city list that would orphan a driver or waste request of the district.
func (s *DistrictService) ensureDroppedCitiesUnused(ctx context.Context, st Stores, current *models.District, cities []string) error {
	next := models.District{Cities: cities}
	var dropped []string
	for _, city := range current.Cities {
		if !next.HasCity(city) {
			dropped = append(dropped, city)
		}
	}
	if len(dropped) == 0 {
		return nil
	}

	driverIDs, err := s.relations.DriverIDsForDistrict(ctx, st, current.ID)
	if err != nil {
		return err
	}
	for _, driverID := range driverIDs {
		driver, err := st.Drivers.FindByID(ctx, driverID)
		if err != nil {
			return lookupError(err, "driver")
		}
		if !next.HasCity(driver.City) {
			return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("city %q is in use by driver %s", driver.City, driver.ID))
		}
	}

	requestIDs, err := s.relations.RequestIDsForDistrict(ctx, st, current.ID)
	if err != nil {
		return err
	}
	for _, requestID := range requestIDs {
		request, err := st.Requests.FindByID(ctx, requestID)
		if err != nil {
			return lookupError(err, "waste request")
		}
		if !next.HasCity(request.City) {
			return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("city %q is in use by waste request %s", request.City, request.ID))
		}
	}
	return nil
}

func (s *DistrictService) populate(ctx context.Context, st Stores, district *models.District) error {
	drivers, err := s.relations.DriverIDsForDistrict(ctx, st, district.ID)
	if err != nil {
		return err
	}
	requests, err := s.relations.RequestIDsForDistrict(ctx, st, district.ID)
	if err != nil {
		return err
	}
	if drivers == nil {
		drivers = []string{}
	}
	if requests == nil {
		requests = []string{}
	}
	district.TruckDrivers = drivers
	district.WasteRequests = requests
	return nil
}

// normalizeCities trims names and drops blanks and case-insensitive duplicates, keeping order.
func normalizeCities(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	cities := make([]string, 0, len(raw))
	for _, city := range raw {
		trimmed := strings.TrimSpace(city)
		if trimmed == "" {
			continue
		}
		key := strings.ToLower(trimmed)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		cities = append(cities, trimmed)
	}
	return cities
}
