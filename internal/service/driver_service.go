package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/waste-mgmt-api/internal/models"
	appErrors "github.com/noah-isme/waste-mgmt-api/pkg/errors"
)

type imageStore interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
}

type urlSigner interface {
	Generate(ownerID, relPath string) (string, time.Time, error)
	Parse(token string) (ownerID, relPath string, expiresAt time.Time, err error)
}

// CreateDriverRequest captures fields for registering a truck driver.
type CreateDriverRequest struct {
	Name          string `json:"name" validate:"required"`
	Email         string `json:"email" validate:"required,email"`
	Phone         string `json:"phone" validate:"required,min=7,max=20"`
	NIC           string `json:"nic" validate:"required,len=12"`
	VehicleNumber string `json:"vehicleNumber" validate:"required,len=8"`
	DistrictID    string `json:"district" validate:"required"`
	City          string `json:"city" validate:"required"`
	UserID        string `json:"user" validate:"required"`
	Active        *bool  `json:"active"`
}

// UpdateDriverRequest modifies driver fields; omitted fields are kept.
type UpdateDriverRequest struct {
	Name          *string `json:"name" validate:"omitempty,min=1"`
	Email         *string `json:"email" validate:"omitempty,email"`
	Phone         *string `json:"phone" validate:"omitempty,min=7,max=20"`
	NIC           *string `json:"nic" validate:"omitempty,len=12"`
	VehicleNumber *string `json:"vehicleNumber" validate:"omitempty,len=8"`
	DistrictID    *string `json:"district" validate:"omitempty,min=1"`
	City          *string `json:"city" validate:"omitempty,min=1"`
	Active        *bool   `json:"active"`
}

// DriverImageLink is a time-limited download link for a driver image.
type DriverImageLink struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// DriverService handles truck driver workflows.
type DriverService struct {
	uow       UnitOfWork
	relations *RelationshipService
	images    imageStore
	signer    urlSigner
	validator *validator.Validate
	logger    *zap.Logger
}

// NewDriverService creates a new driver service. images and signer may be nil when uploads are disabled.
func NewDriverService(uow UnitOfWork, relations *RelationshipService, images imageStore, signer urlSigner, validate *validator.Validate, logger *zap.Logger) *DriverService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if relations == nil {
		relations = NewRelationshipService(logger)
	}
	return &DriverService{uow: uow, relations: relations, images: images, signer: signer, validator: validate, logger: logger}
}

// List returns paginated drivers.
func (s *DriverService) List(ctx context.Context, filter models.DriverFilter) ([]models.Driver, *models.Pagination, error) {
	drivers, total, err := s.uow.Stores().Drivers.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list drivers")
	}
	if drivers == nil {
		drivers = []models.Driver{}
	}
	return drivers, paginationFor(filter.Page, filter.PageSize, total), nil
}

// Get returns a driver with assigned waste requests resolved.
func (s *DriverService) Get(ctx context.Context, id string) (*models.Driver, error) {
	st := s.uow.Stores()
	driver, err := st.Drivers.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "driver")
	}
	if err := s.populate(ctx, st, driver); err != nil {
		return nil, err
	}
	return driver, nil
}

// Create registers a driver for a district city and links it to a DRIVER user account.
func (s *DriverService) Create(ctx context.Context, req CreateDriverRequest) (*models.Driver, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid driver payload")
	}

	driver := &models.Driver{
		Name:          strings.TrimSpace(req.Name),
		Email:         strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:         strings.TrimSpace(req.Phone),
		NIC:           strings.ToUpper(req.NIC),
		VehicleNumber: strings.ToUpper(req.VehicleNumber),
		Images:        []string{},
		DistrictID:    req.DistrictID,
		City:          strings.TrimSpace(req.City),
		Active:        true,
		UserID:        req.UserID,
		WasteRequests: []string{},
	}
	if req.Active != nil {
		driver.Active = *req.Active
	}

	err := s.uow.Do(ctx, func(st Stores) error {
		if err := s.checkDistrictCity(ctx, st, driver.DistrictID, driver.City); err != nil {
			return err
		}
		user, err := st.Users.FindByID(ctx, driver.UserID)
		if err != nil {
			return lookupError(err, "user")
		}
		if user.Role != models.RoleDriver {
			return appErrors.Clone(appErrors.ErrValidation, "linked user must have the DRIVER role")
		}
		if _, err := st.Drivers.FindByUserID(ctx, user.ID); err == nil {
			return appErrors.Clone(appErrors.ErrConflict, "user is already linked to a driver")
		} else if !isNoRows(err) {
			return lookupError(err, "driver")
		}
		if err := s.checkVehicle(ctx, st, driver.VehicleNumber, ""); err != nil {
			return err
		}
		if err := st.Drivers.Create(ctx, driver); err != nil {
			return writeError(err, "driver", "create")
		}
		return s.relations.AttachDriverToDistrict(ctx, st, driver.ID, driver.DistrictID)
	})
	if err != nil {
		return nil, passThrough(err, "failed to create driver")
	}
	s.logger.Info("driver created", zap.String("driver_id", driver.ID), zap.String("district_id", driver.DistrictID))
	return driver, nil
}

// Update modifies a driver. A district change moves the driver between district driver sets.
func (s *DriverService) Update(ctx context.Context, id string, req UpdateDriverRequest) (*models.Driver, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid driver payload")
	}

	var driver *models.Driver
	err := s.uow.Do(ctx, func(st Stores) error {
		current, err := st.Drivers.FindByID(ctx, id)
		if err != nil {
			return lookupError(err, "driver")
		}
		previousDistrict := current.DistrictID

		if req.Name != nil {
			current.Name = strings.TrimSpace(*req.Name)
		}
		if req.Email != nil {
			current.Email = strings.ToLower(strings.TrimSpace(*req.Email))
		}
		if req.Phone != nil {
			current.Phone = strings.TrimSpace(*req.Phone)
		}
		if req.NIC != nil {
			current.NIC = strings.ToUpper(*req.NIC)
		}
		if req.VehicleNumber != nil {
			vehicle := strings.ToUpper(*req.VehicleNumber)
			if err := s.checkVehicle(ctx, st, vehicle, current.ID); err != nil {
				return err
			}
			current.VehicleNumber = vehicle
		}
		if req.Active != nil {
			current.Active = *req.Active
		}
		if req.DistrictID != nil || req.City != nil {
			if req.DistrictID != nil {
				current.DistrictID = *req.DistrictID
			}
			if req.City != nil {
				current.City = strings.TrimSpace(*req.City)
			}
			if err := s.checkDistrictCity(ctx, st, current.DistrictID, current.City); err != nil {
				return err
			}
		}

		if err := st.Drivers.Update(ctx, current); err != nil {
			return writeError(err, "driver", "update")
		}
		if current.DistrictID != previousDistrict {
			if err := s.relations.DetachDriverFromDistrict(ctx, st, current.ID, previousDistrict); err != nil {
				return err
			}
			if err := s.relations.AttachDriverToDistrict(ctx, st, current.ID, current.DistrictID); err != nil {
				return err
			}
		}
		driver = current
		return s.populate(ctx, st, driver)
	})
	if err != nil {
		return nil, passThrough(err, "failed to update driver")
	}
	return driver, nil
}

// Delete removes an inactive driver that holds no waste requests.
func (s *DriverService) Delete(ctx context.Context, id string) error {
	var images []string
	err := s.uow.Do(ctx, func(st Stores) error {
		driver, err := st.Drivers.FindByID(ctx, id)
		if err != nil {
			return lookupError(err, "driver")
		}
		if driver.Active {
			return appErrors.Clone(appErrors.ErrConflict, "cannot delete an active driver")
		}
		requests, err := s.relations.RequestIDsForDriver(ctx, st, driver.ID)
		if err != nil {
			return err
		}
		if len(requests) > 0 {
			return appErrors.Clone(appErrors.ErrConflict, "driver has waste requests")
		}
		if err := s.relations.DetachDriverFromDistrict(ctx, st, driver.ID, driver.DistrictID); err != nil {
			return err
		}
		if err := st.Drivers.Delete(ctx, driver.ID); err != nil {
			return writeError(err, "driver", "delete")
		}
		images = driver.Images
		return nil
	})
	if err != nil {
		return passThrough(err, "failed to delete driver")
	}
	s.removeImages(images)
	s.logger.Info("driver deleted", zap.String("driver_id", id))
	return nil
}

// UploadImage stores an image for the driver and records its path.
func (s *DriverService) UploadImage(ctx context.Context, id, filename string, data []byte) (*models.Driver, error) {
	if s.images == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "image storage is not configured")
	}
	if len(data) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "image file is empty")
	}
	if _, err := s.uow.Stores().Drivers.FindByID(ctx, id); err != nil {
		return nil, lookupError(err, "driver")
	}

	relPath := filepath.ToSlash(filepath.Join("drivers", id, uuid.NewString()+strings.ToLower(filepath.Ext(filename))))
	if _, err := s.images.Save(relPath, data); err != nil {
		return nil, appErrors.Invalid(err, "failed to store driver image")
	}

	var driver *models.Driver
	err := s.uow.Do(ctx, func(st Stores) error {
		current, err := st.Drivers.FindByID(ctx, id)
		if err != nil {
			return lookupError(err, "driver")
		}
		current.Images = append(current.Images, relPath)
		if err := st.Drivers.Update(ctx, current); err != nil {
			return writeError(err, "driver", "update")
		}
		driver = current
		return nil
	})
	if err != nil {
		s.removeImages([]string{relPath})
		return nil, passThrough(err, "failed to attach driver image")
	}
	return driver, nil
}

// ImageLink signs a download link for one of the driver's images.
func (s *DriverService) ImageLink(ctx context.Context, id string, index int) (*DriverImageLink, error) {
	if s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "image signing is not configured")
	}
	driver, err := s.uow.Stores().Drivers.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "driver")
	}
	if index < 0 || index >= len(driver.Images) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "driver image not found")
	}
	token, expiresAt, err := s.signer.Generate(driver.ID, driver.Images[index])
	if err != nil {
		return nil, appErrors.Internal(err, "failed to sign image link")
	}
	return &DriverImageLink{Token: token, ExpiresAt: expiresAt}, nil
}

// OpenImage resolves a signed token to the stored file. The caller closes it.
func (s *DriverService) OpenImage(token string) (*os.File, string, error) {
	if s.signer == nil || s.images == nil {
		return nil, "", appErrors.Clone(appErrors.ErrInternal, "image storage is not configured")
	}
	_, relPath, _, err := s.signer.Parse(token)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid or expired image link")
	}
	file, err := s.images.Open(relPath)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrNotFound.Code, appErrors.ErrNotFound.Status, "driver image not found")
	}
	return file, filepath.Base(relPath), nil
}

func (s *DriverService) checkDistrictCity(ctx context.Context, st Stores, districtID, city string) error {
	district, err := st.Districts.FindByID(ctx, districtID)
	if err != nil {
		return lookupError(err, "district")
	}
	if !district.HasCity(city) {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("city %q is not part of district %s", city, district.Name))
	}
	return nil
}

func (s *DriverService) checkVehicle(ctx context.Context, st Stores, vehicle, excludeID string) error {
	exists, err := st.Drivers.ExistsByVehicle(ctx, vehicle, excludeID)
	if err != nil {
		return appErrors.Internal(err, "failed to check vehicle number")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "vehicle number already registered")
	}
	return nil
}

func (s *DriverService) populate(ctx context.Context, st Stores, driver *models.Driver) error {
	requests, err := s.relations.RequestIDsForDriver(ctx, st, driver.ID)
	if err != nil {
		return err
	}
	if requests == nil {
		requests = []string{}
	}
	driver.WasteRequests = requests
	return nil
}

func (s *DriverService) removeImages(paths []string) {
	if s.images == nil {
		return
	}
	for _, path := range paths {
		if err := s.images.Delete(path); err != nil {
			s.logger.Warn("failed to remove driver image", zap.String("path", path), zap.Error(err))
		}
	}
}
