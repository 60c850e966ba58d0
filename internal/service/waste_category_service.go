package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/waste-mgmt-api/internal/models"
	appErrors "github.com/noah-isme/waste-mgmt-api/pkg/errors"
)

const categoryCachePrefix = "waste_categories:"

// CreateWasteCategoryRequest captures fields for creating waste categories.
type CreateWasteCategoryRequest struct {
	Name                  string  `json:"name" validate:"required"`
	Description           string  `json:"description" validate:"max=1000"`
	PricePerKg            float64 `json:"pricePerKg" validate:"required,gt=0"`
	Active                *bool   `json:"active"`
	IsUserPaymentRequired *bool   `json:"isUserPaymentRequired"`
}

// UpdateWasteCategoryRequest modifies category fields; omitted fields are kept.
type UpdateWasteCategoryRequest struct {
	Name                  *string  `json:"name" validate:"omitempty,min=1"`
	Description           *string  `json:"description" validate:"omitempty,max=1000"`
	PricePerKg            *float64 `json:"pricePerKg" validate:"omitempty,gt=0"`
	Active                *bool    `json:"active"`
	IsUserPaymentRequired *bool    `json:"isUserPaymentRequired"`
}

// WasteCategoryService handles waste category workflows. Listings are read through the cache.
type WasteCategoryService struct {
	uow       UnitOfWork
	cache     *CacheService
	cacheTTL  time.Duration
	validator *validator.Validate
	logger    *zap.Logger
}

// NewWasteCategoryService creates a new waste category service.
func NewWasteCategoryService(uow UnitOfWork, cache *CacheService, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *WasteCategoryService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WasteCategoryService{uow: uow, cache: cache, cacheTTL: cacheTTL, validator: validate, logger: logger}
}

// List returns categories, served from cache when possible. The flag reports a cache hit.
func (s *WasteCategoryService) List(ctx context.Context, filter models.WasteCategoryFilter) ([]models.WasteCategory, bool, error) {
	categories, hit, err := cached(ctx, s.cache, categoryListKey(filter), s.cacheTTL, func(ctx context.Context) ([]models.WasteCategory, error) {
		categories, err := s.uow.Stores().Categories.List(ctx, filter)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list waste categories")
		}
		if categories == nil {
			categories = []models.WasteCategory{}
		}
		return categories, nil
	})
	if err != nil {
		return nil, false, err
	}
	return categories, hit, nil
}

// Get returns a category by identifier.
func (s *WasteCategoryService) Get(ctx context.Context, id string) (*models.WasteCategory, error) {
	category, err := s.uow.Stores().Categories.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "waste category")
	}
	return category, nil
}

// Create adds a category ensuring its name is unique.
func (s *WasteCategoryService) Create(ctx context.Context, req CreateWasteCategoryRequest) (*models.WasteCategory, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid waste category payload")
	}
	category := &models.WasteCategory{
		Name:                  strings.TrimSpace(req.Name),
		Description:           strings.TrimSpace(req.Description),
		PricePerKg:            req.PricePerKg,
		Active:                true,
		IsUserPaymentRequired: true,
	}
	if req.Active != nil {
		category.Active = *req.Active
	}
	if req.IsUserPaymentRequired != nil {
		category.IsUserPaymentRequired = *req.IsUserPaymentRequired
	}

	err := s.uow.Do(ctx, func(st Stores) error {
		if err := checkCategoryName(ctx, st, category.Name, ""); err != nil {
			return err
		}
		if err := st.Categories.Create(ctx, category); err != nil {
			return writeError(err, "waste category", "create")
		}
		return nil
	})
	if err != nil {
		return nil, passThrough(err, "failed to create waste category")
	}
	s.invalidate(ctx)
	return category, nil
}

// Update modifies a category. Existing payments are not repriced.
func (s *WasteCategoryService) Update(ctx context.Context, id string, req UpdateWasteCategoryRequest) (*models.WasteCategory, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Invalid(err, "invalid waste category payload")
	}
	var category *models.WasteCategory
	err := s.uow.Do(ctx, func(st Stores) error {
		current, err := st.Categories.FindByID(ctx, id)
		if err != nil {
			return lookupError(err, "waste category")
		}
		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if err := checkCategoryName(ctx, st, name, id); err != nil {
				return err
			}
			current.Name = name
		}
		if req.Description != nil {
			current.Description = strings.TrimSpace(*req.Description)
		}
		if req.PricePerKg != nil {
			current.PricePerKg = *req.PricePerKg
		}
		if req.Active != nil {
			current.Active = *req.Active
		}
		if req.IsUserPaymentRequired != nil {
			current.IsUserPaymentRequired = *req.IsUserPaymentRequired
		}
		if err := st.Categories.Update(ctx, current); err != nil {
			return writeError(err, "waste category", "update")
		}
		category = current
		return nil
	})
	if err != nil {
		return nil, passThrough(err, "failed to update waste category")
	}
	s.invalidate(ctx)
	return category, nil
}

// Delete removes a category no waste request refers to.
func (s *WasteCategoryService) Delete(ctx context.Context, id string) error {
	err := s.uow.Do(ctx, func(st Stores) error {
		category, err := st.Categories.FindByID(ctx, id)
		if err != nil {
			return lookupError(err, "waste category")
		}
		count, err := st.Requests.CountByCategory(ctx, category.ID)
		if err != nil {
			return appErrors.Internal(err, "failed to check waste category usage")
		}
		if count > 0 {
			return appErrors.Clone(appErrors.ErrConflict, "waste category is used by waste requests")
		}
		if err := st.Categories.Delete(ctx, category.ID); err != nil {
			return writeError(err, "waste category", "delete")
		}
		return nil
	})
	if err != nil {
		return passThrough(err, "failed to delete waste category")
	}
	s.invalidate(ctx)
	return nil
}

func (s *WasteCategoryService) invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, categoryCachePrefix); err != nil {
		s.logger.Warn("failed to invalidate waste category cache", zap.Error(err))
	}
}

func checkCategoryName(ctx context.Context, st Stores, name, excludeID string) error {
	exists, err := st.Categories.ExistsByName(ctx, name, excludeID)
	if err != nil {
		return appErrors.Internal(err, "failed to check waste category name")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "waste category name already exists")
	}
	return nil
}

func categoryListKey(filter models.WasteCategoryFilter) string {
	active := "all"
	if filter.Active != nil {
		active = fmt.Sprintf("%t", *filter.Active)
	}
	return fmt.Sprintf("%slist:%s:%s", categoryCachePrefix, active, strings.ToLower(strings.TrimSpace(filter.Search)))
}
