package service

import (
	"database/sql"
	"errors"

	"github.com/noah-isme/waste-mgmt-api/internal/models"
	"github.com/noah-isme/waste-mgmt-api/internal/repository"
	appErrors "github.com/noah-isme/waste-mgmt-api/pkg/errors"
)

// lookupError maps a repository read failure to NotFound or Internal.
func lookupError(err error, entity string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, entity+" not found")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load "+entity)
}

// writeError maps a repository write failure; lost version races surface as Conflict.
func writeError(err error, entity, action string) error {
	var appErr *appErrors.Error
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, repository.ErrStaleVersion):
		return appErrors.Clone(appErrors.ErrConflict, entity+" was modified concurrently")
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.Clone(appErrors.ErrNotFound, entity+" not found")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to "+action+" "+entity)
}

// passThrough keeps typed errors and wraps anything else as Internal.
func passThrough(err error, message string) error {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func paginationFor(page, size, total int) *models.Pagination {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return &models.Pagination{Page: page, PageSize: size, TotalCount: total}
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
