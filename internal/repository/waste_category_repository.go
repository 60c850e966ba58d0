package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/waste-mgmt-api/internal/models"
)

const categoryColumns = `id, name, description, price_per_kg, active, is_user_payment_required, created_at, updated_at`

// WasteCategoryRepository persists waste categories.
type WasteCategoryRepository struct {
	db sqlx.ExtContext
}

// NewWasteCategoryRepository constructs the repository.
func NewWasteCategoryRepository(db sqlx.ExtContext) *WasteCategoryRepository {
	return &WasteCategoryRepository{db: db}
}

// FindByID returns a category by identifier.
func (r *WasteCategoryRepository) FindByID(ctx context.Context, id string) (*models.WasteCategory, error) {
	query := `SELECT ` + categoryColumns + ` FROM waste_categories WHERE id = $1`
	var category models.WasteCategory
	if err := sqlx.GetContext(ctx, r.db, &category, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find waste category: %w", err)
	}
	return &category, nil
}

// ExistsByName performs a case-insensitive uniqueness check.
func (r *WasteCategoryRepository) ExistsByName(ctx context.Context, name, excludeID string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM waste_categories WHERE LOWER(name) = LOWER($1) AND ($2 = '' OR id <> $2))`
	var exists bool
	if err := sqlx.GetContext(ctx, r.db, &exists, query, strings.TrimSpace(name), excludeID); err != nil {
		return false, fmt.Errorf("check waste category name: %w", err)
	}
	return exists, nil
}

// List returns categories ordered by name.
func (r *WasteCategoryRepository) List(ctx context.Context, filter models.WasteCategoryFilter) ([]models.WasteCategory, error) {
	var (
		conditions []string
		args       []interface{}
	)
	if filter.Active != nil {
		args = append(args, *filter.Active)
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		conditions = append(conditions, fmt.Sprintf("LOWER(name) LIKE $%d", len(args)))
	}
	query := fmt.Sprintf("SELECT %s FROM waste_categories%s ORDER BY name ASC", categoryColumns, whereClause(conditions))
	var categories []models.WasteCategory
	if err := sqlx.SelectContext(ctx, r.db, &categories, query, args...); err != nil {
		return nil, fmt.Errorf("list waste categories: %w", err)
	}
	return categories, nil
}

// Create inserts a category.
func (r *WasteCategoryRepository) Create(ctx context.Context, category *models.WasteCategory) error {
	if category.ID == "" {
		category.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if category.CreatedAt.IsZero() {
		category.CreatedAt = now
	}
	category.UpdatedAt = now
	const query = `INSERT INTO waste_categories (id, name, description, price_per_kg, active, is_user_payment_required, created_at, updated_at)
	VALUES (:id, :name, :description, :price_per_kg, :active, :is_user_payment_required, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.db, query, category); err != nil {
		return fmt.Errorf("create waste category: %w", err)
	}
	return nil
}

// Update stores mutable category fields.
func (r *WasteCategoryRepository) Update(ctx context.Context, category *models.WasteCategory) error {
	category.UpdatedAt = time.Now().UTC()
	const query = `UPDATE waste_categories SET name = :name, description = :description, price_per_kg = :price_per_kg, active = :active,
	is_user_payment_required = :is_user_payment_required, updated_at = :updated_at WHERE id = :id`
	result, err := sqlx.NamedExecContext(ctx, r.db, query, category)
	if err != nil {
		return fmt.Errorf("update waste category: %w", err)
	}
	return expectAffected(result, "update waste category")
}

// Delete removes a category.
func (r *WasteCategoryRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM waste_categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete waste category: %w", err)
	}
	return expectAffected(result, "delete waste category")
}
