package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/waste-mgmt-api/internal/models"
)

// ErrStaleVersion is returned when a compare-and-swap update loses to a concurrent writer.
var ErrStaleVersion = errors.New("stale version")

const districtColumns = `id, name, cities, active, district_code, created_at, updated_at`

// DistrictRepository persists districts.
type DistrictRepository struct {
	db sqlx.ExtContext
}

// NewDistrictRepository constructs the repository on a database handle or transaction.
func NewDistrictRepository(db sqlx.ExtContext) *DistrictRepository {
	return &DistrictRepository{db: db}
}

// FindByID returns a district by identifier.
func (r *DistrictRepository) FindByID(ctx context.Context, id string) (*models.District, error) {
	query := `SELECT ` + districtColumns + ` FROM districts WHERE id = $1`
	var district models.District
	if err := sqlx.GetContext(ctx, r.db, &district, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find district: %w", err)
	}
	return &district, nil
}

// ExistsByCode checks whether another district already uses the code.
func (r *DistrictRepository) ExistsByCode(ctx context.Context, code, excludeID string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM districts WHERE LOWER(district_code) = LOWER($1) AND ($2 = '' OR id <> $2))`
	var exists bool
	if err := sqlx.GetContext(ctx, r.db, &exists, query, code, excludeID); err != nil {
		return false, fmt.Errorf("check district code: %w", err)
	}
	return exists, nil
}

// List returns districts matching the filter with the total count.
func (r *DistrictRepository) List(ctx context.Context, filter models.DistrictFilter) ([]models.District, int, error) {
	var (
		conditions []string
		args       []interface{}
	)
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		conditions = append(conditions, fmt.Sprintf("(LOWER(name) LIKE $%d OR LOWER(district_code) LIKE $%d)", len(args), len(args)))
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)))
	}
	where := whereClause(conditions)
	limit, offset := pageBounds(filter.Page, filter.PageSize)

	listQuery := fmt.Sprintf("SELECT %s FROM districts%s ORDER BY name ASC LIMIT %d OFFSET %d", districtColumns, where, limit, offset)
	var districts []models.District
	if err := sqlx.SelectContext(ctx, r.db, &districts, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list districts: %w", err)
	}

	var total int
	if err := sqlx.GetContext(ctx, r.db, &total, "SELECT COUNT(*) FROM districts"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count districts: %w", err)
	}
	return districts, total, nil
}

// Create inserts a district.
func (r *DistrictRepository) Create(ctx context.Context, district *models.District) error {
	if district.ID == "" {
		district.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if district.CreatedAt.IsZero() {
		district.CreatedAt = now
	}
	district.UpdatedAt = now

	const query = `INSERT INTO districts (id, name, cities, active, district_code, created_at, updated_at)
	VALUES (:id, :name, :cities, :active, :district_code, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.db, query, district); err != nil {
		return fmt.Errorf("create district: %w", err)
	}
	return nil
}

// Update stores mutable district fields.
func (r *DistrictRepository) Update(ctx context.Context, district *models.District) error {
	district.UpdatedAt = time.Now().UTC()
	const query = `UPDATE districts SET name = :name, cities = :cities, active = :active, district_code = :district_code, updated_at = :updated_at WHERE id = :id`
	result, err := sqlx.NamedExecContext(ctx, r.db, query, district)
	if err != nil {
		return fmt.Errorf("update district: %w", err)
	}
	return expectAffected(result, "update district")
}

// Delete removes a district.
func (r *DistrictRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM districts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete district: %w", err)
	}
	return expectAffected(result, "delete district")
}

func whereClause(conditions []string) string {
	if len(conditions) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conditions, " AND ")
}

func pageBounds(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	return size, (page - 1) * size
}

func expectAffected(result sql.Result, op string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
