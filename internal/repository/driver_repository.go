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

const driverColumns = `id, name, email, phone, nic, vehicle_number, images, district_id, city, active, user_id, created_at, updated_at`

// DriverRepository persists truck drivers.
type DriverRepository struct {
	db sqlx.ExtContext
}

// NewDriverRepository constructs the repository.
func NewDriverRepository(db sqlx.ExtContext) *DriverRepository {
	return &DriverRepository{db: db}
}

// FindByID returns a driver by identifier.
func (r *DriverRepository) FindByID(ctx context.Context, id string) (*models.Driver, error) {
	query := `SELECT ` + driverColumns + ` FROM drivers WHERE id = $1`
	var driver models.Driver
	if err := sqlx.GetContext(ctx, r.db, &driver, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find driver: %w", err)
	}
	return &driver, nil
}

// FindByUserID returns the driver profile linked to a user account.
func (r *DriverRepository) FindByUserID(ctx context.Context, userID string) (*models.Driver, error) {
	query := `SELECT ` + driverColumns + ` FROM drivers WHERE user_id = $1 LIMIT 1`
	var driver models.Driver
	if err := sqlx.GetContext(ctx, r.db, &driver, query, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find driver by user: %w", err)
	}
	return &driver, nil
}

// ExistsByVehicle checks whether a vehicle number is already registered to another driver.
func (r *DriverRepository) ExistsByVehicle(ctx context.Context, vehicleNumber, excludeID string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM drivers WHERE UPPER(vehicle_number) = UPPER($1) AND ($2 = '' OR id <> $2))`
	var exists bool
	if err := sqlx.GetContext(ctx, r.db, &exists, query, vehicleNumber, excludeID); err != nil {
		return false, fmt.Errorf("check vehicle number: %w", err)
	}
	return exists, nil
}

// List returns drivers matching the filter with the total count.
func (r *DriverRepository) List(ctx context.Context, filter models.DriverFilter) ([]models.Driver, int, error) {
	var (
		conditions []string
		args       []interface{}
	)
	if filter.DistrictID != "" {
		args = append(args, filter.DistrictID)
		conditions = append(conditions, fmt.Sprintf("district_id = $%d", len(args)))
	}
	if filter.City != "" {
		args = append(args, filter.City)
		conditions = append(conditions, fmt.Sprintf("LOWER(city) = LOWER($%d)", len(args)))
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		conditions = append(conditions, fmt.Sprintf("(LOWER(name) LIKE $%d OR LOWER(vehicle_number) LIKE $%d)", len(args), len(args)))
	}
	where := whereClause(conditions)
	limit, offset := pageBounds(filter.Page, filter.PageSize)

	listQuery := fmt.Sprintf("SELECT %s FROM drivers%s ORDER BY name ASC LIMIT %d OFFSET %d", driverColumns, where, limit, offset)
	var drivers []models.Driver
	if err := sqlx.SelectContext(ctx, r.db, &drivers, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list drivers: %w", err)
	}
	var total int
	if err := sqlx.GetContext(ctx, r.db, &total, "SELECT COUNT(*) FROM drivers"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count drivers: %w", err)
	}
	return drivers, total, nil
}

// Create inserts a driver.
func (r *DriverRepository) Create(ctx context.Context, driver *models.Driver) error {
	if driver.ID == "" {
		driver.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if driver.CreatedAt.IsZero() {
		driver.CreatedAt = now
	}
	driver.UpdatedAt = now

	const query = `INSERT INTO drivers (id, name, email, phone, nic, vehicle_number, images, district_id, city, active, user_id, created_at, updated_at)
	VALUES (:id, :name, :email, :phone, :nic, :vehicle_number, :images, :district_id, :city, :active, :user_id, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.db, query, driver); err != nil {
		return fmt.Errorf("create driver: %w", err)
	}
	return nil
}

// Update stores mutable driver fields.
func (r *DriverRepository) Update(ctx context.Context, driver *models.Driver) error {
	driver.UpdatedAt = time.Now().UTC()
	const query = `UPDATE drivers SET name = :name, email = :email, phone = :phone, nic = :nic, vehicle_number = :vehicle_number,
	images = :images, district_id = :district_id, city = :city, active = :active, updated_at = :updated_at WHERE id = :id`
	result, err := sqlx.NamedExecContext(ctx, r.db, query, driver)
	if err != nil {
		return fmt.Errorf("update driver: %w", err)
	}
	return expectAffected(result, "update driver")
}

// Delete removes a driver.
func (r *DriverRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM drivers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete driver: %w", err)
	}
	return expectAffected(result, "delete driver")
}
