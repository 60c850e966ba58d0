package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/waste-mgmt-api/internal/models"
)

const wasteRequestColumns = `id, waste_category_id, district_id, city, address, location, pick_up_date, quantity, estimated_price,
	user_id, driver_id, payment_id, request_status, truck_driver_status, collection_status, payment_status,
	rating, comment, version, created_at, updated_at`

// WasteRequestRepository persists waste pickup requests.
type WasteRequestRepository struct {
	db sqlx.ExtContext
}

// NewWasteRequestRepository constructs the repository.
func NewWasteRequestRepository(db sqlx.ExtContext) *WasteRequestRepository {
	return &WasteRequestRepository{db: db}
}

// FindByID returns a request by identifier.
func (r *WasteRequestRepository) FindByID(ctx context.Context, id string) (*models.WasteRequest, error) {
	query := `SELECT ` + wasteRequestColumns + ` FROM waste_requests WHERE id = $1`
	var req models.WasteRequest
	if err := sqlx.GetContext(ctx, r.db, &req, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find waste request: %w", err)
	}
	return &req, nil
}

// List returns requests matching the filter, newest pickups first.
func (r *WasteRequestRepository) List(ctx context.Context, filter models.WasteRequestFilter) ([]models.WasteRequest, int, error) {
	var (
		conditions []string
		args       []interface{}
	)
	add := func(column string, value interface{}) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if filter.UserID != "" {
		add("user_id", filter.UserID)
	}
	if filter.DriverID != "" {
		add("driver_id", filter.DriverID)
	}
	if filter.DistrictID != "" {
		add("district_id", filter.DistrictID)
	}
	if filter.WasteCategoryID != "" {
		add("waste_category_id", filter.WasteCategoryID)
	}
	if filter.RequestStatus != "" {
		add("request_status", filter.RequestStatus)
	}
	if filter.TruckDriverStatus != "" {
		add("truck_driver_status", filter.TruckDriverStatus)
	}
	if filter.CollectionStatus != "" {
		add("collection_status", filter.CollectionStatus)
	}
	if filter.PaymentStatus != "" {
		add("payment_status", filter.PaymentStatus)
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		conditions = append(conditions, fmt.Sprintf("pick_up_date >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conditions = append(conditions, fmt.Sprintf("pick_up_date <= $%d", len(args)))
	}
	where := whereClause(conditions)
	limit, offset := pageBounds(filter.Page, filter.PageSize)

	listQuery := fmt.Sprintf("SELECT %s FROM waste_requests%s ORDER BY pick_up_date DESC, created_at DESC LIMIT %d OFFSET %d", wasteRequestColumns, where, limit, offset)
	var requests []models.WasteRequest
	if err := sqlx.SelectContext(ctx, r.db, &requests, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list waste requests: %w", err)
	}
	var total int
	if err := sqlx.GetContext(ctx, r.db, &total, "SELECT COUNT(*) FROM waste_requests"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count waste requests: %w", err)
	}
	return requests, total, nil
}

// CountByCategory returns how many requests reference a category.
func (r *WasteRequestRepository) CountByCategory(ctx context.Context, categoryID string) (int, error) {
	var count int
	if err := sqlx.GetContext(ctx, r.db, &count, `SELECT COUNT(*) FROM waste_requests WHERE waste_category_id = $1`, categoryID); err != nil {
		return 0, fmt.Errorf("count waste requests by category: %w", err)
	}
	return count, nil
}

// Create inserts a request at version 1.
func (r *WasteRequestRepository) Create(ctx context.Context, req *models.WasteRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if req.CreatedAt.IsZero() {
		req.CreatedAt = now
	}
	req.UpdatedAt = now
	req.Version = 1

	const query = `INSERT INTO waste_requests (id, waste_category_id, district_id, city, address, location, pick_up_date, quantity, estimated_price,
	user_id, driver_id, payment_id, request_status, truck_driver_status, collection_status, payment_status, rating, comment, version, created_at, updated_at)
	VALUES (:id, :waste_category_id, :district_id, :city, :address, :location, :pick_up_date, :quantity, :estimated_price,
	:user_id, :driver_id, :payment_id, :request_status, :truck_driver_status, :collection_status, :payment_status, :rating, :comment, :version, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.db, query, req); err != nil {
		return fmt.Errorf("create waste request: %w", err)
	}
	return nil
}

// Update writes every mutable column if the stored version still matches req.Version.
// On success req.Version is advanced; a lost race yields ErrStaleVersion.
func (r *WasteRequestRepository) Update(ctx context.Context, req *models.WasteRequest) error {
	req.UpdatedAt = time.Now().UTC()
	const query = `UPDATE waste_requests SET waste_category_id = :waste_category_id, district_id = :district_id, city = :city,
	address = :address, location = :location, pick_up_date = :pick_up_date, quantity = :quantity, estimated_price = :estimated_price,
	driver_id = :driver_id, payment_id = :payment_id, request_status = :request_status, truck_driver_status = :truck_driver_status,
	collection_status = :collection_status, payment_status = :payment_status, rating = :rating, comment = :comment,
	version = version + 1, updated_at = :updated_at
	WHERE id = :id AND version = :version`
	result, err := sqlx.NamedExecContext(ctx, r.db, query, req)
	if err != nil {
		return fmt.Errorf("update waste request: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update waste request rows affected: %w", err)
	}
	if affected == 0 {
		return ErrStaleVersion
	}
	req.Version++
	return nil
}

// Delete removes a request.
func (r *WasteRequestRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM waste_requests WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete waste request: %w", err)
	}
	return expectAffected(result, "delete waste request")
}
