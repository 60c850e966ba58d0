package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/waste-mgmt-api/internal/models"
)

// ReportRepository assembles report datasets with references resolved.
type ReportRepository struct {
	db sqlx.ExtContext
}

// NewReportRepository constructs the repository.
func NewReportRepository(db sqlx.ExtContext) *ReportRepository {
	return &ReportRepository{db: db}
}

// WasteRequests returns requests joined with category, district, requester and driver names.
func (r *ReportRepository) WasteRequests(ctx context.Context, filter models.ReportFilter) ([]models.WasteRequestReportRow, error) {
	var (
		conditions []string
		args       []interface{}
	)
	if filter.From != nil {
		args = append(args, *filter.From)
		conditions = append(conditions, fmt.Sprintf("wr.pick_up_date >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conditions = append(conditions, fmt.Sprintf("wr.pick_up_date <= $%d", len(args)))
	}
	if filter.DistrictID != "" {
		args = append(args, filter.DistrictID)
		conditions = append(conditions, fmt.Sprintf("wr.district_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, strings.ToUpper(filter.Status))
		conditions = append(conditions, fmt.Sprintf("wr.request_status = $%d", len(args)))
	}
	query := `SELECT wr.id, wc.name AS category_name, d.name AS district_name, wr.city, u.full_name AS requester_name,
	dr.name AS driver_name, wr.pick_up_date, wr.quantity, wr.estimated_price, wr.request_status, wr.truck_driver_status,
	wr.collection_status, wr.payment_status
	FROM waste_requests wr
	JOIN waste_categories wc ON wc.id = wr.waste_category_id
	JOIN districts d ON d.id = wr.district_id
	JOIN users u ON u.id = wr.user_id
	LEFT JOIN drivers dr ON dr.id = wr.driver_id` + whereClause(conditions) +
		fmt.Sprintf(" ORDER BY wr.pick_up_date ASC LIMIT %d", reportLimit(filter.Limit))

	rows := []models.WasteRequestReportRow{}
	if err := sqlx.SelectContext(ctx, r.db, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("waste request report: %w", err)
	}
	return rows, nil
}

// Payments returns payments joined with the paying user.
func (r *ReportRepository) Payments(ctx context.Context, filter models.ReportFilter) ([]models.PaymentReportRow, error) {
	var (
		conditions []string
		args       []interface{}
	)
	if filter.From != nil {
		args = append(args, *filter.From)
		conditions = append(conditions, fmt.Sprintf("p.due_date >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conditions = append(conditions, fmt.Sprintf("p.due_date <= $%d", len(args)))
	}
	if filter.DistrictID != "" {
		args = append(args, filter.DistrictID)
		conditions = append(conditions, fmt.Sprintf("wr.district_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, strings.ToUpper(filter.Status))
		conditions = append(conditions, fmt.Sprintf("p.status = $%d", len(args)))
	}
	query := `SELECT p.id, u.full_name AS user_name, p.waste_request_id, p.method, p.status, p.amount, p.due_date,
	p.payment_date, p.is_admin_payment
	FROM payments p
	JOIN users u ON u.id = p.user_id
	JOIN waste_requests wr ON wr.id = p.waste_request_id` + whereClause(conditions) +
		fmt.Sprintf(" ORDER BY p.due_date ASC LIMIT %d", reportLimit(filter.Limit))

	rows := []models.PaymentReportRow{}
	if err := sqlx.SelectContext(ctx, r.db, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("payment report: %w", err)
	}
	return rows, nil
}

// Drivers returns drivers with their assignment and completion counts.
func (r *ReportRepository) Drivers(ctx context.Context, filter models.ReportFilter) ([]models.DriverReportRow, error) {
	var (
		conditions []string
		args       []interface{}
	)
	if filter.DistrictID != "" {
		args = append(args, filter.DistrictID)
		conditions = append(conditions, fmt.Sprintf("dr.district_id = $%d", len(args)))
	}
	query := `SELECT dr.id, dr.name, dr.vehicle_number, d.name AS district_name, dr.city, dr.active,
	COUNT(dwr.waste_request_id) AS assigned,
	COUNT(wr.id) FILTER (WHERE wr.collection_status = 'COMPLETED') AS completed
	FROM drivers dr
	JOIN districts d ON d.id = dr.district_id
	LEFT JOIN driver_waste_requests dwr ON dwr.driver_id = dr.id
	LEFT JOIN waste_requests wr ON wr.id = dwr.waste_request_id` + whereClause(conditions) +
		fmt.Sprintf(" GROUP BY dr.id, d.name ORDER BY dr.name ASC LIMIT %d", reportLimit(filter.Limit))

	rows := []models.DriverReportRow{}
	if err := sqlx.SelectContext(ctx, r.db, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("driver report: %w", err)
	}
	return rows, nil
}

// Districts returns per-district driver and request totals.
func (r *ReportRepository) Districts(ctx context.Context, filter models.ReportFilter) ([]models.DistrictReportRow, error) {
	var (
		conditions []string
		args       []interface{}
	)
	if filter.DistrictID != "" {
		args = append(args, filter.DistrictID)
		conditions = append(conditions, fmt.Sprintf("d.id = $%d", len(args)))
	}
	query := `SELECT d.id, d.name, d.district_code, d.active,
	(SELECT COUNT(*) FROM district_drivers dd WHERE dd.district_id = d.id) AS drivers,
	(SELECT COUNT(*) FROM district_waste_requests dw WHERE dw.district_id = d.id) AS requests,
	COALESCE((SELECT SUM(wr.quantity) FROM waste_requests wr WHERE wr.district_id = d.id), 0) AS total_quantity,
	COALESCE((SELECT SUM(wr.estimated_price) FROM waste_requests wr WHERE wr.district_id = d.id), 0) AS total_amount
	FROM districts d` + whereClause(conditions) +
		fmt.Sprintf(" ORDER BY d.name ASC LIMIT %d", reportLimit(filter.Limit))

	rows := []models.DistrictReportRow{}
	if err := sqlx.SelectContext(ctx, r.db, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("district report: %w", err)
	}
	return rows, nil
}

func reportLimit(limit int) int {
	if limit <= 0 || limit > 10000 {
		return 5000
	}
	return limit
}
