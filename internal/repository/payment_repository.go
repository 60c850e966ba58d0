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

const paymentColumns = `id, method, status, amount, due_date, payment_date, user_id, waste_request_id, is_admin_payment, version, created_at, updated_at`

// PaymentRepository persists payments.
type PaymentRepository struct {
	db sqlx.ExtContext
}

// NewPaymentRepository constructs the repository.
func NewPaymentRepository(db sqlx.ExtContext) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// FindByID returns a payment by identifier.
func (r *PaymentRepository) FindByID(ctx context.Context, id string) (*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	var payment models.Payment
	if err := sqlx.GetContext(ctx, r.db, &payment, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find payment: %w", err)
	}
	return &payment, nil
}

// FindByRequestID returns the payment shadowing a waste request.
func (r *PaymentRepository) FindByRequestID(ctx context.Context, requestID string) (*models.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE waste_request_id = $1`
	var payment models.Payment
	if err := sqlx.GetContext(ctx, r.db, &payment, query, requestID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find payment by request: %w", err)
	}
	return &payment, nil
}

// List returns payments matching the filter with the total count.
func (r *PaymentRepository) List(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, int, error) {
	var (
		conditions []string
		args       []interface{}
	)
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.IsAdminPayment != nil {
		args = append(args, *filter.IsAdminPayment)
		conditions = append(conditions, fmt.Sprintf("is_admin_payment = $%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		conditions = append(conditions, fmt.Sprintf("due_date >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conditions = append(conditions, fmt.Sprintf("due_date <= $%d", len(args)))
	}
	where := whereClause(conditions)
	limit, offset := pageBounds(filter.Page, filter.PageSize)

	listQuery := fmt.Sprintf("SELECT %s FROM payments%s ORDER BY due_date DESC LIMIT %d OFFSET %d", paymentColumns, where, limit, offset)
	var payments []models.Payment
	if err := sqlx.SelectContext(ctx, r.db, &payments, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list payments: %w", err)
	}
	var total int
	if err := sqlx.GetContext(ctx, r.db, &total, "SELECT COUNT(*) FROM payments"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count payments: %w", err)
	}
	return payments, total, nil
}

// Create inserts a payment at version 1.
func (r *PaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	if payment.ID == "" {
		payment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = now
	}
	payment.UpdatedAt = now
	payment.Version = 1

	const query = `INSERT INTO payments (id, method, status, amount, due_date, payment_date, user_id, waste_request_id, is_admin_payment, version, created_at, updated_at)
	VALUES (:id, :method, :status, :amount, :due_date, :payment_date, :user_id, :waste_request_id, :is_admin_payment, :version, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.db, query, payment); err != nil {
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

// Update writes mutable columns guarded by the version; a lost race yields ErrStaleVersion.
func (r *PaymentRepository) Update(ctx context.Context, payment *models.Payment) error {
	payment.UpdatedAt = time.Now().UTC()
	const query = `UPDATE payments SET method = :method, status = :status, amount = :amount, due_date = :due_date,
	payment_date = :payment_date, is_admin_payment = :is_admin_payment, version = version + 1, updated_at = :updated_at
	WHERE id = :id AND version = :version`
	result, err := sqlx.NamedExecContext(ctx, r.db, query, payment)
	if err != nil {
		return fmt.Errorf("update payment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update payment rows affected: %w", err)
	}
	if affected == 0 {
		return ErrStaleVersion
	}
	payment.Version++
	return nil
}

// Delete removes a payment.
func (r *PaymentRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM payments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete payment: %w", err)
	}
	return expectAffected(result, "delete payment")
}
