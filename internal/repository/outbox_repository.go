package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/waste-mgmt-api/internal/models"
)

// OutboxRepository persists domain events awaiting dispatch.
type OutboxRepository struct {
	db sqlx.ExtContext
}

// NewOutboxRepository constructs the repository.
func NewOutboxRepository(db sqlx.ExtContext) *OutboxRepository {
	return &OutboxRepository{db: db}
}

// Add records an event; call it inside the transaction that produced the change.
func (r *OutboxRepository) Add(ctx context.Context, event *models.OutboxEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO outbox_events (id, type, aggregate_id, correlation_id, payload, attempts, created_at)
	VALUES (:id, :type, :aggregate_id, :correlation_id, :payload, :attempts, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.db, query, event); err != nil {
		return fmt.Errorf("add outbox event: %w", err)
	}
	return nil
}

// FetchPending returns undispatched events that still have attempts left, oldest first.
func (r *OutboxRepository) FetchPending(ctx context.Context, limit, maxAttempts int) ([]models.OutboxEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `SELECT id, type, aggregate_id, correlation_id, payload, attempts, last_error, created_at, dispatched_at
	FROM outbox_events WHERE dispatched_at IS NULL AND attempts < $1 ORDER BY created_at ASC LIMIT $2`
	var events []models.OutboxEvent
	if err := sqlx.SelectContext(ctx, r.db, &events, query, maxAttempts, limit); err != nil {
		return nil, fmt.Errorf("fetch pending outbox events: %w", err)
	}
	return events, nil
}

// MarkDispatched flags an event as delivered.
func (r *OutboxRepository) MarkDispatched(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE outbox_events SET dispatched_at = $2, attempts = attempts + 1, last_error = NULL WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, at); err != nil {
		return fmt.Errorf("mark outbox event dispatched: %w", err)
	}
	return nil
}

// MarkFailed records a failed delivery attempt.
func (r *OutboxRepository) MarkFailed(ctx context.Context, id string, cause string) error {
	const query = `UPDATE outbox_events SET attempts = attempts + 1, last_error = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, cause); err != nil {
		return fmt.Errorf("mark outbox event failed: %w", err)
	}
	return nil
}
