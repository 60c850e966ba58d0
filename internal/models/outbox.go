package models

import (
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx/types"
)

// EventType names a domain event recorded in the outbox.
type EventType string

const (
	EventRequestCreated       EventType = "RequestCreated"
	EventRequestStatusChanged EventType = "RequestStatusChanged"
	EventDriverAssigned       EventType = "DriverAssigned"
	EventDriverResponded      EventType = "DriverResponded"
	EventCollectionConfirmed  EventType = "CollectionConfirmed"
	EventPaymentSettled       EventType = "PaymentSettled"
	EventRequestDeleted       EventType = "RequestDeleted"
)

// OutboxEvent is a side effect persisted in the same transaction as the change that caused it.
type OutboxEvent struct {
	ID            string         `db:"id" json:"id"`
	Type          EventType      `db:"type" json:"type"`
	AggregateID   string         `db:"aggregate_id" json:"aggregateId"`
	CorrelationID string         `db:"correlation_id" json:"correlationId,omitempty"`
	Payload       types.JSONText `db:"payload" json:"payload"`
	Attempts      int            `db:"attempts" json:"attempts"`
	LastError     *string        `db:"last_error" json:"lastError,omitempty"`
	CreatedAt     time.Time      `db:"created_at" json:"createdAt"`
	DispatchedAt  *time.Time     `db:"dispatched_at" json:"dispatchedAt,omitempty"`
}

// RequestEventPayload is the body of every waste request event.
type RequestEventPayload struct {
	RequestID         string         `json:"requestId"`
	UserID            string         `json:"userId"`
	DriverID          string         `json:"driverId,omitempty"`
	PaymentID         string         `json:"paymentId,omitempty"`
	RequestStatus     ApprovalStatus `json:"requestStatus,omitempty"`
	TruckDriverStatus ApprovalStatus `json:"truckDriverStatus,omitempty"`
	CollectionStatus  ProgressStatus `json:"collectionStatus,omitempty"`
	PaymentStatus     ProgressStatus `json:"paymentStatus,omitempty"`
	Amount            float64        `json:"amount,omitempty"`
	PickUpDate        time.Time      `json:"pickUpDate"`
	Address           string         `json:"address,omitempty"`
}

// NewRequestEvent builds an outbox event snapshotting the request.
func NewRequestEvent(eventType EventType, req *WasteRequest) (*OutboxEvent, error) {
	payload := RequestEventPayload{
		RequestID:         req.ID,
		UserID:            req.UserID,
		RequestStatus:     req.RequestStatus,
		TruckDriverStatus: req.TruckDriverStatus,
		CollectionStatus:  req.CollectionStatus,
		PaymentStatus:     req.PaymentStatus,
		Amount:            req.EstimatedPrice,
		PickUpDate:        req.PickUpDate,
		Address:           req.Address,
	}
	if req.DriverID != nil {
		payload.DriverID = *req.DriverID
	}
	if req.PaymentID != nil {
		payload.PaymentID = *req.PaymentID
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &OutboxEvent{Type: eventType, AggregateID: req.ID, Payload: types.JSONText(raw)}, nil
}
