package service

import (
	"context"

	"github.com/noah-isme/waste-mgmt-api/internal/models"
	appErrors "github.com/noah-isme/waste-mgmt-api/pkg/errors"
	"github.com/noah-isme/waste-mgmt-api/pkg/middleware/requestid"
)

// recordEvent appends a request event to the outbox inside the caller's unit of work,
// tagged with the HTTP request id that caused it.
func recordEvent(ctx context.Context, st Stores, eventType models.EventType, record *models.WasteRequest) error {
	event, err := models.NewRequestEvent(eventType, record)
	if err != nil {
		return appErrors.Internal(err, "failed to encode domain event")
	}
	event.CorrelationID = requestid.FromContext(ctx)
	if err := st.Outbox.Add(ctx, event); err != nil {
		return appErrors.Internal(err, "failed to record domain event")
	}
	return nil
}
