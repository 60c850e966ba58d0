package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/waste-mgmt-api/internal/models"
	"github.com/noah-isme/waste-mgmt-api/pkg/jobs"
	"github.com/noah-isme/waste-mgmt-api/pkg/notify"
)

type outboxSource interface {
	FetchPending(ctx context.Context, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkDispatched(ctx context.Context, id string, at time.Time) error
	MarkFailed(ctx context.Context, id string, cause string) error
}

// DispatcherConfig tunes outbox polling and delivery.
type DispatcherConfig struct {
	PollInterval time.Duration
	BatchSize    int
	Workers      int
	MaxAttempts  int
	SendTimeout  time.Duration
}

// EventDispatcher drains the outbox and turns domain events into email and SMS notifications.
// Delivery failures are recorded on the event and never reach the operation that produced it.
type EventDispatcher struct {
	outbox   outboxSource
	uow      UnitOfWork
	notifier notify.Notifier
	metrics  *MetricsService
	logger   *zap.Logger
	cfg      DispatcherConfig
	queue    *jobs.Queue

	inflight  sync.Map
	completed sync.Map
	now       func() time.Time
}

// NewEventDispatcher builds a dispatcher backed by a jobs.Queue worker pool.
func NewEventDispatcher(outbox outboxSource, uow UnitOfWork, notifier notify.Notifier, metrics *MetricsService, logger *zap.Logger, cfg DispatcherConfig) *EventDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = notify.Nop{}
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	d := &EventDispatcher{
		outbox:   outbox,
		uow:      uow,
		notifier: notifier,
		metrics:  metrics,
		logger:   logger,
		cfg:      cfg,
		now:      time.Now,
	}
	d.queue = jobs.NewQueue("outbox", d.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BatchSize,
		MaxRetries: 0,
		Logger:     logger,
	})
	return d
}

// Run polls the outbox until ctx is cancelled.
func (d *EventDispatcher) Run(ctx context.Context) {
	d.queue.Start(ctx)
	defer d.queue.Stop()

	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()
	d.logger.Info("event dispatcher started", zap.Duration("poll_interval", d.cfg.PollInterval))
	for {
		d.Poll(ctx)
		select {
		case <-ctx.Done():
			stats := d.queue.Stats()
			d.logger.Info("event dispatcher stopped", zap.Int64("handled", stats.Processed), zap.Int("pending", stats.Pending))
			return
		case <-ticker.C:
		}
	}
}

// Poll enqueues one batch of pending events and returns how many were accepted.
// An event stays in flight until the poll after its delivery finished, so a batch
// fetched while it was being handled cannot enqueue it twice.
func (d *EventDispatcher) Poll(ctx context.Context) int {
	d.completed.Range(func(id, _ interface{}) bool {
		d.inflight.Delete(id)
		d.completed.Delete(id)
		return true
	})
	events, err := d.outbox.FetchPending(ctx, d.cfg.BatchSize, d.cfg.MaxAttempts)
	if err != nil {
		if ctx.Err() == nil {
			d.logger.Warn("failed to fetch outbox events", zap.Error(err))
		}
		return 0
	}
	accepted := 0
	for _, event := range events {
		if _, busy := d.inflight.LoadOrStore(event.ID, struct{}{}); busy {
			continue
		}
		job := jobs.Job{ID: event.ID, Type: string(event.Type), Payload: event}
		if !d.queue.TryEnqueue(job) {
			d.inflight.Delete(event.ID)
			break
		}
		accepted++
	}
	return accepted
}

func (d *EventDispatcher) handle(ctx context.Context, job jobs.Job) error {
	event, ok := job.Payload.(models.OutboxEvent)
	if !ok {
		return fmt.Errorf("unexpected outbox job payload %T", job.Payload)
	}
	defer d.completed.Store(event.ID, struct{}{})
	d.Deliver(ctx, event)
	return nil
}

// Deliver sends the notifications for one event and records the outcome on the outbox row.
func (d *EventDispatcher) Deliver(ctx context.Context, event models.OutboxEvent) {
	err := d.send(ctx, event)
	d.metrics.ObserveEventDelivery(event.Type, err == nil)
	if err != nil {
		d.logger.Warn("event delivery failed",
			zap.String("event_id", event.ID),
			zap.String("type", string(event.Type)),
			zap.String("correlation_id", event.CorrelationID),
			zap.Int("attempt", event.Attempts+1),
			zap.Error(err))
		if markErr := d.outbox.MarkFailed(ctx, event.ID, err.Error()); markErr != nil {
			d.logger.Error("failed to record event failure", zap.String("event_id", event.ID), zap.Error(markErr))
		}
		return
	}
	if markErr := d.outbox.MarkDispatched(ctx, event.ID, d.now().UTC()); markErr != nil {
		d.logger.Error("failed to mark event dispatched", zap.String("event_id", event.ID), zap.Error(markErr))
	}
}

func (d *EventDispatcher) send(ctx context.Context, event models.OutboxEvent) error {
	var payload models.RequestEventPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		return fmt.Errorf("decode %s payload: %w", event.Type, err)
	}
	messages, err := d.compose(ctx, event.Type, payload)
	if err != nil {
		return err
	}
	var errs []error
	for _, msg := range messages {
		sendCtx, cancel := context.WithTimeout(ctx, d.cfg.SendTimeout)
		err := d.notifier.Send(sendCtx, msg)
		cancel()
		switch {
		case err == nil:
		case errors.Is(err, notify.ErrNoRoute):
			d.logger.Debug("notification channel disabled", zap.String("channel", string(msg.Channel)), zap.String("type", string(event.Type)))
		default:
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// compose resolves recipients and template data for an event.
func (d *EventDispatcher) compose(ctx context.Context, eventType models.EventType, p models.RequestEventPayload) ([]notify.Message, error) {
	st := d.uow.Stores()
	data := map[string]interface{}{
		"requestId":  p.RequestID,
		"pickUpDate": p.PickUpDate.Format("2006-01-02"),
		"amount":     fmt.Sprintf("%.2f", p.Amount),
		"address":    p.Address,
		"status":     string(p.RequestStatus),
	}

	requester, err := st.Users.FindByID(ctx, p.UserID)
	if err != nil {
		if isNoRows(err) {
			d.logger.Warn("event requester no longer exists", zap.String("user_id", p.UserID))
			return nil, nil
		}
		return nil, fmt.Errorf("load requester: %w", err)
	}

	var driver *models.Driver
	if p.DriverID != "" {
		driver, err = st.Drivers.FindByID(ctx, p.DriverID)
		if err != nil && !isNoRows(err) {
			return nil, fmt.Errorf("load driver: %w", err)
		}
		if driver != nil {
			data["driverName"] = driver.Name
			data["vehicleNumber"] = driver.VehicleNumber
		}
	}

	if eventType != models.EventRequestDeleted {
		if req, err := st.Requests.FindByID(ctx, p.RequestID); err == nil {
			data["city"] = req.City
			if category, err := st.Categories.FindByID(ctx, req.WasteCategoryID); err == nil {
				data["category"] = category.Name
			}
		}
	}

	email := func(subject, template string) notify.Message {
		return notify.Message{Channel: notify.ChannelEmail, To: requester.Email, Subject: subject, Template: template, Data: data}
	}
	sms := func(template string) []notify.Message {
		if driver == nil || driver.Phone == "" {
			return nil
		}
		return []notify.Message{{Channel: notify.ChannelSMS, To: driver.Phone, Template: template, Data: data}}
	}

	switch eventType {
	case models.EventRequestCreated:
		return []notify.Message{email("Pickup request received", notify.TemplateRequestCreated)}, nil
	case models.EventRequestStatusChanged:
		return []notify.Message{email("Pickup request "+string(p.RequestStatus), notify.TemplateRequestStatus)}, nil
	case models.EventDriverResponded:
		data["status"] = fmt.Sprintf("%s by the driver", p.TruckDriverStatus)
		return []notify.Message{email("Driver response", notify.TemplateRequestStatus)}, nil
	case models.EventDriverAssigned:
		if driver == nil {
			return nil, nil
		}
		return append([]notify.Message{email("Driver assigned", notify.TemplateDriverAssigned)}, sms(notify.TemplateDriverAssigned)...), nil
	case models.EventCollectionConfirmed:
		return append([]notify.Message{email("Waste collected", notify.TemplateCollectionConfirmed)}, sms(notify.TemplateCollectionConfirmed)...), nil
	case models.EventPaymentSettled:
		data["method"] = "-"
		if p.PaymentID != "" {
			if payment, err := st.Payments.FindByID(ctx, p.PaymentID); err == nil && payment.Method != nil {
				data["method"] = string(*payment.Method)
				data["amount"] = fmt.Sprintf("%.2f", payment.Amount)
			}
		}
		return []notify.Message{email("Payment received", notify.TemplatePaymentSettled)}, nil
	case models.EventRequestDeleted:
		return append([]notify.Message{email("Pickup request removed", notify.TemplateRequestDeleted)}, sms(notify.TemplateRequestDeleted)...), nil
	}
	d.logger.Debug("no notifications for event type", zap.String("type", string(eventType)))
	return nil, nil
}
