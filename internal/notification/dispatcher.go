package notification

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/frahmantamala/muamalati/internal/core/events"
	"github.com/frahmantamala/muamalati/internal/transaction"
)

// Dispatcher turns domain events into inbox rows and outbox emails.
// Every failure is logged and absorbed: side effects never fail the request that caused them.
type Dispatcher struct {
	repo      RepositoryAPI
	directory Directory
	emails    EmailQueue
	logger    *slog.Logger
	now       func() time.Time
}

func NewDispatcher(repo RepositoryAPI, directory Directory, emails EmailQueue, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		repo:      repo,
		directory: directory,
		emails:    emails,
		logger:    logger,
		now:       time.Now,
	}
}

func (d *Dispatcher) RegisterEventHandlers(bus *events.EventBus) {
	types := []string{
		events.EventTypeTransactionCreated,
		events.EventTypeTransactionSubmitted,
		events.EventTypeTransactionStatusChanged,
		events.EventTypeTransactionUpdated,
	}
	for _, t := range types {
		bus.Subscribe(t, d.HandleTransactionEvent)
	}
	bus.Subscribe(events.EventTypeUserRegistered, d.HandleUserRegistered)

	d.logger.Info("notification event handlers registered",
		"handlers", append(types, events.EventTypeUserRegistered))
}

func (d *Dispatcher) HandleTransactionEvent(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.TransactionEvent)
	if !ok {
		d.logger.Error("invalid event type for transaction handler", "event_type", event.EventType())
		return nil
	}

	for _, notice := range e.Notices {
		d.insert(ctx, notice, e.EventID())
	}

	if e.StatusChanged() {
		d.sendStatusEmail(ctx, e)
	}
	return nil
}

func (d *Dispatcher) HandleUserRegistered(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.UserRegisteredEvent)
	if !ok {
		d.logger.Error("invalid event type for registration handler", "event_type", event.EventType())
		return nil
	}

	email, err := WelcomeEmail(e.FullName)
	if err != nil {
		d.logger.Error("failed to render welcome email", "error", err, "user_id", e.UserID)
		return nil
	}
	d.enqueue(ctx, e.Email, email, e.EventID())
	return nil
}

func (d *Dispatcher) insert(ctx context.Context, notice events.Notice, eventID string) {
	n := &Notification{
		ID:        uuid.New().String(),
		UserID:    notice.UserID,
		Type:      notice.Type,
		Title:     notice.Title,
		Message:   notice.Message,
		CreatedAt: d.now(),
	}
	if notice.Link != "" {
		link := notice.Link
		n.Link = &link
	}
	if err := d.repo.Create(ctx, n); err != nil {
		d.logger.Error("failed to create notification",
			"error", err,
			"user_id", notice.UserID,
			"event_id", eventID)
	}
}

func (d *Dispatcher) sendStatusEmail(ctx context.Context, e *events.TransactionEvent) {
	contact, err := d.directory.Contact(ctx, e.CitizenID)
	if err != nil {
		d.logger.Error("failed to load citizen contact", "error", err, "user_id", e.CitizenID, "event_id", e.EventID())
		return
	}

	typeName, err := d.directory.TransactionTypeName(ctx, e.TransactionTypeID)
	if err != nil {
		d.logger.Warn("failed to load transaction type name", "error", err, "transaction_type_id", e.TransactionTypeID)
	}

	status := transaction.Status(e.NewStatus)
	email, ok, err := StatusEmail(e.NewStatus, status.Label(), contact.FullName, e.TrackingNumber, typeName, e.RejectionReason)
	if err != nil {
		d.logger.Error("failed to render status email", "error", err, "transaction_id", e.TransactionID)
		return
	}
	if !ok {
		return
	}
	d.enqueue(ctx, contact.Email, email, e.EventID())
}

func (d *Dispatcher) enqueue(ctx context.Context, to string, email *Email, eventID string) {
	if d.emails == nil || to == "" {
		return
	}
	if err := d.emails.Enqueue(ctx, to, email.Subject, email.HTML); err != nil {
		d.logger.Error("failed to enqueue email", "error", err, "to", to, "event_id", eventID)
	}
}
