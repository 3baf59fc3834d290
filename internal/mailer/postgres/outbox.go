package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"

	mailDatamodel "github.com/frahmantamala/muamalati/internal/core/datamodel/mail"
	"github.com/frahmantamala/muamalati/internal/mailer"
)

// OutboxRepository implements mailer.Store using GORM
type OutboxRepository struct {
	db *gorm.DB
}

func NewOutboxRepository(db *gorm.DB) *OutboxRepository {
	return &OutboxRepository{db: db}
}

func (r *OutboxRepository) Create(ctx context.Context, msg mailer.Message) error {
	row := &mailDatamodel.Outbox{
		ID:        msg.ID,
		Recipient: msg.To,
		Subject:   msg.Subject,
		Body:      msg.HTMLBody,
		Status:    mailDatamodel.StatusPending,
	}
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *OutboxRepository) MarkSent(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&mailDatamodel.Outbox{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":   mailDatamodel.StatusSent,
			"sent_at":  at,
			"attempts": gorm.Expr("attempts + 1"),
		}).Error
}

// MarkFailed counts the attempt; the row stays pending unless giveUp is set.
func (r *OutboxRepository) MarkFailed(ctx context.Context, id string, reason string, giveUp bool) error {
	status := mailDatamodel.StatusPending
	if giveUp {
		status = mailDatamodel.StatusFailed
	}
	return r.db.WithContext(ctx).
		Model(&mailDatamodel.Outbox{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"last_error": reason,
			"attempts":   gorm.Expr("attempts + 1"),
		}).Error
}

func (r *OutboxRepository) ListPending(ctx context.Context, createdBefore time.Time, limit int) ([]mailer.Message, error) {
	var rows []mailDatamodel.Outbox
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", mailDatamodel.StatusPending, createdBefore).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]mailer.Message, 0, len(rows))
	for _, row := range rows {
		out = append(out, mailer.Message{
			ID:       row.ID,
			To:       row.Recipient,
			Subject:  row.Subject,
			HTMLBody: row.Body,
			Attempts: row.Attempts,
		})
	}
	return out, nil
}
