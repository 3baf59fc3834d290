package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/frahmantamala/muamalati/internal/audit"
)

type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Create(ctx context.Context, e *audit.Entry) error {
	m, err := audit.ToDataModel(e)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(m).Error
}
