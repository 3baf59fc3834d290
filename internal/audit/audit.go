package audit

import (
	"context"
	"encoding/json"
	"time"

	auditDatamodel "github.com/frahmantamala/muamalati/internal/core/datamodel/audit"
)

// Entry is one successful state-changing request.
type Entry struct {
	UserID     string
	Action     string
	EntityType string
	EntityID   string
	Details    map[string]interface{}
	IPAddress  string
	UserAgent  string
	CreatedAt  time.Time
}

type RepositoryAPI interface {
	Create(ctx context.Context, e *Entry) error
}

func ToDataModel(e *Entry) (*auditDatamodel.Log, error) {
	m := &auditDatamodel.Log{
		Action:     e.Action,
		UserID:     optional(e.UserID),
		EntityType: optional(e.EntityType),
		EntityID:   optional(e.EntityID),
		IPAddress:  optional(e.IPAddress),
		UserAgent:  optional(e.UserAgent),
		CreatedAt:  e.CreatedAt,
	}
	if len(e.Details) > 0 {
		raw, err := json.Marshal(e.Details)
		if err != nil {
			return nil, err
		}
		m.Details = raw
	}
	return m, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
