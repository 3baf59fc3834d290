package transaction

import (
	"encoding/json"
	"strings"

	"github.com/aarondl/null/v8"
	"gorm.io/datatypes"
)

type CreateDTO struct {
	TransactionTypeID int64           `json:"transaction_type_id" validate:"required,gt=0"`
	DepartmentID      int64           `json:"department_id" validate:"required,gt=0"`
	Notes             null.String     `json:"notes" validate:"omitempty,max=1000"`
	Priority          string          `json:"priority" validate:"omitempty,oneof=normal high urgent"`
	IsPriorityService bool            `json:"is_priority_service"`
	Data              json.RawMessage `json:"data"`
}

// UpdateDTO is the PUT body. Absent keys stay invalid and are left untouched.
type UpdateDTO struct {
	Status            null.String     `json:"status" validate:"omitempty,oneof=draft submitted under_review pending_documents rejected approved completed cancelled"`
	RejectionReason   null.String     `json:"rejection_reason" validate:"omitempty,max=1000"`
	RejectionCategory null.String     `json:"rejection_category" validate:"omitempty,max=100"`
	Notes             null.String     `json:"notes" validate:"omitempty,max=1000"`
	InternalNotes     null.String     `json:"internal_notes" validate:"omitempty,max=1000"`
	AssignedTo        null.String     `json:"assigned_to" validate:"omitempty,uuid"`
	Data              json.RawMessage `json:"data"`
}

func (d UpdateDTO) ToPatch() Patch {
	p := Patch{
		RejectionReason:   trimmed(d.RejectionReason),
		RejectionCategory: d.RejectionCategory,
		Notes:             trimmed(d.Notes),
		InternalNotes:     d.InternalNotes,
		AssignedTo:        d.AssignedTo,
	}
	if d.Status.Valid {
		p.Status = Status(d.Status.String)
	}
	if len(d.Data) > 0 && string(d.Data) != "null" {
		p.Data = datatypes.JSON(d.Data)
	}
	return p
}

type ListQuery struct {
	Page         int
	Limit        int
	Status       Status
	DepartmentID int64
}

func (q ListQuery) Offset() int {
	if q.Page < 1 {
		return 0
	}
	return (q.Page - 1) * q.Limit
}

func trimmed(s null.String) null.String {
	if !s.Valid {
		return s
	}
	return null.StringFrom(strings.TrimSpace(s.String))
}
