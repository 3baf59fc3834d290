package transaction

import (
	"time"

	txDatamodel "github.com/frahmantamala/muamalati/internal/core/datamodel/transaction"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusDraft            Status = "draft"
	StatusSubmitted        Status = "submitted"
	StatusUnderReview      Status = "under_review"
	StatusPendingDocuments Status = "pending_documents"
	StatusRejected         Status = "rejected"
	StatusApproved         Status = "approved"
	StatusCompleted        Status = "completed"
	StatusCancelled        Status = "cancelled"
)

var AllStatuses = []Status{
	StatusDraft, StatusSubmitted, StatusUnderReview, StatusPendingDocuments,
	StatusRejected, StatusApproved, StatusCompleted, StatusCancelled,
}

func (s Status) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no status change may leave s.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Label is the citizen-facing Arabic name of the status.
func (s Status) Label() string {
	switch s {
	case StatusDraft:
		return "مسودة"
	case StatusSubmitted:
		return "مقدمة"
	case StatusUnderReview:
		return "قيد المراجعة"
	case StatusPendingDocuments:
		return "بانتظار المستندات"
	case StatusRejected:
		return "مرفوضة"
	case StatusApproved:
		return "موافق عليها"
	case StatusCompleted:
		return "مكتملة"
	case StatusCancelled:
		return "ملغاة"
	}
	return string(s)
}

type Priority string

const (
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

type Transaction struct {
	ID                string         `json:"id"`
	TrackingNumber    string         `json:"tracking_number"`
	CitizenID         string         `json:"citizen_id"`
	TransactionTypeID int64          `json:"transaction_type_id"`
	DepartmentID      int64          `json:"department_id"`
	Status            Status         `json:"status"`
	Priority          Priority       `json:"priority"`
	IsPriorityService bool           `json:"is_priority_service"`
	AssignedTo        *string        `json:"assigned_to,omitempty"`
	SubmissionDate    *time.Time     `json:"submission_date,omitempty"`
	ReviewStartDate   *time.Time     `json:"review_start_date,omitempty"`
	CompletionDate    *time.Time     `json:"completion_date,omitempty"`
	RejectionDate     *time.Time     `json:"rejection_date,omitempty"`
	RejectionReason   *string        `json:"rejection_reason,omitempty"`
	RejectionCategory *string        `json:"rejection_category,omitempty"`
	Notes             *string        `json:"notes,omitempty"`
	InternalNotes     *string        `json:"internal_notes,omitempty"`
	Data              datatypes.JSON `json:"data,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`

	TransactionTypeName string  `json:"transaction_type_name,omitempty"`
	EstimatedDays       *int    `json:"estimated_days,omitempty"`
	DepartmentName      string  `json:"department_name,omitempty"`
	CitizenName         string  `json:"citizen_name,omitempty"`
	AssignedToName      *string `json:"assigned_to_name,omitempty"`
}

// Detail is a transaction with its attachments and history, newest first.
type Detail struct {
	*Transaction
	Documents []*Document `json:"documents"`
	History   []*History  `json:"history"`
}

type History struct {
	ID            string         `json:"id"`
	TransactionID string         `json:"transaction_id"`
	UserID        string         `json:"user_id"`
	UserName      *string        `json:"user_name,omitempty"`
	Action        string         `json:"action"`
	OldStatus     *Status        `json:"old_status,omitempty"`
	NewStatus     *Status        `json:"new_status,omitempty"`
	Changes       datatypes.JSON `json:"changes,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

type Document struct {
	ID            string    `json:"id"`
	TransactionID string    `json:"transaction_id"`
	DocumentType  string    `json:"document_type"`
	FileName      string    `json:"file_name"`
	FilePath      string    `json:"-"`
	FileSize      int64     `json:"file_size"`
	MimeType      string    `json:"mime_type"`
	UploadedBy    string    `json:"uploaded_by"`
	IsVerified    bool      `json:"is_verified"`
	CreatedAt     time.Time `json:"created_at"`
}

// Filter scopes list queries. Zero values mean "no constraint".
type Filter struct {
	CitizenID    string
	Status       Status
	DepartmentID int64
	// Employee visibility: department match or assignment.
	ScopeDepartmentID *int64
	ScopeAssignedTo   string
	Limit             int
	Offset            int
}

func ToDataModel(t *Transaction) *txDatamodel.Transaction {
	return &txDatamodel.Transaction{
		ID:                t.ID,
		TrackingNumber:    t.TrackingNumber,
		CitizenID:         t.CitizenID,
		TransactionTypeID: t.TransactionTypeID,
		DepartmentID:      t.DepartmentID,
		Status:            string(t.Status),
		Priority:          string(t.Priority),
		IsPriorityService: t.IsPriorityService,
		AssignedTo:        t.AssignedTo,
		SubmissionDate:    t.SubmissionDate,
		ReviewStartDate:   t.ReviewStartDate,
		CompletionDate:    t.CompletionDate,
		RejectionDate:     t.RejectionDate,
		RejectionReason:   t.RejectionReason,
		RejectionCategory: t.RejectionCategory,
		Notes:             t.Notes,
		InternalNotes:     t.InternalNotes,
		Data:              t.Data,
		CreatedAt:         t.CreatedAt,
		UpdatedAt:         t.UpdatedAt,
	}
}

func FromDataModel(t *txDatamodel.Transaction) *Transaction {
	return &Transaction{
		ID:                t.ID,
		TrackingNumber:    t.TrackingNumber,
		CitizenID:         t.CitizenID,
		TransactionTypeID: t.TransactionTypeID,
		DepartmentID:      t.DepartmentID,
		Status:            Status(t.Status),
		Priority:          Priority(t.Priority),
		IsPriorityService: t.IsPriorityService,
		AssignedTo:        t.AssignedTo,
		SubmissionDate:    t.SubmissionDate,
		ReviewStartDate:   t.ReviewStartDate,
		CompletionDate:    t.CompletionDate,
		RejectionDate:     t.RejectionDate,
		RejectionReason:   t.RejectionReason,
		RejectionCategory: t.RejectionCategory,
		Notes:             t.Notes,
		InternalNotes:     t.InternalNotes,
		Data:              t.Data,
		CreatedAt:         t.CreatedAt,
		UpdatedAt:         t.UpdatedAt,
	}
}

func FromViewModel(v *txDatamodel.TransactionView) *Transaction {
	t := FromDataModel(&v.Transaction)
	t.TransactionTypeName = v.TransactionTypeName
	t.EstimatedDays = v.EstimatedDays
	t.DepartmentName = v.DepartmentName
	t.CitizenName = v.CitizenName
	t.AssignedToName = v.AssignedToName
	return t
}

func HistoryToDataModel(h *History) *txDatamodel.History {
	return &txDatamodel.History{
		ID:            h.ID,
		TransactionID: h.TransactionID,
		UserID:        h.UserID,
		Action:        h.Action,
		OldStatus:     statusPtrToString(h.OldStatus),
		NewStatus:     statusPtrToString(h.NewStatus),
		Changes:       h.Changes,
		CreatedAt:     h.CreatedAt,
	}
}

func HistoryFromViewModel(h *txDatamodel.HistoryView) *History {
	return &History{
		ID:            h.ID,
		TransactionID: h.TransactionID,
		UserID:        h.UserID,
		UserName:      h.UserName,
		Action:        h.Action,
		OldStatus:     stringToStatusPtr(h.OldStatus),
		NewStatus:     stringToStatusPtr(h.NewStatus),
		Changes:       h.Changes,
		CreatedAt:     h.CreatedAt,
	}
}

func DocumentToDataModel(d *Document) *txDatamodel.Document {
	return &txDatamodel.Document{
		ID:            d.ID,
		TransactionID: d.TransactionID,
		DocumentType:  d.DocumentType,
		FileName:      d.FileName,
		FilePath:      d.FilePath,
		FileSize:      d.FileSize,
		MimeType:      d.MimeType,
		UploadedBy:    d.UploadedBy,
		IsVerified:    d.IsVerified,
		CreatedAt:     d.CreatedAt,
	}
}

func DocumentFromDataModel(d *txDatamodel.Document) *Document {
	return &Document{
		ID:            d.ID,
		TransactionID: d.TransactionID,
		DocumentType:  d.DocumentType,
		FileName:      d.FileName,
		FilePath:      d.FilePath,
		FileSize:      d.FileSize,
		MimeType:      d.MimeType,
		UploadedBy:    d.UploadedBy,
		IsVerified:    d.IsVerified,
		CreatedAt:     d.CreatedAt,
	}
}

func statusPtrToString(s *Status) *string {
	if s == nil {
		return nil
	}
	v := string(*s)
	return &v
}

func stringToStatusPtr(s *string) *Status {
	if s == nil {
		return nil
	}
	v := Status(*s)
	return &v
}
