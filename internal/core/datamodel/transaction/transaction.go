package transaction

import (
	"time"

	"gorm.io/datatypes"
)

type Transaction struct {
	ID                string         `gorm:"primaryKey;type:uuid"`
	TrackingNumber    string         `gorm:"column:tracking_number;uniqueIndex;not null"`
	CitizenID         string         `gorm:"column:citizen_id;not null;index"`
	TransactionTypeID int64          `gorm:"column:transaction_type_id;not null"`
	DepartmentID      int64          `gorm:"column:department_id;not null;index"`
	Status            string         `gorm:"column:status;not null;default:'draft';index"`
	Priority          string         `gorm:"column:priority;not null;default:'normal'"`
	IsPriorityService bool           `gorm:"column:is_priority_service;default:false"`
	AssignedTo        *string        `gorm:"column:assigned_to"`
	SubmissionDate    *time.Time     `gorm:"column:submission_date"`
	ReviewStartDate   *time.Time     `gorm:"column:review_start_date"`
	CompletionDate    *time.Time     `gorm:"column:completion_date"`
	RejectionDate     *time.Time     `gorm:"column:rejection_date"`
	RejectionReason   *string        `gorm:"column:rejection_reason"`
	RejectionCategory *string        `gorm:"column:rejection_category"`
	Notes             *string        `gorm:"column:notes"`
	InternalNotes     *string        `gorm:"column:internal_notes"`
	Data              datatypes.JSON `gorm:"column:data"`
	CreatedAt         time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

func (Transaction) TableName() string {
	return "transactions"
}

// TransactionView is the list/detail read model with joined display names.
type TransactionView struct {
	Transaction
	TransactionTypeName string  `gorm:"column:transaction_type_name"`
	EstimatedDays       *int    `gorm:"column:estimated_days"`
	DepartmentName      string  `gorm:"column:department_name"`
	CitizenName         string  `gorm:"column:citizen_name"`
	AssignedToName      *string `gorm:"column:assigned_to_name"`
}

type History struct {
	ID            string         `gorm:"primaryKey;type:uuid"`
	TransactionID string         `gorm:"column:transaction_id;not null;index"`
	UserID        string         `gorm:"column:user_id;not null"`
	Action        string         `gorm:"column:action;not null"`
	OldStatus     *string        `gorm:"column:old_status"`
	NewStatus     *string        `gorm:"column:new_status"`
	Changes       datatypes.JSON `gorm:"column:changes"`
	CreatedAt     time.Time      `gorm:"column:created_at;autoCreateTime"`
}

func (History) TableName() string {
	return "transaction_history"
}

type HistoryView struct {
	History
	UserName *string `gorm:"column:user_name"`
}

type Document struct {
	ID            string    `gorm:"primaryKey;type:uuid"`
	TransactionID string    `gorm:"column:transaction_id;not null;index"`
	DocumentType  string    `gorm:"column:document_type;not null"`
	FileName      string    `gorm:"column:file_name;not null"`
	FilePath      string    `gorm:"column:file_path;not null"`
	FileSize      int64     `gorm:"column:file_size"`
	MimeType      string    `gorm:"column:mime_type"`
	UploadedBy    string    `gorm:"column:uploaded_by;not null"`
	IsVerified    bool      `gorm:"column:is_verified;default:false"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (Document) TableName() string {
	return "transaction_documents"
}
