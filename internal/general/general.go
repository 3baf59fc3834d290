package general

import (
	"context"

	"github.com/frahmantamala/muamalati/internal/core/datamodel/reference"
)

type (
	Province        = reference.Province
	Department      = reference.DepartmentView
	TransactionType = reference.TransactionType
	RejectionReason = reference.RejectionReason
)

type DepartmentFilter struct {
	ProvinceID *int64
	Type       string
}

// ReferenceRepository reads the active reference tables.
type ReferenceRepository interface {
	Provinces(ctx context.Context) ([]Province, error)
	Departments(ctx context.Context, f DepartmentFilter) ([]Department, error)
	TransactionTypes(ctx context.Context, departmentType string) ([]TransactionType, error)
	RejectionReasons(ctx context.Context, category string) ([]RejectionReason, error)
}

type CitizenStats struct {
	Draft       int64 `db:"draft" json:"draft"`
	Submitted   int64 `db:"submitted" json:"submitted"`
	UnderReview int64 `db:"under_review" json:"under_review"`
	Approved    int64 `db:"approved" json:"approved"`
	Rejected    int64 `db:"rejected" json:"rejected"`
	Completed   int64 `db:"completed" json:"completed"`
	Total       int64 `db:"total" json:"total"`
}

type EmployeeStats struct {
	Pending   int64 `db:"pending" json:"pending"`
	MyReviews int64 `db:"my_reviews" json:"my_reviews"`
	Approved  int64 `db:"approved" json:"approved"`
	Rejected  int64 `db:"rejected" json:"rejected"`
	Total     int64 `db:"total" json:"total"`
}

type GlobalStats struct {
	Submitted   int64 `db:"submitted" json:"submitted"`
	UnderReview int64 `db:"under_review" json:"under_review"`
	Approved    int64 `db:"approved" json:"approved"`
	Rejected    int64 `db:"rejected" json:"rejected"`
	Completed   int64 `db:"completed" json:"completed"`
	Total       int64 `db:"total" json:"total"`
	Citizens    int64 `db:"citizens" json:"citizens"`
	Employees   int64 `db:"employees" json:"employees"`
	Advisors    int64 `db:"advisors" json:"advisors"`
	TotalUsers  int64 `db:"total_users" json:"total_users"`
}

// StatisticsRepository aggregates transaction and user counts.
type StatisticsRepository interface {
	CitizenStats(ctx context.Context, citizenID string) (*CitizenStats, error)
	// EmployeeStats counts transactions in departmentID or assigned to employeeID.
	// A nil departmentID restricts the scope to assignments.
	EmployeeStats(ctx context.Context, employeeID string, departmentID *int64) (*EmployeeStats, error)
	GlobalStats(ctx context.Context) (*GlobalStats, error)
}
