package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/frahmantamala/muamalati/internal/general"
)

const citizenStatsQuery = `SELECT
	COUNT(CASE WHEN status = 'draft' THEN 1 END) AS draft,
	COUNT(CASE WHEN status = 'submitted' THEN 1 END) AS submitted,
	COUNT(CASE WHEN status = 'under_review' THEN 1 END) AS under_review,
	COUNT(CASE WHEN status = 'approved' THEN 1 END) AS approved,
	COUNT(CASE WHEN status = 'rejected' THEN 1 END) AS rejected,
	COUNT(CASE WHEN status = 'completed' THEN 1 END) AS completed,
	COUNT(*) AS total
FROM transactions
WHERE citizen_id = $1`

const employeeStatsSelect = `SELECT
	COUNT(CASE WHEN status = 'submitted' THEN 1 END) AS pending,
	COUNT(CASE WHEN status = 'under_review' AND assigned_to = $1 THEN 1 END) AS my_reviews,
	COUNT(CASE WHEN status = 'approved' THEN 1 END) AS approved,
	COUNT(CASE WHEN status = 'rejected' THEN 1 END) AS rejected,
	COUNT(*) AS total
FROM transactions
`

const transactionTotalsQuery = `SELECT
	COUNT(CASE WHEN status = 'submitted' THEN 1 END) AS submitted,
	COUNT(CASE WHEN status = 'under_review' THEN 1 END) AS under_review,
	COUNT(CASE WHEN status = 'approved' THEN 1 END) AS approved,
	COUNT(CASE WHEN status = 'rejected' THEN 1 END) AS rejected,
	COUNT(CASE WHEN status = 'completed' THEN 1 END) AS completed,
	COUNT(*) AS total
FROM transactions`

const userTotalsQuery = `SELECT
	COUNT(CASE WHEN role = 'citizen' THEN 1 END) AS citizens,
	COUNT(CASE WHEN role = 'government_employee' THEN 1 END) AS employees,
	COUNT(CASE WHEN role = 'legal_advisor' THEN 1 END) AS advisors,
	COUNT(*) AS total_users
FROM users`

// StatisticsRepository runs the aggregate queries over the sqlx pool.
type StatisticsRepository struct {
	db *sqlx.DB
}

func NewStatisticsRepository(db *sqlx.DB) *StatisticsRepository {
	return &StatisticsRepository{db: db}
}

func (r *StatisticsRepository) CitizenStats(ctx context.Context, citizenID string) (*general.CitizenStats, error) {
	var out general.CitizenStats
	if err := r.db.GetContext(ctx, &out, citizenStatsQuery, citizenID); err != nil {
		return nil, fmt.Errorf("citizen statistics: %w", err)
	}
	return &out, nil
}

func (r *StatisticsRepository) EmployeeStats(ctx context.Context, employeeID string, departmentID *int64) (*general.EmployeeStats, error) {
	query := employeeStatsSelect + "WHERE assigned_to = $1"
	args := []interface{}{employeeID}
	if departmentID != nil {
		query = employeeStatsSelect + "WHERE assigned_to = $1 OR department_id = $2"
		args = append(args, *departmentID)
	}

	var out general.EmployeeStats
	if err := r.db.GetContext(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("employee statistics: %w", err)
	}
	return &out, nil
}

func (r *StatisticsRepository) GlobalStats(ctx context.Context) (*general.GlobalStats, error) {
	var tx struct {
		Submitted   int64 `db:"submitted"`
		UnderReview int64 `db:"under_review"`
		Approved    int64 `db:"approved"`
		Rejected    int64 `db:"rejected"`
		Completed   int64 `db:"completed"`
		Total       int64 `db:"total"`
	}
	if err := r.db.GetContext(ctx, &tx, transactionTotalsQuery); err != nil {
		return nil, fmt.Errorf("transaction totals: %w", err)
	}

	var users struct {
		Citizens   int64 `db:"citizens"`
		Employees  int64 `db:"employees"`
		Advisors   int64 `db:"advisors"`
		TotalUsers int64 `db:"total_users"`
	}
	if err := r.db.GetContext(ctx, &users, userTotalsQuery); err != nil {
		return nil, fmt.Errorf("user totals: %w", err)
	}

	return &general.GlobalStats{
		Submitted:   tx.Submitted,
		UnderReview: tx.UnderReview,
		Approved:    tx.Approved,
		Rejected:    tx.Rejected,
		Completed:   tx.Completed,
		Total:       tx.Total,
		Citizens:    users.Citizens,
		Employees:   users.Employees,
		Advisors:    users.Advisors,
		TotalUsers:  users.TotalUsers,
	}, nil
}
