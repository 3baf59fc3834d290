package postgres

import (
	"context"
	"errors"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("StatisticsRepository", func() {
	var (
		mock sqlmock.Sqlmock
		db   *sqlx.DB
		repo *StatisticsRepository
		ctx  context.Context
	)

	BeforeEach(func() {
		raw, m, err := sqlmock.New()
		Expect(err).NotTo(HaveOccurred())
		mock = m
		db = sqlx.NewDb(raw, "postgres")
		repo = NewStatisticsRepository(db)
		ctx = context.Background()
	})

	AfterEach(func() {
		Expect(mock.ExpectationsWereMet()).To(Succeed())
		db.Close()
	})

	It("counts a citizen's own transactions", func() {
		mock.ExpectQuery(`FROM transactions WHERE citizen_id = \$1`).
			WithArgs("citizen-1").
			WillReturnRows(sqlmock.NewRows([]string{"draft", "submitted", "under_review", "approved", "rejected", "completed", "total"}).
				AddRow(2, 1, 1, 0, 1, 3, 8))

		stats, err := repo.CitizenStats(ctx, "citizen-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(stats.Draft).To(Equal(int64(2)))
		Expect(stats.Completed).To(Equal(int64(3)))
		Expect(stats.Total).To(Equal(int64(8)))
	})

	It("scopes employee counts to the department or assignments", func() {
		dept := int64(10)
		mock.ExpectQuery(`WHERE assigned_to = \$1 OR department_id = \$2`).
			WithArgs("emp-1", dept).
			WillReturnRows(sqlmock.NewRows([]string{"pending", "my_reviews", "approved", "rejected", "total"}).
				AddRow(4, 2, 5, 1, 12))

		stats, err := repo.EmployeeStats(ctx, "emp-1", &dept)
		Expect(err).NotTo(HaveOccurred())
		Expect(stats.Pending).To(Equal(int64(4)))
		Expect(stats.MyReviews).To(Equal(int64(2)))
		Expect(stats.Total).To(Equal(int64(12)))
	})

	It("limits an employee without a department to assignments", func() {
		mock.ExpectQuery(`WHERE assigned_to = \$1$`).
			WithArgs("emp-2").
			WillReturnRows(sqlmock.NewRows([]string{"pending", "my_reviews", "approved", "rejected", "total"}).
				AddRow(0, 1, 0, 0, 1))

		stats, err := repo.EmployeeStats(ctx, "emp-2", nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(stats.MyReviews).To(Equal(int64(1)))
	})

	It("merges transaction and user totals for global statistics", func() {
		mock.ExpectQuery(`FROM transactions$`).
			WillReturnRows(sqlmock.NewRows([]string{"submitted", "under_review", "approved", "rejected", "completed", "total"}).
				AddRow(3, 2, 4, 1, 6, 20))
		mock.ExpectQuery(`FROM users`).
			WillReturnRows(sqlmock.NewRows([]string{"citizens", "employees", "advisors", "total_users"}).
				AddRow(50, 8, 2, 62))

		stats, err := repo.GlobalStats(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(stats.Total).To(Equal(int64(20)))
		Expect(stats.Citizens).To(Equal(int64(50)))
		Expect(stats.TotalUsers).To(Equal(int64(62)))
	})

	It("wraps query failures", func() {
		mock.ExpectQuery(`FROM transactions$`).WillReturnError(errors.New("connection reset"))

		_, err := repo.GlobalStats(ctx)
		Expect(err).To(MatchError(ContainSubstring("transaction totals")))
	})
})
