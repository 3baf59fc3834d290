package postgres

import (
	"context"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"gorm.io/gorm"

	"github.com/frahmantamala/muamalati/internal"
	txDatamodel "github.com/frahmantamala/muamalati/internal/core/datamodel/transaction"
	"github.com/frahmantamala/muamalati/internal/transaction"
)

const viewColumns = `t.*,
	COALESCE(tt.name_ar, '') AS transaction_type_name,
	tt.estimated_days AS estimated_days,
	COALESCE(d.name_ar, '') AS department_name,
	COALESCE(u.full_name, '') AS citizen_name,
	assigned.full_name AS assigned_to_name`

// TransactionRepository implements transaction.RepositoryAPI using GORM
type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Create(ctx context.Context, t *transaction.Transaction) error {
	return r.db.WithContext(ctx).Create(transaction.ToDataModel(t)).Error
}

func (r *TransactionRepository) GetByID(ctx context.Context, id string) (*transaction.Transaction, error) {
	var t txDatamodel.Transaction
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrTransactionNotFound
		}
		return nil, err
	}
	return transaction.FromDataModel(&t), nil
}

func (r *TransactionRepository) GetDetail(ctx context.Context, id string) (*transaction.Detail, error) {
	db := r.db.WithContext(ctx)

	var views []txDatamodel.TransactionView
	if err := r.viewQuery(db).Where("t.id = ?", id).Limit(1).Scan(&views).Error; err != nil {
		return nil, err
	}
	if len(views) == 0 {
		return nil, internal.ErrTransactionNotFound
	}

	var docs []txDatamodel.Document
	if err := db.Where("transaction_id = ?", id).Order("created_at DESC").Find(&docs).Error; err != nil {
		return nil, err
	}

	var history []txDatamodel.HistoryView
	err := db.Table("transaction_history th").
		Select("th.*, u.full_name AS user_name").
		Joins("LEFT JOIN users u ON th.user_id = u.id").
		Where("th.transaction_id = ?", id).
		Order("th.created_at DESC").
		Scan(&history).Error
	if err != nil {
		return nil, err
	}

	detail := &transaction.Detail{
		Transaction: transaction.FromViewModel(&views[0]),
		Documents:   make([]*transaction.Document, 0, len(docs)),
		History:     make([]*transaction.History, 0, len(history)),
	}
	for i := range docs {
		detail.Documents = append(detail.Documents, transaction.DocumentFromDataModel(&docs[i]))
	}
	for i := range history {
		detail.History = append(detail.History, transaction.HistoryFromViewModel(&history[i]))
	}
	return detail, nil
}

func (r *TransactionRepository) List(ctx context.Context, f transaction.Filter) ([]*transaction.Transaction, int64, error) {
	where, args, err := filterSQL(f).ToSql()
	if err != nil {
		return nil, 0, err
	}

	db := r.db.WithContext(ctx)

	var total int64
	if err := db.Table("transactions t").Where(where, args...).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	q := r.viewQuery(db).Where(where, args...).Order("t.created_at DESC")
	if f.Limit > 0 {
		q = q.Limit(f.Limit).Offset(f.Offset)
	}

	var views []txDatamodel.TransactionView
	if err := q.Scan(&views).Error; err != nil {
		return nil, 0, err
	}

	out := make([]*transaction.Transaction, 0, len(views))
	for i := range views {
		out = append(out, transaction.FromViewModel(&views[i]))
	}
	return out, total, nil
}

// ApplyDecision guards status changes with a compare-and-swap on the expected status.
func (r *TransactionRepository) ApplyDecision(ctx context.Context, id string, expected transaction.Status, columns map[string]interface{}, h *transaction.History) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Model(&txDatamodel.Transaction{}).Where("id = ?", id)
		target, statusChange := columns["status"]
		if statusChange {
			q = q.Where("status = ?", string(expected))
		}

		res := q.Updates(columns)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var current txDatamodel.Transaction
			if err := tx.Select("status").Where("id = ?", id).First(&current).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return internal.ErrTransactionNotFound
				}
				return err
			}
			if statusChange {
				return internal.NewInvalidTransitionError(current.Status, target.(string))
			}
			return internal.ErrTransactionNotFound
		}

		return tx.Create(transaction.HistoryToDataModel(h)).Error
	})
}

// Delete removes the transaction together with the rows it owns and returns the document file paths.
func (r *TransactionRepository) Delete(ctx context.Context, id string) ([]string, error) {
	var paths []string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&txDatamodel.Document{}).Where("transaction_id = ?", id).Pluck("file_path", &paths).Error; err != nil {
			return err
		}
		if err := tx.Where("transaction_id = ?", id).Delete(&txDatamodel.Document{}).Error; err != nil {
			return err
		}
		if err := tx.Where("transaction_id = ?", id).Delete(&txDatamodel.History{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&txDatamodel.Transaction{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return internal.ErrTransactionNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}

func (r *TransactionRepository) AddDocument(ctx context.Context, d *transaction.Document) error {
	return r.db.WithContext(ctx).Create(transaction.DocumentToDataModel(d)).Error
}

func (r *TransactionRepository) viewQuery(db *gorm.DB) *gorm.DB {
	return db.Table("transactions t").
		Select(viewColumns).
		Joins("LEFT JOIN transaction_types tt ON t.transaction_type_id = tt.id").
		Joins("LEFT JOIN departments d ON t.department_id = d.id").
		Joins("LEFT JOIN users u ON t.citizen_id = u.id").
		Joins("LEFT JOIN users assigned ON t.assigned_to = assigned.id")
}

// filterSQL turns a Filter into a WHERE clause with ? placeholders.
func filterSQL(f transaction.Filter) sq.Sqlizer {
	conds := sq.And{}
	if f.CitizenID != "" {
		conds = append(conds, sq.Eq{"t.citizen_id": f.CitizenID})
	}
	if f.ScopeAssignedTo != "" || f.ScopeDepartmentID != nil {
		scope := sq.Or{}
		if f.ScopeAssignedTo != "" {
			scope = append(scope, sq.Eq{"t.assigned_to": f.ScopeAssignedTo})
		}
		if f.ScopeDepartmentID != nil {
			scope = append(scope, sq.Eq{"t.department_id": *f.ScopeDepartmentID})
		}
		conds = append(conds, scope)
	}
	if f.Status != "" {
		conds = append(conds, sq.Eq{"t.status": string(f.Status)})
	}
	if f.DepartmentID > 0 {
		conds = append(conds, sq.Eq{"t.department_id": f.DepartmentID})
	}
	return conds
}
