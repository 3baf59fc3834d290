package postgres

import (
	"context"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"gorm.io/gorm"

	"github.com/frahmantamala/muamalati/internal"
	notificationDatamodel "github.com/frahmantamala/muamalati/internal/core/datamodel/notification"
	refDatamodel "github.com/frahmantamala/muamalati/internal/core/datamodel/reference"
	userDatamodel "github.com/frahmantamala/muamalati/internal/core/datamodel/user"
	"github.com/frahmantamala/muamalati/internal/notification"
)

// NotificationRepository implements notification.RepositoryAPI using GORM
type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(ctx context.Context, n *notification.Notification) error {
	return r.db.WithContext(ctx).Create(notification.ToDataModel(n)).Error
}

func (r *NotificationRepository) List(ctx context.Context, f notification.Filter) ([]*notification.Notification, int64, error) {
	conds := sq.And{sq.Eq{"user_id": f.UserID}}
	if f.IsRead != nil {
		conds = append(conds, sq.Eq{"is_read": *f.IsRead})
	}
	where, args, err := conds.ToSql()
	if err != nil {
		return nil, 0, err
	}

	base := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&notificationDatamodel.Notification{}).Where(where, args...)
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	q := base().Order("created_at DESC")
	if f.Limit > 0 {
		q = q.Limit(f.Limit).Offset(f.Offset)
	}
	var rows []notificationDatamodel.Notification
	if err := q.Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	out := make([]*notification.Notification, 0, len(rows))
	for i := range rows {
		out = append(out, notification.FromDataModel(&rows[i]))
	}
	return out, total, nil
}

func (r *NotificationRepository) CountUnread(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&notificationDatamodel.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}

func (r *NotificationRepository) MarkRead(ctx context.Context, userID, id string, at time.Time) (*notification.Notification, error) {
	var row notificationDatamodel.Notification
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&notificationDatamodel.Notification{}).
			Where("id = ? AND user_id = ?", id, userID).
			Updates(map[string]interface{}{"is_read": true, "read_at": gorm.Expr("COALESCE(read_at, ?)", at)})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return internal.ErrNotificationNotFound
		}
		return tx.Where("id = ?", id).First(&row).Error
	})
	if err != nil {
		return nil, err
	}
	return notification.FromDataModel(&row), nil
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID string, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&notificationDatamodel.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": at})
	return res.RowsAffected, res.Error
}

func (r *NotificationRepository) Delete(ctx context.Context, userID, id string) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&notificationDatamodel.Notification{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return internal.ErrNotificationNotFound
	}
	return nil
}

// Directory implements notification.Directory over the users and transaction_types tables.
type Directory struct {
	db *gorm.DB
}

func NewDirectory(db *gorm.DB) *Directory {
	return &Directory{db: db}
}

func (d *Directory) Contact(ctx context.Context, userID string) (*notification.Contact, error) {
	var u userDatamodel.User
	err := d.db.WithContext(ctx).Select("email", "full_name").Where("id = ?", userID).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrUserNotFound
		}
		return nil, err
	}
	return &notification.Contact{Email: u.Email, FullName: u.FullName}, nil
}

func (d *Directory) TransactionTypeName(ctx context.Context, id int64) (string, error) {
	var t refDatamodel.TransactionType
	if err := d.db.WithContext(ctx).Select("name_ar").Where("id = ?", id).First(&t).Error; err != nil {
		return "", err
	}
	return t.NameAr, nil
}
