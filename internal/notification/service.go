package notification

import (
	"context"
	"log/slog"
	"time"

	"github.com/frahmantamala/muamalati/internal"
)

type ServiceAPI interface {
	List(ctx context.Context, userID string, q ListQuery) ([]*Notification, int64, error)
	UnreadCount(ctx context.Context, userID string) (int64, error)
	MarkRead(ctx context.Context, userID, id string) (*Notification, error)
	MarkAllRead(ctx context.Context, userID string) error
	Delete(ctx context.Context, userID, id string) error
}

type ListQuery struct {
	Page   int
	Limit  int
	IsRead *bool
}

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger, now: time.Now}
}

func (s *Service) List(ctx context.Context, userID string, q ListQuery) ([]*Notification, int64, error) {
	offset := 0
	if q.Page > 1 {
		offset = (q.Page - 1) * q.Limit
	}
	items, total, err := s.repo.List(ctx, Filter{UserID: userID, IsRead: q.IsRead, Limit: q.Limit, Offset: offset})
	if err != nil {
		s.logger.Error("failed to list notifications", "error", err, "user_id", userID)
		return nil, 0, internal.NewInternalError("حدث خطأ أثناء جلب الإشعارات", err)
	}
	return items, total, nil
}

func (s *Service) UnreadCount(ctx context.Context, userID string) (int64, error) {
	count, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		s.logger.Error("failed to count unread notifications", "error", err, "user_id", userID)
		return 0, internal.NewInternalError("حدث خطأ أثناء جلب عدد الإشعارات", err)
	}
	return count, nil
}

// MarkRead only touches notifications owned by userID; anything else is NotFound.
func (s *Service) MarkRead(ctx context.Context, userID, id string) (*Notification, error) {
	n, err := s.repo.MarkRead(ctx, userID, id, s.now())
	if err != nil {
		if _, ok := internal.IsAppError(err); ok {
			return nil, err
		}
		s.logger.Error("failed to mark notification read", "error", err, "notification_id", id)
		return nil, internal.NewInternalError("حدث خطأ أثناء تحديث الإشعار", err)
	}
	return n, nil
}

func (s *Service) MarkAllRead(ctx context.Context, userID string) error {
	n, err := s.repo.MarkAllRead(ctx, userID, s.now())
	if err != nil {
		s.logger.Error("failed to mark all notifications read", "error", err, "user_id", userID)
		return internal.NewInternalError("حدث خطأ أثناء تحديث الإشعارات", err)
	}
	s.logger.Debug("notifications marked read", "user_id", userID, "count", n)
	return nil
}

func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		if _, ok := internal.IsAppError(err); ok {
			return err
		}
		s.logger.Error("failed to delete notification", "error", err, "notification_id", id)
		return internal.NewInternalError("حدث خطأ أثناء حذف الإشعار", err)
	}
	return nil
}
