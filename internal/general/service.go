package general

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/muamalati/internal"
	"github.com/frahmantamala/muamalati/internal/core/user"
	"github.com/frahmantamala/muamalati/pkg/cache"
)

type ServiceAPI interface {
	Provinces(ctx context.Context) ([]Province, error)
	Departments(ctx context.Context, f DepartmentFilter) ([]Department, error)
	TransactionTypes(ctx context.Context, departmentType string) ([]TransactionType, error)
	RejectionReasons(ctx context.Context, category string) ([]RejectionReason, error)
	Statistics(ctx context.Context, actor user.Actor) (interface{}, error)
}

type Service struct {
	refs   ReferenceRepository
	stats  StatisticsRepository
	cache  cache.Cache
	logger *slog.Logger
}

func NewService(refs ReferenceRepository, stats StatisticsRepository, c cache.Cache, logger *slog.Logger) *Service {
	if c == nil {
		c = cache.Noop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{refs: refs, stats: stats, cache: c, logger: logger}
}

func (s *Service) Provinces(ctx context.Context) ([]Province, error) {
	var out []Province
	err := s.cached(ctx, "ref:provinces", &out, func() error {
		var err error
		out, err = s.refs.Provinces(ctx)
		return err
	})
	if err != nil {
		s.logger.Error("failed to fetch provinces", "error", err)
		return nil, internal.NewInternalError("حدث خطأ أثناء جلب المحافظات", err)
	}
	return out, nil
}

func (s *Service) Departments(ctx context.Context, f DepartmentFilter) ([]Department, error) {
	province := "all"
	if f.ProvinceID != nil {
		province = fmt.Sprint(*f.ProvinceID)
	}
	key := fmt.Sprintf("ref:departments:%s:%s", province, f.Type)

	var out []Department
	err := s.cached(ctx, key, &out, func() error {
		var err error
		out, err = s.refs.Departments(ctx, f)
		return err
	})
	if err != nil {
		s.logger.Error("failed to fetch departments", "error", err)
		return nil, internal.NewInternalError("حدث خطأ أثناء جلب الدوائر", err)
	}
	return out, nil
}

func (s *Service) TransactionTypes(ctx context.Context, departmentType string) ([]TransactionType, error) {
	var out []TransactionType
	err := s.cached(ctx, "ref:transaction-types:"+departmentType, &out, func() error {
		var err error
		out, err = s.refs.TransactionTypes(ctx, departmentType)
		return err
	})
	if err != nil {
		s.logger.Error("failed to fetch transaction types", "error", err)
		return nil, internal.NewInternalError("حدث خطأ أثناء جلب أنواع المعاملات", err)
	}
	return out, nil
}

func (s *Service) RejectionReasons(ctx context.Context, category string) ([]RejectionReason, error) {
	var out []RejectionReason
	err := s.cached(ctx, "ref:rejection-reasons:"+category, &out, func() error {
		var err error
		out, err = s.refs.RejectionReasons(ctx, category)
		return err
	})
	if err != nil {
		s.logger.Error("failed to fetch rejection reasons", "error", err)
		return nil, internal.NewInternalError("حدث خطأ أثناء جلب أسباب الرفض", err)
	}
	return out, nil
}

// Statistics returns counts scoped to the caller's role. Legal advisors get an empty object.
func (s *Service) Statistics(ctx context.Context, actor user.Actor) (interface{}, error) {
	var (
		result interface{}
		err    error
	)
	switch actor.Role {
	case user.RoleCitizen:
		result, err = s.stats.CitizenStats(ctx, actor.ID)
	case user.RoleEmployee:
		result, err = s.stats.EmployeeStats(ctx, actor.ID, actor.DepartmentID)
	case user.RoleAdmin, user.RoleSupervisor:
		result, err = s.stats.GlobalStats(ctx)
	default:
		return map[string]interface{}{}, nil
	}
	if err != nil {
		s.logger.Error("failed to compute statistics", "error", err, "role", actor.Role)
		return nil, internal.NewInternalError("حدث خطأ أثناء جلب الإحصائيات", err)
	}
	return result, nil
}

// cached fills dst from the cache or, on a miss, by calling load and storing the result.
// Cache failures are logged and never fail the request.
func (s *Service) cached(ctx context.Context, key string, dst interface{}, load func() error) error {
	hit, err := s.cache.GetJSON(ctx, key, dst)
	if err != nil {
		s.logger.Warn("cache read failed", "key", key, "error", err)
	}
	if hit {
		return nil
	}
	if err := load(); err != nil {
		return err
	}
	if err := s.cache.SetJSON(ctx, key, dst); err != nil {
		s.logger.Warn("cache write failed", "key", key, "error", err)
	}
	return nil
}
