package user

import (
	"context"
	"log/slog"

	"github.com/frahmantamala/muamalati/internal"
	"github.com/frahmantamala/muamalati/internal/auth"
	"github.com/frahmantamala/muamalati/internal/core/common/validation"
	coreuser "github.com/frahmantamala/muamalati/internal/core/user"
)

type Service struct {
	repo       Repository
	bcryptCost int
	logger     *slog.Logger
}

func NewService(repo Repository, bcryptCost int, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:       repo,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

func (s *Service) GetProfile(ctx context.Context, userID string) (*coreuser.User, error) {
	return s.repo.GetByID(ctx, userID)
}

func (s *Service) UpdateProfile(ctx context.Context, userID string, dto UpdateProfileDTO) (*coreuser.User, error) {
	if err := validation.Struct(dto); err != nil {
		return nil, err
	}

	if fields := dto.Fields(); len(fields) > 0 {
		if err := s.repo.UpdateProfile(ctx, userID, fields); err != nil {
			s.logger.Error("failed to update profile", "error", err, "user_id", userID)
			return nil, internal.NewInternalError("حدث خطأ أثناء تحديث البيانات", err)
		}
	}

	return s.repo.GetByID(ctx, userID)
}

func (s *Service) ChangePassword(ctx context.Context, userID string, dto ChangePasswordDTO) error {
	if err := validation.Struct(dto); err != nil {
		return err
	}

	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := auth.VerifyPassword(u.PasswordHash, dto.CurrentPassword); err != nil {
		return internal.ErrWrongPassword
	}

	hash, err := auth.HashPassword(dto.NewPassword, s.bcryptCost)
	if err != nil {
		return internal.NewInternalError("حدث خطأ أثناء تغيير كلمة المرور", err)
	}

	if err := s.repo.UpdatePasswordHash(ctx, userID, hash); err != nil {
		s.logger.Error("failed to update password", "error", err, "user_id", userID)
		return internal.NewInternalError("حدث خطأ أثناء تغيير كلمة المرور", err)
	}

	s.logger.Info("password changed", "user_id", userID)
	return nil
}
