package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/frahmantamala/muamalati/internal"
	"github.com/frahmantamala/muamalati/internal/core/common/validation"
	"github.com/frahmantamala/muamalati/internal/core/events"
	"github.com/frahmantamala/muamalati/internal/core/user"
)

// Service is the main auth service with dependencies
type Service struct {
	repo           RepositoryAPI
	tokenGenerator TokenGenerator
	publisher      events.Publisher
	bcryptCost     int
	logger         *slog.Logger
	now            func() time.Time
}

// NewService creates a new auth service
func NewService(repo RepositoryAPI, tokenGen TokenGenerator, publisher events.Publisher, bcryptCost int, logger *slog.Logger) *Service {
	if bcryptCost <= 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:           repo,
		tokenGenerator: tokenGen,
		publisher:      publisher,
		bcryptCost:     bcryptCost,
		logger:         logger,
		now:            time.Now,
	}
}

// NewJWTTokenGenerator creates a new JWT token generator
func NewJWTTokenGenerator(secret string, ttl time.Duration) *JWTTokenGenerator {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &JWTTokenGenerator{
		Secret: []byte(secret),
		TTL:    ttl,
		now:    time.Now,
	}
}

func (s *Service) Register(ctx context.Context, dto RegisterDTO) (*AuthResult, error) {
	dto.Normalize()
	if err := validation.Struct(dto); err != nil {
		return nil, err
	}

	if existing, err := s.repo.GetByEmail(ctx, dto.Email); err == nil && existing != nil {
		return nil, internal.ErrEmailTaken
	} else if err != nil && !errors.Is(err, internal.ErrUserNotFound) {
		s.logger.Error("failed to check email", "error", err)
		return nil, internal.NewInternalError("حدث خطأ أثناء التسجيل", err)
	}

	hash, err := HashPassword(dto.Password, s.bcryptCost)
	if err != nil {
		return nil, internal.NewInternalError("حدث خطأ أثناء التسجيل", err)
	}

	now := s.now()
	u := &user.User{
		ID:           uuid.New().String(),
		Email:        dto.Email,
		PasswordHash: hash,
		FullName:     dto.FullName,
		Phone:        dto.Phone.Ptr(),
		Role:         user.RoleCitizen,
		IDNumber:     dto.IDNumber.Ptr(),
		Province:     dto.Province.Ptr(),
		City:         dto.City.Ptr(),
		Address:      dto.Address.Ptr(),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, u); err != nil {
		if appErr := internal.TranslateDBError(err); appErr != nil && appErr.Code == internal.ErrCodeDuplicate {
			return nil, internal.ErrEmailTaken
		}
		s.logger.Error("failed to create user", "error", err, "email", u.Email)
		return nil, internal.NewInternalError("حدث خطأ أثناء التسجيل", err)
	}

	token, err := s.tokenGenerator.GenerateAccessToken(u)
	if err != nil {
		return nil, internal.NewInternalError("حدث خطأ أثناء التسجيل", err)
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, events.NewUserRegisteredEvent(u.ID, u.Email, u.FullName)); err != nil {
			s.logger.Error("failed to publish user registered event", "error", err, "user_id", u.ID)
		}
	}

	s.logger.Info("user registered", "user_id", u.ID, "role", u.Role)
	return &AuthResult{User: u, Token: token}, nil
}

// Login verifies credentials. Unknown emails and wrong passwords are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, dto LoginDTO) (*AuthResult, error) {
	dto.Normalize()
	if err := validation.Struct(dto); err != nil {
		return nil, err
	}

	u, err := s.repo.GetByEmail(ctx, dto.Email)
	if err != nil {
		if errors.Is(err, internal.ErrUserNotFound) {
			return nil, internal.ErrInvalidCredentials
		}
		return nil, internal.NewInternalError("حدث خطأ أثناء تسجيل الدخول", err)
	}

	if !u.IsActive {
		return nil, internal.ErrUserInactive
	}

	if err := VerifyPassword(u.PasswordHash, dto.Password); err != nil {
		return nil, internal.ErrInvalidCredentials
	}

	now := s.now()
	if err := s.repo.UpdateLastLogin(ctx, u.ID, now); err != nil {
		s.logger.Error("failed to update last login", "error", err, "user_id", u.ID)
		return nil, internal.NewInternalError("حدث خطأ أثناء تسجيل الدخول", err)
	}
	u.LastLogin = &now

	token, err := s.tokenGenerator.GenerateAccessToken(u)
	if err != nil {
		return nil, internal.NewInternalError("حدث خطأ أثناء تسجيل الدخول", err)
	}

	return &AuthResult{User: u, Token: token}, nil
}

// ValidateAccessToken validates access token and returns claims
func (s *Service) ValidateAccessToken(tokenString string) (*Claims, error) {
	return s.tokenGenerator.ValidateToken(tokenString)
}

// ResolveActor reloads the token subject so deactivation and role changes apply immediately.
func (s *Service) ResolveActor(ctx context.Context, claims *Claims) (user.Actor, error) {
	u, err := s.repo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, internal.ErrUserNotFound) {
			return user.Actor{}, internal.ErrInvalidToken
		}
		return user.Actor{}, err
	}
	if !u.IsActive {
		return user.Actor{}, internal.ErrUserInactive
	}
	return u.Actor(), nil
}

// GenerateAccessToken creates a new access token
func (j *JWTTokenGenerator) GenerateAccessToken(u *user.User) (string, error) {
	now := j.now()

	claims := &Claims{
		UserID: u.ID,
		Email:  u.Email,
		Role:   u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(j.TTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   u.ID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(j.Secret)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ValidateToken validates a JWT token and returns claims
func (j *JWTTokenGenerator) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.Secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, internal.ErrTokenExpired
		}
		return nil, internal.ErrInvalidToken.WithCause(err)
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid && claims.UserID != "" {
		return claims, nil
	}

	return nil, internal.ErrInvalidToken
}

func VerifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

func HashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
