package user

import (
	"context"
	"strings"

	"github.com/aarondl/null/v8"

	coreuser "github.com/frahmantamala/muamalati/internal/core/user"
)

type ServiceAPI interface {
	GetProfile(ctx context.Context, userID string) (*coreuser.User, error)
	UpdateProfile(ctx context.Context, userID string, dto UpdateProfileDTO) (*coreuser.User, error)
	ChangePassword(ctx context.Context, userID string, dto ChangePasswordDTO) error
}

type Repository interface {
	GetByID(ctx context.Context, id string) (*coreuser.User, error)
	UpdateProfile(ctx context.Context, id string, fields map[string]interface{}) error
	UpdatePasswordHash(ctx context.Context, id, hash string) error
}

// UpdateProfileDTO only touches the fields that were sent.
type UpdateProfileDTO struct {
	FullName null.String `json:"full_name" validate:"omitempty,min=3"`
	Phone    null.String `json:"phone" validate:"omitempty,iq_phone"`
	Province null.String `json:"province" validate:"omitempty,max=100"`
	City     null.String `json:"city" validate:"omitempty,max=100"`
	Address  null.String `json:"address" validate:"omitempty,max=500"`
}

func (d UpdateProfileDTO) Fields() map[string]interface{} {
	fields := make(map[string]interface{})
	if d.FullName.Valid {
		fields["full_name"] = strings.TrimSpace(d.FullName.String)
	}
	if d.Phone.Valid {
		fields["phone"] = d.Phone.String
	}
	if d.Province.Valid {
		fields["province"] = d.Province.String
	}
	if d.City.Valid {
		fields["city"] = d.City.String
	}
	if d.Address.Valid {
		fields["address"] = d.Address.String
	}
	return fields
}

type ChangePasswordDTO struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=6,strong_password,nefield=CurrentPassword"`
}
