package auth

import (
	"strings"

	"github.com/aarondl/null/v8"
)

// RegisterDTO is the public sign-up shape. Only citizens sign up; staff accounts come from the seeder.
type RegisterDTO struct {
	Email    string      `json:"email" validate:"required,email"`
	Password string      `json:"password" validate:"required,min=6,strong_password"`
	FullName string      `json:"full_name" validate:"required,min=3"`
	Role     string      `json:"role" validate:"omitempty,oneof=citizen"`
	Phone    null.String `json:"phone" validate:"omitempty,iq_phone"`
	IDNumber null.String `json:"id_number" validate:"omitempty,max=50"`
	Province null.String `json:"province" validate:"omitempty,max=100"`
	City     null.String `json:"city" validate:"omitempty,max=100"`
	Address  null.String `json:"address" validate:"omitempty,max=500"`
}

// LoginDTO is the transport shape used by the HTTP handler to accept login requests.
type LoginDTO struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (d *RegisterDTO) Normalize() {
	d.Email = NormalizeEmail(d.Email)
	d.FullName = strings.TrimSpace(d.FullName)
}

func (d *LoginDTO) Normalize() {
	d.Email = NormalizeEmail(d.Email)
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
