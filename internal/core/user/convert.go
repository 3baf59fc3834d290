package user

import (
	userDatamodel "github.com/frahmantamala/muamalati/internal/core/datamodel/user"
)

func ToDataModel(u *User) *userDatamodel.User {
	return &userDatamodel.User{
		ID:           u.ID,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		FullName:     u.FullName,
		Phone:        u.Phone,
		Role:         string(u.Role),
		IDNumber:     u.IDNumber,
		Province:     u.Province,
		City:         u.City,
		Address:      u.Address,
		DepartmentID: u.DepartmentID,
		IsActive:     u.IsActive,
		IsVerified:   u.IsVerified,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
		LastLogin:    u.LastLogin,
	}
}

func FromDataModel(u *userDatamodel.User) *User {
	return &User{
		ID:           u.ID,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		FullName:     u.FullName,
		Phone:        u.Phone,
		Role:         Role(u.Role),
		IDNumber:     u.IDNumber,
		Province:     u.Province,
		City:         u.City,
		Address:      u.Address,
		DepartmentID: u.DepartmentID,
		IsActive:     u.IsActive,
		IsVerified:   u.IsVerified,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
		LastLogin:    u.LastLogin,
	}
}
