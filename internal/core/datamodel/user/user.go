package user

import "time"

type User struct {
	ID           string     `gorm:"primaryKey;type:uuid"`
	Email        string     `gorm:"column:email;uniqueIndex;not null"`
	PasswordHash string     `gorm:"column:password_hash;not null"`
	FullName     string     `gorm:"column:full_name;not null"`
	Phone        *string    `gorm:"column:phone"`
	Role         string     `gorm:"column:role;not null;default:'citizen'"`
	IDNumber     *string    `gorm:"column:id_number"`
	Province     *string    `gorm:"column:province"`
	City         *string    `gorm:"column:city"`
	Address      *string    `gorm:"column:address"`
	DepartmentID *int64     `gorm:"column:department_id"`
	IsActive     bool       `gorm:"column:is_active;default:true"`
	IsVerified   bool       `gorm:"column:is_verified;default:false"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
	LastLogin    *time.Time `gorm:"column:last_login"`
}

func (User) TableName() string {
	return "users"
}
