package reference

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type Province struct {
	ID       int64  `gorm:"primaryKey" json:"id"`
	NameAr   string `gorm:"column:name_ar;not null" json:"name_ar"`
	NameEn   string `gorm:"column:name_en" json:"name_en"`
	Code     string `gorm:"column:code;uniqueIndex" json:"code"`
	IsActive bool   `gorm:"column:is_active;default:true" json:"is_active"`
}

func (Province) TableName() string {
	return "provinces"
}

type Department struct {
	ID           int64     `gorm:"primaryKey" json:"id"`
	NameAr       string    `gorm:"column:name_ar;not null" json:"name_ar"`
	NameEn       string    `gorm:"column:name_en" json:"name_en"`
	Type         string    `gorm:"column:type;not null" json:"type"`
	ProvinceID   int64     `gorm:"column:province_id" json:"province_id"`
	Description  *string   `gorm:"column:description" json:"description,omitempty"`
	ContactPhone *string   `gorm:"column:contact_phone" json:"contact_phone,omitempty"`
	ContactEmail *string   `gorm:"column:contact_email" json:"contact_email,omitempty"`
	Address      *string   `gorm:"column:address" json:"address,omitempty"`
	IsActive     bool      `gorm:"column:is_active;default:true" json:"is_active"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (Department) TableName() string {
	return "departments"
}

type DepartmentView struct {
	Department
	ProvinceName *string `gorm:"column:province_name" json:"province_name,omitempty"`
}

type TransactionType struct {
	ID                int64           `gorm:"primaryKey" json:"id"`
	NameAr            string          `gorm:"column:name_ar;not null" json:"name_ar"`
	NameEn            string          `gorm:"column:name_en" json:"name_en"`
	Description       *string         `gorm:"column:description" json:"description,omitempty"`
	DepartmentType    string          `gorm:"column:department_type;not null" json:"department_type"`
	RequiredDocuments datatypes.JSON  `gorm:"column:required_documents" json:"required_documents"`
	BasePrice         decimal.Decimal `gorm:"column:base_price;type:numeric(12,2)" json:"base_price"`
	EstimatedDays     int             `gorm:"column:estimated_days" json:"estimated_days"`
	IsActive          bool            `gorm:"column:is_active;default:true" json:"is_active"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (TransactionType) TableName() string {
	return "transaction_types"
}

type RejectionReason struct {
	ID         int64   `gorm:"primaryKey" json:"id"`
	Category   string  `gorm:"column:category;not null" json:"category"`
	ReasonAr   string  `gorm:"column:reason_ar;not null" json:"reason_ar"`
	ReasonEn   string  `gorm:"column:reason_en" json:"reason_en"`
	SolutionAr *string `gorm:"column:solution_ar" json:"solution_ar,omitempty"`
	SolutionEn *string `gorm:"column:solution_en" json:"solution_en,omitempty"`
	IsActive   bool    `gorm:"column:is_active;default:true" json:"is_active"`
}

func (RejectionReason) TableName() string {
	return "rejection_reasons"
}
