package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/frahmantamala/muamalati/internal/general"
)

// ReferenceRepository implements general.ReferenceRepository using GORM
type ReferenceRepository struct {
	db *gorm.DB
}

func NewReferenceRepository(db *gorm.DB) *ReferenceRepository {
	return &ReferenceRepository{db: db}
}

func (r *ReferenceRepository) Provinces(ctx context.Context) ([]general.Province, error) {
	var out []general.Province
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("name_ar").
		Find(&out).Error
	return out, err
}

func (r *ReferenceRepository) Departments(ctx context.Context, f general.DepartmentFilter) ([]general.Department, error) {
	q := r.db.WithContext(ctx).
		Table("departments d").
		Select("d.*, p.name_ar AS province_name").
		Joins("JOIN provinces p ON d.province_id = p.id").
		Where("d.is_active = ?", true)
	if f.ProvinceID != nil {
		q = q.Where("d.province_id = ?", *f.ProvinceID)
	}
	if f.Type != "" {
		q = q.Where("d.type = ?", f.Type)
	}

	var out []general.Department
	err := q.Order("d.name_ar").Scan(&out).Error
	return out, err
}

func (r *ReferenceRepository) TransactionTypes(ctx context.Context, departmentType string) ([]general.TransactionType, error) {
	q := r.db.WithContext(ctx).Where("is_active = ?", true)
	if departmentType != "" {
		q = q.Where("department_type = ?", departmentType)
	}
	var out []general.TransactionType
	err := q.Order("name_ar").Find(&out).Error
	return out, err
}

func (r *ReferenceRepository) RejectionReasons(ctx context.Context, category string) ([]general.RejectionReason, error) {
	q := r.db.WithContext(ctx).Where("is_active = ?", true)
	if category != "" {
		q = q.Where("category = ?", category)
	}
	var out []general.RejectionReason
	err := q.Order("category, reason_ar").Find(&out).Error
	return out, err
}
