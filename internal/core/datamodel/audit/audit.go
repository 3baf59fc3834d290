package audit

import (
	"time"

	"gorm.io/datatypes"
)

type Log struct {
	ID         int64          `gorm:"primaryKey"`
	UserID     *string        `gorm:"column:user_id"`
	Action     string         `gorm:"column:action;not null"`
	EntityType *string        `gorm:"column:entity_type"`
	EntityID   *string        `gorm:"column:entity_id"`
	Details    datatypes.JSON `gorm:"column:details"`
	IPAddress  *string        `gorm:"column:ip_address"`
	UserAgent  *string        `gorm:"column:user_agent"`
	CreatedAt  time.Time      `gorm:"column:created_at;autoCreateTime"`
}

func (Log) TableName() string {
	return "audit_log"
}
