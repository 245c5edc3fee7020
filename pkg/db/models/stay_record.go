package models

import (
	"time"

	"github.com/angelmondragon/stayregistry-backend/pkg/enums"
)

// StayRecord is the booking registry's per-asset record.
type StayRecord struct {
	AssetID           uint64          `gorm:"column:asset_id;primaryKey;autoIncrement:false"`
	Price             int64           `gorm:"column:price;not null"`
	State             enums.StayState `gorm:"column:state;type:text;not null"`
	GuestRequested    *string         `gorm:"column:guest_requested;type:text"`
	GuestApproved     *string         `gorm:"column:guest_approved;type:text"`
	CheckInAt         *time.Time      `gorm:"column:check_in_at"`
	CheckOutAt        *time.Time      `gorm:"column:check_out_at"`
	TotalStaysSettled int64           `gorm:"column:total_stays_settled;not null;default:0"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
