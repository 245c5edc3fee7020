package models

import "time"

// Asset is a rentable property record. IDs are assigned by the asset
// registry, starting at 1, and never reused.
type Asset struct {
	ID        uint64    `gorm:"column:id;primaryKey;autoIncrement:false"`
	Owner     string    `gorm:"column:owner;type:text;not null;index:idx_assets_owner"`
	URI       string    `gorm:"column:uri;type:text;not null;default:''"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
