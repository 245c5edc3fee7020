package bookings

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/angelmondragon/stayregistry-backend/internal/repo"
	"github.com/angelmondragon/stayregistry-backend/pkg/db/models"
)

// Repository manages persistence for stay records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByAssetID(ctx context.Context, assetID uint64) (*models.StayRecord, error)
	Create(ctx context.Context, record *models.StayRecord) error
	Save(ctx context.Context, record *models.StayRecord) error
}

type repository struct {
	base repo.Base
}

// NewRepository returns a stay record repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{base: r.base.WithTx(tx)}
}

// FindByAssetID returns nil when the asset was never registered.
func (r *repository) FindByAssetID(ctx context.Context, assetID uint64) (*models.StayRecord, error) {
	var record models.StayRecord
	err := r.base.DB(ctx).Where("asset_id = ?", assetID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (r *repository) Create(ctx context.Context, record *models.StayRecord) error {
	return r.base.DB(ctx).Create(record).Error
}

// Save writes every column, including cleared guests and window.
func (r *repository) Save(ctx context.Context, record *models.StayRecord) error {
	return r.base.DB(ctx).Save(record).Error
}
