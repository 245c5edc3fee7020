package assets

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/angelmondragon/stayregistry-backend/internal/repo"
	"github.com/angelmondragon/stayregistry-backend/pkg/db/models"
)

// Repository manages persistence for property assets.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	NextID(ctx context.Context) (uint64, error)
	Create(ctx context.Context, asset *models.Asset) error
	FindByID(ctx context.Context, id uint64) (*models.Asset, error)
	UpdateOwner(ctx context.Context, id uint64, owner string) error
	UpdateURI(ctx context.Context, id uint64, uri string) error
	CountByOwner(ctx context.Context, owner string) (int64, error)
	ListIDsByOwner(ctx context.Context, owner string, offset, limit int) ([]uint64, error)
}

type repository struct {
	base repo.Base
}

// NewRepository returns an asset repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{base: r.base.WithTx(tx)}
}

// NextID is only meaningful inside a serialized transaction.
func (r *repository) NextID(ctx context.Context) (uint64, error) {
	var maxID uint64
	if err := r.base.DB(ctx).
		Model(&models.Asset{}).
		Select("COALESCE(MAX(id), 0)").
		Scan(&maxID).Error; err != nil {
		return 0, err
	}
	return maxID + 1, nil
}

func (r *repository) Create(ctx context.Context, asset *models.Asset) error {
	return r.base.DB(ctx).Create(asset).Error
}

// FindByID returns nil when the asset was never minted.
func (r *repository) FindByID(ctx context.Context, id uint64) (*models.Asset, error) {
	var asset models.Asset
	err := r.base.DB(ctx).Where("id = ?", id).First(&asset).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &asset, nil
}

func (r *repository) UpdateOwner(ctx context.Context, id uint64, owner string) error {
	return r.update(ctx, id, "owner", owner)
}

func (r *repository) UpdateURI(ctx context.Context, id uint64, uri string) error {
	return r.update(ctx, id, "uri", uri)
}

func (r *repository) update(ctx context.Context, id uint64, column string, value any) error {
	res := r.base.DB(ctx).Model(&models.Asset{}).Where("id = ?", id).Update(column, value)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) CountByOwner(ctx context.Context, owner string) (int64, error) {
	var count int64
	err := r.base.DB(ctx).Model(&models.Asset{}).Where("owner = ?", owner).Count(&count).Error
	return count, err
}

func (r *repository) ListIDsByOwner(ctx context.Context, owner string, offset, limit int) ([]uint64, error) {
	q := r.base.DB(ctx).
		Model(&models.Asset{}).
		Where("owner = ?", owner).
		Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit).Offset(offset)
	}
	var ids []uint64
	if err := q.Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
