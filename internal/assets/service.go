package assets

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/stayregistry-backend/pkg/db/models"
	"github.com/angelmondragon/stayregistry-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/stayregistry-backend/pkg/errors"
	"github.com/angelmondragon/stayregistry-backend/pkg/metrics"
	"github.com/angelmondragon/stayregistry-backend/pkg/outbox"
	"github.com/angelmondragon/stayregistry-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/stayregistry-backend/pkg/types"
)

const maxURILen = 2048

// Collection is the asset collection's descriptive metadata.
type Collection struct {
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
}

// Service is the asset registry: ownership and metadata of rentable properties.
type Service interface {
	Mint(ctx context.Context, owner types.Identity) (*models.Asset, error)
	Get(ctx context.Context, id uint64) (*models.Asset, error)
	OwnerOf(ctx context.Context, id uint64) (types.Identity, error)
	OwnerOfTx(ctx context.Context, tx *gorm.DB, id uint64) (types.Identity, error)
	Transfer(ctx context.Context, id uint64, newOwner, caller types.Identity) error
	SetURI(ctx context.Context, id uint64, uri string, caller types.Identity) error
	URI(ctx context.Context, id uint64) (string, error)
	BalanceOf(ctx context.Context, owner types.Identity) (int64, error)
	TokenOfOwnerByIndex(ctx context.Context, owner types.Identity, index int) (uint64, error)
	ListByOwner(ctx context.Context, owner types.Identity) ([]uint64, error)
	Collection() Collection
}

type txRunner interface {
	Atomic(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ServiceParams groups the asset registry collaborators.
type ServiceParams struct {
	Repo       Repository
	TxRunner   txRunner
	Outbox     outboxPublisher
	Metrics    *metrics.RegistryMetrics
	Collection Collection
}

type service struct {
	repo       Repository
	tx         txRunner
	outbox     outboxPublisher
	metrics    *metrics.RegistryMetrics
	collection Collection
}

// NewService wires the asset registry.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("asset repository required")
	}
	if params.TxRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Collection.Name == "" || params.Collection.Symbol == "" {
		return nil, fmt.Errorf("collection name and symbol required")
	}
	return &service{
		repo:       params.Repo,
		tx:         params.TxRunner,
		outbox:     params.Outbox,
		metrics:    params.Metrics,
		collection: params.Collection,
	}, nil
}

func (s *service) Mint(ctx context.Context, owner types.Identity) (asset *models.Asset, err error) {
	defer s.observe("asset_mint", time.Now(), &err)

	if owner.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner is required")
	}

	err = s.tx.Atomic(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		id, err := repo.NextID(ctx)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "allocate asset id")
		}
		created := &models.Asset{ID: id, Owner: owner.String()}
		if err := repo.Create(ctx, created); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create asset")
		}
		asset = created
		return s.emit(ctx, tx, enums.EventAssetMinted, id, owner, payloads.AssetMintedEvent{
			AssetID: id,
			Owner:   created.Owner,
			URI:     created.URI,
		})
	})
	if err != nil {
		return nil, err
	}
	return asset, nil
}

func (s *service) Get(ctx context.Context, id uint64) (*models.Asset, error) {
	return s.load(ctx, s.repo, id)
}

func (s *service) OwnerOf(ctx context.Context, id uint64) (types.Identity, error) {
	asset, err := s.load(ctx, s.repo, id)
	if err != nil {
		return types.NoIdentity, err
	}
	return types.Identity(asset.Owner), nil
}

func (s *service) OwnerOfTx(ctx context.Context, tx *gorm.DB, id uint64) (types.Identity, error) {
	asset, err := s.load(ctx, s.repo.WithTx(tx), id)
	if err != nil {
		return types.NoIdentity, err
	}
	return types.Identity(asset.Owner), nil
}

func (s *service) Transfer(ctx context.Context, id uint64, newOwner, caller types.Identity) (err error) {
	defer s.observe("asset_transfer", time.Now(), &err)

	return s.tx.Atomic(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		asset, err := s.load(ctx, repo, id)
		if err != nil {
			return err
		}
		if types.Identity(asset.Owner) != caller {
			return pkgerrors.New(pkgerrors.CodeUnauthorized, "only the owner can transfer an asset")
		}
		if newOwner.IsZero() {
			return pkgerrors.New(pkgerrors.CodeValidation, "new owner is required")
		}
		if err := repo.UpdateOwner(ctx, id, newOwner.String()); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update asset owner")
		}
		return s.emit(ctx, tx, enums.EventAssetTransferred, id, caller, payloads.AssetTransferredEvent{
			AssetID: id,
			From:    asset.Owner,
			To:      newOwner.String(),
		})
	})
}

func (s *service) SetURI(ctx context.Context, id uint64, uri string, caller types.Identity) (err error) {
	defer s.observe("asset_set_uri", time.Now(), &err)

	return s.tx.Atomic(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		asset, err := s.load(ctx, repo, id)
		if err != nil {
			return err
		}
		if types.Identity(asset.Owner) != caller {
			return pkgerrors.New(pkgerrors.CodeUnauthorized, "only the owner can set the asset uri")
		}
		if len(uri) > maxURILen {
			return pkgerrors.New(pkgerrors.CodeValidation, "uri is too long")
		}
		if err := repo.UpdateURI(ctx, id, uri); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update asset uri")
		}
		return s.emit(ctx, tx, enums.EventAssetURISet, id, caller, payloads.AssetURISetEvent{
			AssetID: id,
			URI:     uri,
		})
	})
}

func (s *service) URI(ctx context.Context, id uint64) (string, error) {
	asset, err := s.load(ctx, s.repo, id)
	if err != nil {
		return "", err
	}
	return asset.URI, nil
}

func (s *service) BalanceOf(ctx context.Context, owner types.Identity) (int64, error) {
	if owner.IsZero() {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "owner is required")
	}
	count, err := s.repo.CountByOwner(ctx, owner.String())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count assets")
	}
	return count, nil
}

// TokenOfOwnerByIndex returns the index-th asset of owner in ascending id order.
func (s *service) TokenOfOwnerByIndex(ctx context.Context, owner types.Identity, index int) (uint64, error) {
	if owner.IsZero() {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "owner is required")
	}
	if index < 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "index must be non-negative")
	}
	ids, err := s.repo.ListIDsByOwner(ctx, owner.String(), index, 1)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list owner assets")
	}
	if len(ids) == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeNotFound, "owner index out of range")
	}
	return ids[0], nil
}

func (s *service) ListByOwner(ctx context.Context, owner types.Identity) ([]uint64, error) {
	if owner.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner is required")
	}
	ids, err := s.repo.ListIDsByOwner(ctx, owner.String(), 0, 0)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list owner assets")
	}
	if ids == nil {
		ids = []uint64{}
	}
	return ids, nil
}

func (s *service) Collection() Collection {
	return s.collection
}

func (s *service) load(ctx context.Context, repo Repository, id uint64) (*models.Asset, error) {
	if id == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "asset not found")
	}
	asset, err := repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load asset")
	}
	if asset == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "asset not found")
	}
	return asset, nil
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, id uint64, actor types.Identity, data any) error {
	err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateAsset,
		AggregateID:   strconv.FormatUint(id, 10),
		Actor:         outbox.Actor(actor.String()),
		Data:          data,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit "+string(eventType))
	}
	return nil
}

func (s *service) observe(operation string, start time.Time, err *error) {
	s.metrics.ObserveOperation(operation, metrics.Outcome(*err), time.Since(start))
}
