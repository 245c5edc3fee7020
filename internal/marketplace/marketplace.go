package marketplace

import (
	"fmt"

	"github.com/angelmondragon/stayregistry-backend/internal/assets"
	"github.com/angelmondragon/stayregistry-backend/internal/bookings"
	"github.com/angelmondragon/stayregistry-backend/internal/credits"
	"github.com/angelmondragon/stayregistry-backend/pkg/config"
	"github.com/angelmondragon/stayregistry-backend/pkg/db"
	"github.com/angelmondragon/stayregistry-backend/pkg/logger"
	"github.com/angelmondragon/stayregistry-backend/pkg/metrics"
	"github.com/angelmondragon/stayregistry-backend/pkg/outbox"
	"github.com/angelmondragon/stayregistry-backend/pkg/types"
)

// Marketplace is the provisioned set of registries plus the event feed.
type Marketplace struct {
	Assets   assets.Service
	Credits  credits.Service
	Bookings bookings.Service
	Events   *outbox.Feed
}

type Params struct {
	DB       *db.Client
	Registry config.RegistryConfig
	Logger   *logger.Logger
	Metrics  *metrics.RegistryMetrics
}

// New provisions the asset registry, then the credit ledger, then the booking
// registry bound to both. The credit supply starts at zero.
func New(params Params) (*Marketplace, error) {
	if params.DB == nil {
		return nil, fmt.Errorf("database client required")
	}
	identity, ok := types.ParseIdentity(params.Registry.BookingIdentity)
	if !ok {
		return nil, fmt.Errorf("invalid booking registry identity %q", params.Registry.BookingIdentity)
	}

	conn := params.DB.DB()
	outboxRepo := outbox.NewRepository(conn)
	emitter := outbox.NewService(outboxRepo, params.Logger)

	assetSvc, err := assets.NewService(assets.ServiceParams{
		Repo:     assets.NewRepository(conn),
		TxRunner: params.DB,
		Outbox:   emitter,
		Metrics:  params.Metrics,
		Collection: assets.Collection{
			Name:   params.Registry.CollectionName,
			Symbol: params.Registry.CollectionSymbol,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("asset registry: %w", err)
	}

	creditSvc, err := credits.NewService(credits.ServiceParams{
		Repo:     credits.NewRepository(conn),
		TxRunner: params.DB,
		Outbox:   emitter,
		Metrics:  params.Metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("credit ledger: %w", err)
	}

	bookingSvc, err := bookings.NewService(bookings.ServiceParams{
		Repo:     bookings.NewRepository(conn),
		Assets:   assetSvc,
		Credits:  creditSvc,
		TxRunner: params.DB,
		Outbox:   emitter,
		Logger:   params.Logger,
		Metrics:  params.Metrics,
		Identity: identity,
	})
	if err != nil {
		return nil, fmt.Errorf("booking registry: %w", err)
	}

	feed, err := outbox.NewFeed(outboxRepo)
	if err != nil {
		return nil, fmt.Errorf("event feed: %w", err)
	}

	return &Marketplace{
		Assets:   assetSvc,
		Credits:  creditSvc,
		Bookings: bookingSvc,
		Events:   feed,
	}, nil
}
