package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/stayregistry-backend/api/controllers"
	"github.com/angelmondragon/stayregistry-backend/api/middleware"
	"github.com/angelmondragon/stayregistry-backend/internal/marketplace"
	"github.com/angelmondragon/stayregistry-backend/pkg/config"
	"github.com/angelmondragon/stayregistry-backend/pkg/logger"
	"github.com/angelmondragon/stayregistry-backend/pkg/redis"
)

// Params carries everything the router needs. Redis and Metrics are optional.
type Params struct {
	Config      *config.Config
	Logger      *logger.Logger
	Marketplace *marketplace.Marketplace
	DB          controllers.Pinger
	Redis       *redis.Client
	Metrics     http.Handler
}

func NewRouter(p Params) http.Handler {
	cfg, logg, m := p.Config, p.Logger, p.Marketplace

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	var redisPinger controllers.Pinger
	var idempotencyStore redis.IdempotencyStore
	var rateStore middleware.RateLimiterStore
	if p.Redis != nil {
		redisPinger = p.Redis
		idempotencyStore = p.Redis
		rateStore = p.Redis
	}
	mutationLimit := middleware.RateLimitPolicy{
		Name:        "mutations",
		Window:      cfg.RateLimit.Window,
		IPLimit:     cfg.RateLimit.IPLimit,
		CallerLimit: cfg.RateLimit.CallerLimit,
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"db":    p.DB,
			"redis": redisPinger,
		}))
	})
	if p.Metrics != nil {
		r.Handle("/metrics", p.Metrics)
	}

	r.Get("/api/public/ping", controllers.PublicPing())

	r.Route("/api/v1", func(r chi.Router) {
		// Reads are public.
		r.Get("/registry", controllers.RegistryInfo(m))
		r.Get("/assets/{assetId}", controllers.AssetGet(m.Assets, logg))
		r.Get("/owners/{identity}/assets", controllers.OwnerAssets(m.Assets, logg))
		r.Get("/credits/balances/{identity}", controllers.CreditBalance(m.Credits, logg))
		r.Get("/credits/allowances/{owner}/{spender}", controllers.CreditAllowance(m.Credits, logg))
		r.Get("/credits/supply", controllers.CreditSupply(m.Credits, logg))
		r.Get("/credits/entries/{identity}", controllers.CreditHistory(m.Credits, logg))
		r.Get("/stays/{assetId}", controllers.StayGet(m.Bookings, logg))
		r.Get("/events", controllers.EventsList(m.Events, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Use(middleware.RateLimit(mutationLimit, rateStore, logg))
			r.Use(middleware.Idempotency(idempotencyStore, logg))

			r.Get("/me", controllers.WhoAmI())

			r.Post("/assets", controllers.AssetMint(m.Assets, logg))
			r.Post("/assets/{assetId}/transfer", controllers.AssetTransfer(m.Assets, logg))
			r.Put("/assets/{assetId}/uri", controllers.AssetSetURI(m.Assets, logg))

			r.Post("/credits/mint", controllers.CreditMint(m.Credits, logg))
			r.Post("/credits/approve", controllers.CreditApprove(m.Credits, logg))

			r.Post("/stays/{assetId}/register", controllers.StayRegister(m.Bookings, logg))
			r.Post("/stays/{assetId}/request", controllers.StayRequest(m.Bookings, logg))
			r.Post("/stays/{assetId}/approve", controllers.StayApprove(m.Bookings, logg))
			r.Post("/stays/{assetId}/check-in", controllers.StayCheckIn(m.Bookings, logg))
			r.Post("/stays/{assetId}/check-out", controllers.StayCheckOut(m.Bookings, logg))
		})
	})

	return r
}
