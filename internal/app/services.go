package app

import (
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/revenue-dashboard/revenue-dashboard/internal/analytics"
	"github.com/revenue-dashboard/revenue-dashboard/internal/imports"
	jobmetrics "github.com/revenue-dashboard/revenue-dashboard/internal/jobs"
	"github.com/revenue-dashboard/revenue-dashboard/internal/masterdata/clients"
	"github.com/revenue-dashboard/revenue-dashboard/internal/masterdata/companies"
	"github.com/revenue-dashboard/revenue-dashboard/internal/revenues"
	"github.com/revenue-dashboard/revenue-dashboard/internal/shared"
)

// ServiceDeps are the shared handles every binary builds services from.
type ServiceDeps struct {
	Pool    *pgxpool.Pool
	Redis   *redis.Client
	Config  *Config
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	// Warmup is optional; imports skip scheduling when nil.
	Warmup imports.WarmupEnqueuer
}

// Services is the wired domain layer shared by the server, worker and CLI.
type Services struct {
	Cache       *analytics.Cache
	Clients     *clients.Service
	Companies   *companies.Service
	Revenues    *revenues.Service
	Imports     *imports.Service
	Analytics   *analytics.Service
	Idempotency *shared.IdempotencyStore
}

// NewServices builds repositories and services over one pool and one cache.
func NewServices(deps ServiceDeps) *Services {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := deps.Config
	if cfg == nil {
		cfg = &Config{}
	}

	cache := analytics.NewCache(deps.Redis, cfg.AnalyticsCacheTTL).WithLogger(logger)

	clientRepo := clients.NewRepository(deps.Pool)
	companyRepo := companies.NewRepository(deps.Pool)
	revenueRepo := revenues.NewRepository(deps.Pool)

	clientSvc := clients.NewService(clientRepo, cache, logger)
	companySvc := companies.NewService(companyRepo, cache, logger)

	opts := imports.Options{
		Logger:      logger,
		Metrics:     deps.Metrics,
		Invalidator: cache,
		Warmup:      deps.Warmup,
		MaxRows:     cfg.ImportMaxRows,
	}

	return &Services{
		Cache:       cache,
		Clients:     clientSvc,
		Companies:   companySvc,
		Revenues:    revenues.NewService(revenueRepo, cache, logger),
		Imports:     imports.NewService(clientSvc, companySvc, revenueRepo, imports.NewRepository(deps.Pool), opts),
		Analytics:   analytics.NewService(revenueRepo, clientSvc, companySvc, cache, logger),
		Idempotency: shared.NewIdempotencyStore(deps.Pool),
	}
}
