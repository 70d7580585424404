package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/revenue-dashboard/revenue-dashboard/cmd/revdash/cli"
	analytichttp "github.com/revenue-dashboard/revenue-dashboard/internal/analytics/http"
	"github.com/revenue-dashboard/revenue-dashboard/internal/app"
	"github.com/revenue-dashboard/revenue-dashboard/internal/imports"
	"github.com/revenue-dashboard/revenue-dashboard/internal/masterdata/clients"
	"github.com/revenue-dashboard/revenue-dashboard/internal/masterdata/companies"
	"github.com/revenue-dashboard/revenue-dashboard/internal/observability"
	"github.com/revenue-dashboard/revenue-dashboard/internal/platform/cache"
	"github.com/revenue-dashboard/revenue-dashboard/internal/platform/db"
	"github.com/revenue-dashboard/revenue-dashboard/internal/revenues"
	"github.com/revenue-dashboard/revenue-dashboard/jobs"
)

const usage = `usage: revdash <command> [flags]

commands:
  serve                  run the HTTP API (default)
  migrate [up|down]      apply or roll back schema migrations
  import -file F [-json] import a revenue spreadsheet export
  jobs trigger|inspect   enqueue a job or report queue depth
`

func main() {
	_ = godotenv.Load()
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	cmd, args := "serve", os.Args[1:]
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}

	var code int
	switch cmd {
	case "serve":
		code = serve(ctx, cfg, logger)
	case "migrate":
		code = migrateCmd(cfg, logger, args)
	case "import":
		code = importCmd(ctx, cfg, logger, args)
	case "jobs":
		code = jobsCmd(ctx, cfg, args)
	case "help", "-h", "--help":
		fmt.Fprint(os.Stdout, usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		code = 2
	}
	stop()
	os.Exit(code)
}

func serve(ctx context.Context, cfg *app.Config, logger *slog.Logger) int {
	if cfg.MigrateOnStart {
		if code := migrateCmd(cfg, logger, []string{"up"}); code != 0 {
			return code
		}
	}

	pool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{MaxConns: cfg.PGMaxConns})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		return 1
	}
	defer pool.Close()

	// Analytics fall back to direct reads without Redis.
	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Warn("redis unavailable, analytics cache disabled", slog.Any("error", err))
	} else {
		defer closeRedis(redisClient, logger)
	}

	metrics := observability.NewMetrics()

	var warmup imports.WarmupEnqueuer
	var inspector jobs.QueueInspector
	if redisClient != nil {
		redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
		jobsClient := jobs.NewClient(redisOpts)
		defer func() {
			if err := jobsClient.Close(); err != nil {
				logger.Warn("jobs client close", slog.Any("error", err))
			}
		}()
		warmup = jobsClient

		asynqInspector := asynq.NewInspector(redisOpts)
		defer func() {
			if err := asynqInspector.Close(); err != nil {
				logger.Warn("inspector close", slog.Any("error", err))
			}
		}()
		inspector = asynqInspector
	}

	services := app.NewServices(app.ServiceDeps{
		Pool:    pool,
		Redis:   redisClient,
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics.Jobs(),
		Warmup:  warmup,
	})
	if err := services.Cache.ListenForInvalidation(ctx, ""); err != nil {
		logger.Warn("cache invalidation listener", slog.Any("error", err))
	}

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		Metrics:          metrics,
		DB:               pool,
		ClientHandler:    clients.NewHandler(logger, services.Clients),
		CompanyHandler:   companies.NewHandler(logger, services.Companies),
		RevenueHandler:   revenues.NewHandler(logger, services.Revenues),
		ImportHandler:    imports.NewHandler(services.Imports, services.Idempotency, logger),
		AnalyticsHandler: analytichttp.NewHandler(logger, services.Analytics, cfg.ExportLimitPerMin),
		JobHandler:       jobs.NewHandler(inspector, logger),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	serveCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			cancel()
		}
	}()

	<-serveCtx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
		return 1
	}
	return 0
}

func migrateCmd(cfg *app.Config, logger *slog.Logger, args []string) int {
	direction := "up"
	if len(args) > 0 {
		direction = args[0]
	}
	migrator, err := db.NewMigrator(cfg.PGDSN, logger)
	if err != nil {
		logger.Error("init migrator", slog.Any("error", err))
		return 1
	}
	defer func() {
		if err := migrator.Close(); err != nil {
			logger.Warn("migrator close", slog.Any("error", err))
		}
	}()

	switch direction {
	case "up":
		err = migrator.Up()
	case "down":
		err = migrator.Down()
	default:
		fmt.Fprintf(os.Stderr, "migrate: unknown direction %q (expected up or down)\n", direction)
		return 2
	}
	if err != nil {
		logger.Error("migrate", slog.String("direction", direction), slog.Any("error", err))
		return 1
	}
	return 0
}

func importCmd(ctx context.Context, cfg *app.Config, logger *slog.Logger, args []string) int {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	file := fs.String("file", "", "path of the CSV export to import")
	asJSON := fs.Bool("json", false, "print the batch result as JSON")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	pool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{MaxConns: cfg.PGMaxConns})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		return 1
	}
	defer pool.Close()

	// The CLI still invalidates a shared cache when one is reachable.
	deps := app.ServiceDeps{Pool: pool, Config: cfg, Logger: logger}
	if client, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr}); err == nil {
		defer closeRedis(client, logger)
		jobsClient := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		defer func() { _ = jobsClient.Close() }()
		deps.Redis = client
		deps.Warmup = jobsClient
	}

	importer, err := cli.NewImportCLI(app.NewServices(deps).Imports)
	if err != nil {
		logger.Error("init import", slog.Any("error", err))
		return 1
	}
	return importer.ImportCommand(ctx, cli.ImportOptions{File: *file, JSONOutput: *asJSON})
}

func jobsCmd(ctx context.Context, cfg *app.Config, args []string) int {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, "jobs: expected trigger or inspect\n")
		return 2
	}
	fs := flag.NewFlagSet("jobs "+args[0], flag.ContinueOnError)
	task := fs.String("task", jobs.TaskAnalyticsWarmup, "task type to enqueue")
	years := fs.String("years", "", "comma separated years for the warmup")
	asJSON := fs.Bool("json", false, "print queue stats as JSON")
	if err := fs.Parse(args[1:]); err != nil {
		return 2
	}

	jobsCLI := cli.NewJobsCLI(cfg.RedisAddr)
	defer func() { _ = jobsCLI.Close() }()
	return jobsCLI.JobsCommand(ctx, cli.JobsOptions{
		Action:     args[0],
		Task:       *task,
		Years:      *years,
		JSONOutput: *asJSON,
	})
}

func closeRedis(client *redis.Client, logger *slog.Logger) {
	if err := client.Close(); err != nil {
		logger.Warn("redis close", slog.Any("error", err))
	}
}
