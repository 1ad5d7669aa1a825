package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"fleetledger/internal/caching"
	"fleetledger/internal/config"
	"fleetledger/internal/handlers"
	"fleetledger/internal/jobs/background"
	"fleetledger/internal/middleware"
	"fleetledger/internal/repositories"
	"fleetledger/internal/repositories/memory"
	"fleetledger/internal/services"
	"fleetledger/pkg/database"
	"fleetledger/pkg/logger"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := zerolog.New(os.Stderr).With().Timestamp().Logger()
		boot.Fatal().Err(err).Msg("invalid configuration")
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})

	ctx := context.Background()

	var (
		repos    repositories.Repositories
		txRunner repositories.TxRunner
		db       handlers.Pinger
	)
	switch cfg.DB.Driver {
	case config.StoreDriverPostgres:
		pool, err := database.NewPool(ctx, cfg.DB.DatabaseURL, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer pool.Close()
		if cfg.DB.EnsureSchema {
			if err := database.EnsureSchema(ctx, pool); err != nil {
				log.Fatal().Err(err).Msg("failed to apply schema")
			}
		}
		repos = repositories.NewRepositories(pool)
		txRunner = repositories.NewTxRunner(pool)
		db = pool
	case config.StoreDriverMemory:
		log.Warn().Msg("using in-memory store; data is lost on restart")
		repos = memory.NewStore(memory.WithMaxRetries(cfg.Ledger.MaxRetries)).Repositories()
	}

	cache := caching.NewNoopCacheService()
	if cfg.Redis.Enabled() {
		cache = caching.NewRedisCacheService(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, log)
		if err := cache.Ping(ctx); err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unreachable; cache calls will fail open")
		}
	}

	var reports services.ReportStore
	if cfg.Minio.Enabled() {
		reports, err = services.NewMinioReportStore(cfg.Minio.Endpoint, cfg.Minio.AccessKey, cfg.Minio.SecretKey,
			cfg.Minio.UseSSL, cfg.Minio.ReportBucket, cfg.Minio.URLExpiry)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create report store")
		}
		if err := reports.EnsureBucket(ctx); err != nil {
			log.Warn().Err(err).Str("bucket", cfg.Minio.ReportBucket).Msg("report bucket unavailable")
		}
	}

	opTimeout := cfg.Ledger.OpTimeout
	locationSvc := services.NewLocationService(repos.Locations, cache, cfg.Redis.LocationTTL, log)
	ledgerSvc := services.NewLedgerService(repos.Stock, locationSvc, cache, services.LedgerOptions{
		OpTimeout: opTimeout,
		StockTTL:  cfg.Redis.StockTTL,
	}, log)
	transferSvc := services.NewTransferService(repos, txRunner, locationSvc, cache, opTimeout, log)
	allocationSvc := services.NewAllocationService(ledgerSvc, locationSvc, repos, txRunner, cache, opTimeout, log)
	unitSvc := services.NewUnitService(repos, txRunner, locationSvc, transferSvc, cache, opTimeout, log)
	reconSvc := services.NewReconciliationService(repos.Stock, repos.Units, opTimeout, log)

	e := echo.New()
	e.HideBanner = true
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORS())
	e.Use(echoMiddleware.RemoveTrailingSlash())
	e.Use(echoMiddleware.RequestID())

	vm := middleware.NewVersionMiddleware(cfg.App.Name)
	e.Use(vm.APIVersionResolver())
	e.Use(middleware.NewRequestLogger(log).Middleware())

	handlers.RegisterRoutes(e, vm, handlers.Handlers{
		Health:         handlers.NewHealthHandlers(db, cache, reports, version),
		Locations:      handlers.NewLocationHandlers(locationSvc),
		Stock:          handlers.NewStockHandlers(ledgerSvc),
		Transfers:      handlers.NewTransferHandlers(transferSvc),
		Allocations:    handlers.NewAllocationHandlers(allocationSvc),
		Units:          handlers.NewUnitHandlers(unitSvc),
		Reconciliation: handlers.NewReconciliationHandlers(reconSvc, reports, log),
	})

	var scheduler *background.JobScheduler
	if cfg.Jobs.ReconcileEnabled {
		scheduler, err = background.NewJobScheduler(reconSvc, reports, cfg.Jobs.ReconcileInterval, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create job scheduler")
		}
		scheduler.Start()
	}

	go func() {
		log.Info().Str("addr", cfg.HTTP.Addr()).Str("store", cfg.DB.Driver).Msg("starting server")
		if err := e.Start(cfg.HTTP.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if scheduler != nil {
		if err := scheduler.Stop(); err != nil {
			log.Error().Err(err).Msg("job scheduler shutdown")
		}
	}
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}
}
