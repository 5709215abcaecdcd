package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/bao99257/flashsale-engine/internal/app"
	"github.com/bao99257/flashsale-engine/internal/catalog"
	"github.com/bao99257/flashsale-engine/internal/clock"
	"github.com/bao99257/flashsale-engine/internal/config"
	"github.com/bao99257/flashsale-engine/internal/metrics"
	"github.com/bao99257/flashsale-engine/internal/storage/postgres"
	"github.com/bao99257/flashsale-engine/internal/storage/rediscache"
	transporthttp "github.com/bao99257/flashsale-engine/internal/transport/http"
	"github.com/bao99257/flashsale-engine/migrations"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel)

	startupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(startupCtx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect to db")
	}
	defer pool.Close()

	if err := pool.Ping(startupCtx); err != nil {
		logger.Fatal().Err(err).Msg("db ping")
	}
	if err := migrations.Apply(cfg.DatabaseURL); err != nil {
		logger.Fatal().Err(err).Msg("apply migrations")
	}

	metrics.Register()
	clk := clock.NewSystem()

	var cache app.DashboardCache = app.NoopCache{}
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err := redisClient.Ping(startupCtx).Err(); err != nil {
			logger.Warn().Err(err).Msg("redis unreachable, dashboard cache disabled")
		} else {
			cache = rediscache.New(redisClient, cfg.DashboardCacheTTL)
			defer redisClient.Close()
		}
	}

	var products app.ProductFetcher
	if cfg.CatalogBaseURL != "" {
		products = catalog.NewClient(cfg.CatalogBaseURL, cfg.CatalogTimeout)
	}

	programRepo := postgres.NewProgramRepository(pool)
	itemRepo := postgres.NewItemRepository(pool)
	reservationRepo := postgres.NewReservationRepository(pool)
	sessionRepo := postgres.NewSessionRepository(pool)

	programSvc := app.NewProgramService(programRepo, clk, cache, logger)
	itemSvc := app.NewItemService(itemRepo, programSvc, products, clk, cache, logger)
	reservationSvc := app.NewReservationService(reservationRepo, clk, app.WithHoldTTL(cfg.HoldTTL))
	sessionSvc := app.NewSessionService(sessionRepo, clk)
	dashboardSvc := app.NewDashboardService(programRepo, itemRepo, clk, cache, logger)

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	sweeper := app.NewSweeper(sessionSvc, cfg.SweepInterval, logger)
	go sweeper.Run(sweepCtx)

	router := transporthttp.NewRouter(transporthttp.RouterConfig{
		Programs:     programSvc,
		Items:        itemSvc,
		Reservations: reservationSvc,
		Sessions:     sessionSvc,
		Dashboards:   dashboardSvc,
		DB:           pool,
		Clock:        clk,
		Logger:       logger,
		CORSOrigins:  cfg.CORSOrigins,
	})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: router,
	}

	logger.Info().Int("port", cfg.Port).Msg("api listening")

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("server error")
		}
	case <-stopCtx.Done():
		logger.Info().Msg("shutdown signal received, stopping server")
	}

	stopSweep()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("server shutdown error")
	}
	logger.Info().Msg("server stopped")
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stdout).Level(lvl).With().Timestamp().Logger()
}
