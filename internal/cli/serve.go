package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/handler"
	"github.com/noah-isme/timetable-api/internal/repository"
	"github.com/noah-isme/timetable-api/internal/router"
	"github.com/noah-isme/timetable-api/internal/service"
	"github.com/noah-isme/timetable-api/pkg/cache"
	"github.com/noah-isme/timetable-api/pkg/config"
	"github.com/noah-isme/timetable-api/pkg/database"
	"github.com/noah-isme/timetable-api/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFrom(flagEnvFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if port > 0 {
				cfg.Port = port
			}

			logr, err := logger.New(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer logr.Sync() //nolint:errcheck

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg, logr)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "Override the listen port")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(db.DB, database.DirectionUp, logr); err != nil {
			return err
		}
	}

	metrics := service.NewMetricsService()
	cacheSvc, closeCache := newCache(cfg, metrics, logr)
	defer closeCache()

	api := buildHandlers(cfg, db, cacheSvc, metrics, logr)
	engine := router.Setup(router.Dependencies{
		Config:   cfg,
		Logger:   logr,
		Verifier: service.NewTokenService(cfg.JWT),
		Observer: metrics,
	}, api)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
		// Generation waits on the engine, so the write deadline follows its timeout.
		WriteTimeout: cfg.Engine.Timeout + 10*time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newCache connects redis when the read cache is enabled. A failed connection is logged
// and the API runs uncached.
func newCache(cfg *config.Config, metrics *service.MetricsService, logr *zap.Logger) (*service.CacheService, func()) {
	closeFn := func() {}
	var repo service.CacheRepository
	if cfg.Cache.Enabled {
		client, err := cache.NewRedis(cfg.Redis, logr)
		if err != nil {
			logr.Warn("redis unavailable, running without cache", zap.Error(err))
		} else {
			redisRepo := repository.NewCacheRepository(client, logr)
			repo = redisRepo
			closeFn = func() { _ = redisRepo.Close() }
		}
	}
	return service.NewCacheService(repo, metrics, cfg.Cache.TTL, logr, repo != nil), closeFn
}

func buildHandlers(cfg *config.Config, db *sqlx.DB, cacheSvc *service.CacheService, metrics *service.MetricsService, logr *zap.Logger) router.Handlers {
	validate := validator.New()

	slots := repository.NewTimeSlotRepository(db)
	rooms := repository.NewRoomRepository(db)
	headers := repository.NewTimetableHeaderRepository(db)
	details := repository.NewTimetableDetailRepository(db)

	builder := service.NewGenerationRequestBuilder(slots, validate, cfg.Engine.AlgorithmVariants, logr)
	engineClient := service.NewEngineClient(cfg.Engine, metrics, logr)
	generation := service.NewGenerationService(builder, engineClient, logr)

	occupancy := service.NewOccupancyValidator(rooms, logr)
	timetables := service.NewTimetableService(headers, details, occupancy, db, cacheSvc, metrics, validate, logr,
		service.TimetableServiceConfig{MaxDetailRows: cfg.Store.MaxDetailRows})
	exports := service.NewExportService(timetables, logr)

	return router.Handlers{
		Timetable: handler.NewTimetableHandler(generation, timetables),
		Export:    handler.NewExportHandler(exports),
		Metrics:   handler.NewMetricsHandler(metrics, db),
	}
}
