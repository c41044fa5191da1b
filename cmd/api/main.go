package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-hris/filing-tracker-go/internal/config"
	"github.com/cmlabs-hris/filing-tracker-go/internal/domain/payroll"
	appHTTP "github.com/cmlabs-hris/filing-tracker-go/internal/handler/http"
	"github.com/cmlabs-hris/filing-tracker-go/internal/pkg/cron"
	"github.com/cmlabs-hris/filing-tracker-go/internal/pkg/database"
	"github.com/cmlabs-hris/filing-tracker-go/internal/pkg/extraction"
	"github.com/cmlabs-hris/filing-tracker-go/internal/pkg/metrics"
	"github.com/cmlabs-hris/filing-tracker-go/internal/pkg/sse"
	"github.com/cmlabs-hris/filing-tracker-go/internal/pkg/storage"
	"github.com/cmlabs-hris/filing-tracker-go/internal/repository/cache"
	"github.com/cmlabs-hris/filing-tracker-go/internal/repository/postgresql"
	"github.com/cmlabs-hris/filing-tracker-go/internal/service/bulk"
	"github.com/cmlabs-hris/filing-tracker-go/internal/service/filter"
	payrollService "github.com/cmlabs-hris/filing-tracker-go/internal/service/payroll"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL(), database.PoolOptions{
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
	})
	if err != nil {
		return fmt.Errorf("error connecting to database: %w", err)
	}
	defer db.Close()

	if err := database.Migrate(ctx, db); err != nil {
		return fmt.Errorf("error applying migrations: %w", err)
	}

	companyRepo := postgresql.NewCompanyRepository(db)
	var recordRepo payroll.RecordRepository = postgresql.NewRecordRepository(db)
	if cfg.Redis.Addr != "" {
		client, err := cache.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return fmt.Errorf("error connecting to redis: %w", err)
		}
		defer client.Close()
		recordRepo = cache.NewRecordCache(recordRepo, client, cfg.Redis.CacheTTL)
		slog.Info("Record cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
	}

	fileStorage, err := storage.New(ctx, storage.Config{
		Driver:    cfg.Storage.Type,
		LocalPath: cfg.Storage.LocalPath,
		BaseURL:   cfg.Storage.BaseURL,
		S3: storage.S3Config{
			Region:          cfg.Storage.S3.Region,
			Bucket:          cfg.Storage.S3.Bucket,
			Endpoint:        cfg.Storage.S3.Endpoint,
			AccessKeyID:     cfg.Storage.S3.AccessKeyID,
			SecretAccessKey: cfg.Storage.S3.SecretAccessKey,
			PathStyle:       cfg.Storage.S3.PathStyle,
			Prefix:          cfg.Storage.S3.Prefix,
		},
	})
	if err != nil {
		return fmt.Errorf("error initializing storage: %w", err)
	}

	recordService := payrollService.NewPayrollService(recordRepo, companyRepo, fileStorage)
	engine := filter.NewEngine(16)
	hub := sse.NewHub(0)

	registry := bulk.NewRegistry()
	orchestrator := bulk.NewOrchestrator(cfg.Bulk.WorkerLimit, registry, hub, metrics.NewMetrics(nil))
	extractionClient := extraction.NewClient(cfg.Extraction.BaseURL, cfg.Extraction.Timeout)
	poller := extraction.NewPoller(extractionClient, cfg.Extraction.PollInterval)
	bulkService := bulk.NewService(orchestrator, recordRepo, recordService, fileStorage, extractionClient, poller)

	scheduler := cron.NewScheduler(ctx)
	scheduler.AddJob("prune-operations", cfg.Bulk.OperationRetention/4, func(ctx context.Context) error {
		pruned := registry.Prune(time.Now().Add(-cfg.Bulk.OperationRetention))
		if pruned > 0 {
			slog.Info("Pruned finished operations", "count", pruned)
		}
		return nil
	})
	scheduler.Start()

	router := appHTTP.NewRouter(
		appHTTP.RouterOptions{
			AllowedOrigins: cfg.CORS.AllowedOrigins,
			Env:            cfg.App.Env,
			LogLevel:       cfg.SlogLevel(),
		},
		appHTTP.NewRecordHandler(recordService, engine),
		appHTTP.NewOperationHandler(bulkService, registry, recordService, engine, hub),
	)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("Server starting", "port", cfg.App.Port, "env", cfg.App.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	scheduler.Stop()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown failed", "error", err)
	}
	if err := orchestrator.Shutdown(shutdownCtx); err != nil {
		slog.Warn("Bulk operations did not finish before timeout", "error", err)
	}

	slog.Info("Server stopped")
	return nil
}
