package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hszk-dev/tripreel/internal/config"
	"github.com/hszk-dev/tripreel/internal/domain/repository"
	"github.com/hszk-dev/tripreel/internal/highlight"
	"github.com/hszk-dev/tripreel/internal/infrastructure/postgres"
	"github.com/hszk-dev/tripreel/internal/infrastructure/queue"
	"github.com/hszk-dev/tripreel/internal/infrastructure/storage"
	"github.com/hszk-dev/tripreel/internal/infrastructure/youtube"
	"github.com/hszk-dev/tripreel/internal/usecase"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Initialize infrastructure clients
	pgCfg := postgres.DefaultClientConfig(cfg.Database.DSN())
	pgCfg.AutoMigrate = cfg.Database.AutoMigrate
	pgClient, err := postgres.NewClient(ctx, pgCfg)
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	defer pgClient.Close()
	prometheus.MustRegister(pgClient.PoolCollector())
	logger.Info("connected to PostgreSQL")

	storageClient, err := storage.NewClient(ctx, storage.ClientConfig{
		Endpoint:     cfg.MinIO.Endpoint,
		AccessKey:    cfg.MinIO.AccessKey,
		SecretKey:    cfg.MinIO.SecretKey,
		Bucket:       cfg.MinIO.Bucket,
		UseSSL:       cfg.MinIO.UseSSL,
		CreateBucket: cfg.MinIO.CreateBucket,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to MinIO: %w", err)
	}
	logger.Info("connected to MinIO", slog.String("bucket", storageClient.Bucket()))

	queueCfg := queue.DefaultClientConfig(cfg.RabbitMQ.URL())
	queueCfg.Prefetch = cfg.Worker.Prefetch
	queueClient, err := queue.NewClient(ctx, queueCfg)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	defer queueClient.Close()
	logger.Info("connected to RabbitMQ")

	ytClient, err := youtube.NewClient(ctx, youtube.ClientConfig{
		APIKey:  cfg.YouTube.APIKey,
		Timeout: cfg.YouTube.Timeout,
	})
	if err != nil {
		return fmt.Errorf("failed to create YouTube client: %w", err)
	}
	if !ytClient.Enabled() {
		logger.Warn("YOUTUBE_API_KEY is not set, every export will fail")
	}

	planner := highlight.NewPlanner(highlight.Config{
		ClipSeconds:    cfg.Export.ClipSeconds,
		MaxReelSeconds: cfg.Export.MaxReelSeconds,
	})
	worker := usecase.NewExportWorker(
		postgres.NewExportRepository(pgClient.Pool()),
		storageClient,
		ytClient,
		planner,
		usecase.ExportWorkerConfig{MaxRetries: cfg.Worker.MaxRetries},
	)

	metricsSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Worker.MetricsPort),
		Handler: promhttp.Handler(),
	}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", slog.String("error", err.Error()))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Tracks in-flight tasks so shutdown can wait for them.
	var wg sync.WaitGroup

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting worker, consuming export tasks")
		err := queueClient.ConsumeExportTasks(ctx, func(task repository.ExportTask) error {
			wg.Add(1)
			defer wg.Done()

			logger.Info("processing export",
				slog.String("export_id", task.ExportID.String()),
				slog.Int("retry_count", task.RetryCount),
			)

			if err := worker.ProcessTask(ctx, task); err != nil {
				logger.Error("export processing failed",
					slog.String("export_id", task.ExportID.String()),
					slog.Int("retry_count", task.RetryCount),
					slog.String("error", err.Error()),
				)
				return err
			}
			return nil
		})
		if err != nil && ctx.Err() == nil {
			errCh <- fmt.Errorf("consumer error: %w", err)
		}
	}()

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down worker", slog.String("signal", sig.String()))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Worker.ShutdownTimeout)
	defer shutdownCancel()

	// Stop taking new deliveries.
	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("all in-flight exports completed")
	case <-shutdownCtx.Done():
		logger.Warn("shutdown timeout exceeded, some exports may not have completed")
	}

	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("metrics server shutdown", slog.String("error", err.Error()))
	}

	logger.Info("worker stopped")
	return nil
}
