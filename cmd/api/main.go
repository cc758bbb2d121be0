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

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/hszk-dev/tripreel/internal/api/handler"
	"github.com/hszk-dev/tripreel/internal/api/middleware"
	"github.com/hszk-dev/tripreel/internal/config"
	"github.com/hszk-dev/tripreel/internal/infrastructure/cache"
	"github.com/hszk-dev/tripreel/internal/infrastructure/llm"
	"github.com/hszk-dev/tripreel/internal/infrastructure/places"
	"github.com/hszk-dev/tripreel/internal/infrastructure/postgres"
	"github.com/hszk-dev/tripreel/internal/infrastructure/queue"
	"github.com/hszk-dev/tripreel/internal/infrastructure/storage"
	"github.com/hszk-dev/tripreel/internal/infrastructure/youtube"
	"github.com/hszk-dev/tripreel/internal/ranking"
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

	checks := map[string]handler.Pinger{}

	// Optional shared cache tier
	var remote cache.Store
	if cfg.Redis.Enabled() {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		remote = cache.NewRedisStore(redisClient)
		checks["redis"] = handler.PingFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
		logger.Info("connected to Redis", slog.String("addr", cfg.Redis.Addr))
	}
	caches := cache.NewRegistry(registryConfig(cfg.Cache), remote)

	// Upstream APIs
	ytClient, err := youtube.NewClient(ctx, youtube.ClientConfig{
		APIKey:     cfg.YouTube.APIKey,
		Timeout:    cfg.YouTube.Timeout,
		MaxResults: cfg.YouTube.MaxResults,
	})
	if err != nil {
		return fmt.Errorf("failed to create YouTube client: %w", err)
	}

	llmClient := llm.NewClient(llm.ClientConfig{
		APIKey:  cfg.OpenAI.APIKey,
		Model:   cfg.OpenAI.Model,
		BaseURL: cfg.OpenAI.BaseURL,
		Timeout: cfg.OpenAI.Timeout,
	})

	placesClient, err := places.NewClient(places.ClientConfig{
		APIKey:  cfg.Places.APIKey,
		Timeout: cfg.Places.Timeout,
	})
	if err != nil {
		return fmt.Errorf("failed to create places client: %w", err)
	}

	logger.Info("upstreams configured",
		slog.Bool("youtube", ytClient.Enabled()),
		slog.Bool("openai", llmClient.Enabled()),
		slog.Bool("places", placesClient.Enabled()),
	)

	// Export pipeline
	pgCfg := postgres.DefaultClientConfig(cfg.Database.DSN())
	pgCfg.AutoMigrate = cfg.Database.AutoMigrate
	pgClient, err := postgres.NewClient(ctx, pgCfg)
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	defer pgClient.Close()
	prometheus.MustRegister(pgClient.PoolCollector())
	checks["postgres"] = pgClient
	logger.Info("connected to PostgreSQL")

	storageClient, err := storage.NewClient(ctx, storage.ClientConfig{
		Endpoint:       cfg.MinIO.Endpoint,
		PublicEndpoint: cfg.MinIO.PublicEndpoint,
		AccessKey:      cfg.MinIO.AccessKey,
		SecretKey:      cfg.MinIO.SecretKey,
		Bucket:         cfg.MinIO.Bucket,
		UseSSL:         cfg.MinIO.UseSSL,
		CreateBucket:   cfg.MinIO.CreateBucket,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to MinIO: %w", err)
	}
	checks["minio"] = storageClient
	logger.Info("connected to MinIO", slog.String("bucket", storageClient.Bucket()))

	queueClient, err := queue.NewClient(ctx, queue.DefaultClientConfig(cfg.RabbitMQ.URL()))
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	defer queueClient.Close()
	logger.Info("connected to RabbitMQ")

	// Services
	videoSvc := usecase.NewVideoService(
		caches,
		ytClient,
		ranking.NewFilter(llmClient),
		llm.NewAnalyzer(llmClient),
		placesClient,
		usecase.DefaultVideoServiceConfig(),
	)
	exportSvc := usecase.NewExportService(
		postgres.NewExportRepository(pgClient.Pool()),
		storageClient,
		queueClient,
		usecase.ExportServiceConfig{DownloadURLExpiry: cfg.Export.DownloadURLExpiry},
	)

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = middleware.NewRateLimiter(middleware.RateLimiterConfig{
			RPS:   cfg.RateLimit.RPS,
			Burst: cfg.RateLimit.Burst,
		}, nil)
	}

	r := setupRouter(logger, routes{
		video:   handler.NewVideoHandler(videoSvc),
		place:   handler.NewPlaceHandler(videoSvc),
		cache:   handler.NewCacheHandler(videoSvc),
		export:  handler.NewExportHandler(exportSvc),
		checks:  checks,
		limiter: limiter,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server error: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("shutting down server", slog.String("signal", sig.String()))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

type routes struct {
	video   *handler.VideoHandler
	place   *handler.PlaceHandler
	cache   *handler.CacheHandler
	export  *handler.ExportHandler
	checks  map[string]handler.Pinger
	limiter *middleware.RateLimiter
}

func setupRouter(logger *slog.Logger, rt routes) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))

	r.Get("/health", handler.Health)
	r.Get("/ready", handler.Ready(rt.checks, 2*time.Second))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		if rt.limiter != nil {
			r.Use(middleware.RateLimit(rt.limiter, logger))
		}

		r.Get("/videos/search", rt.video.Search)
		r.Get("/videos/{id}/related", rt.video.Related)
		r.Post("/videos/{id}/analysis", rt.video.Analyze)
		r.Get("/cities/{city}/videos", rt.video.CityCollection)
		r.Get("/places", rt.place.Get)

		r.Post("/exports", rt.export.Create)
		r.Get("/exports/{id}", rt.export.Get)
		r.Get("/exports/{id}/reel", rt.export.Reel)

		r.Get("/cache/stats", rt.cache.Stats)
		r.Delete("/cache", rt.cache.Clear)
	})

	return r
}

func registryConfig(c config.CacheConfig) cache.RegistryConfig {
	return cache.RegistryConfig{
		Videos:      cache.Config{Name: cache.NameVideos, MaxEntries: c.VideosMaxEntries, TTL: c.VideosTTL},
		Collections: cache.Config{Name: cache.NameCollections, MaxEntries: c.CollectionsMaxEntries, TTL: c.CollectionsTTL},
		Analyses:    cache.Config{Name: cache.NameAnalyses, MaxEntries: c.AnalysesMaxEntries, TTL: c.AnalysesTTL},
		Places:      cache.Config{Name: cache.NamePlaces, MaxEntries: c.PlacesMaxEntries, TTL: c.PlacesTTL},
	}
}
