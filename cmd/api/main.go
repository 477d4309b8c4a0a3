package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/lessonlab/vodpipe/internal/api/handler"
	"github.com/lessonlab/vodpipe/internal/api/middleware"
	"github.com/lessonlab/vodpipe/internal/config"
	"github.com/lessonlab/vodpipe/internal/infrastructure/cache"
	"github.com/lessonlab/vodpipe/internal/infrastructure/postgres"
	"github.com/lessonlab/vodpipe/internal/infrastructure/queue"
	"github.com/lessonlab/vodpipe/internal/infrastructure/storage"
	"github.com/lessonlab/vodpipe/internal/media"
	"github.com/lessonlab/vodpipe/internal/signing"
	"github.com/lessonlab/vodpipe/internal/usecase"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := postgres.NewClient(ctx, postgres.DefaultClientConfig(cfg.Database.DSN()))
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	defer db.Close()

	store, err := storage.NewClient(ctx, storage.ClientConfig{
		Endpoint:      cfg.MinIO.Endpoint,
		AccessKey:     cfg.MinIO.AccessKey,
		SecretKey:     cfg.MinIO.SecretKey,
		Bucket:        cfg.MinIO.Bucket,
		UseSSL:        cfg.MinIO.UseSSL,
		PublicBaseURL: cfg.MinIO.PublicBaseURL,
		Concurrency:   cfg.Pipeline.UploadConcurrency,
		MaxRetries:    cfg.Pipeline.StorageMaxRetries,
		RetryBackoff:  cfg.Pipeline.StorageRetryBackoff,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to object storage: %w", err)
	}

	events, err := queue.NewClient(ctx, queue.DefaultClientConfig(cfg.RabbitMQ.URL()))
	if err != nil {
		return fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}
	defer events.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	defer redisClient.Close()
	assetCache := cache.NewRedisAssetCache(redisClient)

	signer, err := signing.NewSigner(cfg.Signing.Secret)
	if err != nil {
		return fmt.Errorf("failed to create signer: %w", err)
	}

	engineCfg := media.DefaultFFmpegConfig()
	engineCfg.SegmentDuration = cfg.Pipeline.SegmentDuration
	engine := media.NewFFmpegEngine(engineCfg, logger)

	assetRepo := postgres.NewAssetRepository(db.Pool())

	uploadSvc := usecase.NewUploadService(
		engine, store, signer, assetRepo, events, assetCache, logger,
		usecase.UploadServiceConfig{
			ScratchDir:       cfg.Pipeline.ScratchDir,
			MaxUploadBytes:   cfg.Pipeline.MaxUploadBytes,
			AllowedTypes:     usecase.DefaultAllowedTypes,
			TranscodeTimeout: cfg.Pipeline.TranscodeTimeout,
			TokenTTL:         cfg.Signing.TokenTTL,
		},
	)

	playbackCfg := usecase.DefaultPlaybackServiceConfig()
	playbackCfg.TokenTTL = cfg.Signing.TokenTTL
	playbackSvc := usecase.NewPlaybackService(signer, assetRepo, assetRepo, assetCache, logger, playbackCfg)

	r := setupRouter(logger, cfg, uploadSvc, playbackSvc, map[string]handler.Pinger{
		"postgres": db,
		"storage":  store,
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
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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

func setupRouter(
	logger *slog.Logger,
	cfg *config.Config,
	uploadSvc usecase.UploadService,
	playbackSvc usecase.PlaybackService,
	deps map[string]handler.Pinger,
) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))

	r.Get("/health", handler.Health(deps))
	r.Handle("/metrics", promhttp.Handler())

	uploadHandler := handler.NewUploadHandler(uploadSvc, cfg.Pipeline.MaxUploadBytes, logger)
	playbackHandler := handler.NewPlaybackHandler(playbackSvc, logger)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/lessons/videos", uploadHandler.Create)
		r.Get("/playback/verify", playbackHandler.Verify)
		r.Post("/playback/sign", playbackHandler.Sign)
	})

	return r
}
