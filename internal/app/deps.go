package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/videotube/backend/internal/auth"
	"github.com/videotube/backend/internal/config"
	"github.com/videotube/backend/internal/db"
	"github.com/videotube/backend/internal/handlers"
	"github.com/videotube/backend/internal/locks"
	"github.com/videotube/backend/internal/media"
	"github.com/videotube/backend/internal/middleware"
	"github.com/videotube/backend/internal/repositories"
	"github.com/videotube/backend/internal/stats"
	"github.com/videotube/backend/internal/storage"
)

const lockPrefix = "videotube:lock:"

// buildDependencies wires together concrete implementations used by the HTTP handlers.
// The returned cleanup drains the media janitor and closes the lock backend.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config, logger *slog.Logger) (handlers.Dependencies, func(context.Context) error, error) {
	if logger == nil {
		logger = slog.Default()
	}

	store, err := newObjectStore(ctx, cfg.ObjectStore)
	if err != nil {
		return handlers.Dependencies{}, nil, err
	}
	locker, closeLocker, err := newLocker(ctx, cfg)
	if err != nil {
		return handlers.Dependencies{}, nil, err
	}

	users := repositories.NewPostgresUserRepository(pool)
	videos := repositories.NewPostgresVideoRepository(pool)
	sessions := auth.NewManager(auth.Secrets{
		Access:  []byte(cfg.AccessTokenSecret),
		Refresh: []byte(cfg.RefreshTokenSecret),
	}, cfg.AccessTokenTTL, cfg.RefreshTokenTTL, users)

	uploader := media.NewUploader(store, media.NewFFProbe(cfg.FFProbePath, cfg.FFProbeTimeout), media.DefaultBreakerConfig())
	janitor := media.NewJanitor(store, media.JanitorConfig{
		QueueSize: cfg.Janitor.QueueSize,
		Workers:   cfg.Janitor.Workers,
	}, logger)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	deps := handlers.Dependencies{
		Logger:         logger,
		Users:          users,
		Sessions:       sessions,
		Tokens:         sessions,
		Videos:         videos,
		Comments:       repositories.NewPostgresCommentRepository(pool),
		Tweets:         repositories.NewPostgresTweetRepository(pool),
		Likes:          repositories.NewPostgresLikeRepository(pool),
		Subscriptions:  repositories.NewPostgresSubscriptionRepository(pool),
		Playlists:      repositories.NewPostgresPlaylistRepository(pool),
		Uploader:       uploader,
		Janitor:        janitor,
		Stats:          stats.NewCachingProvider(videos, cfg.StatsTTL),
		Locks:          locker,
		MediaHealth:    uploader,
		AuthLimiter:    middleware.NewIPRateLimiter(authRequestsPerMinute, time.Minute, authBurst, 10*time.Minute),
		Metrics:        middleware.NewMetrics(registry),
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
		CORSOrigins:    cfg.CORSOrigins,
		UploadDir:      cfg.UploadDir,
		MaxUploadBytes: cfg.MaxUploadMB << 20,
		CookieSecure:   cfg.CookieSecure,
	}
	if pinger, ok := pool.(handlers.Pinger); ok {
		deps.Database = pinger
	}

	cleanup := func(ctx context.Context) error {
		return errors.Join(janitor.Shutdown(ctx), closeLocker())
	}
	return deps, cleanup, nil
}

const (
	authRequestsPerMinute = 20
	authBurst             = 5
)

func newObjectStore(ctx context.Context, cfg config.ObjectStoreConfig) (media.Store, error) {
	switch cfg.Driver {
	case config.MediaDriverMinio:
		return storage.NewMinioStorage(ctx, cfg)
	case config.MediaDriverS3, "":
		return storage.NewS3Storage(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown media driver %q", cfg.Driver)
	}
}

// newLocker returns a Redis-backed locker when a Redis URL is configured so
// toggles are serialised across replicas, and an in-process one otherwise.
func newLocker(ctx context.Context, cfg config.Config) (handlers.Locker, func() error, error) {
	if cfg.RedisURL == "" {
		return locks.NewLocal(), func() error { return nil }, nil
	}
	client, err := locks.Connect(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	return locks.NewRedis(client, lockPrefix, cfg.ToggleLock), client.Close, nil
}
