package media

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/videotube/backend/internal/logging"
)

// BreakerConfig controls when object store writes stop being attempted.
type BreakerConfig struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

// DefaultBreakerConfig trips after five consecutive failures and probes again after 30s.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{MaxRequests: 1, Interval: time.Minute, Timeout: 30 * time.Second, FailureThreshold: 5}
}

// Uploader moves local temporary files into the object store.
type Uploader struct {
	store   Store
	prober  Prober
	breaker *gobreaker.CircuitBreaker[string]
}

// NewUploader builds an Uploader. prober may be nil, in which case videos get a zero duration.
func NewUploader(store Store, prober Prober, cfg BreakerConfig) *Uploader {
	settings := gobreaker.Settings{
		Name:        "media-store",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
	}
	return &Uploader{
		store:   store,
		prober:  prober,
		breaker: gobreaker.NewCircuitBreaker[string](settings),
	}
}

// State reports the breaker state for health output.
func (u *Uploader) State() string {
	return u.breaker.State().String()
}

// Upload stores the file at localPath and always removes it afterwards.
// Videos are probed for their duration before upload.
func (u *Uploader) Upload(ctx context.Context, localPath string, kind Kind) (_ Asset, err error) {
	ctx, span := logging.StartSpan(ctx, "media.upload")
	defer func() {
		span.Fail(err)
		span.End()
	}()
	defer removeTemp(ctx, localPath)

	if u == nil || u.store == nil {
		return Asset{}, ErrStoreUnavailable
	}

	var asset Asset
	if kind == KindVideo && u.prober != nil {
		asset.Duration, err = u.prober.Duration(ctx, localPath)
		if err != nil {
			return Asset{}, fmt.Errorf("probe %s: %w", filepath.Base(localPath), err)
		}
	}

	file, err := os.Open(localPath)
	if err != nil {
		return Asset{}, fmt.Errorf("open upload: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return Asset{}, fmt.Errorf("stat upload: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(localPath))
	key := path.Join(string(kind), uuid.NewString()+ext)

	asset.URL, err = u.breaker.Execute(func() (string, error) {
		return u.store.Save(ctx, key, file, info.Size(), mime.TypeByExtension(ext))
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			logging.FromContext(ctx).Warn("media store circuit open", "key", key)
		}
		return Asset{}, fmt.Errorf("store %s: %w", key, err)
	}

	logging.FromContext(ctx).Info("media uploaded", "key", key, "bytes", info.Size(), "duration", asset.Duration)
	return asset, nil
}

// Discard removes a temporary upload that will not be stored.
func Discard(ctx context.Context, localPath string) {
	removeTemp(ctx, localPath)
}

func removeTemp(ctx context.Context, localPath string) {
	if localPath == "" {
		return
	}
	if err := os.Remove(localPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.FromContext(ctx).Warn("remove temporary upload", "path", localPath, "error", err)
	}
}
