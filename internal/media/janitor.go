package media

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// JanitorConfig controls the concurrency characteristics of the janitor.
type JanitorConfig struct {
	QueueSize int
	Workers   int
}

// Janitor asynchronously removes replaced or orphaned objects from the store.
type Janitor struct {
	store  Store
	logger *slog.Logger

	jobs   chan string
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once

	mu     sync.RWMutex
	closed bool
}

// ErrJanitorClosed is returned when enqueuing after Shutdown.
var ErrJanitorClosed = errors.New("media janitor closed")

// NewJanitor starts a background worker pool that removes stored objects.
func NewJanitor(store Store, cfg JanitorConfig, logger *slog.Logger) *Janitor {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	j := &Janitor{
		store:  store,
		logger: logger,
		jobs:   make(chan string, cfg.QueueSize),
		ctx:    ctx,
		cancel: cancel,
	}

	j.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go j.worker()
	}

	return j
}

// Enqueue schedules removal of the given locations. Empty locations are skipped.
func (j *Janitor) Enqueue(ctx context.Context, locations ...string) error {
	for _, location := range locations {
		if strings.TrimSpace(location) == "" {
			continue
		}
		if err := j.enqueue(ctx, location); err != nil {
			return err
		}
	}
	return nil
}

func (j *Janitor) enqueue(ctx context.Context, location string) error {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return ErrJanitorClosed
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-j.ctx.Done():
		return ErrJanitorClosed
	case j.jobs <- location:
		return nil
	}
}

// Shutdown stops accepting work and waits for queued removals to drain.
func (j *Janitor) Shutdown(ctx context.Context) error {
	j.once.Do(func() {
		j.cancel()
		j.mu.Lock()
		j.closed = true
		close(j.jobs)
		j.mu.Unlock()
	})

	done := make(chan struct{})
	go func() {
		j.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (j *Janitor) worker() {
	defer j.wg.Done()

	for location := range j.jobs {
		j.remove(location)
	}
}

func (j *Janitor) remove(location string) {
	if j.store == nil {
		j.logger.Error("media janitor missing store", "location", location)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := j.store.Remove(ctx, location); err != nil {
		j.logger.Error("remove stored media", "location", location, "error", err)
		return
	}
	j.logger.Debug("stored media removed", "location", location)
}
