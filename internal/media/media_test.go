package media

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
)

type fakeStore struct {
	mu      sync.Mutex
	saved   map[string]string
	removed []string
	saveErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{saved: make(map[string]string)}
}

func (s *fakeStore) Save(_ context.Context, name string, r io.Reader, _ int64, _ string) (string, error) {
	if s.saveErr != nil {
		return "", s.saveErr
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved[name] = string(body)
	return "https://cdn.example.com/" + name, nil
}

func (s *fakeStore) Remove(_ context.Context, location string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removed = append(s.removed, location)
	return nil
}

func (s *fakeStore) Removed() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.removed...)
}

type proberFunc func(ctx context.Context, path string) (float64, error)

func (f proberFunc) Duration(ctx context.Context, path string) (float64, error) { return f(ctx, path) }

func writeTemp(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return p
}

func assertRemoved(t *testing.T, p string) {
	t.Helper()
	if _, err := os.Stat(p); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected %s to be removed, stat err=%v", p, err)
	}
}

func TestFFProbeDuration(t *testing.T) {
	probe := NewFFProbe("ffprobe", time.Second)
	probe.Run = func(ctx context.Context, binary string, args ...string) ([]byte, error) {
		want := []string{"-v", "error", "-show_entries", "format=duration", "-of", "json", "/tmp/clip.mp4"}
		if binary != "ffprobe" || strings.Join(args, " ") != strings.Join(want, " ") {
			t.Fatalf("unexpected invocation %s %v", binary, args)
		}
		return []byte(`{"format":{"duration":"61.250000"}}`), nil
	}

	got, err := probe.Duration(context.Background(), "/tmp/clip.mp4")
	if err != nil {
		t.Fatalf("Duration() error = %v", err)
	}
	if got != 61.25 {
		t.Fatalf("expected 61.25 got %v", got)
	}
}

func TestFFProbeDurationErrors(t *testing.T) {
	tests := []struct {
		name string
		out  string
		err  error
	}{
		{"command failure", "", errors.New("exit status 1")},
		{"malformed json", "{", nil},
		{"missing duration", `{"format":{}}`, nil},
		{"non numeric", `{"format":{"duration":"N/A"}}`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			probe := NewFFProbe("", 0)
			probe.Run = func(context.Context, string, ...string) ([]byte, error) {
				return []byte(tt.out), tt.err
			}
			if _, err := probe.Duration(context.Background(), "x.mp4"); err == nil {
				t.Fatal("expected error")
			}
		})
	}

	var nilProbe *FFProbe
	if _, err := nilProbe.Duration(context.Background(), "x.mp4"); !errors.Is(err, ErrProbeUnavailable) {
		t.Fatalf("expected ErrProbeUnavailable, got %v", err)
	}
}

func TestUploaderStoresVideoWithDuration(t *testing.T) {
	store := newFakeStore()
	prober := proberFunc(func(context.Context, string) (float64, error) { return 42.5, nil })
	uploader := NewUploader(store, prober, DefaultBreakerConfig())

	local := writeTemp(t, "clip.MP4", "video-bytes")

	asset, err := uploader.Upload(context.Background(), local, KindVideo)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if asset.Duration != 42.5 {
		t.Fatalf("expected probed duration, got %v", asset.Duration)
	}
	if !strings.HasPrefix(asset.URL, "https://cdn.example.com/videos/") || !strings.HasSuffix(asset.URL, ".mp4") {
		t.Fatalf("unexpected asset url %q", asset.URL)
	}
	assertRemoved(t, local)
}

func TestUploaderSkipsProbeForImages(t *testing.T) {
	store := newFakeStore()
	prober := proberFunc(func(context.Context, string) (float64, error) {
		t.Fatal("images must not be probed")
		return 0, nil
	})
	uploader := NewUploader(store, prober, DefaultBreakerConfig())

	local := writeTemp(t, "avatar.png", "png")
	asset, err := uploader.Upload(context.Background(), local, KindImage)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if asset.Duration != 0 || !strings.Contains(asset.URL, "/images/") {
		t.Fatalf("unexpected asset %+v", asset)
	}
	assertRemoved(t, local)
}

func TestUploaderRemovesTempFileOnFailure(t *testing.T) {
	tests := []struct {
		name   string
		store  *fakeStore
		prober Prober
	}{
		{"store failure", &fakeStore{saveErr: errors.New("bucket unavailable")}, nil},
		{"probe failure", newFakeStore(), proberFunc(func(context.Context, string) (float64, error) { return 0, errors.New("corrupt") })},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uploader := NewUploader(tt.store, tt.prober, DefaultBreakerConfig())
			local := writeTemp(t, "clip.mp4", "bytes")

			if _, err := uploader.Upload(context.Background(), local, KindVideo); err == nil {
				t.Fatal("expected upload error")
			}
			assertRemoved(t, local)
		})
	}
}

func TestUploaderBreakerOpensAfterFailures(t *testing.T) {
	store := &fakeStore{saveErr: errors.New("timeout")}
	uploader := NewUploader(store, nil, BreakerConfig{MaxRequests: 1, Interval: time.Minute, Timeout: time.Minute, FailureThreshold: 2})

	for i := 0; i < 2; i++ {
		_, _ = uploader.Upload(context.Background(), writeTemp(t, "a.png", "x"), KindImage)
	}

	_, err := uploader.Upload(context.Background(), writeTemp(t, "b.png", "x"), KindImage)
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("expected open circuit, got %v", err)
	}
	if uploader.State() != "open" {
		t.Fatalf("expected open state, got %s", uploader.State())
	}
}

func TestJanitorRemovesQueuedLocationsBeforeShutdown(t *testing.T) {
	store := newFakeStore()
	janitor := NewJanitor(store, JanitorConfig{QueueSize: 8, Workers: 2}, nil)

	if err := janitor.Enqueue(context.Background(), "https://cdn.example.com/a.png", "", "https://cdn.example.com/b.mp4"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := janitor.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	if got := store.Removed(); len(got) != 2 {
		t.Fatalf("expected two removals, got %v", got)
	}

	if err := janitor.Enqueue(context.Background(), "late"); !errors.Is(err, ErrJanitorClosed) {
		t.Fatalf("expected ErrJanitorClosed, got %v", err)
	}
	if err := janitor.Shutdown(ctx); err != nil {
		t.Fatalf("second shutdown: %v", err)
	}
}
