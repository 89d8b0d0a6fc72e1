// Package media moves uploaded files from local disk into the object store.
package media

import (
	"context"
	"errors"
	"io"
)

var (
	// ErrStoreUnavailable indicates no object store is configured.
	ErrStoreUnavailable = errors.New("media store unavailable")
	// ErrProbeUnavailable indicates the media prober is not configured.
	ErrProbeUnavailable = errors.New("media prober unavailable")
)

// Kind groups uploads by how they are stored and whether they are probed.
type Kind string

const (
	KindVideo Kind = "videos"
	KindImage Kind = "images"
)

// Asset is the stored result of an upload.
type Asset struct {
	URL      string
	Duration float64
}

// Store persists objects and removes them by the location Save returned.
type Store interface {
	Save(ctx context.Context, name string, r io.Reader, size int64, contentType string) (string, error)
	Remove(ctx context.Context, location string) error
}

// Prober reports the playback duration of a local media file in seconds.
type Prober interface {
	Duration(ctx context.Context, path string) (float64, error)
}
