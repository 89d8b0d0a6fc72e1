package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/videotube/backend/internal/apperr"
	"github.com/videotube/backend/internal/locks"
	"github.com/videotube/backend/internal/logging"
	"github.com/videotube/backend/internal/media"
	"github.com/videotube/backend/internal/query"
	"github.com/videotube/backend/internal/repositories"
	"github.com/videotube/backend/internal/response"
	"github.com/videotube/backend/internal/validation"
)

const (
	defaultMaxUpload = 512 << 20
	multipartMemory  = 32 << 20
	lockWait         = 5 * time.Second
)

func respondOK(ctx context.Context, w http.ResponseWriter, status int, data any, message string) {
	response.OK(ctx, w, status, data, message)
}

// writeError renders err with the failure envelope. Repository sentinels are
// translated using what to name the missing or conflicting record.
func writeError(ctx context.Context, w http.ResponseWriter, err error, what string) {
	response.Error(ctx, w, translate(err, what))
}

func translate(err error, what string) error {
	var appErr *apperr.Error
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, repositories.ErrNotFound):
		return apperr.NotFound(what + " not found")
	case errors.Is(err, repositories.ErrConflict):
		return apperr.Conflict(what + " already exists")
	case errors.Is(err, repositories.ErrInvalidReference):
		return apperr.Validation(validation.InvalidRequest, "invalid "+what+" reference")
	case errors.Is(err, locks.ErrLockTimeout):
		return apperr.Conflict("another request for this " + what + " is in progress")
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests), errors.Is(err, media.ErrStoreUnavailable):
		return apperr.Dependency("media storage is unavailable", err)
	default:
		return err
	}
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Validation(validation.InvalidRequest, "request body is required")
		}
		return apperr.Validation(validation.InvalidRequest, "malformed request body")
	}
	return nil
}

func pathParam(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}

func pathID(r *http.Request, name string) (string, error) {
	id := strings.TrimSpace(pathParam(r, name))
	if err := validation.ID(name, id); err != nil {
		return "", err
	}
	return strings.ToLower(id), nil
}

func windowFrom(r *http.Request) query.Window {
	q := r.URL.Query()
	return query.NewWindow(q.Get("page"), q.Get("limit"))
}

func sortFrom(r *http.Request) query.Sort {
	q := r.URL.Query()
	return query.ParseSort(q.Get("sortBy"), q.Get("sortType"))
}

func requireActor(actor string) error {
	if actor == "" {
		return apperr.Unauthenticated("unauthorized request")
	}
	return nil
}

// uploads reads multipart form files into temporary files under dir.
type uploads struct {
	dir      string
	maxBytes int64
}

func (u uploads) parse(w http.ResponseWriter, r *http.Request) error {
	limit := u.maxBytes
	if limit <= 0 {
		limit = defaultMaxUpload
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperr.Validation(validation.InvalidRequest, fmt.Sprintf("upload exceeds %d bytes", limit))
		}
		return apperr.Validation(validation.InvalidRequest, "malformed multipart form")
	}
	return nil
}

// save copies the form file named field to a temporary file and returns its path.
// A missing file yields an empty path and no error.
func (u uploads) save(r *http.Request, field string) (string, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return "", nil
	}
	if err != nil {
		return "", apperr.Validation(validation.InvalidRequest, field+" could not be read")
	}
	defer file.Close()

	dir := u.dir
	if dir == "" {
		dir = os.TempDir()
	}
	ext := strings.ToLower(filepath.Ext(header.Filename))
	tmp, err := os.CreateTemp(dir, "upload-*"+ext)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}

	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		media.Discard(r.Context(), tmp.Name())
		return "", fmt.Errorf("copy upload %s: %w", field, err)
	}
	if err := tmp.Close(); err != nil {
		media.Discard(r.Context(), tmp.Name())
		return "", fmt.Errorf("close upload %s: %w", field, err)
	}
	return tmp.Name(), nil
}

// cleanup removes the multipart spool files of r.
func cleanup(r *http.Request) {
	if r.MultipartForm == nil {
		return
	}
	if err := r.MultipartForm.RemoveAll(); err != nil {
		logging.FromContext(r.Context()).Warn("remove multipart files", "error", err)
	}
}

// storeUpload uploads localPath and converts failures into dependency errors.
func storeUpload(ctx context.Context, uploader MediaUploader, localPath string, kind media.Kind, field string) (media.Asset, error) {
	if uploader == nil {
		media.Discard(ctx, localPath)
		return media.Asset{}, apperr.Dependency("media storage is unavailable", media.ErrStoreUnavailable)
	}
	asset, err := uploader.Upload(ctx, localPath, kind)
	if err != nil {
		return media.Asset{}, apperr.Dependency("failed to upload "+field, err)
	}
	return asset, nil
}

// discardStored queues stored objects for removal, logging when the queue refuses them.
func discardStored(ctx context.Context, janitor MediaJanitor, locations ...string) {
	if janitor == nil {
		return
	}
	if err := janitor.Enqueue(ctx, locations...); err != nil {
		logging.FromContext(ctx).Warn("queue media removal", "locations", locations, "error", err)
	}
}

// withLock runs fn while holding key, or directly when no locker is configured.
func withLock(ctx context.Context, locker Locker, key string, fn func() error) error {
	if locker == nil {
		return fn()
	}
	lockCtx, cancel := context.WithTimeout(ctx, lockWait)
	defer cancel()

	unlock, err := locker.Lock(lockCtx, key)
	if err != nil {
		return err
	}
	defer unlock()
	return fn()
}

func nowUTC(now func() time.Time) time.Time {
	if now != nil {
		return now()
	}
	return time.Now().UTC()
}
