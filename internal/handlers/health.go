package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/videotube/backend/internal/apperr"
)

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler responds with service health information.
type HealthHandler struct {
	Database Pinger
	Media    interface{ State() string }
}

type healthStatus struct {
	Status   string `json:"status"`
	Database string `json:"database,omitempty"`
	Media    string `json:"media,omitempty"`
}

// Handle implements GET /api/v1/healthcheck.
func (h HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	status := healthStatus{Status: "ok"}

	if h.Database != nil {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := h.Database.Ping(pingCtx); err != nil {
			writeError(ctx, w, apperr.Dependency("database is unreachable", err), "database")
			return
		}
		status.Database = "ok"
	}
	if h.Media != nil {
		status.Media = h.Media.State()
	}

	respondOK(ctx, w, http.StatusOK, status, "ok")
}
