// Package response writes the JSON envelope shared by every endpoint.
package response

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/videotube/backend/internal/apperr"
	"github.com/videotube/backend/internal/logging"
)

// Envelope is the success body.
type Envelope struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

// Failure is the error body.
type Failure struct {
	StatusCode int      `json:"statusCode"`
	Success    bool     `json:"success"`
	Message    string   `json:"message"`
	Errors     []string `json:"errors"`
}

// OK writes a success envelope.
func OK(ctx context.Context, w http.ResponseWriter, status int, data any, message string) {
	writeJSON(ctx, w, status, Envelope{StatusCode: status, Data: data, Message: message, Success: true})
}

// Error writes the failure envelope for err. Unknown errors become a generic
// internal error; the cause is logged but never returned.
func Error(ctx context.Context, w http.ResponseWriter, err error) {
	appErr := apperr.As(err)
	status := appErr.Kind.Status()

	logger := logging.FromContext(ctx)
	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("request failed", "status", status, "kind", appErr.Kind.String(), "error", err)
	default:
		logger.Warn("request rejected", "status", status, "kind", appErr.Kind.String(), "message", appErr.Message)
	}

	details := appErr.Details
	if details == nil {
		details = []string{}
	}
	writeJSON(ctx, w, status, Failure{StatusCode: status, Success: false, Message: appErr.Message, Errors: details})
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.FromContext(ctx).Error("encode response body", "status", status, "error", err)
	}
}
