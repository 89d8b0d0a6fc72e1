package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/videotube/backend/internal/apperr"
	"github.com/videotube/backend/internal/logging"
	"github.com/videotube/backend/internal/response"
)

// AccessTokenCookie is the cookie holding the access token.
const AccessTokenCookie = "accessToken"

type actorKey struct{}

// TokenVerifier resolves an access token to the user id it was issued for.
type TokenVerifier interface {
	VerifyAccess(token string) (string, error)
}

// Authenticate resolves the caller from the access token cookie or bearer header.
// When required is false, requests without a valid token continue anonymously.
func Authenticate(verifier TokenVerifier, required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token := accessToken(r)
			if token == "" {
				if required {
					response.Error(ctx, w, apperr.Unauthenticated("unauthorized request"))
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			userID, err := verifier.VerifyAccess(token)
			if err != nil {
				if required {
					logging.FromContext(ctx).Warn("access token rejected", "error", err)
					response.Error(ctx, w, apperr.Unauthenticated("invalid access token"))
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			ctx = WithActor(ctx, userID)
			ctx = logging.With(ctx, "user_id", userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithActor stores the authenticated user id on the context.
func WithActor(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, actorKey{}, userID)
}

// ActorFromContext returns the authenticated user id, or "" for anonymous requests.
func ActorFromContext(ctx context.Context) string {
	userID, _ := ctx.Value(actorKey{}).(string)
	return userID
}

func accessToken(r *http.Request) string {
	if cookie, err := r.Cookie(AccessTokenCookie); err == nil && strings.TrimSpace(cookie.Value) != "" {
		return strings.TrimSpace(cookie.Value)
	}
	header := r.Header.Get("Authorization")
	if scheme, token, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	return ""
}
