package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/videotube/backend/internal/access"
	"github.com/videotube/backend/internal/middleware"
	"github.com/videotube/backend/internal/models"
	"github.com/videotube/backend/internal/validation"
)

// TweetHandler implements the tweet endpoints.
type TweetHandler struct {
	Tweets  TweetStore
	Users   UserStore
	NowFunc func() time.Time
}

type tweetRequest struct {
	Content string `json:"content" validate:"notblank,max=280"`
}

// Create handles POST /api/v1/tweets.
func (h TweetHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := middleware.ActorFromContext(ctx)
	if err := requireActor(actor); err != nil {
		writeError(ctx, w, err, "tweet")
		return
	}
	content, ok := h.content(w, r)
	if !ok {
		return
	}

	now := nowUTC(h.NowFunc)
	tweet := models.Tweet{ID: uuid.NewString(), Content: content, OwnerID: actor, CreatedAt: now, UpdatedAt: now}
	if err := h.Tweets.Create(ctx, tweet); err != nil {
		writeError(ctx, w, err, "tweet")
		return
	}

	view, err := h.Tweets.View(ctx, tweet.ID, actor)
	if err != nil {
		writeError(ctx, w, err, "tweet")
		return
	}
	respondOK(ctx, w, http.StatusCreated, view, "tweet created successfully")
}

// ListForUser handles GET /api/v1/tweets/user/{userId}.
func (h TweetHandler) ListForUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, err := pathID(r, "userId")
	if err != nil {
		writeError(ctx, w, err, "user")
		return
	}
	if _, err := h.Users.FindByID(ctx, userID); err != nil {
		writeError(ctx, w, err, "user")
		return
	}

	page, err := h.Tweets.ListForOwner(ctx, userID, middleware.ActorFromContext(ctx), sortFrom(r), windowFrom(r))
	if err != nil {
		writeError(ctx, w, err, "tweet")
		return
	}
	respondOK(ctx, w, http.StatusOK, page, "tweets fetched successfully")
}

// Update handles PATCH /api/v1/tweets/{tweetId}.
func (h TweetHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tweet, ok := h.owned(w, r)
	if !ok {
		return
	}
	content, ok := h.content(w, r)
	if !ok {
		return
	}

	updated, err := h.Tweets.Update(ctx, tweet.ID, content)
	if err != nil {
		writeError(ctx, w, err, "tweet")
		return
	}
	respondOK(ctx, w, http.StatusOK, updated, "tweet updated successfully")
}

// Delete handles DELETE /api/v1/tweets/{tweetId}.
func (h TweetHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tweet, ok := h.owned(w, r)
	if !ok {
		return
	}
	if err := h.Tweets.Delete(ctx, tweet.ID); err != nil {
		writeError(ctx, w, err, "tweet")
		return
	}
	respondOK(ctx, w, http.StatusOK, struct{}{}, "tweet deleted successfully")
}

func (h TweetHandler) owned(w http.ResponseWriter, r *http.Request) (models.Tweet, bool) {
	ctx := r.Context()
	actor := middleware.ActorFromContext(ctx)
	if err := requireActor(actor); err != nil {
		writeError(ctx, w, err, "tweet")
		return models.Tweet{}, false
	}
	id, err := pathID(r, "tweetId")
	if err != nil {
		writeError(ctx, w, err, "tweet")
		return models.Tweet{}, false
	}
	tweet, err := h.Tweets.FindByID(ctx, id)
	if err != nil {
		writeError(ctx, w, err, "tweet")
		return models.Tweet{}, false
	}
	if err := access.Check(actor, "tweet", tweet); err != nil {
		writeError(ctx, w, err, "tweet")
		return models.Tweet{}, false
	}
	return tweet, true
}

func (h TweetHandler) content(w http.ResponseWriter, r *http.Request) (string, bool) {
	ctx := r.Context()
	var req tweetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, w, err, "tweet")
		return "", false
	}
	if err := validation.Struct(req); err != nil {
		writeError(ctx, w, err, "tweet")
		return "", false
	}
	return strings.TrimSpace(req.Content), true
}
