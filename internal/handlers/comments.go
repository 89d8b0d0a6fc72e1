package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/videotube/backend/internal/access"
	"github.com/videotube/backend/internal/apperr"
	"github.com/videotube/backend/internal/logging"
	"github.com/videotube/backend/internal/middleware"
	"github.com/videotube/backend/internal/models"
	"github.com/videotube/backend/internal/validation"
)

// CommentHandler implements the comment endpoints.
type CommentHandler struct {
	Comments CommentStore
	Videos   VideoStore
	NowFunc  func() time.Time
}

type commentRequest struct {
	Content string `json:"content" validate:"notblank,max=2000"`
}

// List handles GET /api/v1/comments/{videoId}.
func (h CommentHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := middleware.ActorFromContext(ctx)
	video, ok := h.visibleVideo(w, r, actor)
	if !ok {
		return
	}

	page, err := h.Comments.ListForVideo(ctx, video.ID, actor, sortFrom(r), windowFrom(r))
	if err != nil {
		writeError(ctx, w, err, "comment")
		return
	}
	respondOK(ctx, w, http.StatusOK, page, "comments fetched successfully")
}

// Add handles POST /api/v1/comments/{videoId}.
func (h CommentHandler) Add(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := middleware.ActorFromContext(ctx)
	if err := requireActor(actor); err != nil {
		writeError(ctx, w, err, "comment")
		return
	}
	video, ok := h.visibleVideo(w, r, actor)
	if !ok {
		return
	}

	content, ok := h.content(w, r)
	if !ok {
		return
	}

	now := nowUTC(h.NowFunc)
	comment := models.Comment{
		ID:        uuid.NewString(),
		Content:   content,
		VideoID:   video.ID,
		OwnerID:   actor,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.Comments.Create(ctx, comment); err != nil {
		writeError(ctx, w, err, "comment")
		return
	}

	view, err := h.Comments.View(ctx, comment.ID, actor)
	if err != nil {
		writeError(ctx, w, err, "comment")
		return
	}
	respondOK(ctx, w, http.StatusCreated, view, "comment added successfully")
}

// Update handles PATCH /api/v1/comments/c/{commentId}. The author and the
// owner of the commented video may edit.
func (h CommentHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := middleware.ActorFromContext(ctx)
	comment, ok := h.load(w, r, actor)
	if !ok {
		return
	}
	if !h.authorize(w, r, actor, comment, "update") {
		return
	}

	content, ok := h.content(w, r)
	if !ok {
		return
	}
	updated, err := h.Comments.Update(ctx, comment.ID, content)
	if err != nil {
		writeError(ctx, w, err, "comment")
		return
	}
	respondOK(ctx, w, http.StatusOK, updated, "comment updated successfully")
}

// Delete handles DELETE /api/v1/comments/c/{commentId}. The author and the
// owner of the commented video may delete.
func (h CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := middleware.ActorFromContext(ctx)
	comment, ok := h.load(w, r, actor)
	if !ok {
		return
	}
	if !h.authorize(w, r, actor, comment, "deletion") {
		return
	}

	if err := h.Comments.Delete(ctx, comment.ID); err != nil {
		writeError(ctx, w, err, "comment")
		return
	}
	respondOK(ctx, w, http.StatusOK, struct{}{}, "comment deleted successfully")
}

func (h CommentHandler) load(w http.ResponseWriter, r *http.Request, actor string) (models.Comment, bool) {
	ctx := r.Context()
	if err := requireActor(actor); err != nil {
		writeError(ctx, w, err, "comment")
		return models.Comment{}, false
	}
	id, err := pathID(r, "commentId")
	if err != nil {
		writeError(ctx, w, err, "comment")
		return models.Comment{}, false
	}
	comment, err := h.Comments.FindByID(ctx, id)
	if err != nil {
		writeError(ctx, w, err, "comment")
		return models.Comment{}, false
	}
	return comment, true
}

// visibleVideo resolves the path video, hiding unpublished videos from everyone but their owner.
func (h CommentHandler) visibleVideo(w http.ResponseWriter, r *http.Request, actor string) (models.Video, bool) {
	ctx := r.Context()
	id, err := pathID(r, "videoId")
	if err != nil {
		writeError(ctx, w, err, "video")
		return models.Video{}, false
	}
	video, err := h.Videos.FindByID(ctx, id)
	if err != nil {
		writeError(ctx, w, err, "video")
		return models.Video{}, false
	}
	if !video.IsPublished && video.OwnerID != actor {
		writeError(ctx, w, apperr.NotFound("video not found"), "video")
		return models.Video{}, false
	}
	return video, true
}

func (h CommentHandler) content(w http.ResponseWriter, r *http.Request) (string, bool) {
	ctx := r.Context()
	var req commentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, w, err, "comment")
		return "", false
	}
	if err := validation.Struct(req); err != nil {
		writeError(ctx, w, err, "comment")
		return "", false
	}
	return strings.TrimSpace(req.Content), true
}

// authorize lets the comment's author or the owner of its video through.
func (h CommentHandler) authorize(w http.ResponseWriter, r *http.Request, actor string, comment models.Comment, op string) bool {
	ctx := r.Context()
	var also []access.Owned
	if comment.OwnerID != actor {
		video, err := h.Videos.FindByID(ctx, comment.VideoID)
		if err != nil {
			writeError(ctx, w, err, "video")
			return false
		}
		also = append(also, video)
	}
	if err := access.Check(actor, "comment", comment, also...); err != nil {
		logging.FromContext(ctx).Warn("comment "+op+" forbidden", "comment_id", comment.ID)
		writeError(ctx, w, err, "comment")
		return false
	}
	return true
}
