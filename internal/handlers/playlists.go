package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/videotube/backend/internal/access"
	"github.com/videotube/backend/internal/apperr"
	"github.com/videotube/backend/internal/middleware"
	"github.com/videotube/backend/internal/models"
	"github.com/videotube/backend/internal/query"
	"github.com/videotube/backend/internal/repositories"
	"github.com/videotube/backend/internal/validation"
)

// PlaylistHandler implements the playlist endpoints.
type PlaylistHandler struct {
	Playlists PlaylistStore
	Videos    VideoStore
	Users     UserStore
	NowFunc   func() time.Time
}

type createPlaylistRequest struct {
	Name        string `json:"name" validate:"notblank,max=120"`
	Description string `json:"description" validate:"max=2000"`
}

type updatePlaylistRequest struct {
	Name        *string `json:"name" validate:"omitnil,notblank,max=120"`
	Description *string `json:"description" validate:"omitnil,max=2000"`
}

type playlistDetail struct {
	models.PlaylistView
	Videos query.Page[models.VideoView] `json:"videos"`
}

// Create handles POST /api/v1/playlists.
func (h PlaylistHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := middleware.ActorFromContext(ctx)
	if err := requireActor(actor); err != nil {
		writeError(ctx, w, err, "playlist")
		return
	}

	var req createPlaylistRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, w, err, "playlist")
		return
	}
	if err := validation.Struct(req); err != nil {
		writeError(ctx, w, err, "playlist")
		return
	}

	now := nowUTC(h.NowFunc)
	playlist := models.Playlist{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		OwnerID:     actor,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := h.Playlists.Create(ctx, playlist); err != nil {
		writeError(ctx, w, err, "playlist")
		return
	}
	respondOK(ctx, w, http.StatusCreated, playlist, "playlist created successfully")
}

// Get handles GET /api/v1/playlists/{playlistId}. The playlist carries its
// owner, totals and one page of its published videos.
func (h PlaylistHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r, "playlistId")
	if err != nil {
		writeError(ctx, w, err, "playlist")
		return
	}

	view, err := h.Playlists.View(ctx, id)
	if err != nil {
		writeError(ctx, w, err, "playlist")
		return
	}
	videos, err := h.Playlists.Videos(ctx, id, middleware.ActorFromContext(ctx), windowFrom(r))
	if err != nil {
		writeError(ctx, w, err, "playlist")
		return
	}
	respondOK(ctx, w, http.StatusOK, playlistDetail{PlaylistView: view, Videos: videos}, "playlist fetched successfully")
}

// ListForUser handles GET /api/v1/playlists/user/{userId}.
func (h PlaylistHandler) ListForUser(w http.ResponseWriter, r *http.Request) {
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

	page, err := h.Playlists.ListForOwner(ctx, userID, sortFrom(r), windowFrom(r))
	if err != nil {
		writeError(ctx, w, err, "playlist")
		return
	}
	respondOK(ctx, w, http.StatusOK, page, "playlists fetched successfully")
}

// Update handles PATCH /api/v1/playlists/{playlistId}.
func (h PlaylistHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	playlist, ok := h.owned(w, r)
	if !ok {
		return
	}

	var req updatePlaylistRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, w, err, "playlist")
		return
	}
	if err := validation.Struct(req); err != nil {
		writeError(ctx, w, err, "playlist")
		return
	}
	if req.Name == nil && req.Description == nil {
		writeError(ctx, w, apperr.Validation(validation.InvalidRequest, "name or description is required"), "playlist")
		return
	}

	updated, err := h.Playlists.Update(ctx, playlist.ID, repositories.PlaylistPatch{
		Name:        trimmed(req.Name),
		Description: trimmed(req.Description),
	})
	if err != nil {
		writeError(ctx, w, err, "playlist")
		return
	}
	respondOK(ctx, w, http.StatusOK, updated, "playlist updated successfully")
}

// Delete handles DELETE /api/v1/playlists/{playlistId}.
func (h PlaylistHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	playlist, ok := h.owned(w, r)
	if !ok {
		return
	}
	if err := h.Playlists.Delete(ctx, playlist.ID); err != nil {
		writeError(ctx, w, err, "playlist")
		return
	}
	respondOK(ctx, w, http.StatusOK, struct{}{}, "playlist deleted successfully")
}

// AddVideo handles PATCH /api/v1/playlists/add/{videoId}/{playlistId}.
func (h PlaylistHandler) AddVideo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	playlist, video, ok := h.entry(w, r)
	if !ok {
		return
	}
	if !video.IsPublished && video.OwnerID != playlist.OwnerID {
		writeError(ctx, w, apperr.NotFound("video not found"), "video")
		return
	}

	if err := h.Playlists.AddVideo(ctx, playlist.ID, video.ID); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			writeError(ctx, w, apperr.Conflict("video is already in the playlist"), "playlist")
			return
		}
		writeError(ctx, w, err, "playlist")
		return
	}
	h.respondView(w, r, playlist.ID, "video added to playlist")
}

// RemoveVideo handles PATCH /api/v1/playlists/remove/{videoId}/{playlistId}.
func (h PlaylistHandler) RemoveVideo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	playlist, video, ok := h.entry(w, r)
	if !ok {
		return
	}

	if err := h.Playlists.RemoveVideo(ctx, playlist.ID, video.ID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			writeError(ctx, w, apperr.NotFound("video is not in the playlist"), "playlist")
			return
		}
		writeError(ctx, w, err, "playlist")
		return
	}
	h.respondView(w, r, playlist.ID, "video removed from playlist")
}

func (h PlaylistHandler) respondView(w http.ResponseWriter, r *http.Request, id, message string) {
	ctx := r.Context()
	view, err := h.Playlists.View(ctx, id)
	if err != nil {
		writeError(ctx, w, err, "playlist")
		return
	}
	respondOK(ctx, w, http.StatusOK, view, message)
}

// entry resolves the playlist and video of an add or remove request. The
// playlist must belong to the caller.
func (h PlaylistHandler) entry(w http.ResponseWriter, r *http.Request) (models.Playlist, models.Video, bool) {
	ctx := r.Context()
	playlist, ok := h.owned(w, r)
	if !ok {
		return models.Playlist{}, models.Video{}, false
	}
	videoID, err := pathID(r, "videoId")
	if err != nil {
		writeError(ctx, w, err, "video")
		return models.Playlist{}, models.Video{}, false
	}
	video, err := h.Videos.FindByID(ctx, videoID)
	if err != nil {
		writeError(ctx, w, err, "video")
		return models.Playlist{}, models.Video{}, false
	}
	return playlist, video, true
}

func (h PlaylistHandler) owned(w http.ResponseWriter, r *http.Request) (models.Playlist, bool) {
	ctx := r.Context()
	actor := middleware.ActorFromContext(ctx)
	if err := requireActor(actor); err != nil {
		writeError(ctx, w, err, "playlist")
		return models.Playlist{}, false
	}
	id, err := pathID(r, "playlistId")
	if err != nil {
		writeError(ctx, w, err, "playlist")
		return models.Playlist{}, false
	}
	playlist, err := h.Playlists.FindByID(ctx, id)
	if err != nil {
		writeError(ctx, w, err, "playlist")
		return models.Playlist{}, false
	}
	if err := access.Check(actor, "playlist", playlist); err != nil {
		writeError(ctx, w, err, "playlist")
		return models.Playlist{}, false
	}
	return playlist, true
}
