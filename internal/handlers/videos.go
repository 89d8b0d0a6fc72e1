package handlers

import (
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/videotube/backend/internal/access"
	"github.com/videotube/backend/internal/apperr"
	"github.com/videotube/backend/internal/logging"
	"github.com/videotube/backend/internal/media"
	"github.com/videotube/backend/internal/middleware"
	"github.com/videotube/backend/internal/models"
	"github.com/videotube/backend/internal/repositories"
	"github.com/videotube/backend/internal/validation"
)

// VideoHandler implements the video endpoints.
type VideoHandler struct {
	Videos   VideoStore
	Uploader MediaUploader
	Janitor  MediaJanitor
	Stats    StatsProvider

	UploadDir      string
	MaxUploadBytes int64
	NowFunc        func() time.Time
}

type publishVideoRequest struct {
	Title       string `json:"title" validate:"notblank,max=200"`
	Description string `json:"description" validate:"notblank"`
}

type updateVideoRequest struct {
	Title       *string `json:"title" validate:"omitnil,notblank,max=200"`
	Description *string `json:"description" validate:"omitnil,notblank"`
}

// List handles GET /api/v1/videos.
func (h VideoHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	filter := repositories.VideoFilter{Query: strings.TrimSpace(q.Get("query"))}
	if userID := strings.TrimSpace(q.Get("userId")); userID != "" {
		if err := validation.ID("userId", userID); err != nil {
			writeError(ctx, w, err, "user")
			return
		}
		filter.OwnerID = strings.ToLower(userID)
	}

	page, err := h.Videos.List(ctx, filter, middleware.ActorFromContext(ctx), sortFrom(r), windowFrom(r))
	if err != nil {
		writeError(ctx, w, err, "video")
		return
	}
	respondOK(ctx, w, http.StatusOK, page, "videos fetched successfully")
}

// Publish handles POST /api/v1/videos.
func (h VideoHandler) Publish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)
	actor := middleware.ActorFromContext(ctx)
	if err := requireActor(actor); err != nil {
		writeError(ctx, w, err, "video")
		return
	}

	up := uploads{dir: h.UploadDir, maxBytes: h.MaxUploadBytes}
	if err := up.parse(w, r); err != nil {
		writeError(ctx, w, err, "video")
		return
	}
	defer cleanup(r)

	req := publishVideoRequest{
		Title:       strings.TrimSpace(r.FormValue("title")),
		Description: strings.TrimSpace(r.FormValue("description")),
	}
	if err := validation.Struct(req); err != nil {
		writeError(ctx, w, err, "video")
		return
	}

	videoPath, err := up.save(r, "videoFile")
	if err != nil {
		writeError(ctx, w, err, "video")
		return
	}
	thumbPath, err := up.save(r, "thumbnail")
	if err != nil {
		media.Discard(ctx, videoPath)
		writeError(ctx, w, err, "video")
		return
	}
	if videoPath == "" || thumbPath == "" {
		media.Discard(ctx, videoPath)
		media.Discard(ctx, thumbPath)
		writeError(ctx, w, apperr.Validation(validation.InvalidRequest, "videoFile and thumbnail are required"), "video")
		return
	}

	videoAsset, err := storeUpload(ctx, h.Uploader, videoPath, media.KindVideo, "video file")
	if err != nil {
		media.Discard(ctx, thumbPath)
		writeError(ctx, w, err, "video")
		return
	}
	thumbAsset, err := storeUpload(ctx, h.Uploader, thumbPath, media.KindImage, "thumbnail")
	if err != nil {
		discardStored(ctx, h.Janitor, videoAsset.URL)
		writeError(ctx, w, err, "video")
		return
	}

	now := nowUTC(h.NowFunc)
	video := models.Video{
		ID:          uuid.NewString(),
		VideoFile:   videoAsset.URL,
		Thumbnail:   thumbAsset.URL,
		Title:       req.Title,
		Description: req.Description,
		Duration:    videoAsset.Duration,
		IsPublished: true,
		OwnerID:     actor,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := h.Videos.Create(ctx, video); err != nil {
		discardStored(ctx, h.Janitor, videoAsset.URL, thumbAsset.URL)
		writeError(ctx, w, err, "video")
		return
	}
	h.invalidate(actor)

	logger.Info("video published", "video_id", video.ID, "duration", video.Duration)
	respondOK(ctx, w, http.StatusCreated, video, "video published successfully")
}

// Get handles GET /api/v1/videos/{videoId}. Every successful read counts as a
// view and, for signed-in callers, updates their watch history.
func (h VideoHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := pathID(r, "videoId")
	if err != nil {
		writeError(ctx, w, err, "video")
		return
	}
	actor := middleware.ActorFromContext(ctx)

	video, err := h.Videos.View(ctx, id, actor)
	if err != nil {
		writeError(ctx, w, err, "video")
		return
	}
	if !video.IsPublished && video.OwnerID != actor {
		writeError(ctx, w, apperr.NotFound("video not found"), "video")
		return
	}

	if err := h.Videos.RecordView(ctx, id, actor); err != nil {
		writeError(ctx, w, err, "video")
		return
	}
	video.Views++
	respondOK(ctx, w, http.StatusOK, video, "video fetched successfully")
}

// Update handles PATCH /api/v1/videos/{videoId}. It accepts either a JSON body
// or a multipart form carrying an optional replacement thumbnail.
func (h VideoHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	video, ok := h.owned(w, r)
	if !ok {
		return
	}

	var (
		req       updateVideoRequest
		thumbPath string
	)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		up := uploads{dir: h.UploadDir, maxBytes: h.MaxUploadBytes}
		if err := up.parse(w, r); err != nil {
			writeError(ctx, w, err, "video")
			return
		}
		defer cleanup(r)

		req.Title = formValue(r, "title")
		req.Description = formValue(r, "description")
		path, err := up.save(r, "thumbnail")
		if err != nil {
			writeError(ctx, w, err, "video")
			return
		}
		thumbPath = path
	} else if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, w, err, "video")
		return
	}

	if err := validation.Struct(req); err != nil {
		media.Discard(ctx, thumbPath)
		writeError(ctx, w, err, "video")
		return
	}
	if req.Title == nil && req.Description == nil && thumbPath == "" {
		writeError(ctx, w, apperr.Validation(validation.InvalidRequest, "title, description or thumbnail is required"), "video")
		return
	}

	patch := repositories.VideoPatch{Title: trimmed(req.Title), Description: trimmed(req.Description)}
	if thumbPath != "" {
		asset, err := storeUpload(ctx, h.Uploader, thumbPath, media.KindImage, "thumbnail")
		if err != nil {
			writeError(ctx, w, err, "video")
			return
		}
		patch.Thumbnail = &asset.URL
	}

	updated, err := h.Videos.Update(ctx, video.ID, patch)
	if err != nil {
		if patch.Thumbnail != nil {
			discardStored(ctx, h.Janitor, *patch.Thumbnail)
		}
		writeError(ctx, w, err, "video")
		return
	}
	if patch.Thumbnail != nil {
		discardStored(ctx, h.Janitor, video.Thumbnail)
	}
	respondOK(ctx, w, http.StatusOK, updated, "video updated successfully")
}

// Delete handles DELETE /api/v1/videos/{videoId}.
func (h VideoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	video, ok := h.owned(w, r)
	if !ok {
		return
	}

	if err := h.Videos.Delete(ctx, video.ID); err != nil {
		writeError(ctx, w, err, "video")
		return
	}
	discardStored(ctx, h.Janitor, video.VideoFile, video.Thumbnail)
	h.invalidate(video.OwnerID)
	respondOK(ctx, w, http.StatusOK, struct{}{}, "video deleted successfully")
}

// TogglePublish handles PATCH /api/v1/videos/toggle/publish/{videoId}.
func (h VideoHandler) TogglePublish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	video, ok := h.owned(w, r)
	if !ok {
		return
	}

	updated, err := h.Videos.TogglePublished(ctx, video.ID)
	if err != nil {
		writeError(ctx, w, err, "video")
		return
	}
	h.invalidate(video.OwnerID)
	respondOK(ctx, w, http.StatusOK, map[string]bool{"isPublished": updated.IsPublished}, "video publish status toggled")
}

// owned loads the video named by the path and checks the caller owns it.
func (h VideoHandler) owned(w http.ResponseWriter, r *http.Request) (models.Video, bool) {
	ctx := r.Context()
	actor := middleware.ActorFromContext(ctx)
	if err := requireActor(actor); err != nil {
		writeError(ctx, w, err, "video")
		return models.Video{}, false
	}
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
	if err := access.Check(actor, "video", video); err != nil {
		logging.FromContext(ctx).Warn("video mutation forbidden", "video_id", id, "owner_id", video.OwnerID)
		writeError(ctx, w, err, "video")
		return models.Video{}, false
	}
	return video, true
}

func (h VideoHandler) invalidate(channelID string) {
	if h.Stats != nil {
		h.Stats.Invalidate(channelID)
	}
}

func formValue(r *http.Request, key string) *string {
	if _, ok := r.MultipartForm.Value[key]; !ok {
		return nil
	}
	v := r.FormValue(key)
	return &v
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
