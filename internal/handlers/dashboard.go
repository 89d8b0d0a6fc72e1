package handlers

import (
	"net/http"

	"github.com/videotube/backend/internal/middleware"
	"github.com/videotube/backend/internal/repositories"
)

// DashboardHandler serves a channel's own statistics and videos.
type DashboardHandler struct {
	Stats  StatsProvider
	Videos VideoStore
}

// ChannelStats handles GET /api/v1/dashboard/stats.
func (h DashboardHandler) ChannelStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := middleware.ActorFromContext(ctx)
	if err := requireActor(actor); err != nil {
		writeError(ctx, w, err, "channel")
		return
	}

	stats, err := h.Stats.ChannelStats(ctx, actor)
	if err != nil {
		writeError(ctx, w, err, "channel")
		return
	}
	respondOK(ctx, w, http.StatusOK, stats, "channel stats fetched successfully")
}

// ChannelVideos handles GET /api/v1/dashboard/videos. Unpublished videos are included.
func (h DashboardHandler) ChannelVideos(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := middleware.ActorFromContext(ctx)
	if err := requireActor(actor); err != nil {
		writeError(ctx, w, err, "channel")
		return
	}

	filter := repositories.VideoFilter{OwnerID: actor, IncludeUnpublished: true}
	page, err := h.Videos.List(ctx, filter, actor, sortFrom(r), windowFrom(r))
	if err != nil {
		writeError(ctx, w, err, "video")
		return
	}
	respondOK(ctx, w, http.StatusOK, page, "channel videos fetched successfully")
}
