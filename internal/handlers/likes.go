package handlers

import (
	"net/http"

	"github.com/videotube/backend/internal/apperr"
	"github.com/videotube/backend/internal/middleware"
	"github.com/videotube/backend/internal/models"
)

// LikeHandler implements the like toggles and the liked-videos listing.
type LikeHandler struct {
	Likes    LikeStore
	Videos   VideoStore
	Comments CommentStore
	Tweets   TweetStore
	Locks    Locker
}

type likeResponse struct {
	IsLiked    bool  `json:"isLiked"`
	LikesCount int64 `json:"likesCount"`
}

// ToggleVideo handles POST /api/v1/likes/toggle/v/{videoId}.
func (h LikeHandler) ToggleVideo(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, models.LikeTargetVideo, "videoId")
}

// ToggleComment handles POST /api/v1/likes/toggle/c/{commentId}.
func (h LikeHandler) ToggleComment(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, models.LikeTargetComment, "commentId")
}

// ToggleTweet handles POST /api/v1/likes/toggle/t/{tweetId}.
func (h LikeHandler) ToggleTweet(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, models.LikeTargetTweet, "tweetId")
}

func (h LikeHandler) toggle(w http.ResponseWriter, r *http.Request, kind models.LikeTargetKind, param string) {
	ctx := r.Context()
	what := string(kind)
	actor := middleware.ActorFromContext(ctx)
	if err := requireActor(actor); err != nil {
		writeError(ctx, w, err, what)
		return
	}
	id, err := pathID(r, param)
	if err != nil {
		writeError(ctx, w, err, what)
		return
	}
	if err := h.exists(r, kind, id, actor); err != nil {
		writeError(ctx, w, err, what)
		return
	}

	target := models.LikeTarget{Kind: kind, ID: id}
	var resp likeResponse
	err = withLock(ctx, h.Locks, "like:"+what+":"+id+":"+actor, func() error {
		liked, err := h.Likes.Toggle(ctx, actor, target)
		if err != nil {
			return err
		}
		count, err := h.Likes.Count(ctx, target)
		if err != nil {
			return err
		}
		resp = likeResponse{IsLiked: liked, LikesCount: count}
		return nil
	})
	if err != nil {
		writeError(ctx, w, err, what)
		return
	}

	message := what + " unliked"
	if resp.IsLiked {
		message = what + " liked"
	}
	respondOK(ctx, w, http.StatusOK, resp, message)
}

// exists reports NotFound for targets that are missing or, for unpublished videos, hidden from actor.
func (h LikeHandler) exists(r *http.Request, kind models.LikeTargetKind, id, actor string) error {
	ctx := r.Context()
	switch kind {
	case models.LikeTargetVideo:
		video, err := h.Videos.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if !video.IsPublished && video.OwnerID != actor {
			return apperr.NotFound("video not found")
		}
		return nil
	case models.LikeTargetComment:
		_, err := h.Comments.FindByID(ctx, id)
		return err
	case models.LikeTargetTweet:
		_, err := h.Tweets.FindByID(ctx, id)
		return err
	default:
		return apperr.Validation("unknown like target")
	}
}

// LikedVideos handles GET /api/v1/likes/videos.
func (h LikeHandler) LikedVideos(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := middleware.ActorFromContext(ctx)
	if err := requireActor(actor); err != nil {
		writeError(ctx, w, err, "video")
		return
	}

	page, err := h.Likes.LikedVideos(ctx, actor, windowFrom(r))
	if err != nil {
		writeError(ctx, w, err, "video")
		return
	}
	respondOK(ctx, w, http.StatusOK, page, "liked videos fetched successfully")
}
