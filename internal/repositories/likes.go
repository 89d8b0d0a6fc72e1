package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/videotube/backend/internal/db"
	"github.com/videotube/backend/internal/models"
	"github.com/videotube/backend/internal/query"
)

// PostgresLikeRepository provides PostgreSQL-backed persistence for likes.
type PostgresLikeRepository struct {
	pool db.Pool
}

// NewPostgresLikeRepository constructs a like repository backed by PostgreSQL.
func NewPostgresLikeRepository(pool db.Pool) *PostgresLikeRepository {
	return &PostgresLikeRepository{pool: pool}
}

func likeColumn(kind models.LikeTargetKind) (string, error) {
	switch kind {
	case models.LikeTargetVideo:
		return "video_id", nil
	case models.LikeTargetComment:
		return "comment_id", nil
	case models.LikeTargetTweet:
		return "tweet_id", nil
	default:
		return "", fmt.Errorf("%w: like target %q", ErrInvalidReference, kind)
	}
}

// Toggle likes target for actor when absent, unlikes it when present, and reports
// whether the like exists afterwards.
func (r *PostgresLikeRepository) Toggle(ctx context.Context, actor string, target models.LikeTarget) (bool, error) {
	column, err := likeColumn(target.Kind)
	if err != nil {
		return false, err
	}
	now := time.Now().UTC()
	return toggleRow(ctx, r.pool, "toggle like",
		`DELETE FROM likes WHERE liked_by = $1 AND `+column+` = $2 RETURNING id`,
		`INSERT INTO likes (id, liked_by, `+column+`, created_at, updated_at)
         VALUES ($1, $2, $3, $4, $4)
         ON CONFLICT DO NOTHING`,
		[]any{actor, target.ID},
		[]any{uuid.NewString(), actor, target.ID, now},
	)
}

// Count returns the number of likes on target.
func (r *PostgresLikeRepository) Count(ctx context.Context, target models.LikeTarget) (int64, error) {
	column, err := likeColumn(target.Kind)
	if err != nil {
		return 0, err
	}
	return count(ctx, r.pool, "count likes", `SELECT COUNT(*) FROM likes WHERE `+column+` = $1`, target.ID)
}

// LikedVideos lists the videos actor liked, most recently liked first.
func (r *PostgresLikeRepository) LikedVideos(ctx context.Context, actor string, window query.Window) (query.Page[models.VideoView], error) {
	return fetchPage[models.VideoView](ctx, r.pool, LikedVideoView, query.Request{
		Actor:  actor,
		Filter: query.Filter{}.Where("l.liked_by = ?", actor),
		Sort:   query.Sort{Desc: true},
		Window: window,
	}, "likedVideos", "totalLikedVideos", "list liked videos")
}
