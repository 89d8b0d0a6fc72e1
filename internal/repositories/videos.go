package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/videotube/backend/internal/db"
	"github.com/videotube/backend/internal/models"
	"github.com/videotube/backend/internal/query"
)

const videoReturning = `id, video_file, thumbnail, title, description, duration, views, is_published, owner_id, created_at, updated_at`

// VideoFilter narrows a video listing.
type VideoFilter struct {
	OwnerID            string
	Query              string
	IncludeUnpublished bool
}

func (f VideoFilter) build() query.Filter {
	filter := query.Filter{}
	if f.OwnerID != "" {
		filter = filter.Eq("owner_id", f.OwnerID)
	}
	if !f.IncludeUnpublished {
		filter = filter.Where(query.Alias + ".is_published")
	}
	return filter.Search(f.Query, "title", "description")
}

// VideoPatch carries the optional fields of a video update. Nil leaves a field unchanged.
type VideoPatch struct {
	Title       *string
	Description *string
	Thumbnail   *string
}

// PostgresVideoRepository provides PostgreSQL-backed persistence for videos.
type PostgresVideoRepository struct {
	pool db.Pool
}

// NewPostgresVideoRepository constructs a video repository backed by PostgreSQL.
func NewPostgresVideoRepository(pool db.Pool) *PostgresVideoRepository {
	return &PostgresVideoRepository{pool: pool}
}

// Create stores a new video record.
func (r *PostgresVideoRepository) Create(ctx context.Context, video models.Video) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO videos (id, video_file, thumbnail, title, description, duration, views, is_published, owner_id, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
    `, video.ID, video.VideoFile, video.Thumbnail, video.Title, video.Description, video.Duration,
		video.Views, video.IsPublished, video.OwnerID, video.CreatedAt, video.UpdatedAt)
	return classify(err, "insert video")
}

// FindByID fetches the bare video record.
func (r *PostgresVideoRepository) FindByID(ctx context.Context, id string) (models.Video, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Video{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `SELECT `+videoReturning+` FROM videos WHERE id = $1`, id)
	if err != nil {
		return models.Video{}, classify(err, "select video")
	}
	video, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[models.Video])
	if err != nil {
		return models.Video{}, classify(err, "scan video")
	}
	return video, nil
}

// View fetches one video enriched for actor.
func (r *PostgresVideoRepository) View(ctx context.Context, id, actor string) (models.VideoView, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.VideoView{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	video, err := query.FetchOne[models.VideoView](ctx, conn, VideoView, actor, query.Filter{}.Eq("id", id))
	if err != nil {
		return models.VideoView{}, classify(err, "select video view")
	}
	return video, nil
}

// List returns one page of videos matching filter, enriched for actor.
func (r *PostgresVideoRepository) List(ctx context.Context, filter VideoFilter, actor string, sort query.Sort, window query.Window) (query.Page[models.VideoView], error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return query.Page[models.VideoView]{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	page, err := query.Fetch[models.VideoView](ctx, conn, VideoView, query.Request{
		Actor:  actor,
		Filter: filter.build(),
		Sort:   sort,
		Window: window,
	})
	if err != nil {
		return query.Page[models.VideoView]{}, classify(err, "list videos")
	}
	return page.WithLabels("videos", "totalVideos"), nil
}

// Update applies patch and returns the stored video.
func (r *PostgresVideoRepository) Update(ctx context.Context, id string, patch VideoPatch) (models.Video, error) {
	return r.updateReturning(ctx, `
        UPDATE videos
        SET title = COALESCE($2, title),
            description = COALESCE($3, description),
            thumbnail = COALESCE($4, thumbnail),
            updated_at = NOW()
        WHERE id = $1
        RETURNING `+videoReturning, id, patch.Title, patch.Description, patch.Thumbnail)
}

// TogglePublished flips the published flag and returns the stored video.
func (r *PostgresVideoRepository) TogglePublished(ctx context.Context, id string) (models.Video, error) {
	return r.updateReturning(ctx, `
        UPDATE videos
        SET is_published = NOT is_published, updated_at = NOW()
        WHERE id = $1
        RETURNING `+videoReturning, id)
}

func (r *PostgresVideoRepository) updateReturning(ctx context.Context, sql string, args ...any) (models.Video, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Video{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, sql, args...)
	if err != nil {
		return models.Video{}, classify(err, "update video")
	}
	video, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[models.Video])
	if err != nil {
		return models.Video{}, classify(err, "update video")
	}
	return video, nil
}

// Delete removes a video. Likes, comments, playlist entries and history rows cascade.
func (r *PostgresVideoRepository) Delete(ctx context.Context, id string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `DELETE FROM videos WHERE id = $1`, id)
	if err != nil {
		return classify(err, "delete video")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordView increments the view counter and, for a signed-in viewer, upserts their watch history.
func (r *PostgresVideoRepository) RecordView(ctx context.Context, videoID, viewer string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	return pgx.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE videos SET views = views + 1 WHERE id = $1`, videoID)
		if err != nil {
			return classify(err, "increment views")
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		if viewer == "" {
			return nil
		}
		_, err = tx.Exec(ctx, `
            INSERT INTO watch_history (user_id, video_id, watched_at)
            VALUES ($1, $2, NOW())
            ON CONFLICT (user_id, video_id) DO UPDATE SET watched_at = EXCLUDED.watched_at
        `, viewer, videoID)
		return classify(err, "record watch history")
	})
}

// ChannelStats aggregates the dashboard totals of a channel.
func (r *PostgresVideoRepository) ChannelStats(ctx context.Context, channelID string) (models.ChannelStats, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.ChannelStats{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var stats models.ChannelStats
	err = conn.QueryRow(ctx, `
        SELECT
            (SELECT COUNT(*) FROM videos v WHERE v.owner_id = $1),
            (SELECT COALESCE(SUM(v.views), 0)::BIGINT FROM videos v WHERE v.owner_id = $1),
            (SELECT COUNT(*) FROM subscriptions s WHERE s.channel_id = $1),
            (SELECT COUNT(*) FROM likes l JOIN videos v ON v.id = l.video_id WHERE v.owner_id = $1)
    `, channelID).Scan(&stats.TotalVideos, &stats.TotalViews, &stats.TotalSubscribers, &stats.TotalLikes)
	if err != nil {
		return models.ChannelStats{}, classify(err, "select channel stats")
	}
	return stats, nil
}
