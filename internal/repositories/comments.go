package repositories

import (
	"context"

	"github.com/videotube/backend/internal/db"
	"github.com/videotube/backend/internal/models"
	"github.com/videotube/backend/internal/query"
)

const commentReturning = `id, content, video_id, owner_id, created_at, updated_at`

// PostgresCommentRepository provides PostgreSQL-backed persistence for comments.
type PostgresCommentRepository struct {
	pool db.Pool
}

// NewPostgresCommentRepository constructs a comment repository backed by PostgreSQL.
func NewPostgresCommentRepository(pool db.Pool) *PostgresCommentRepository {
	return &PostgresCommentRepository{pool: pool}
}

// Create stores a comment. A missing video yields ErrNotFound.
func (r *PostgresCommentRepository) Create(ctx context.Context, comment models.Comment) error {
	return execOne(ctx, r.pool, "insert comment", `
        INSERT INTO comments (id, content, video_id, owner_id, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, comment.ID, comment.Content, comment.VideoID, comment.OwnerID, comment.CreatedAt, comment.UpdatedAt)
}

// FindByID fetches the bare comment record.
func (r *PostgresCommentRepository) FindByID(ctx context.Context, id string) (models.Comment, error) {
	return queryOne[models.Comment](ctx, r.pool, "select comment",
		`SELECT `+commentReturning+` FROM comments WHERE id = $1`, id)
}

// View fetches one comment enriched for actor.
func (r *PostgresCommentRepository) View(ctx context.Context, id, actor string) (models.CommentView, error) {
	return viewOne[models.CommentView](ctx, r.pool, CommentView, actor, id, "select comment view")
}

// ListForVideo returns one page of a video's comments enriched for actor.
func (r *PostgresCommentRepository) ListForVideo(ctx context.Context, videoID, actor string, sort query.Sort, window query.Window) (query.Page[models.CommentView], error) {
	return fetchPage[models.CommentView](ctx, r.pool, CommentView, query.Request{
		Actor:  actor,
		Filter: query.Filter{}.Eq("video_id", videoID),
		Sort:   sort,
		Window: window,
	}, "comments", "totalComments", "list comments")
}

// Update replaces the content and returns the stored comment.
func (r *PostgresCommentRepository) Update(ctx context.Context, id, content string) (models.Comment, error) {
	return queryOne[models.Comment](ctx, r.pool, "update comment", `
        UPDATE comments SET content = $2, updated_at = NOW()
        WHERE id = $1
        RETURNING `+commentReturning, id, content)
}

// Delete removes a comment together with its likes.
func (r *PostgresCommentRepository) Delete(ctx context.Context, id string) error {
	return execOne(ctx, r.pool, "delete comment", `DELETE FROM comments WHERE id = $1`, id)
}
