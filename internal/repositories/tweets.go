package repositories

import (
	"context"

	"github.com/videotube/backend/internal/db"
	"github.com/videotube/backend/internal/models"
	"github.com/videotube/backend/internal/query"
)

const tweetReturning = `id, content, owner_id, created_at, updated_at`

// PostgresTweetRepository provides PostgreSQL-backed persistence for tweets.
type PostgresTweetRepository struct {
	pool db.Pool
}

// NewPostgresTweetRepository constructs a tweet repository backed by PostgreSQL.
func NewPostgresTweetRepository(pool db.Pool) *PostgresTweetRepository {
	return &PostgresTweetRepository{pool: pool}
}

// Create stores a tweet.
func (r *PostgresTweetRepository) Create(ctx context.Context, tweet models.Tweet) error {
	return execOne(ctx, r.pool, "insert tweet", `
        INSERT INTO tweets (id, content, owner_id, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5)
    `, tweet.ID, tweet.Content, tweet.OwnerID, tweet.CreatedAt, tweet.UpdatedAt)
}

// FindByID fetches the bare tweet record.
func (r *PostgresTweetRepository) FindByID(ctx context.Context, id string) (models.Tweet, error) {
	return queryOne[models.Tweet](ctx, r.pool, "select tweet",
		`SELECT `+tweetReturning+` FROM tweets WHERE id = $1`, id)
}

// View fetches one tweet enriched for actor.
func (r *PostgresTweetRepository) View(ctx context.Context, id, actor string) (models.TweetView, error) {
	return viewOne[models.TweetView](ctx, r.pool, TweetView, actor, id, "select tweet view")
}

// ListForOwner returns one page of a user's tweets enriched for actor.
func (r *PostgresTweetRepository) ListForOwner(ctx context.Context, ownerID, actor string, sort query.Sort, window query.Window) (query.Page[models.TweetView], error) {
	return fetchPage[models.TweetView](ctx, r.pool, TweetView, query.Request{
		Actor:  actor,
		Filter: query.Filter{}.Eq("owner_id", ownerID),
		Sort:   sort,
		Window: window,
	}, "tweets", "totalTweets", "list tweets")
}

// Update replaces the content and returns the stored tweet.
func (r *PostgresTweetRepository) Update(ctx context.Context, id, content string) (models.Tweet, error) {
	return queryOne[models.Tweet](ctx, r.pool, "update tweet", `
        UPDATE tweets SET content = $2, updated_at = NOW()
        WHERE id = $1
        RETURNING `+tweetReturning, id, content)
}

// Delete removes a tweet together with its likes.
func (r *PostgresTweetRepository) Delete(ctx context.Context, id string) error {
	return execOne(ctx, r.pool, "delete tweet", `DELETE FROM tweets WHERE id = $1`, id)
}
