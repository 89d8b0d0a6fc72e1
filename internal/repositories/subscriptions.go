package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/videotube/backend/internal/db"
	"github.com/videotube/backend/internal/models"
	"github.com/videotube/backend/internal/query"
)

// PostgresSubscriptionRepository provides PostgreSQL-backed persistence for subscriptions.
type PostgresSubscriptionRepository struct {
	pool db.Pool
}

// NewPostgresSubscriptionRepository constructs a subscription repository backed by PostgreSQL.
func NewPostgresSubscriptionRepository(pool db.Pool) *PostgresSubscriptionRepository {
	return &PostgresSubscriptionRepository{pool: pool}
}

// Toggle subscribes subscriber to channel when absent, unsubscribes when present, and
// reports whether the subscription exists afterwards.
func (r *PostgresSubscriptionRepository) Toggle(ctx context.Context, subscriber, channel string) (bool, error) {
	now := time.Now().UTC()
	return toggleRow(ctx, r.pool, "toggle subscription",
		`DELETE FROM subscriptions WHERE subscriber_id = $1 AND channel_id = $2 RETURNING id`,
		`INSERT INTO subscriptions (id, subscriber_id, channel_id, created_at, updated_at)
         VALUES ($1, $2, $3, $4, $4)
         ON CONFLICT (subscriber_id, channel_id) DO NOTHING`,
		[]any{subscriber, channel},
		[]any{uuid.NewString(), subscriber, channel, now},
	)
}

// CountSubscribers returns the number of subscribers of channel.
func (r *PostgresSubscriptionRepository) CountSubscribers(ctx context.Context, channel string) (int64, error) {
	return count(ctx, r.pool, "count subscribers", `SELECT COUNT(*) FROM subscriptions WHERE channel_id = $1`, channel)
}

// Subscribers lists the subscribers of channel, newest first by default.
func (r *PostgresSubscriptionRepository) Subscribers(ctx context.Context, channel string, sort query.Sort, window query.Window) (query.Page[models.SubscriberView], error) {
	return fetchPage[models.SubscriberView](ctx, r.pool, SubscriberView, query.Request{
		Filter: query.Filter{}.Eq("channel_id", channel),
		Sort:   sort,
		Window: window,
	}, "subscribers", "totalSubscribers", "list subscribers")
}

// SubscribedChannels lists the channels subscriber follows, each with its latest published video.
func (r *PostgresSubscriptionRepository) SubscribedChannels(ctx context.Context, subscriber string, sort query.Sort, window query.Window) (query.Page[models.SubscribedChannelView], error) {
	return fetchPage[models.SubscribedChannelView](ctx, r.pool, SubscribedChannelView, query.Request{
		Filter: query.Filter{}.Eq("subscriber_id", subscriber),
		Sort:   sort,
		Window: window,
	}, "channels", "totalChannels", "list subscribed channels")
}
