package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/videotube/backend/internal/auth"
	"github.com/videotube/backend/internal/db"
	"github.com/videotube/backend/internal/models"
	"github.com/videotube/backend/internal/query"
)

const userColumns = `id, username, email, full_name, avatar, cover_image, password_hash, refresh_token, created_at, updated_at`

// PostgresUserRepository provides PostgreSQL-backed persistence for users and their sessions.
type PostgresUserRepository struct {
	pool db.Pool
}

// NewPostgresUserRepository constructs a user repository backed by PostgreSQL.
func NewPostgresUserRepository(pool db.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// Create persists a new user record.
func (r *PostgresUserRepository) Create(ctx context.Context, user models.User) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO users (id, username, email, full_name, avatar, cover_image, password_hash, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `, user.ID, user.Username, user.Email, user.FullName, user.Avatar, user.CoverImage, user.Password, user.CreatedAt, user.UpdatedAt)
	return classify(err, "insert user")
}

// FindByID fetches a user by id.
func (r *PostgresUserRepository) FindByID(ctx context.Context, id string) (models.User, error) {
	return r.findOne(ctx, "id = $1", id)
}

// FindByLogin fetches a user whose email or username matches.
func (r *PostgresUserRepository) FindByLogin(ctx context.Context, email, username string) (models.User, error) {
	return r.findOne(ctx, "email = $1 OR username = $2", email, username)
}

func (r *PostgresUserRepository) findOne(ctx context.Context, where string, args ...any) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `SELECT `+userColumns+` FROM users WHERE `+where+` LIMIT 1`, args...)
	if err != nil {
		return models.User{}, fmt.Errorf("select user: %w", err)
	}
	user, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[models.User])
	if err != nil {
		return models.User{}, classify(err, "scan user")
	}
	return user, nil
}

// UpdateAccount changes the display name and email and returns the stored user.
func (r *PostgresUserRepository) UpdateAccount(ctx context.Context, id, fullName, email string) (models.User, error) {
	return r.updateReturning(ctx, "full_name = $2, email = $3", id, fullName, email)
}

// UpdateAvatar replaces the avatar URL and returns the stored user.
func (r *PostgresUserRepository) UpdateAvatar(ctx context.Context, id, url string) (models.User, error) {
	return r.updateReturning(ctx, "avatar = $2", id, url)
}

// UpdateCoverImage replaces the cover image URL and returns the stored user.
func (r *PostgresUserRepository) UpdateCoverImage(ctx context.Context, id, url string) (models.User, error) {
	return r.updateReturning(ctx, "cover_image = $2", id, url)
}

// UpdatePassword stores a new password hash.
func (r *PostgresUserRepository) UpdatePassword(ctx context.Context, id, hash string) error {
	_, err := r.updateReturning(ctx, "password_hash = $2", id, hash)
	return err
}

func (r *PostgresUserRepository) updateReturning(ctx context.Context, set string, args ...any) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        UPDATE users
        SET `+set+`, updated_at = NOW()
        WHERE id = $1
        RETURNING `+userColumns, args...)
	if err != nil {
		return models.User{}, classify(err, "update user")
	}
	user, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[models.User])
	if err != nil {
		return models.User{}, classify(err, "update user")
	}
	return user, nil
}

// SaveRefreshToken replaces the user's active refresh token.
func (r *PostgresUserRepository) SaveRefreshToken(ctx context.Context, userID, token string) error {
	return r.setRefreshToken(ctx, userID, &token)
}

// ClearRefreshToken removes the user's active refresh token.
func (r *PostgresUserRepository) ClearRefreshToken(ctx context.Context, userID string) error {
	return r.setRefreshToken(ctx, userID, nil)
}

func (r *PostgresUserRepository) setRefreshToken(ctx context.Context, userID string, token *string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `UPDATE users SET refresh_token = $2 WHERE id = $1`, userID, token)
	if err != nil {
		return classify(err, "update refresh token")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RefreshToken returns the user's active refresh token.
func (r *PostgresUserRepository) RefreshToken(ctx context.Context, userID string) (string, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return "", fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	var token *string
	err = conn.QueryRow(ctx, `SELECT refresh_token FROM users WHERE id = $1`, userID).Scan(&token)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return "", auth.ErrSessionNotFound
	case err != nil:
		return "", classify(err, "select refresh token")
	case token == nil:
		return "", auth.ErrSessionNotFound
	}
	return *token, nil
}

// Channel returns the public profile of username as seen by actor.
func (r *PostgresUserRepository) Channel(ctx context.Context, username, actor string) (models.ChannelProfile, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.ChannelProfile{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	profile, err := query.FetchOne[models.ChannelProfile](ctx, conn, ChannelView, actor, query.Filter{}.Eq("username", username))
	if err != nil {
		return models.ChannelProfile{}, classify(err, "select channel")
	}
	return profile, nil
}

// WatchHistory lists the videos userID watched, most recent first.
func (r *PostgresUserRepository) WatchHistory(ctx context.Context, userID string, window query.Window) (query.Page[models.VideoView], error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return query.Page[models.VideoView]{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	page, err := query.Fetch[models.VideoView](ctx, conn, HistoryView, query.Request{
		Actor:  userID,
		Filter: query.Filter{}.Where("h.user_id = ?", userID),
		Sort:   query.Sort{Desc: true},
		Window: window,
	})
	if err != nil {
		return query.Page[models.VideoView]{}, classify(err, "list watch history")
	}
	return page.WithLabels("videos", "totalVideos"), nil
}

var _ auth.SessionStore = (*PostgresUserRepository)(nil)
