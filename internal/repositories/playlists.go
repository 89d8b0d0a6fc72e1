package repositories

import (
	"context"

	"github.com/videotube/backend/internal/db"
	"github.com/videotube/backend/internal/models"
	"github.com/videotube/backend/internal/query"
)

const playlistReturning = `id, name, description, owner_id, created_at, updated_at`

// PlaylistPatch carries the optional fields of a playlist update. Nil leaves a field unchanged.
type PlaylistPatch struct {
	Name        *string
	Description *string
}

// PostgresPlaylistRepository provides PostgreSQL-backed persistence for playlists.
type PostgresPlaylistRepository struct {
	pool db.Pool
}

// NewPostgresPlaylistRepository constructs a playlist repository backed by PostgreSQL.
func NewPostgresPlaylistRepository(pool db.Pool) *PostgresPlaylistRepository {
	return &PostgresPlaylistRepository{pool: pool}
}

// Create stores an empty playlist.
func (r *PostgresPlaylistRepository) Create(ctx context.Context, playlist models.Playlist) error {
	return execOne(ctx, r.pool, "insert playlist", `
        INSERT INTO playlists (id, name, description, owner_id, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, playlist.ID, playlist.Name, playlist.Description, playlist.OwnerID, playlist.CreatedAt, playlist.UpdatedAt)
}

// FindByID fetches the bare playlist record.
func (r *PostgresPlaylistRepository) FindByID(ctx context.Context, id string) (models.Playlist, error) {
	return queryOne[models.Playlist](ctx, r.pool, "select playlist",
		`SELECT `+playlistReturning+` FROM playlists WHERE id = $1`, id)
}

// View fetches a playlist with its owner and totals.
func (r *PostgresPlaylistRepository) View(ctx context.Context, id string) (models.PlaylistView, error) {
	return viewOne[models.PlaylistView](ctx, r.pool, PlaylistView, "", id, "select playlist view")
}

// Videos lists the published videos of a playlist in insertion order.
func (r *PostgresPlaylistRepository) Videos(ctx context.Context, playlistID, actor string, window query.Window) (query.Page[models.VideoView], error) {
	return fetchPage[models.VideoView](ctx, r.pool, PlaylistVideoView, query.Request{
		Actor:  actor,
		Filter: query.Filter{}.Where("pv.playlist_id = ?", playlistID).Where(query.Alias + ".is_published"),
		Sort:   query.Sort{},
		Window: window,
	}, "videos", "totalVideos", "list playlist videos")
}

// ListForOwner returns one page of a user's playlists.
func (r *PostgresPlaylistRepository) ListForOwner(ctx context.Context, ownerID string, sort query.Sort, window query.Window) (query.Page[models.PlaylistView], error) {
	return fetchPage[models.PlaylistView](ctx, r.pool, PlaylistView, query.Request{
		Filter: query.Filter{}.Eq("owner_id", ownerID),
		Sort:   sort,
		Window: window,
	}, "playlists", "totalPlaylists", "list playlists")
}

// Update applies patch and returns the stored playlist.
func (r *PostgresPlaylistRepository) Update(ctx context.Context, id string, patch PlaylistPatch) (models.Playlist, error) {
	return queryOne[models.Playlist](ctx, r.pool, "update playlist", `
        UPDATE playlists
        SET name = COALESCE($2, name),
            description = COALESCE($3, description),
            updated_at = NOW()
        WHERE id = $1
        RETURNING `+playlistReturning, id, patch.Name, patch.Description)
}

// Delete removes a playlist. Its videos are untouched.
func (r *PostgresPlaylistRepository) Delete(ctx context.Context, id string) error {
	return execOne(ctx, r.pool, "delete playlist", `DELETE FROM playlists WHERE id = $1`, id)
}

// AddVideo appends videoID to the playlist. A repeated video yields ErrConflict.
func (r *PostgresPlaylistRepository) AddVideo(ctx context.Context, playlistID, videoID string) error {
	return execOne(ctx, r.pool, "add playlist video", `
        INSERT INTO playlist_videos (playlist_id, video_id, position, added_at)
        SELECT $1::UUID, $2::UUID, COALESCE(MAX(position), 0) + 1, NOW()
        FROM playlist_videos
        WHERE playlist_id = $1::UUID
    `, playlistID, videoID)
}

// RemoveVideo drops videoID from the playlist. An absent entry yields ErrNotFound.
func (r *PostgresPlaylistRepository) RemoveVideo(ctx context.Context, playlistID, videoID string) error {
	return execOne(ctx, r.pool, "remove playlist video",
		`DELETE FROM playlist_videos WHERE playlist_id = $1 AND video_id = $2`, playlistID, videoID)
}
