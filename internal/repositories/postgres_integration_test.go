//go:build integration

package repositories

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/cockroachdb/cockroach-go/v2/testserver"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/videotube/backend/internal/auth"
	"github.com/videotube/backend/internal/models"
	"github.com/videotube/backend/internal/query"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	server, err := testserver.NewTestServer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "start cockroach test server: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, server.PGURL().String())
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect to cockroach test server: %v\n", err)
		server.Stop()
		os.Exit(1)
	}

	if err := applyMigrations(ctx, pool); err != nil {
		fmt.Fprintf(os.Stderr, "apply migrations: %v\n", err)
		pool.Close()
		server.Stop()
		os.Exit(1)
	}

	testPool = pool

	code := m.Run()

	pool.Close()
	server.Stop()

	os.Exit(code)
}

func TestPostgresUserRepository_CreateFindAndSessions(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	repo := NewPostgresUserRepository(testPool)
	user := createTestUser(t, repo, "alice")

	dup := user
	dup.ID = uuid.NewString()
	dup.Email = "other@example.com"
	if err := repo.Create(ctx, dup); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate username, got %v", err)
	}

	fetched, err := repo.FindByLogin(ctx, "", "alice")
	if err != nil {
		t.Fatalf("find by username: %v", err)
	}
	if fetched.ID != user.ID || fetched.Password != user.Password {
		t.Fatalf("unexpected user fetched: %+v", fetched)
	}

	if _, err := repo.RefreshToken(ctx, user.ID); !errors.Is(err, auth.ErrSessionNotFound) {
		t.Fatalf("expected no session before login, got %v", err)
	}
	if err := repo.SaveRefreshToken(ctx, user.ID, "token-1"); err != nil {
		t.Fatalf("save refresh token: %v", err)
	}
	if token, err := repo.RefreshToken(ctx, user.ID); err != nil || token != "token-1" {
		t.Fatalf("expected stored token, got %q %v", token, err)
	}
	if err := repo.ClearRefreshToken(ctx, user.ID); err != nil {
		t.Fatalf("clear refresh token: %v", err)
	}
	if _, err := repo.RefreshToken(ctx, user.ID); !errors.Is(err, auth.ErrSessionNotFound) {
		t.Fatalf("expected cleared session, got %v", err)
	}

	if _, err := repo.UpdateAccount(ctx, uuid.NewString(), "Nobody", "nobody@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound updating missing user, got %v", err)
	}
}

func TestPostgresLikeRepository_ToggleAndEnrichment(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	users := NewPostgresUserRepository(testPool)
	videos := NewPostgresVideoRepository(testPool)
	likes := NewPostgresLikeRepository(testPool)

	alice := createTestUser(t, users, "alice")
	bob := createTestUser(t, users, "bob")
	video := createTestVideo(t, videos, alice.ID, "Intro", time.Now().UTC())
	target := models.LikeTarget{Kind: models.LikeTargetVideo, ID: video.ID}

	liked, err := likes.Toggle(ctx, bob.ID, target)
	if err != nil || !liked {
		t.Fatalf("expected first toggle to like, got %v %v", liked, err)
	}

	asBob, err := videos.View(ctx, video.ID, bob.ID)
	if err != nil {
		t.Fatalf("view as bob: %v", err)
	}
	if asBob.LikesCount != 1 || !asBob.IsLiked {
		t.Fatalf("expected one like by bob, got %+v", asBob)
	}
	if asBob.OwnerDetails == nil || asBob.OwnerDetails.ID != alice.ID || asBob.OwnerDetails.Username != "alice" {
		t.Fatalf("expected owner details of alice, got %+v", asBob.OwnerDetails)
	}

	asAlice, err := videos.View(ctx, video.ID, alice.ID)
	if err != nil {
		t.Fatalf("view as alice: %v", err)
	}
	if asAlice.IsLiked {
		t.Fatal("expected alice not to have liked her own video")
	}

	anonymous, err := videos.View(ctx, video.ID, "")
	if err != nil {
		t.Fatalf("view anonymously: %v", err)
	}
	if anonymous.IsLiked || anonymous.LikesCount != 1 {
		t.Fatalf("unexpected anonymous view %+v", anonymous)
	}

	liked, err = likes.Toggle(ctx, bob.ID, target)
	if err != nil || liked {
		t.Fatalf("expected second toggle to unlike, got %v %v", liked, err)
	}
	if n, err := likes.Count(ctx, target); err != nil || n != 0 {
		t.Fatalf("expected zero likes, got %d %v", n, err)
	}

	liked, err = likes.Toggle(ctx, bob.ID, target)
	if err != nil || !liked {
		t.Fatalf("expected third toggle to like again, got %v %v", liked, err)
	}

	page, err := likes.LikedVideos(ctx, bob.ID, query.Window{Page: 1, Limit: 10})
	if err != nil {
		t.Fatalf("liked videos: %v", err)
	}
	if page.TotalItems != 1 || page.Items[0].ID != video.ID {
		t.Fatalf("unexpected liked videos %+v", page)
	}

	if _, err := likes.Toggle(ctx, bob.ID, models.LikeTarget{Kind: models.LikeTargetTweet, ID: uuid.NewString()}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound liking a missing tweet, got %v", err)
	}
}

func TestPostgresSubscriptionRepository_Toggle(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	users := NewPostgresUserRepository(testPool)
	subs := NewPostgresSubscriptionRepository(testPool)
	videos := NewPostgresVideoRepository(testPool)

	alice := createTestUser(t, users, "alice")
	carol := createTestUser(t, users, "carol")
	createTestVideo(t, videos, carol.ID, "Older", time.Now().UTC().Add(-time.Hour))
	latest := createTestVideo(t, videos, carol.ID, "Newer", time.Now().UTC())

	subscribed, err := subs.Toggle(ctx, alice.ID, carol.ID)
	if err != nil || !subscribed {
		t.Fatalf("expected subscribe, got %v %v", subscribed, err)
	}
	if n, _ := subs.CountSubscribers(ctx, carol.ID); n != 1 {
		t.Fatalf("expected one subscriber, got %d", n)
	}

	profile, err := users.Channel(ctx, "carol", alice.ID)
	if err != nil {
		t.Fatalf("channel profile: %v", err)
	}
	if profile.SubscribersCount != 1 || !profile.IsSubscribed {
		t.Fatalf("unexpected channel profile %+v", profile)
	}

	channels, err := subs.SubscribedChannels(ctx, alice.ID, query.Sort{Desc: true}, query.Window{Page: 1, Limit: 10})
	if err != nil {
		t.Fatalf("subscribed channels: %v", err)
	}
	if channels.TotalItems != 1 || channels.Items[0].Channel == nil || channels.Items[0].Channel.ID != carol.ID {
		t.Fatalf("unexpected channels %+v", channels)
	}
	if channels.Items[0].LatestVideo == nil || channels.Items[0].LatestVideo.ID != latest.ID {
		t.Fatalf("expected latest video %s, got %+v", latest.ID, channels.Items[0].LatestVideo)
	}

	subscribed, err = subs.Toggle(ctx, alice.ID, carol.ID)
	if err != nil || subscribed {
		t.Fatalf("expected unsubscribe, got %v %v", subscribed, err)
	}
	if n, _ := subs.CountSubscribers(ctx, carol.ID); n != 0 {
		t.Fatalf("expected subscriber count decremented, got %d", n)
	}

	if _, err := subs.Toggle(ctx, alice.ID, alice.ID); !errors.Is(err, ErrInvalidReference) {
		t.Fatalf("expected self subscription rejected, got %v", err)
	}
}

func TestPostgresVideoRepository_PaginationAndCascade(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	users := NewPostgresUserRepository(testPool)
	videos := NewPostgresVideoRepository(testPool)
	comments := NewPostgresCommentRepository(testPool)

	alice := createTestUser(t, users, "alice")
	base := time.Now().UTC().Add(-time.Hour)
	var first models.Video
	for i := 0; i < 12; i++ {
		v := createTestVideo(t, videos, alice.ID, fmt.Sprintf("Video %02d", i), base.Add(time.Duration(i)*time.Minute))
		if i == 0 {
			first = v
		}
	}

	page, err := videos.List(ctx, VideoFilter{}, "", query.Sort{Field: "createdAt", Desc: true}, query.Window{Page: 2, Limit: 10})
	if err != nil {
		t.Fatalf("list videos: %v", err)
	}
	if len(page.Items) != 2 || page.TotalItems != 12 || page.HasNextPage || !page.HasPrevPage {
		t.Fatalf("unexpected second page %+v", page)
	}

	beyond, err := videos.List(ctx, VideoFilter{}, "", query.Sort{}, query.Window{Page: 5, Limit: 10})
	if err != nil {
		t.Fatalf("list beyond last page: %v", err)
	}
	if len(beyond.Items) != 0 || beyond.HasNextPage || !beyond.HasPrevPage {
		t.Fatalf("unexpected page beyond end %+v", beyond)
	}

	search, err := videos.List(ctx, VideoFilter{Query: "video 03"}, "", query.Sort{}, query.Window{Page: 1, Limit: 10})
	if err != nil {
		t.Fatalf("search videos: %v", err)
	}
	if search.TotalItems != 1 {
		t.Fatalf("expected one search hit, got %d", search.TotalItems)
	}

	empty, err := comments.ListForVideo(ctx, first.ID, "", query.Sort{}, query.Window{Page: 1, Limit: 10})
	if err != nil {
		t.Fatalf("list empty comments: %v", err)
	}
	if len(empty.Items) != 0 || empty.TotalItems != 0 || empty.HasNextPage {
		t.Fatalf("unexpected empty comments page %+v", empty)
	}

	comment := models.Comment{ID: uuid.NewString(), Content: "nice", VideoID: first.ID, OwnerID: alice.ID, CreatedAt: base, UpdatedAt: base}
	if err := comments.Create(ctx, comment); err != nil {
		t.Fatalf("create comment: %v", err)
	}

	if err := videos.RecordView(ctx, first.ID, alice.ID); err != nil {
		t.Fatalf("record view: %v", err)
	}
	history, err := users.WatchHistory(ctx, alice.ID, query.Window{Page: 1, Limit: 10})
	if err != nil {
		t.Fatalf("watch history: %v", err)
	}
	if history.TotalItems != 1 || history.Items[0].Views != 1 {
		t.Fatalf("unexpected history %+v", history)
	}

	if err := videos.Delete(ctx, first.ID); err != nil {
		t.Fatalf("delete video: %v", err)
	}
	if _, err := comments.FindByID(ctx, comment.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected comment removed with its video, got %v", err)
	}
	if err := videos.Delete(ctx, first.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound deleting twice, got %v", err)
	}
}

func TestPostgresPlaylistRepository_Entries(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	users := NewPostgresUserRepository(testPool)
	videos := NewPostgresVideoRepository(testPool)
	playlists := NewPostgresPlaylistRepository(testPool)

	alice := createTestUser(t, users, "alice")
	a := createTestVideo(t, videos, alice.ID, "A", time.Now().UTC())
	b := createTestVideo(t, videos, alice.ID, "B", time.Now().UTC().Add(-time.Hour))

	now := time.Now().UTC()
	playlist := models.Playlist{ID: uuid.NewString(), Name: "Mix", OwnerID: alice.ID, CreatedAt: now, UpdatedAt: now}
	if err := playlists.Create(ctx, playlist); err != nil {
		t.Fatalf("create playlist: %v", err)
	}

	for _, id := range []string{a.ID, b.ID} {
		if err := playlists.AddVideo(ctx, playlist.ID, id); err != nil {
			t.Fatalf("add video: %v", err)
		}
	}
	if err := playlists.AddVideo(ctx, playlist.ID, a.ID); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict adding duplicate, got %v", err)
	}

	entries, err := playlists.Videos(ctx, playlist.ID, "", query.Window{Page: 1, Limit: 10})
	if err != nil {
		t.Fatalf("list playlist videos: %v", err)
	}
	if len(entries.Items) != 2 || entries.Items[0].ID != a.ID || entries.Items[1].ID != b.ID {
		t.Fatalf("expected insertion order, got %+v", entries.Items)
	}

	view, err := playlists.View(ctx, playlist.ID)
	if err != nil {
		t.Fatalf("playlist view: %v", err)
	}
	if view.TotalVideos != 2 || view.OwnerDetails == nil || view.OwnerDetails.ID != alice.ID {
		t.Fatalf("unexpected playlist view %+v", view)
	}

	if err := playlists.RemoveVideo(ctx, playlist.ID, b.ID); err != nil {
		t.Fatalf("remove video: %v", err)
	}
	if err := playlists.RemoveVideo(ctx, playlist.ID, b.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound removing absent entry, got %v", err)
	}

	if err := playlists.Delete(ctx, playlist.ID); err != nil {
		t.Fatalf("delete playlist: %v", err)
	}
	if _, err := videos.FindByID(ctx, a.ID); err != nil {
		t.Fatalf("expected video to survive playlist deletion: %v", err)
	}
}

func applyMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	migrationsDir := filepath.Join("..", "..", "migrations")
	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		contents, err := os.ReadFile(filepath.Join(migrationsDir, entry.Name()))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}

		if _, err := pool.Exec(ctx, string(contents)); err != nil {
			return fmt.Errorf("apply migration %s: %w", entry.Name(), err)
		}
	}

	return nil
}

func resetDatabase(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	conn, err := testPool.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire connection: %v", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "TRUNCATE TABLE watch_history, playlist_videos, playlists, subscriptions, likes, comments, tweets, videos, users CASCADE"); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
}

func createTestUser(t *testing.T, repo *PostgresUserRepository, username string) models.User {
	t.Helper()
	now := time.Now().UTC()
	user := models.User{
		ID:        uuid.NewString(),
		Username:  username,
		Email:     username + "@example.com",
		FullName:  username,
		Avatar:    "https://cdn.example.com/" + username + ".png",
		Password:  "password-hash",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("create test user: %v", err)
	}
	return user
}

func createTestVideo(t *testing.T, repo *PostgresVideoRepository, ownerID, title string, createdAt time.Time) models.Video {
	t.Helper()
	video := models.Video{
		ID:          uuid.NewString(),
		VideoFile:   "https://cdn.example.com/" + title + ".mp4",
		Thumbnail:   "https://cdn.example.com/" + title + ".png",
		Title:       title,
		Description: "about " + title,
		Duration:    12.5,
		IsPublished: true,
		OwnerID:     ownerID,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
	if err := repo.Create(context.Background(), video); err != nil {
		t.Fatalf("create test video: %v", err)
	}
	return video
}
