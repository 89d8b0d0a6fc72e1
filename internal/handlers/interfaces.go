package handlers

import (
	"context"

	"github.com/videotube/backend/internal/media"
	"github.com/videotube/backend/internal/models"
	"github.com/videotube/backend/internal/query"
	"github.com/videotube/backend/internal/repositories"
)

// UserStore captures the persistence operations required by the user handlers.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByID(ctx context.Context, id string) (models.User, error)
	FindByLogin(ctx context.Context, email, username string) (models.User, error)
	UpdateAccount(ctx context.Context, id, fullName, email string) (models.User, error)
	UpdateAvatar(ctx context.Context, id, url string) (models.User, error)
	UpdateCoverImage(ctx context.Context, id, url string) (models.User, error)
	UpdatePassword(ctx context.Context, id, hash string) error
	Channel(ctx context.Context, username, actor string) (models.ChannelProfile, error)
	WatchHistory(ctx context.Context, userID string, window query.Window) (query.Page[models.VideoView], error)
}

// SessionManager issues, rotates and revokes authentication tokens.
type SessionManager interface {
	Issue(ctx context.Context, userID string) (models.SessionTokens, error)
	Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, string, error)
	Revoke(ctx context.Context, userID string) error
}

// VideoStore captures persistence for videos.
type VideoStore interface {
	Create(ctx context.Context, video models.Video) error
	FindByID(ctx context.Context, id string) (models.Video, error)
	View(ctx context.Context, id, actor string) (models.VideoView, error)
	List(ctx context.Context, filter repositories.VideoFilter, actor string, sort query.Sort, window query.Window) (query.Page[models.VideoView], error)
	Update(ctx context.Context, id string, patch repositories.VideoPatch) (models.Video, error)
	TogglePublished(ctx context.Context, id string) (models.Video, error)
	Delete(ctx context.Context, id string) error
	RecordView(ctx context.Context, videoID, viewer string) error
}

// CommentStore captures persistence for comments.
type CommentStore interface {
	Create(ctx context.Context, comment models.Comment) error
	FindByID(ctx context.Context, id string) (models.Comment, error)
	View(ctx context.Context, id, actor string) (models.CommentView, error)
	ListForVideo(ctx context.Context, videoID, actor string, sort query.Sort, window query.Window) (query.Page[models.CommentView], error)
	Update(ctx context.Context, id, content string) (models.Comment, error)
	Delete(ctx context.Context, id string) error
}

// TweetStore captures persistence for tweets.
type TweetStore interface {
	Create(ctx context.Context, tweet models.Tweet) error
	FindByID(ctx context.Context, id string) (models.Tweet, error)
	View(ctx context.Context, id, actor string) (models.TweetView, error)
	ListForOwner(ctx context.Context, ownerID, actor string, sort query.Sort, window query.Window) (query.Page[models.TweetView], error)
	Update(ctx context.Context, id, content string) (models.Tweet, error)
	Delete(ctx context.Context, id string) error
}

// LikeStore captures persistence for likes.
type LikeStore interface {
	Toggle(ctx context.Context, actor string, target models.LikeTarget) (bool, error)
	Count(ctx context.Context, target models.LikeTarget) (int64, error)
	LikedVideos(ctx context.Context, actor string, window query.Window) (query.Page[models.VideoView], error)
}

// SubscriptionStore captures persistence for subscriptions.
type SubscriptionStore interface {
	Toggle(ctx context.Context, subscriber, channel string) (bool, error)
	CountSubscribers(ctx context.Context, channel string) (int64, error)
	Subscribers(ctx context.Context, channel string, sort query.Sort, window query.Window) (query.Page[models.SubscriberView], error)
	SubscribedChannels(ctx context.Context, subscriber string, sort query.Sort, window query.Window) (query.Page[models.SubscribedChannelView], error)
}

// PlaylistStore captures persistence for playlists.
type PlaylistStore interface {
	Create(ctx context.Context, playlist models.Playlist) error
	FindByID(ctx context.Context, id string) (models.Playlist, error)
	View(ctx context.Context, id string) (models.PlaylistView, error)
	Videos(ctx context.Context, playlistID, actor string, window query.Window) (query.Page[models.VideoView], error)
	ListForOwner(ctx context.Context, ownerID string, sort query.Sort, window query.Window) (query.Page[models.PlaylistView], error)
	Update(ctx context.Context, id string, patch repositories.PlaylistPatch) (models.Playlist, error)
	Delete(ctx context.Context, id string) error
	AddVideo(ctx context.Context, playlistID, videoID string) error
	RemoveVideo(ctx context.Context, playlistID, videoID string) error
}

// MediaUploader moves a local temporary file into the object store and removes it.
type MediaUploader interface {
	Upload(ctx context.Context, localPath string, kind media.Kind) (media.Asset, error)
}

// MediaJanitor schedules removal of stored objects that are no longer referenced.
type MediaJanitor interface {
	Enqueue(ctx context.Context, locations ...string) error
}

// StatsProvider serves dashboard totals, possibly from a cache.
type StatsProvider interface {
	ChannelStats(ctx context.Context, channelID string) (models.ChannelStats, error)
	Invalidate(channelID string)
}

// Locker serialises toggles on the same (actor, target) pair.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}
