package models

import "time"

// User represents an account (channel) within the VideoTube platform.
type User struct {
	ID           string    `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	Email        string    `db:"email" json:"email"`
	FullName     string    `db:"full_name" json:"fullName"`
	Avatar       string    `db:"avatar" json:"avatar"`
	CoverImage   string    `db:"cover_image" json:"coverImage"`
	Password     string    `db:"password_hash" json:"-"`
	RefreshToken *string   `db:"refresh_token" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// OwnerProfile is the public subset of a user attached to owned records.
type OwnerProfile struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	FullName string `json:"fullName"`
	Avatar   string `json:"avatar"`
}

// Video is an uploaded media item owned by a channel.
type Video struct {
	ID          string    `db:"id" json:"id"`
	VideoFile   string    `db:"video_file" json:"videoFile"`
	Thumbnail   string    `db:"thumbnail" json:"thumbnail"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"`
	Duration    float64   `db:"duration" json:"duration"`
	Views       int64     `db:"views" json:"views"`
	IsPublished bool      `db:"is_published" json:"isPublished"`
	OwnerID     string    `db:"owner_id" json:"owner"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

// Tweet is a short text post owned by a channel.
type Tweet struct {
	ID        string    `db:"id" json:"id"`
	Content   string    `db:"content" json:"content"`
	OwnerID   string    `db:"owner_id" json:"owner"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Comment is attached to exactly one video.
type Comment struct {
	ID        string    `db:"id" json:"id"`
	Content   string    `db:"content" json:"content"`
	VideoID   string    `db:"video_id" json:"video"`
	OwnerID   string    `db:"owner_id" json:"owner"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Subscription links a subscriber to a channel.
type Subscription struct {
	ID           string    `db:"id" json:"id"`
	SubscriberID string    `db:"subscriber_id" json:"subscriber"`
	ChannelID    string    `db:"channel_id" json:"channel"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// Playlist is an ordered, duplicate-free collection of videos.
type Playlist struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	OwnerID     string    `db:"owner_id" json:"owner"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

// LikeTargetKind names the entity a like points at.
type LikeTargetKind string

const (
	LikeTargetVideo   LikeTargetKind = "video"
	LikeTargetComment LikeTargetKind = "comment"
	LikeTargetTweet   LikeTargetKind = "tweet"
)

// LikeTarget identifies exactly one likeable entity.
type LikeTarget struct {
	Kind LikeTargetKind
	ID   string
}

// VideoView is a video enriched with owner and engagement data.
type VideoView struct {
	Video
	OwnerDetails *OwnerProfile `db:"owner_details" json:"ownerDetails"`
	LikesCount   int64         `db:"likes_count" json:"likesCount"`
	IsLiked      bool          `db:"is_liked" json:"isLiked"`
}

// CommentView is a comment enriched with owner and engagement data.
type CommentView struct {
	Comment
	OwnerDetails *OwnerProfile `db:"owner_details" json:"ownerDetails"`
	LikesCount   int64         `db:"likes_count" json:"likesCount"`
	IsLiked      bool          `db:"is_liked" json:"isLiked"`
}

// TweetView is a tweet enriched with owner and engagement data.
type TweetView struct {
	Tweet
	OwnerDetails *OwnerProfile `db:"owner_details" json:"ownerDetails"`
	LikesCount   int64         `db:"likes_count" json:"likesCount"`
	IsLiked      bool          `db:"is_liked" json:"isLiked"`
}

// PlaylistView is a playlist with owner details and aggregate totals.
type PlaylistView struct {
	Playlist
	OwnerDetails *OwnerProfile `db:"owner_details" json:"ownerDetails"`
	TotalVideos  int64         `db:"total_videos" json:"totalVideos"`
	TotalViews   int64         `db:"total_views" json:"totalViews"`
}

// ChannelProfile is the public page of a channel.
type ChannelProfile struct {
	ID                        string `db:"id" json:"id"`
	Username                  string `db:"username" json:"username"`
	FullName                  string `db:"full_name" json:"fullName"`
	Email                     string `db:"email" json:"email"`
	Avatar                    string `db:"avatar" json:"avatar"`
	CoverImage                string `db:"cover_image" json:"coverImage"`
	SubscribersCount          int64  `db:"subscribers_count" json:"subscribersCount"`
	ChannelsSubscribedToCount int64  `db:"channels_subscribed_to_count" json:"channelsSubscribedToCount"`
	IsSubscribed              bool   `db:"is_subscribed" json:"isSubscribed"`
}

// VideoSummary is the compact video shape embedded in channel listings.
type VideoSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Thumbnail string    `json:"thumbnail"`
	Duration  float64   `json:"duration"`
	Views     int64     `json:"views"`
	CreatedAt time.Time `json:"createdAt"`
}

// SubscriberView lists one subscriber of a channel.
type SubscriberView struct {
	ID                     string        `db:"id" json:"id"`
	SubscribedAt           time.Time     `db:"created_at" json:"subscribedAt"`
	Subscriber             *OwnerProfile `db:"subscriber" json:"subscriber"`
	SubscribersCount       int64         `db:"subscribers_count" json:"subscribersCount"`
	SubscribedToSubscriber bool          `db:"subscribed_to_subscriber" json:"subscribedToSubscriber"`
}

// SubscribedChannelView lists one channel a user follows.
type SubscribedChannelView struct {
	ID           string        `db:"id" json:"id"`
	SubscribedAt time.Time     `db:"created_at" json:"subscribedAt"`
	Channel      *OwnerProfile `db:"channel" json:"channel"`
	LatestVideo  *VideoSummary `db:"latest_video" json:"latestVideo"`
}

// ChannelStats summarises a channel for its dashboard.
type ChannelStats struct {
	TotalVideos      int64 `db:"total_videos" json:"totalVideos"`
	TotalViews       int64 `db:"total_views" json:"totalViews"`
	TotalSubscribers int64 `db:"total_subscribers" json:"totalSubscribers"`
	TotalLikes       int64 `db:"total_likes" json:"totalLikes"`
}

// SessionTokens groups the bearer credentials issued to authenticated users.
type SessionTokens struct {
	AccessToken      string    `json:"accessToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshToken     string    `json:"refreshToken"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}

// Owner returns the id of the owning user.
func (v Video) Owner() string { return v.OwnerID }

// Owner returns the id of the owning user.
func (t Tweet) Owner() string { return t.OwnerID }

// Owner returns the id of the commenting user.
func (c Comment) Owner() string { return c.OwnerID }

// Owner returns the id of the owning user.
func (p Playlist) Owner() string { return p.OwnerID }
