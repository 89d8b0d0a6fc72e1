package repositories

import "github.com/videotube/backend/internal/query"

var ownerProfileFields = []query.Field{
	query.F("id", "id"),
	query.F("username", "username"),
	query.F("fullName", "full_name"),
	query.F("avatar", "avatar"),
}

var videoSummaryFields = []query.Field{
	query.F("id", "id"),
	query.F("title", "title"),
	query.F("thumbnail", "thumbnail"),
	query.F("duration", "duration"),
	query.F("views", "views"),
	query.F("createdAt", "created_at"),
}

func ownerDetails(localKey string) query.Relation {
	return query.HasOne("owner_details", "users", "id", localKey, ownerProfileFields...)
}

var videoColumns = []string{
	"id", "video_file", "thumbnail", "title", "description", "duration",
	"views", "is_published", "owner_id", "created_at", "updated_at",
}

var videoRelations = []query.Relation{
	ownerDetails("owner_id"),
	query.CountOf("likes_count", "likes", "video_id"),
	query.MemberOf("is_liked", "likes", "video_id", "liked_by"),
}

var videoSortable = map[string]string{
	"createdAt":  query.Alias + ".created_at",
	"views":      query.Alias + ".views",
	"duration":   query.Alias + ".duration",
	"title":      query.Alias + ".title",
	"likesCount": "likes_count",
}

// VideoView enriches videos with the owner profile and like state.
var VideoView = query.View{
	From:        query.Table("videos"),
	Columns:     videoColumns,
	Relations:   videoRelations,
	Sortable:    videoSortable,
	DefaultSort: "createdAt",
}

// LikedVideoView lists videos through the actor's likes, newest like first.
var LikedVideoView = query.View{
	From:      "likes l JOIN videos " + query.Alias + " ON " + query.Alias + ".id = l.video_id",
	Columns:   videoColumns,
	Relations: videoRelations,
	Sortable: map[string]string{
		"likedAt": "l.created_at",
	},
	DefaultSort: "likedAt",
}

// HistoryView lists videos through the actor's watch history, most recent first.
var HistoryView = query.View{
	From:      "watch_history h JOIN videos " + query.Alias + " ON " + query.Alias + ".id = h.video_id",
	Columns:   videoColumns,
	Relations: videoRelations,
	Sortable: map[string]string{
		"watchedAt": "h.watched_at",
	},
	DefaultSort: "watchedAt",
}

// PlaylistVideoView lists the videos of a playlist in insertion order.
var PlaylistVideoView = query.View{
	From:      "playlist_videos pv JOIN videos " + query.Alias + " ON " + query.Alias + ".id = pv.video_id",
	Columns:   videoColumns,
	Relations: videoRelations,
	Sortable: map[string]string{
		"position": "pv.position",
	},
	DefaultSort: "position",
}

// CommentView enriches comments with the owner profile and like state.
var CommentView = query.View{
	From:    query.Table("comments"),
	Columns: []string{"id", "content", "video_id", "owner_id", "created_at", "updated_at"},
	Relations: []query.Relation{
		ownerDetails("owner_id"),
		query.CountOf("likes_count", "likes", "comment_id"),
		query.MemberOf("is_liked", "likes", "comment_id", "liked_by"),
	},
	Sortable: map[string]string{
		"createdAt":  query.Alias + ".created_at",
		"likesCount": "likes_count",
	},
	DefaultSort: "createdAt",
}

// TweetView enriches tweets with the owner profile and like state.
var TweetView = query.View{
	From:    query.Table("tweets"),
	Columns: []string{"id", "content", "owner_id", "created_at", "updated_at"},
	Relations: []query.Relation{
		ownerDetails("owner_id"),
		query.CountOf("likes_count", "likes", "tweet_id"),
		query.MemberOf("is_liked", "likes", "tweet_id", "liked_by"),
	},
	Sortable: map[string]string{
		"createdAt":  query.Alias + ".created_at",
		"likesCount": "likes_count",
	},
	DefaultSort: "createdAt",
}

// PlaylistView enriches playlists with the owner profile and totals.
var PlaylistView = query.View{
	From:    query.Table("playlists"),
	Columns: []string{"id", "name", "description", "owner_id", "created_at", "updated_at"},
	Relations: []query.Relation{
		ownerDetails("owner_id"),
		query.CountOf("total_videos", "playlist_videos", "playlist_id"),
		query.Expr("total_views", "SELECT COALESCE(SUM(v.views), 0)::BIGINT FROM playlist_videos pv JOIN videos v ON v.id = pv.video_id WHERE pv.playlist_id = "+query.Alias+".id"),
	},
	Sortable: map[string]string{
		"createdAt": query.Alias + ".created_at",
		"name":      query.Alias + ".name",
	},
	DefaultSort: "createdAt",
}

// ChannelView is the public profile of a user with subscription counts.
var ChannelView = query.View{
	From:    query.Table("users"),
	Columns: []string{"id", "username", "full_name", "email", "avatar", "cover_image"},
	Relations: []query.Relation{
		query.CountOf("subscribers_count", "subscriptions", "channel_id"),
		query.CountOf("channels_subscribed_to_count", "subscriptions", "subscriber_id"),
		query.MemberOf("is_subscribed", "subscriptions", "channel_id", "subscriber_id"),
	},
}

// SubscriberView lists the subscribers of a channel.
var SubscriberView = query.View{
	From:    query.Table("subscriptions"),
	Columns: []string{"id", "created_at"},
	Relations: []query.Relation{
		query.HasOne("subscriber", "users", "id", "subscriber_id", ownerProfileFields...),
		query.CountOf("subscribers_count", "subscriptions", "channel_id").On("subscriber_id"),
		query.Expr("subscribed_to_subscriber", "SELECT EXISTS (SELECT 1 FROM subscriptions s WHERE s.channel_id = "+query.Alias+".subscriber_id AND s.subscriber_id = "+query.Alias+".channel_id)"),
	},
	Sortable: map[string]string{
		"createdAt": query.Alias + ".created_at",
	},
	DefaultSort: "createdAt",
}

// SubscribedChannelView lists the channels a user follows with their latest published video.
var SubscribedChannelView = query.View{
	From:    query.Table("subscriptions"),
	Columns: []string{"id", "created_at"},
	Relations: []query.Relation{
		query.HasOne("channel", "users", "id", "channel_id", ownerProfileFields...),
		query.HasOne("latest_video", "videos", "owner_id", "channel_id", videoSummaryFields...).
			Where("r.is_published").
			OrderBy("r.created_at DESC"),
	},
	Sortable: map[string]string{
		"createdAt": query.Alias + ".created_at",
	},
	DefaultSort: "createdAt",
}
