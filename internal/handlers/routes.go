package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/videotube/backend/internal/apperr"
	"github.com/videotube/backend/internal/middleware"
	"github.com/videotube/backend/internal/response"
)

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Logger *slog.Logger

	Users         UserStore
	Sessions      SessionManager
	Tokens        middleware.TokenVerifier
	Videos        VideoStore
	Comments      CommentStore
	Tweets        TweetStore
	Likes         LikeStore
	Subscriptions SubscriptionStore
	Playlists     PlaylistStore

	Uploader MediaUploader
	Janitor  MediaJanitor
	Stats    StatsProvider
	Locks    Locker

	Database    Pinger
	MediaHealth interface{ State() string }

	// AuthLimiter throttles register, login and refresh-token per client IP.
	AuthLimiter    middleware.RateLimiter
	Metrics        *middleware.Metrics
	MetricsHandler http.Handler

	CORSOrigins    []string
	UploadDir      string
	MaxUploadBytes int64
	CookieSecure   bool
	NowFunc        func() time.Time
}

// NewRouter wires every endpoint under /api/v1.
func NewRouter(deps Dependencies) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	users := UserHandler{
		Users: deps.Users, Sessions: deps.Sessions, Uploader: deps.Uploader, Janitor: deps.Janitor,
		UploadDir: deps.UploadDir, MaxUploadBytes: deps.MaxUploadBytes, CookieSecure: deps.CookieSecure, NowFunc: deps.NowFunc,
	}
	videos := VideoHandler{
		Videos: deps.Videos, Uploader: deps.Uploader, Janitor: deps.Janitor, Stats: deps.Stats,
		UploadDir: deps.UploadDir, MaxUploadBytes: deps.MaxUploadBytes, NowFunc: deps.NowFunc,
	}
	comments := CommentHandler{Comments: deps.Comments, Videos: deps.Videos, NowFunc: deps.NowFunc}
	likes := LikeHandler{Likes: deps.Likes, Videos: deps.Videos, Comments: deps.Comments, Tweets: deps.Tweets, Locks: deps.Locks}
	tweets := TweetHandler{Tweets: deps.Tweets, Users: deps.Users, NowFunc: deps.NowFunc}
	subscriptions := SubscriptionHandler{Subscriptions: deps.Subscriptions, Users: deps.Users, Stats: deps.Stats, Locks: deps.Locks}
	playlists := PlaylistHandler{Playlists: deps.Playlists, Videos: deps.Videos, Users: deps.Users, NowFunc: deps.NowFunc}
	dashboard := DashboardHandler{Stats: deps.Stats, Videos: deps.Videos}
	health := HealthHandler{Database: deps.Database, Media: deps.MediaHealth}

	required := middleware.Authenticate(deps.Tokens, true)
	optional := middleware.Authenticate(deps.Tokens, false)
	limited := middleware.RateLimit(deps.AuthLimiter, "auth")

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(logger))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Handler)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.Error(r.Context(), w, apperr.NotFound("route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.Error(r.Context(), w, &apperr.Error{Kind: apperr.KindMethodNotAllowed, Message: "method not allowed"})
	})

	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/healthcheck", health.Handle)

		r.Route("/users", func(r chi.Router) {
			r.With(limited).Post("/register", users.Register)
			r.With(limited).Post("/login", users.Login)
			r.With(limited).Post("/refresh-token", users.RefreshToken)
			r.With(optional).Get("/c/{username}", users.Channel)

			r.Group(func(r chi.Router) {
				r.Use(required)
				r.Post("/logout", users.Logout)
				r.Post("/change-password", users.ChangePassword)
				r.Get("/current-user", users.CurrentUser)
				r.Patch("/update-account", users.UpdateAccount)
				r.Patch("/avatar", users.UpdateAvatar)
				r.Patch("/cover-image", users.UpdateCoverImage)
				r.Get("/history", users.WatchHistory)
			})
		})

		r.Route("/videos", func(r chi.Router) {
			r.With(optional).Get("/", videos.List)
			r.With(optional).Get("/{videoId}", videos.Get)

			r.Group(func(r chi.Router) {
				r.Use(required)
				r.Post("/", videos.Publish)
				r.Patch("/{videoId}", videos.Update)
				r.Delete("/{videoId}", videos.Delete)
				r.Patch("/toggle/publish/{videoId}", videos.TogglePublish)
			})
		})

		r.Route("/comments", func(r chi.Router) {
			r.With(optional).Get("/{videoId}", comments.List)

			r.Group(func(r chi.Router) {
				r.Use(required)
				r.Post("/{videoId}", comments.Add)
				r.Patch("/c/{commentId}", comments.Update)
				r.Delete("/c/{commentId}", comments.Delete)
			})
		})

		r.Route("/likes", func(r chi.Router) {
			r.Use(required)
			r.Post("/toggle/v/{videoId}", likes.ToggleVideo)
			r.Post("/toggle/c/{commentId}", likes.ToggleComment)
			r.Post("/toggle/t/{tweetId}", likes.ToggleTweet)
			r.Get("/videos", likes.LikedVideos)
		})

		r.Route("/tweets", func(r chi.Router) {
			r.With(optional).Get("/user/{userId}", tweets.ListForUser)

			r.Group(func(r chi.Router) {
				r.Use(required)
				r.Post("/", tweets.Create)
				r.Patch("/{tweetId}", tweets.Update)
				r.Delete("/{tweetId}", tweets.Delete)
			})
		})

		r.Route("/subscriptions", func(r chi.Router) {
			r.With(optional).Get("/c/{channelId}", subscriptions.Subscribers)
			r.With(optional).Get("/u/{subscriberId}", subscriptions.SubscribedChannels)
			r.With(required).Post("/c/{channelId}", subscriptions.Toggle)
		})

		r.Route("/playlists", func(r chi.Router) {
			r.With(optional).Get("/{playlistId}", playlists.Get)
			r.With(optional).Get("/user/{userId}", playlists.ListForUser)

			r.Group(func(r chi.Router) {
				r.Use(required)
				r.Post("/", playlists.Create)
				r.Patch("/{playlistId}", playlists.Update)
				r.Delete("/{playlistId}", playlists.Delete)
				r.Patch("/add/{videoId}/{playlistId}", playlists.AddVideo)
				r.Patch("/remove/{videoId}/{playlistId}", playlists.RemoveVideo)
			})
		})

		r.Route("/dashboard", func(r chi.Router) {
			r.Use(required)
			r.Get("/stats", dashboard.ChannelStats)
			r.Get("/videos", dashboard.ChannelVideos)
		})
	})

	return r
}
