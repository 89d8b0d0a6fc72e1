package handlers

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/videotube/backend/internal/auth"
	"github.com/videotube/backend/internal/media"
	"github.com/videotube/backend/internal/models"
	"github.com/videotube/backend/internal/query"
	"github.com/videotube/backend/internal/repositories"
)

type likeKey struct {
	kind  models.LikeTargetKind
	id    string
	actor string
}

type subKey struct {
	subscriber string
	channel    string
}

// world is an in-memory data set shared by all fake stores.
type world struct {
	mu        sync.Mutex
	users     map[string]models.User
	videos    map[string]models.Video
	comments  map[string]models.Comment
	tweets    map[string]models.Tweet
	likes     map[likeKey]time.Time
	subs      map[subKey]time.Time
	playlists map[string]models.Playlist
	entries   map[string][]string
	history   map[string][]string
}

func newWorld() *world {
	return &world{
		users:     make(map[string]models.User),
		videos:    make(map[string]models.Video),
		comments:  make(map[string]models.Comment),
		tweets:    make(map[string]models.Tweet),
		likes:     make(map[likeKey]time.Time),
		subs:      make(map[subKey]time.Time),
		playlists: make(map[string]models.Playlist),
		entries:   make(map[string][]string),
		history:   make(map[string][]string),
	}
}

func (w *world) ownerLocked(id string) *models.OwnerProfile {
	u, ok := w.users[id]
	if !ok {
		return nil
	}
	return &models.OwnerProfile{ID: u.ID, Username: u.Username, FullName: u.FullName, Avatar: u.Avatar}
}

func (w *world) likesLocked(kind models.LikeTargetKind, id, actor string) (int64, bool) {
	var count int64
	liked := false
	for k := range w.likes {
		if k.kind == kind && k.id == id {
			count++
			if actor != "" && k.actor == actor {
				liked = true
			}
		}
	}
	return count, liked
}

func (w *world) videoViewLocked(v models.Video, actor string) models.VideoView {
	count, liked := w.likesLocked(models.LikeTargetVideo, v.ID, actor)
	return models.VideoView{Video: v, OwnerDetails: w.ownerLocked(v.OwnerID), LikesCount: count, IsLiked: liked}
}

func newestFirst[T any](items []T, created func(T) time.Time, s query.Sort) {
	sort.SliceStable(items, func(i, j int) bool {
		if s.Desc {
			return created(items[i]).After(created(items[j]))
		}
		return created(items[i]).Before(created(items[j]))
	})
}

type fakeUsers struct{ w *world }

func (f fakeUsers) Create(_ context.Context, user models.User) error {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	for _, u := range f.w.users {
		if u.Email == user.Email || u.Username == user.Username {
			return repositories.ErrConflict
		}
	}
	f.w.users[user.ID] = user
	return nil
}

func (f fakeUsers) FindByID(_ context.Context, id string) (models.User, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	u, ok := f.w.users[id]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	return u, nil
}

func (f fakeUsers) FindByLogin(_ context.Context, email, username string) (models.User, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	for _, u := range f.w.users {
		if (email != "" && u.Email == email) || (username != "" && u.Username == username) {
			return u, nil
		}
	}
	return models.User{}, repositories.ErrNotFound
}

func (f fakeUsers) update(id string, fn func(*models.User)) (models.User, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	u, ok := f.w.users[id]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	fn(&u)
	f.w.users[id] = u
	return u, nil
}

func (f fakeUsers) UpdateAccount(_ context.Context, id, fullName, email string) (models.User, error) {
	return f.update(id, func(u *models.User) { u.FullName, u.Email = fullName, email })
}

func (f fakeUsers) UpdateAvatar(_ context.Context, id, url string) (models.User, error) {
	return f.update(id, func(u *models.User) { u.Avatar = url })
}

func (f fakeUsers) UpdateCoverImage(_ context.Context, id, url string) (models.User, error) {
	return f.update(id, func(u *models.User) { u.CoverImage = url })
}

func (f fakeUsers) UpdatePassword(_ context.Context, id, hash string) error {
	_, err := f.update(id, func(u *models.User) { u.Password = hash })
	return err
}

func (f fakeUsers) Channel(_ context.Context, username, actor string) (models.ChannelProfile, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	for _, u := range f.w.users {
		if u.Username != username {
			continue
		}
		p := models.ChannelProfile{ID: u.ID, Username: u.Username, FullName: u.FullName, Email: u.Email, Avatar: u.Avatar, CoverImage: u.CoverImage}
		for k := range f.w.subs {
			if k.channel == u.ID {
				p.SubscribersCount++
				if actor != "" && k.subscriber == actor {
					p.IsSubscribed = true
				}
			}
			if k.subscriber == u.ID {
				p.ChannelsSubscribedToCount++
			}
		}
		return p, nil
	}
	return models.ChannelProfile{}, repositories.ErrNotFound
}

func (f fakeUsers) WatchHistory(_ context.Context, userID string, window query.Window) (query.Page[models.VideoView], error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	var out []models.VideoView
	for _, id := range f.w.history[userID] {
		if v, ok := f.w.videos[id]; ok {
			out = append(out, f.w.videoViewLocked(v, userID))
		}
	}
	return slicePage(out, window).WithLabels("videos", "totalVideos"), nil
}

func (f fakeUsers) SaveRefreshToken(_ context.Context, userID, token string) error {
	_, err := f.update(userID, func(u *models.User) { u.RefreshToken = &token })
	return err
}

func (f fakeUsers) RefreshToken(ctx context.Context, userID string) (string, error) {
	u, err := f.FindByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if u.RefreshToken == nil {
		return "", auth.ErrSessionNotFound
	}
	return *u.RefreshToken, nil
}

func (f fakeUsers) ClearRefreshToken(_ context.Context, userID string) error {
	_, err := f.update(userID, func(u *models.User) { u.RefreshToken = nil })
	return err
}

type fakeVideos struct{ w *world }

func (f fakeVideos) Create(_ context.Context, video models.Video) error {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	if _, ok := f.w.users[video.OwnerID]; !ok {
		return repositories.ErrNotFound
	}
	f.w.videos[video.ID] = video
	return nil
}

func (f fakeVideos) FindByID(_ context.Context, id string) (models.Video, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	v, ok := f.w.videos[id]
	if !ok {
		return models.Video{}, repositories.ErrNotFound
	}
	return v, nil
}

func (f fakeVideos) View(_ context.Context, id, actor string) (models.VideoView, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	v, ok := f.w.videos[id]
	if !ok {
		return models.VideoView{}, repositories.ErrNotFound
	}
	return f.w.videoViewLocked(v, actor), nil
}

func (f fakeVideos) List(_ context.Context, filter repositories.VideoFilter, actor string, s query.Sort, window query.Window) (query.Page[models.VideoView], error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	term := strings.ToLower(filter.Query)
	var out []models.VideoView
	for _, v := range f.w.videos {
		if filter.OwnerID != "" && v.OwnerID != filter.OwnerID {
			continue
		}
		if !filter.IncludeUnpublished && !v.IsPublished {
			continue
		}
		if term != "" && !strings.Contains(strings.ToLower(v.Title+" "+v.Description), term) {
			continue
		}
		out = append(out, f.w.videoViewLocked(v, actor))
	}
	newestFirst(out, func(v models.VideoView) time.Time { return v.CreatedAt }, s)
	return slicePage(out, window).WithLabels("videos", "totalVideos"), nil
}

func (f fakeVideos) Update(_ context.Context, id string, patch repositories.VideoPatch) (models.Video, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	v, ok := f.w.videos[id]
	if !ok {
		return models.Video{}, repositories.ErrNotFound
	}
	if patch.Title != nil {
		v.Title = *patch.Title
	}
	if patch.Description != nil {
		v.Description = *patch.Description
	}
	if patch.Thumbnail != nil {
		v.Thumbnail = *patch.Thumbnail
	}
	f.w.videos[id] = v
	return v, nil
}

func (f fakeVideos) TogglePublished(_ context.Context, id string) (models.Video, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	v, ok := f.w.videos[id]
	if !ok {
		return models.Video{}, repositories.ErrNotFound
	}
	v.IsPublished = !v.IsPublished
	f.w.videos[id] = v
	return v, nil
}

func (f fakeVideos) Delete(_ context.Context, id string) error {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	if _, ok := f.w.videos[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(f.w.videos, id)
	for cid, c := range f.w.comments {
		if c.VideoID == id {
			delete(f.w.comments, cid)
		}
	}
	for k := range f.w.likes {
		if k.kind == models.LikeTargetVideo && k.id == id {
			delete(f.w.likes, k)
		}
	}
	return nil
}

func (f fakeVideos) RecordView(_ context.Context, videoID, viewer string) error {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	v, ok := f.w.videos[videoID]
	if !ok {
		return repositories.ErrNotFound
	}
	v.Views++
	f.w.videos[videoID] = v
	if viewer != "" {
		kept := []string{videoID}
		for _, id := range f.w.history[viewer] {
			if id != videoID {
				kept = append(kept, id)
			}
		}
		f.w.history[viewer] = kept
	}
	return nil
}

func (f fakeVideos) ChannelStats(_ context.Context, channelID string) (models.ChannelStats, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	var stats models.ChannelStats
	for _, v := range f.w.videos {
		if v.OwnerID != channelID {
			continue
		}
		stats.TotalVideos++
		stats.TotalViews += v.Views
		count, _ := f.w.likesLocked(models.LikeTargetVideo, v.ID, "")
		stats.TotalLikes += count
	}
	for k := range f.w.subs {
		if k.channel == channelID {
			stats.TotalSubscribers++
		}
	}
	return stats, nil
}

type fakeComments struct{ w *world }

func (f fakeComments) Create(_ context.Context, c models.Comment) error {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	if _, ok := f.w.videos[c.VideoID]; !ok {
		return repositories.ErrNotFound
	}
	f.w.comments[c.ID] = c
	return nil
}

func (f fakeComments) FindByID(_ context.Context, id string) (models.Comment, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	c, ok := f.w.comments[id]
	if !ok {
		return models.Comment{}, repositories.ErrNotFound
	}
	return c, nil
}

func (f fakeComments) viewLocked(c models.Comment, actor string) models.CommentView {
	count, liked := f.w.likesLocked(models.LikeTargetComment, c.ID, actor)
	return models.CommentView{Comment: c, OwnerDetails: f.w.ownerLocked(c.OwnerID), LikesCount: count, IsLiked: liked}
}

func (f fakeComments) View(_ context.Context, id, actor string) (models.CommentView, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	c, ok := f.w.comments[id]
	if !ok {
		return models.CommentView{}, repositories.ErrNotFound
	}
	return f.viewLocked(c, actor), nil
}

func (f fakeComments) ListForVideo(_ context.Context, videoID, actor string, s query.Sort, window query.Window) (query.Page[models.CommentView], error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	var out []models.CommentView
	for _, c := range f.w.comments {
		if c.VideoID == videoID {
			out = append(out, f.viewLocked(c, actor))
		}
	}
	newestFirst(out, func(c models.CommentView) time.Time { return c.CreatedAt }, s)
	return slicePage(out, window).WithLabels("comments", "totalComments"), nil
}

func (f fakeComments) Update(_ context.Context, id, content string) (models.Comment, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	c, ok := f.w.comments[id]
	if !ok {
		return models.Comment{}, repositories.ErrNotFound
	}
	c.Content = content
	f.w.comments[id] = c
	return c, nil
}

func (f fakeComments) Delete(_ context.Context, id string) error {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	if _, ok := f.w.comments[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(f.w.comments, id)
	return nil
}

type fakeTweets struct{ w *world }

func (f fakeTweets) Create(_ context.Context, t models.Tweet) error {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	f.w.tweets[t.ID] = t
	return nil
}

func (f fakeTweets) FindByID(_ context.Context, id string) (models.Tweet, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	t, ok := f.w.tweets[id]
	if !ok {
		return models.Tweet{}, repositories.ErrNotFound
	}
	return t, nil
}

func (f fakeTweets) viewLocked(t models.Tweet, actor string) models.TweetView {
	count, liked := f.w.likesLocked(models.LikeTargetTweet, t.ID, actor)
	return models.TweetView{Tweet: t, OwnerDetails: f.w.ownerLocked(t.OwnerID), LikesCount: count, IsLiked: liked}
}

func (f fakeTweets) View(_ context.Context, id, actor string) (models.TweetView, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	t, ok := f.w.tweets[id]
	if !ok {
		return models.TweetView{}, repositories.ErrNotFound
	}
	return f.viewLocked(t, actor), nil
}

func (f fakeTweets) ListForOwner(_ context.Context, ownerID, actor string, s query.Sort, window query.Window) (query.Page[models.TweetView], error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	var out []models.TweetView
	for _, t := range f.w.tweets {
		if t.OwnerID == ownerID {
			out = append(out, f.viewLocked(t, actor))
		}
	}
	newestFirst(out, func(t models.TweetView) time.Time { return t.CreatedAt }, s)
	return slicePage(out, window).WithLabels("tweets", "totalTweets"), nil
}

func (f fakeTweets) Update(_ context.Context, id, content string) (models.Tweet, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	t, ok := f.w.tweets[id]
	if !ok {
		return models.Tweet{}, repositories.ErrNotFound
	}
	t.Content = content
	f.w.tweets[id] = t
	return t, nil
}

func (f fakeTweets) Delete(_ context.Context, id string) error {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	if _, ok := f.w.tweets[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(f.w.tweets, id)
	return nil
}

type fakeLikes struct{ w *world }

func (f fakeLikes) Toggle(_ context.Context, actor string, target models.LikeTarget) (bool, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	key := likeKey{kind: target.Kind, id: target.ID, actor: actor}
	if _, ok := f.w.likes[key]; ok {
		delete(f.w.likes, key)
		return false, nil
	}
	f.w.likes[key] = time.Now()
	return true, nil
}

func (f fakeLikes) Count(_ context.Context, target models.LikeTarget) (int64, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	count, _ := f.w.likesLocked(target.Kind, target.ID, "")
	return count, nil
}

func (f fakeLikes) LikedVideos(_ context.Context, actor string, window query.Window) (query.Page[models.VideoView], error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	var out []models.VideoView
	for k := range f.w.likes {
		if k.kind != models.LikeTargetVideo || k.actor != actor {
			continue
		}
		if v, ok := f.w.videos[k.id]; ok && v.IsPublished {
			out = append(out, f.w.videoViewLocked(v, actor))
		}
	}
	return slicePage(out, window).WithLabels("likedVideos", "totalLikedVideos"), nil
}

type fakeSubscriptions struct{ w *world }

func (f fakeSubscriptions) Toggle(_ context.Context, subscriber, channel string) (bool, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	key := subKey{subscriber: subscriber, channel: channel}
	if _, ok := f.w.subs[key]; ok {
		delete(f.w.subs, key)
		return false, nil
	}
	f.w.subs[key] = time.Now()
	return true, nil
}

func (f fakeSubscriptions) CountSubscribers(_ context.Context, channel string) (int64, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	var n int64
	for k := range f.w.subs {
		if k.channel == channel {
			n++
		}
	}
	return n, nil
}

func (f fakeSubscriptions) Subscribers(_ context.Context, channel string, _ query.Sort, window query.Window) (query.Page[models.SubscriberView], error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	var out []models.SubscriberView
	for k, at := range f.w.subs {
		if k.channel != channel {
			continue
		}
		_, back := f.w.subs[subKey{subscriber: channel, channel: k.subscriber}]
		out = append(out, models.SubscriberView{
			ID:                     k.subscriber + ":" + k.channel,
			SubscribedAt:           at,
			Subscriber:             f.w.ownerLocked(k.subscriber),
			SubscribedToSubscriber: back,
		})
	}
	return slicePage(out, window).WithLabels("subscribers", "totalSubscribers"), nil
}

func (f fakeSubscriptions) SubscribedChannels(_ context.Context, subscriber string, _ query.Sort, window query.Window) (query.Page[models.SubscribedChannelView], error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	var out []models.SubscribedChannelView
	for k, at := range f.w.subs {
		if k.subscriber == subscriber {
			out = append(out, models.SubscribedChannelView{ID: k.subscriber + ":" + k.channel, SubscribedAt: at, Channel: f.w.ownerLocked(k.channel)})
		}
	}
	return slicePage(out, window).WithLabels("channels", "totalChannels"), nil
}

type fakePlaylists struct{ w *world }

func (f fakePlaylists) Create(_ context.Context, p models.Playlist) error {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	f.w.playlists[p.ID] = p
	return nil
}

func (f fakePlaylists) FindByID(_ context.Context, id string) (models.Playlist, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	p, ok := f.w.playlists[id]
	if !ok {
		return models.Playlist{}, repositories.ErrNotFound
	}
	return p, nil
}

func (f fakePlaylists) viewLocked(p models.Playlist) models.PlaylistView {
	view := models.PlaylistView{Playlist: p, OwnerDetails: f.w.ownerLocked(p.OwnerID)}
	for _, id := range f.w.entries[p.ID] {
		view.TotalVideos++
		view.TotalViews += f.w.videos[id].Views
	}
	return view
}

func (f fakePlaylists) View(_ context.Context, id string) (models.PlaylistView, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	p, ok := f.w.playlists[id]
	if !ok {
		return models.PlaylistView{}, repositories.ErrNotFound
	}
	return f.viewLocked(p), nil
}

func (f fakePlaylists) Videos(_ context.Context, playlistID, actor string, window query.Window) (query.Page[models.VideoView], error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	var out []models.VideoView
	for _, id := range f.w.entries[playlistID] {
		if v, ok := f.w.videos[id]; ok && v.IsPublished {
			out = append(out, f.w.videoViewLocked(v, actor))
		}
	}
	return slicePage(out, window).WithLabels("videos", "totalVideos"), nil
}

func (f fakePlaylists) ListForOwner(_ context.Context, ownerID string, s query.Sort, window query.Window) (query.Page[models.PlaylistView], error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	var out []models.PlaylistView
	for _, p := range f.w.playlists {
		if p.OwnerID == ownerID {
			out = append(out, f.viewLocked(p))
		}
	}
	newestFirst(out, func(p models.PlaylistView) time.Time { return p.CreatedAt }, s)
	return slicePage(out, window).WithLabels("playlists", "totalPlaylists"), nil
}

func (f fakePlaylists) Update(_ context.Context, id string, patch repositories.PlaylistPatch) (models.Playlist, error) {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	p, ok := f.w.playlists[id]
	if !ok {
		return models.Playlist{}, repositories.ErrNotFound
	}
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	f.w.playlists[id] = p
	return p, nil
}

func (f fakePlaylists) Delete(_ context.Context, id string) error {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	if _, ok := f.w.playlists[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(f.w.playlists, id)
	delete(f.w.entries, id)
	return nil
}

func (f fakePlaylists) AddVideo(_ context.Context, playlistID, videoID string) error {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	for _, id := range f.w.entries[playlistID] {
		if id == videoID {
			return repositories.ErrConflict
		}
	}
	f.w.entries[playlistID] = append(f.w.entries[playlistID], videoID)
	return nil
}

func (f fakePlaylists) RemoveVideo(_ context.Context, playlistID, videoID string) error {
	f.w.mu.Lock()
	defer f.w.mu.Unlock()
	ids := f.w.entries[playlistID]
	for i, id := range ids {
		if id == videoID {
			f.w.entries[playlistID] = append(ids[:i:i], ids[i+1:]...)
			return nil
		}
	}
	return repositories.ErrNotFound
}

// fakeUploader removes the temp file like the real uploader and returns a CDN url.
type fakeUploader struct {
	mu       sync.Mutex
	err      error
	uploaded []string
}

func (u *fakeUploader) Upload(_ context.Context, localPath string, kind media.Kind) (media.Asset, error) {
	defer os.Remove(localPath)
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.err != nil {
		return media.Asset{}, u.err
	}
	url := "https://cdn.test/" + string(kind) + "/" + filepath.Base(localPath)
	u.uploaded = append(u.uploaded, url)
	asset := media.Asset{URL: url}
	if kind == media.KindVideo {
		asset.Duration = 42.5
	}
	return asset, nil
}

type fakeJanitor struct {
	mu        sync.Mutex
	locations []string
}

func (j *fakeJanitor) Enqueue(_ context.Context, locations ...string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	for _, l := range locations {
		if l != "" {
			j.locations = append(j.locations, l)
		}
	}
	return nil
}

func (j *fakeJanitor) queued() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.locations...)
}

// slicePage windows an already ordered fake listing.
func slicePage[T any](all []T, window query.Window) query.Page[T] {
	window = query.NewWindow(strconv.Itoa(window.Page), strconv.Itoa(window.Limit))
	start := window.Offset()
	if start > len(all) {
		start = len(all)
	}
	end := start + window.Limit
	if end > len(all) {
		end = len(all)
	}
	return query.Paginate(all[start:end], int64(len(all)), window)
}
