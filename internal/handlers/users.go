package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/videotube/backend/internal/apperr"
	"github.com/videotube/backend/internal/auth"
	"github.com/videotube/backend/internal/logging"
	"github.com/videotube/backend/internal/media"
	"github.com/videotube/backend/internal/middleware"
	"github.com/videotube/backend/internal/models"
	"github.com/videotube/backend/internal/repositories"
	"github.com/videotube/backend/internal/validation"
)

// RefreshTokenCookie is the cookie holding the refresh token.
const RefreshTokenCookie = "refreshToken"

// UserHandler implements account, session and channel endpoints.
type UserHandler struct {
	Users    UserStore
	Sessions SessionManager
	Uploader MediaUploader
	Janitor  MediaJanitor

	UploadDir      string
	MaxUploadBytes int64
	CookieSecure   bool
	NowFunc        func() time.Time
}

type registerRequest struct {
	FullName string `json:"fullName" validate:"notblank"`
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"notblank,max=64"`
	Password string `json:"password" validate:"required,min=8"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required_without=Username"`
	Username string `json:"username"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8,nefield=OldPassword"`
}

type updateAccountRequest struct {
	FullName string `json:"fullName" validate:"notblank"`
	Email    string `json:"email" validate:"required,email"`
}

type sessionResponse struct {
	User         *models.User `json:"user,omitempty"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
}

// Register handles POST /api/v1/users/register.
func (h UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	up := h.uploads()
	if err := up.parse(w, r); err != nil {
		writeError(ctx, w, err, "user")
		return
	}
	defer cleanup(r)

	req := registerRequest{
		FullName: strings.TrimSpace(r.FormValue("fullName")),
		Email:    strings.ToLower(strings.TrimSpace(r.FormValue("email"))),
		Username: strings.ToLower(strings.TrimSpace(r.FormValue("username"))),
		Password: r.FormValue("password"),
	}
	if err := validation.Struct(req); err != nil {
		writeError(ctx, w, err, "user")
		return
	}

	if _, err := h.Users.FindByLogin(ctx, req.Email, req.Username); err == nil {
		logger.Warn("register existing account", "email", req.Email, "username", req.Username)
		writeError(ctx, w, apperr.Conflict("user with email or username already exists"), "user")
		return
	} else if !errors.Is(err, repositories.ErrNotFound) {
		writeError(ctx, w, err, "user")
		return
	}

	avatarPath, err := up.save(r, "avatar")
	if err != nil {
		writeError(ctx, w, err, "user")
		return
	}
	if avatarPath == "" {
		writeError(ctx, w, apperr.Validation(validation.InvalidRequest, "avatar file is required"), "user")
		return
	}
	coverPath, err := up.save(r, "coverImage")
	if err != nil {
		media.Discard(ctx, avatarPath)
		writeError(ctx, w, err, "user")
		return
	}

	avatar, err := storeUpload(ctx, h.Uploader, avatarPath, media.KindImage, "avatar")
	if err != nil {
		if coverPath != "" {
			media.Discard(ctx, coverPath)
		}
		writeError(ctx, w, err, "user")
		return
	}
	var cover media.Asset
	if coverPath != "" {
		if cover, err = storeUpload(ctx, h.Uploader, coverPath, media.KindImage, "cover image"); err != nil {
			discardStored(ctx, h.Janitor, avatar.URL)
			writeError(ctx, w, err, "user")
			return
		}
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		discardStored(ctx, h.Janitor, avatar.URL, cover.URL)
		logger.Error("register failed to hash password", "error", err)
		writeError(ctx, w, err, "user")
		return
	}

	now := nowUTC(h.NowFunc)
	user := models.User{
		ID:         uuid.NewString(),
		Username:   req.Username,
		Email:      req.Email,
		FullName:   req.FullName,
		Avatar:     avatar.URL,
		CoverImage: cover.URL,
		Password:   string(hashed),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := h.Users.Create(ctx, user); err != nil {
		discardStored(ctx, h.Janitor, avatar.URL, cover.URL)
		if errors.Is(err, repositories.ErrConflict) {
			writeError(ctx, w, apperr.Conflict("user with email or username already exists"), "user")
			return
		}
		writeError(ctx, w, err, "user")
		return
	}

	logger.Info("user registered", "user_id", user.ID, "username", user.Username)
	respondOK(ctx, w, http.StatusCreated, user, "user registered successfully")
}

// Login handles POST /api/v1/users/login.
func (h UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, w, err, "user")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Username = strings.ToLower(strings.TrimSpace(req.Username))
	if err := validation.Struct(req); err != nil {
		writeError(ctx, w, apperr.Validation(validation.InvalidRequest, "username or email and password are required"), "user")
		return
	}

	user, err := h.Users.FindByLogin(ctx, req.Email, req.Username)
	if err != nil {
		if !errors.Is(err, repositories.ErrNotFound) {
			writeError(ctx, w, err, "user")
			return
		}
		logger.Warn("login unknown account", "email", req.Email, "username", req.Username)
		writeError(ctx, w, apperr.Unauthenticated("invalid user credentials"), "user")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		logger.Warn("login password mismatch", "user_id", user.ID)
		writeError(ctx, w, apperr.Unauthenticated("invalid user credentials"), "user")
		return
	}

	tokens, err := h.Sessions.Issue(ctx, user.ID)
	if err != nil {
		logger.Error("failed to issue session", "error", err, "user_id", user.ID)
		writeError(ctx, w, err, "session")
		return
	}

	h.setSessionCookies(w, tokens)
	respondOK(ctx, w, http.StatusOK, sessionResponse{User: &user, AccessToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken}, "user logged in successfully")
}

// Logout handles POST /api/v1/users/logout.
func (h UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := middleware.ActorFromContext(ctx)
	if err := requireActor(actor); err != nil {
		writeError(ctx, w, err, "user")
		return
	}

	if err := h.Sessions.Revoke(ctx, actor); err != nil {
		writeError(ctx, w, err, "user")
		return
	}
	h.clearSessionCookies(w)
	respondOK(ctx, w, http.StatusOK, struct{}{}, "user logged out")
}

// RefreshToken handles POST /api/v1/users/refresh-token. The token is read
// from the refresh cookie first, then from the JSON body.
func (h UserHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	token := ""
	if c, err := r.Cookie(RefreshTokenCookie); err == nil {
		token = c.Value
	}
	if token == "" && r.ContentLength != 0 {
		var req refreshRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(ctx, w, err, "session")
			return
		}
		token = strings.TrimSpace(req.RefreshToken)
	}
	if token == "" {
		writeError(ctx, w, apperr.Unauthenticated("unauthorized request"), "session")
		return
	}

	tokens, userID, err := h.Sessions.Refresh(ctx, token)
	if err != nil {
		if errors.Is(err, auth.ErrSessionNotFound) || errors.Is(err, auth.ErrTokenExpired) || errors.Is(err, auth.ErrInvalidToken) {
			logger.Warn("refresh token rejected", "error", err)
			writeError(ctx, w, apperr.Unauthenticated("refresh token is expired or used"), "session")
			return
		}
		writeError(ctx, w, err, "session")
		return
	}

	logger.Debug("session refreshed", "user_id", userID)
	h.setSessionCookies(w, tokens)
	respondOK(ctx, w, http.StatusOK, sessionResponse{AccessToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken}, "access token refreshed")
}

// ChangePassword handles POST /api/v1/users/change-password.
func (h UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, w, err, "user")
		return
	}
	if err := validation.Struct(req); err != nil {
		writeError(ctx, w, err, "user")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.OldPassword)); err != nil {
		writeError(ctx, w, apperr.Validation("invalid old password"), "user")
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		writeError(ctx, w, err, "user")
		return
	}
	if err := h.Users.UpdatePassword(ctx, user.ID, string(hashed)); err != nil {
		writeError(ctx, w, err, "user")
		return
	}
	respondOK(ctx, w, http.StatusOK, struct{}{}, "password changed successfully")
}

// CurrentUser handles GET /api/v1/users/current-user.
func (h UserHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	respondOK(r.Context(), w, http.StatusOK, user, "current user fetched successfully")
}

// UpdateAccount handles PATCH /api/v1/users/update-account.
func (h UserHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := middleware.ActorFromContext(ctx)
	if err := requireActor(actor); err != nil {
		writeError(ctx, w, err, "user")
		return
	}

	var req updateAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, w, err, "user")
		return
	}
	req.FullName = strings.TrimSpace(req.FullName)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validation.Struct(req); err != nil {
		writeError(ctx, w, err, "user")
		return
	}

	user, err := h.Users.UpdateAccount(ctx, actor, req.FullName, req.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			writeError(ctx, w, apperr.Conflict("email is already in use"), "user")
			return
		}
		writeError(ctx, w, err, "user")
		return
	}
	respondOK(ctx, w, http.StatusOK, user, "account details updated successfully")
}

// UpdateAvatar handles PATCH /api/v1/users/avatar.
func (h UserHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	h.replaceImage(w, r, "avatar", h.Users.UpdateAvatar, func(u models.User) string { return u.Avatar })
}

// UpdateCoverImage handles PATCH /api/v1/users/cover-image.
func (h UserHandler) UpdateCoverImage(w http.ResponseWriter, r *http.Request) {
	h.replaceImage(w, r, "coverImage", h.Users.UpdateCoverImage, func(u models.User) string { return u.CoverImage })
}

func (h UserHandler) replaceImage(w http.ResponseWriter, r *http.Request, field string,
	update func(ctx context.Context, id, url string) (models.User, error), current func(models.User) string) {
	ctx := r.Context()
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	up := h.uploads()
	if err := up.parse(w, r); err != nil {
		writeError(ctx, w, err, "user")
		return
	}
	defer cleanup(r)

	path, err := up.save(r, field)
	if err != nil {
		writeError(ctx, w, err, "user")
		return
	}
	if path == "" {
		writeError(ctx, w, apperr.Validation(validation.InvalidRequest, field+" file is missing"), "user")
		return
	}

	asset, err := storeUpload(ctx, h.Uploader, path, media.KindImage, field)
	if err != nil {
		writeError(ctx, w, err, "user")
		return
	}

	updated, err := update(ctx, user.ID, asset.URL)
	if err != nil {
		discardStored(ctx, h.Janitor, asset.URL)
		writeError(ctx, w, err, "user")
		return
	}
	discardStored(ctx, h.Janitor, current(user))
	respondOK(ctx, w, http.StatusOK, updated, field+" updated successfully")
}

// Channel handles GET /api/v1/users/c/{username}.
func (h UserHandler) Channel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	username := strings.ToLower(strings.TrimSpace(pathParam(r, "username")))
	if username == "" {
		writeError(ctx, w, apperr.Validation(validation.InvalidRequest, "username is missing"), "channel")
		return
	}

	channel, err := h.Users.Channel(ctx, username, middleware.ActorFromContext(ctx))
	if err != nil {
		writeError(ctx, w, err, "channel")
		return
	}
	respondOK(ctx, w, http.StatusOK, channel, "user channel fetched successfully")
}

// WatchHistory handles GET /api/v1/users/history.
func (h UserHandler) WatchHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := middleware.ActorFromContext(ctx)
	if err := requireActor(actor); err != nil {
		writeError(ctx, w, err, "user")
		return
	}

	page, err := h.Users.WatchHistory(ctx, actor, windowFrom(r))
	if err != nil {
		writeError(ctx, w, err, "user")
		return
	}
	respondOK(ctx, w, http.StatusOK, page, "watch history fetched successfully")
}

func (h UserHandler) currentUser(w http.ResponseWriter, r *http.Request) (models.User, bool) {
	ctx := r.Context()
	actor := middleware.ActorFromContext(ctx)
	if err := requireActor(actor); err != nil {
		writeError(ctx, w, err, "user")
		return models.User{}, false
	}
	user, err := h.Users.FindByID(ctx, actor)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			writeError(ctx, w, apperr.Unauthenticated("invalid access token"), "user")
			return models.User{}, false
		}
		writeError(ctx, w, err, "user")
		return models.User{}, false
	}
	return user, true
}

func (h UserHandler) uploads() uploads {
	return uploads{dir: h.UploadDir, maxBytes: h.MaxUploadBytes}
}

func (h UserHandler) setSessionCookies(w http.ResponseWriter, tokens models.SessionTokens) {
	http.SetCookie(w, h.cookie(middleware.AccessTokenCookie, tokens.AccessToken, tokens.AccessExpiresAt))
	http.SetCookie(w, h.cookie(RefreshTokenCookie, tokens.RefreshToken, tokens.RefreshExpiresAt))
}

func (h UserHandler) clearSessionCookies(w http.ResponseWriter) {
	for _, name := range []string{middleware.AccessTokenCookie, RefreshTokenCookie} {
		c := h.cookie(name, "", time.Unix(0, 0))
		c.MaxAge = -1
		http.SetCookie(w, c)
	}
}

func (h UserHandler) cookie(name, value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}
