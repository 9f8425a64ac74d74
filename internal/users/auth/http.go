// Copyright (c) 2026 Vidora. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/vidora/internal/platform/constants"
	"github.com/taibuivan/vidora/internal/platform/ctxutil"
	requestutil "github.com/taibuivan/vidora/internal/platform/request"
	"github.com/taibuivan/vidora/internal/platform/respond"
)

// # Definitions & Constructors

// HandlerConfig holds transport settings for [Handler].
type HandlerConfig struct {
	// CookieSecure sets the Secure attribute on session cookies.
	CookieSecure bool
	// UploadDir is where multipart files are staged before upload.
	UploadDir string
	// MaxUploadBytes caps the whole registration body.
	MaxUploadBytes int64
}

// Handler implements the account HTTP endpoints.
//
// # Scope
//
// Registration, login, logout, refresh, password change and the current-user
// lookup. The session guard is injected so this package does not construct it.
type Handler struct {
	authService *Service
	guard       func(http.Handler) http.Handler
	config      HandlerConfig
}

// NewHandler constructs a new [Handler].
func NewHandler(service *Service, guard func(http.Handler) http.Handler, config HandlerConfig) *Handler {
	return &Handler{authService: service, guard: guard, config: config}
}

// Routes returns the router mounted at /api/v1/auth.
//
// # Endpoints
//   - POST /register        : Creates a new account (multipart).
//   - POST /login           : Issues tokens and session cookies.
//   - POST /refresh         : Rotates the refresh token.
//   - POST /logout          : Revokes the refresh token (guarded).
//   - POST /change-password : Replaces the password (guarded).
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Post("/register", handler.register)
	router.Post("/login", handler.login)
	router.Post("/refresh", handler.refresh)

	router.Group(func(r chi.Router) {
		r.Use(handler.guard)
		r.Post("/logout", handler.logout)
		r.Post("/change-password", handler.changePassword)
	})

	return router
}

// UserRoutes returns the router mounted at /api/v1/users.
func (handler *Handler) UserRoutes() chi.Router {
	router := chi.NewRouter()
	router.Use(handler.guard)
	router.Get("/me", handler.me)
	return router
}

// # Request Payloads

// refreshRequest accepts both the snake_case and the camelCase field name.
type refreshRequest struct {
	RefreshToken      string `json:"refresh_token"`
	RefreshTokenCamel string `json:"refreshToken"`
}

func (body refreshRequest) token() string {
	if body.RefreshToken != "" {
		return body.RefreshToken
	}
	return body.RefreshTokenCamel
}

/*
register handles POST /api/v1/auth/register.

Request:
  - multipart/form-data: fullname, email, username, password, avatar (file), coverImage (file, optional)

Response:
  - 201: Profile
*/
func (handler *Handler) register(writer http.ResponseWriter, request *http.Request) {
	if err := requestutil.ParseMultipart(writer, request, handler.config.MaxUploadBytes); err != nil {
		respond.Error(writer, request, err)
		return
	}
	defer func() { _ = request.MultipartForm.RemoveAll() }()

	avatarPath, err := requestutil.StageFormFile(request, FormAvatar, handler.config.UploadDir)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	defer handler.discard(request, avatarPath)

	coverImagePath, err := requestutil.StageFormFile(request, FormCoverImage, handler.config.UploadDir)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	defer handler.discard(request, coverImagePath)

	profile, err := handler.authService.Register(request.Context(), RegisterInput{
		FullName:       request.FormValue(FormFullName),
		Email:          request.FormValue(FormEmail),
		Username:       request.FormValue(FormUsername),
		Password:       request.FormValue(FormPassword),
		AvatarPath:     avatarPath,
		CoverImagePath: coverImagePath,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, profile, MessageRegistered)
}

/*
login handles POST /api/v1/auth/login.

Request:
  - Body: LoginInput (email or username, password)

Response:
  - 200: LoginResult, plus accessToken / refreshToken cookies
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input LoginInput
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := handler.authService.Login(request.Context(), input)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.setSessionCookies(writer, result.AccessToken, result.RefreshToken)
	respond.OK(writer, result, MessageLoggedIn)
}

/*
refresh handles POST /api/v1/auth/refresh.

The refresh token is read from the refreshToken cookie, else from the JSON body
("refresh_token" or "refreshToken").
*/
func (handler *Handler) refresh(writer http.ResponseWriter, request *http.Request) {
	var presented string
	if cookie, err := request.Cookie(constants.RefreshTokenCookieName); err == nil {
		presented = cookie.Value
	}

	if presented == "" {
		var body refreshRequest
		if err := requestutil.DecodeOptionalJSON(request, &body); err != nil {
			respond.Error(writer, request, err)
			return
		}
		presented = body.token()
	}

	pair, err := handler.authService.RefreshAccessToken(request.Context(), presented)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.setSessionCookies(writer, pair.AccessToken, pair.RefreshToken)
	respond.OK(writer, pair, MessageRefreshed)
}

// logout handles POST /api/v1/auth/logout.
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.Logout(request.Context(), userID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.clearSessionCookies(writer)
	respond.OK(writer, struct{}{}, MessageLoggedOut)
}

// changePassword handles POST /api/v1/auth/change-password.
func (handler *Handler) changePassword(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input ChangePasswordInput
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.ChangePassword(request.Context(), userID, input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	// The stored refresh token is gone; drop the stale cookie with it.
	http.SetCookie(writer, handler.cookie(constants.RefreshTokenCookieName, "", -1))
	respond.OK(writer, struct{}{}, MessagePasswordChanged)
}

// me handles GET /api/v1/users/me.
func (handler *Handler) me(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	profile, err := handler.authService.CurrentUser(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, profile, MessageCurrentUser)
}

// # Cookies

func (handler *Handler) setSessionCookies(writer http.ResponseWriter, accessToken, refreshToken string) {
	tokens := handler.authService.tokens
	http.SetCookie(writer, handler.cookie(constants.AccessTokenCookieName, accessToken, maxAge(tokens.AccessTTL())))
	http.SetCookie(writer, handler.cookie(constants.RefreshTokenCookieName, refreshToken, maxAge(tokens.RefreshTTL())))
}

func (handler *Handler) clearSessionCookies(writer http.ResponseWriter) {
	http.SetCookie(writer, handler.cookie(constants.AccessTokenCookieName, "", -1))
	http.SetCookie(writer, handler.cookie(constants.RefreshTokenCookieName, "", -1))
}

func (handler *Handler) cookie(name, value string, maxAgeSeconds int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     constants.SessionCookiePath,
		MaxAge:   maxAgeSeconds,
		HttpOnly: true,
		Secure:   handler.config.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	}
}

func maxAge(ttl time.Duration) int {
	return int(ttl.Seconds())
}

// discard removes a staged upload; an empty path is a no-op.
func (handler *Handler) discard(request *http.Request, path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		ctxutil.GetLogger(request.Context()).WarnContext(request.Context(), "staged_upload_cleanup_failed",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
	}
}
