package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/nutriswap/internal/auth"
	"github.com/sakif/nutriswap/internal/model"
	"github.com/sakif/nutriswap/internal/service"
)

const stateCookie = "oauth_state"

// AuthService is what AuthHandler needs from service.AuthService.
type AuthService interface {
	LoginOrRegisterGitHub(ctx context.Context, ghUser *auth.GitHubUser) (*service.AuthResult, error)
	RegisterLocal(ctx context.Context, login, password string) (*service.AuthResult, error)
	LoginLocal(ctx context.Context, login, password string) (*service.AuthResult, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)
}

// OAuthProvider is the GitHub side of the login flow.
type OAuthProvider interface {
	Configured() bool
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.GitHubUser, error)
}

// AuthHandler manages sign-in and sessions.
//
//   - HandleRegister, HandleLogin     → local profiles (login + password)
//   - HandleGitHubLogin               → redirect the browser to GitHub
//   - HandleGitHubCallback            → exchange the code, issue the JWT cookie
//   - HandleLogout                    → clear the JWT cookie
//   - HandleMe                        → the signed-in user's profile
type AuthHandler struct {
	users    AuthService
	github   OAuthProvider
	tokenTTL time.Duration
	logger   *slog.Logger
}

// NewAuthHandler creates an AuthHandler. tokenTTL sets the session cookie
// lifetime and should match the token service.
func NewAuthHandler(users AuthService, github OAuthProvider, tokenTTL time.Duration, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		users:    users,
		github:   github,
		tokenTTL: tokenTTL,
		logger:   logger,
	}
}

type credentialsRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type sessionResponse struct {
	User  *model.User `json:"user"`
	Token string      `json:"token"`
}

// HandleRegister creates a local profile and signs it in.
//
// HTTP: POST /auth/register
// BODY: {"login":"sam","password":"correct-horse"}
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.users.RegisterLocal(r.Context(), req.Login, req.Password)
	if err != nil {
		logFailure(h.logger, r, err)
		writeError(w, err)
		return
	}
	h.startSession(w, result)
	writeJSON(w, http.StatusCreated, sessionResponse{User: result.User, Token: result.Token})
}

// HandleLogin signs in a local profile. The token is set as a cookie and
// also returned in the body for clients that send a Bearer header.
//
// HTTP: POST /auth/login
// BODY: {"login":"sam","password":"correct-horse"}
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.users.LoginLocal(r.Context(), req.Login, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			writeJSON(w, http.StatusUnauthorized, ErrorResponse{
				Error:   "unauthorized",
				Message: "invalid login or password",
			})
			return
		}
		logFailure(h.logger, r, err)
		writeError(w, err)
		return
	}
	h.startSession(w, result)
	writeJSON(w, http.StatusOK, sessionResponse{User: result.User, Token: result.Token})
}

// HandleGitHubLogin redirects the user to GitHub's authorization page.
//
// HTTP: GET /auth/github/login
//
// The random state goes into a short-lived HttpOnly cookie and is compared
// on callback, so only flows started here can complete.
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	if !h.github.Configured() {
		writeJSON(w, http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "GitHub sign-in is not configured",
		})
		return
	}

	state := xid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback completes the OAuth flow.
//
// HTTP: GET /auth/github/callback?code=xxx&state=yyy
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	if !h.github.Configured() {
		writeJSON(w, http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "GitHub sign-in is not configured",
		})
		return
	}

	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" {
		h.logger.Warn("auth callback: missing state cookie")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}
	if r.URL.Query().Get("state") != cookie.Value {
		h.logger.Warn("auth callback: state mismatch",
			slog.String("expected", cookie.Value),
			slog.String("got", r.URL.Query().Get("state")),
		)
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}

	// single use
	http.SetCookie(w, &http.Cookie{
		Name:   stateCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("auth callback: user denied authorization", slog.String("error", errParam))
		http.Redirect(w, r, "/?auth=denied", http.StatusSeeOther)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing OAuth code", http.StatusBadRequest)
		return
	}

	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: GitHub exchange failed", slog.String("error", err.Error()))
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	result, err := h.users.LoginOrRegisterGitHub(r.Context(), ghUser)
	if err != nil {
		h.logger.Error("auth callback: sign-in failed",
			slog.Int64("githubID", ghUser.ID),
			slog.String("error", err.Error()),
		)
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	h.startSession(w, result)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleLogout clears the JWT cookie. The token itself stays valid until it
// expires; without the cookie the browser no longer sends it.
//
// HTTP: POST /auth/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// HandleMe returns the signed-in user's profile.
//
// HTTP: GET /api/me
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	user, err := h.users.GetUserByID(r.Context(), userID)
	if err != nil {
		logFailure(h.logger, r, err)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// startSession sets the JWT cookie. Secure is left to a TLS-terminating
// proxy; local development runs over plain HTTP.
func (h *AuthHandler) startSession(w http.ResponseWriter, result *service.AuthResult) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    result.Token,
		Path:     "/",
		MaxAge:   int(h.tokenTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
