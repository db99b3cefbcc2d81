package api

import (
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/garnizeh/labbook/internal/auth"
)

// SessionCookieName is the cookie carrying the signed session token.
const SessionCookieName = "labbook_session"

const (
	loginPath     = "/admin/login"
	dashboardPath = "/admin"
)

type AuthHandler struct {
	auth         Authenticator
	cookieSecure bool
	staticDir    string
}

// NewAuthHandler creates a new AuthHandler with required dependencies.
func NewAuthHandler(a Authenticator, cookieSecure bool, staticDir string) *AuthHandler {
	return &AuthHandler{auth: a, cookieSecure: cookieSecure, staticDir: staticDir}
}

type loginRequest struct {
	Username *string `json:"username"`
	Password *string `json:"password"`
}

type loginResponse struct {
	Message  string `json:"message"`
	Redirect string `json:"redirect"`
}

type checkAuthResponse struct {
	Authenticated bool   `json:"authenticated"`
	Username      string `json:"username,omitempty"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Username == nil || req.Password == nil {
		writeError(w, "Username and password are required", http.StatusBadRequest)
		return
	}

	sess, err := h.auth.Login(r.Context(), *req.Username, *req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		writeError(w, "Invalid username or password", http.StatusUnauthorized)
		return
	}
	if err != nil {
		logger.Error("login failed", slog.Any("err", err))
		writeError(w, "An error occurred during login. Please try again.", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		MaxAge:   int(h.auth.TTL().Seconds()),
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, loginResponse{Message: "Login successful", Redirect: dashboardPath}, http.StatusOK)
}

// LoginPage serves the login form, or sends a signed-in admin to the dashboard.
func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	if _, err := authenticate(r, h.auth); err == nil {
		http.Redirect(w, r, dashboardPath, http.StatusFound)
		return
	}
	h.servePage(w, r, "login.html")
}

func (h *AuthHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	h.servePage(w, r, "dashboard.html")
}

// Logout drops the session named by the cookie, if any, clears the cookie
// and returns to the home page.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(SessionCookieName); err == nil {
		if err := h.auth.Logout(r.Context(), c.Value); err != nil && !errors.Is(err, auth.ErrUnauthenticated) {
			logger.Error("logout failed", slog.Any("err", err))
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *AuthHandler) CheckAuth(w http.ResponseWriter, r *http.Request) {
	admin, err := authenticate(r, h.auth)
	if errors.Is(err, auth.ErrUnauthenticated) {
		writeJSON(w, checkAuthResponse{Authenticated: false}, http.StatusUnauthorized)
		return
	}
	if err != nil {
		logger.Error("check auth failed", slog.Any("err", err))
		writeError(w, "Error checking authentication status", http.StatusInternalServerError)
		return
	}

	writeJSON(w, checkAuthResponse{Authenticated: true, Username: admin.Username}, http.StatusOK)
}

func (h *AuthHandler) servePage(w http.ResponseWriter, r *http.Request, name string) {
	path := filepath.Join(h.staticDir, "admin", name)
	if !fileExists(path) {
		logger.Error("admin page missing", slog.String("path", path))
		writeError(w, "Error loading page", http.StatusInternalServerError)
		return
	}
	http.ServeFile(w, r, path)
}
