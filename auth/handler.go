// Package auth implements the browser session bootstrap: login redirect,
// OAuth2 code callback, fragment-token hand-off, and logout. The session it
// establishes is nothing but the provider token in an HttpOnly cookie;
// every API request still re-verifies that token.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/harborline/shipment-tracker/authn"
	"github.com/harborline/shipment-tracker/config"
	"github.com/harborline/shipment-tracker/utils"
)

const (
	// StateCookieName is the cookie name for OAuth state (CSRF)
	StateCookieName = "oauth_state"
	// SessionCookieName is the cookie name for the session token
	SessionCookieName   = "session"
	stateCookieMaxAge   = 600
	sessionCookieMaxAge = 86400 * 7 // 7 days
)

// TokenExchanger exchanges OAuth2 authorization codes for access tokens.
type TokenExchanger interface {
	ExchangeCode(ctx context.Context, code, redirectURI string) (accessToken string, err error)
}

// TokenValidator resolves a token to a verified identity.
type TokenValidator interface {
	Verify(ctx context.Context, token string) (*authn.Identity, error)
}

// Handler handles the authentication flows (login, callback, session, logout).
type Handler struct {
	cfg       *config.Config
	exchanger TokenExchanger
	validator TokenValidator
	logger    *zap.Logger
}

// NewHandler creates a new auth handler
func NewHandler(cfg *config.Config, exchanger TokenExchanger, validator TokenValidator, logger *zap.Logger) *Handler {
	return &Handler{
		cfg:       cfg,
		exchanger: exchanger,
		validator: validator,
		logger:    logger,
	}
}

// HandleLogin redirects to the provider's authorize endpoint
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Auth.BaseURL == "" || h.cfg.Auth.AnonKey == "" {
		h.logger.Error("auth provider not configured")
		_ = utils.WriteInternalServerError(w, "Authentication not configured")
		return
	}

	state, err := generateSecureState()
	if err != nil {
		h.logger.Error("failed to generate state", zap.Error(err))
		_ = utils.WriteInternalServerError(w, "Failed to initiate login")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     StateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   stateCookieMaxAge,
		HttpOnly: true,
		Secure:   h.secureCookies(),
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.buildAuthURL(state), http.StatusFound)
}

// HandleCallback finishes the login. With a code query parameter it runs
// the server-side exchange; without one it serves the hand-off page, since
// providers that return tokens in the URL fragment never reach the server
// with them.
func (h *Handler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		h.serveFragmentHandoff(w)
		return
	}

	state := r.URL.Query().Get("state")
	stateCookie, err := r.Cookie(StateCookieName)
	if err != nil || state == "" || stateCookie.Value != state {
		h.logger.Warn("state check failed on callback")
		h.redirectToLogin(w, r)
		return
	}
	h.clearCookie(w, StateCookieName)

	token, err := h.exchanger.ExchangeCode(r.Context(), code, h.cfg.Auth.RedirectURI)
	if err != nil {
		h.logger.Warn("token exchange failed", zap.Error(err))
		h.redirectToLogin(w, r)
		return
	}

	identity, err := h.validator.Verify(r.Context(), token)
	if err != nil {
		h.logger.Warn("token validation failed", zap.Error(err))
		h.redirectToLogin(w, r)
		return
	}

	h.setSessionCookie(w, token)
	h.logger.Info("session established", zap.String("email", identity.Email))

	redirectURL := h.cfg.Auth.FrontEndURL
	if redirectURL == "" {
		redirectURL = "/"
	}
	http.Redirect(w, r, redirectURL, http.StatusFound)
}

// sessionRequest carries tokens re-posted from the callback page
type sessionRequest struct {
	AccessToken string `json:"access_token"`
}

// HandleSession handles POST /auth/session: validates a fragment-delivered
// token and promotes it to a session cookie.
func (h *Handler) HandleSession(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AccessToken == "" {
		_ = utils.WriteBadRequest(w, "Missing access token", nil)
		return
	}

	identity, err := h.validator.Verify(r.Context(), req.AccessToken)
	if err != nil {
		h.logger.Warn("session token validation failed", zap.Error(err))
		_ = utils.WriteUnauthorized(w, "Invalid token")
		return
	}

	h.setSessionCookie(w, req.AccessToken)
	if err := utils.WriteJSON(w, http.StatusOK, map[string]string{"email": identity.Email}); err != nil {
		h.logger.Error("failed to write session response", zap.Error(err))
	}
}

// HandleLogout clears the session cookie and sends the browser home
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.clearCookie(w, SessionCookieName)

	redirectURL := h.cfg.Auth.FrontEndURL
	if redirectURL == "" {
		redirectURL = "/"
	}
	http.Redirect(w, r, redirectURL, http.StatusFound)
}

// serveFragmentHandoff serves a minimal page that re-posts fragment tokens
// to /auth/session and then moves on to the app.
func (h *Handler) serveFragmentHandoff(w http.ResponseWriter) {
	front := h.cfg.Auth.FrontEndURL
	if front == "" {
		front = "/"
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`<!DOCTYPE html>
<html><head><title>Signing in…</title></head><body>
<script>
(function () {
  var params = new URLSearchParams(window.location.hash.slice(1));
  var token = params.get("access_token");
  var next = ` + jsString(front) + `;
  if (!token) { window.location.replace("/auth/login"); return; }
  fetch("/auth/session", {
    method: "POST",
    headers: { "Content-Type": "application/json" },
    body: JSON.stringify({ access_token: token })
  }).then(function (res) {
    window.location.replace(res.ok ? next : "/auth/login");
  }).catch(function () { window.location.replace("/auth/login"); });
})();
</script>
</body></html>`))
}

func (h *Handler) buildAuthURL(state string) string {
	base := strings.TrimSuffix(h.cfg.Auth.BaseURL, "/") + "/auth/v1/authorize"
	params := url.Values{
		"response_type": {"code"},
		"redirect_to":   {h.cfg.Auth.RedirectURI},
		"state":         {state},
	}
	return base + "?" + params.Encode()
}

func (h *Handler) redirectToLogin(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/auth/login", http.StatusFound)
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   sessionCookieMaxAge,
		HttpOnly: true,
		Secure:   h.secureCookies(),
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies(),
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) secureCookies() bool {
	return strings.HasPrefix(h.cfg.Auth.RedirectURI, "https")
}

func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func generateSecureState() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
