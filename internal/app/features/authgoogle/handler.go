// internal/app/features/authgoogle/handler.go
package authgoogle

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	userstore "github.com/clarityhealth/claritymdt/internal/app/store/users"
	"github.com/clarityhealth/claritymdt/internal/app/system/auditlog"
	"github.com/clarityhealth/claritymdt/internal/app/system/auth"
	"github.com/clarityhealth/claritymdt/internal/app/system/normalize"
	"github.com/clarityhealth/claritymdt/internal/app/system/status"
	"github.com/clarityhealth/claritymdt/internal/app/system/timeouts"
	"github.com/clarityhealth/claritymdt/internal/domain/models"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Handler handles Google OAuth authentication.
type Handler struct {
	Users      *userstore.Store
	Log        *zap.Logger
	SessionMgr *auth.SessionManager
	AuditLog   *auditlog.Logger

	ClientID     string
	ClientSecret string
	RedirectURL  string // e.g., "https://claritymdt.example.org/auth/google/callback"
}

// NewHandler creates a new Google OAuth handler.
func NewHandler(users *userstore.Store, sessionMgr *auth.SessionManager, audit *auditlog.Logger, clientID, clientSecret, baseURL string, logger *zap.Logger) *Handler {
	return &Handler{
		Users:        users,
		Log:          logger,
		SessionMgr:   sessionMgr,
		AuditLog:     audit,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  baseURL + "/auth/google/callback",
	}
}

// oauth2Config returns the Google OAuth2 configuration.
func (h *Handler) oauth2Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     h.ClientID,
		ClientSecret: h.ClientSecret,
		RedirectURL:  h.RedirectURL,
		Scopes: []string{
			"openid",
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: google.Endpoint,
	}
}

// IsConfigured returns true if Google OAuth is configured.
func (h *Handler) IsConfigured() bool {
	return h.ClientID != "" && h.ClientSecret != ""
}

// ServeLogin handles GET /auth/google: stashes a random state in the
// session and redirects to Google's consent screen.
func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	if !h.IsConfigured() {
		h.Log.Warn("Google OAuth not configured")
		http.Redirect(w, r, "/login?error=google_not_configured", http.StatusSeeOther)
		return
	}

	state, err := generateState()
	if err != nil {
		h.Log.Error("failed to generate OAuth state", zap.Error(err))
		http.Redirect(w, r, "/login?error=internal", http.StatusSeeOther)
		return
	}

	sess, _ := h.SessionMgr.GetSession(r)
	sess.Values["oauth_state"] = state
	if err := sess.Save(r, w); err != nil {
		h.Log.Error("failed to save OAuth state", zap.Error(err))
		http.Redirect(w, r, "/login?error=internal", http.StatusSeeOther)
		return
	}

	http.Redirect(w, r, h.oauth2Config().AuthCodeURL(state), http.StatusTemporaryRedirect)
}

// ServeCallback handles GET /auth/google/callback: validates state,
// exchanges the code, resolves the Google identity to a local account,
// and signs the session in.
func (h *Handler) ServeCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.Log.Warn("Google OAuth error",
			zap.String("error", errParam),
			zap.String("description", r.URL.Query().Get("error_description")))
		http.Redirect(w, r, "/login?error=google_denied", http.StatusSeeOther)
		return
	}

	state := r.URL.Query().Get("state")
	sess, _ := h.SessionMgr.GetSession(r)
	saved, _ := sess.Values["oauth_state"].(string)
	delete(sess.Values, "oauth_state")
	_ = sess.Save(r, w)
	if state == "" || state != saved {
		h.Log.Warn("invalid OAuth state parameter")
		http.Redirect(w, r, "/login?error=invalid_state", http.StatusSeeOther)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		h.Log.Warn("missing OAuth code parameter")
		http.Redirect(w, r, "/login?error=invalid_code", http.StatusSeeOther)
		return
	}

	token, err := h.oauth2Config().Exchange(ctx, code)
	if err != nil {
		h.Log.Error("failed to exchange OAuth code", zap.Error(err))
		http.Redirect(w, r, "/login?error=token_exchange", http.StatusSeeOther)
		return
	}

	googleUser, err := fetchGoogleUserInfo(ctx, token)
	if err != nil {
		h.Log.Error("failed to fetch Google user info", zap.Error(err))
		http.Redirect(w, r, "/login?error=user_info", http.StatusSeeOther)
		return
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	u, err := h.Users.GetByLoginID(ctxTimeout, googleUser.Email)
	if err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			h.Log.Info("Google OAuth: no account for email", zap.String("email", googleUser.Email))
			h.AuditLog.LoginFailedUserNotFound(ctx, r, googleUser.Email)
			http.Redirect(w, r, "/login?error=no_account", http.StatusSeeOther)
			return
		}
		h.Log.Error("failed to look up user", zap.Error(err))
		http.Redirect(w, r, "/login?error=internal", http.StatusSeeOther)
		return
	}

	if normalize.AuthMethod(u.AuthMethod) != "google" {
		h.Log.Warn("Google OAuth attempted for non-google account",
			zap.String("login_id", u.LoginID))
		http.Redirect(w, r, "/login?error=auth_method", http.StatusSeeOther)
		return
	}
	if u.Status == status.Disabled {
		h.AuditLog.LoginFailedUserDisabled(ctx, r, u.ID, u.LoginID)
		http.Redirect(w, r, "/login?error=account_disabled", http.StatusSeeOther)
		return
	}

	if err := h.SessionMgr.SignIn(w, r, sessionUserFor(u)); err != nil {
		h.Log.Error("save session failed", zap.Error(err), zap.String("login_id", u.LoginID))
		http.Redirect(w, r, "/login?error=session", http.StatusSeeOther)
		return
	}

	h.AuditLog.LoginSuccess(ctx, r, u.ID, "google", u.LoginID)
	h.Log.Info("user logged in via Google OAuth",
		zap.String("user_id", u.ID.Hex()),
		zap.String("login_id", u.LoginID))

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// googleUserInfo represents user info returned from Google.
type googleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"verified_email"`
	Name          string `json:"name"`
}

// fetchGoogleUserInfo retrieves user information from Google's userinfo endpoint.
func fetchGoogleUserInfo(ctx context.Context, token *oauth2.Token) (*googleUserInfo, error) {
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))

	resp, err := client.Get("https://www.googleapis.com/oauth2/v2/userinfo")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode user info: %w", err)
	}
	return &info, nil
}

func sessionUserFor(u *models.User) *auth.SessionUser {
	su := &auth.SessionUser{
		ID:      u.ID.Hex(),
		Name:    u.FullName,
		LoginID: u.LoginID,
		Role:    u.Role,
	}
	if u.DepartmentID != nil {
		su.DepartmentID = u.DepartmentID.Hex()
	}
	return su
}

// generateState creates a cryptographically secure random state string.
func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
