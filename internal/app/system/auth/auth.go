// internal/app/system/auth/auth.go
package auth

// Terminology: User Identifiers
//   - UserID / userID / user_id: The MongoDB ObjectID (_id) that uniquely identifies a user record
//   - LoginID / loginID / login_id: The human-readable string users type to log in

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/clarityhealth/claritymdt/internal/app/system/httpjson"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

const (
	isAuthKey = "is_authenticated"
	userIDKey = "user_id"
)

// SessionUser is what we cache in the session & inject into r.Context().
type SessionUser struct {
	ID           string
	Name         string
	LoginID      string
	Role         string
	DepartmentID string
}

type ctxKey string

const currentUserKey ctxKey = "currentUser"

// UserFetcher loads fresh session-user data by user id on each request, so
// role changes and disabled accounts take effect without re-login.
type UserFetcher interface {
	FetchSessionUser(ctx context.Context, userID string) (*SessionUser, error)
}

// SessionManager owns the cookie store and the auth middleware.
type SessionManager struct {
	store   *sessions.CookieStore
	name    string
	log     *zap.Logger
	fetcher UserFetcher
}

// NewSessionManager builds a SessionManager with a signed cookie store.
//
// In production (secure=true), cookies are Secure + SameSite=None so the
// separate front-end origin can send them over HTTPS. In local dev over
// http://localhost, use secure=false so cookies are accepted.
func NewSessionManager(sessionKey, sessionName, domain string, secure bool, logger *zap.Logger) (*SessionManager, error) {
	if sessionKey == "" {
		return nil, fmt.Errorf("session key is empty; provide >=32 random chars")
	}
	if len(sessionKey) < 32 {
		logger.Warn("session key is short; 32+ chars recommended",
			zap.Int("length", len(sessionKey)))
	}

	store := sessions.NewCookieStore([]byte(sessionKey))
	opts := &sessions.Options{
		Domain:   domain,
		Path:     "/",
		Secure:   secure,
		HttpOnly: true,
	}
	if secure {
		opts.SameSite = http.SameSiteNoneMode
	} else {
		opts.SameSite = http.SameSiteLaxMode
	}
	store.Options = opts

	logger.Info("session store initialized",
		zap.Bool("secure", secure),
		zap.String("domain", domain))

	return &SessionManager{store: store, name: sessionName, log: logger}, nil
}

// SetUserFetcher installs the per-request user refresh source.
// Without a fetcher, LoadSessionUser falls back to the values cached in the
// cookie at sign-in time.
func (sm *SessionManager) SetUserFetcher(f UserFetcher) {
	sm.fetcher = f
}

// GetSession returns the request's session, creating a fresh one if absent.
func (sm *SessionManager) GetSession(r *http.Request) (*sessions.Session, error) {
	return sm.store.Get(r, sm.name)
}

// SignIn marks the session authenticated and caches the user's identity.
func (sm *SessionManager) SignIn(w http.ResponseWriter, r *http.Request, u *SessionUser) error {
	sess, _ := sm.store.Get(r, sm.name)
	sess.Values[isAuthKey] = true
	sess.Values[userIDKey] = u.ID
	sess.Values["user_name"] = u.Name
	sess.Values["user_login_id"] = u.LoginID
	sess.Values["user_role"] = u.Role
	sess.Values["user_department_id"] = u.DepartmentID
	return sess.Save(r, w)
}

// SignOut clears the session.
func (sm *SessionManager) SignOut(w http.ResponseWriter, r *http.Request) error {
	sess, _ := sm.store.Get(r, sm.name)
	sess.Values = map[any]any{}
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}

// CurrentUser returns the user & "found?" flag.
func CurrentUser(r *http.Request) (*SessionUser, bool) {
	u, ok := r.Context().Value(currentUserKey).(*SessionUser)
	return u, ok
}

// WithTestUser injects a user into the request context, bypassing the
// session middleware. For handler tests only.
func WithTestUser(r *http.Request, u *SessionUser) *http.Request {
	return withUser(r, u)
}

// LoadSessionUser injects the user into context if they are logged in.
// When a UserFetcher is set, the user record is re-fetched so that role
// changes and disabled accounts take effect immediately; a fetch miss
// (deleted/disabled user) is treated as signed out.
func (sm *SessionManager) LoadSessionUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := sm.store.Get(r, sm.name)
		if err != nil {
			// Bad or stale cookie; continue unauthenticated.
			next.ServeHTTP(w, r)
			return
		}

		if isAuth, _ := sess.Values[isAuthKey].(bool); isAuth {
			id, _ := sess.Values[userIDKey].(string)
			if sm.fetcher != nil {
				if u, err := sm.fetcher.FetchSessionUser(r.Context(), id); err == nil && u != nil {
					r = withUser(r, u)
				}
			} else {
				r = withUser(r, &SessionUser{
					ID:           id,
					Name:         getString(sess, "user_name"),
					LoginID:      getString(sess, "user_login_id"),
					Role:         getString(sess, "user_role"),
					DepartmentID: getString(sess, "user_department_id"),
				})
			}
		}
		next.ServeHTTP(w, r)
	})
}

// RequireSignedIn ensures there is a user in context (set by LoadSessionUser).
// API callers get a 401 JSON body.
func (sm *SessionManager) RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r); ok {
			next.ServeHTTP(w, r)
			return
		}
		httpjson.Unauthorized(w)
	})
}

// RequireRole ensures there is a user with one of the allowed roles in
// context. Unauthenticated callers get 401, wrong-role callers 403.
func (sm *SessionManager) RequireRole(allowed ...string) func(http.Handler) http.Handler {
	set := make(map[string]struct{}, len(allowed))
	for _, role := range allowed {
		set[strings.ToLower(strings.TrimSpace(role))] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := CurrentUser(r)
			if !ok {
				httpjson.Unauthorized(w)
				return
			}
			if _, has := set[strings.ToLower(u.Role)]; !has {
				httpjson.Forbidden(w, "")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// helpers

func withUser(r *http.Request, u *SessionUser) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentUserKey, u))
}

// getString safely extracts a string from a session value.
func getString(s *sessions.Session, key string) string {
	v, _ := s.Values[key].(string)
	return v
}
