// Package auth manages sessions and authorization middleware.
//
// Two credentials are accepted at the boundary and converge on the same
// SessionUser shape: a signed session cookie (browser clients) and a bearer
// token in the Authorization header (API and machine-to-machine clients,
// see token.go). Business logic never branches on which one was presented.
package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/sessions"
	"github.com/lamnbh/verihub/internal/app/system/apperr"
	"github.com/lamnbh/verihub/internal/app/system/respond"
	"go.uber.org/zap"
)

const (
	isAuthKey     = "is_authenticated"
	accountIDKey  = "account_id"
	usernameKey   = "username"
	emailKey      = "email"
	roleKey       = "role"
	ownerBizKey   = "owner_business_id"
	rememberedKey = "remembered"
)

// SessionUser is what we cache in the session & inject into r.Context().
type SessionUser struct {
	ID              string
	Username        string
	Email           string
	Role            string
	OwnerBusinessID string // set for user-role principals
}

type ctxKey string

const currentUserKey ctxKey = "currentUser"

// CurrentUser returns the authenticated principal and a found flag.
func CurrentUser(r *http.Request) (*SessionUser, bool) {
	u, ok := r.Context().Value(currentUserKey).(*SessionUser)
	return u, ok
}

// SessionManager owns the cookie store and the token service and provides
// the middleware that loads/authorizes the current principal.
type SessionManager struct {
	store       *sessions.CookieStore
	name        string
	shortTTL    time.Duration
	rememberTTL time.Duration
	tokens      *TokenService
	log         *zap.Logger
}

// NewSessionManager initializes the cookie store. The secure flag controls
// whether cookies are marked Secure and which SameSite mode is used: in
// production (secure=true) cookies are Secure + SameSite=None, in local dev
// over http Lax is used so cookies are accepted.
func NewSessionManager(sessionKey, name, domain string, shortTTL, rememberTTL time.Duration, secure bool, tokens *TokenService, logger *zap.Logger) (*SessionManager, error) {
	if sessionKey == "" {
		return nil, fmt.Errorf("session key is empty; provide >=32 random chars")
	}
	if len(sessionKey) < 32 {
		logger.Warn("session key is short; 32+ chars recommended",
			zap.Int("length", len(sessionKey)))
	}
	if shortTTL <= 0 {
		shortTTL = time.Hour
	}
	if rememberTTL <= 0 {
		rememberTTL = 7 * 24 * time.Hour
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

	return &SessionManager{
		store:       store,
		name:        name,
		shortTTL:    shortTTL,
		rememberTTL: rememberTTL,
		tokens:      tokens,
		log:         logger,
	}, nil
}

// TTL returns the session lifetime for the given remember-me choice.
func (m *SessionManager) TTL(remember bool) time.Duration {
	if remember {
		return m.rememberTTL
	}
	return m.shortTTL
}

// Tokens returns the token service used for the bearer path.
func (m *SessionManager) Tokens() *TokenService { return m.tokens }

// SignIn writes the session cookie for u. MaxAge matches the chosen TTL.
func (m *SessionManager) SignIn(w http.ResponseWriter, r *http.Request, u *SessionUser, remember bool) error {
	sess, _ := m.store.Get(r, m.name)
	sess.Values[isAuthKey] = true
	sess.Values[accountIDKey] = u.ID
	sess.Values[usernameKey] = u.Username
	sess.Values[emailKey] = u.Email
	sess.Values[roleKey] = u.Role
	sess.Values[ownerBizKey] = u.OwnerBusinessID
	sess.Values[rememberedKey] = remember
	sess.Options.MaxAge = int(m.TTL(remember).Seconds())
	return sess.Save(r, w)
}

// SignOut issues an immediately-expired cookie.
func (m *SessionManager) SignOut(w http.ResponseWriter, r *http.Request) error {
	sess, _ := m.store.Get(r, m.name)
	sess.Values = map[any]any{}
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}

// LoadSessionUser injects the principal into context if the request carries
// a valid session cookie or bearer token. Requests with neither pass through
// unauthenticated; RequireSignedIn/RequireRole reject them downstream.
func (m *SessionManager) LoadSessionUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if u := m.userFromCookie(r); u != nil {
			next.ServeHTTP(w, withUser(r, u))
			return
		}
		if u := m.userFromBearer(r); u != nil {
			next.ServeHTTP(w, withUser(r, u))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (m *SessionManager) userFromCookie(r *http.Request) *SessionUser {
	sess, err := m.store.Get(r, m.name)
	if err != nil {
		// Tampered or stale cookie: treated as unauthenticated.
		m.log.Debug("session cookie rejected", zap.Error(err))
		return nil
	}
	if isAuth, _ := sess.Values[isAuthKey].(bool); !isAuth {
		return nil
	}
	return &SessionUser{
		ID:              getString(sess, accountIDKey),
		Username:        getString(sess, usernameKey),
		Email:           getString(sess, emailKey),
		Role:            getString(sess, roleKey),
		OwnerBusinessID: getString(sess, ownerBizKey),
	}
}

func (m *SessionManager) userFromBearer(r *http.Request) *SessionUser {
	if m.tokens == nil {
		return nil
	}
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil
	}
	raw := strings.TrimPrefix(header, "Bearer ")
	if raw == header || raw == "" {
		m.log.Debug("malformed authorization header")
		return nil
	}
	u, err := m.tokens.Verify(raw)
	if err != nil {
		// Verify already logged the reason (expired vs bad signature).
		return nil
	}
	return u
}

// RequireSignedIn ensures there is a principal in context, else 401.
func (m *SessionManager) RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r); !ok {
			respond.Error(w, nil, apperr.Unauthorized("authentication required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole ensures the principal holds one of the allowed roles.
// Not signed in is 401; wrong role is 403.
func (m *SessionManager) RequireRole(allowed ...string) func(http.Handler) http.Handler {
	set := make(map[string]struct{}, len(allowed))
	for _, role := range allowed {
		set[strings.ToLower(strings.TrimSpace(role))] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := CurrentUser(r)
			if !ok {
				respond.Error(w, nil, apperr.Unauthorized("authentication required"))
				return
			}
			if _, has := set[strings.ToLower(u.Role)]; !has {
				respond.Error(w, nil, apperr.Forbidden("insufficient role"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithTestUser injects a principal directly into the request context,
// bypassing cookie/token verification. Tests only.
func WithTestUser(r *http.Request, u *SessionUser) *http.Request {
	return withUser(r, u)
}

func withUser(r *http.Request, u *SessionUser) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentUserKey, u))
}

func getString(s *sessions.Session, key string) string {
	if v, ok := s.Values[key].(string); ok {
		return v
	}
	return ""
}
