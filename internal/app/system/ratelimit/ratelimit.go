// Package ratelimit bounds login attempts with in-memory sliding
// windows. Attempts are counted per client IP and per target email, so
// one address cannot spray many accounts and one account cannot be
// hammered from many addresses. The windows hold counters only, never
// domain data.
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/lamnbh/verihub/internal/app/system/apperr"
)

// Window counts events per key until the window span elapses, then the
// key starts a fresh window. Safe for concurrent use.
type Window struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   int
	span    time.Duration
}

type bucket struct {
	count   int
	resetAt time.Time
}

// NewWindow creates a window allowing limit events per span per key.
// A background sweep drops expired keys.
func NewWindow(limit int, span time.Duration) *Window {
	w := &Window{
		buckets: make(map[string]*bucket),
		limit:   limit,
		span:    span,
	}
	go w.sweep(span * 2)
	return w
}

// Allow records one event for the key and reports whether it stayed
// within the limit for the current window.
func (w *Window) Allow(key string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	b, ok := w.buckets[key]
	if !ok || now.After(b.resetAt) {
		w.buckets[key] = &bucket{count: 1, resetAt: now.Add(w.span)}
		return true
	}
	if b.count >= w.limit {
		return false
	}
	b.count++
	return true
}

// Reset forgets the key's current window.
func (w *Window) Reset(key string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.buckets, key)
}

func (w *Window) sweep(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for range ticker.C {
		w.mu.Lock()
		now := time.Now()
		for key, b := range w.buckets {
			if now.After(b.resetAt) {
				delete(w.buckets, key)
			}
		}
		w.mu.Unlock()
	}
}

// ClientIP returns the client address of a request, honoring the
// X-Forwarded-For and X-Real-IP headers set by a fronting proxy before
// falling back to RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if ip := strings.TrimSpace(strings.Split(xff, ",")[0]); ip != "" {
			return ip
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// RemoteAddr without a port
		return r.RemoteAddr
	}
	return ip
}

// LoginLimiter pairs an IP window with an email window for the login
// endpoint.
type LoginLimiter struct {
	byIP    *Window
	byEmail *Window
}

// NewLoginLimiter returns a limiter with the default login limits of
// 10 attempts per IP per minute and 5 attempts per email per 5 minutes.
func NewLoginLimiter() *LoginLimiter {
	return NewLoginLimiterWith(10, time.Minute, 5, 5*time.Minute)
}

// NewLoginLimiterWith returns a limiter with explicit limits.
func NewLoginLimiterWith(ipLimit int, ipSpan time.Duration, emailLimit int, emailSpan time.Duration) *LoginLimiter {
	return &LoginLimiter{
		byIP:    NewWindow(ipLimit, ipSpan),
		byEmail: NewWindow(emailLimit, emailSpan),
	}
}

// Check records a login attempt and returns nil when it may proceed.
// A blocked attempt returns Conflict, ready for respond.Error.
func (ll *LoginLimiter) Check(r *http.Request, email string) error {
	if !ll.byIP.Allow(ClientIP(r)) {
		return apperr.Conflict("too many login attempts, wait a minute and retry")
	}
	if email != "" {
		if !ll.byEmail.Allow(emailKey(email)) {
			return apperr.Conflict("too many attempts for this account, wait a few minutes and retry")
		}
	}
	return nil
}

// ResetEmail clears the email window after a successful login.
func (ll *LoginLimiter) ResetEmail(email string) {
	if email != "" {
		ll.byEmail.Reset(emailKey(email))
	}
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
