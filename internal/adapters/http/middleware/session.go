package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"

	"go.uber.org/zap"

	"redline/internal/domain/session"
)

// SessionCookieName holds the browser session id.
const SessionCookieName = "redline_session"

type contextKey string

const sessionContextKey contextKey = "session"

// BrowserSessions scopes server-side state to one browsing session. The
// cookie carries a random id; stores only ever see its keyed hash.
type BrowserSessions struct {
	hashKey []byte
	secure  bool
	path    string
	log     *zap.Logger
}

// NewBrowserSessions creates the session scoper. path is the cookie path,
// normally the mount point of the app.
// PRE: len(hashKey) >= 32
func NewBrowserSessions(hashKey []byte, secure bool, path string, log *zap.Logger) *BrowserSessions {
	if path == "" {
		path = "/"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &BrowserSessions{hashKey: hashKey, secure: secure, path: path, log: log}
}

// Hash returns the storage key for a raw session id.
func (b *BrowserSessions) Hash(id string) string {
	mac := hmac.New(sha256.New, b.hashKey)
	mac.Write([]byte(id))
	return hex.EncodeToString(mac.Sum(nil))
}

// cookie builds the session cookie. It has no MaxAge or Expires so it
// ends with the browsing session. Lax keeps it on the top-level return
// from the payment gateway, which Strict would drop.
func (b *BrowserSessions) cookie(id string) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    id,
		Path:     b.path,
		HttpOnly: true,
		Secure:   b.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// Session returns middleware that resolves the browser session, minting a
// new one when the cookie is missing or malformed, and stores the hashed
// id in the request context.
func Session(b *BrowserSessions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := ""
			if c, err := r.Cookie(SessionCookieName); err == nil && session.ValidID(c.Value) {
				id = c.Value
			}
			if id == "" {
				fresh, err := session.NewID()
				if err != nil {
					b.log.Error("session_id_failed", zap.Error(err))
					http.Error(w, "internal server error", http.StatusInternalServerError)
					return
				}
				id = fresh
				http.SetCookie(w, b.cookie(id))
			}
			next.ServeHTTP(w, r.WithContext(WithSessionID(r.Context(), b.Hash(id))))
		})
	}
}

// WithSessionID returns a context carrying the hashed session id.
func WithSessionID(ctx context.Context, sid string) context.Context {
	return context.WithValue(ctx, sessionContextKey, sid)
}

// SessionIDFromContext returns the hashed session id set by Session.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	sid, ok := ctx.Value(sessionContextKey).(string)
	return sid, ok && sid != ""
}
