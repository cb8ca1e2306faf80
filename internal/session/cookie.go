package session

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
)

const (
	cookieName = "beehiiv_metric"
	idValue    = "sid"
)

type ctxKey struct{}

// CookieOptions configure the session cookie
type CookieOptions struct {
	Secret string
	MaxAge int
	Secure bool
}

// Manager issues and reads the session cookie. The cookie carries only a
// random session id; session data lives in a Store.
type Manager struct {
	cookies *sessions.CookieStore
	logger  *slog.Logger
}

// NewManager creates a cookie-backed session manager
func NewManager(opts CookieOptions, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	store := sessions.NewCookieStore([]byte(opts.Secret))
	store.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		MaxAge:   opts.MaxAge,
		SameSite: http.SameSiteLaxMode,
		Secure:   opts.Secure,
	}
	return &Manager{cookies: store, logger: logger}
}

// Middleware makes sure every request has a session id, issuing a new cookie
// when the request carries none (or an invalid one).
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := m.cookies.Get(r, cookieName)
		if err != nil {
			// tampered or rotated-secret cookies get a fresh session
			m.logger.Debug("discarding invalid session cookie", "error", err)
		}

		id, _ := sess.Values[idValue].(string)
		if id == "" {
			id = uuid.NewString()
			sess.Values[idValue] = id
			if err := sess.Save(r, w); err != nil {
				m.logger.Error("failed to save session cookie", "error", err)
			}
		}

		next.ServeHTTP(w, r.WithContext(WithID(r.Context(), id)))
	})
}

// WithID returns a context carrying the session id
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// IDFromContext returns the session id set by Middleware
func IDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}
