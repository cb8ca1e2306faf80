package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/vadim/beehiiv-metric/internal/httpx/upstream/beehiiv"
	"github.com/vadim/beehiiv-metric/internal/session"
)

// Request headers that override the session and server credentials
const (
	HeaderAPIKey        = "X-Beehiiv-Api-Key"
	HeaderPublicationID = "X-Beehiiv-Publication-Id"
)

// SessionStore is the part of the session cache the handlers use
type SessionStore interface {
	GetJSON(ctx context.Context, key string, dst any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// CredentialResolver works out which Beehiiv credentials a request acts with.
// Each field is taken from the request headers, then the session, then the
// server defaults, whichever is set first.
type CredentialResolver struct {
	store    SessionStore
	defaults beehiiv.Credentials
	logger   *slog.Logger
}

// NewCredentialResolver creates a resolver; store may be nil
func NewCredentialResolver(store SessionStore, defaults beehiiv.Credentials, logger *slog.Logger) *CredentialResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &CredentialResolver{store: store, defaults: defaults, logger: logger}
}

// Resolve returns the effective credentials of r
func (c *CredentialResolver) Resolve(r *http.Request) beehiiv.Credentials {
	creds := c.defaults

	if c.store != nil {
		if sid := session.IDFromContext(r.Context()); sid != "" {
			var stored beehiiv.Credentials
			ok, err := c.store.GetJSON(r.Context(), session.Key(sid, session.KeyCredentials), &stored)
			if err != nil {
				c.logger.Warn("failed to read session credentials", "error", err)
			}
			if ok {
				creds = overlay(creds, stored)
			}
		}
	}

	return overlay(creds, beehiiv.Credentials{
		APIKey:        strings.TrimSpace(r.Header.Get(HeaderAPIKey)),
		PublicationID: strings.TrimSpace(r.Header.Get(HeaderPublicationID)),
	})
}

func overlay(base, top beehiiv.Credentials) beehiiv.Credentials {
	if top.APIKey != "" {
		base.APIKey = top.APIKey
	}
	if top.PublicationID != "" {
		base.PublicationID = top.PublicationID
	}
	return base
}
