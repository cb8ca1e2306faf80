package session

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Store is a key-value cache of JSON documents scoped to browser sessions
type Store interface {
	GetJSON(ctx context.Context, key string, dst any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}

// Names of the documents kept per session
const (
	KeyCredentials = "credentials"
	KeyPost        = "post"
	KeyReport      = "report"
)

// Key returns the store key of a session document
func Key(sessionID, name string) string {
	return "session:" + sessionID + ":" + name
}

// NewStore returns a Redis-backed store when redisURL is set and an
// in-process store otherwise.
func NewStore(redisURL, prefix string) (Store, error) {
	redisURL = strings.TrimSpace(redisURL)
	if redisURL == "" {
		return NewMemoryStore(), nil
	}
	s, err := NewRedisStore(redisURL, prefix)
	if err != nil {
		return nil, fmt.Errorf("creating redis session store: %w", err)
	}
	return s, nil
}
