package http

import (
	"context"
	"fmt"
	"time"

	postentity "github.com/vadim/beehiiv-metric/internal/domain/post/entity"
	"github.com/vadim/beehiiv-metric/internal/domain/report/entity"
	"github.com/vadim/beehiiv-metric/internal/session"
)

// sessionState reads and writes the documents kept per browser session
type sessionState struct {
	store SessionStore
	ttl   time.Duration
}

func (s sessionState) selectedPost(ctx context.Context) (*postentity.Post, error) {
	var post postentity.Post
	ok, err := s.store.GetJSON(ctx, s.key(ctx, session.KeyPost), &post)
	if err != nil {
		return nil, fmt.Errorf("reading selected post: %w", err)
	}
	if !ok {
		return nil, postentity.ErrNoPostSelected
	}
	return &post, nil
}

func (s sessionState) selectPost(ctx context.Context, post *postentity.Post) error {
	return s.store.SetJSON(ctx, s.key(ctx, session.KeyPost), post, s.ttl)
}

func (s sessionState) lastReport(ctx context.Context) (*entity.ReportData, error) {
	var report entity.ReportData
	ok, err := s.store.GetJSON(ctx, s.key(ctx, session.KeyReport), &report)
	if err != nil {
		return nil, fmt.Errorf("reading report: %w", err)
	}
	if !ok {
		return nil, entity.ErrReportNotFound
	}
	return &report, nil
}

// saveReport stores a report without image bytes; those stay in the workspace
func (s sessionState) saveReport(ctx context.Context, report *entity.ReportData) error {
	return s.store.SetJSON(ctx, s.key(ctx, session.KeyReport), report, s.ttl)
}

func (s sessionState) clear(ctx context.Context, names ...string) error {
	for _, name := range names {
		if err := s.store.Delete(ctx, s.key(ctx, name)); err != nil {
			return fmt.Errorf("clearing %s: %w", name, err)
		}
	}
	return nil
}

func (s sessionState) key(ctx context.Context, name string) string {
	return session.Key(session.IDFromContext(ctx), name)
}
