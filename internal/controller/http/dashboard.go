package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"github.com/vadim/beehiiv-metric/internal/domain/metrics"
	"github.com/vadim/beehiiv-metric/internal/domain/post/entity"
	reportentity "github.com/vadim/beehiiv-metric/internal/domain/report/entity"
	"github.com/vadim/beehiiv-metric/internal/export"
	"github.com/vadim/beehiiv-metric/internal/httpx/response"
	"github.com/vadim/beehiiv-metric/internal/httpx/upstream/beehiiv"
)

const (
	// maxDashboardPosts bounds the number of posts one dashboard may compare
	maxDashboardPosts = 100
	fetchConcurrency  = 8
)

// Exporter renders dashboards and reports to PDF
type Exporter interface {
	Dashboard(ctx context.Context, summary metrics.Summary) (*export.Document, error)
	Report(ctx context.Context, report reportentity.ReportData) (*export.Document, error)
}

// DashboardHandler aggregates metrics across posts
type DashboardHandler struct {
	posts       PostSource
	credentials *CredentialResolver
	exporter    Exporter
	validate    *validator.Validate
	logger      *slog.Logger
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(posts PostSource, credentials *CredentialResolver, exporter Exporter, logger *slog.Logger) *DashboardHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DashboardHandler{
		posts:       posts,
		credentials: credentials,
		exporter:    exporter,
		validate:    newValidator(),
		logger:      logger,
	}
}

// RegisterRoutes registers dashboard routes
func (h *DashboardHandler) RegisterRoutes(r chi.Router) {
	r.Route("/dashboard", func(r chi.Router) {
		r.Get("/", h.Get())
		r.Get("/export.pdf", h.Export())
	})
}

// Get handles GET /dashboard
// Query params: post_id (may repeat; all posts of the first page when absent), mode (email, web, combined)
func (h *DashboardHandler) Get() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summary, err := h.summary(r)
		if err != nil {
			handleDomainError(w, err)
			return
		}
		response.OK(w, summary)
	}
}

// Export handles GET /dashboard/export.pdf
func (h *DashboardHandler) Export() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summary, err := h.summary(r)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		doc, err := h.exporter.Dashboard(r.Context(), summary)
		if err != nil {
			h.logger.Error("dashboard export failed", "posts", summary.PostCount, "error", err)
			response.InternalError(w, "failed to render PDF")
			return
		}

		response.Attachment(w, doc.Filename, doc.ContentType, doc.Body)
	}
}

// dashboardQuery is the validated query of a dashboard request
type dashboardQuery struct {
	PostIDs []string `json:"post_id" validate:"max=100,dive,required"`
	Mode    string   `json:"mode" validate:"omitempty,oneof=email web combined"`
}

func (h *DashboardHandler) summary(r *http.Request) (metrics.Summary, error) {
	q := dashboardQuery{
		PostIDs: r.URL.Query()["post_id"],
		Mode:    r.URL.Query().Get("mode"),
	}
	if err := h.validate.Struct(q); err != nil {
		return metrics.Summary{}, err
	}
	mode, err := metrics.ParseMode(q.Mode)
	if err != nil {
		return metrics.Summary{}, err
	}

	creds := h.credentials.Resolve(r)
	if err := h.validate.Struct(creds); err != nil {
		return metrics.Summary{}, err
	}

	posts, err := h.fetch(r.Context(), creds, q.PostIDs)
	if err != nil {
		h.logger.Error("failed to fetch dashboard posts", "publication_id", creds.PublicationID, "error", err)
		return metrics.Summary{}, err
	}

	return metrics.Aggregate(posts, mode), nil
}

// fetch loads the given posts with stats concurrently, keeping their order.
// Without ids it loads the first page of the publication's posts.
func (h *DashboardHandler) fetch(ctx context.Context, creds beehiiv.Credentials, ids []string) ([]entity.Post, error) {
	if len(ids) == 0 {
		list, err := h.posts.ListPosts(ctx, beehiiv.ListPostsInput{
			Credentials: creds,
			Expand:      []string{"stats"},
			Limit:       maxDashboardPosts,
		})
		if err != nil {
			return nil, err
		}
		return list.Data, nil
	}

	posts := make([]entity.Post, len(ids))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			p, err := h.posts.GetPost(ctx, beehiiv.GetPostInput{
				Credentials: creds,
				PostID:      id,
				Expand:      []string{"stats"},
			})
			if err != nil {
				return err
			}
			posts[i] = *p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return posts, nil
}
