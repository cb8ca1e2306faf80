package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vadim/beehiiv-metric/internal/domain/report/entity"
	"github.com/vadim/beehiiv-metric/internal/domain/report/policy"
	"github.com/vadim/beehiiv-metric/internal/domain/report/service"
	"github.com/vadim/beehiiv-metric/internal/httpx/response"
	"github.com/vadim/beehiiv-metric/internal/session"
)

// ReportPolicy defines the interface for report operations
// Interface is defined by consumer (handler), not provider (policy)
type ReportPolicy interface {
	Generate(ctx context.Context, in policy.GenerateInput) (*entity.ReportData, error)
	AnalyzeImage(ctx context.Context, images *service.ImageSet, id string) (entity.UploadedImage, error)
}

// ReportHandler handles reader-reply uploads and report generation for the selected post
type ReportHandler struct {
	policy     ReportPolicy
	state      sessionState
	workspaces ImageWorkspaces
	exporter   Exporter
	maxWidth   int
	logger     *slog.Logger
}

// ReportHandlerConfig holds the dependencies of a ReportHandler
type ReportHandlerConfig struct {
	Policy        ReportPolicy
	Store         SessionStore
	TTL           time.Duration
	Workspaces    ImageWorkspaces
	Exporter      Exporter
	MaxImageWidth int
	Logger        *slog.Logger
}

// NewReportHandler creates a new report handler
func NewReportHandler(cfg ReportHandlerConfig) *ReportHandler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &ReportHandler{
		policy:     cfg.Policy,
		state:      sessionState{store: cfg.Store, ttl: cfg.TTL},
		workspaces: cfg.Workspaces,
		exporter:   cfg.Exporter,
		maxWidth:   cfg.MaxImageWidth,
		logger:     cfg.Logger,
	}
}

// RegisterRoutes registers report routes
func (h *ReportHandler) RegisterRoutes(r chi.Router) {
	r.Route("/report", func(r chi.Router) {
		r.Get("/", h.Get())
		r.Post("/", h.Generate())
		r.Get("/export.pdf", h.Export())

		r.Route("/images", func(r chi.Router) {
			r.Get("/", h.ListImages())
			r.Post("/", h.UploadImage())
			r.Delete("/{id}", h.DeleteImage())
			r.Post("/{id}/analyze", h.AnalyzeImage())
		})
	})
}

// UploadImage handles POST /report/images
func (h *ReportHandler) UploadImage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		img, ok := readImage(w, r, h.maxWidth)
		if !ok {
			return
		}

		added := h.images(r).Add(img)
		h.logger.Info("image uploaded", "id", added.ID, "file", added.Filename, "bytes", added.Size)

		response.Created(w, added)
	}
}

// ListImagesResponse is the uploaded images of the session, in upload order
type ListImagesResponse struct {
	Images []entity.UploadedImage `json:"images"`
}

// ListImages handles GET /report/images
func (h *ReportHandler) ListImages() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.OK(w, ListImagesResponse{Images: h.images(r).List()})
	}
}

// DeleteImage handles DELETE /report/images/{id}
func (h *ReportHandler) DeleteImage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.images(r).Remove(chi.URLParam(r, "id")); err != nil {
			handleDomainError(w, err)
			return
		}
		response.NoContent(w)
	}
}

// AnalyzeImage handles POST /report/images/{id}/analyze
// A failed analysis is not an error: the image gets the fallback analysis.
func (h *ReportHandler) AnalyzeImage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		img, err := h.policy.AnalyzeImage(r.Context(), h.images(r), chi.URLParam(r, "id"))
		if err != nil {
			handleDomainError(w, err)
			return
		}
		response.OK(w, img)
	}
}

// Generate handles POST /report
// Analyzes pending images, summarises them and assembles the report of the selected post.
func (h *ReportHandler) Generate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		post, err := h.state.selectedPost(ctx)
		if err != nil {
			handleDomainError(w, err)
			return
		}

		var previous string
		if last, err := h.state.lastReport(ctx); err == nil && last.PostID == post.ID {
			previous = last.SummaryAnalysis
		}

		report, err := h.policy.Generate(ctx, policy.GenerateInput{
			Post:            post,
			Images:          h.images(r),
			PreviousSummary: previous,
		})
		if err != nil {
			handleDomainError(w, err)
			return
		}

		if err := h.state.saveReport(ctx, report); err != nil {
			h.logger.Error("failed to store report", "post_id", post.ID, "error", err)
			response.InternalError(w, "failed to store report")
			return
		}

		response.OK(w, report)
	}
}

// Get handles GET /report
func (h *ReportHandler) Get() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := h.state.lastReport(r.Context())
		if err != nil {
			handleDomainError(w, err)
			return
		}
		response.OK(w, report)
	}
}

// Export handles GET /report/export.pdf
func (h *ReportHandler) Export() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := h.state.lastReport(r.Context())
		if err != nil {
			handleDomainError(w, err)
			return
		}

		// stored reports carry no image bytes; take them from the workspace
		images := h.images(r)
		for i, img := range report.Images {
			if current, ok := images.Get(img.ID); ok {
				report.Images[i].Content = current.Content
			}
		}

		doc, err := h.exporter.Report(r.Context(), *report)
		if err != nil {
			h.logger.Error("report export failed", "post_id", report.PostID, "error", err)
			response.InternalError(w, "failed to render PDF")
			return
		}

		response.Attachment(w, doc.Filename, doc.ContentType, doc.Body)
	}
}

func (h *ReportHandler) images(r *http.Request) *service.ImageSet {
	return h.workspaces.Get(session.IDFromContext(r.Context()))
}
