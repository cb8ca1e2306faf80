package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	postentity "github.com/vadim/beehiiv-metric/internal/domain/post/entity"
	"github.com/vadim/beehiiv-metric/internal/domain/report/entity"
	"github.com/vadim/beehiiv-metric/internal/domain/report/service"
	"github.com/vadim/beehiiv-metric/internal/httpx/response"
	"github.com/vadim/beehiiv-metric/internal/httpx/upstream/analyzer"
)

// MaxUploadSize is the maximum allowed image upload size (20MB)
const MaxUploadSize = 20 << 20

// AnalysisService is the image-understanding backend
type AnalysisService interface {
	AnalyzeImage(ctx context.Context, in analyzer.ImageInput) (*analyzer.Analysis, error)
	GenerateSummary(ctx context.Context, in analyzer.SummaryInput) (string, error)
}

// AnalysisHandler forwards single analysis and summary requests
type AnalysisHandler struct {
	service  AnalysisService
	maxWidth int
	logger   *slog.Logger
}

// NewAnalysisHandler creates a new analysis handler
func NewAnalysisHandler(s AnalysisService, maxWidth int, logger *slog.Logger) *AnalysisHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalysisHandler{service: s, maxWidth: maxWidth, logger: logger}
}

// RegisterRoutes registers analysis routes
func (h *AnalysisHandler) RegisterRoutes(r chi.Router) {
	r.Post("/analyze-image", h.AnalyzeImage())
	r.Post("/generate-summary", h.GenerateSummary())
}

// AnalysisResponse is the analysis of one image
type AnalysisResponse struct {
	Content   string           `json:"content"`
	Sentiment entity.Sentiment `json:"sentiment"`
}

// AnalyzeImage handles POST /analyze-image
func (h *AnalysisHandler) AnalyzeImage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		img, ok := readImage(w, r, h.maxWidth)
		if !ok {
			return
		}

		out, err := h.service.AnalyzeImage(r.Context(), analyzer.ImageInput{
			Filename:    img.Filename,
			ContentType: img.ContentType,
			Content:     img.Content,
		})
		if err != nil {
			h.logger.Error("image analysis failed", "file", img.Filename, "error", err)
			handleUpstreamError(w, err, entity.ErrAnalyzerFailure)
			return
		}

		response.OK(w, AnalysisResponse{
			Content:   out.Content,
			Sentiment: entity.ParseSentiment(out.Sentiment),
		})
	}
}

// summaryEmailData tolerates numbers sent as strings
type summaryEmailData struct {
	OpenRate        postentity.Percent `json:"openRate"`
	ClickRate       postentity.Percent `json:"clickRate"`
	UnsubscribeRate postentity.Percent `json:"unsubscribeRate"`
}

// SummaryResponse is the generated summary
type SummaryResponse struct {
	Summary string `json:"summary"`
}

// GenerateSummary handles POST /generate-summary
// Form fields: postTitle, emailData (JSON object), analyses (JSON array of strings).
func (h *AnalysisHandler) GenerateSummary() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)
		if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
			if !errors.Is(err, http.ErrNotMultipart) {
				response.BadRequest(w, "invalid form")
				return
			}
			if err := r.ParseForm(); err != nil {
				response.BadRequest(w, "invalid form")
				return
			}
		}

		var email summaryEmailData
		if raw := r.FormValue("emailData"); raw != "" {
			if err := json.Unmarshal([]byte(raw), &email); err != nil {
				response.BadRequest(w, "emailData must be a JSON object")
				return
			}
		}

		analyses := []string{}
		if raw := r.FormValue("analyses"); raw != "" {
			if err := json.Unmarshal([]byte(raw), &analyses); err != nil {
				response.BadRequest(w, "analyses must be a JSON array of strings")
				return
			}
		}

		summary, err := h.service.GenerateSummary(r.Context(), analyzer.SummaryInput{
			PostTitle: r.FormValue("postTitle"),
			EmailData: analyzer.EmailData{
				OpenRate:        email.OpenRate.Float(),
				ClickRate:       email.ClickRate.Float(),
				UnsubscribeRate: email.UnsubscribeRate.Float(),
			},
			Analyses: analyses,
		})
		if err != nil {
			h.logger.Error("summary generation failed", "error", err)
			handleUpstreamError(w, err, entity.ErrSummaryFailure)
			return
		}

		response.OK(w, SummaryResponse{Summary: summary})
	}
}

// readImage reads and normalises the multipart "image" field. It writes the
// error response itself and reports whether the caller should continue.
func readImage(w http.ResponseWriter, r *http.Request, maxWidth int) (entity.UploadedImage, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)
	if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
		response.BadRequest(w, "file too large or invalid multipart form")
		return entity.UploadedImage{}, false
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		response.BadRequest(w, "missing image in request")
		return entity.UploadedImage{}, false
	}
	defer file.Close()

	img, err := service.NormalizeImage(file, header.Filename, maxWidth)
	if err != nil {
		handleDomainError(w, err)
		return entity.UploadedImage{}, false
	}
	return img, true
}
