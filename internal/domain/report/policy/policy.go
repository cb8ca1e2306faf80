package policy

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	postentity "github.com/vadim/beehiiv-metric/internal/domain/post/entity"
	"github.com/vadim/beehiiv-metric/internal/domain/report/entity"
	"github.com/vadim/beehiiv-metric/internal/domain/report/service"
)

// SummaryGenerator defines the interface for the summary-generation service
// This interface is defined here (consumer) not in the upstream package (provider)
type SummaryGenerator interface {
	GenerateSummary(ctx context.Context, in SummaryInput) (string, error)
}

// SummaryInput is what the summary service needs to know about a post
type SummaryInput struct {
	PostTitle       string
	OpenRate        float64
	ClickRate       float64
	UnsubscribeRate float64
	Analyses        []string
}

// Policy orchestrates report use-cases
type Policy struct {
	analysis  *service.Analysis
	summaries SummaryGenerator
	logger    *slog.Logger
	now       func() time.Time
}

// New creates a new report policy
func New(analysis *service.Analysis, summaries SummaryGenerator, logger *slog.Logger) *Policy {
	if logger == nil {
		logger = slog.Default()
	}
	return &Policy{
		analysis:  analysis,
		summaries: summaries,
		logger:    logger,
		now:       time.Now,
	}
}

// GenerateInput represents input for generating a report
type GenerateInput struct {
	Post   *postentity.Post
	Images *service.ImageSet
	// PreviousSummary is reused when there are no images to summarise
	PreviousSummary string
}

// Generate analyzes all pending images, asks for a summary when images are
// present and assembles the report. A failed summary aborts the generation;
// a failed image analysis does not.
func (p *Policy) Generate(ctx context.Context, in GenerateInput) (*entity.ReportData, error) {
	if in.Post == nil {
		return nil, entity.ErrPostRequired
	}
	images := in.Images
	if images == nil {
		images = service.NewImageSet()
	}

	analyzed, err := p.analysis.AnalyzePending(ctx, images)
	if err != nil {
		return nil, fmt.Errorf("waiting for image analyses: %w", err)
	}
	snapshot := images.List()

	summary := in.PreviousSummary
	if len(snapshot) > 0 {
		stats := service.StatsOf(in.Post)

		analyses := make([]string, 0, len(snapshot))
		for _, img := range snapshot {
			if img.Analysis != nil {
				analyses = append(analyses, img.Analysis.Content)
			}
		}

		summary, err = p.summaries.GenerateSummary(ctx, SummaryInput{
			PostTitle:       in.Post.Title,
			OpenRate:        stats.OpenRate,
			ClickRate:       stats.ClickThroughRate,
			UnsubscribeRate: stats.UnsubscribeRate,
			Analyses:        analyses,
		})
		if err != nil {
			p.logger.Error("summary generation failed", "post_id", in.Post.ID, "error", err)
			return nil, fmt.Errorf("%w: %w", entity.ErrSummaryFailure, err)
		}
	}

	report := service.Assemble(in.Post, snapshot, summary)
	report.GeneratedAt = p.now().UTC()

	p.logger.Info("report generated",
		"post_id", in.Post.ID,
		"images", len(snapshot),
		"analyzed", analyzed,
	)

	return &report, nil
}

// AnalyzeImage analyzes (or re-analyzes) one uploaded image
func (p *Policy) AnalyzeImage(ctx context.Context, images *service.ImageSet, id string) (entity.UploadedImage, error) {
	return p.analysis.AnalyzeOne(ctx, images, id)
}
