package app

import (
	"context"
	"fmt"

	"github.com/vadim/beehiiv-metric/internal/domain/report/entity"
	"github.com/vadim/beehiiv-metric/internal/domain/report/policy"
	"github.com/vadim/beehiiv-metric/internal/httpx/upstream/analyzer"
)

// imageAnalyzerAdapter adapts analyzer.Client to service.ImageAnalyzer
type imageAnalyzerAdapter struct {
	client *analyzer.Client
}

func (a *imageAnalyzerAdapter) AnalyzeImage(ctx context.Context, img entity.UploadedImage) (*entity.Analysis, error) {
	out, err := a.client.AnalyzeImage(ctx, analyzer.ImageInput{
		Filename:    img.Filename,
		ContentType: img.ContentType,
		Content:     img.Content,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", entity.ErrAnalyzerFailure, err)
	}
	return &entity.Analysis{
		Content:   out.Content,
		Sentiment: entity.Sentiment(out.Sentiment),
	}, nil
}

// summaryGeneratorAdapter adapts analyzer.Client to policy.SummaryGenerator
type summaryGeneratorAdapter struct {
	client *analyzer.Client
}

func (a *summaryGeneratorAdapter) GenerateSummary(ctx context.Context, in policy.SummaryInput) (string, error) {
	return a.client.GenerateSummary(ctx, analyzer.SummaryInput{
		PostTitle: in.PostTitle,
		EmailData: analyzer.EmailData{
			OpenRate:        in.OpenRate,
			ClickRate:       in.ClickRate,
			UnsubscribeRate: in.UnsubscribeRate,
		},
		Analyses: in.Analyses,
	})
}
