package service

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/vadim/beehiiv-metric/internal/domain/report/entity"
)

// DefaultAnalysisConcurrency bounds the number of analysis calls in flight per report
const DefaultAnalysisConcurrency = 8

// ImageAnalyzer analyzes a single image with an external image-understanding service
type ImageAnalyzer interface {
	AnalyzeImage(ctx context.Context, img entity.UploadedImage) (*entity.Analysis, error)
}

// Analysis runs image analyses against an ImageSet
type Analysis struct {
	analyzer    ImageAnalyzer
	concurrency int
	logger      *slog.Logger
}

// NewAnalysis creates an analysis runner; concurrency <= 0 selects the default
func NewAnalysis(analyzer ImageAnalyzer, concurrency int, logger *slog.Logger) *Analysis {
	if concurrency <= 0 {
		concurrency = DefaultAnalysisConcurrency
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Analysis{
		analyzer:    analyzer,
		concurrency: concurrency,
		logger:      logger,
	}
}

// AnalyzePending analyzes every image without an analysis concurrently and
// waits for all of them, including analyses started elsewhere on the same set.
// A failed call stores the fixed fallback analysis for that image only.
// It returns the number of images this call resolved, and ctx.Err() when the
// context ends before every analysis has settled.
func (a *Analysis) AnalyzePending(ctx context.Context, set *ImageSet) (int, error) {
	pending := set.Pending()

	var g errgroup.Group
	g.SetLimit(a.concurrency)

	results := make([]bool, len(pending))
	for i, img := range pending {
		if !set.begin(img.ID) {
			continue
		}
		g.Go(func() error {
			results[i] = set.resolve(img.ID, a.analyze(ctx, img))
			return nil
		})
	}
	_ = g.Wait()

	resolved := 0
	for _, ok := range results {
		if ok {
			resolved++
		}
	}

	for _, done := range set.running() {
		if err := wait(ctx, done); err != nil {
			return resolved, err
		}
	}
	return resolved, nil
}

// AnalyzeOne analyzes a single image, replacing any previous analysis
func (a *Analysis) AnalyzeOne(ctx context.Context, set *ImageSet, id string) (entity.UploadedImage, error) {
	img, ok := set.Get(id)
	if !ok {
		return entity.UploadedImage{}, entity.ErrImageNotFound
	}
	if !set.begin(id) {
		// already in flight; share its result
		if done := set.inFlight(id); done != nil {
			if err := wait(ctx, done); err != nil {
				return entity.UploadedImage{}, err
			}
		}
		out, ok := set.Get(id)
		if !ok {
			return entity.UploadedImage{}, entity.ErrImageNotFound
		}
		return out, nil
	}

	if !set.resolve(id, a.analyze(ctx, img)) {
		return entity.UploadedImage{}, entity.ErrImageNotFound
	}
	out, _ := set.Get(id)
	return out, nil
}

func wait(ctx context.Context, done <-chan struct{}) error {
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *Analysis) analyze(ctx context.Context, img entity.UploadedImage) *entity.Analysis {
	res, err := a.analyzer.AnalyzeImage(ctx, img)
	if err != nil || res == nil {
		a.logger.Warn("image analysis failed",
			"image_id", img.ID,
			"filename", img.Filename,
			"error", err,
		)
		return entity.FailedAnalysis()
	}
	return &entity.Analysis{
		Content:   res.Content,
		Sentiment: entity.ParseSentiment(string(res.Sentiment)),
	}
}
