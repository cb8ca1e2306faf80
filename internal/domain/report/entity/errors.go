package entity

import "errors"

// Domain errors for reports
var (
	ErrPostRequired     = errors.New("a post with stats is required to generate a report")
	ErrImageNotFound    = errors.New("image not found")
	ErrEmptyImage       = errors.New("image content is empty")
	ErrUnsupportedImage = errors.New("unsupported image type")
	ErrReportNotFound   = errors.New("no report has been generated yet")

	// Upstream errors
	ErrAnalyzerFailure = errors.New("image analysis service request failed")
	ErrSummaryFailure  = errors.New("summary generation failed")
)
