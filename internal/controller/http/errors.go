package http

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/vadim/beehiiv-metric/internal/domain/metrics"
	postentity "github.com/vadim/beehiiv-metric/internal/domain/post/entity"
	"github.com/vadim/beehiiv-metric/internal/domain/report/entity"
	"github.com/vadim/beehiiv-metric/internal/httpx/response"
	"github.com/vadim/beehiiv-metric/internal/httpx/upstream/analyzer"
	"github.com/vadim/beehiiv-metric/internal/httpx/upstream/beehiiv"
)

// handleDomainError maps domain errors to HTTP responses
func handleDomainError(w http.ResponseWriter, err error) {
	var apiErr *beehiiv.APIError
	var validationErrs validator.ValidationErrors

	switch {
	case errors.Is(err, postentity.ErrPostNotFound),
		errors.Is(err, entity.ErrImageNotFound),
		errors.Is(err, entity.ErrReportNotFound):
		response.NotFound(w, rootMessage(err))
	case errors.Is(err, postentity.ErrPublicationIDRequired),
		errors.Is(err, postentity.ErrPostIDRequired),
		errors.Is(err, postentity.ErrNoPostSelected),
		errors.Is(err, entity.ErrPostRequired),
		errors.Is(err, entity.ErrEmptyImage),
		errors.Is(err, entity.ErrUnsupportedImage),
		errors.Is(err, metrics.ErrInvalidMode):
		response.BadRequest(w, rootMessage(err))
	case errors.As(err, &validationErrs):
		response.BadRequest(w, validationMessage(validationErrs))
	case errors.Is(err, postentity.ErrAPIKeyRequired):
		response.InternalError(w, err.Error())
	case errors.As(err, &apiErr):
		fallback := msgFetchPostsFailed
		if apiErr.SinglePost() {
			fallback = msgFetchPostFailed
		}
		response.ErrorValue(w, apiErr.Status, upstreamErrorBody(apiErr.Body, fallback))
	case errors.Is(err, entity.ErrSummaryFailure), errors.Is(err, entity.ErrAnalyzerFailure):
		handleUpstreamError(w, err, err)
	default:
		response.InternalError(w, "internal server error")
	}
}

// handleUpstreamError reports a failed call to the analysis service
func handleUpstreamError(w http.ResponseWriter, err, kind error) {
	if errors.Is(err, analyzer.ErrBaseURLRequired) {
		response.ServiceUnavailable(w, "image analysis service is not configured")
		return
	}
	response.BadGateway(w, rootMessage(kind))
}

// rootMessage returns the message of the innermost sentinel error the
// handlers know about, so wrapping details stay in the logs.
func rootMessage(err error) string {
	for _, known := range []error{
		postentity.ErrPostNotFound, entity.ErrImageNotFound, entity.ErrReportNotFound,
		postentity.ErrPublicationIDRequired, postentity.ErrPostIDRequired, postentity.ErrNoPostSelected,
		entity.ErrPostRequired, entity.ErrEmptyImage, entity.ErrUnsupportedImage, metrics.ErrInvalidMode,
		entity.ErrSummaryFailure, entity.ErrAnalyzerFailure,
	} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return err.Error()
}
