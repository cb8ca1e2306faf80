package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/vadim/beehiiv-metric/internal/domain/post/entity"
	"github.com/vadim/beehiiv-metric/internal/httpx/response"
	"github.com/vadim/beehiiv-metric/internal/httpx/upstream/beehiiv"
)

const (
	msgFetchPostsFailed = "Failed to fetch posts from Beehiiv API"
	msgFetchPostFailed  = "Failed to fetch post from Beehiiv API"
)

// PostsForwarder relays raw requests to the Beehiiv API
type PostsForwarder interface {
	Forward(ctx context.Context, creds beehiiv.Credentials, path string, query url.Values) (*beehiiv.Response, error)
}

// ProxyHandler exposes the Beehiiv posts endpoints to the browser so the
// API key never leaves the server.
type ProxyHandler struct {
	upstream    PostsForwarder
	credentials *CredentialResolver
	logger      *slog.Logger
}

// NewProxyHandler creates a new proxy handler
func NewProxyHandler(upstream PostsForwarder, credentials *CredentialResolver, logger *slog.Logger) *ProxyHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProxyHandler{upstream: upstream, credentials: credentials, logger: logger}
}

// RegisterRoutes registers proxy routes
func (h *ProxyHandler) RegisterRoutes(r chi.Router) {
	r.Route("/publications/{publicationId}/posts", func(r chi.Router) {
		r.Get("/", h.ListPosts())
		r.Get("/{postId}", h.GetPost())
	})
}

// ListPosts handles GET /publications/{publicationId}/posts
func (h *ProxyHandler) ListPosts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := beehiiv.PostsPath(chi.URLParam(r, "publicationId"), "")
		h.forward(w, r, path, passQuery(r.URL.Query(), "expand", "expand[]", "limit", "page", "status"), msgFetchPostsFailed)
	}
}

// GetPost handles GET /publications/{publicationId}/posts/{postId}
func (h *ProxyHandler) GetPost() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := beehiiv.PostsPath(chi.URLParam(r, "publicationId"), chi.URLParam(r, "postId"))
		h.forward(w, r, path, passQuery(r.URL.Query(), "expand", "expand[]"), msgFetchPostFailed)
	}
}

func (h *ProxyHandler) forward(w http.ResponseWriter, r *http.Request, path string, query url.Values, failure string) {
	creds := h.credentials.Resolve(r)
	if creds.APIKey == "" {
		response.InternalError(w, entity.ErrAPIKeyRequired.Error())
		return
	}

	resp, err := h.upstream.Forward(r.Context(), creds, path, query)
	if err != nil {
		h.logger.Error("beehiiv request failed", "path", path, "error", err)
		response.InternalError(w, failure)
		return
	}

	if resp.Status >= 200 && resp.Status < 300 {
		response.Raw(w, resp.Status, resp.ContentType, resp.Body)
		return
	}

	h.logger.Warn("beehiiv returned an error", "path", path, "status", resp.Status, "body", string(resp.Body))
	response.ErrorValue(w, resp.Status, upstreamErrorBody(resp.Body, failure))
}

// upstreamErrorBody returns the upstream body as JSON when it is JSON, as text
// otherwise, and fallback when it is empty.
func upstreamErrorBody(body []byte, fallback string) interface{} {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return fallback
	}
	if json.Valid([]byte(trimmed)) {
		return json.RawMessage(trimmed)
	}
	return trimmed
}

func passQuery(in url.Values, keys ...string) url.Values {
	out := url.Values{}
	for _, k := range keys {
		for _, v := range in[k] {
			out.Add(k, v)
		}
	}
	return out
}
