package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/vadim/beehiiv-metric/internal/domain/post/entity"
	"github.com/vadim/beehiiv-metric/internal/httpx/response"
	"github.com/vadim/beehiiv-metric/internal/httpx/upstream/beehiiv"
	"github.com/vadim/beehiiv-metric/internal/session"
)

// PostSource reads posts from Beehiiv
// Interface is defined by consumer (handler), not provider (client)
type PostSource interface {
	ListPosts(ctx context.Context, in beehiiv.ListPostsInput) (*entity.PostList, error)
	GetPost(ctx context.Context, in beehiiv.GetPostInput) (*entity.Post, error)
}

// PostsHandler handles browsing and selecting posts
type PostsHandler struct {
	posts       PostSource
	credentials *CredentialResolver
	state       sessionState
	workspaces  ImageWorkspaces
	validate    *validator.Validate
	logger      *slog.Logger
}

// NewPostsHandler creates a new posts handler
func NewPostsHandler(posts PostSource, credentials *CredentialResolver, store SessionStore, ttl time.Duration, workspaces ImageWorkspaces, logger *slog.Logger) *PostsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostsHandler{
		posts:       posts,
		credentials: credentials,
		state:       sessionState{store: store, ttl: ttl},
		workspaces:  workspaces,
		validate:    newValidator(),
		logger:      logger,
	}
}

// RegisterRoutes registers post routes
func (h *PostsHandler) RegisterRoutes(r chi.Router) {
	r.Route("/posts", func(r chi.Router) {
		r.Get("/", h.List())
		r.Get("/selected", h.Selected())
		r.Post("/{postId}/select", h.Select())
	})
}

// List handles GET /posts
// Query params: page, limit, expand (may repeat)
func (h *PostsHandler) List() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		creds, ok := h.resolve(w, r)
		if !ok {
			return
		}

		q := r.URL.Query()
		page, _ := strconv.Atoi(q.Get("page"))
		limit, _ := strconv.Atoi(q.Get("limit"))

		list, err := h.posts.ListPosts(r.Context(), beehiiv.ListPostsInput{
			Credentials: creds,
			Expand:      q["expand"],
			Limit:       limit,
			Page:        page,
		})
		if err != nil {
			h.logger.Error("failed to list posts", "publication_id", creds.PublicationID, "error", err)
			handleDomainError(w, err)
			return
		}

		response.OK(w, list)
	}
}

// Select handles POST /posts/{postId}/select
// Fetches the post with stats and makes it the subject of the session's report.
func (h *PostsHandler) Select() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		creds, ok := h.resolve(w, r)
		if !ok {
			return
		}
		ctx := r.Context()
		postID := chi.URLParam(r, "postId")

		post, err := h.posts.GetPost(ctx, beehiiv.GetPostInput{
			Credentials: creds,
			PostID:      postID,
			Expand:      []string{"stats"},
		})
		if err != nil {
			h.logger.Error("failed to fetch post", "post_id", postID, "error", err)
			handleDomainError(w, err)
			return
		}

		// a new subject starts a new report
		if prev, err := h.state.selectedPost(ctx); err == nil && prev.ID != post.ID {
			if err := h.state.clear(ctx, session.KeyReport); err != nil {
				h.logger.Warn("failed to clear previous report", "error", err)
			}
			h.workspaces.Get(session.IDFromContext(ctx)).Clear()
		}

		if err := h.state.selectPost(ctx, post); err != nil {
			h.logger.Error("failed to store selected post", "post_id", post.ID, "error", err)
			response.InternalError(w, "failed to store selected post")
			return
		}

		response.OK(w, post)
	}
}

// Selected handles GET /posts/selected
func (h *PostsHandler) Selected() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		post, err := h.state.selectedPost(r.Context())
		if err != nil {
			handleDomainError(w, err)
			return
		}
		response.OK(w, post)
	}
}

// resolve returns the request's credentials, writing a 400 when incomplete
func (h *PostsHandler) resolve(w http.ResponseWriter, r *http.Request) (beehiiv.Credentials, bool) {
	creds := h.credentials.Resolve(r)
	if err := h.validate.Struct(creds); err != nil {
		handleDomainError(w, err)
		return creds, false
	}
	return creds, true
}
