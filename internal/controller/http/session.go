package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/vadim/beehiiv-metric/internal/domain/report/service"
	"github.com/vadim/beehiiv-metric/internal/httpx/response"
	"github.com/vadim/beehiiv-metric/internal/httpx/upstream/beehiiv"
	"github.com/vadim/beehiiv-metric/internal/session"
)

// ImageWorkspaces hands out the uploaded images of a session
type ImageWorkspaces interface {
	Get(sessionID string) *service.ImageSet
	Drop(sessionID string)
}

// SessionHandler handles the credentials and lifetime of a browser session
type SessionHandler struct {
	state      sessionState
	workspaces ImageWorkspaces
	validate   *validator.Validate
	logger     *slog.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(store SessionStore, ttl time.Duration, workspaces ImageWorkspaces, logger *slog.Logger) *SessionHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionHandler{
		state:      sessionState{store: store, ttl: ttl},
		workspaces: workspaces,
		validate:   newValidator(),
		logger:     logger,
	}
}

// RegisterRoutes registers session routes
func (h *SessionHandler) RegisterRoutes(r chi.Router) {
	r.Route("/session", func(r chi.Router) {
		r.Get("/", h.Get())
		r.Put("/credentials", h.SetCredentials())
		r.Delete("/", h.Clear())
	})
}

// CredentialsRequest represents the request body for storing credentials
type CredentialsRequest struct {
	APIKey        string `json:"api_key" validate:"required,max=256"`
	PublicationID string `json:"publication_id" validate:"required,max=128"`
}

// SetCredentials handles PUT /session/credentials
func (h *SessionHandler) SetCredentials() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CredentialsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.BadRequest(w, "invalid JSON")
			return
		}
		if err := h.validate.Struct(req); err != nil {
			handleDomainError(w, err)
			return
		}

		creds := beehiiv.Credentials{APIKey: req.APIKey, PublicationID: req.PublicationID}
		key := h.state.key(r.Context(), session.KeyCredentials)
		if err := h.state.store.SetJSON(r.Context(), key, creds, h.state.ttl); err != nil {
			h.logger.Error("failed to store credentials", "error", err)
			response.InternalError(w, "failed to store credentials")
			return
		}

		response.NoContent(w)
	}
}

// SessionResponse describes the state of the current session
type SessionResponse struct {
	HasCredentials bool   `json:"has_credentials"`
	PublicationID  string `json:"publication_id,omitempty"`
	SelectedPostID string `json:"selected_post_id,omitempty"`
	Images         int    `json:"images"`
	HasReport      bool   `json:"has_report"`
}

// Get handles GET /session
func (h *SessionHandler) Get() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		var out SessionResponse

		var creds beehiiv.Credentials
		if ok, err := h.state.store.GetJSON(ctx, h.state.key(ctx, session.KeyCredentials), &creds); err == nil && ok {
			out.HasCredentials = creds.APIKey != ""
			out.PublicationID = creds.PublicationID
		}
		if post, err := h.state.selectedPost(ctx); err == nil {
			out.SelectedPostID = post.ID
		}
		if _, err := h.state.lastReport(ctx); err == nil {
			out.HasReport = true
		}
		out.Images = h.workspaces.Get(session.IDFromContext(ctx)).Len()

		response.OK(w, out)
	}
}

// Clear handles DELETE /session
func (h *SessionHandler) Clear() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if err := h.state.clear(ctx, session.KeyCredentials, session.KeyPost, session.KeyReport); err != nil {
			h.logger.Error("failed to clear session", "error", err)
			response.InternalError(w, "failed to clear session")
			return
		}
		h.workspaces.Drop(session.IDFromContext(ctx))

		response.NoContent(w)
	}
}
