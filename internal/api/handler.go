// internal/api/handler.go
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github-dashboard/internal/cache"
	"github-dashboard/internal/dashboard"
	apperrors "github-dashboard/internal/errors"
)

// Handler is the container for API dependencies.
type Handler struct {
	svc    *dashboard.Service
	logger *slog.Logger
}

// NewRouter creates and configures a new chi router with all API routes.
func NewRouter(svc *dashboard.Service, logger *slog.Logger) http.Handler {
	h := &Handler{
		svc:    svc,
		logger: logger,
	}

	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger) // Chi's default logger
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// API Routes
	r.Get("/health", h.healthCheck)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/dashboard", h.getDashboard)
		r.Get("/dashboard/{section}", h.getSection)
		r.Post("/repos", h.createRepo)
		r.Delete("/repos", h.deleteRepo)
		r.Patch("/repos/{name}/visibility", h.setVisibility)
	})

	return r
}

// sessionFromRequest extracts the account handle and bearer token. The session
// itself lives with the external identity provider; this layer only consumes
// the resulting opaque credential.
func sessionFromRequest(r *http.Request) dashboard.Session {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	return dashboard.Session{
		Handle: r.Header.Get("X-GitHub-User"),
		Token:  token,
	}
}

// healthCheck is a simple health endpoint.
func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// getDashboard handles the request for the full aggregated dashboard.
// GET /v1/dashboard
func (h *Handler) getDashboard(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromRequest(r)

	dash, err := h.svc.Load(r.Context(), sess)
	if err != nil {
		h.respondWithMappedError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, dash)
}

// getSection serves one cached dashboard section.
// GET /v1/dashboard/{section}
func (h *Handler) getSection(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromRequest(r)

	kind := cache.Kind(chi.URLParam(r, "section"))
	switch kind {
	case cache.KindProfile, cache.KindRepositories, cache.KindLanguages,
		cache.KindFollowers, cache.KindFollowing, cache.KindActivity:
	default:
		respondWithError(w, http.StatusNotFound, "Unknown dashboard section")
		return
	}

	entry, err := h.svc.Section(r.Context(), sess, kind)
	if err != nil {
		h.respondWithMappedError(w, err)
		return
	}
	if entry.Err != nil {
		h.respondWithMappedError(w, entry.Err)
		return
	}

	respondWithJSON(w, http.StatusOK, entry.Data)
}

type createRepoRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Private     bool   `json:"private"`
}

// createRepo handles repository creation for the authenticated user.
// POST /v1/repos
func (h *Handler) createRepo(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromRequest(r)

	var req createRepoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	repo, err := h.svc.CreateRepository(r.Context(), sess, req.Name, req.Description, req.Private)
	if err != nil {
		if errors.Is(err, dashboard.ErrNameRequired) || errors.Is(err, dashboard.ErrDescriptionRequired) {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.respondWithMappedError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, repo)
}

type deleteRepoRequest struct {
	RepoName    string `json:"repoName"`
	AccessToken string `json:"accessToken"`
	Username    string `json:"username"`
}

// deleteRepo handles the delete proxy contract: the credential arrives in the
// body, ownership is validated before the upstream delete, and the response is
// {message} on success or {error} with the upstream status otherwise.
// DELETE /v1/repos
func (h *Handler) deleteRepo(w http.ResponseWriter, r *http.Request) {
	var req deleteRepoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.RepoName == "" || req.AccessToken == "" || req.Username == "" {
		respondWithError(w, http.StatusBadRequest, "Missing required fields")
		return
	}

	sess := dashboard.Session{Handle: req.Username, Token: req.AccessToken}
	if err := h.svc.DeleteRepository(r.Context(), sess, req.RepoName); err != nil {
		h.respondWithMappedError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Repository deleted successfully"})
}

type visibilityRequest struct {
	Private bool `json:"private"`
}

// setVisibility toggles a repository between public and private.
// PATCH /v1/repos/{name}/visibility
func (h *Handler) setVisibility(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromRequest(r)
	name := chi.URLParam(r, "name")

	var req visibilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.svc.ToggleVisibility(r.Context(), sess, name, req.Private); err != nil {
		h.respondWithMappedError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]bool{"private": req.Private})
}

// respondWithMappedError translates the application error taxonomy onto HTTP
// statuses, passing upstream statuses through unchanged.
func (h *Handler) respondWithMappedError(w http.ResponseWriter, err error) {
	var missingErr *apperrors.ErrMissingCredentials
	var authErr *apperrors.AuthorizationError
	var notFoundErr *apperrors.NotFoundError
	var upstreamErr *apperrors.UpstreamError
	var netErr *apperrors.NetworkError

	switch {
	case errors.As(err, &missingErr):
		respondWithError(w, http.StatusUnauthorized, missingErr.Error())
	case errors.As(err, &authErr):
		respondWithError(w, http.StatusForbidden, authErr.Reason)
	case errors.As(err, &notFoundErr):
		respondWithError(w, http.StatusNotFound, notFoundErr.Error())
	case errors.As(err, &upstreamErr):
		respondWithError(w, upstreamErr.Status, upstreamErr.Body)
	case errors.As(err, &netErr):
		respondWithError(w, http.StatusBadGateway, "Upstream unreachable")
	default:
		h.logger.Error("Unhandled error", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func respondWithJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, status int, message string) {
	respondWithJSON(w, status, map[string]string{"error": message})
}
