package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"mercator-hq/ganymede/pkg/bootstrap"
	"mercator-hq/ganymede/pkg/directory"
	"mercator-hq/ganymede/pkg/store"
)

// Handlers bundles the HTTP handlers over the store, the directory
// cache, and the bootstrap pipeline.
type Handlers struct {
	store    store.Store
	cache    *directory.Cache
	pipeline *bootstrap.Pipeline
	logger   *slog.Logger
}

// NewHandlers creates the handler set.
func NewHandlers(st store.Store, cache *directory.Cache, pipeline *bootstrap.Pipeline, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{store: st, cache: cache, pipeline: pipeline, logger: logger}
}

type errorResponse struct {
	Error string `json:"error"`
}

type documentResponse struct {
	Application string          `json:"application"`
	Environment string          `json:"environment"`
	Category    store.Category  `json:"category"`
	Revision    string          `json:"revision"`
	Data        json.RawMessage `json:"data"`
}

type commitsResponse struct {
	Commits []store.CommitRecord `json:"commits"`
}

type repositoriesResponse struct {
	Repositories []store.RepositoryInfo `json:"repositories"`
	Cached       bool                   `json:"cached"`
}

type createApplicationRequest struct {
	Application string `json:"application"`
}

type createdResponse struct {
	Created []store.RepositoryInfo `json:"created"`
}

type healthResponse struct {
	Healthy      bool `json:"healthy"`
	Repositories int  `json:"repositories"`
	Stale        bool `json:"stale"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps store errors onto HTTP statuses. Error text passes
// through unchanged; store errors never carry credentials.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case store.IsNotFound(err):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	case errors.Is(err, store.ErrBadRef), errors.Is(err, bootstrap.ErrUnknownEnvironment):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	default:
		var mutation *store.MutationError
		if errors.As(err, &mutation) {
			writeJSON(w, http.StatusBadGateway, errorResponse{Error: mutation.Error()})
			return
		}
		var retrieval *store.RetrievalError
		if errors.As(err, &retrieval) {
			writeJSON(w, http.StatusBadGateway, errorResponse{Error: retrieval.Error()})
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
}

// GetConfig serves one category document at a reference.
//
// GET /v1/configs/{application}/{environment}/{category}?ref=<ref>
func (h *Handlers) GetConfig(w http.ResponseWriter, r *http.Request) {
	application := r.PathValue("application")
	environment := r.PathValue("environment")
	category := store.Category(r.PathValue("category"))

	if !category.Valid() {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "unknown category: " + string(category)})
		return
	}

	ref := r.URL.Query().Get("ref")
	if ref == "" {
		ref = "HEAD"
	}

	doc, err := h.store.ResolveAndFetch(r.Context(), application, environment, ref, category)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, documentResponse{
		Application: application,
		Environment: environment,
		Category:    doc.Category,
		Revision:    doc.Revision,
		Data:        doc.Data,
	})
}

// GetCommits serves the commit history of a repository, newest first.
//
// GET /v1/commits/{application}/{environment}
func (h *Handlers) GetCommits(w http.ResponseWriter, r *http.Request) {
	application := r.PathValue("application")
	environment := r.PathValue("environment")

	records, err := h.store.ListCommits(r.Context(), application, environment)
	if err != nil {
		writeError(w, err)
		return
	}
	if records == nil {
		records = []store.CommitRecord{}
	}

	writeJSON(w, http.StatusOK, commitsResponse{Commits: records})
}

// GetRepositories serves the cached repository directory, optionally
// filtered by environment.
//
// GET /v1/repositories?environment=<env>
func (h *Handlers) GetRepositories(w http.ResponseWriter, r *http.Request) {
	var repos []store.RepositoryInfo
	if environment := r.URL.Query().Get("environment"); environment != "" {
		repos = h.cache.ByEnvironment(environment)
	} else {
		repos = h.cache.Repositories()
	}
	if repos == nil {
		repos = []store.RepositoryInfo{}
	}

	writeJSON(w, http.StatusOK, repositoriesResponse{
		Repositories: repos,
		Cached:       h.cache.Stale(),
	})
}

// CreateApplication provisions an application in all registered
// environments.
//
// POST /v1/applications {"application": "<name>"}
func (h *Handlers) CreateApplication(w http.ResponseWriter, r *http.Request) {
	var req createApplicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.Application == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "application is required"})
		return
	}

	created, err := h.pipeline.CreateApplication(r.Context(), req.Application)
	if err != nil {
		h.logger.Error("application bootstrap failed",
			"application", req.Application,
			"created", len(created),
			"error", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, createdResponse{Created: created})
}

// CreateApplicationEnvironment provisions an application in one
// environment.
//
// POST /v1/applications/{application}/environments/{environment}
func (h *Handlers) CreateApplicationEnvironment(w http.ResponseWriter, r *http.Request) {
	application := r.PathValue("application")
	environment := r.PathValue("environment")

	info, err := h.pipeline.CreateApplicationEnvironment(r.Context(), application, environment)
	if err != nil {
		h.logger.Error("environment bootstrap failed",
			"application", application,
			"environment", environment,
			"error", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, createdResponse{Created: []store.RepositoryInfo{*info}})
}

// Healthz reports the backend health flag from the directory cache.
//
// GET /healthz
func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	stats := h.cache.Stats()
	status := http.StatusOK
	if !stats.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, healthResponse{
		Healthy:      stats.Healthy,
		Repositories: stats.Repositories,
		Stale:        stats.Stale,
	})
}
