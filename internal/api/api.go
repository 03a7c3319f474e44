package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/joescharf/pulse/internal/health"
	"github.com/joescharf/pulse/internal/importer"
	"github.com/joescharf/pulse/internal/locale"
	"github.com/joescharf/pulse/internal/models"
	"github.com/joescharf/pulse/internal/refresh"
	"github.com/joescharf/pulse/internal/store"
)

// DefaultSpotlightLimit is used when a spotlight request carries no limit.
const DefaultSpotlightLimit = 5

// Server provides the REST API handlers.
type Server struct {
	store   store.Store
	scorer  *health.Scorer
	catalog *locale.Catalog
	logger  *slog.Logger

	spotlightLimit int
}

// Option configures a Server.
type Option func(*Server)

// WithCatalog renders factor, recommendation and reason texts from c.
func WithCatalog(c *locale.Catalog) Option {
	return func(s *Server) { s.catalog = c }
}

// WithLogger sets the request logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithSpotlightLimit sets the default number of spotlight entries returned.
func WithSpotlightLimit(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.spotlightLimit = n
		}
	}
}

// NewServer creates a new API server. A nil scorer uses the wall clock and
// local zone.
func NewServer(st store.Store, sc *health.Scorer, opts ...Option) *Server {
	if sc == nil {
		sc = health.NewScorer()
	}
	s := &Server{
		store:          st,
		scorer:         sc,
		logger:         slog.Default(),
		spotlightLimit: DefaultSpotlightLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router returns an http.Handler for the API routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Use(corsMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/projects", s.listProjects)
		r.Get("/projects/{id}", s.getProject)
		r.Post("/refresh", s.refreshAll)

		r.Get("/health/{id}", s.projectHealth)
		r.Get("/health/{id}/history", s.healthHistory)
		r.Get("/spotlight", s.spotlight)
		r.Get("/workspace/health", s.workspaceHealth)

		r.Post("/score", s.score)
	})
	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeStoreError maps store failures onto HTTP statuses.
func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

func queryLimit(r *http.Request, def int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid limit %q", raw)
	}
	return n, nil
}

func (s *Server) localize(a health.Assessment) health.Assessment {
	a.Health = s.catalog.ProjectHealth(a.Health)
	a.Spotlight = s.catalog.Spotlight(a.Spotlight)
	return a
}

// --- Projects ---

func (s *Server) listProjects(w http.ResponseWriter, r *http.Request) {
	var status models.ProjectStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		var err error
		if status, err = models.ParseProjectStatus(raw); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	projects, err := s.store.ListProjects(r.Context(), status)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if projects == nil {
		projects = []*models.Project{}
	}
	writeJSON(w, http.StatusOK, projects)
}

func (s *Server) getProject(w http.ResponseWriter, r *http.Request) {
	p, err := s.store.GetProject(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) refreshAll(w http.ResponseWriter, r *http.Request) {
	result, err := refresh.All(r.Context(), s.store, s.scorer, refresh.Options{Persist: true})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// --- Health ---

func (s *Server) projectHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, err := s.store.GetProject(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	a, err := refresh.Assess(ctx, s.store, s.scorer, p)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.catalog.ProjectHealth(a.Health))
}

type historyEntry struct {
	ComputedAt int64         `json:"computedAt"`
	Score      int           `json:"score"`
	Status     health.Status `json:"status"`
	Trend      health.Trend  `json:"trend"`
}

func (s *Server) healthHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit, err := queryLimit(r, 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	p, err := s.store.GetProject(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	snaps, err := s.store.ListHealthSnapshots(ctx, p.ID, limit)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	out := make([]historyEntry, 0, len(snaps))
	for _, snap := range snaps {
		out = append(out, historyEntry{
			ComputedAt: int64(snap.ComputedAt),
			Score:      snap.Score,
			Status:     health.Status(snap.Status),
			Trend:      health.Trend(snap.Trend),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) spotlight(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r, s.spotlightLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	result, err := refresh.All(r.Context(), s.store, s.scorer, refresh.Options{})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	entries := result.Spotlight(limit)
	for i := range entries {
		entries[i].Spotlight = s.catalog.Spotlight(entries[i].Spotlight)
	}
	writeJSON(w, http.StatusOK, entries)
}

type projectHealthEntry struct {
	Project *models.Project      `json:"project"`
	Health  health.ProjectHealth `json:"health"`
}

type workspaceResponse struct {
	Workspace health.WorkspaceHealth `json:"workspace"`
	Projects  []projectHealthEntry   `json:"projects"`
	Failed    []refresh.Result       `json:"failed,omitempty"`
}

func (s *Server) workspaceHealth(w http.ResponseWriter, r *http.Request) {
	result, err := refresh.All(r.Context(), s.store, s.scorer, refresh.Options{})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := workspaceResponse{Workspace: result.Workspace, Projects: []projectHealthEntry{}}
	for _, e := range result.Entries {
		resp.Projects = append(resp.Projects, projectHealthEntry{
			Project: e.Project,
			Health:  s.catalog.ProjectHealth(e.Assessment.Health),
		})
	}
	for _, res := range result.Results {
		if res.Error != "" {
			resp.Failed = append(resp.Failed, res)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// score evaluates a posted project document without touching the store.
func (s *Server) score(w http.ResponseWriter, r *http.Request) {
	var doc importer.ProjectDoc
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	in, err := doc.Build()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.localize(s.scorer.Assess(in)))
}
