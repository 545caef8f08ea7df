// Package server exposes the operator HTTP API: run triggering, status
// and history queries, article listing, health, and Prometheus metrics.
// The Telegram workflow is the primary interface; this API exists for
// external schedulers (a cron job hitting /trigger) and dashboards.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/user/newshound/internal/types"
)

const (
	defaultArticleLimit = 50
	historyLimit        = 20
)

// Runner starts pipeline runs.
type Runner interface {
	Trigger(ctx context.Context) (types.RunID, error)
}

// Store is the read surface the API serves from.
type Store interface {
	LastRun(ctx context.Context) (*types.AgentRun, error)
	ListRuns(ctx context.Context, limit int) ([]*types.AgentRun, error)
	ListDigests(ctx context.Context, limit int) ([]*types.Digest, error)
	PendingDigest(ctx context.Context, chat types.ChatID) (*types.Digest, error)
	RecentArticles(ctx context.Context, category types.Category, limit int) ([]*types.Article, error)
}

type Config struct {
	Store  Store
	Runner Runner
	// Chat is the operator conversation whose pending digest /status reports.
	Chat types.ChatID
	// AuthToken guards POST /api/agent/trigger. Empty disables auth.
	AuthToken string
	// Metrics serves GET /metrics when set.
	Metrics http.Handler
	Logger  *slog.Logger
}

type Server struct {
	store  Store
	runner Runner
	chat   types.ChatID
	token  string
	logger *slog.Logger
	router chi.Router
}

func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	s := &Server{
		store:  cfg.Store,
		runner: cfg.Runner,
		chat:   cfg.Chat,
		token:  cfg.AuthToken,
		logger: cfg.Logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleIndex)
	r.Get("/health", s.handleHealth)
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics)
	}

	r.Route("/api/agent", func(r chi.Router) {
		r.With(s.requireAuth).Post("/trigger", s.handleTrigger)
		r.Get("/status", s.handleStatus)
		r.Get("/runs", s.handleRuns)
		r.Get("/history", s.handleHistory)
		r.Get("/articles", s.handleArticles)
	})

	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// requireAuth enforces the bearer token when one is configured.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.token != "" && r.Header.Get("Authorization") != "Bearer "+s.token {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": "newshound",
		"status":  "running",
		"endpoints": []string{
			"POST /api/agent/trigger",
			"GET /api/agent/status",
			"GET /api/agent/runs",
			"GET /api/agent/history",
			"GET /api/agent/articles",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	runID, err := s.runner.Trigger(r.Context())
	switch {
	case errors.Is(err, types.ErrRunInProgress):
		writeError(w, http.StatusConflict, "a run is already in progress")
	case err != nil:
		s.logger.Error("trigger run", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	default:
		writeJSON(w, http.StatusAccepted, map[string]string{
			"status": "triggered",
			"run_id": string(runID),
		})
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	lastRun, err := s.store.LastRun(ctx)
	if err != nil && !errors.Is(err, types.ErrNotFound) {
		s.logger.Error("load last run", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	pending, err := s.store.PendingDigest(ctx, s.chat)
	if err != nil && !errors.Is(err, types.ErrNotFound) {
		s.logger.Error("load pending digest", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"last_run":       lastRun,
		"pending_digest": pending,
	})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.store.ListRuns(r.Context(), historyLimit)
	if err != nil {
		s.logger.Error("list runs", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if runs == nil {
		runs = []*types.AgentRun{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs, "count": len(runs)})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	digests, err := s.store.ListDigests(r.Context(), historyLimit)
	if err != nil {
		s.logger.Error("list digests", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if digests == nil {
		digests = []*types.Digest{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"digests": digests, "count": len(digests)})
}

func (s *Server) handleArticles(w http.ResponseWriter, r *http.Request) {
	limit := defaultArticleLimit
	if q := r.URL.Query().Get("limit"); q != "" {
		if n, err := strconv.Atoi(q); err == nil && n > 0 {
			limit = n
		}
	}
	category := types.Category(r.URL.Query().Get("category"))

	articles, err := s.store.RecentArticles(r.Context(), category, limit)
	if err != nil {
		s.logger.Error("list articles", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if articles == nil {
		articles = []*types.Article{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"articles": articles, "count": len(articles)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
