// Package server exposes the scraping pipeline over a JSON HTTP API.
// Identity arrives as an X-User-ID header set by the auth proxy in
// front of this service; the handlers trust it as an opaque scope key.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"newsdesk/internal/ports"
	"newsdesk/internal/usecase"
)

const userHeader = "X-User-ID"

type ctxKey int

const userKey ctxKey = iota

// Server routes API requests to the use-case layer.
type Server struct {
	ingestor  *usecase.Ingestor
	scheduler *usecase.Scheduler
	feeds     ports.FeedList
	rss       ports.FeedSource
	papers    ports.PaperSource
	logger    *slog.Logger
	router    chi.Router
}

// New builds the router. papers may be nil when paper search is not
// configured; the endpoint then answers 503.
func New(ingestor *usecase.Ingestor, scheduler *usecase.Scheduler, feeds ports.FeedList,
	rss ports.FeedSource, papers ports.PaperSource, logger *slog.Logger) *Server {
	s := &Server{
		ingestor:  ingestor,
		scheduler: scheduler,
		feeds:     feeds,
		rss:       rss,
		papers:    papers,
		logger:    logger,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.requireUser)

		r.Route("/scrape", func(r chi.Router) {
			r.Post("/parse", s.handleParse)
			r.Post("/preview", s.handlePreview)
			r.Post("/jobs", s.handleCreateJob)
			r.Get("/jobs", s.handleListJobs)
			r.Get("/jobs/{jobID}", s.handleGetJob)
			r.Post("/jobs/{jobID}/cancel", s.handleCancelJob)
			r.Delete("/jobs/{jobID}", s.handleDeleteJob)
		})

		r.Route("/feeds", func(r chi.Router) {
			r.Get("/", s.handleGetFeeds)
			r.Put("/", s.handlePutFeeds)
			r.Post("/test", s.handleTestFeeds)
		})

		r.Post("/papers/search", s.handleSearchPapers)

		r.Route("/schedule", func(r chi.Router) {
			r.Get("/", s.handleGetSchedule)
			r.Put("/", s.handlePutSchedule)
			r.Delete("/", s.handleDeleteSchedule)
			r.Post("/run", s.handleRunNow)
		})
	})

	s.router = r
}

// Handler returns the ready-to-serve router.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// requireUser rejects requests without an identity header and stashes
// the user id for the handlers.
func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := r.Header.Get(userHeader)
		if user == "" {
			s.writeError(w, http.StatusUnauthorized, "missing "+userHeader+" header")
			return
		}
		ctx := context.WithValue(r.Context(), userKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userFrom(r *http.Request) string {
	user, _ := r.Context().Value(userKey).(string)
	return user
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("response encode failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

func decode(r *http.Request, v interface{}) error {
	defer func() { _ = r.Body.Close() }()
	return json.NewDecoder(r.Body).Decode(v)
}
