package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/arjn/leetrack/internal/refresh"
	"github.com/arjn/leetrack/internal/storage"
	"github.com/arjn/leetrack/pkg/tracker"
)

// Refresher triggers scrape cycles on demand.
type Refresher interface {
	RefreshAll(ctx context.Context) (refresh.Summary, error)
	RefreshUser(ctx context.Context, username string) error
}

// Detector runs one inactivity detection pass.
type Detector interface {
	Run(ctx context.Context) ([]tracker.InactiveStudent, error)
}

type Server struct {
	store     storage.Store
	refresher Refresher
	detector  Detector
}

func New(store storage.Store, refresher Refresher, detector Detector) *Server {
	return &Server{store: store, refresher: refresher, detector: detector}
}

func writeJSON(w http.ResponseWriter, code int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(v)
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(metricsMiddleware)

	r.Get("/healthz", s.getHealth)
	r.Get("/version", s.getVersionInfo)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(s.visitorMiddleware)

		r.Get("/leaderboard", s.getLeaderboard)
		r.Get("/analytics/history", s.getAnalyticsHistory)
		r.Get("/inactive", s.getInactive)
		r.Get("/visitors/summary", s.getVisitorSummary)
		r.Post("/refresh", s.triggerRefresh)
		r.Post("/detect-inactive", s.triggerDetect)

		r.Route("/students", func(r chi.Router) {
			r.Get("/", s.listStudents)
			r.Post("/", s.addStudent)
			r.Get("/{username}", s.getStudent)
			r.Delete("/{username}", s.removeStudent)
		})
	})

	return r
}
