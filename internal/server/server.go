// Package server exposes health, metrics, admin triggers and scorecards
// over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"runpool/ingestion/internal/models"
	"runpool/ingestion/internal/scoring"
)

// Pipeline is the subset of scoring.Pipeline the admin routes call
type Pipeline interface {
	Ingest(ctx context.Context, date time.Time, fantasyGameID int) []*models.ScoreFact
	RecomputeAllScores(ctx context.Context) scoring.RecalculateResult
}

// Cycles runs full cycles under the job lock
type Cycles interface {
	Run(ctx context.Context, date time.Time) (scoring.CycleResult, bool, error)
	Yesterday() time.Time
	LastResult(ctx context.Context) (*scoring.CycleResult, error)
}

// Scorecards reads the shareable view of a fantasy game
type Scorecards interface {
	ForToken(ctx context.Context, token string) (*models.Scorecard, error)
}

// HealthChecker reports whether the database is reachable
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Deps are the collaborators the handlers need
type Deps struct {
	Pipeline   Pipeline
	Cycles     Cycles
	Scorecards Scorecards
	Health     HealthChecker
	AdminToken string
}

// Handler holds the route handlers
type Handler struct {
	deps Deps
}

// NewRouter creates the chi router with middleware and routes
func NewRouter(deps Deps) *chi.Mux {
	h := &Handler{deps: deps}
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Get("/health", h.HealthCheck)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/scorecards/{token}", h.GetScorecard)

	r.Route("/admin", func(r chi.Router) {
		r.Use(adminAuth(deps.AdminToken))
		r.Get("/status", h.GetStatus)
		r.Post("/ingest", h.PostIngest)
		r.Post("/recompute", h.PostRecompute)
		r.Post("/cycle", h.PostCycle)
	})

	return r
}

// New wraps the router in an http.Server listening on addr
func New(addr string, deps Deps) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
