package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"runpool/ingestion/internal/repository"
)

const dateLayout = "2006-01-02"

// HealthCheck pings the database
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Health.Health(r.Context()); err != nil {
		log.Warn().Err(err).Msg("Health check failed")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// GetStatus returns the last cycle summary
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	last, err := h.deps.Cycles.LastResult(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "STATUS_UNAVAILABLE", err.Error())
		return
	}
	if last == nil {
		writeJSON(w, http.StatusOK, map[string]any{"status": "never_run"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     last.Status(),
		"last_cycle": last,
		"summary":    last.Summary(),
	})
}

// PostIngest runs one ingest for ?game_id=N and ?date=YYYY-MM-DD (default yesterday)
func (h *Handler) PostIngest(w http.ResponseWriter, r *http.Request) {
	gameID, err := strconv.Atoi(r.URL.Query().Get("game_id"))
	if err != nil || gameID <= 0 {
		writeError(w, http.StatusBadRequest, "INVALID_GAME_ID", "game_id must be a positive integer")
		return
	}

	date, ok := h.dateParam(w, r)
	if !ok {
		return
	}

	facts := h.deps.Pipeline.Ingest(r.Context(), date, gameID)
	writeJSON(w, http.StatusOK, map[string]any{
		"fantasy_game_id": gameID,
		"date":            date.Format(dateLayout),
		"facts_ingested":  len(facts),
		"facts":           facts,
	})
}

// PostRecompute runs one recalculate pass
func (h *Handler) PostRecompute(w http.ResponseWriter, r *http.Request) {
	result := h.deps.Pipeline.RecomputeAllScores(r.Context())
	writeJSON(w, http.StatusOK, result)
}

// PostCycle runs a full cycle under the job lock and answers 409 when one
// is already in flight
func (h *Handler) PostCycle(w http.ResponseWriter, r *http.Request) {
	date, ok := h.dateParam(w, r)
	if !ok {
		return
	}

	result, ran, err := h.deps.Cycles.Run(r.Context(), date)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "LOCK_UNAVAILABLE", err.Error())
		return
	}
	if !ran {
		writeError(w, http.StatusConflict, "CYCLE_RUNNING", "A cycle is already running")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GetScorecard returns the scorecard for a share token
func (h *Handler) GetScorecard(w http.ResponseWriter, r *http.Request) {
	card, err := h.deps.Scorecards.ForToken(r.Context(), chi.URLParam(r, "token"))
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "No fantasy game for that token")
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("Failed to load scorecard")
		writeError(w, http.StatusInternalServerError, "SCORECARD_FAILED", "Failed to load scorecard")
		return
	}
	writeJSON(w, http.StatusOK, card)
}

func (h *Handler) dateParam(w http.ResponseWriter, r *http.Request) (time.Time, bool) {
	raw := r.URL.Query().Get("date")
	if raw == "" {
		return h.deps.Cycles.Yesterday(), true
	}
	date, err := time.Parse(dateLayout, raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_DATE", "date must be YYYY-MM-DD")
		return time.Time{}, false
	}
	return date, true
}
