package scoring

import (
	"fmt"
	"time"

	"runpool/ingestion/internal/models"
)

// IngestResult describes one Fetcher call
type IngestResult struct {
	FantasyGameID int
	Date          time.Time
	Scheduled     int
	Skipped       map[string]int
	Rejected      int
	Facts         []*models.ScoreFact
	Err           error
}

// ReconcileResult describes one Reconciler pass
type ReconcileResult struct {
	GamesProcessed   int
	GamesFailed      int
	RunTotalsCreated int
	Committed        bool
	Errors           []string
}

// RecalculateResult describes one Recalculator pass
type RecalculateResult struct {
	PlayersUpdated int
	PlayersFailed  int
	GamesCompleted int
	Committed      bool
	Errors         []string
}

// CycleResult describes one scheduled run of the whole pipeline
type CycleResult struct {
	Date           time.Time     `json:"date"`
	StartedAt      time.Time     `json:"started_at"`
	Duration       time.Duration `json:"duration"`
	GamesProcessed int           `json:"games_processed"`
	GamesFailed    int           `json:"games_failed"`
	FactsIngested  int           `json:"facts_ingested"`
	RunTotals      int           `json:"run_totals_created"`
	ScoresUpdated  int           `json:"scores_updated"`
	GamesCompleted int           `json:"games_completed"`
	Errors         []string      `json:"errors,omitempty"`
}

// Status is "success" when nothing failed, otherwise "partial"
func (r CycleResult) Status() string {
	if len(r.Errors) == 0 {
		return "success"
	}
	return "partial"
}

// Summary is a one-line description for logs and CLI output
func (r CycleResult) Summary() string {
	return fmt.Sprintf(
		"date=%s games=%d failed=%d facts=%d run_totals=%d scores=%d completed=%d errors=%d",
		r.Date.Format("2006-01-02"), r.GamesProcessed, r.GamesFailed, r.FactsIngested,
		r.RunTotals, r.ScoresUpdated, r.GamesCompleted, len(r.Errors),
	)
}
