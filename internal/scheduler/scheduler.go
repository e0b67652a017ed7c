package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"runpool/ingestion/internal/config"
	"runpool/ingestion/internal/lock"
	"runpool/ingestion/internal/metrics"
	"runpool/ingestion/internal/scoring"
)

// Job is the work run once per trigger
type Job interface {
	RunCycle(ctx context.Context, date time.Time) scoring.CycleResult
}

// Scheduler fires the daily cycle on a cron schedule. A trigger that
// arrives while a cycle holds the lock is dropped, never queued.
type Scheduler struct {
	schedule    string
	loc         *time.Location
	initialSync bool

	job    Job
	locker lock.Locker
	status StatusStore
	cron   *cron.Cron
	now    func() time.Time

	inflight sync.WaitGroup
}

// NewScheduler creates a new scheduler instance
func NewScheduler(cfg *config.Config, job Job, locker lock.Locker, status StatusStore) (*Scheduler, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("failed to load scheduler timezone: %w", err)
	}
	if status == nil {
		status = NewMemoryStatus()
	}

	return &Scheduler{
		schedule:    cfg.DailyRunCron,
		loc:         loc,
		initialSync: cfg.InitialSyncEnabled,
		job:         job,
		locker:      locker,
		status:      status,
		cron: cron.New(
			cron.WithParser(cron.NewParser(config.CronFields)),
			cron.WithLocation(loc),
		),
		now: time.Now,
	}, nil
}

// Start registers the daily job and starts the cron loop
func (s *Scheduler) Start(ctx context.Context) error {
	log.Info().Msg("Scheduler starting...")

	if _, err := s.cron.AddFunc(s.schedule, func() {
		s.Trigger(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule daily cycle: %w", err)
	}

	s.cron.Start()
	log.Info().
		Str("schedule", s.schedule).
		Str("timezone", s.loc.String()).
		Msg("Daily cycle scheduled")

	if s.initialSync {
		log.Info().Msg("Running initial sync")
		go s.Trigger(ctx)
	}

	return nil
}

// Stop halts the cron loop and waits for an in-flight cycle, or until ctx
// is done
func (s *Scheduler) Stop(ctx context.Context) {
	log.Info().Msg("Stopping scheduler...")

	cronDone := s.cron.Stop()

	finished := make(chan struct{})
	go func() {
		<-cronDone.Done()
		s.inflight.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		log.Info().Msg("Scheduler stopped")
	case <-ctx.Done():
		log.Warn().Msg("Scheduler stop timed out with a cycle still running")
	}
}

// Yesterday is the calendar day before now in the scheduler timezone
func (s *Scheduler) Yesterday() time.Time {
	return s.now().In(s.loc).AddDate(0, 0, -1)
}

// Trigger runs a cycle for yesterday unless one is already running. It
// reports whether a cycle ran.
func (s *Scheduler) Trigger(ctx context.Context) bool {
	_, ran, err := s.Run(ctx, s.Yesterday())
	if err != nil {
		log.Error().Err(err).Msg("Daily cycle not started")
	}
	return ran
}

// Run executes one cycle for date under the job lock. ran is false when
// the lock was held elsewhere.
func (s *Scheduler) Run(ctx context.Context, date time.Time) (result scoring.CycleResult, ran bool, err error) {
	release, ok, err := s.locker.TryLock(ctx)
	if err != nil {
		metrics.RecordError("scheduler", "lock")
		return scoring.CycleResult{}, false, fmt.Errorf("failed to acquire job lock: %w", err)
	}
	if !ok {
		metrics.LockContention.Inc()
		log.Debug().Msg("Daily cycle already running, trigger dropped")
		return scoring.CycleResult{}, false, nil
	}
	defer release()

	s.inflight.Add(1)
	defer s.inflight.Done()

	// shutdown must not abort a cycle halfway
	ctx = context.WithoutCancel(ctx)

	start := s.now()
	result = s.job.RunCycle(ctx, date)
	metrics.RecordCycle(result.Status(), s.now().Sub(start).Seconds())

	if err := s.status.Save(ctx, result); err != nil {
		log.Warn().Err(err).Msg("Failed to store cycle summary")
	}

	return result, true, nil
}

// LastResult returns the most recent cycle summary, or nil before the first
func (s *Scheduler) LastResult(ctx context.Context) (*scoring.CycleResult, error) {
	return s.status.Last(ctx)
}
