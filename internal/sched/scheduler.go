package sched

import (
	"context"
	"time"

	"orb-news-trader/internal/interfaces"
	"orb-news-trader/internal/logger"
	"orb-news-trader/internal/store"
)

var easternTime = mustLoadET()

func mustLoadET() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		panic("tzdata missing America/New_York: " + err.Error())
	}
	return loc
}

// Period is a slice of the ET trading day with its own cycle cadence.
// Bounds are minutes since midnight, start inclusive, end exclusive.
type Period struct {
	Name     string
	StartMin int
	EndMin   int
	Interval time.Duration
}

// The day is fully covered: denser cycles around the open, sparse ones
// overnight.
var periods = []Period{
	{"overnight", 0, 4 * 60, 90 * time.Minute},
	{"pre_market", 4 * 60, 9*60 + 30, 15 * time.Minute},
	{"market_open", 9*60 + 30, 10*60 + 30, 5 * time.Minute},
	{"morning", 10*60 + 30, 12 * 60, 15 * time.Minute},
	{"midday", 12 * 60, 14 * 60, 30 * time.Minute},
	{"afternoon", 14 * 60, 15 * 60, 15 * time.Minute},
	{"power_hour", 15 * 60, 16 * 60, 10 * time.Minute},
	{"after_hours", 16 * 60, 20 * 60, 20 * time.Minute},
	{"evening", 20 * 60, 24 * 60, 45 * time.Minute},
}

// PeriodFor returns the schedule period covering the instant, in ET.
func PeriodFor(t time.Time) Period {
	et := t.In(easternTime)
	m := et.Hour()*60 + et.Minute()
	for _, p := range periods {
		if m >= p.StartMin && m < p.EndMin {
			return p
		}
	}
	// Unreachable, the table covers 0..1440.
	return periods[0]
}

type lastRunDoc struct {
	LastRun time.Time `json:"last_run"`
}

// Scheduler drives the engine on a time-of-day cadence. The last-run
// timestamp is durable, so a restart doesn't trigger an immediate extra
// cycle.
type Scheduler struct {
	engine interfaces.Engine
	docs   store.DocumentStore
	cfg    *store.Config

	now func() time.Time // test seam
}

func New(engine interfaces.Engine, docs store.DocumentStore, cfg *store.Config) *Scheduler {
	return &Scheduler{
		engine: engine,
		docs:   docs,
		cfg:    cfg,
		now:    time.Now,
	}
}

// Due reports whether a cycle should run now, given the active period's
// interval and the persisted last-run time.
func (s *Scheduler) Due(now time.Time) (bool, Period, error) {
	p := PeriodFor(now)

	var doc lastRunDoc
	if err := s.docs.Load(store.DocLastRun, &doc); err != nil {
		return false, p, err
	}
	if doc.LastRun.IsZero() {
		return true, p, nil
	}
	return now.Sub(doc.LastRun) >= p.Interval, p, nil
}

// Run blocks, running cycles on cadence until the context is canceled.
// Cycles never overlap: the next check waits for the previous cycle to
// finish.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	logger.Info(ctx, "Scheduler started",
		"periods", len(periods),
		"cycle_timeout_min", s.cfg.Scheduler.CycleTimeoutMinutes,
	)

	// First check immediately rather than waiting a tick.
	s.maybeRun(ctx)

	for {
		select {
		case <-ctx.Done():
			logger.Info(ctx, "Scheduler stopping")
			return ctx.Err()
		case <-ticker.C:
			s.maybeRun(ctx)
		}
	}
}

func (s *Scheduler) maybeRun(ctx context.Context) {
	now := s.now()
	due, period, err := s.Due(now)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to read last-run state", err)
		return
	}
	if !due {
		return
	}

	logger.Info(ctx, "Cycle due", "period", period.Name, "interval", period.Interval.String())
	s.runWithRetries(ctx)
}

// runWithRetries runs one cycle, retrying transient failures a bounded
// number of times. The last-run timestamp advances even when all attempts
// fail, so a broken upstream doesn't turn into a tight retry loop.
func (s *Scheduler) runWithRetries(ctx context.Context) {
	retryDelay := time.Duration(s.cfg.Scheduler.RetryDelaySeconds) * time.Second

	var lastErr error
	for attempt := 1; attempt <= s.cfg.Scheduler.MaxRetries; attempt++ {
		lastErr = s.runOnce(ctx)
		if lastErr == nil {
			break
		}
		if ctx.Err() != nil {
			return
		}
		logger.ErrorWithErr(ctx, "Cycle attempt failed", lastErr,
			"attempt", attempt, "max_retries", s.cfg.Scheduler.MaxRetries)
		if attempt < s.cfg.Scheduler.MaxRetries {
			select {
			case <-ctx.Done():
				return
			case <-time.After(retryDelay):
			}
		}
	}
	if lastErr != nil {
		logger.Error(ctx, "Cycle failed after all retries", "retries", s.cfg.Scheduler.MaxRetries)
	}

	doc := lastRunDoc{LastRun: s.now()}
	if err := s.docs.Save(store.DocLastRun, &doc); err != nil {
		logger.ErrorWithErr(ctx, "Failed to persist last-run state", err)
	}
}

func (s *Scheduler) runOnce(ctx context.Context) error {
	timeout := time.Duration(s.cfg.Scheduler.CycleTimeoutMinutes) * time.Minute
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	_, err := s.engine.RunCycle(cctx)
	return err
}
