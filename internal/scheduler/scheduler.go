package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/timmy/devdash/internal/domain"
	"github.com/timmy/devdash/internal/logger"
	"github.com/timmy/devdash/internal/service"
)

// Runner runs one scrape cycle.
type Runner interface {
	ScrapeAll(ctx context.Context, trigger domain.RunTrigger) (*domain.ScrapeResult, error)
}

// Config controls when the daily scrape fires.
type Config struct {
	// Spec is a five-field cron expression, e.g. "0 8 * * *".
	Spec     string
	Location *time.Location
	// RunTimeout bounds a scheduled cycle; zero means no bound.
	RunTimeout time.Duration
}

// Scheduler fires Runner.ScrapeAll once a day at a fixed local time.
type Scheduler struct {
	runner Runner
	spec   string
	loc    *time.Location
	parsed cron.Schedule

	timeout time.Duration
	logger  *logger.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	entryID cron.EntryID
	// baseCtx is cancelled by Stop so an in-flight scheduled cycle winds down.
	baseCtx context.Context
	cancel  context.CancelFunc
}

// New creates a stopped scheduler.
// Parameters:
//   - runner: what to run on each firing.
//   - cfg: schedule and timezone; a nil Location means UTC.
//   - log: logger for firings; nil uses the default logger.
// Returns:
//   - *Scheduler: scheduler ready for Start.
//   - error: non-nil if the cron expression is invalid.
func New(runner Runner, cfg Config, log *logger.Logger) (*Scheduler, error) {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	parsed, err := cron.ParseStandard(cfg.Spec)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", cfg.Spec, err)
	}
	if log == nil {
		log = logger.GetDefault()
	}
	return &Scheduler{
		runner:  runner,
		spec:    cfg.Spec,
		loc:     loc,
		parsed:  parsed,
		timeout: cfg.RunTimeout,
		logger:  log.WithField(logger.FieldComponent, "scheduler"),
	}, nil
}

// Start begins firing on schedule. Calling Start on a running scheduler
// does nothing.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		return nil
	}

	c := cron.New(cron.WithLocation(s.loc))
	id, err := c.AddFunc(s.spec, s.fire)
	if err != nil {
		return fmt.Errorf("schedule %q: %w", s.spec, err)
	}
	s.baseCtx, s.cancel = context.WithCancel(context.Background())
	s.cron = c
	s.entryID = id
	c.Start()

	s.logger.WithFields(logger.Fields{
		"schedule": s.spec,
		"timezone": s.loc.String(),
		"next_run": c.Entry(id).Next.Format(time.RFC3339),
	}).Info("Scheduler started")
	return nil
}

// Stop halts the schedule and waits for a running scheduled cycle to
// return. Calling Stop on a stopped scheduler does nothing.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	c, cancel := s.cron, s.cancel
	s.cron = nil
	s.cancel = nil
	s.mu.Unlock()

	if c == nil {
		return
	}
	cancel()
	<-c.Stop().Done()
	s.logger.Info("Scheduler stopped")
}

// IsRunning reports whether the schedule is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cron != nil
}

// NextRun returns the next scheduled firing; ok is false while stopped.
func (s *Scheduler) NextRun() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron == nil {
		return time.Time{}, false
	}
	next := s.cron.Entry(s.entryID).Next
	if next.IsZero() {
		// Entry.Next is filled in once the cron goroutine has scheduled it.
		next = s.parsed.Next(time.Now().In(s.loc))
	}
	return next, true
}

// TriggerManual runs a cycle now, outside the schedule, and returns
// exactly what the runner returns.
func (s *Scheduler) TriggerManual(ctx context.Context) (*domain.ScrapeResult, error) {
	return s.runner.ScrapeAll(ctx, domain.TriggerManual)
}

func (s *Scheduler) fire() {
	s.mu.Lock()
	ctx := s.baseCtx
	s.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	ctx = s.logger.WithContext(ctx)
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	log := logger.FromContext(ctx)
	log.Info("Running scheduled scrape")
	res, err := s.runner.ScrapeAll(ctx, domain.TriggerScheduled)
	if err != nil {
		if errors.Is(err, service.ErrScrapeInProgress) {
			log.Warn("Skipping scheduled scrape: a cycle is already in progress")
			return
		}
		log.WithError(err).Error("Scheduled scrape failed")
		return
	}

	log.WithFields(logger.Fields{
		logger.FieldNewCount: res.NewJobs,
		logger.FieldCount:    res.TotalJobs,
		"errors":             len(res.Errors),
	}).Info("Scheduled scrape complete")
}
