package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/timmy/devdash/internal/domain"
	"github.com/timmy/devdash/internal/logger"
	"github.com/timmy/devdash/internal/metrics"
	"github.com/timmy/devdash/internal/repository"
	"github.com/timmy/devdash/internal/source"
	"golang.org/x/sync/errgroup"
)

// ErrScrapeInProgress is returned when a cycle is requested while another runs.
var ErrScrapeInProgress = errors.New("scrape already in progress")

// maxConcurrentFetches caps how many sources are fetched at once.
const maxConcurrentFetches = 4

// ScrapeService runs scrape cycles across every configured source.
type ScrapeService struct {
	sources []source.Source
	dedup   *DedupStore
	runs    *repository.ScrapeRunRepository
	states  *repository.SourceStateRepository
	metrics *metrics.Metrics
	logger  *logger.Logger
	now     func() time.Time

	running atomic.Bool
}

// NewScrapeService creates a new scrape service.
// Parameters:
//   - sources: boards in the order their results are persisted.
//   - dedup: write path for candidates.
//   - runs: run history; nil disables history.
//   - states: per-source health; nil disables tracking.
//   - m: metrics; nil disables metrics.
//   - log: fallback logger.
// Returns:
//   - *ScrapeService: service ready for ScrapeAll.
func NewScrapeService(
	sources []source.Source,
	dedup *DedupStore,
	runs *repository.ScrapeRunRepository,
	states *repository.SourceStateRepository,
	m *metrics.Metrics,
	log *logger.Logger,
) *ScrapeService {
	if log == nil {
		log = logger.GetDefault()
	}
	return &ScrapeService{
		sources: sources,
		dedup:   dedup,
		runs:    runs,
		states:  states,
		metrics: m,
		logger:  log,
		now:     time.Now,
	}
}

func (s *ScrapeService) log(ctx context.Context) *logger.Logger {
	if ctx == nil {
		return s.logger
	}
	return logger.FromContext(ctx)
}

// Sources returns the configured sources in persistence order.
func (s *ScrapeService) Sources() []source.Source {
	return s.sources
}

// IsRunning reports whether a cycle is in progress.
func (s *ScrapeService) IsRunning() bool {
	return s.running.Load()
}

type sourceOutcome struct {
	jobs     []domain.ScrapedJob
	err      error
	duration time.Duration
}

// ScrapeAll runs one cycle: every source is fetched concurrently, then the
// results are persisted source by source in configuration order. A failing
// source adds "<DisplayName> scraping failed: <cause>" to Errors and counts
// nothing; other sources are unaffected. Per-posting write failures are
// logged and skipped.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - trigger: what started the cycle, recorded in history and metrics.
// Returns:
//   - *domain.ScrapeResult: new and total candidate counts plus source errors.
//   - error: ErrScrapeInProgress when another cycle holds the service.
func (s *ScrapeService) ScrapeAll(ctx context.Context, trigger domain.RunTrigger) (*domain.ScrapeResult, error) {
	if !s.running.CompareAndSwap(false, true) {
		if s.metrics != nil {
			s.metrics.RunsSkipped.Inc()
		}
		return nil, ErrScrapeInProgress
	}
	defer s.running.Store(false)

	start := s.now()
	run := &domain.ScrapeRun{
		ID:        uuid.New().String(),
		Trigger:   trigger,
		Status:    domain.RunStatusRunning,
		StartedAt: start.UTC(),
	}
	if logger.FromContext(ctx) == logger.GetDefault() {
		ctx = s.logger.WithContext(ctx)
	}
	ctx = logger.WithFields(ctx, logger.Fields{
		logger.FieldRunID:     run.ID,
		logger.FieldTrigger:   string(trigger),
		logger.FieldComponent: "scraper",
	})
	log := s.log(ctx)
	log.WithField(logger.FieldCount, len(s.sources)).Info("Starting scrape")
	s.recordRunStart(ctx, run)

	outcomes := s.fetchAll(ctx)

	result := &domain.ScrapeResult{Errors: []string{}}
	failed := 0
	for i, src := range s.sources {
		out := outcomes[i]
		if out.err != nil {
			failed++
			msg := fmt.Sprintf("%s scraping failed: %v", src.GetDisplayName(), out.err)
			result.Errors = append(result.Errors, msg)
			log.WithField(logger.FieldSource, string(src.GetSourceID())).WithError(out.err).Error(msg)
			if s.metrics != nil {
				s.metrics.SourceErrors.WithLabelValues(string(src.GetSourceID())).Inc()
			}
			s.recordSourceState(ctx, src, 0, 0, out.err)
			continue
		}

		newCount := s.persist(ctx, src, out.jobs)
		result.NewJobs += newCount
		result.TotalJobs += len(out.jobs)

		logger.With(logger.Fields{
			logger.FieldSource:   string(src.GetSourceID()),
			logger.FieldNewCount: newCount,
		}).WithCount(len(out.jobs)).
			WithDuration(out.duration.Milliseconds()).
			Info(ctx, "%s: found %d jobs, %d new", src.GetDisplayName(), len(out.jobs), newCount)
		if s.metrics != nil {
			s.metrics.JobsFound.WithLabelValues(string(src.GetSourceID())).Add(float64(len(out.jobs)))
			s.metrics.JobsNew.WithLabelValues(string(src.GetSourceID())).Add(float64(newCount))
		}
		s.recordSourceState(ctx, src, len(out.jobs), newCount, nil)
	}

	run.Status = domain.RunStatusCompleted
	if len(s.sources) > 0 && failed == len(s.sources) {
		run.Status = domain.RunStatusFailed
	}
	run.NewJobs = result.NewJobs
	run.TotalJobs = result.TotalJobs
	run.Errors = domain.StringArray(result.Errors)
	completed := s.now().UTC()
	run.CompletedAt = &completed
	s.recordRunEnd(ctx, run)

	elapsed := s.now().Sub(start)
	if s.metrics != nil {
		s.metrics.RunsTotal.WithLabelValues(string(trigger), string(run.Status)).Inc()
		s.metrics.RunDuration.Observe(elapsed.Seconds())
	}
	logger.With(logger.Fields{logger.FieldNewCount: result.NewJobs}).
		WithCount(result.TotalJobs).
		WithStatus(string(run.Status)).
		WithDuration(elapsed.Milliseconds()).
		Info(ctx, "Scrape finished with %d error(s)", len(result.Errors))

	return result, nil
}

// fetchAll scrapes every source in parallel; outcomes[i] belongs to s.sources[i].
func (s *ScrapeService) fetchAll(ctx context.Context) []sourceOutcome {
	outcomes := make([]sourceOutcome, len(s.sources))

	// Errors land in outcomes; a failing source must not cancel the others.
	var g errgroup.Group
	g.SetLimit(maxConcurrentFetches)
	for i, src := range s.sources {
		g.Go(func() (err error) {
			started := s.now()
			defer func() {
				if r := recover(); r != nil {
					outcomes[i] = sourceOutcome{err: fmt.Errorf("panic: %v", r)}
				}
			}()
			jobs, scrapeErr := src.Scrape(ctx)
			outcomes[i] = sourceOutcome{jobs: jobs, err: scrapeErr, duration: s.now().Sub(started)}
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

// persist upserts jobs and returns how many were new.
func (s *ScrapeService) persist(ctx context.Context, src source.Source, jobs []domain.ScrapedJob) int {
	newCount := 0
	for _, job := range jobs {
		res, err := s.dedup.Upsert(ctx, job, src.GetSourceID(), src.GetDocumentURL())
		if err != nil {
			s.log(ctx).WithFields(logger.Fields{
				logger.FieldSource: string(src.GetSourceID()),
				"company":          job.Company,
				"title":            job.Title,
			}).WithError(err).Error("Failed to save job")
			if s.metrics != nil {
				s.metrics.PersistFails.WithLabelValues(string(src.GetSourceID())).Inc()
			}
			continue
		}
		if res.IsNew {
			newCount++
		}
	}
	return newCount
}

func (s *ScrapeService) recordRunStart(ctx context.Context, run *domain.ScrapeRun) {
	if s.runs == nil {
		return
	}
	if err := s.runs.Create(ctx, run); err != nil {
		s.log(ctx).WithError(err).Warn("Failed to record scrape run")
	}
}

func (s *ScrapeService) recordRunEnd(ctx context.Context, run *domain.ScrapeRun) {
	if s.runs == nil {
		return
	}
	if err := s.runs.Update(ctx, run); err != nil {
		s.log(ctx).WithError(err).Warn("Failed to update scrape run")
	}
}

func (s *ScrapeService) recordSourceState(ctx context.Context, src source.Source, found, newCount int, scrapeErr error) {
	if s.states == nil {
		return
	}

	state, err := s.states.Get(ctx, src.GetSourceID())
	if err != nil {
		state = &domain.SourceState{Name: src.GetSourceID()}
	}
	now := s.now().UTC()
	state.DisplayName = src.GetDisplayName()
	state.DocumentURL = src.GetDocumentURL()
	state.LastRunAt = &now
	if scrapeErr != nil {
		state.LastError = scrapeErr.Error()
	} else {
		state.LastError = ""
		state.LastSuccessAt = &now
		state.LastJobCount = found
		state.LastNewCount = newCount
	}

	if err := s.states.Upsert(ctx, state); err != nil {
		s.log(ctx).WithField(logger.FieldSource, string(src.GetSourceID())).WithError(err).Warn("Failed to record source state")
	}
}

// LatestRun returns the most recent run, or nil when none is recorded.
func (s *ScrapeService) LatestRun(ctx context.Context) (*domain.ScrapeRun, error) {
	if s.runs == nil {
		return nil, nil
	}
	run, err := s.runs.Latest(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return run, nil
}

// History returns up to limit runs, newest first.
func (s *ScrapeService) History(ctx context.Context, limit int) ([]domain.ScrapeRun, error) {
	if s.runs == nil {
		return []domain.ScrapeRun{}, nil
	}
	return s.runs.List(ctx, limit)
}

// SourceStates returns the recorded health of every source.
func (s *ScrapeService) SourceStates(ctx context.Context) ([]domain.SourceState, error) {
	if s.states == nil {
		return []domain.SourceState{}, nil
	}
	return s.states.List(ctx)
}
