package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/timmy/devdash/internal/domain"
	"github.com/timmy/devdash/internal/logger"
	"github.com/timmy/devdash/internal/repository"
	"gorm.io/gorm"
)

var (
	// ErrJobNotFound is returned when no active posting has the requested ID.
	ErrJobNotFound = errors.New("job posting not found")
	// ErrInvalidStatus is returned for a status outside domain.JobStatuses.
	ErrInvalidStatus = errors.New("invalid job status")
)

const (
	defaultPageSize   = 50
	maxPageSize       = 200
	defaultRecentDays = 3
	defaultStatsDays  = 30
	topCompanies      = 10
)

// ListQuery selects a page of postings.
type ListQuery struct {
	Days     int // only postings from the last Days days; 0 means all
	Status   domain.JobStatus
	Company  string
	Location string
	Source   domain.SourceName
	Page     int
	Limit    int
}

// JobPage is one page of a listing.
type JobPage struct {
	Jobs  []domain.JobPosting `json:"jobs"`
	Total int64               `json:"total"`
	Page  int                 `json:"page"`
	Limit int                 `json:"limit"`
}

// DayCount is the number of postings published on one calendar day.
type DayCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// JobStats summarizes active postings over a window.
type JobStats struct {
	Days         int                     `json:"days"`
	Total        int64                   `json:"total"`
	ByStatus     []repository.GroupCount `json:"byStatus"`
	BySource     []repository.GroupCount `json:"bySource"`
	TopCompanies []repository.GroupCount `json:"topCompanies"`
	ByDay        []DayCount              `json:"byDay"`
}

// JobService implements the user-facing job tracking operations.
type JobService struct {
	repo *repository.JobPostingRepository
	loc  *time.Location
	now  func() time.Time
}

// NewJobService creates a new JobService.
// Parameters:
//   - repo: posting repository.
//   - loc: timezone used for day boundaries; nil means UTC.
// Returns:
//   - *JobService: service instance.
func NewJobService(repo *repository.JobPostingRepository, loc *time.Location) *JobService {
	if loc == nil {
		loc = time.UTC
	}
	return &JobService{repo: repo, loc: loc, now: time.Now}
}

// since returns the start of the day days-1 days ago in the service timezone.
func (s *JobService) since(days int) time.Time {
	now := s.now().In(s.loc)
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	return start.AddDate(0, 0, -(days - 1)).UTC()
}

// List returns one page of active postings matching q.
func (s *JobService) List(ctx context.Context, q ListQuery) (*JobPage, error) {
	if q.Status != "" && !q.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, q.Status)
	}
	page, limit := q.Page, q.Limit
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	filter := repository.JobFilter{
		Status:   q.Status,
		Company:  strings.TrimSpace(q.Company),
		Location: strings.TrimSpace(q.Location),
		Source:   q.Source,
		Limit:    limit,
		Offset:   (page - 1) * limit,
	}
	if q.Days > 0 {
		filter.PostedSince = s.since(q.Days)
	}

	jobs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	if jobs == nil {
		jobs = []domain.JobPosting{}
	}
	return &JobPage{Jobs: jobs, Total: total, Page: page, Limit: limit}, nil
}

// Recent returns active, non-rejected postings from the last days days,
// newest first. days <= 0 means the default window.
func (s *JobService) Recent(ctx context.Context, days int) ([]domain.JobPosting, error) {
	if days <= 0 {
		days = defaultRecentDays
	}
	jobs, _, err := s.repo.List(ctx, repository.JobFilter{
		PostedSince:     s.since(days),
		ExcludeRejected: true,
	})
	if err != nil {
		return nil, fmt.Errorf("recent jobs: %w", err)
	}
	if jobs == nil {
		jobs = []domain.JobPosting{}
	}
	return jobs, nil
}

// Get returns an active posting by ID.
func (s *JobService) Get(ctx context.Context, id string) (*domain.JobPosting, error) {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	return job, nil
}

// UpdateStatus moves a posting through the application workflow.
// AppliedAt is stamped the first time a posting becomes applied.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: posting ID.
//   - status: new status.
//   - notes: replacement notes; nil keeps the current notes.
// Returns:
//   - *domain.JobPosting: the updated posting.
//   - error: ErrInvalidStatus, ErrJobNotFound or a storage error.
func (s *JobService) UpdateStatus(ctx context.Context, id string, status domain.JobStatus, notes *string) (*domain.JobPosting, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{"status": status}
	if notes != nil {
		updates["notes"] = *notes
	}
	if status == domain.JobStatusApplied && current.AppliedAt == nil {
		updates["applied_at"] = s.now().UTC()
	}

	if err := s.repo.UpdateWorkflow(ctx, id, updates); err != nil {
		if isNotFound(err) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("update job %s: %w", id, err)
	}

	logger.FromContext(ctx).WithFields(logger.Fields{
		"job_id":           id,
		logger.FieldStatus: string(status),
	}).Info("Job status updated")

	return s.Get(ctx, id)
}

// Delete soft-deletes a posting. Its unique key stays taken, so the
// scraper will not recreate it.
func (s *JobService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Deactivate(ctx, id); err != nil {
		if isNotFound(err) {
			return ErrJobNotFound
		}
		return fmt.Errorf("delete job %s: %w", id, err)
	}
	return nil
}

// Stats aggregates active postings from the last days days.
func (s *JobService) Stats(ctx context.Context, days int) (*JobStats, error) {
	if days <= 0 {
		days = defaultStatsDays
	}
	since := s.since(days)

	stats := &JobStats{Days: days}
	var err error
	if stats.ByStatus, err = s.repo.CountBy(ctx, "status", since, 0); err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	if stats.BySource, err = s.repo.CountBy(ctx, "source", since, 0); err != nil {
		return nil, fmt.Errorf("count by source: %w", err)
	}
	if stats.TopCompanies, err = s.repo.CountBy(ctx, "company", since, topCompanies); err != nil {
		return nil, fmt.Errorf("count by company: %w", err)
	}
	for _, g := range stats.ByStatus {
		stats.Total += g.Count
	}

	dates, err := s.repo.PostedDatesSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("posted dates: %w", err)
	}
	stats.ByDay = s.bucketByDay(since, days, dates)

	return stats, nil
}

// bucketByDay counts dates per calendar day in the service timezone,
// oldest day first, with empty days reported as zero.
func (s *JobService) bucketByDay(since time.Time, days int, dates []time.Time) []DayCount {
	counts := make(map[string]int64, days)
	for _, d := range dates {
		counts[d.In(s.loc).Format(time.DateOnly)]++
	}

	out := make([]DayCount, 0, days)
	day := since.In(s.loc)
	for i := 0; i < days; i++ {
		key := day.AddDate(0, 0, i).Format(time.DateOnly)
		out = append(out, DayCount{Date: key, Count: counts[key]})
	}
	return out
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
