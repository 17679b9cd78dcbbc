package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/timmy/devdash/internal/domain"
	"gorm.io/gorm"
)

// JobFilter narrows a posting listing. Zero values mean "no filter".
type JobFilter struct {
	PostedSince     time.Time
	Status          domain.JobStatus
	ExcludeRejected bool
	Company         string // case-insensitive substring
	Location        string // case-insensitive substring
	Source          domain.SourceName
	Limit           int
	Offset          int
}

// GroupCount is one bucket of an aggregate count.
type GroupCount struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// groupableColumns whitelists the columns CountBy accepts.
var groupableColumns = map[string]bool{
	"status":  true,
	"source":  true,
	"company": true,
}

// JobPostingRepository handles job posting data operations.
type JobPostingRepository struct {
	db *gorm.DB
}

// NewJobPostingRepository creates a new JobPostingRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *JobPostingRepository: repository instance bound to db.
func NewJobPostingRepository(db *gorm.DB) *JobPostingRepository {
	return &JobPostingRepository{db: db}
}

// Create inserts a new posting. A taken unique key yields gorm.ErrDuplicatedKey.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - job: posting to persist; ID and UniqueKey are filled in by hooks.
// Returns:
//   - error: non-nil if the insert fails.
func (r *JobPostingRepository) Create(ctx context.Context, job *domain.JobPosting) error {
	return r.db.WithContext(ctx).Create(job).Error
}

// GetByID retrieves an active posting by its ID.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: posting ID.
// Returns:
//   - *domain.JobPosting: posting if found.
//   - error: gorm.ErrRecordNotFound when missing or soft-deleted.
func (r *JobPostingRepository) GetByID(ctx context.Context, id string) (*domain.JobPosting, error) {
	var job domain.JobPosting
	if err := r.db.WithContext(ctx).First(&job, "id = ? AND is_active = ?", id, true).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

// GetByUniqueKey retrieves a posting by dedup key, active or not.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - key: value of domain.UniqueKey.
// Returns:
//   - *domain.JobPosting: posting if found.
//   - error: gorm.ErrRecordNotFound when missing.
func (r *JobPostingRepository) GetByUniqueKey(ctx context.Context, key string) (*domain.JobPosting, error) {
	var job domain.JobPosting
	if err := r.db.WithContext(ctx).First(&job, "unique_key = ?", key).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

// TouchScrapedAt records a repeat sighting. Only scraped_at is written;
// hooks and updated_at are bypassed.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - key: dedup key of the posting.
//   - at: observation time.
// Returns:
//   - error: gorm.ErrRecordNotFound when no row has key.
func (r *JobPostingRepository) TouchScrapedAt(ctx context.Context, key string, at time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&domain.JobPosting{}).
		Where("unique_key = ?", key).
		UpdateColumn("scraped_at", at)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// List returns postings matching f, newest posting first, and the total
// number of matches before paging.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - f: filter and page window; only active postings are ever returned.
// Returns:
//   - []domain.JobPosting: the requested page.
//   - int64: total matches.
//   - error: non-nil if a query fails.
func (r *JobPostingRepository) List(ctx context.Context, f JobFilter) ([]domain.JobPosting, int64, error) {
	var total int64
	if err := r.filtered(ctx, f).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := r.filtered(ctx, f).Order("posted_date DESC").Order("scraped_at DESC")
	if f.Limit > 0 {
		query = query.Limit(f.Limit)
	}
	if f.Offset > 0 {
		query = query.Offset(f.Offset)
	}

	var jobs []domain.JobPosting
	if err := query.Find(&jobs).Error; err != nil {
		return nil, 0, err
	}
	return jobs, total, nil
}

// filtered builds a fresh query chain for f on every call.
func (r *JobPostingRepository) filtered(ctx context.Context, f JobFilter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&domain.JobPosting{}).Where("is_active = ?", true)
	if !f.PostedSince.IsZero() {
		query = query.Where("posted_date >= ?", f.PostedSince)
	}
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if f.ExcludeRejected {
		query = query.Where("status <> ?", domain.JobStatusRejected)
	}
	if f.Company != "" {
		query = query.Where("LOWER(company) LIKE ?", "%"+strings.ToLower(f.Company)+"%")
	}
	if f.Location != "" {
		query = query.Where("LOWER(location) LIKE ?", "%"+strings.ToLower(f.Location)+"%")
	}
	if f.Source != "" {
		query = query.Where("source = ?", f.Source)
	}
	return query
}

// UpdateWorkflow writes user-owned fields of an active posting.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: posting ID.
//   - updates: column → value; callers pass only status, notes and applied_at.
// Returns:
//   - error: gorm.ErrRecordNotFound when the posting does not exist.
func (r *JobPostingRepository) UpdateWorkflow(ctx context.Context, id string, updates map[string]interface{}) error {
	res := r.db.WithContext(ctx).
		Model(&domain.JobPosting{}).
		Where("id = ? AND is_active = ?", id, true).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Deactivate soft-deletes a posting.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: posting ID.
// Returns:
//   - error: gorm.ErrRecordNotFound when no active posting has id.
func (r *JobPostingRepository) Deactivate(ctx context.Context, id string) error {
	return r.UpdateWorkflow(ctx, id, map[string]interface{}{"is_active": false})
}

// CountBy groups active postings seen since the given time by column.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - column: one of status, source, company.
//   - since: lower bound on posted_date; zero means all time.
//   - limit: maximum number of groups; 0 means all.
// Returns:
//   - []GroupCount: groups ordered by count descending.
//   - error: non-nil for an unknown column or a failed query.
func (r *JobPostingRepository) CountBy(ctx context.Context, column string, since time.Time, limit int) ([]GroupCount, error) {
	if !groupableColumns[column] {
		return nil, fmt.Errorf("cannot group postings by %q", column)
	}

	query := r.db.WithContext(ctx).
		Model(&domain.JobPosting{}).
		Select(column+" AS name, COUNT(*) AS count").
		Where("is_active = ?", true)
	if !since.IsZero() {
		query = query.Where("posted_date >= ?", since)
	}
	query = query.Group(column).Order("count DESC").Order(column)
	if limit > 0 {
		query = query.Limit(limit)
	}

	var out []GroupCount
	if err := query.Scan(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// PostedDatesSince returns posted_date of every active posting since the given time.
func (r *JobPostingRepository) PostedDatesSince(ctx context.Context, since time.Time) ([]time.Time, error) {
	var dates []time.Time
	err := r.db.WithContext(ctx).
		Model(&domain.JobPosting{}).
		Where("is_active = ? AND posted_date >= ?", true, since).
		Pluck("posted_date", &dates).Error
	if err != nil {
		return nil, err
	}
	return dates, nil
}
