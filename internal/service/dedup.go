package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/timmy/devdash/internal/domain"
	"github.com/timmy/devdash/internal/logger"
	"gorm.io/gorm"
)

// PostingStore is the persistence DedupStore needs.
type PostingStore interface {
	GetByUniqueKey(ctx context.Context, key string) (*domain.JobPosting, error)
	Create(ctx context.Context, job *domain.JobPosting) error
	TouchScrapedAt(ctx context.Context, key string, at time.Time) error
}

// UpsertResult reports what Upsert did with a candidate.
type UpsertResult struct {
	Key   string
	IsNew bool
}

// DedupStore is the only write path from scraping into job postings.
// A posting is created on first sighting; later sightings only move
// scraped_at, so status and notes set by the user survive every scrape.
type DedupStore struct {
	repo PostingStore
	now  func() time.Time
}

// NewDedupStore creates a new DedupStore.
// Parameters:
//   - repo: posting persistence.
// Returns:
//   - *DedupStore: store using the wall clock.
func NewDedupStore(repo PostingStore) *DedupStore {
	return &DedupStore{repo: repo, now: time.Now}
}

// Upsert records a sighting of candidate.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - candidate: scraped posting.
//   - source: board the candidate came from.
//   - sourceURL: browsable URL of the board.
// Returns:
//   - UpsertResult: the dedup key and whether a posting was created.
//   - error: non-nil if the candidate could not be stored or touched.
func (s *DedupStore) Upsert(ctx context.Context, candidate domain.ScrapedJob, source domain.SourceName, sourceURL string) (UpsertResult, error) {
	key := candidate.UniqueKey()
	if key == "" {
		return UpsertResult{}, fmt.Errorf("candidate %q at %q has an empty unique key", candidate.Title, candidate.Company)
	}
	res := UpsertResult{Key: key}
	now := s.now().UTC()

	_, err := s.repo.GetByUniqueKey(ctx, key)
	switch {
	case err == nil:
		return res, s.touch(ctx, key, now)
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return res, fmt.Errorf("lookup %s: %w", key, err)
	}

	posting := &domain.JobPosting{
		UniqueKey:      key,
		Title:          candidate.Title,
		Company:        candidate.Company,
		Location:       candidate.Location,
		Salary:         candidate.Salary,
		ApplicationURL: candidate.ApplicationURL,
		Source:         source,
		SourceURL:      sourceURL,
		PostedDate:     candidate.PostedDate.UTC(),
		AgeText:        candidate.AgeText,
		ScrapedAt:      now,
		Status:         domain.JobStatusNew,
		IsActive:       true,
	}
	if posting.PostedDate.IsZero() {
		posting.PostedDate = now
	}

	if err := s.repo.Create(ctx, posting); err != nil {
		// Another cycle inserted the key between lookup and insert
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			logger.FromContext(ctx).WithField(logger.FieldUniqueKey, key).Debug("Lost insert race, touching instead")
			return res, s.touch(ctx, key, now)
		}
		return res, fmt.Errorf("create %s: %w", key, err)
	}

	res.IsNew = true
	return res, nil
}

func (s *DedupStore) touch(ctx context.Context, key string, at time.Time) error {
	if err := s.repo.TouchScrapedAt(ctx, key, at); err != nil {
		return fmt.Errorf("touch %s: %w", key, err)
	}
	return nil
}
