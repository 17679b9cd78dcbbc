package repository

import (
	"context"

	"github.com/timmy/devdash/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ScrapeRunRepository handles scrape run history.
type ScrapeRunRepository struct {
	db *gorm.DB
}

// NewScrapeRunRepository creates a new ScrapeRunRepository.
func NewScrapeRunRepository(db *gorm.DB) *ScrapeRunRepository {
	return &ScrapeRunRepository{db: db}
}

// Create inserts a new run.
func (r *ScrapeRunRepository) Create(ctx context.Context, run *domain.ScrapeRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

// Update saves every field of run.
func (r *ScrapeRunRepository) Update(ctx context.Context, run *domain.ScrapeRun) error {
	return r.db.WithContext(ctx).Save(run).Error
}

// Latest returns the most recently started run.
// Returns gorm.ErrRecordNotFound when nothing has run yet.
func (r *ScrapeRunRepository) Latest(ctx context.Context) (*domain.ScrapeRun, error) {
	var run domain.ScrapeRun
	if err := r.db.WithContext(ctx).Order("started_at DESC").First(&run).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

// List returns up to limit runs, newest first. limit <= 0 means 20.
func (r *ScrapeRunRepository) List(ctx context.Context, limit int) ([]domain.ScrapeRun, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []domain.ScrapeRun
	if err := r.db.WithContext(ctx).
		Order("started_at DESC").
		Limit(limit).
		Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

// SourceStateRepository tracks per-board fetch health.
type SourceStateRepository struct {
	db *gorm.DB
}

// NewSourceStateRepository creates a new SourceStateRepository.
func NewSourceStateRepository(db *gorm.DB) *SourceStateRepository {
	return &SourceStateRepository{db: db}
}

// Upsert creates or replaces the state row keyed by source name.
func (r *SourceStateRepository) Upsert(ctx context.Context, state *domain.SourceState) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		UpdateAll: true,
	}).Create(state).Error
}

// Get returns the state of one board.
func (r *SourceStateRepository) Get(ctx context.Context, name domain.SourceName) (*domain.SourceState, error) {
	var state domain.SourceState
	if err := r.db.WithContext(ctx).First(&state, "name = ?", name).Error; err != nil {
		return nil, err
	}
	return &state, nil
}

// List returns every known board ordered by name.
func (r *SourceStateRepository) List(ctx context.Context) ([]domain.SourceState, error) {
	var states []domain.SourceState
	if err := r.db.WithContext(ctx).Order("name").Find(&states).Error; err != nil {
		return nil, err
	}
	return states, nil
}
