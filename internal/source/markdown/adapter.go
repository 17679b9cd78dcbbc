package markdown

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/timmy/devdash/internal/age"
	"github.com/timmy/devdash/internal/domain"
	"github.com/timmy/devdash/internal/logger"
	"github.com/timmy/devdash/internal/source"
)

// DefaultRecencyDays is how old a posting may be and still be kept.
const DefaultRecencyDays = 3

// Definition describes one markdown job board.
type Definition struct {
	Name        domain.SourceName
	DisplayName string
	DocumentURL string
	RawURL      string
	Locator     TableLocator
	Columns     ColumnMap
}

// Adapter implements source.Source for a markdown job board.
type Adapter struct {
	def         Definition
	fetcher     source.Fetcher
	ages        *age.Normalizer
	recencyDays int
}

// NewAdapter creates a new Adapter.
// Parameters:
//   - def: board layout and location.
//   - fetcher: document fetcher.
//   - ages: age label normalizer.
//   - recencyDays: keep rows at most this many days old; negative uses DefaultRecencyDays.
// Returns:
//   - *Adapter: source ready to scrape.
func NewAdapter(def Definition, fetcher source.Fetcher, ages *age.Normalizer, recencyDays int) *Adapter {
	if recencyDays < 0 {
		recencyDays = DefaultRecencyDays
	}
	return &Adapter{
		def:         def,
		fetcher:     fetcher,
		ages:        ages,
		recencyDays: recencyDays,
	}
}

// GetSourceID returns the unique identifier for this source
func (a *Adapter) GetSourceID() domain.SourceName {
	return a.def.Name
}

// GetDisplayName returns a human-readable name for this source
func (a *Adapter) GetDisplayName() string {
	return a.def.DisplayName
}

// GetDocumentURL returns the browsable document URL
func (a *Adapter) GetDocumentURL() string {
	return a.def.DocumentURL
}

// Scrape implements source.Source.
func (a *Adapter) Scrape(ctx context.Context) ([]domain.ScrapedJob, error) {
	ctx = logger.SetSource(ctx, string(a.def.Name))
	start := time.Now()

	body, err := a.fetcher.Fetch(ctx, a.def.Name, a.def.RawURL)
	if err != nil {
		return nil, err
	}

	jobs, stats := a.parse(ctx, string(body))

	logger.With(logger.Fields{
		"rows":    stats.rows,
		"skipped": stats.skipped,
		"stale":   stats.stale,
	}).WithCount(len(jobs)).
		WithDuration(time.Since(start).Milliseconds()).
		Info(ctx, "Scraped %s", a.def.DisplayName)

	return jobs, nil
}

type parseStats struct {
	rows    int
	skipped int
	stale   int
}

func (a *Adapter) parse(ctx context.Context, doc string) ([]domain.ScrapedJob, parseStats) {
	var stats parseStats
	rows := a.def.Locator.Rows(doc)
	stats.rows = len(rows)
	if len(rows) == 0 {
		logger.CtxWarn(ctx, "No table rows found in %s", a.def.RawURL)
	}

	parser := NewRowParser(a.def.Columns)
	jobs := make([]domain.ScrapedJob, 0, len(rows))

	for _, line := range rows {
		job, err := a.parseRow(parser, line)
		if err != nil {
			stats.skipped++
			if errors.Is(err, ErrTooFewCells) {
				logger.CtxDebug(ctx, "Skipping malformed row: %v", err)
			} else {
				logger.FromContext(ctx).WithError(err).Warnf("Failed to parse row: %s", line)
			}
			continue
		}
		if job == nil {
			stats.skipped++
			continue
		}

		posted, ok := a.ages.ToDate(job.AgeText)
		if !ok || !a.ages.IsRecent(job.AgeText, a.recencyDays) {
			stats.stale++
			continue
		}
		job.PostedDate = posted
		jobs = append(jobs, *job)
	}

	return jobs, stats
}

// parseRow shields the table scan from a panicking row.
func (a *Adapter) parseRow(parser *RowParser, line string) (job *domain.ScrapedJob, err error) {
	defer func() {
		if r := recover(); r != nil {
			job, err = nil, fmt.Errorf("panic parsing row: %v", r)
		}
	}()
	return parser.Parse(line)
}
