package source

import (
	"context"

	"github.com/timmy/devdash/internal/domain"
)

// Source is a job board that can be scraped into candidate postings.
type Source interface {
	// GetSourceID returns the stable identifier stored on every posting.
	// Parameters: none.
	// Returns:
	//   - domain.SourceName: source identifier.
	GetSourceID() domain.SourceName

	// GetDisplayName returns a human-readable name for this source.
	// Parameters: none.
	// Returns:
	//   - string: display-friendly source name, used in error summaries.
	GetDisplayName() string

	// GetDocumentURL returns the browsable URL of the scraped document.
	// Parameters: none.
	// Returns:
	//   - string: URL recorded as the posting's sourceUrl.
	GetDocumentURL() string

	// Scrape fetches the document and returns recent candidates in document order.
	// Parameters:
	//   - ctx: context for cancellation and deadlines.
	// Returns:
	//   - []domain.ScrapedJob: candidates that passed the recency filter.
	//   - error: non-nil if the document could not be fetched; row-level
	//     problems are logged and skipped instead.
	Scrape(ctx context.Context) ([]domain.ScrapedJob, error)
}

// Fetcher retrieves a raw document.
type Fetcher interface {
	// Fetch downloads url on behalf of source.
	// Parameters:
	//   - ctx: context for cancellation and deadlines.
	//   - source: source the document belongs to.
	//   - url: absolute URL of the raw document.
	// Returns:
	//   - []byte: response body.
	//   - error: non-nil on transport failure or a non-2xx status.
	Fetch(ctx context.Context, source domain.SourceName, url string) ([]byte, error)
}
