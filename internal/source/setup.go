package source

import (
	"context"
	"fmt"

	"github.com/timmy/devdash/internal/config"
	"github.com/timmy/devdash/internal/storage"
)

// NewFetcherFromConfig builds the HTTP fetcher and, when archiving is
// enabled, wraps it so every fetched document is snapshotted to storage.
// Parameters:
//   - ctx: context for the bucket check.
//   - scraper: client settings.
//   - archive: snapshot storage settings.
// Returns:
//   - Fetcher: ready-to-use fetcher.
//   - error: non-nil if archive storage is enabled but unusable.
func NewFetcherFromConfig(ctx context.Context, scraper config.ScraperConfig, archive config.ArchiveConfig) (Fetcher, error) {
	var fetcher Fetcher = NewHTTPFetcher(FetcherConfig{
		UserAgent:         scraper.UserAgent,
		Timeout:           scraper.Timeout,
		RequestsPerSecond: scraper.RequestsPerSecond,
		Burst:             scraper.Burst,
	})
	if !archive.Enabled {
		return fetcher, nil
	}

	store, err := storage.NewStorage(ctx, &storage.S3Config{
		Endpoint:  archive.Endpoint,
		AccessKey: archive.AccessKey,
		SecretKey: archive.SecretKey,
		UseSSL:    archive.UseSSL,
		Bucket:    archive.Bucket,
		Region:    archive.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init archive storage: %w", err)
	}
	return NewArchivingFetcher(fetcher, store, archive.Prefix), nil
}
