package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/devdash/internal/domain"
	"github.com/timmy/devdash/internal/logger"
)

// ErrUnexpectedStatus is returned when a document responds with a non-2xx status.
var ErrUnexpectedStatus = errors.New("unexpected status")

// FetcherConfig configures HTTPFetcher.
type FetcherConfig struct {
	UserAgent         string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
}

// HTTPFetcher downloads raw documents over HTTP.
type HTTPFetcher struct {
	client  *resty.Client
	limiter *HostLimiter
}

// NewHTTPFetcher creates a new HTTPFetcher.
// Parameters:
//   - cfg: client identification, timeout and per-host rate settings.
// Returns:
//   - *HTTPFetcher: fetcher ready for concurrent use.
func NewHTTPFetcher(cfg FetcherConfig) *HTTPFetcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := resty.New()
	client.SetTimeout(timeout)
	client.SetHeader("Accept", "text/plain, text/markdown, */*")
	if cfg.UserAgent != "" {
		client.SetHeader("User-Agent", cfg.UserAgent)
	}

	return &HTTPFetcher{
		client:  client,
		limiter: NewHostLimiter(cfg.RequestsPerSecond, cfg.Burst),
	}
}

// Fetch implements Fetcher. Failures are not retried.
func (f *HTTPFetcher) Fetch(ctx context.Context, source domain.SourceName, url string) ([]byte, error) {
	if err := f.limiter.WaitURL(ctx, url); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	start := time.Now()
	resp, err := f.client.R().
		SetContext(ctx).
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}

	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return nil, fmt.Errorf("fetch %s: %w: HTTP %d", url, ErrUnexpectedStatus, resp.StatusCode())
	}

	body := resp.Body()
	logger.With(logger.Fields{
		logger.FieldSource:     string(source),
		logger.FieldSize:       len(body),
		logger.FieldDurationMs: time.Since(start).Milliseconds(),
	}).Debug(ctx, "Fetched document %s", url)

	return body, nil
}
