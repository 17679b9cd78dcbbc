package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/devdash/internal/domain"
	"github.com/timmy/devdash/internal/metrics"
	"github.com/timmy/devdash/internal/repository"
	"github.com/timmy/devdash/internal/source"
)

type fakeSource struct {
	id      domain.SourceName
	display string
	jobs    []domain.ScrapedJob
	err     error

	// started and release, when set, hold Scrape open until release is closed.
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (f *fakeSource) GetSourceID() domain.SourceName { return f.id }
func (f *fakeSource) GetDisplayName() string         { return f.display }
func (f *fakeSource) GetDocumentURL() string         { return "https://github.test/" + string(f.id) }

func (f *fakeSource) Scrape(ctx context.Context) ([]domain.ScrapedJob, error) {
	if f.started != nil {
		f.once.Do(func() { close(f.started) })
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.jobs, f.err
}

type panickingSource struct{ fakeSource }

func (p *panickingSource) Scrape(context.Context) ([]domain.ScrapedJob, error) {
	panic("index out of range")
}

type scrapeFixture struct {
	svc    *ScrapeService
	jobs   *repository.JobPostingRepository
	runs   *repository.ScrapeRunRepository
	states *repository.SourceStateRepository
}

func newScrapeFixture(t *testing.T, sources ...source.Source) *scrapeFixture {
	t.Helper()
	db := newTestDB(t)
	f := &scrapeFixture{
		jobs:   repository.NewJobPostingRepository(db),
		runs:   repository.NewScrapeRunRepository(db),
		states: repository.NewSourceStateRepository(db),
	}
	f.svc = NewScrapeService(sources, NewDedupStore(f.jobs), f.runs, f.states, metrics.New(), nil)
	return f
}

func summerSource(jobs []domain.ScrapedJob, err error) *fakeSource {
	return &fakeSource{id: domain.SourceSummer2026Internships, display: "Summer2026", jobs: jobs, err: err}
}

func sweSource(jobs []domain.ScrapedJob, err error) *fakeSource {
	return &fakeSource{id: domain.SourceSWECollegeJobs2025, display: "SWE2025", jobs: jobs, err: err}
}

func TestScrapeAllFailingSourceDoesNotAffectOthers(t *testing.T) {
	ctx := context.Background()
	f := newScrapeFixture(t,
		summerSource(nil, errors.New("fetch https://raw.test/README.md: unexpected status: HTTP 404")),
		sweSource([]domain.ScrapedJob{
			candidate("Acme", "SWE", "NYC"),
			candidate("Globex", "Backend", "Remote"),
		}, nil),
	)

	res, err := f.svc.ScrapeAll(ctx, domain.TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, 2, res.NewJobs)
	assert.Equal(t, 2, res.TotalJobs)
	assert.Equal(t, []string{
		"Summer2026 scraping failed: fetch https://raw.test/README.md: unexpected status: HTTP 404",
	}, res.Errors)

	jobs, total, err := f.jobs.List(ctx, repository.JobFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	for _, j := range jobs {
		assert.Equal(t, domain.SourceSWECollegeJobs2025, j.Source)
	}
}

func TestScrapeAllSecondRunFindsNothingNew(t *testing.T) {
	ctx := context.Background()
	f := newScrapeFixture(t,
		summerSource([]domain.ScrapedJob{candidate("Acme", "SWE", "NYC")}, nil),
		// Same posting listed on both boards counts as new once.
		sweSource([]domain.ScrapedJob{candidate("acme", "swe", "nyc"), candidate("Initech", "QA", "Austin, TX")}, nil),
	)

	res, err := f.svc.ScrapeAll(ctx, domain.TriggerScheduled)
	require.NoError(t, err)
	assert.Equal(t, &domain.ScrapeResult{NewJobs: 2, TotalJobs: 3, Errors: []string{}}, res)

	res, err = f.svc.ScrapeAll(ctx, domain.TriggerScheduled)
	require.NoError(t, err)
	assert.Equal(t, &domain.ScrapeResult{NewJobs: 0, TotalJobs: 3, Errors: []string{}}, res)

	// The first source persists first, so the shared posting belongs to it.
	got, err := f.jobs.GetByUniqueKey(ctx, "acme-swe-nyc")
	require.NoError(t, err)
	assert.Equal(t, domain.SourceSummer2026Internships, got.Source)
}

// flakyStore fails inserts for one company and delegates everything else.
type flakyStore struct {
	*repository.JobPostingRepository
	failCompany string
}

func (s *flakyStore) Create(ctx context.Context, job *domain.JobPosting) error {
	if job.Company == s.failCompany {
		return errors.New("disk I/O error")
	}
	return s.JobPostingRepository.Create(ctx, job)
}

func TestScrapeAllPersistFailureSkipsOnlyThatPosting(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	jobs := repository.NewJobPostingRepository(db)
	svc := NewScrapeService(
		[]source.Source{summerSource([]domain.ScrapedJob{
			candidate("Acme", "SWE", "NYC"),
			candidate("Bad", "SWE", "NYC"),
			candidate("Globex", "Backend", "Remote"),
		}, nil)},
		NewDedupStore(&flakyStore{JobPostingRepository: jobs, failCompany: "Bad"}),
		nil, nil, nil, nil,
	)

	res, err := svc.ScrapeAll(ctx, domain.TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, &domain.ScrapeResult{NewJobs: 2, TotalJobs: 3, Errors: []string{}}, res)

	saved, total, err := jobs.List(ctx, repository.JobFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, saved, 2)
	assert.ElementsMatch(t, []string{"Acme", "Globex"}, []string{saved[0].Company, saved[1].Company})
}

// meteredSource records how many Scrape calls overlap.
type meteredSource struct {
	fakeSource
	inFlight *atomic.Int32
	peak     *atomic.Int32
}

func (m *meteredSource) Scrape(context.Context) ([]domain.ScrapedJob, error) {
	n := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		p := m.peak.Load()
		if n <= p || m.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(20 * time.Millisecond)
	return []domain.ScrapedJob{candidate(m.display, "SWE", "NYC")}, nil
}

func TestScrapeAllBoundsConcurrentFetches(t *testing.T) {
	var inFlight, peak atomic.Int32
	var sources []source.Source
	for i := 0; i < maxConcurrentFetches+3; i++ {
		name := fmt.Sprintf("Board%d", i)
		sources = append(sources, &meteredSource{
			fakeSource: fakeSource{id: domain.SourceName(name), display: name},
			inFlight:   &inFlight,
			peak:       &peak,
		})
	}
	f := newScrapeFixture(t, sources...)

	res, err := f.svc.ScrapeAll(context.Background(), domain.TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, len(sources), res.NewJobs)
	assert.Empty(t, res.Errors)
	assert.LessOrEqual(t, peak.Load(), int32(maxConcurrentFetches))
	assert.Positive(t, peak.Load())
}

func TestScrapeAllNoSources(t *testing.T) {
	f := newScrapeFixture(t)

	res, err := f.svc.ScrapeAll(context.Background(), domain.TriggerCLI)
	require.NoError(t, err)
	assert.Equal(t, 0, res.NewJobs)
	assert.NotNil(t, res.Errors)
	assert.Empty(t, res.Errors)
}

func TestScrapeAllRecoversSourcePanic(t *testing.T) {
	p := &panickingSource{fakeSource: fakeSource{id: domain.SourceSummer2026Internships, display: "Summer2026"}}
	f := newScrapeFixture(t, p, sweSource([]domain.ScrapedJob{candidate("Acme", "SWE", "NYC")}, nil))

	res, err := f.svc.ScrapeAll(context.Background(), domain.TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, 1, res.NewJobs)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "Summer2026 scraping failed: panic")
}

func TestScrapeAllRejectsConcurrentCycle(t *testing.T) {
	blocking := summerSource([]domain.ScrapedJob{candidate("Acme", "SWE", "NYC")}, nil)
	blocking.started = make(chan struct{})
	blocking.release = make(chan struct{})
	f := newScrapeFixture(t, blocking)

	done := make(chan *domain.ScrapeResult)
	go func() {
		res, err := f.svc.ScrapeAll(context.Background(), domain.TriggerScheduled)
		assert.NoError(t, err)
		done <- res
	}()

	select {
	case <-blocking.started:
	case <-time.After(5 * time.Second):
		t.Fatal("first cycle never started")
	}
	assert.True(t, f.svc.IsRunning())

	_, err := f.svc.ScrapeAll(context.Background(), domain.TriggerManual)
	assert.ErrorIs(t, err, ErrScrapeInProgress)

	close(blocking.release)
	select {
	case res := <-done:
		assert.Equal(t, 1, res.NewJobs)
	case <-time.After(5 * time.Second):
		t.Fatal("first cycle never finished")
	}
	assert.False(t, f.svc.IsRunning())
}

func TestScrapeAllRecordsHistoryAndSourceState(t *testing.T) {
	ctx := context.Background()
	summer := summerSource([]domain.ScrapedJob{candidate("Acme", "SWE", "NYC")}, nil)
	swe := sweSource(nil, errors.New("timeout"))
	f := newScrapeFixture(t, summer, swe)

	_, err := f.svc.ScrapeAll(ctx, domain.TriggerManual)
	require.NoError(t, err)

	run, err := f.svc.LatestRun(ctx)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, domain.RunStatusCompleted, run.Status)
	assert.Equal(t, domain.TriggerManual, run.Trigger)
	assert.Equal(t, 1, run.NewJobs)
	assert.Equal(t, domain.StringArray{"SWE2025 scraping failed: timeout"}, run.Errors)
	assert.NotNil(t, run.CompletedAt)

	states, err := f.svc.SourceStates(ctx)
	require.NoError(t, err)
	require.Len(t, states, 2)
	byName := map[domain.SourceName]domain.SourceState{}
	for _, s := range states {
		byName[s.Name] = s
	}
	assert.Empty(t, byName[domain.SourceSummer2026Internships].LastError)
	assert.Equal(t, 1, byName[domain.SourceSummer2026Internships].LastJobCount)
	assert.NotNil(t, byName[domain.SourceSummer2026Internships].LastSuccessAt)
	assert.Equal(t, "timeout", byName[domain.SourceSWECollegeJobs2025].LastError)
	assert.Nil(t, byName[domain.SourceSWECollegeJobs2025].LastSuccessAt)

	// A later failure keeps the last success.
	summer.err = errors.New("HTTP 500")
	swe.err = errors.New("HTTP 500")
	_, err = f.svc.ScrapeAll(ctx, domain.TriggerManual)
	require.NoError(t, err)

	run, err = f.svc.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusFailed, run.Status)

	state, err := f.states.Get(ctx, domain.SourceSummer2026Internships)
	require.NoError(t, err)
	assert.Equal(t, "HTTP 500", state.LastError)
	assert.NotNil(t, state.LastSuccessAt)
	assert.Equal(t, 1, state.LastJobCount)

	history, err := f.svc.History(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestScrapeServiceWithoutHistory(t *testing.T) {
	repo := repository.NewJobPostingRepository(newTestDB(t))
	svc := NewScrapeService([]source.Source{summerSource(nil, nil)}, NewDedupStore(repo), nil, nil, nil, nil)

	res, err := svc.ScrapeAll(context.Background(), domain.TriggerCLI)
	require.NoError(t, err)
	assert.Equal(t, 0, res.TotalJobs)

	run, err := svc.LatestRun(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, run)
}
