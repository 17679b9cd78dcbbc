package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/devdash/internal/domain"
	"github.com/timmy/devdash/internal/repository"
	"github.com/timmy/devdash/internal/service"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newJobsEngine(t *testing.T) (*gin.Engine, *repository.JobPostingRepository) {
	t.Helper()

	dsn := "file:" + uuid.New().String() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, repository.Migrate(db))

	repo := repository.NewJobPostingRepository(db)
	h := NewJobsHandler(service.NewJobService(repo, time.UTC))

	r := gin.New()
	r.GET("/api/jobs", h.ListJobs)
	r.GET("/api/jobs/recent", h.RecentJobs)
	r.GET("/api/jobs/stats", h.Stats)
	r.GET("/api/jobs/:id", h.GetJob)
	r.PUT("/api/jobs/:id/status", h.UpdateStatus)
	r.DELETE("/api/jobs/:id", h.DeleteJob)
	return r, repo
}

func seedJob(t *testing.T, repo *repository.JobPostingRepository, company string, posted time.Time) *domain.JobPosting {
	t.Helper()
	job := &domain.JobPosting{
		Title:          "SWE Intern",
		Company:        company,
		Location:       "NYC, NY",
		ApplicationURL: "http://x.test/" + company,
		Source:         domain.SourceSummer2026Internships,
		PostedDate:     posted.UTC(),
		ScrapedAt:      posted.UTC(),
		Status:         domain.JobStatusNew,
		IsActive:       true,
	}
	require.NoError(t, repo.Create(context.Background(), job))
	return job
}

func do(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestListJobs(t *testing.T) {
	r, repo := newJobsEngine(t)
	seedJob(t, repo, "Acme", time.Now())
	seedJob(t, repo, "Globex", time.Now().AddDate(0, 0, -1))

	w := do(r, http.MethodGet, "/api/jobs?company=acme&limit=10", "")
	require.Equal(t, http.StatusOK, w.Code)

	var page struct {
		Jobs  []domain.JobPosting `json:"jobs"`
		Total int64               `json:"total"`
		Page  int                 `json:"page"`
		Limit int                 `json:"limit"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.EqualValues(t, 1, page.Total)
	assert.Equal(t, 10, page.Limit)
	require.Len(t, page.Jobs, 1)
	assert.Equal(t, "acme-swe-intern-nyc-ny", page.Jobs[0].UniqueKey)

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/api/jobs?page=-1", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/api/jobs?days=abc", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/api/jobs?status=ghosted", "").Code)
}

func TestRecentAndStats(t *testing.T) {
	r, repo := newJobsEngine(t)
	seedJob(t, repo, "Acme", time.Now())
	seedJob(t, repo, "Hooli", time.Now().AddDate(0, 0, -20))

	w := do(r, http.MethodGet, "/api/jobs/recent?days=3", "")
	require.Equal(t, http.StatusOK, w.Code)
	var recent struct {
		Jobs  []domain.JobPosting `json:"jobs"`
		Count int                 `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &recent))
	assert.Equal(t, 1, recent.Count)

	w = do(r, http.MethodGet, "/api/jobs/stats?days=30", "")
	require.Equal(t, http.StatusOK, w.Code)
	var stats service.JobStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.EqualValues(t, 2, stats.Total)
	assert.Len(t, stats.ByDay, 30)
}

func TestUpdateStatusAndDelete(t *testing.T) {
	r, repo := newJobsEngine(t)
	job := seedJob(t, repo, "Acme", time.Now())

	w := do(r, http.MethodPut, "/api/jobs/"+job.ID+"/status", `{"status":"applied","notes":"sent resume"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var got domain.JobPosting
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, domain.JobStatusApplied, got.Status)
	assert.Equal(t, "sent resume", got.Notes)
	assert.NotNil(t, got.AppliedAt)

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPut, "/api/jobs/"+job.ID+"/status", `{"status":"ghosted"}`).Code)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodPut, "/api/jobs/"+job.ID+"/status", `{}`).Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodPut, "/api/jobs/nope/status", `{"status":"offer"}`).Code)

	assert.Equal(t, http.StatusNoContent, do(r, http.MethodDelete, "/api/jobs/"+job.ID, "").Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodGet, "/api/jobs/"+job.ID, "").Code)
	assert.Equal(t, http.StatusNotFound, do(r, http.MethodDelete, "/api/jobs/"+job.ID, "").Code)
}

type fakeTrigger struct {
	result  *domain.ScrapeResult
	err     error
	running bool
	next    time.Time
	ctxErr  error
}

func (f *fakeTrigger) TriggerManual(ctx context.Context) (*domain.ScrapeResult, error) {
	f.ctxErr = ctx.Err()
	return f.result, f.err
}
func (f *fakeTrigger) IsRunning() bool { return f.running }
func (f *fakeTrigger) NextRun() (time.Time, bool) {
	return f.next, !f.next.IsZero()
}

type fakeHistory struct {
	busy   bool
	run    *domain.ScrapeRun
	states []domain.SourceState
	err    error
}

func (f *fakeHistory) IsRunning() bool { return f.busy }
func (f *fakeHistory) LatestRun(context.Context) (*domain.ScrapeRun, error) {
	return f.run, f.err
}
func (f *fakeHistory) SourceStates(context.Context) ([]domain.SourceState, error) {
	return f.states, nil
}

func newScrapeEngine(trigger ScrapeTrigger, history ScrapeHistory) *gin.Engine {
	h := NewScrapeHandler(trigger, history)
	r := gin.New()
	r.GET("/api/jobs/scrape", h.TriggerScrape)
	r.GET("/api/jobs/scrape/status", h.GetScrapeStatus)
	return r
}

func TestTriggerScrape(t *testing.T) {
	trigger := &fakeTrigger{result: &domain.ScrapeResult{
		NewJobs:   2,
		TotalJobs: 2,
		Errors:    []string{"Summer2026 scraping failed: timeout"},
	}}
	r := newScrapeEngine(trigger, &fakeHistory{})

	w := do(r, http.MethodGet, "/api/jobs/scrape", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"newJobs":2,"totalJobs":2,"errors":["Summer2026 scraping failed: timeout"]}`, w.Body.String())
	assert.NoError(t, trigger.ctxErr)

	trigger.err = service.ErrScrapeInProgress
	assert.Equal(t, http.StatusConflict, do(r, http.MethodGet, "/api/jobs/scrape", "").Code)

	trigger.err = errors.New("boom")
	assert.Equal(t, http.StatusInternalServerError, do(r, http.MethodGet, "/api/jobs/scrape", "").Code)
}

func TestTriggerScrapeSurvivesClientCancel(t *testing.T) {
	trigger := &fakeTrigger{result: &domain.ScrapeResult{Errors: []string{}}}
	r := newScrapeEngine(trigger, &fakeHistory{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/jobs/scrape", nil).WithContext(ctx)
	r.ServeHTTP(httptest.NewRecorder(), req)

	assert.NoError(t, trigger.ctxErr)
}

func TestGetScrapeStatus(t *testing.T) {
	next := time.Date(2025, time.July, 6, 12, 0, 0, 0, time.UTC)
	r := newScrapeEngine(
		&fakeTrigger{running: true, next: next},
		&fakeHistory{run: &domain.ScrapeRun{ID: "run-1", Status: domain.RunStatusCompleted, NewJobs: 3}},
	)

	w := do(r, http.MethodGet, "/api/jobs/scrape/status", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp ScrapeStatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.SchedulerRunning)
	assert.False(t, resp.ScrapeInProgress)
	assert.Equal(t, "2025-07-06T12:00:00Z", resp.NextRun)
	require.NotNil(t, resp.LastRun)
	assert.Equal(t, 3, resp.LastRun.NewJobs)
	assert.NotNil(t, resp.Sources)

	r = newScrapeEngine(&fakeTrigger{}, &fakeHistory{err: errors.New("db down")})
	assert.Equal(t, http.StatusInternalServerError, do(r, http.MethodGet, "/api/jobs/scrape/status", "").Code)
}

type fakePinger struct{ err error }

func (p fakePinger) PingContext(context.Context) error { return p.err }

func TestHealth(t *testing.T) {
	for _, tc := range []struct {
		name string
		db   Pinger
		want int
	}{
		{"no database", nil, http.StatusOK},
		{"healthy", fakePinger{}, http.StatusOK},
		{"unreachable", fakePinger{err: errors.New("refused")}, http.StatusServiceUnavailable},
	} {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/health", NewHealthHandler(tc.db).Health)
			assert.Equal(t, tc.want, do(r, http.MethodGet, "/health", "").Code)
		})
	}
}
