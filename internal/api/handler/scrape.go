package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/timmy/devdash/internal/domain"
	"github.com/timmy/devdash/internal/logger"
	"github.com/timmy/devdash/internal/service"
)

// ScrapeTrigger starts manual cycles and reports the daily schedule.
type ScrapeTrigger interface {
	TriggerManual(ctx context.Context) (*domain.ScrapeResult, error)
	IsRunning() bool
	NextRun() (time.Time, bool)
}

// ScrapeHistory exposes cycle state and history.
type ScrapeHistory interface {
	IsRunning() bool
	LatestRun(ctx context.Context) (*domain.ScrapeRun, error)
	SourceStates(ctx context.Context) ([]domain.SourceState, error)
}

// ScrapeHandler handles scrape trigger and status endpoints.
type ScrapeHandler struct {
	trigger ScrapeTrigger
	history ScrapeHistory
}

// NewScrapeHandler creates a new scrape handler.
// Parameters:
//   - trigger: scheduler used for manual runs and next-run reporting.
//   - history: scrape service state.
// Returns:
//   - *ScrapeHandler: initialized handler.
func NewScrapeHandler(trigger ScrapeTrigger, history ScrapeHistory) *ScrapeHandler {
	return &ScrapeHandler{trigger: trigger, history: history}
}

// ScrapeStatusResponse represents the scrape status.
type ScrapeStatusResponse struct {
	SchedulerRunning bool                 `json:"schedulerRunning"`
	ScrapeInProgress bool                 `json:"scrapeInProgress"`
	NextRun          string               `json:"nextRun,omitempty"`
	LastRun          *domain.ScrapeRun    `json:"lastRun,omitempty"`
	Sources          []domain.SourceState `json:"sources"`
}

// TriggerScrape handles GET /api/jobs/scrape. The cycle runs to completion
// even if the client disconnects.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes the scrape result as JSON).
func (h *ScrapeHandler) TriggerScrape(c *gin.Context) {
	ctx := c.Request.Context()
	logger.CtxInfo(ctx, "Received manual scrape request: client_ip=%s", c.ClientIP())

	start := time.Now()
	result, err := h.trigger.TriggerManual(context.WithoutCancel(ctx))
	duration := time.Since(start)

	if err != nil {
		if errors.Is(err, service.ErrScrapeInProgress) {
			logger.CtxWarn(ctx, "Scrape request rejected: already running, client_ip=%s", c.ClientIP())
			c.JSON(http.StatusConflict, gin.H{"error": "Scrape is already running"})
			return
		}
		logger.With(logger.Fields{"client_ip": c.ClientIP()}).WithDuration(duration.Milliseconds()).Error(ctx, "Manual scrape failed: error=%v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	logger.With(logger.Fields{logger.FieldNewCount: result.NewJobs}).
		WithCount(result.TotalJobs).
		WithDuration(duration.Milliseconds()).
		Info(ctx, "Manual scrape completed with %d error(s)", len(result.Errors))

	c.JSON(http.StatusOK, result)
}

// GetScrapeStatus handles GET /api/jobs/scrape/status.
func (h *ScrapeHandler) GetScrapeStatus(c *gin.Context) {
	ctx := c.Request.Context()

	resp := ScrapeStatusResponse{
		SchedulerRunning: h.trigger.IsRunning(),
		ScrapeInProgress: h.history.IsRunning(),
		Sources:          []domain.SourceState{},
	}
	if next, ok := h.trigger.NextRun(); ok {
		resp.NextRun = next.Format(time.RFC3339)
	}

	run, err := h.history.LatestRun(ctx)
	if err != nil {
		logger.CtxError(ctx, "Failed to load last scrape run: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load scrape status"})
		return
	}
	resp.LastRun = run

	states, err := h.history.SourceStates(ctx)
	if err != nil {
		logger.CtxError(ctx, "Failed to load source states: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load scrape status"})
		return
	}
	if states != nil {
		resp.Sources = states
	}

	c.JSON(http.StatusOK, resp)
}
