package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/devdash/internal/domain"
	"github.com/timmy/devdash/internal/logger"
	"github.com/timmy/devdash/internal/service"
)

// JobsHandler handles job posting endpoints.
type JobsHandler struct {
	jobService *service.JobService
}

// NewJobsHandler creates a new jobs handler.
// Parameters:
//   - jobService: job tracking service.
// Returns:
//   - *JobsHandler: initialized handler.
func NewJobsHandler(jobService *service.JobService) *JobsHandler {
	return &JobsHandler{jobService: jobService}
}

// ListJobsRequest holds the GET /api/jobs query parameters.
type ListJobsRequest struct {
	Days     int    `form:"days" binding:"omitempty,min=0,max=365"`
	Status   string `form:"status"`
	Company  string `form:"company"`
	Location string `form:"location"`
	Source   string `form:"source"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	Limit    int    `form:"limit" binding:"omitempty,min=1"`
}

// DaysRequest holds a single days window parameter.
type DaysRequest struct {
	Days int `form:"days" binding:"omitempty,min=1,max=365"`
}

// UpdateStatusRequest is the PUT /api/jobs/:id/status body.
type UpdateStatusRequest struct {
	Status string  `json:"status" binding:"required"`
	Notes  *string `json:"notes"`
}

// ListJobs handles GET /api/jobs.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *JobsHandler) ListJobs(c *gin.Context) {
	var req ListJobsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	page, err := h.jobService.List(c.Request.Context(), service.ListQuery{
		Days:     req.Days,
		Status:   domain.JobStatus(req.Status),
		Company:  req.Company,
		Location: req.Location,
		Source:   domain.SourceName(req.Source),
		Page:     req.Page,
		Limit:    req.Limit,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, page)
}

// RecentJobs handles GET /api/jobs/recent.
func (h *JobsHandler) RecentJobs(c *gin.Context) {
	var req DaysRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	jobs, err := h.jobService.Recent(c.Request.Context(), req.Days)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"jobs":  jobs,
		"count": len(jobs),
	})
}

// Stats handles GET /api/jobs/stats.
func (h *JobsHandler) Stats(c *gin.Context) {
	var req DaysRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	stats, err := h.jobService.Stats(c.Request.Context(), req.Days)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetJob handles GET /api/jobs/:id.
func (h *JobsHandler) GetJob(c *gin.Context) {
	job, err := h.jobService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, job)
}

// UpdateStatus handles PUT /api/jobs/:id/status.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *JobsHandler) UpdateStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	job, err := h.jobService.UpdateStatus(c.Request.Context(), c.Param("id"), domain.JobStatus(req.Status), req.Notes)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, job)
}

// DeleteJob handles DELETE /api/jobs/:id.
func (h *JobsHandler) DeleteJob(c *gin.Context) {
	if err := h.jobService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *JobsHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrJobNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
	case errors.Is(err, service.ErrInvalidStatus):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logger.CtxError(c.Request.Context(), "Job request failed: method=%s, path=%s, error=%v",
			c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
