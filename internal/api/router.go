package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/devdash/internal/api/handler"
	"github.com/timmy/devdash/internal/api/middleware"
	"github.com/timmy/devdash/internal/logger"
	"github.com/timmy/devdash/internal/service"
)

// Deps are the services the HTTP layer serves.
type Deps struct {
	Jobs    *service.JobService
	Scraper handler.ScrapeHistory
	Trigger handler.ScrapeTrigger
	// DB and Metrics are optional.
	DB      handler.Pinger
	Metrics http.Handler
}

// SetupRouter configures the Gin router with all routes
func SetupRouter(deps Deps, mode string, cors middleware.CORSConfig, log *logger.Logger) *gin.Engine {
	// Set Gin mode
	switch mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	if log == nil {
		log = logger.GetDefault()
	}

	r := gin.New()

	// Add middleware
	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(log))
	r.Use(middleware.CORS(cors))

	// Create handlers
	healthHandler := handler.NewHealthHandler(deps.DB)
	jobsHandler := handler.NewJobsHandler(deps.Jobs)
	scrapeHandler := handler.NewScrapeHandler(deps.Trigger, deps.Scraper)

	// Health check
	r.GET("/health", healthHandler.Health)
	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics))
	}

	jobs := r.Group("/api/jobs")
	{
		jobs.GET("", jobsHandler.ListJobs)
		jobs.GET("/recent", jobsHandler.RecentJobs)
		jobs.GET("/stats", jobsHandler.Stats)

		// Scraping
		jobs.GET("/scrape", scrapeHandler.TriggerScrape)
		jobs.GET("/scrape/status", scrapeHandler.GetScrapeStatus)

		jobs.GET("/:id", jobsHandler.GetJob)
		jobs.PUT("/:id/status", jobsHandler.UpdateStatus)
		jobs.DELETE("/:id", jobsHandler.DeleteJob)
	}

	return r
}
