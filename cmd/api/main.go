package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/timmy/devdash/internal/age"
	"github.com/timmy/devdash/internal/api"
	"github.com/timmy/devdash/internal/api/middleware"
	"github.com/timmy/devdash/internal/config"
	"github.com/timmy/devdash/internal/logger"
	"github.com/timmy/devdash/internal/metrics"
	"github.com/timmy/devdash/internal/repository"
	"github.com/timmy/devdash/internal/scheduler"
	"github.com/timmy/devdash/internal/service"
	"github.com/timmy/devdash/internal/source"
	"github.com/timmy/devdash/internal/source/markdown"
)

func main() {
	appLogger := logger.NewDefault()
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	// Support CONFIG_PATH environment variable for production deployments
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	loc, err := cfg.Scheduler.Location()
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load scheduler timezone")
	}

	// Initialize database
	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}
	sqlDB, err := db.DB()
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to access database handle")
	}
	defer sqlDB.Close()

	jobRepo := repository.NewJobPostingRepository(db)
	runRepo := repository.NewScrapeRunRepository(db)
	stateRepo := repository.NewSourceStateRepository(db)

	ctx := context.Background()
	fetcher, err := source.NewFetcherFromConfig(ctx, cfg.Scraper, cfg.Archive)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize fetcher")
	}

	ages := age.NewNormalizer(time.Now, loc)
	sources := markdown.NewSources(markdown.Definitions(cfg.Sources), fetcher, ages, cfg.Scraper.RecencyDays)
	for _, src := range sources {
		appLogger.WithFields(logger.Fields{
			logger.FieldSource: string(src.GetSourceID()),
			"url":              src.GetDocumentURL(),
		}).Info("Source enabled")
	}

	m := metrics.New()
	scrapeService := service.NewScrapeService(sources, service.NewDedupStore(jobRepo), runRepo, stateRepo, m, appLogger)
	jobService := service.NewJobService(jobRepo, loc)

	spec, err := cfg.Scheduler.CronSpec()
	if err != nil {
		appLogger.WithError(err).Fatal("Invalid scheduler configuration")
	}
	sched, err := scheduler.New(scrapeService, scheduler.Config{
		Spec:       spec,
		Location:   loc,
		RunTimeout: 10 * time.Minute,
	}, appLogger)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to create scheduler")
	}
	if cfg.Scheduler.Enabled {
		if err := sched.Start(); err != nil {
			appLogger.WithError(err).Fatal("Failed to start scheduler")
		}
		defer sched.Stop()
	} else {
		appLogger.Info("Scheduler disabled; scrapes run only on demand")
	}

	router := api.SetupRouter(api.Deps{
		Jobs:    jobService,
		Scraper: scrapeService,
		Trigger: sched,
		DB:      sqlDB,
		Metrics: m.Handler(),
	}, cfg.Server.Mode, middleware.CORSConfig{
		AllowedOrigins:  cfg.Server.CORS.AllowedOrigins,
		AllowAllOrigins: cfg.Server.CORS.AllowAllOrigins,
	}, appLogger)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in goroutine
	go func() {
		appLogger.WithFields(logger.Fields{
			"port": cfg.Server.Port,
			"mode": cfg.Server.Mode,
		}).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Error("Server forced to shutdown")
	}

	appLogger.Info("Server exited")
}
