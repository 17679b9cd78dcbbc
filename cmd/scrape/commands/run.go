package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/timmy/devdash/internal/config"
	"github.com/timmy/devdash/internal/domain"
	"github.com/timmy/devdash/internal/logger"
	"github.com/timmy/devdash/internal/repository"
	"github.com/timmy/devdash/internal/service"
	"github.com/timmy/devdash/internal/source"
)

var (
	runSource string
	runDryRun bool
)

func init() {
	runCmd.Flags().StringVar(&runSource, "source", "", "Only scrape this source ID")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "Print candidates instead of saving them")
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run [--source <id>] [--dry-run]",
	Short: "Runs one scrape cycle.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		sources, err := loadSources(ctx, cfg, runSource)
		if err != nil {
			return err
		}

		if runDryRun {
			return dryRun(ctx, cmd.OutOrStdout(), sources)
		}
		return persistRun(ctx, cmd.OutOrStdout(), cfg, sources)
	},
}

// dryRun scrapes every source and prints the candidates without touching the database.
func dryRun(ctx context.Context, out io.Writer, sources []source.Source) error {
	t := newTable(out)
	t.AppendHeader(table.Row{"Source", "Company", "Title", "Location", "Age", "Posted", "Key"})

	failed := 0
	for _, src := range sources {
		jobs, err := src.Scrape(ctx)
		if err != nil {
			failed++
			logger.CtxError(ctx, "%s scraping failed: %v", src.GetDisplayName(), err)
			continue
		}
		for _, j := range jobs {
			t.AppendRow(table.Row{
				src.GetDisplayName(), j.Company, j.Title, j.Location,
				j.AgeText, j.PostedDate.Format("2006-01-02"), j.UniqueKey(),
			})
		}
	}
	t.AppendFooter(table.Row{"", "", "", "", "", "Total", t.Length()})
	t.Render()

	if failed == len(sources) && failed > 0 {
		return fmt.Errorf("all %d source(s) failed", failed)
	}
	return nil
}

func persistRun(ctx context.Context, out io.Writer, cfg *config.Config, sources []source.Source) error {
	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	svc := service.NewScrapeService(
		sources,
		service.NewDedupStore(repository.NewJobPostingRepository(db)),
		repository.NewScrapeRunRepository(db),
		repository.NewSourceStateRepository(db),
		nil,
		logger.GetDefault(),
	)

	res, err := svc.ScrapeAll(ctx, domain.TriggerCLI)
	if err != nil {
		return err
	}

	t := newTable(out)
	t.AppendHeader(table.Row{"New", "Total", "Errors"})
	t.AppendRow(table.Row{res.NewJobs, res.TotalJobs, len(res.Errors)})
	t.Render()
	for _, msg := range res.Errors {
		fmt.Fprintln(out, msg)
	}
	return nil
}
