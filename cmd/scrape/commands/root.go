package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/timmy/devdash/internal/age"
	"github.com/timmy/devdash/internal/config"
	"github.com/timmy/devdash/internal/logger"
	"github.com/timmy/devdash/internal/source"
	"github.com/timmy/devdash/internal/source/markdown"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "devdash-scrape",
	Short:         "devdash-scrape runs job board scrapes outside the API server.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.SetDefaultLogger(logger.New(&logger.Config{
			Level:       os.Getenv("LOG_LEVEL"),
			Format:      "text",
			Output:      os.Stderr,
			ServiceName: "devdash-scrape",
		}))
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")
}

// ExecuteContext runs the CLI and exits non-zero on error.
func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newTable(out io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(out)
	return t
}

// loadSources builds the enabled sources, optionally narrowed to one ID.
func loadSources(ctx context.Context, cfg *config.Config, only string) ([]source.Source, error) {
	loc, err := cfg.Scheduler.Location()
	if err != nil {
		return nil, err
	}
	fetcher, err := source.NewFetcherFromConfig(ctx, cfg.Scraper, cfg.Archive)
	if err != nil {
		return nil, err
	}

	defs := markdown.Definitions(cfg.Sources)
	if only != "" {
		defs = filterDefinitions(defs, only)
		if len(defs) == 0 {
			return nil, fmt.Errorf("unknown or disabled source %q", only)
		}
	}

	ages := age.NewNormalizer(time.Now, loc)
	return markdown.NewSources(defs, fetcher, ages, cfg.Scraper.RecencyDays), nil
}

func filterDefinitions(defs []markdown.Definition, name string) []markdown.Definition {
	var out []markdown.Definition
	for _, d := range defs {
		if string(d.Name) == name {
			out = append(out, d)
		}
	}
	return out
}
