package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/timmy/devdash/internal/config"
	"github.com/timmy/devdash/internal/source/markdown"
)

func init() {
	rootCmd.AddCommand(sourcesCmd)
}

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Lists the configured job boards.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		enabled := map[string]bool{}
		for _, d := range markdown.Definitions(cfg.Sources) {
			enabled[string(d.Name)] = true
		}

		t := newTable(cmd.OutOrStdout())
		t.AppendHeader(table.Row{"ID", "Name", "Enabled", "Document"})
		for _, d := range []markdown.Definition{markdown.Summer2026Internships(), markdown.SWECollegeJobs2025()} {
			t.AppendRow(table.Row{d.Name, d.DisplayName, enabled[string(d.Name)], d.DocumentURL})
		}
		t.Render()
		return nil
	},
}
