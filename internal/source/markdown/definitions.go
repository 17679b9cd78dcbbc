package markdown

import (
	"github.com/timmy/devdash/internal/age"
	"github.com/timmy/devdash/internal/config"
	"github.com/timmy/devdash/internal/domain"
	"github.com/timmy/devdash/internal/source"
)

// Summer2026Internships is the off-season internship list.
// Columns: Company | Role | Location | Application/Link | Date Posted
func Summer2026Internships() Definition {
	return Definition{
		Name:        domain.SourceSummer2026Internships,
		DisplayName: "Summer2026",
		DocumentURL: "https://github.com/vanshb03/Summer2026-Internships/blob/dev/OFFSEASON_README.md",
		RawURL:      "https://raw.githubusercontent.com/vanshb03/Summer2026-Internships/dev/OFFSEASON_README.md",
		Locator: MarkerLocator{
			HeaderMarkers: []string{"| Company |", "| Location |"},
		},
		Columns: ColumnMap{
			Company:            0,
			Title:              1,
			Location:           2,
			Link:               3,
			Age:                4,
			LinkFallback:       NoColumn,
			Salary:             NoColumn,
			MinCells:           5,
			ContinuationMarker: "↳",
		},
	}
}

// SWECollegeJobs2025 is the new-grad list; only its "Other" section is scraped.
// Columns: Company | Position | Location | Posting | Age
func SWECollegeJobs2025() Definition {
	return Definition{
		Name:        domain.SourceSWECollegeJobs2025,
		DisplayName: "SWE2025",
		DocumentURL: "https://github.com/speedyapply/2025-SWE-College-Jobs/blob/main/README.md",
		RawURL:      "https://raw.githubusercontent.com/speedyapply/2025-SWE-College-Jobs/main/README.md",
		Locator: MarkerLocator{
			SectionMarkers: []string{"### Other", "## Other"},
			HeaderPrefix:   "| Company",
			HeaderMarkers:  []string{"| Position |"},
			StopAtHeading:  true,
		},
		Columns: ColumnMap{
			Company:      0,
			Title:        1,
			Location:     2,
			Link:         3,
			Age:          4,
			LinkFallback: 0,
			Salary:       NoColumn,
			MinCells:     5,
		},
	}
}

// Definitions returns the enabled built-in boards in scrape order, with any
// configured raw URL overrides applied.
func Definitions(cfg config.SourcesConfig) []Definition {
	var defs []Definition
	for _, entry := range []struct {
		cfg config.SourceConfig
		def Definition
	}{
		{cfg.Summer2026, Summer2026Internships()},
		{cfg.SWE2025, SWECollegeJobs2025()},
	} {
		if !entry.cfg.Enabled {
			continue
		}
		if entry.cfg.RawURL != "" {
			entry.def.RawURL = entry.cfg.RawURL
		}
		defs = append(defs, entry.def)
	}
	return defs
}

// NewSources builds an Adapter per definition.
func NewSources(defs []Definition, fetcher source.Fetcher, ages *age.Normalizer, recencyDays int) []source.Source {
	sources := make([]source.Source, 0, len(defs))
	for _, def := range defs {
		sources = append(sources, NewAdapter(def, fetcher, ages, recencyDays))
	}
	return sources
}
