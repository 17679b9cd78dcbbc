package markdown

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// TableLocator picks the data rows of one table out of a document.
type TableLocator interface {
	// Rows returns the table's data lines, trimmed, in document order.
	Rows(doc string) []string
}

var reSeparator = regexp.MustCompile(`^\|[\s:|-]+$`)

// DefaultMinRowLength is the shortest line still treated as a table row.
const DefaultMinRowLength = 10

// MarkerLocator finds a table by scanning lines for marker text.
//
// Scanning starts after the first line equal to one of SectionMarkers (or at
// the top when there are none). The header is the first line that starts with
// HeaderPrefix and contains every HeaderMarkers entry. Separator lines are
// skipped. The table ends at the first line that does not start with "|", is
// shorter than MinRowLength, or, with StopAtHeading, starts with "#".
type MarkerLocator struct {
	SectionMarkers []string
	HeaderPrefix   string
	HeaderMarkers  []string
	StopAtHeading  bool
	MinRowLength   int
}

// Rows implements TableLocator.
func (l MarkerLocator) Rows(doc string) []string {
	minLen := l.MinRowLength
	if minLen <= 0 {
		minLen = DefaultMinRowLength
	}

	inSection := len(l.SectionMarkers) == 0
	inTable := false
	var rows []string

	for _, raw := range strings.Split(doc, "\n") {
		line := strings.TrimSpace(raw)

		if !inSection {
			inSection = l.isSection(line)
			continue
		}
		if !inTable {
			inTable = l.isHeader(line)
			continue
		}
		if reSeparator.MatchString(line) {
			continue
		}
		if !strings.HasPrefix(line, "|") || utf8.RuneCountInString(line) < minLen {
			break
		}
		if l.StopAtHeading && strings.HasPrefix(line, "#") {
			break
		}
		rows = append(rows, line)
	}
	return rows
}

func (l MarkerLocator) isSection(line string) bool {
	for _, m := range l.SectionMarkers {
		if line == m {
			return true
		}
	}
	return false
}

func (l MarkerLocator) isHeader(line string) bool {
	if l.HeaderPrefix != "" && !strings.HasPrefix(line, l.HeaderPrefix) {
		return false
	}
	if len(l.HeaderMarkers) == 0 && l.HeaderPrefix == "" {
		return false
	}
	for _, m := range l.HeaderMarkers {
		if !strings.Contains(line, m) {
			return false
		}
	}
	return true
}
