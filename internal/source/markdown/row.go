package markdown

import (
	"errors"
	"fmt"
	"strings"

	"github.com/timmy/devdash/internal/domain"
)

// ErrTooFewCells marks a row with fewer cells than its ColumnMap needs.
var ErrTooFewCells = errors.New("too few cells")

// NoColumn marks an optional column as absent.
const NoColumn = -1

// ColumnMap says which cell holds which field. Indices are zero-based after
// the outer pipes are dropped.
type ColumnMap struct {
	Company  int
	Title    int
	Location int
	Link     int
	Age      int

	// LinkFallback is tried when Link has no URL; NoColumn disables it.
	LinkFallback int
	// Salary is optional; NoColumn when the board has no pay column.
	Salary int

	// MinCells is the fewest cells a usable row has.
	MinCells int

	// ContinuationMarker in the company cell means "same company as the
	// previous row", e.g. "↳".
	ContinuationMarker string
}

func (c ColumnMap) required() int {
	n := c.MinCells
	for _, idx := range []int{c.Company, c.Title, c.Location, c.Link, c.Age, c.LinkFallback, c.Salary} {
		if idx+1 > n {
			n = idx + 1
		}
	}
	return n
}

// RowParser turns table rows into candidates. It carries the last company
// seen, so one parser should be used per table.
type RowParser struct {
	cols        ColumnMap
	lastCompany string
}

// NewRowParser creates a RowParser for the given layout.
func NewRowParser(cols ColumnMap) *RowParser {
	return &RowParser{cols: cols}
}

// SplitCells splits a pipe-table line into trimmed cells, dropping the empty
// cells produced by the leading and trailing pipe. Inner empty cells are kept
// so column positions stay stable.
func SplitCells(line string) []string {
	parts := strings.Split(line, "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	if len(parts) > 0 && parts[0] == "" {
		parts = parts[1:]
	}
	if len(parts) > 0 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	return parts
}

// Parse maps one row onto a candidate.
// Parameters:
//   - line: a trimmed table row.
// Returns:
//   - *domain.ScrapedJob: the candidate, or nil when the row lacks a link,
//     company, title, location or age. PostedDate is left for the caller.
//   - error: ErrTooFewCells for rows shorter than the layout.
func (p *RowParser) Parse(line string) (*domain.ScrapedJob, error) {
	cells := SplitCells(line)
	if need := p.cols.required(); len(cells) < need {
		return nil, fmt.Errorf("%w: got %d, need %d", ErrTooFewCells, len(cells), need)
	}

	companyCell := cells[p.cols.Company]
	titleCell := cells[p.cols.Title]
	locationCell := cells[p.cols.Location]
	ageCell := cells[p.cols.Age]

	company := ExtractText(companyCell)
	if p.cols.ContinuationMarker != "" && company == p.cols.ContinuationMarker {
		company = p.lastCompany
	} else if company != "" {
		p.lastCompany = company
	}

	if companyCell == "" || titleCell == "" || locationCell == "" || ageCell == "" {
		return nil, nil
	}

	url, ok := ExtractURL(cells[p.cols.Link])
	if !ok && p.cols.LinkFallback != NoColumn {
		url, ok = ExtractURL(cells[p.cols.LinkFallback])
	}

	title := ExtractText(titleCell)
	if !ok || company == "" || title == "" {
		return nil, nil
	}

	job := &domain.ScrapedJob{
		Title:          title,
		Company:        company,
		Location:       ExtractText(locationCell),
		ApplicationURL: url,
		AgeText:        ExtractText(ageCell),
	}
	if p.cols.Salary != NoColumn {
		job.Salary = ExtractText(cells[p.cols.Salary])
	}
	return job, nil
}
