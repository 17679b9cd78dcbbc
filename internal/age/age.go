// Package age turns the freshness labels job boards print ("2d", "Jul 01")
// into day offsets and approximate posting dates.
package age

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	dayCountPattern  = regexp.MustCompile(`^(\d+)\s*d$`)
	monthDayPattern  = regexp.MustCompile(`^([a-z]+)\.?\s*(\d{1,2})$`)
	monthAbbreviated = map[string]time.Month{
		"jan": time.January,
		"feb": time.February,
		"mar": time.March,
		"apr": time.April,
		"may": time.May,
		"jun": time.June,
		"jul": time.July,
		"aug": time.August,
		"sep": time.September,
		"oct": time.October,
		"nov": time.November,
		"dec": time.December,
	}
)

// Normalizer evaluates age labels against a wall clock.
type Normalizer struct {
	now func() time.Time
	loc *time.Location
}

// NewNormalizer creates a Normalizer.
// Parameters:
//   - now: clock; nil uses time.Now.
//   - loc: zone calendar dates are interpreted in; nil uses time.Local.
// Returns:
//   - *Normalizer: ready to use.
func NewNormalizer(now func() time.Time, loc *time.Location) *Normalizer {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.Local
	}
	return &Normalizer{now: now, loc: loc}
}

// ParseDays returns how many whole days ago the label refers to.
// Two grammars are recognised, case-insensitively:
//   - "<N>d" gives N.
//   - "<Mon> <Day>" is the most recent such calendar date not after now.
// ok is false for anything else, including an unknown month or a day the
// month does not have; callers must treat that as an unknown age, not zero.
func (n *Normalizer) ParseDays(text string) (days int, ok bool) {
	clean := strings.ToLower(strings.TrimSpace(text))
	if clean == "" {
		return 0, false
	}

	if m := dayCountPattern.FindStringSubmatch(clean); m != nil {
		d, err := strconv.Atoi(m[1])
		if err != nil {
			return 0, false
		}
		return d, true
	}

	m := monthDayPattern.FindStringSubmatch(clean)
	if m == nil || len(m[1]) < 3 {
		return 0, false
	}
	month, known := monthAbbreviated[m[1][:3]]
	if !known {
		return 0, false
	}
	day, err := strconv.Atoi(m[2])
	if err != nil || day < 1 {
		return 0, false
	}

	now := n.now().In(n.loc)
	posted := time.Date(now.Year(), month, day, 0, 0, 0, 0, n.loc)
	if posted.Month() != month {
		return 0, false
	}
	// Boards lag across New Year: "Dec 30" read on Jan 02 is last year.
	if posted.After(now) {
		posted = time.Date(now.Year()-1, month, day, 0, 0, 0, 0, n.loc)
		if posted.Month() != month {
			return 0, false
		}
	}

	diff := calendarDays(posted, now)
	if diff < 0 {
		diff = 0
	}
	return diff, true
}

// calendarDays counts date boundaries from a to b, ignoring clock time, so
// a 23 or 25 hour DST day still counts as one.
func calendarDays(a, b time.Time) int {
	da := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	db := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da) / (24 * time.Hour))
}

// ToDate converts a label into an approximate posting date, now minus
// ParseDays. ok is false when the label is unparseable; no date is guessed.
func (n *Normalizer) ToDate(text string) (time.Time, bool) {
	days, ok := n.ParseDays(text)
	if !ok {
		return time.Time{}, false
	}
	return n.now().In(n.loc).AddDate(0, 0, -days), true
}

// IsRecent reports whether the label parses to at most maxDays.
func (n *Normalizer) IsRecent(text string, maxDays int) bool {
	days, ok := n.ParseDays(text)
	return ok && days <= maxDays
}
