// Package markdown scrapes job boards published as pipe tables in README
// style documents.
package markdown

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	reBadgeLink = regexp.MustCompile(`\[!\[[^\]]*\]\([^)]*\)\]\(([^)\s]+)\)`)
	reMdLink    = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
	reBreak     = regexp.MustCompile(`(?i)</?br\s*/?>`)
	reTag       = regexp.MustCompile(`<[^>]+>`)
	reBold      = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	reItalic    = regexp.MustCompile(`\*([^*]+)\*`)
	reCode      = regexp.MustCompile("`([^`]+)`")
	reSpace     = regexp.MustCompile(`\s+`)
)

// ExtractURL returns the application link in a table cell.
// The first HTML anchor with an href wins, then the first markdown link
// (a badge image wrapped in a link yields the outer target).
// Parameters:
//   - cell: raw cell text.
// Returns:
//   - string: link target.
//   - bool: false when the cell has no link.
func ExtractURL(cell string) (string, bool) {
	if strings.Contains(strings.ToLower(cell), "<a") {
		if href, ok := firstAnchorHref(cell); ok {
			return href, true
		}
	}

	if m := reBadgeLink.FindStringSubmatch(cell); m != nil {
		return m[1], true
	}
	if m := reMdLink.FindStringSubmatch(cell); m != nil {
		if target := strings.TrimSpace(m[2]); target != "" {
			return target, true
		}
	}
	return "", false
}

func firstAnchorHref(cell string) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(cell))
	if err != nil {
		return "", false
	}

	var href string
	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		v, _ := a.Attr("href")
		href = strings.TrimSpace(v)
		return href == ""
	})
	return href, href != ""
}

// ExtractText reduces a cell to plain display text: tags removed, links
// collapsed to their labels, emphasis and code markers stripped, <br> and
// &nbsp; turned into spaces, whitespace collapsed and trimmed.
// ExtractText(ExtractText(s)) == ExtractText(s).
func ExtractText(cell string) string {
	s := cell
	// Every changing pass shortens s or only rewrites whitespace, so this ends.
	for {
		next := cleanOnce(s)
		if next == s {
			return s
		}
		s = next
	}
}

func cleanOnce(s string) string {
	s = reBreak.ReplaceAllString(s, " ")
	s = reTag.ReplaceAllString(s, "")
	s = reMdLink.ReplaceAllString(s, "$1")
	s = reBold.ReplaceAllString(s, "$1")
	s = reItalic.ReplaceAllString(s, "$1")
	s = reCode.ReplaceAllString(s, "$1")
	s = strings.ReplaceAll(s, "&nbsp;", " ")
	s = reSpace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
