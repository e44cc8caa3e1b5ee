package browser

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	// hrefIDPattern matches match links like /match/foo-vs-bar/#id:12345678
	// or /event/12345678 in rendered markup.
	hrefIDPattern = regexp.MustCompile(`(?:#id:|/event/|/match/)(\d{6,})`)
	// embeddedIDPattern matches numeric event ids inside embedded JSON
	// hydration blocks.
	embeddedIDPattern = regexp.MustCompile(`"(?:event[iI]d|id)"\s*:\s*(\d{6,})`)
)

// matchIDsFromHTML scrapes match identifiers from a rendered page. Embedded
// hydration state (JSON script blocks) is preferred; anchor hrefs in the
// raw markup are the final fallback. Order of first appearance is kept and
// duplicates are dropped.
func matchIDsFromHTML(html string) []string {
	var ids []string
	seen := map[string]struct{}{}
	add := func(id string) {
		if _, dup := seen[id]; dup || id == "" {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		scanText(html, add, hrefIDPattern)
		return ids
	}

	doc.Find(`script[type="application/json"], script[type="application/ld+json"], script#__NEXT_DATA__`).
		Each(func(_ int, s *goquery.Selection) {
			scanText(s.Text(), add, embeddedIDPattern)
		})

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		scanText(href, add, hrefIDPattern)
	})

	if len(ids) == 0 {
		scanText(html, add, hrefIDPattern)
	}
	return ids
}

func scanText(text string, add func(string), pattern *regexp.Regexp) {
	for _, m := range pattern.FindAllStringSubmatch(text, -1) {
		add(m[1])
	}
}
