package crawler

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	challengeTitleMarkers = []string{
		"just a moment",
		"attention required",
		"checking your browser",
		"access denied",
	}

	// Only markers that appear on interstitial pages, not on regular pages
	// that load the bot management script.
	challengeBodyMarkers = []string{
		"cf-browser-verification",
		"cf_chl_opt",
		`id="challenge-form"`,
	}
)

// DetectChallenge reports whether the page is a bot challenge instead of results
func DetectChallenge(html string) (string, bool) {
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(html)); err == nil {
		title := strings.ToLower(strings.TrimSpace(doc.Find("title").First().Text()))
		for _, marker := range challengeTitleMarkers {
			if strings.Contains(title, marker) {
				return marker, true
			}
		}
	}

	for _, marker := range challengeBodyMarkers {
		if strings.Contains(html, marker) {
			return marker, true
		}
	}
	return "", false
}
