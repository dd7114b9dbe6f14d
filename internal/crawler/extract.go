package crawler

import (
	"iter"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	crawlerrors "sjsage522/vehiclecrawler/pkg/errors"
)

// Extractor finds listing candidates in a results page
type Extractor struct {
	Selectors Selectors
	baseURL   *url.URL
}

// NewExtractor creates an extractor resolving relative links against baseURL
func NewExtractor(selectors Selectors, baseURL string) *Extractor {
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Host == "" {
		parsed = nil
	}
	return &Extractor{
		Selectors: selectors,
		baseURL:   parsed,
	}
}

// Extract parses the page and returns its listing containers in document order.
// Containers are processed lazily as the sequence is consumed.
func (e *Extractor) Extract(pageURL, html string) (iter.Seq[Outcome], error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, crawlerrors.NewParsing(pageURL, "HTML parsing error", err)
	}

	items := doc.Find(e.Selectors.ListingList)
	return func(yield func(Outcome) bool) {
		for i := range items.Length() {
			if !yield(e.processListing(items.Eq(i))) {
				return
			}
		}
	}, nil
}

// Candidates returns only the complete candidates of a page
func (e *Extractor) Candidates(pageURL, html string) ([]Candidate, error) {
	outcomes, err := e.Extract(pageURL, html)
	if err != nil {
		return nil, err
	}

	var candidates []Candidate
	for outcome := range outcomes {
		if !outcome.Skipped() {
			candidates = append(candidates, outcome.Candidate)
		}
	}
	return candidates, nil
}

// processListing processes a single listing container
func (e *Extractor) processListing(s *goquery.Selection) Outcome {
	titleSel := s.Find(e.Selectors.Title).First()
	if titleSel.Length() == 0 {
		return Outcome{Skip: SkipMissingTitle}
	}

	title := collapseSpace(titleSel.Text())
	if title == "" {
		return Outcome{Skip: SkipMissingTitle}
	}

	link, exists := titleSel.Attr("href")
	if !exists || strings.TrimSpace(link) == "" {
		return Outcome{Skip: SkipMissingLink}
	}

	priceText, ok := e.optionalText(s, e.Selectors.Price)
	if !ok {
		return Outcome{Skip: SkipMissingPrice}
	}

	dateText, ok := e.optionalText(s, e.Selectors.Date)
	if !ok {
		return Outcome{Skip: SkipMissingDate}
	}

	var descriptors []string
	s.Find(e.Selectors.Descriptors).Each(func(_ int, d *goquery.Selection) {
		descriptors = append(descriptors, collapseSpace(d.Text()))
	})

	return Outcome{
		Candidate: Candidate{
			Title:       title,
			Link:        ResolveURL(e.baseURL, link),
			PriceText:   priceText,
			DateText:    dateText,
			Descriptors: descriptors,
		},
	}
}

// optionalText returns the text of the first match and whether the element exists
func (e *Extractor) optionalText(s *goquery.Selection, selector string) (string, bool) {
	sel := s.Find(selector).First()
	if sel.Length() == 0 {
		return "", false
	}
	return collapseSpace(sel.Text()), true
}
