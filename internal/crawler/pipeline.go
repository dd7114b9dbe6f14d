package crawler

import (
	"context"
	"time"

	"sjsage522/vehiclecrawler/config"
	"sjsage522/vehiclecrawler/logger"
	crawlerrors "sjsage522/vehiclecrawler/pkg/errors"
)

// Pipeline fetches the result pages of one search sequentially and keeps the
// listings that pass the price filter
type Pipeline struct {
	baseURL   string
	pageDelay time.Duration
	extractor *Extractor
	progress  ProgressSink
	logger    *logger.Logger
	now       func() time.Time
}

// NewPipeline creates a pipeline for the configured search site
func NewPipeline(cfg *config.Config, progress ProgressSink, log *logger.Logger) *Pipeline {
	if progress == nil {
		progress = MultiSink{}
	}
	return &Pipeline{
		baseURL:   cfg.SearchBaseURL,
		pageDelay: cfg.PageDelay,
		extractor: NewExtractor(RiyasewanaSelectors(), cfg.SearchBaseURL),
		progress:  progress,
		logger:    log,
		now:       time.Now,
	}
}

// Run walks pages 1..criteria.Pages with fetcher. A page that fails to load or
// parse is reported and skipped. Run returns an error when the criteria are
// invalid, ctx is cancelled or a page fails with an error outside the fetch
// taxonomy; the partial aggregate is returned too.
func (p *Pipeline) Run(ctx context.Context, runID string, fetcher Fetcher, criteria config.SearchCriteria) (*Aggregate, error) {
	aggregate := NewAggregate()
	if err := criteria.Validate(); err != nil {
		return aggregate, err
	}

	searchURL := BuildSearchURL(p.baseURL, criteria)
	filter := NewPriceFilter(criteria)

	p.emit(ProgressEvent{RunID: runID, Kind: EventRunStarted, Pages: criteria.Pages, URL: searchURL})

	for page := 1; page <= criteria.Pages; page++ {
		if err := ctx.Err(); err != nil {
			return aggregate, err
		}

		if err := p.processPage(ctx, runID, fetcher, page, criteria.Pages, PageURL(searchURL, page), filter, aggregate); err != nil {
			return aggregate, err
		}

		if err := ctx.Err(); err != nil {
			return aggregate, err
		}

		if page < criteria.Pages {
			if err := sleepContext(ctx, p.pageDelay); err != nil {
				return aggregate, err
			}
		}
	}

	return aggregate, nil
}

// processPage fetches, extracts, normalizes and filters one page.
// Fetch failures are reported and swallowed; any other error is returned.
func (p *Pipeline) processPage(ctx context.Context, runID string, fetcher Fetcher, page, pages int, pageURL string, filter PriceFilter, aggregate *Aggregate) error {
	event := ProgressEvent{RunID: runID, Page: page, Pages: pages, URL: pageURL}

	started := event
	started.Kind = EventPageStarted
	p.emit(started)

	html, err := fetcher.Fetch(ctx, pageURL)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return p.fail(event, aggregate, err)
	}

	outcomes, err := p.extractor.Extract(pageURL, html)
	if err != nil {
		return p.fail(event, aggregate, err)
	}

	var found, kept, skipped int
	for outcome := range outcomes {
		if outcome.Skipped() {
			skipped++
			continue
		}
		found++

		listing := Normalize(outcome.Candidate)
		if !filter.Keep(listing) {
			continue
		}
		aggregate.Add(listing)
		kept++
	}

	if skipped > 0 {
		p.logger.Debug().Int("page", page).Int("skipped", skipped).Msg("Skipped incomplete listings")
	}

	event.Kind = EventPageFetched
	event.Found = found
	event.Kept = kept
	event.Total = aggregate.Len()
	p.emit(event)
	return nil
}

// fail reports the page as failed and returns err unless it only costs this page
func (p *Pipeline) fail(event ProgressEvent, aggregate *Aggregate, err error) error {
	event.Kind = EventPageFailed
	event.Error = err.Error()
	event.Total = aggregate.Len()
	p.emit(event)

	if crawlerrors.IsFetchFailure(err) {
		return nil
	}
	return err
}

func (p *Pipeline) emit(event ProgressEvent) {
	event.Time = p.now()
	p.progress.OnProgress(event)
}
