package crawler

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"sjsage522/vehiclecrawler/config"
	"sjsage522/vehiclecrawler/logger"
	crawlerrors "sjsage522/vehiclecrawler/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPipeline(delay time.Duration, sink ProgressSink) *Pipeline {
	cfg := &config.Config{
		SearchBaseURL: testBaseURL,
		PageDelay:     delay,
	}
	return NewPipeline(cfg, sink, logger.Nop())
}

func testCriteria(pages int) config.SearchCriteria {
	return config.SearchCriteria{
		VehicleType: "cars",
		Make:        "toyota",
		Model:       "aqua",
		City:        "Any",
		MinPrice:    intPtr(1000000),
		MaxPrice:    intPtr(5000000),
		Condition:   "Any",
		Pages:       pages,
	}
}

func titles(listings []Listing) []string {
	out := make([]string, 0, len(listings))
	for _, l := range listings {
		out = append(out, l.Title)
	}
	return out
}

func TestPipelineRun(t *testing.T) {
	searchURL := BuildSearchURL(testBaseURL, testCriteria(2))
	session := newMockSession()
	session.pages[searchURL] = renderResultsPage(
		listing("Toyota Aqua 2014", "Rs. 4,250,000"),
		listing("Toyota Aqua 2012", "Negotiable"),
		listing("Toyota Aqua 2019", "Rs. 7,900,000"),
		listing("Toyota Aqua 2013", "Rs. 1,000,000"),
	)
	session.pages[searchURL+"?page=2"] = renderResultsPage(
		listing("Toyota Aqua 2015", "Rs. 5,000,000"),
		listing("Toyota Aqua 2011", "Rs. 999,999"),
	)

	sink := &recordingSink{}
	aggregate, err := newTestPipeline(0, sink).Run(context.Background(), "run-1", session, testCriteria(2))
	require.NoError(t, err)

	assert.Equal(t, []string{"Toyota Aqua 2014", "Toyota Aqua 2013", "Toyota Aqua 2015"}, titles(aggregate.Listings()))
	assert.Equal(t, []string{searchURL, searchURL + "?page=2"}, session.Calls())

	for _, l := range aggregate.Listings() {
		require.NotNil(t, l.Price)
		assert.GreaterOrEqual(t, *l.Price, 1000000)
		assert.LessOrEqual(t, *l.Price, 5000000)
	}

	fetched := sink.Of(EventPageFetched)
	require.Len(t, fetched, 2)
	assert.Equal(t, 4, fetched[0].Found)
	assert.Equal(t, 2, fetched[0].Kept)
	assert.Equal(t, 2, fetched[0].Total)
	assert.Equal(t, 2, fetched[1].Found)
	assert.Equal(t, 1, fetched[1].Kept)
	assert.Equal(t, 3, fetched[1].Total)

	assert.Equal(t, []EventKind{
		EventRunStarted,
		EventPageStarted, EventPageFetched,
		EventPageStarted, EventPageFetched,
	}, sink.Kinds())
}

func TestPipelineContinuesAfterPageFailure(t *testing.T) {
	criteria := testCriteria(5)
	searchURL := BuildSearchURL(testBaseURL, criteria)

	session := newMockSession()
	for page := 1; page <= 5; page++ {
		session.pages[PageURL(searchURL, page)] = renderResultsPage(listing(fmt.Sprintf("Page %d listing", page), "Rs. 2,000,000"))
	}
	session.errs[PageURL(searchURL, 3)] = crawlerrors.NewTimeout(PageURL(searchURL, 3), time.Minute, context.DeadlineExceeded)

	sink := &recordingSink{}
	aggregate, err := newTestPipeline(0, sink).Run(context.Background(), "run-2", session, criteria)
	require.NoError(t, err)

	assert.Equal(t, []string{"Page 1 listing", "Page 2 listing", "Page 4 listing", "Page 5 listing"}, titles(aggregate.Listings()))
	assert.Len(t, session.Calls(), 5)

	failed := sink.Of(EventPageFailed)
	require.Len(t, failed, 1)
	assert.Equal(t, 3, failed[0].Page)
	assert.Equal(t, 2, failed[0].Total)
	assert.Contains(t, failed[0].Error, "timeout")
	assert.Len(t, sink.Of(EventPageFetched), 4)
}

func TestPipelineEmptyPage(t *testing.T) {
	criteria := testCriteria(1)
	session := newMockSession()
	session.pages[BuildSearchURL(testBaseURL, criteria)] = "<html><body>Nothing here</body></html>"

	sink := &recordingSink{}
	aggregate, err := newTestPipeline(0, sink).Run(context.Background(), "run-3", session, criteria)
	require.NoError(t, err)
	assert.Equal(t, 0, aggregate.Len())
	assert.NotNil(t, aggregate.Listings())

	fetched := sink.Of(EventPageFetched)
	require.Len(t, fetched, 1)
	assert.Equal(t, 0, fetched[0].Found)
}

func TestPipelineAllPagesFail(t *testing.T) {
	criteria := testCriteria(3)
	searchURL := BuildSearchURL(testBaseURL, criteria)
	session := newMockSession()
	for page := 1; page <= 3; page++ {
		session.errs[PageURL(searchURL, page)] = crawlerrors.NewNetwork(PageURL(searchURL, page), "failed", errors.New("connection refused"))
	}

	sink := &recordingSink{}
	aggregate, err := newTestPipeline(0, sink).Run(context.Background(), "run-4", session, criteria)
	require.NoError(t, err)
	assert.Equal(t, 0, aggregate.Len())
	assert.Len(t, sink.Of(EventPageFailed), 3)
}

func TestPipelineAbortsOnUnexpectedError(t *testing.T) {
	criteria := testCriteria(3)
	searchURL := BuildSearchURL(testBaseURL, criteria)
	session := newMockSession()
	for page := 1; page <= 3; page++ {
		session.pages[PageURL(searchURL, page)] = renderResultsPage(listing(fmt.Sprintf("Page %d listing", page), "Rs. 2,000,000"))
	}
	unexpected := errors.New("session state corrupted")
	session.errs[PageURL(searchURL, 2)] = unexpected

	sink := &recordingSink{}
	aggregate, err := newTestPipeline(0, sink).Run(context.Background(), "run-8", session, criteria)

	require.ErrorIs(t, err, unexpected)
	assert.Equal(t, []string{"Page 1 listing"}, titles(aggregate.Listings()))
	assert.Equal(t, []string{searchURL, searchURL + "?page=2"}, session.Calls())

	failed := sink.Of(EventPageFailed)
	require.Len(t, failed, 1)
	assert.Equal(t, 2, failed[0].Page)
}

func TestPipelineInvalidCriteria(t *testing.T) {
	criteria := testCriteria(2)
	criteria.MinPrice = intPtr(10)
	criteria.MaxPrice = intPtr(5)

	session := newMockSession()
	sink := &recordingSink{}
	_, err := newTestPipeline(0, sink).Run(context.Background(), "run-5", session, criteria)

	require.Error(t, err)
	assert.True(t, crawlerrors.IsType(err, crawlerrors.ErrorTypeValidation))
	assert.Empty(t, session.Calls())
	assert.Empty(t, sink.Kinds())
}

func TestPipelineDelayBetweenPages(t *testing.T) {
	criteria := testCriteria(3)
	session := newMockSession()

	var fetchTimes []time.Time
	session.onCall = func(string) {
		fetchTimes = append(fetchTimes, time.Now())
	}

	delay := 30 * time.Millisecond
	start := time.Now()
	_, err := newTestPipeline(delay, nil).Run(context.Background(), "run-6", session, criteria)
	require.NoError(t, err)
	elapsed := time.Since(start)

	require.Len(t, fetchTimes, 3)
	for i := 1; i < len(fetchTimes); i++ {
		assert.GreaterOrEqual(t, fetchTimes[i].Sub(fetchTimes[i-1]), delay)
	}
	// No delay after the last page
	assert.Less(t, elapsed, 3*delay+time.Second)
}

func TestPipelineCancellation(t *testing.T) {
	criteria := testCriteria(5)
	searchURL := BuildSearchURL(testBaseURL, criteria)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	session := newMockSession()
	for page := 1; page <= 5; page++ {
		session.pages[PageURL(searchURL, page)] = renderResultsPage(listing("Listing", "Rs. 2,000,000"))
	}
	session.onCall = func(url string) {
		if url == PageURL(searchURL, 2) {
			cancel()
		}
	}

	sink := &recordingSink{}
	aggregate, err := newTestPipeline(0, sink).Run(ctx, "run-7", session, criteria)

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, aggregate.Len())
	assert.Len(t, session.Calls(), 2)
	assert.Empty(t, sink.Of(EventPageFailed))
}
