package worker

import (
	"context"
	"time"

	"sjsage522/vehiclecrawler/config"
	"sjsage522/vehiclecrawler/internal/crawler"
	"sjsage522/vehiclecrawler/logger"
	"sjsage522/vehiclecrawler/services/publisher"
	"sjsage522/vehiclecrawler/services/storage"

	"github.com/google/uuid"
)

// Writer persists the final listing set
type Writer interface {
	Write(listings []crawler.Listing) error
	Path() string
}

// Archiver records finished runs
type Archiver interface {
	LatestPrices(ctx context.Context) (map[string]int, error)
	SaveRun(ctx context.Context, run storage.RunRecord, listings []crawler.Listing) error
}

// Dependencies holds the collaborators of a worker; Archive and Publisher are optional
type Dependencies struct {
	Pipeline    *crawler.Pipeline
	OpenSession crawler.SessionOpener
	Writer      Writer
	Archive     Archiver
	Publisher   publisher.Publisher
	Progress    crawler.ProgressSink
}

// Result describes a finished run
type Result struct {
	RunID        string
	Listings     []crawler.Listing
	OutputPath   string
	Summary      crawler.Summary
	PriceChanges int
	Err          error
}

// Worker executes one scrape run: session, pipeline, persistence
type Worker struct {
	ctx    context.Context
	cfg    *config.Config
	deps   Dependencies
	logger *logger.Logger
	now    func() time.Time
}

// NewWorker creates a new worker
func NewWorker(ctx context.Context, cfg *config.Config, deps Dependencies, log *logger.Logger) *Worker {
	if deps.Progress == nil {
		deps.Progress = crawler.MultiSink{}
	}
	return &Worker{
		ctx:    ctx,
		cfg:    cfg,
		deps:   deps,
		logger: log,
		now:    time.Now,
	}
}

// Start runs the worker in a goroutine and delivers the result on the returned channel
func (w *Worker) Start(criteria config.SearchCriteria) <-chan Result {
	done := make(chan Result, 1)
	go func() {
		done <- w.Run(criteria)
	}()
	return done
}

// Run performs one complete run. The session is closed exactly once before
// persisting, whether the run finished or was aborted.
func (w *Worker) Run(criteria config.SearchCriteria) Result {
	result := Result{RunID: uuid.NewString()}

	if err := criteria.Validate(); err != nil {
		result.Err = err
		return result
	}

	startedAt := w.now()
	aggregate, err := w.scrape(result.RunID, criteria)
	if aggregate != nil {
		result.Listings = aggregate.Listings()
	}
	if err != nil {
		w.emit(crawler.ProgressEvent{RunID: result.RunID, Kind: crawler.EventRunAborted, Pages: criteria.Pages, Total: len(result.Listings), Error: err.Error()})
		result.Err = err
		return result
	}

	if err := w.deps.Writer.Write(result.Listings); err != nil {
		result.Err = err
		return result
	}
	result.OutputPath = w.deps.Writer.Path()
	result.Summary = crawler.Summarize(result.Listings)

	if w.deps.Archive != nil {
		result.PriceChanges = w.archive(result, criteria, startedAt)
	}

	if w.deps.Publisher != nil {
		if err := w.deps.Publisher.TrimStreams(); err != nil {
			w.logger.Warn().Err(err).Msg("Failed to trim progress stream")
		}
	}

	w.emit(crawler.ProgressEvent{RunID: result.RunID, Kind: crawler.EventRunCompleted, Pages: criteria.Pages, Total: len(result.Listings), Output: result.OutputPath})
	w.logSummary(result)
	return result
}

// scrape opens the session, runs the pipeline and closes the session
func (w *Worker) scrape(runID string, criteria config.SearchCriteria) (*crawler.Aggregate, error) {
	session, err := w.deps.OpenSession(w.ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := session.Close(); err != nil {
			w.logger.Warn().Err(err).Msg("Failed to close fetch session")
		}
	}()

	return w.deps.Pipeline.Run(w.ctx, runID, session, criteria)
}

// archive stores the run and returns how many links changed price since the previous runs.
// Archive failures never fail the run.
func (w *Worker) archive(result Result, criteria config.SearchCriteria, startedAt time.Time) int {
	ctx := context.WithoutCancel(w.ctx)

	previous, err := w.deps.Archive.LatestPrices(ctx)
	if err != nil {
		w.logger.Warn().Err(err).Msg("Failed to read archived prices")
		previous = nil
	}

	changed := make(map[string]struct{})
	for _, l := range result.Listings {
		if l.Price == nil {
			continue
		}
		if old, ok := previous[l.Link]; ok && old != *l.Price {
			changed[l.Link] = struct{}{}
		}
	}

	run := storage.RunRecord{
		ID:         result.RunID,
		SearchURL:  crawler.BuildSearchURL(w.cfg.SearchBaseURL, criteria),
		Pages:      criteria.Pages,
		StartedAt:  startedAt,
		FinishedAt: w.now(),
	}
	if err := w.deps.Archive.SaveRun(ctx, run, result.Listings); err != nil {
		w.logger.Warn().Err(err).Msg("Failed to archive run")
	}
	return len(changed)
}

func (w *Worker) emit(event crawler.ProgressEvent) {
	event.Time = w.now()
	w.deps.Progress.OnProgress(event)
}

// logSummary logs the price statistics of a run that kept at least one listing
func (w *Worker) logSummary(result Result) {
	if result.Summary.Count == 0 {
		return
	}
	w.logger.Info().
		Str("run_id", result.RunID).
		Int("count", result.Summary.Count).
		Int("min_price", result.Summary.MinPrice).
		Int("max_price", result.Summary.MaxPrice).
		Float64("avg_price", result.Summary.AveragePrice).
		Int("with_mileage", result.Summary.WithMileage).
		Int("with_location", result.Summary.WithLocation).
		Int("price_changes", result.PriceChanges).
		Msg("Run summary")
}
