package crawler

import (
	"encoding/json"
	"time"

	"sjsage522/vehiclecrawler/logger"
	crawlerrors "sjsage522/vehiclecrawler/pkg/errors"
	"sjsage522/vehiclecrawler/services/publisher"
)

// EventKind identifies a progress event
type EventKind string

const (
	EventRunStarted   EventKind = "run_started"
	EventPageStarted  EventKind = "page_started"
	EventPageFetched  EventKind = "page_fetched"
	EventPageFailed   EventKind = "page_failed"
	EventRunCompleted EventKind = "run_completed"
	EventRunAborted   EventKind = "run_aborted"
)

// ProgressEvent reports the state of a run
type ProgressEvent struct {
	RunID  string    `json:"run_id"`
	Kind   EventKind `json:"kind"`
	Page   int       `json:"page,omitempty"`
	Pages  int       `json:"pages"`
	URL    string    `json:"url,omitempty"`
	Found  int       `json:"found"`
	Kept   int       `json:"kept"`
	Total  int       `json:"total"`
	Output string    `json:"output,omitempty"`
	Error  string    `json:"error,omitempty"`
	Time   time.Time `json:"time"`
}

// ProgressSink receives progress events; implementations must not block the run
type ProgressSink interface {
	OnProgress(event ProgressEvent)
}

// ProgressFunc adapts a function to ProgressSink
type ProgressFunc func(event ProgressEvent)

// OnProgress calls f
func (f ProgressFunc) OnProgress(event ProgressEvent) {
	f(event)
}

// MultiSink fans events out to every sink in order
type MultiSink []ProgressSink

// OnProgress forwards the event
func (m MultiSink) OnProgress(event ProgressEvent) {
	for _, sink := range m {
		if sink != nil {
			sink.OnProgress(event)
		}
	}
}

// LogSink writes human-readable progress lines
type LogSink struct {
	logger *logger.Logger
}

// NewLogSink creates a log sink
func NewLogSink(log *logger.Logger) *LogSink {
	return &LogSink{logger: log}
}

// OnProgress logs the event
func (s *LogSink) OnProgress(event ProgressEvent) {
	switch event.Kind {
	case EventRunStarted:
		s.logger.Info().Str("run_id", event.RunID).Int("pages", event.Pages).Msgf("Base URL: %s", event.URL)
	case EventPageStarted:
		s.logger.Info().Msgf("Loading page %d: %s", event.Page, event.URL)
	case EventPageFetched:
		if event.Kept == 0 {
			s.logger.Warn().Int("page", event.Page).Int("found", event.Found).Msg("No listings found (possible challenge page, or no results for filters)")
			return
		}
		s.logger.Info().Int("page", event.Page).Int("found", event.Found).Msgf("Extracted %d listings. Total kept: %d", event.Kept, event.Total)
	case EventPageFailed:
		s.logger.Error().Int("page", event.Page).Str("url", event.URL).Msgf("Page load error on page %d: %s", event.Page, event.Error)
	case EventRunCompleted:
		s.logger.Info().Str("run_id", event.RunID).Msgf("Saved %d records to: %s", event.Total, event.Output)
	case EventRunAborted:
		s.logger.Warn().Str("run_id", event.RunID).Int("total", event.Total).Msgf("Run aborted: %s", event.Error)
	}
}

// PublisherSink publishes events as JSON to a stream
type PublisherSink struct {
	publisher publisher.Publisher
	logger    *logger.Logger
}

// NewPublisherSink creates a publisher sink
func NewPublisherSink(pub publisher.Publisher, log *logger.Logger) *PublisherSink {
	return &PublisherSink{publisher: pub, logger: log}
}

// OnProgress publishes the event; failures are logged and never reach the run
func (s *PublisherSink) OnProgress(event ProgressEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to encode progress event")
		return
	}

	if err := s.publisher.Publish(string(event.Kind), data); err != nil {
		s.logger.Warn().Err(crawlerrors.NewPublisher("progress", "failed to publish event", err)).Str("kind", string(event.Kind)).Msg("Progress publish failed")
	}
}
