// Package listing owns the loaded event list. A Snapshot is an immutable
// view of one feed load; the Refresher builds new snapshots off to the side
// and swaps them in.
package listing

import (
	"time"

	"ctlcal/internal/filter"
	appLog "ctlcal/internal/log"
	"ctlcal/internal/metrics"
	"ctlcal/internal/model"
	"ctlcal/internal/search"
)

// Filter outcomes recorded in metrics.FilterRequests.
const (
	outcomeMatched = "matched"
	outcomeEmpty   = "empty"
)

// Snapshot is one loaded event list with its search index. It is never
// mutated after NewSnapshot returns and is safe for concurrent use.
type Snapshot struct {
	Events    []model.Event
	Index     *search.Index
	FetchedAt time.Time
	FromCache bool

	pipeline  *filter.Pipeline
	locations []filter.Choice
	audiences []filter.Choice
}

// NewSnapshot indexes events, which must already be loaded and sorted. An
// index build failure is logged; text search then reports itself as
// unavailable while the other filters keep working.
func NewSnapshot(events []model.Event, fetchedAt time.Time, fromCache bool, opts ...filter.Option) *Snapshot {
	s := &Snapshot{
		Events:    events,
		FetchedAt: fetchedAt,
		FromCache: fromCache,
	}

	var searcher filter.Searcher
	ix, err := search.Build(events)
	if err != nil {
		appLog.Error("search index build failed", err, "event_count", len(events))
	} else {
		s.Index = ix
		searcher = ix
	}
	s.pipeline = filter.New(searcher, opts...)

	venues := make([]string, 0, len(events))
	var audiences []string
	for _, e := range events {
		venues = append(venues, e.Venue)
		audiences = append(audiences, e.Audience()...)
	}
	s.locations = filter.Choices(venues)
	s.audiences = filter.Choices(audiences)
	return s
}

// Filter runs the pipeline over the snapshot's events.
func (s *Snapshot) Filter(c filter.Criteria) filter.Result {
	start := time.Now()
	res := s.pipeline.Filter(s.Events, c)
	metrics.FilterDuration.Observe(time.Since(start).Seconds())

	outcome := outcomeMatched
	if len(res.Events) == 0 {
		outcome = outcomeEmpty
	}
	metrics.FilterRequests.WithLabelValues(outcome).Inc()
	return res
}

// Locations lists the distinct venues behind an "All" choice.
func (s *Snapshot) Locations() []filter.Choice { return s.locations }

// Audiences lists the distinct audience values behind an "All" choice.
func (s *Snapshot) Audiences() []filter.Choice { return s.audiences }

// Close releases the search index.
func (s *Snapshot) Close() error {
	if s == nil {
		return nil
	}
	return s.Index.Close()
}
