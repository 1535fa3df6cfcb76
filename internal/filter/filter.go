// Package filter narrows a loaded event list by the criteria of the current
// view. Every stage is a no-op when its criterion is absent.
package filter

import (
	"errors"
	"slices"
	"strconv"
	"time"

	appLog "ctlcal/internal/log"
	"ctlcal/internal/model"
)

// Alert texts shown in the results alert area.
const (
	AlertNoMatches         = "No events match these filters"
	AlertSearchUnavailable = "Search is unavailable right now"
)

// Criteria describes the current view. Zero fields are absent criteria.
type Criteria struct {
	Query    string
	Location string
	Audience string
	Start    time.Time
	End      time.Time
	EventID  string
}

// IsZero reports whether no criterion is set.
func (c Criteria) IsZero() bool {
	return c.Query == "" && c.Location == "" && c.Audience == "" &&
		c.Start.IsZero() && c.End.IsZero() && c.EventID == ""
}

// Searcher is the full-text collaborator. Search returns refs, decimal
// positions into the slice the index was built from, ranked best first.
type Searcher interface {
	Search(query string) ([]string, error)
}

// Result is the filtered view plus any alerts to show with it.
type Result struct {
	Events []model.Event
	Alerts []string
}

// Pipeline applies the stages in order: date range, location, audience,
// text search, event ID.
type Pipeline struct {
	searcher Searcher
	now      func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithClock overrides time.Now for date validation.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// New returns a Pipeline searching with s. s may be nil when no text query
// will be issued.
func New(s Searcher, opts ...Option) *Pipeline {
	p := &Pipeline{searcher: s, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Filter narrows all by c. Invalid date ranges and search failures become
// alerts; filtering always continues with what can be applied.
func (p *Pipeline) Filter(all []model.Event, c Criteria) Result {
	var res Result

	if err := Validate(c.Start, c.End, p.now()); err != nil {
		var dre *DateRangeError
		if errors.As(err, &dre) {
			res.Alerts = append(res.Alerts, dre.Reason)
		}
	}

	// Survivors are tracked as positions into all; IDs may repeat or be empty.
	end := c.End
	if !end.IsZero() {
		end = endOfDay(end)
	}
	keep := make([]int, 0, len(all))
	for i, e := range all {
		if inDateRange(e, c.Start, end) && atVenue(e, c.Location) && openTo(e, c.Audience) {
			keep = append(keep, i)
		}
	}
	events := pick(all, keep)

	if c.Query != "" {
		searched, err := BySearch(all, keep, p.searcher, c.Query)
		if err != nil {
			appLog.Error("text search failed", err, "query", c.Query)
			res.Alerts = append(res.Alerts, AlertSearchUnavailable)
		} else {
			events = searched
		}
	}

	events = ByID(events, c.EventID)

	if len(events) == 0 {
		res.Alerts = append(res.Alerts, AlertNoMatches)
	}
	res.Events = events
	return res
}

// endOfDay returns 23:59 on t's day, the inclusive cutoff for an end date.
func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 0, 0, t.Location())
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func pick(all []model.Event, positions []int) []model.Event {
	out := make([]model.Event, 0, len(positions))
	for _, i := range positions {
		out = append(out, all[i])
	}
	return out
}

// inDateRange reports whether e starts in [start, end]. end must already be
// cut off at 23:59 of its day.
func inDateRange(e model.Event, start, end time.Time) bool {
	if start.IsZero() && end.IsZero() {
		return true
	}
	if !e.HasStart() {
		return false
	}
	if !start.IsZero() && e.Start.Before(start) {
		return false
	}
	return end.IsZero() || !e.Start.After(end)
}

func atVenue(e model.Event, loc string) bool {
	return loc == "" || e.Venue == loc
}

func openTo(e model.Event, audience string) bool {
	return audience == "" || slices.Contains(e.Audience(), audience)
}

// ByDateRange keeps events whose start lies in [start, end at 23:59]. Either
// bound may be zero. Events without a start never match an active range.
func ByDateRange(events []model.Event, start, end time.Time) []model.Event {
	if start.IsZero() && end.IsZero() {
		return events
	}
	if !end.IsZero() {
		end = endOfDay(end)
	}

	out := make([]model.Event, 0, len(events))
	for _, e := range events {
		if inDateRange(e, start, end) {
			out = append(out, e)
		}
	}
	return out
}

// ByLocation keeps events whose venue equals loc.
func ByLocation(events []model.Event, loc string) []model.Event {
	if loc == "" {
		return events
	}
	out := make([]model.Event, 0, len(events))
	for _, e := range events {
		if atVenue(e, loc) {
			out = append(out, e)
		}
	}
	return out
}

// ByAudience keeps events open to audience. Events with no audience values
// are excluded.
func ByAudience(events []model.Event, audience string) []model.Event {
	if audience == "" {
		return events
	}
	out := make([]model.Event, 0, len(events))
	for _, e := range events {
		if openTo(e, audience) {
			out = append(out, e)
		}
	}
	return out
}

// BySearch runs query against s and resolves each ref into all, keeping only
// refs whose position is in keep. Unresolvable refs are dropped. The result
// is in ranked order. With an empty query it returns the kept events.
func BySearch(all []model.Event, keep []int, s Searcher, query string) ([]model.Event, error) {
	if query == "" {
		return pick(all, keep), nil
	}
	if s == nil {
		return nil, errors.New("filter: no searcher configured")
	}

	refs, err := s.Search(query)
	if err != nil {
		return nil, err
	}

	kept := make(map[int]struct{}, len(keep))
	for _, i := range keep {
		kept[i] = struct{}{}
	}

	out := make([]model.Event, 0, len(refs))
	for _, ref := range refs {
		i, err := strconv.Atoi(ref)
		if err != nil {
			continue
		}
		if _, ok := kept[i]; !ok {
			continue
		}
		out = append(out, all[i])
	}
	return out, nil
}

// ByID returns the single event with the given ID, or an empty list.
func ByID(events []model.Event, id string) []model.Event {
	if id == "" {
		return events
	}
	for _, e := range events {
		if e.ID == id {
			return []model.Event{e}
		}
	}
	return []model.Event{}
}
