package filter

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ctlcal/internal/model"
)

const (
	butler = "Butler Library, 535 W. 114 St., New York, NY 10027"
	hammer = "Hammer Health Sciences, New York, NY 10032"
)

// searcherStub returns canned refs for any query.
type searcherStub struct {
	refs  []string
	err   error
	calls int
}

func (s *searcherStub) Search(string) ([]string, error) {
	s.calls++
	return s.refs, s.err
}

func day(d, h int) time.Time {
	return time.Date(2030, time.March, d, h, 0, 0, 0, time.UTC)
}

func withAudience(e model.Event, values ...string) model.Event {
	for _, v := range values {
		e.Properties.Add(model.PropertyAudience, v)
	}
	return e
}

func fixtures() []model.Event {
	return []model.Event{
		withAudience(model.Event{ID: "e0", Title: "Canvas Basics", Venue: butler, Start: day(10, 9)}, "Faculty", "Staff"),
		withAudience(model.Event{ID: "e1", Title: "Video Lab", Venue: hammer, Start: day(12, 13)}, "Student"),
		{ID: "e2", Title: "Open Studio", Venue: butler, Start: day(12, 18)},
		withAudience(model.Event{ID: "e3", Title: "Late Session", Venue: butler, Start: day(15, 23)}, "Faculty"),
		{ID: "e4", Title: "Undated", Venue: butler},
	}
}

func ids(events []model.Event) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.ID)
	}
	return out
}

func fixedClock() func() time.Time {
	return func() time.Time { return time.Date(2030, time.March, 1, 12, 0, 0, 0, time.UTC) }
}

func TestAbsentCriteriaAreNoOps(t *testing.T) {
	all := fixtures()
	assert.Equal(t, all, ByDateRange(all, time.Time{}, time.Time{}))
	assert.Equal(t, all, ByLocation(all, ""))
	assert.Equal(t, all, ByAudience(all, ""))
	assert.Equal(t, all, ByID(all, ""))

	got, err := BySearch(all, []int{0, 1, 2, 3, 4}, nil, "")
	require.NoError(t, err)
	assert.Equal(t, all, got)
}

func TestByDateRangeInclusive(t *testing.T) {
	all := fixtures()

	assert.Equal(t, []string{"e1", "e2", "e3"}, ids(ByDateRange(all, day(12, 0), time.Time{})))
	assert.Equal(t, []string{"e0", "e1", "e2"}, ids(ByDateRange(all, time.Time{}, day(12, 0))))
	assert.Equal(t, []string{"e1", "e2"}, ids(ByDateRange(all, day(12, 0), day(12, 0))))
	// Start bound is inclusive to the minute.
	assert.Equal(t, []string{"e1", "e2", "e3"}, ids(ByDateRange(all, day(12, 13), time.Time{})))
	// 23:00 on the end day is inside the 23:59 cutoff.
	assert.Equal(t, []string{"e3"}, ids(ByDateRange(all, day(15, 0), day(15, 0))))
	assert.Empty(t, ByDateRange(all, day(20, 0), day(21, 0)))
}

func TestByLocation(t *testing.T) {
	all := fixtures()
	assert.Equal(t, []string{"e1"}, ids(ByLocation(all, hammer)))
	assert.Empty(t, ByLocation(all, "Nowhere Hall"))
}

func TestByAudienceExcludesEventsWithoutAudience(t *testing.T) {
	all := fixtures()
	assert.Equal(t, []string{"e0", "e3"}, ids(ByAudience(all, "Faculty")))
	assert.Empty(t, ByAudience(all, "Alumni"))
}

func TestBySearchResolvesAgainstAllAndKeepsRankOrder(t *testing.T) {
	all := fixtures()
	s := &searcherStub{refs: []string{"3", "1", "99", "-1", "bogus", "0"}}

	got, err := BySearch(all, []int{0, 3}, s, "session")
	require.NoError(t, err)
	assert.Equal(t, []string{"e3", "e0"}, ids(got))
}

func TestBySearchPropagatesErrors(t *testing.T) {
	_, err := BySearch(fixtures(), []int{0}, &searcherStub{err: errors.New("boom")}, "x")
	require.Error(t, err)

	_, err = BySearch(fixtures(), []int{0}, nil, "x")
	require.Error(t, err)
}

func TestByID(t *testing.T) {
	all := fixtures()
	for _, e := range all {
		got := ByID(all, e.ID)
		require.Len(t, got, 1)
		assert.Equal(t, e.ID, got[0].ID)
	}
	assert.Empty(t, ByID(all, "GUID-1234"))
	assert.Empty(t, ByID(nil, "e0"))
}

func TestPipelineNoCriteriaReturnsEverything(t *testing.T) {
	all := fixtures()
	s := &searcherStub{}
	res := New(s, WithClock(fixedClock())).Filter(all, Criteria{})

	assert.Equal(t, all, res.Events)
	assert.Empty(t, res.Alerts)
	assert.Zero(t, s.calls)
}

func TestPipelineIntersectsAllCriteria(t *testing.T) {
	all := fixtures()
	s := &searcherStub{refs: []string{"0", "1", "2", "3"}}
	p := New(s, WithClock(fixedClock()))

	res := p.Filter(all, Criteria{
		Query:    "anything",
		Location: butler,
		Audience: "Faculty",
		Start:    day(10, 0),
		End:      day(12, 0),
	})
	assert.Equal(t, []string{"e0"}, ids(res.Events))
	assert.Empty(t, res.Alerts)

	res = p.Filter(all, Criteria{Location: butler, Audience: "Faculty", EventID: "e3"})
	assert.Equal(t, []string{"e3"}, ids(res.Events))

	res = p.Filter(all, Criteria{Location: hammer, EventID: "e3"})
	assert.Empty(t, res.Events)
	assert.Equal(t, []string{AlertNoMatches}, res.Alerts)
}

func TestPipelineInvalidRangeAlertsButFilters(t *testing.T) {
	all := fixtures()
	p := New(nil, WithClock(fixedClock()))

	res := p.Filter(all, Criteria{Start: day(15, 0), End: day(10, 0)})
	require.NotEmpty(t, res.Alerts)
	assert.Equal(t, "The end date entered is prior to the start date", res.Alerts[0])
	assert.Empty(t, res.Events)
	assert.Contains(t, res.Alerts, AlertNoMatches)

	past := time.Date(2030, time.February, 1, 0, 0, 0, 0, time.UTC)
	res = p.Filter(all, Criteria{Start: past})
	assert.Equal(t, []string{"The start date entered is prior to today"}, res.Alerts)
	assert.Equal(t, []string{"e0", "e1", "e2", "e3"}, ids(res.Events))
}

func TestPipelineSearchFailureKeepsCurrentSubset(t *testing.T) {
	all := fixtures()
	p := New(&searcherStub{err: errors.New("index closed")}, WithClock(fixedClock()))

	res := p.Filter(all, Criteria{Query: "video", Location: hammer})
	assert.Equal(t, []string{"e1"}, ids(res.Events))
	assert.Equal(t, []string{AlertSearchUnavailable}, res.Alerts)
}

func TestCriteriaIsZero(t *testing.T) {
	assert.True(t, Criteria{}.IsZero())
	assert.False(t, Criteria{EventID: "x"}.IsZero())
	assert.False(t, Criteria{End: day(1, 0)}.IsZero())
}

func TestPipelineIntersectsSearchWithoutRelyingOnIDs(t *testing.T) {
	for _, id := range []string{"", "GUID-1"} {
		all := []model.Event{
			{ID: id, Title: "Lab A", Venue: "Butler", Start: day(10, 9)},
			{ID: id, Title: "Lab B", Venue: "Lerner", Start: day(11, 9)},
		}
		p := New(&searcherStub{refs: []string{"1", "0"}}, WithClock(fixedClock()))

		res := p.Filter(all, Criteria{Query: "lab", Location: "Butler"})
		require.Len(t, res.Events, 1, "id %q", id)
		assert.Equal(t, "Lab A", res.Events[0].Title)

		res = p.Filter(all, Criteria{Query: "lab", Start: day(11, 0)})
		require.Len(t, res.Events, 1, "id %q", id)
		assert.Equal(t, "Lab B", res.Events[0].Title)
	}
}
