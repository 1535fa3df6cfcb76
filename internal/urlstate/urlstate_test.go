package urlstate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ctlcal/internal/filter"
)

func TestSetInsertsAndReplaces(t *testing.T) {
	var q Query
	q.Set("foo", "bar")
	assert.Equal(t, "?foo=bar", q.String())

	q.Clear()
	q.Set("foo", "notbar")
	assert.Equal(t, "?foo=notbar", q.String())
	q.Set("foo", "bar")
	assert.Equal(t, "?foo=bar", q.String())

	q.Set("baz", "two words")
	assert.Equal(t, "?foo=bar&baz=two%20words", q.String())

	q.Set("FOO", "x")
	assert.Equal(t, "?FOO=x&baz=two%20words", q.String())
}

func TestSetEscapesReservedCharacters(t *testing.T) {
	var q Query
	q.Set("q", "a&b=c+d")
	assert.Equal(t, "?q=a%26b%3Dc%2Bd", q.String())

	got, ok := Lookup(q.Params(), "q")
	require.True(t, ok)
	assert.Equal(t, "a&b=c+d", got)
}

func TestClear(t *testing.T) {
	q := ParseQuery("?foo=bar")
	assert.Equal(t, "?foo=bar", q.String())
	q.Clear()
	assert.Equal(t, "", q.String())
}

func TestUnset(t *testing.T) {
	var q Query
	q.Set("foo", "bar")
	q.Unset("foo")
	assert.Equal(t, "", q.String())

	q.Set("foo", "bar")
	q.Set("baz", "bar")
	q.Unset("foo")
	assert.Equal(t, "?baz=bar", q.String())

	q = ParseQuery("?baz=bar&foo=1&qux=2")
	q.Unset("foo")
	assert.Equal(t, "?baz=bar&qux=2", q.String())

	q.Clear()
	q.Unset("foo")
	assert.Equal(t, "", q.String())
}

func TestUnsetDoesNotAffectCopies(t *testing.T) {
	orig := ParseQuery("a=1&b=2&c=3")
	cp := orig
	cp.Unset("a")
	assert.Equal(t, "?a=1&b=2&c=3", orig.String())
	assert.Equal(t, "?b=2&c=3", cp.String())
}

func TestSetDoesNotAffectCopies(t *testing.T) {
	orig := ParseQuery("a=1&page=2")
	cp := orig
	cp.Set("page", "3")
	other := orig
	other.Set("b", "x")
	assert.Equal(t, "?a=1&page=2", orig.String())
	assert.Equal(t, "?a=1&page=3", cp.String())
	assert.Equal(t, "?a=1&page=2&b=x", other.String())
}

func TestReadParams(t *testing.T) {
	assert.Equal(t, []Param{{Key: "foo", Value: "bar"}}, ReadParams("foo=bar"))
	assert.Equal(t, []Param{}, ReadParams(""))
	assert.Equal(t, []Param{}, ReadParams("?"))
	assert.Equal(t, []Param{
		{Key: "q", Value: "video lab"},
		{Key: "loc", Value: "Butler Library"},
		{Key: "flag", Value: ""},
	}, ReadParams("?q=video+lab&&loc=Butler%20Library&flag"))
}

func TestLookup(t *testing.T) {
	params := ReadParams("a=1&b=2&a=3")
	v, ok := Lookup(params, "a")
	assert.True(t, ok)
	assert.Equal(t, "1", v)

	_, ok = Lookup(params, "zzz")
	assert.False(t, ok)
}

func TestKeysMatchCaseInsensitively(t *testing.T) {
	q := ParseQuery("?Q=old&loc=x")
	v, ok := Lookup(q.Params(), KeyQuery)
	require.True(t, ok)
	assert.Equal(t, "old", v)
	assert.Equal(t, "old", CriteriaFromParams(q.Params(), time.UTC).Query)

	q.Set(KeyQuery, "new")
	assert.Equal(t, "?q=new&loc=x", q.String())
	assert.Equal(t, "new", CriteriaFromParams(q.Params(), time.UTC).Query)

	q.Unset("LOC")
	assert.Equal(t, "?q=new", q.String())
}

func TestFormatShortDate(t *testing.T) {
	assert.Equal(t, "2017-4-8", FormatShortDate(time.Date(2017, 4, 8, 13, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2017-12-25", FormatShortDate(time.Date(2017, 12, 25, 0, 0, 0, 0, time.UTC)))
}

func TestParseShortDate(t *testing.T) {
	got, ok := ParseShortDate("2017-4-18", time.UTC)
	require.True(t, ok)
	assert.Equal(t, time.Date(2017, 4, 18, 0, 0, 0, 0, time.UTC), got)

	got, ok = ParseShortDate("2017-04-08", time.UTC)
	require.True(t, ok)
	assert.Equal(t, time.Date(2017, 4, 8, 0, 0, 0, 0, time.UTC), got)

	got, ok = ParseShortDate("4/18/2017", time.UTC)
	require.True(t, ok)
	assert.Equal(t, time.Date(2017, 4, 18, 0, 0, 0, 0, time.UTC), got)

	_, ok = ParseShortDate("April 18", time.UTC)
	assert.False(t, ok)
}

func TestCriteriaFromParams(t *testing.T) {
	params := ReadParams("q=test&loc=Morningside&audience=Faculty&start=2017-4-18&end=2017-4-20&eventID=CAL-1&foo=bar")
	c := CriteriaFromParams(params, time.UTC)

	assert.Equal(t, filter.Criteria{
		Query:    "test",
		Location: "Morningside",
		Audience: "Faculty",
		Start:    time.Date(2017, 4, 18, 0, 0, 0, 0, time.UTC),
		End:      time.Date(2017, 4, 20, 0, 0, 0, 0, time.UTC),
		EventID:  "CAL-1",
	}, c)

	assert.True(t, CriteriaFromParams(ReadParams("foo=bar&start=garbage"), time.UTC).IsZero())
}

func TestEncodeOrderAndRoundTrip(t *testing.T) {
	c := filter.Criteria{
		Query:    "media lab",
		Location: "Butler Library",
		Audience: "Faculty",
		Start:    time.Date(2030, 3, 1, 0, 0, 0, 0, time.UTC),
		End:      time.Date(2030, 3, 9, 0, 0, 0, 0, time.UTC),
		EventID:  "CAL-9",
	}
	q := Encode(c)
	assert.Equal(t, "?q=media%20lab&start=2030-3-1&end=2030-3-9&loc=Butler%20Library&audience=Faculty&eventID=CAL-9", q.String())
	assert.Equal(t, c, CriteriaFromParams(ReadParams(q.String()), time.UTC))

	assert.Equal(t, "", Encode(filter.Criteria{}).String())
}
