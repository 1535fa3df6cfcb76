// Package urlstate mirrors filter criteria into a page query string so a
// filtered view can be bookmarked and shared.
package urlstate

import (
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"ctlcal/internal/filter"
)

// Query-string keys.
const (
	KeyQuery    = "q"
	KeyLocation = "loc"
	KeyAudience = "audience"
	KeyStart    = "start"
	KeyEnd      = "end"
	KeyEventID  = "eventID"
)

// Param is one decoded key/value pair, in query-string order.
type Param struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Query is the search part of a page URL as an ordered list of raw
// "key=value" segments. The zero value is an empty query.
type Query struct {
	segments []string
}

// ParseQuery wraps an existing search string, with or without the "?".
func ParseQuery(search string) Query {
	search = strings.TrimPrefix(search, "?")
	var q Query
	for _, seg := range strings.Split(search, "&") {
		if seg != "" {
			q.segments = append(q.segments, seg)
		}
	}
	return q
}

func segmentKey(seg string) string {
	key, _, _ := strings.Cut(seg, "=")
	return key
}

// Set replaces the first pair whose key matches (case-insensitively), or
// appends a new pair. Copies of q are not affected.
func (q *Query) Set(key, value string) {
	seg := key + "=" + escape(value)
	for i, s := range q.segments {
		if strings.EqualFold(segmentKey(s), key) {
			q.segments = slices.Clone(q.segments)
			q.segments[i] = seg
			return
		}
	}
	q.segments = append(slices.Clip(q.segments), seg)
}

// Unset removes every pair with key; it is a no-op when key is absent.
func (q *Query) Unset(key string) {
	kept := make([]string, 0, len(q.segments))
	for _, s := range q.segments {
		if !strings.EqualFold(segmentKey(s), key) {
			kept = append(kept, s)
		}
	}
	q.segments = kept
}

// Clear removes all pairs.
func (q *Query) Clear() {
	q.segments = nil
}

// String returns "" for an empty query, otherwise "?k=v&...".
func (q Query) String() string {
	if len(q.segments) == 0 {
		return ""
	}
	return "?" + strings.Join(q.segments, "&")
}

// Params decodes the query into ordered pairs.
func (q Query) Params() []Param {
	return ReadParams(strings.Join(q.segments, "&"))
}

// escape percent-encodes value with spaces as %20. Unlike encodeURI it also
// escapes "&", "=" and "+" so a value can never split a pair.
func escape(value string) string {
	return strings.ReplaceAll(url.QueryEscape(value), "+", "%20")
}

// unescape decodes a key or value. "+" reads as a space, as HTML forms
// submit it; escape never produces a bare "+".
func unescape(s string) string {
	if v, err := url.QueryUnescape(s); err == nil {
		return v
	}
	return s
}

// ReadParams splits a query string into decoded pairs. A leading "?" is
// ignored, as are empty segments; a segment without "=" has an empty value.
func ReadParams(queryString string) []Param {
	queryString = strings.TrimPrefix(queryString, "?")
	if queryString == "" {
		return []Param{}
	}

	params := make([]Param, 0, strings.Count(queryString, "&")+1)
	for _, seg := range strings.Split(queryString, "&") {
		if seg == "" {
			continue
		}
		key, value, _ := strings.Cut(seg, "=")
		params = append(params, Param{Key: unescape(key), Value: unescape(value)})
	}
	return params
}

// Lookup returns the value of the first pair whose key matches
// (case-insensitively), the same rule Set and Unset use.
func Lookup(params []Param, key string) (string, bool) {
	for _, p := range params {
		if strings.EqualFold(p.Key, key) {
			return p.Value, true
		}
	}
	return "", false
}

// FormatShortDate writes t as "YYYY-M-D" without zero padding.
func FormatShortDate(t time.Time) string {
	return strconv.Itoa(t.Year()) + "-" + strconv.Itoa(int(t.Month())) + "-" + strconv.Itoa(t.Day())
}

// dateLayouts are the accepted date shapes: the query-string form and the
// date picker's "M/D/YYYY".
var dateLayouts = []string{"2006-1-2", "1/2/2006"}

// ParseShortDate reads "YYYY-M-D" or "M/D/YYYY" (zero padding allowed) as
// midnight in loc.
func ParseShortDate(s string, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.Local
	}
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// CriteriaFromParams resolves the supported keys into criteria. Dates that
// do not parse are treated as absent.
func CriteriaFromParams(params []Param, loc *time.Location) filter.Criteria {
	var c filter.Criteria
	c.Query, _ = Lookup(params, KeyQuery)
	c.Location, _ = Lookup(params, KeyLocation)
	c.Audience, _ = Lookup(params, KeyAudience)
	c.EventID, _ = Lookup(params, KeyEventID)
	if v, ok := Lookup(params, KeyStart); ok {
		c.Start, _ = ParseShortDate(v, loc)
	}
	if v, ok := Lookup(params, KeyEnd); ok {
		c.End, _ = ParseShortDate(v, loc)
	}
	return c
}

// Encode writes the active criteria into a fresh query in the order q,
// start, end, loc, audience, eventID.
func Encode(c filter.Criteria) Query {
	var q Query
	if c.Query != "" {
		q.Set(KeyQuery, c.Query)
	}
	if !c.Start.IsZero() {
		q.Set(KeyStart, FormatShortDate(c.Start))
	}
	if !c.End.IsZero() {
		q.Set(KeyEnd, FormatShortDate(c.End))
	}
	if c.Location != "" {
		q.Set(KeyLocation, c.Location)
	}
	if c.Audience != "" {
		q.Set(KeyAudience, c.Audience)
	}
	if c.EventID != "" {
		q.Set(KeyEventID, c.EventID)
	}
	return q
}
