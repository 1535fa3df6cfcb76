package feed

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"ctlcal/internal/location"
	appLog "ctlcal/internal/log"
	"ctlcal/internal/model"
)

// Bedework extension property keys.
const (
	XPropAlias             = "X-BEDEWORK-ALIAS"
	XPropRegistrationStart = "X-BEDEWORK-REGISTRATION-START"
	XPropUNIOnlyReg        = "X-BEDEWORK-UNI-ONLY-REG"
)

// casLoginPrefix is where UNI-only registration links send the user first.
const casLoginPrefix = "https://cas.columbia.edu/cas/login?service="

// datetimeLen is the length of a Bedework "YYYYMMDDTHHMMSS" value.
const datetimeLen = 15

// RawEvent is one element of bwEventList.events as delivered by Bedework.
// Every field is optional.
type RawEvent struct {
	GUID        string             `json:"guid"`
	Summary     string             `json:"summary"`
	EventLink   string             `json:"eventlink"`
	Status      string             `json:"status"`
	Description string             `json:"description"`
	Start       *rawDate           `json:"start"`
	End         *rawDate           `json:"end"`
	Location    *rawLocation       `json:"location"`
	Categories  []string           `json:"categories"`
	XProperties []map[string]xprop `json:"xproperties"`
}

type rawDate struct {
	Datetime string `json:"datetime"`
	LongDate string `json:"longdate"`
	Time     string `json:"time"`
}

type rawLocation struct {
	Address string `json:"address"`
}

// xprop is the value side of an xproperties entry. Only values.text is used.
type xprop struct {
	Values struct {
		Text string `json:"text"`
	} `json:"values"`
}

type document struct {
	List struct {
		Events []json.RawMessage `json:"events"`
	} `json:"bwEventList"`
}

// Decode parses a feed body into raw events. Records that fail to decode are
// logged and skipped; only an unreadable document is an error.
func Decode(body []byte) ([]RawEvent, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errors.New("empty feed body")
	}

	var doc document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("decode feed: %w", err)
	}

	events := make([]RawEvent, 0, len(doc.List.Events))
	for i, msg := range doc.List.Events {
		var ev RawEvent
		if err := json.Unmarshal(msg, &ev); err != nil {
			appLog.Error("feed record decode failed", err, "index", i)
			continue
		}
		events = append(events, ev)
	}

	appLog.Debug("feed decode completed", "record_count", len(doc.List.Events), "event_count", len(events))
	return events, nil
}

// ParseDatetime parses the fixed "YYYYMMDDTHHMMSS" form in loc. Anything that
// is not exactly 15 characters, or has non-numeric fields, reports false.
// Seconds are ignored.
func ParseDatetime(s string, loc *time.Location) (time.Time, bool) {
	if len(s) != datetimeLen {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.Local
	}

	fields := [...]string{s[0:4], s[4:6], s[6:8], s[9:11], s[11:13]}
	var n [len(fields)]int
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return time.Time{}, false
		}
		n[i] = v
	}

	return time.Date(n[0], time.Month(n[1]), n[2], n[3], n[4], 0, 0, loc), true
}

// RegistrationLink builds the university-login link for a UNI-only event:
// the first "http" becomes "https", the CAS app marker is appended and every
// "&" is escaped.
func RegistrationLink(eventURL string) string {
	link := casLoginPrefix + strings.Replace(eventURL, "http", "https", 1)
	link += "%26setappvar=cas(true)"
	return strings.ReplaceAll(link, "&", "%26")
}

// Normalize converts one raw record into an Event. It never fails; absent
// fields give zero values.
func Normalize(raw RawEvent, loc *time.Location) model.Event {
	e := model.Event{
		ID:          raw.GUID,
		Title:       raw.Summary,
		URL:         raw.EventLink,
		Status:      raw.Status,
		Description: raw.Description,
		Categories:  raw.Categories,
	}

	if raw.Start != nil {
		e.Start, _ = ParseDatetime(raw.Start.Datetime, loc)
	}
	if raw.End != nil {
		e.End, _ = ParseDatetime(raw.End.Datetime, loc)
	}
	if raw.Location != nil {
		e.LocationRaw = raw.Location.Address
		e.Venue, e.Room = location.Parse(raw.Location.Address)
	}

	for _, xp := range raw.XProperties {
		if alias, ok := xp[XPropAlias]; ok {
			parts := strings.Split(alias.Values.Text, "/")
			if len(parts) >= 2 {
				e.Properties.Add(parts[len(parts)-2], parts[len(parts)-1])
			}
		}
		if _, ok := xp[XPropRegistrationStart]; ok {
			e.RegistrationOpen = true
			if e.RegistrationURL == "" {
				e.RegistrationURL = e.URL
			}
		}
		if _, ok := xp[XPropUNIOnlyReg]; ok {
			e.RegistrationOpen = true
			e.UNIOnly = true
			e.RegistrationURL = RegistrationLink(e.URL)
		}
	}

	return e
}

// Load normalizes raws and keeps events starting at or after since, in feed
// order. Events without a start time are dropped.
func Load(raws []RawEvent, since time.Time, loc *time.Location) []model.Event {
	events := make([]model.Event, 0, len(raws))
	for _, raw := range raws {
		e := Normalize(raw, loc)
		if !e.HasStart() || e.Start.Before(since) {
			continue
		}
		events = append(events, e)
	}
	return events
}

// FilterCategories keeps records tagged with at least one of categories. An
// empty categories list keeps everything.
func FilterCategories(raws []RawEvent, categories []string) []RawEvent {
	if len(categories) == 0 {
		return raws
	}
	want := make(map[string]struct{}, len(categories))
	for _, c := range categories {
		want[c] = struct{}{}
	}

	out := make([]RawEvent, 0, len(raws))
	for _, raw := range raws {
		for _, c := range raw.Categories {
			if _, ok := want[c]; ok {
				out = append(out, raw)
				break
			}
		}
	}
	return out
}

// SortByDate orders events by start time, keeping feed order for ties.
func SortByDate(events []model.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Start.Before(events[j].Start)
	})
}
