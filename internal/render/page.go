package render

import (
	"strconv"

	"ctlcal/internal/filter"
	"ctlcal/internal/model"
	"ctlcal/internal/urlstate"
)

// KeyPage is the query key of the 1-based page number. It is not a
// filter criterion.
const KeyPage = "page"

// AlertLoadFailed is shown when no events could be loaded at all.
const AlertLoadFailed = "Events could not be loaded"

// Page is one request's view of the listing.
type Page struct {
	// Query is the active text search, echoed in the "Results for" heading.
	Query  string
	Alerts []string
	// Events is the whole filtered view; only one page of it is rendered.
	Events  []model.Event
	PageNum int
	PerPage int

	// Canonical is the query string the criteria encode to; pager links
	// extend it with the page key.
	Canonical urlstate.Query
	Form      urlstate.Form
	Locations []filter.Choice
	Audiences []filter.Choice

	// Retry is set when the feed could not be loaded; the listing then
	// shows only the alert area and a retry link.
	Retry bool
}

type pagerLink struct {
	Number  int
	Href    string
	Current bool
}

type listingView struct {
	Page
	Cards []eventView
	Pages int
	Pager []pagerLink
}

func newListingView(p Page) listingView {
	if p.PerPage <= 0 {
		p.PerPage = len(p.Events)
	}
	if p.PageNum < 1 {
		p.PageNum = 1
	}
	v := listingView{Page: p, Pages: PageCount(len(p.Events), p.PerPage)}
	for _, e := range Paginate(p.Events, p.PageNum, p.PerPage) {
		v.Cards = append(v.Cards, newEventView(e))
	}
	if v.Pages > 1 {
		for n := 1; n <= v.Pages; n++ {
			q := p.Canonical
			q.Set(KeyPage, strconv.Itoa(n))
			v.Pager = append(v.Pager, pagerLink{Number: n, Href: q.String(), Current: n == p.PageNum})
		}
	}
	return v
}

const pageTemplates = `
{{define "alerts"}}<div id="search-results-alerts"{{if not .Alerts}} style="display: none"{{end}}>{{range .Alerts}}<div class="search-alert">{{.}}</div>{{end}}
{{- if .Retry}}<a class="search-retry" href="{{.Canonical.String}}">Try again</a>{{end}}</div>{{end}}

{{define "listing"}}{{template "alerts" .}}
<div id="search-results">{{with .Query}}<div class="arrow"></div><h2>Results for: "{{.}}"</h2>{{end}}</div>
<div id="calendarList"><div class="ctl-events">{{range .Cards}}{{template "event" .}}
{{end}}</div></div>
<div class="pagination-holder">{{if .Pager}}<ul class="ctl-theme">{{range .Pager}}<li{{if .Current}} class="active"{{end}}><a href="{{.Href}}">{{.Number}}</a></li>{{end}}</ul>{{end}}</div>{{end}}

{{define "form"}}<form class="search-container" role="search" method="get">
<div class="search-row" id="search-keyword"><input id="q" name="q" type="search" class="search-box" placeholder="Search for..." value="{{.Form.Query}}"><a class="close-icon" id="clear-search" href="?">Reset</a></div>
<div class="search-row" id="search-location"><div class="search-label">Location</div><select id="location-dropdown" name="loc">{{range .Locations}}<option value="{{.Value}}"{{if eq .Value $.Form.Location}} selected{{end}}>{{.Label}}</option>{{end}}</select></div>
<div class="search-row" id="search-audience"><div class="search-label">Audience</div><select id="audience-dropdown" name="audience">{{range .Audiences}}<option value="{{.Value}}"{{if eq .Value $.Form.Audience}} selected{{end}}>{{.Label}}</option>{{end}}</select></div>
<div class="search-row" id="search-from"><div class="search-label">From</div><input name="start" placeholder="Start Date" value="{{.Form.StartDate}}"></div>
<div class="search-row" id="search-to"><div class="search-label">To</div><input name="end" placeholder="End Date" value="{{.Form.EndDate}}"></div>
<button type="submit">Search</button>
</form>{{end}}

{{define "document"}}<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>CTL Events</title></head>
<body>
<div id="calendar-wrapper">
{{template "form" .}}
<div style="clear: both;"></div>
{{template "listing" .}}
</div>
</body>
</html>
{{end}}

{{define "homepage-list"}}<div class="ctl-events">{{range .}}{{template "homepage" .}}
{{end}}</div>{{end}}

{{define "upcoming-list"}}{{range $i, $e := .}}<div id="upcoming-{{inc $i}}">{{template "upcoming" $e}}</div>
{{end}}{{end}}
`

// Listing renders the alert area, the results heading, one page of cards
// and the pager.
func Listing(p Page) string {
	return execute("listing", newListingView(p))
}

// Document renders the full events page: search form plus listing.
func Document(p Page) string {
	return execute("document", newListingView(p))
}

// Paginate returns the events on a 1-based page. Out-of-range pages and a
// non-positive perPage give an empty slice.
func Paginate(events []model.Event, page, perPage int) []model.Event {
	if page < 1 || perPage <= 0 {
		return []model.Event{}
	}
	start := (page - 1) * perPage
	if start >= len(events) {
		return []model.Event{}
	}
	end := min(start+perPage, len(events))
	return events[start:end]
}

// PageCount is the number of pages total items fill.
func PageCount(total, perPage int) int {
	if total <= 0 || perPage <= 0 {
		return 0
	}
	return (total + perPage - 1) / perPage
}
