// Package render turns events into the HTML fragments of the calendar
// pages. All feed text is escaped by html/template; descriptions are
// reduced to plain text first.
package render

import (
	"html/template"
	"strings"

	appLog "ctlcal/internal/log"
	"ctlcal/internal/model"
)

// Date and time layouts used on event cards.
const (
	LongDateLayout = "Monday, January 2, 2006"
	TimeLayout     = "03:04 PM"
)

// Registration button labels.
const (
	LabelRegisterUNI      = "Register With UNI"
	LabelRegisterCUEvents = "Register on CU Events"
)

type audienceItem struct {
	Value string
	Sep   string
}

// eventView is the template data for one card.
type eventView struct {
	ID        string
	Title     string
	URL       string
	Status    string
	Cancelled bool

	LongDate  string
	StartTime string
	EndTime   string

	Lede  string
	More  string
	Blurb string

	Room  string
	Venue string

	RegistrationURL   string
	RegistrationLabel string

	Audience []audienceItem
}

func newEventView(e model.Event) eventView {
	v := eventView{
		ID:        e.ID,
		Title:     e.Title,
		URL:       e.URL,
		Status:    e.Status,
		Cancelled: e.Cancelled(),
		Room:      e.Room,
		Venue:     e.Venue,
	}
	if e.HasStart() {
		v.LongDate = e.Start.Format(LongDateLayout)
		v.StartTime = e.Start.Format(TimeLayout)
	}
	if !e.End.IsZero() {
		v.EndTime = e.End.Format(TimeLayout)
	}

	text := PlainText(e.Description)
	v.Lede, v.More = Lede(text)

	if e.RegistrationOpen && e.Status == model.StatusConfirmed && e.RegistrationURL != "" {
		v.RegistrationURL = e.RegistrationURL
		v.RegistrationLabel = LabelRegisterCUEvents
		if e.UNIOnly {
			v.RegistrationLabel = LabelRegisterUNI
		}
	}

	aud := e.Audience()
	for i, a := range aud {
		item := audienceItem{Value: a}
		if i < len(aud)-1 {
			item.Sep = ","
		}
		v.Audience = append(v.Audience, item)
	}
	return v
}

const cardTemplates = `
{{define "heading"}}<h3>{{if .Cancelled}}<span class="cancelled">{{.Status}}: {{end}}<a href="{{.URL}}">{{.Title}}</a>{{if .Cancelled}}</span>{{end}}</h3><h4>{{.LongDate}} {{.StartTime}} &ndash; {{.EndTime}}</h4>{{end}}

{{define "event"}}<div class="event" data-event-id="{{.ID}}"><div class="event_specifics">{{template "heading" .}}</div>
<div class="event_description"><p>{{.Lede}}{{if .More}}<span class="more_info_trigger"> More&hellip;</span>{{end}}</p>{{if .More}}<p class="more_info_container">{{.More}}</p>{{end}}</div>
<div class="location">{{if .Room}}Room {{.Room}}, {{end}}{{.Venue}}</div>
{{- if .RegistrationURL}}
<div class="event_registration"><a target="_blank" href="{{.RegistrationURL}}"><button>{{.RegistrationLabel}}</button></a></div>
{{- end}}
<div class="event_properties">{{if .Audience}}<span class="ctl-property-name">Audience: </span>{{range .Audience}}<span class="ctl-property-value">{{.Value}}{{.Sep}}</span> {{end}}<br>{{end}}</div>
</div>{{end}}

{{define "homepage"}}<div class="event" data-event-id="{{.ID}}"><div class="event_specifics">{{template "heading" .}}</div></div>{{end}}

{{define "upcoming"}}<a href="{{.URL}}" target="_blank" rel="noopener noreferrer">
{{- if .Cancelled}}<div class="event_specifics"><h4><span class="cancelled">{{.Status}}: </span></h4></div>{{end -}}
<p><strong>{{.Title}}</strong></p><p>{{.Blurb}}</p></a>{{end}}
`

var templates = template.Must(template.New("render").Funcs(template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}).Parse(cardTemplates + pageTemplates))

func execute(name string, data any) string {
	var b strings.Builder
	if err := templates.ExecuteTemplate(&b, name, data); err != nil {
		appLog.Error("render: template failed", err, "template", name)
		return ""
	}
	return b.String()
}

// Event renders the full listing card.
func Event(e model.Event) string {
	return execute("event", newEventView(e))
}

// HomepageEvent renders the compact card with title and date line only.
func HomepageEvent(e model.Event) string {
	return execute("homepage", newEventView(e))
}

// Upcoming renders the teaser used by the upcoming widget.
func Upcoming(e model.Event) string {
	v := newEventView(e)
	v.Blurb = Blurb(e.Description, BlurbLength)
	return execute("upcoming", v)
}

// Homepage renders the first n events as compact cards.
func Homepage(events []model.Event, n int) string {
	return execute("homepage-list", firstViews(events, n, false))
}

// UpcomingList renders the first n events as upcoming teasers.
func UpcomingList(events []model.Event, n int) string {
	return execute("upcoming-list", firstViews(events, n, true))
}

func firstViews(events []model.Event, n int, blurb bool) []eventView {
	if n < 0 || n > len(events) {
		n = len(events)
	}
	views := make([]eventView, 0, n)
	for _, e := range events[:n] {
		v := newEventView(e)
		if blurb {
			v.Blurb = Blurb(e.Description, BlurbLength)
		}
		views = append(views, v)
	}
	return views
}
