// Package ics writes a filtered event view as an iCalendar document so it
// can be subscribed to or imported.
package ics

import (
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "ctlcal/internal/log"
	"ctlcal/internal/model"
	"ctlcal/internal/render"
)

// ProductID identifies the exporter in PRODID.
const ProductID = "-//CTL//ctlcal//EN"

// CalendarName is written to X-WR-CALNAME.
const CalendarName = "CTL Events"

// Export serializes events as a VCALENDAR. stamp is used for DTSTAMP.
// Events without a start time are skipped. Descriptions are reduced to
// plain text.
func Export(events []model.Event, stamp time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(ProductID)
	cal.SetXWRCalName(CalendarName)

	skipped := 0
	for _, e := range events {
		if !e.HasStart() || e.ID == "" {
			skipped++
			continue
		}

		ve := cal.AddEvent(e.ID)
		ve.SetDtStampTime(stamp)
		ve.SetStartAt(e.Start)
		if !e.End.IsZero() {
			ve.SetEndAt(e.End)
		}
		ve.SetSummary(e.Title)
		if desc := render.PlainText(e.Description); desc != "" {
			ve.SetDescription(desc)
		}
		if e.LocationRaw != "" {
			ve.SetLocation(e.LocationRaw)
		}
		if e.URL != "" {
			ve.SetProperty(ical.ComponentPropertyUrl, e.URL)
		}
		if e.Status != "" {
			ve.SetProperty(ical.ComponentPropertyStatus, e.Status)
		}
		if len(e.Categories) > 0 {
			ve.SetProperty(ical.ComponentPropertyCategories, strings.Join(e.Categories, ","))
		}
	}

	if skipped > 0 {
		appLog.Debug("ics export skipped events", "skipped", skipped, "exported", len(events)-skipped)
	}
	return cal.Serialize()
}
