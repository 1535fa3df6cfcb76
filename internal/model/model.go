// Package model holds the normalized event record and its tag properties.
package model

import (
	"strings"
	"time"
)

// DefaultCampus is reported by CampusLocation when an event carries no
// "Location" property.
const DefaultCampus = "Columbia University"

const (
	PropertyLocation = "Location"
	PropertyAudience = "Events open to"

	StatusConfirmed = "CONFIRMED"
	StatusCancelled = "CANCELLED"
)

// Property is one named tag on an event with its accumulated values, in the
// order they were seen in the feed.
type Property struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// Properties is an ordered list of properties, unique by name.
type Properties []Property

// Add records value under name. Names containing "Category" are dropped;
// the Bedework term "Group-Specific" is stored as "Category".
func (p *Properties) Add(name, value string) {
	if strings.Contains(name, "Category") {
		return
	}
	name = strings.Replace(name, "Group-Specific", "Category", 1)

	for i := range *p {
		if (*p)[i].Name == name {
			(*p)[i].Values = append((*p)[i].Values, value)
			return
		}
	}
	*p = append(*p, Property{Name: name, Values: []string{value}})
}

// Get returns the values stored under name, or nil if name was never added.
func (p Properties) Get(name string) []string {
	for _, prop := range p {
		if prop.Name == name {
			return prop.Values
		}
	}
	return nil
}

// Event is one normalized calendar entry. It is built once per feed record
// and not changed afterwards.
type Event struct {
	ID    string `json:"id"`
	Title string `json:"title"`

	// Start / End are zero when the feed omits them.
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`

	// LocationRaw is the feed address; Venue and Room are split from it.
	LocationRaw string `json:"location_raw"`
	Venue       string `json:"venue"`
	Room        string `json:"room"`

	URL         string `json:"url"`
	Status      string `json:"status"`
	Description string `json:"description"`

	RegistrationOpen bool   `json:"registration_open"`
	RegistrationURL  string `json:"registration_url,omitempty"`
	// UNIOnly marks registration that goes through the university login.
	UNIOnly bool `json:"uni_only,omitempty"`

	Categories []string   `json:"categories,omitempty"`
	Properties Properties `json:"properties"`
}

// HasStart reports whether the feed supplied a start time.
func (e Event) HasStart() bool { return !e.Start.IsZero() }

// Cancelled reports whether the feed marked the event as cancelled.
func (e Event) Cancelled() bool { return e.Status == StatusCancelled }

// CampusLocation returns the first "Location" property value.
func (e Event) CampusLocation() string {
	if v := e.Properties.Get(PropertyLocation); len(v) > 0 {
		return v[0]
	}
	return DefaultCampus
}

// Audience returns the "Events open to" values, nil when the event has none.
func (e Event) Audience() []string {
	return e.Properties.Get(PropertyAudience)
}
