// Package location splits Bedework address strings into a venue and a
// trailing room number.
package location

import (
	"regexp"
	"strings"
)

var (
	// Campus zip codes; a trailing zip is never a room.
	zipSuffix = regexp.MustCompile(`\b(10027|10032)$`)
	// "Room", "room 212", "ROOM212" at the end of the string.
	roomSuffix     = regexp.MustCompile(`(?i)\broom\s*\d*$`)
	trailingDigits = regexp.MustCompile(`\d*$`)
)

// Parse returns the venue and room for a raw location string. room is empty
// when none is present.
func Parse(raw string) (venue, room string) {
	if raw == "" {
		return "", ""
	}

	switch {
	case zipSuffix.MatchString(raw):
		return raw, ""
	case roomSuffix.MatchString(raw):
		room = trailingDigits.FindString(raw)
		venue = strings.TrimSpace(roomSuffix.ReplaceAllString(raw, ""))
		return venue, room
	default:
		room = trailingDigits.FindString(raw)
		venue = strings.TrimSpace(strings.TrimSuffix(raw, room))
		return venue, room
	}
}
