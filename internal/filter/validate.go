package filter

import "time"

// DateRangeError reports a user-entered date range that cannot be honoured.
// Reason is shown to the user as-is.
type DateRangeError struct {
	Reason string
}

func (e *DateRangeError) Error() string {
	if e == nil || e.Reason == "" {
		return "An invalid date range was provided"
	}
	return e.Reason
}

// Validate checks a user-entered range against now. Start is compared as
// 00:00 and end as 23:59 of their days, so a range ending today is valid.
// Today is taken in the zone of the entered dates. The first failing check
// is reported.
func Validate(start, end, now time.Time) error {
	switch {
	case !start.IsZero():
		now = now.In(start.Location())
	case !end.IsZero():
		now = now.In(end.Location())
	}
	todayStart := startOfDay(now)
	todayEnd := endOfDay(now)

	if !start.IsZero() {
		start = startOfDay(start)
		if start.Before(todayStart) {
			return &DateRangeError{Reason: "The start date entered is prior to today"}
		}
	}
	if !end.IsZero() {
		end = endOfDay(end)
		if end.Before(todayEnd) {
			return &DateRangeError{Reason: "The end date entered is prior to today"}
		}
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return &DateRangeError{Reason: "The end date entered is prior to the start date"}
	}
	return nil
}
