package filter

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	now := time.Date(2030, time.March, 1, 15, 30, 0, 0, time.UTC)
	today := time.Date(2030, time.March, 1, 0, 0, 0, 0, time.UTC)
	yesterday := today.AddDate(0, 0, -1)
	tomorrow := today.AddDate(0, 0, 1)

	cases := []struct {
		name   string
		start  time.Time
		end    time.Time
		reason string
	}{
		{"no dates", time.Time{}, time.Time{}, ""},
		{"today to today", today, today, ""},
		{"start later today", now, time.Time{}, ""},
		{"future range", tomorrow, tomorrow.AddDate(0, 0, 5), ""},
		{"start in past", yesterday, time.Time{}, "The start date entered is prior to today"},
		{"end in past", time.Time{}, yesterday, "The end date entered is prior to today"},
		{"end before start", tomorrow.AddDate(0, 0, 3), tomorrow, "The end date entered is prior to the start date"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.start, tc.end, now)
			if tc.reason == "" {
				require.NoError(t, err)
				return
			}
			var dre *DateRangeError
			require.True(t, errors.As(err, &dre))
			assert.Equal(t, tc.reason, dre.Reason)
			assert.Equal(t, tc.reason, err.Error())
		})
	}
}

func TestDateRangeErrorDefaultMessage(t *testing.T) {
	assert.Equal(t, "An invalid date range was provided", (&DateRangeError{}).Error())
}

func TestValidateUsesZoneOfEnteredDates(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// 22:00 in New York is already the next day in UTC.
	now := time.Date(2030, time.March, 1, 22, 0, 0, 0, ny).UTC()
	today := time.Date(2030, time.March, 1, 0, 0, 0, 0, ny)

	require.NoError(t, Validate(today, time.Time{}, now))
	require.NoError(t, Validate(time.Time{}, today, now))
	require.NoError(t, Validate(today, today, now))

	err = Validate(today.AddDate(0, 0, -1), time.Time{}, now)
	var dre *DateRangeError
	require.True(t, errors.As(err, &dre))
	assert.Equal(t, "The start date entered is prior to today", dre.Reason)
}
