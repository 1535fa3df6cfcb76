package urlstate

import "strings"

// Form holds the values the search form is pre-filled with on page load.
// Dates are shown the way the date picker writes them, "M/D/YYYY".
type Form struct {
	Query     string `json:"q"`
	Location  string `json:"loc"`
	Audience  string `json:"audience"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// Populate replays params into form values. Keys match case-insensitively
// and unknown keys are ignored.
func Populate(params []Param) Form {
	var f Form
	for _, p := range params {
		switch strings.ToLower(p.Key) {
		case KeyQuery:
			f.Query = p.Value
		case KeyLocation:
			f.Location = p.Value
		case KeyAudience:
			f.Audience = p.Value
		case KeyStart:
			f.StartDate = pickerDate(p.Value)
		case KeyEnd:
			f.EndDate = pickerDate(p.Value)
		}
	}
	return f
}

// pickerDate turns "YYYY-M-D" into "M/D/YYYY". Values with another shape
// are returned unchanged.
func pickerDate(v string) string {
	parts := strings.Split(v, "-")
	if len(parts) != 3 {
		return v
	}
	return parts[1] + "/" + parts[2] + "/" + parts[0]
}
