package filter

// Choice is one option in a location or audience dropdown. The leading
// "All" option has an empty Value, which leaves the criterion absent.
type Choice struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Choices turns values into dropdown choices behind an "All" option,
// keeping the first occurrence of each distinct non-empty value.
func Choices(values []string) []Choice {
	opts := []Choice{{Label: "All", Value: ""}}
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		opts = append(opts, Choice{Label: v, Value: v})
	}
	return opts
}
