package match

// DefaultMinHoursNotice applies when a patient has not set their own
// minimum notice preference.
const DefaultMinHoursNotice = 2

// FilterByNotice keeps candidates who can make it to a slot that is
// hoursAvailable away, honoring each patient's minimum-notice preference.
// Order is preserved; the input slice is not modified.
func FilterByNotice(candidates []Candidate, hoursAvailable float64) []Candidate {
	var kept []Candidate
	for _, c := range candidates {
		min := c.MinHoursNotice
		if min <= 0 {
			min = DefaultMinHoursNotice
		}
		if hoursAvailable >= min {
			kept = append(kept, c)
		}
	}
	return kept
}
