package schedule

import (
	"strings"
	"time"
)

// Availability is the overlap checker's verdict for one candidate slot.
type Availability struct {
	Available bool
	Reason    string
}

// CheckSlot decides whether the half-open window [slotStart, slotEnd) is
// free of the provider's blocked periods and booked appointments.
//
// Intervals are half-open, so windows that merely touch do not overlap:
// a slot ending exactly when a block starts is available, as is a slot
// starting exactly when a block ends. Blocked periods are checked before
// bookings and the first hit wins, so block reasons take reporting
// precedence over "Booked".
func CheckSlot(slotStart, slotEnd time.Time, blocks []BlockedPeriod, booked []BookedInterval) Availability {
	for _, b := range blocks {
		if slotStart.Before(b.EndAt) && b.StartAt.Before(slotEnd) {
			return Availability{Available: false, Reason: "Blocked (" + humanizeBlockType(b.BlockType) + ")"}
		}
	}

	for _, appt := range booked {
		if slotStart.Before(appt.End) && appt.Start.Before(slotEnd) {
			return Availability{Available: false, Reason: "Booked"}
		}
	}

	return Availability{Available: true}
}

// humanizeBlockType turns "personal" into "Personal" and a compound type
// like "family_emergency" into "Family Emergency".
func humanizeBlockType(t BlockType) string {
	words := strings.Split(string(t), "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
