package schedule

import (
	"time"

	"github.com/google/uuid"
)

type BlockType string

const (
	BlockVacation   BlockType = "vacation"
	BlockSick       BlockType = "sick"
	BlockEmergency  BlockType = "emergency"
	BlockConference BlockType = "conference"
	BlockPersonal   BlockType = "personal"
	BlockOther      BlockType = "other"
)

// ValidBlockTypes is the set of accepted provider block types.
var ValidBlockTypes = map[BlockType]bool{
	BlockVacation:   true,
	BlockSick:       true,
	BlockEmergency:  true,
	BlockConference: true,
	BlockPersonal:   true,
	BlockOther:      true,
}

// WeeklyEntry is one recurring working window in a provider's week.
// Entries are soft-deactivated, never deleted, so history stays intact.
type WeeklyEntry struct {
	ID          uuid.UUID
	ProviderID  uuid.UUID
	DayOfWeek   time.Weekday
	StartTime   string // "08:00"
	EndTime     string // "17:00"
	Location    string
	Staff       []string
	SlotMinutes int
	MaxSlots    int
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// BlockedPeriod is a provider-declared unavailability window that overrides
// the weekly schedule. Invariant: StartAt < EndAt.
type BlockedPeriod struct {
	ID         uuid.UUID
	ProviderID uuid.UUID
	StartAt    time.Time
	EndAt      time.Time
	BlockType  BlockType
	Reason     *string
	Active     bool
	CreatedAt  time.Time
}

// BookedInterval is the occupied window of one non-cancelled appointment.
type BookedInterval struct {
	Start time.Time
	End   time.Time
}

// Provider carries the display fields attached to slot results.
type Provider struct {
	ID        uuid.UUID
	Name      string
	Specialty *string
}

// TimeSlot is a single generated candidate slot. Derived, never persisted.
type TimeSlot struct {
	Time      string    `json:"time"` // 24h "HH:MM" clinic clock
	Datetime  time.Time `json:"datetime"`
	Available bool      `json:"available"`
	Reason    string    `json:"reason,omitempty"`
	Location  string    `json:"location,omitempty"`
	Staff     []string  `json:"staff_assigned,omitempty"`
}

// DaySlots groups one day's slots.
type DaySlots struct {
	Date      string     `json:"date"` // "2025-11-18"
	DayOfWeek string     `json:"day_of_week"`
	Slots     []TimeSlot `json:"slots"`
}

// SlotsMetadata is the aggregate summary returned with slot results.
type SlotsMetadata struct {
	TotalSlotsFound     int    `json:"total_slots_found"`
	TotalSlotsAvailable int    `json:"total_slots_available"`
	DateRange           string `json:"date_range"`
	ProviderName        string `json:"provider_name,omitempty"`
	ProviderSpecialty   string `json:"provider_specialty,omitempty"`
}

// SlotsResult is the full slot generator output.
type SlotsResult struct {
	Days     []DaySlots    `json:"available_slots"`
	Metadata SlotsMetadata `json:"metadata"`
}

type TimePreference string

const (
	PrefMorning   TimePreference = "morning"   // starting hour in [7, 12)
	PrefAfternoon TimePreference = "afternoon" // starting hour in [12, 17)
	PrefEvening   TimePreference = "evening"   // starting hour in [17, 20)
	PrefAll       TimePreference = "all"
)

// MatchesHour reports whether a slot starting at the given clinic-clock hour
// falls inside the preference window.
func (p TimePreference) MatchesHour(hour int) bool {
	switch p {
	case PrefMorning:
		return hour >= 7 && hour < 12
	case PrefAfternoon:
		return hour >= 12 && hour < 17
	case PrefEvening:
		return hour >= 17 && hour < 20
	default:
		return true
	}
}

// ParseTimePreference validates a preference string; empty means "all".
func ParseTimePreference(s string) (TimePreference, bool) {
	switch TimePreference(s) {
	case PrefMorning, PrefAfternoon, PrefEvening, PrefAll:
		return TimePreference(s), true
	case "":
		return PrefAll, true
	default:
		return "", false
	}
}
