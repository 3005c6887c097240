package schedule

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrMissingProvider    = errors.New("provider id is required")
	ErrInvalidDateRange   = errors.New("end date is before start date")
	ErrInvalidDuration    = errors.New("appointment duration must be positive")
	ErrInvalidPreference  = errors.New("invalid time preference")
	ErrInvalidClockFormat = errors.New("invalid schedule clock time")
)

// slotInterval is the fixed start-time cadence. The requested appointment
// duration only widens the occupied window given to the overlap checker; it
// never changes slot spacing.
const slotInterval = 30 * time.Minute

const defaultDurationMinutes = 30

// GenerateParams describes one slot-generation request. Dates are civil
// dates; the inclusive range [StartDate, EndDate] is walked day by day.
type GenerateParams struct {
	ProviderID      uuid.UUID
	StartDate       time.Time
	EndDate         time.Time
	DurationMinutes int            // 0 means the 30-minute default
	Preference      TimePreference // empty means all
}

// Generator produces bookable time slots for a provider from their weekly
// schedule, blocked periods, and existing bookings. All stores are injected
// so the generator runs against any backend, including test fakes.
type Generator struct {
	schedules ScheduleStore
	blocks    BlockStore
	booked    BookedReader
	providers ProviderReader
	loc       *time.Location
}

func NewGenerator(schedules ScheduleStore, blocks BlockStore, booked BookedReader, providers ProviderReader, loc *time.Location) *Generator {
	return &Generator{
		schedules: schedules,
		blocks:    blocks,
		booked:    booked,
		providers: providers,
		loc:       loc,
	}
}

// GenerateAvailableSlots walks each day in the requested range, finds the
// matching weekly schedule entry, and emits slots on the fixed 30-minute
// cadence across the working window. Days the provider does not work simply
// contribute no slots. Every emitted slot carries an availability verdict
// from the overlap checker.
func (g *Generator) GenerateAvailableSlots(ctx context.Context, p GenerateParams) (*SlotsResult, error) {
	if p.ProviderID == uuid.Nil {
		return nil, ErrMissingProvider
	}
	if p.EndDate.Before(p.StartDate) {
		return nil, ErrInvalidDateRange
	}
	duration := p.DurationMinutes
	if duration == 0 {
		duration = defaultDurationMinutes
	}
	if duration < 0 {
		return nil, ErrInvalidDuration
	}
	pref := p.Preference
	if pref == "" {
		pref = PrefAll
	}
	if _, ok := ParseTimePreference(string(pref)); !ok {
		return nil, ErrInvalidPreference
	}

	entries, err := g.schedules.ListWeeklyEntries(ctx, p.ProviderID)
	if err != nil {
		return nil, fmt.Errorf("load weekly schedule: %w", err)
	}

	dayStart := civilDate(p.StartDate, g.loc)
	dayEnd := civilDate(p.EndDate, g.loc)
	rangeEnd := dayEnd.AddDate(0, 0, 1)

	blocks, err := g.blocks.ListBlocksInRange(ctx, p.ProviderID, dayStart, rangeEnd)
	if err != nil {
		return nil, fmt.Errorf("load blocked periods: %w", err)
	}

	booked, err := g.booked.ListBookedIntervals(ctx, p.ProviderID, dayStart, rangeEnd)
	if err != nil {
		return nil, fmt.Errorf("load booked intervals: %w", err)
	}

	result := &SlotsResult{
		Metadata: SlotsMetadata{
			DateRange: fmt.Sprintf("%s to %s", dayStart.Format("2006-01-02"), dayEnd.Format("2006-01-02")),
		},
	}

	// Provider display info is decoration; a missing row never fails slot
	// generation.
	if prov, err := g.providers.GetProvider(ctx, p.ProviderID); err == nil && prov != nil {
		result.Metadata.ProviderName = prov.Name
		if prov.Specialty != nil {
			result.Metadata.ProviderSpecialty = *prov.Specialty
		}
	}

	for day := dayStart; !day.After(dayEnd); day = day.AddDate(0, 0, 1) {
		entry := entryForWeekday(entries, day.Weekday())
		if entry == nil {
			continue
		}

		slots, err := g.slotsForDay(day, entry, blocks, booked, duration, pref)
		if err != nil {
			return nil, err
		}
		if len(slots) == 0 {
			continue
		}

		available := 0
		for _, s := range slots {
			if s.Available {
				available++
			}
		}

		result.Days = append(result.Days, DaySlots{
			Date:      day.Format("2006-01-02"),
			DayOfWeek: day.Weekday().String(),
			Slots:     slots,
		})
		result.Metadata.TotalSlotsFound += len(slots)
		result.Metadata.TotalSlotsAvailable += available
	}

	return result, nil
}

func (g *Generator) slotsForDay(day time.Time, entry *WeeklyEntry, blocks []BlockedPeriod, booked []BookedInterval, durationMinutes int, pref TimePreference) ([]TimeSlot, error) {
	startMin, err := parseClock(entry.StartTime)
	if err != nil {
		return nil, err
	}
	endMin, err := parseClock(entry.EndTime)
	if err != nil {
		return nil, err
	}

	occupied := time.Duration(durationMinutes) * time.Minute
	step := int(slotInterval / time.Minute)

	var slots []TimeSlot
	for cur := startMin; cur < endMin; cur += step {
		hour := cur / 60

		// Preference filtering skips generation outright rather than
		// emitting hidden slots.
		if !pref.MatchesHour(hour) {
			continue
		}

		slotStart := time.Date(day.Year(), day.Month(), day.Day(), hour, cur%60, 0, 0, g.loc)
		verdict := CheckSlot(slotStart, slotStart.Add(occupied), blocks, booked)

		slots = append(slots, TimeSlot{
			Time:      fmt.Sprintf("%02d:%02d", hour, cur%60),
			Datetime:  slotStart,
			Available: verdict.Available,
			Reason:    verdict.Reason,
			Location:  entry.Location,
			Staff:     entry.Staff,
		})
	}

	return slots, nil
}

func entryForWeekday(entries []WeeklyEntry, dow time.Weekday) *WeeklyEntry {
	for i := range entries {
		if entries[i].DayOfWeek == dow {
			return &entries[i]
		}
	}
	return nil
}

// parseClock parses "HH:MM" (or "HH:MM:SS" as stored) into minutes from
// midnight.
func parseClock(s string) (int, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClockFormat, s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClockFormat, s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClockFormat, s)
	}
	return h*60 + m, nil
}

// civilDate truncates t to midnight of its civil date in loc.
func civilDate(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}
