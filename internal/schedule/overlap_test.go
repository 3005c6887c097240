package schedule

import (
	"testing"
	"time"
)

func mkTime(hour, min int) time.Time {
	return time.Date(2025, time.November, 18, hour, min, 0, 0, time.UTC)
}

func TestCheckSlotBookedOverlap(t *testing.T) {
	booked := []BookedInterval{{Start: mkTime(9, 0), End: mkTime(9, 30)}}

	cases := []struct {
		name       string
		start, end time.Time
		available  bool
	}{
		{"exact match", mkTime(9, 0), mkTime(9, 30), false},
		{"slot contains booking", mkTime(8, 30), mkTime(10, 0), false},
		{"booking contains slot", mkTime(9, 10), mkTime(9, 20), false},
		{"partial overlap front", mkTime(8, 45), mkTime(9, 15), false},
		{"partial overlap back", mkTime(9, 15), mkTime(9, 45), false},
		{"touching before", mkTime(8, 30), mkTime(9, 0), true},
		{"touching after", mkTime(9, 30), mkTime(10, 0), true},
		{"well before", mkTime(7, 0), mkTime(7, 30), true},
		{"well after", mkTime(11, 0), mkTime(11, 30), true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := CheckSlot(tc.start, tc.end, nil, booked)
			if got.Available != tc.available {
				t.Errorf("CheckSlot(%s, %s) available = %v, want %v",
					tc.start.Format("15:04"), tc.end.Format("15:04"), got.Available, tc.available)
			}
			if !tc.available && got.Reason != "Booked" {
				t.Errorf("reason = %q, want %q", got.Reason, "Booked")
			}
			if tc.available && got.Reason != "" {
				t.Errorf("available slot carries reason %q", got.Reason)
			}
		})
	}
}

func TestCheckSlotBlockReason(t *testing.T) {
	blocks := []BlockedPeriod{{StartAt: mkTime(10, 0), EndAt: mkTime(12, 0), BlockType: BlockVacation}}

	got := CheckSlot(mkTime(10, 30), mkTime(11, 0), blocks, nil)
	if got.Available {
		t.Fatal("slot inside vacation block reported available")
	}
	if got.Reason != "Blocked (Vacation)" {
		t.Errorf("reason = %q, want %q", got.Reason, "Blocked (Vacation)")
	}
}

func TestCheckSlotBlockBeatsBooking(t *testing.T) {
	blocks := []BlockedPeriod{{StartAt: mkTime(9, 0), EndAt: mkTime(10, 0), BlockType: BlockSick}}
	booked := []BookedInterval{{Start: mkTime(9, 0), End: mkTime(9, 30)}}

	got := CheckSlot(mkTime(9, 0), mkTime(9, 30), blocks, booked)
	if got.Reason != "Blocked (Sick)" {
		t.Errorf("reason = %q, want block reason to win over booking", got.Reason)
	}
}

func TestCheckSlotTouchingBlockBoundaries(t *testing.T) {
	blocks := []BlockedPeriod{{StartAt: mkTime(10, 0), EndAt: mkTime(12, 0), BlockType: BlockPersonal}}

	if got := CheckSlot(mkTime(9, 30), mkTime(10, 0), blocks, nil); !got.Available {
		t.Errorf("slot ending at block start should be available, got reason %q", got.Reason)
	}
	if got := CheckSlot(mkTime(12, 0), mkTime(12, 30), blocks, nil); !got.Available {
		t.Errorf("slot starting at block end should be available, got reason %q", got.Reason)
	}
}

func TestHumanizeBlockType(t *testing.T) {
	cases := map[BlockType]string{
		BlockVacation:      "Vacation",
		BlockSick:          "Sick",
		"family_emergency": "Family Emergency",
	}
	for in, want := range cases {
		if got := humanizeBlockType(in); got != want {
			t.Errorf("humanizeBlockType(%q) = %q, want %q", in, got, want)
		}
	}
}
