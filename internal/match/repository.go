package match

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Candidate is a patient with an unscheduled order for the procedure type
// of a cancelled slot, carrying the fields the ranking needs.
type Candidate struct {
	OrderID        uuid.UUID
	PatientID      uuid.UUID
	PatientName    string
	ProcedureType  string
	KarmaScore     int
	MinHoursNotice float64
}

// MatchRecord is one ranked offer produced for a cancelled slot. Rank 1 is
// the primary candidate.
type MatchRecord struct {
	ID                     uuid.UUID
	CancelledAppointmentID uuid.UUID
	OrderID                uuid.UUID
	PatientID              uuid.UUID
	Rank                   int
	CreatedAt              time.Time
}

// DemandStore lists patients waiting on a given procedure type.
type DemandStore interface {
	ListUnscheduledByProcedure(ctx context.Context, procedureType string) ([]Candidate, error)
}

// MatchStore persists the ranked offers for a cancelled slot.
type MatchStore interface {
	RecordMatches(ctx context.Context, records []MatchRecord) error
}
