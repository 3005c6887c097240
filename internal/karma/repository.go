package karma

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrPatientNotFound = errors.New("patient not found")

// HistoryEntry is one recorded karma adjustment.
type HistoryEntry struct {
	ID           uuid.UUID
	PatientID    uuid.UUID
	Points       int
	Reason       string
	Action       Action
	BalanceAfter int
	CreatedAt    time.Time
}

// Store reads and adjusts patient karma scores. Implementations clamp the
// stored score to [MinScore, MaxScore] on every write; the returned balance
// is the clamped value.
type Store interface {
	GetScore(ctx context.Context, patientID uuid.UUID) (int, error)
	// Adjust applies the adjustment atomically, records a history entry,
	// and returns the new clamped balance.
	Adjust(ctx context.Context, patientID uuid.UUID, adj Adjustment, action Action) (int, error)
	ListHistory(ctx context.Context, patientID uuid.UUID, limit int) ([]HistoryEntry, error)
}
