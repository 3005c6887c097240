package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrProviderNotFound = errors.New("provider not found")
	ErrBlockNotFound    = errors.New("blocked period not found")
	ErrEntryNotFound    = errors.New("schedule entry not found")
)

// ScheduleStore reads and writes a provider's recurring weekly schedule.
type ScheduleStore interface {
	ListWeeklyEntries(ctx context.Context, providerID uuid.UUID) ([]WeeklyEntry, error)
	CreateEntry(ctx context.Context, e *WeeklyEntry) error
	// DeactivateEntry soft-deletes an entry; rows are never removed.
	DeactivateEntry(ctx context.Context, id uuid.UUID) error
}

// BlockStore reads and writes provider blocked periods.
type BlockStore interface {
	ListBlocksInRange(ctx context.Context, providerID uuid.UUID, from, to time.Time) ([]BlockedPeriod, error)
	ListBlocks(ctx context.Context, providerID uuid.UUID) ([]BlockedPeriod, error)
	CreateBlock(ctx context.Context, b *BlockedPeriod) error
	DeactivateBlock(ctx context.Context, id uuid.UUID) error
}

// BookedReader exposes the occupied windows of non-cancelled appointments.
type BookedReader interface {
	ListBookedIntervals(ctx context.Context, providerID uuid.UUID, from, to time.Time) ([]BookedInterval, error)
}

// ProviderReader resolves provider display info for slot metadata.
type ProviderReader interface {
	GetProvider(ctx context.Context, id uuid.UUID) (*Provider, error)
}
