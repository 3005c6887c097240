package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanEntry(row pgx.Row) (*WeeklyEntry, error) {
	var e WeeklyEntry
	var dow int

	err := row.Scan(
		&e.ID,
		&e.ProviderID,
		&dow,
		&e.StartTime,
		&e.EndTime,
		&e.Location,
		&e.Staff,
		&e.SlotMinutes,
		&e.MaxSlots,
		&e.Active,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEntryNotFound
		}
		return nil, err
	}

	e.DayOfWeek = time.Weekday(dow)
	return &e, nil
}

func scanBlock(row pgx.Row) (*BlockedPeriod, error) {
	var b BlockedPeriod
	var blockType string

	err := row.Scan(
		&b.ID,
		&b.ProviderID,
		&b.StartAt,
		&b.EndAt,
		&blockType,
		&b.Reason,
		&b.Active,
		&b.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBlockNotFound
		}
		return nil, err
	}

	b.BlockType = BlockType(blockType)
	return &b, nil
}

// ScheduleStore

func (r *PgRepository) ListWeeklyEntries(ctx context.Context, providerID uuid.UUID) ([]WeeklyEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, provider_id, day_of_week, start_time, end_time, location, staff_assigned, slot_minutes, max_slots, is_active, created_at, updated_at
		FROM provider_schedules
		WHERE provider_id = $1 AND is_active = true
		ORDER BY day_of_week, start_time
	`, providerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []WeeklyEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *e)
	}

	return result, rows.Err()
}

func (r *PgRepository) CreateEntry(ctx context.Context, e *WeeklyEntry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO provider_schedules (id, provider_id, day_of_week, start_time, end_time, location, staff_assigned, slot_minutes, max_slots, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, true, now(), now())
	`, e.ID, e.ProviderID, int(e.DayOfWeek), e.StartTime, e.EndTime, e.Location, e.Staff, e.SlotMinutes, e.MaxSlots)
	return err
}

func (r *PgRepository) DeactivateEntry(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE provider_schedules
		SET is_active = false,
		    updated_at = now()
		WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}

// BlockStore

func (r *PgRepository) ListBlocksInRange(ctx context.Context, providerID uuid.UUID, from, to time.Time) ([]BlockedPeriod, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, provider_id, start_datetime, end_datetime, block_type, reason, is_active, created_at
		FROM provider_time_blocks
		WHERE provider_id = $1
		  AND is_active = true
		  AND end_datetime >= $2
		  AND start_datetime <= $3
		ORDER BY start_datetime
	`, providerID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectBlocks(rows)
}

func (r *PgRepository) ListBlocks(ctx context.Context, providerID uuid.UUID) ([]BlockedPeriod, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, provider_id, start_datetime, end_datetime, block_type, reason, is_active, created_at
		FROM provider_time_blocks
		WHERE provider_id = $1 AND is_active = true
		ORDER BY start_datetime
	`, providerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectBlocks(rows)
}

func collectBlocks(rows pgx.Rows) ([]BlockedPeriod, error) {
	var result []BlockedPeriod
	for rows.Next() {
		b, err := scanBlock(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *b)
	}
	return result, rows.Err()
}

func (r *PgRepository) CreateBlock(ctx context.Context, b *BlockedPeriod) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO provider_time_blocks (id, provider_id, start_datetime, end_datetime, block_type, reason, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, true, now())
	`, b.ID, b.ProviderID, b.StartAt, b.EndAt, string(b.BlockType), b.Reason)
	return err
}

func (r *PgRepository) DeactivateBlock(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE provider_time_blocks
		SET is_active = false
		WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrBlockNotFound
	}
	return nil
}

// BookedReader

func (r *PgRepository) ListBookedIntervals(ctx context.Context, providerID uuid.UUID, from, to time.Time) ([]BookedInterval, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT scheduled_start, scheduled_end
		FROM appointments
		WHERE provider_id = $1
		  AND status IN ('scheduled', 'confirmed')
		  AND scheduled_start >= $2
		  AND scheduled_start <= $3
	`, providerID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []BookedInterval
	for rows.Next() {
		var iv BookedInterval
		if err := rows.Scan(&iv.Start, &iv.End); err != nil {
			return nil, err
		}
		result = append(result, iv)
	}

	return result, rows.Err()
}

// ProviderReader

func (r *PgRepository) GetProvider(ctx context.Context, id uuid.UUID) (*Provider, error) {
	var p Provider
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, specialty
		FROM providers
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.Specialty)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProviderNotFound
		}
		return nil, err
	}
	return &p, nil
}
