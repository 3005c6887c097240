package match

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func (r *PgRepository) ListUnscheduledByProcedure(ctx context.Context, procedureType string) ([]Candidate, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT o.id, o.patient_id, p.name, o.procedure_type, p.karma_score, COALESCE(p.min_hours_notice, $2)
		FROM orders o
		JOIN patients p ON p.id = o.patient_id
		WHERE o.status = 'unscheduled'
		  AND o.procedure_type = $1
		ORDER BY o.created_at
	`, procedureType, DefaultMinHoursNotice)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Candidate
	for rows.Next() {
		var c Candidate
		if err := rows.Scan(&c.OrderID, &c.PatientID, &c.PatientName, &c.ProcedureType, &c.KarmaScore, &c.MinHoursNotice); err != nil {
			return nil, err
		}
		result = append(result, c)
	}

	return result, rows.Err()
}

func (r *PgRepository) RecordMatches(ctx context.Context, records []MatchRecord) error {
	if len(records) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, rec := range records {
		batch.Queue(`
			INSERT INTO slot_match_offers (id, cancelled_appointment_id, order_id, patient_id, rank, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, rec.ID, rec.CancelledAppointmentID, rec.OrderID, rec.PatientID, rec.Rank, rec.CreatedAt)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range records {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}
	return nil
}
