package karma

import (
	"context"
	"errors"

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

func (r *PgRepository) GetScore(ctx context.Context, patientID uuid.UUID) (int, error) {
	var score int
	err := r.pool.QueryRow(ctx, `
		SELECT karma_score
		FROM patients
		WHERE id = $1
	`, patientID).Scan(&score)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrPatientNotFound
		}
		return 0, err
	}
	return score, nil
}

// Adjust moves the patient's score and appends a history row in one
// transaction. Clamping to [0, 100] happens in SQL so concurrent writers
// can never push the stored score out of bounds.
func (r *PgRepository) Adjust(ctx context.Context, patientID uuid.UUID, adj Adjustment, action Action) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	var balance int
	err = tx.QueryRow(ctx, `
		UPDATE patients
		SET karma_score = GREATEST($2, LEAST($3, karma_score + $4)),
		    updated_at = now()
		WHERE id = $1
		RETURNING karma_score
	`, patientID, MinScore, MaxScore, adj.Points).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrPatientNotFound
		}
		return 0, err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO karma_history (id, patient_id, points, reason, action, balance_after, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
	`, uuid.New(), patientID, adj.Points, adj.Reason, string(action), balance)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return balance, nil
}

func (r *PgRepository) ListHistory(ctx context.Context, patientID uuid.UUID, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, patient_id, points, reason, action, balance_after, created_at
		FROM karma_history
		WHERE patient_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, patientID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []HistoryEntry
	for rows.Next() {
		var h HistoryEntry
		var action string
		if err := rows.Scan(&h.ID, &h.PatientID, &h.Points, &h.Reason, &action, &h.BalanceAfter, &h.CreatedAt); err != nil {
			return nil, err
		}
		h.Action = Action(action)
		result = append(result, h)
	}

	return result, rows.Err()
}
