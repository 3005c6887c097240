package appointment

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

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var status string

	err := row.Scan(
		&a.ID,
		&a.OrderID,
		&a.PatientID,
		&a.ProviderID,
		&a.ProcedureType,
		&a.ScheduledStart,
		&a.ScheduledEnd,
		&status,
		&a.Location,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.Status = Status(status)
	return &a, nil
}

const appointmentColumns = `id, order_id, patient_id, provider_id, procedure_type, scheduled_start, scheduled_end, status, location, created_at, updated_at`

// AppointmentStore

func (r *PgRepository) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) CreateAppointment(ctx context.Context, a *Appointment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO appointments (id, order_id, patient_id, provider_id, procedure_type, scheduled_start, scheduled_end, status, location, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
	`, a.ID, a.OrderID, a.PatientID, a.ProviderID, a.ProcedureType, a.ScheduledStart, a.ScheduledEnd, string(a.Status), a.Location)
	return err
}

func (r *PgRepository) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, status Status) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
	`, id, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func (r *PgRepository) UpdateAppointmentSlot(ctx context.Context, id uuid.UUID, start, end time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE appointments
		SET scheduled_start = $2,
		    scheduled_end = $3,
		    updated_at = now()
		WHERE id = $1
	`, id, start, end)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func (r *PgRepository) ListActiveInWindow(ctx context.Context, providerID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE provider_id = $1
		  AND status IN ('scheduled', 'confirmed')
		  AND scheduled_start < $3
		  AND scheduled_end > $2
		ORDER BY scheduled_start
	`, providerID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAppointments(rows)
}

func (r *PgRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE patient_id = $1
		ORDER BY scheduled_start DESC
	`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAppointments(rows)
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	return result, rows.Err()
}

// OrderStore

func (r *PgRepository) GetOrder(ctx context.Context, id uuid.UUID) (*Order, error) {
	var o Order
	var status string
	err := r.pool.QueryRow(ctx, `
		SELECT id, patient_id, procedure_type, status, created_at
		FROM orders
		WHERE id = $1
	`, id).Scan(&o.ID, &o.PatientID, &o.ProcedureType, &status, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	o.Status = OrderStatus(status)
	return &o, nil
}

func (r *PgRepository) SetOrderStatus(ctx context.Context, id uuid.UUID, status OrderStatus) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE orders
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
	`, id, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// AlertStore

func (r *PgRepository) CreateAlert(ctx context.Context, a *CancellationAlert) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO cancellation_alerts (id, appointment_id, provider_id, procedure_type, slot_start, slot_end, status, notified_patient_id, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
	`, a.ID, a.AppointmentID, a.ProviderID, a.ProcedureType, a.SlotStart, a.SlotEnd, string(a.Status), a.NotifiedPatientID, a.ExpiresAt)
	return err
}

func (r *PgRepository) GetAlert(ctx context.Context, id uuid.UUID) (*CancellationAlert, error) {
	var a CancellationAlert
	var status string
	err := r.pool.QueryRow(ctx, `
		SELECT id, appointment_id, provider_id, procedure_type, slot_start, slot_end, status, notified_patient_id, claimed_by, expires_at, created_at
		FROM cancellation_alerts
		WHERE id = $1
	`, id).Scan(&a.ID, &a.AppointmentID, &a.ProviderID, &a.ProcedureType, &a.SlotStart, &a.SlotEnd, &status, &a.NotifiedPatientID, &a.ClaimedBy, &a.ExpiresAt, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAlertNotFound
		}
		return nil, err
	}
	a.Status = AlertStatus(status)
	return &a, nil
}

func (r *PgRepository) SetAlertNotifiedPatient(ctx context.Context, id, patientID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE cancellation_alerts
		SET notified_patient_id = $2
		WHERE id = $1
	`, id, patientID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAlertNotFound
	}
	return nil
}

func (r *PgRepository) ClaimAlert(ctx context.Context, id, patientID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE cancellation_alerts
		SET status = 'claimed',
		    claimed_by = $2
		WHERE id = $1 AND status = 'active'
	`, id, patientID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAlertClaimed
	}
	return nil
}

func (r *PgRepository) ExpireBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE cancellation_alerts
		SET status = 'expired'
		WHERE status = 'active' AND expires_at <= $1
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
