package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrOrderNotFound       = errors.New("order not found")
	ErrAlertNotFound       = errors.New("cancellation alert not found")
	ErrSlotTaken           = errors.New("slot already booked")
	ErrSlotBlocked         = errors.New("slot falls in a blocked period")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrAlertExpired        = errors.New("cancellation alert has expired")
	ErrAlertClaimed        = errors.New("cancellation alert already claimed")
	ErrOrderNotOpen        = errors.New("order is not open for scheduling")
)

// AppointmentStore persists appointments.
type AppointmentStore interface {
	GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error)
	CreateAppointment(ctx context.Context, a *Appointment) error
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, status Status) error
	// UpdateAppointmentSlot moves an active appointment to a new window.
	UpdateAppointmentSlot(ctx context.Context, id uuid.UUID, start, end time.Time) error
	// ListActiveInWindow returns scheduled and confirmed appointments
	// overlapping the half-open window [from, to).
	ListActiveInWindow(ctx context.Context, providerID uuid.UUID, from, to time.Time) ([]Appointment, error)
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]Appointment, error)
}

// OrderStore persists procedure orders.
type OrderStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (*Order, error)
	SetOrderStatus(ctx context.Context, id uuid.UUID, status OrderStatus) error
}

// AlertStore persists cancellation alerts.
type AlertStore interface {
	CreateAlert(ctx context.Context, a *CancellationAlert) error
	GetAlert(ctx context.Context, id uuid.UUID) (*CancellationAlert, error)
	// SetAlertNotifiedPatient records the primary waitlist match on the
	// alert after matching has run for its slot.
	SetAlertNotifiedPatient(ctx context.Context, id, patientID uuid.UUID) error
	// ClaimAlert flips an active alert to claimed for the given patient.
	ClaimAlert(ctx context.Context, id, patientID uuid.UUID) error
	// ExpireBefore expires every active alert whose deadline has passed
	// and reports how many rows it touched.
	ExpireBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
