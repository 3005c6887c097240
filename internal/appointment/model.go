package appointment

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
	StatusNoShow    Status = "no_show"
)

// active reports whether the appointment still occupies its slot.
func (s Status) active() bool {
	return s == StatusScheduled || s == StatusConfirmed
}

type OrderStatus string

const (
	OrderUnscheduled OrderStatus = "unscheduled"
	OrderScheduled   OrderStatus = "scheduled"
	OrderCompleted   OrderStatus = "completed"
)

// Initiator identifies who triggered a cancellation. Provider-initiated
// cancellations never move patient karma.
type Initiator string

const (
	ByPatient  Initiator = "patient"
	ByProvider Initiator = "provider"
)

type Appointment struct {
	ID             uuid.UUID `json:"id"`
	OrderID        uuid.UUID `json:"order_id"`
	PatientID      uuid.UUID `json:"patient_id"`
	ProviderID     uuid.UUID `json:"provider_id"`
	ProcedureType  string    `json:"procedure_type"`
	ScheduledStart time.Time `json:"scheduled_start"`
	ScheduledEnd   time.Time `json:"scheduled_end"`
	Status         Status    `json:"status"`
	Location       string    `json:"location,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Order is a provider's referral for a procedure. An order stays
// unscheduled until an appointment is booked against it and returns to
// unscheduled whenever that appointment is cancelled.
type Order struct {
	ID            uuid.UUID   `json:"id"`
	PatientID     uuid.UUID   `json:"patient_id"`
	ProcedureType string      `json:"procedure_type"`
	Status        OrderStatus `json:"status"`
	CreatedAt     time.Time   `json:"created_at"`
}

type AlertStatus string

const (
	AlertActive  AlertStatus = "active"
	AlertClaimed AlertStatus = "claimed"
	AlertExpired AlertStatus = "expired"
)

// CancellationAlert marks a freed slot that waiting patients may claim
// until it expires. NotifiedPatientID is the top-ranked waitlist match,
// written back once matching for the slot has run.
type CancellationAlert struct {
	ID                uuid.UUID   `json:"id"`
	AppointmentID     uuid.UUID   `json:"appointment_id"`
	ProviderID        uuid.UUID   `json:"provider_id"`
	ProcedureType     string      `json:"procedure_type"`
	SlotStart         time.Time   `json:"slot_start"`
	SlotEnd           time.Time   `json:"slot_end"`
	Status            AlertStatus `json:"status"`
	NotifiedPatientID *uuid.UUID  `json:"notified_patient_id,omitempty"`
	ClaimedBy         *uuid.UUID  `json:"claimed_by,omitempty"`
	ExpiresAt         time.Time   `json:"expires_at"`
	CreatedAt         time.Time   `json:"created_at"`
}
