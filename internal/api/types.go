package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/littlelanterns/medharmony-command-center-sub000/internal/appointment"
)

type BookRequest struct {
	OrderID         string `json:"order_id"`
	ProviderID      string `json:"provider_id"`
	Start           string `json:"start"` // RFC 3339
	DurationMinutes int    `json:"duration_minutes,omitempty"`
	Location        string `json:"location,omitempty"`
}

type CancelRequest struct {
	InitiatedBy string `json:"initiated_by,omitempty"` // patient (default) or provider
	Reason      string `json:"reason,omitempty"`
}

type RescheduleRequest struct {
	NewStart        string `json:"new_start"` // RFC 3339
	DurationMinutes int    `json:"duration_minutes,omitempty"`
}

type ClaimRequest struct {
	OrderID   string `json:"order_id"`
	PatientID string `json:"patient_id"`
}

type CreateScheduleEntryRequest struct {
	DayOfWeek   int      `json:"day_of_week"` // 0 = Sunday
	StartTime   string   `json:"start_time"`  // "08:00"
	EndTime     string   `json:"end_time"`
	Location    string   `json:"location,omitempty"`
	Staff       []string `json:"staff_assigned,omitempty"`
	SlotMinutes int      `json:"slot_minutes,omitempty"`
	MaxSlots    int      `json:"max_slots,omitempty"`
}

type BlockTimeRequest struct {
	Start     string  `json:"start"` // RFC 3339
	End       string  `json:"end"`
	BlockType string  `json:"block_type"`
	Reason    *string `json:"reason,omitempty"`
}

type AppointmentResponse struct {
	Appointment *appointment.Appointment `json:"appointment"`
	// FailedEffects names best-effort follow-ups that did not land.
	FailedEffects []string `json:"failed_effects,omitempty"`
}

type CancelResponse struct {
	Appointment   *appointment.Appointment `json:"appointment"`
	MatchedOrders []MatchedOrder           `json:"matched_orders,omitempty"`
	FailedEffects []string                 `json:"failed_effects,omitempty"`
}

type MatchedOrder struct {
	OrderID   uuid.UUID `json:"order_id"`
	PatientID uuid.UUID `json:"patient_id"`
	Rank      int       `json:"rank"`
}

type BlockTimeResponse struct {
	BlockID       uuid.UUID                 `json:"block_id"`
	Cancelled     []appointment.Appointment `json:"cancelled_appointments,omitempty"`
	FailedEffects []string                  `json:"failed_effects,omitempty"`
}

type KarmaScoreResponse struct {
	PatientID uuid.UUID `json:"patient_id"`
	Score     int       `json:"score"`
}

type KarmaHistoryEntry struct {
	Points       int       `json:"points"`
	Reason       string    `json:"reason"`
	Action       string    `json:"action"`
	BalanceAfter int       `json:"balance_after"`
	CreatedAt    time.Time `json:"created_at"`
}
