package appointment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/littlelanterns/medharmony-command-center-sub000/internal/karma"
	"github.com/littlelanterns/medharmony-command-center-sub000/internal/match"
	"github.com/littlelanterns/medharmony-command-center-sub000/internal/notify"
	redisclient "github.com/littlelanterns/medharmony-command-center-sub000/internal/redis"
	"github.com/littlelanterns/medharmony-command-center-sub000/internal/schedule"
)

const defaultDurationMinutes = 30

// SlotMatcher finds waiting patients for a freed slot.
type SlotMatcher interface {
	MatchCancellation(ctx context.Context, p match.MatchParams) ([]match.MatchRecord, error)
}

// Service runs the appointment lifecycle: booking, cancellation,
// rescheduling, confirmation, and claiming freed slots. The primary write
// of each operation commits first; karma, alerts, matching, and
// notifications run afterwards as named best-effort steps collected in an
// EffectReport.
type Service struct {
	appts     AppointmentStore
	orders    OrderStore
	alerts    AlertStore
	blocks    schedule.BlockStore
	providers schedule.ProviderReader
	karma     karma.Store
	matcher   SlotMatcher
	notifier  notify.Dispatcher
	locker    redisclient.Locker
	alertTTL  time.Duration
	duration  time.Duration
	log       zerolog.Logger
	now       func() time.Time
}

type ServiceDeps struct {
	Appointments AppointmentStore
	Orders       OrderStore
	Alerts       AlertStore
	Blocks       schedule.BlockStore
	Providers    schedule.ProviderReader
	Karma        karma.Store
	Matcher      SlotMatcher
	Notifier     notify.Dispatcher
	Locker       redisclient.Locker
	AlertTTL     time.Duration
	// DefaultDurationMinutes fills in bookings that omit a duration.
	DefaultDurationMinutes int
	Log                    zerolog.Logger
}

func NewService(d ServiceDeps) *Service {
	ttl := d.AlertTTL
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	duration := time.Duration(d.DefaultDurationMinutes) * time.Minute
	if duration <= 0 {
		duration = defaultDurationMinutes * time.Minute
	}
	return &Service{
		appts:     d.Appointments,
		orders:    d.Orders,
		alerts:    d.Alerts,
		blocks:    d.Blocks,
		providers: d.Providers,
		karma:     d.Karma,
		matcher:   d.Matcher,
		notifier:  d.Notifier,
		locker:    d.Locker,
		alertTTL:  ttl,
		duration:  duration,
		log:       d.Log,
		now:       time.Now,
	}
}

type BookParams struct {
	OrderID         uuid.UUID
	ProviderID      uuid.UUID
	Start           time.Time
	DurationMinutes int
	Location        string
}

type BookResult struct {
	Appointment *Appointment  `json:"appointment"`
	Effects     *EffectReport `json:"-"`
}

// Book schedules an open order into a provider slot. The conflict check
// and insert run under a per provider-slot lock, so two racing bookings of
// the same slot serialize and the loser sees the winner's appointment.
func (s *Service) Book(ctx context.Context, p BookParams) (*BookResult, error) {
	order, err := s.orders.GetOrder(ctx, p.OrderID)
	if err != nil {
		return nil, err
	}
	if order.Status != OrderUnscheduled {
		return nil, fmt.Errorf("%w: order is %s", ErrOrderNotOpen, order.Status)
	}

	length := time.Duration(p.DurationMinutes) * time.Minute
	if length <= 0 {
		length = s.duration
	}
	end := p.Start.Add(length)

	appt := &Appointment{
		ID:             uuid.New(),
		OrderID:        order.ID,
		PatientID:      order.PatientID,
		ProviderID:     p.ProviderID,
		ProcedureType:  order.ProcedureType,
		ScheduledStart: p.Start,
		ScheduledEnd:   end,
		Status:         StatusScheduled,
		Location:       p.Location,
	}

	err = s.locker.WithSlotLock(ctx, p.ProviderID, p.Start, func(ctx context.Context) error {
		if err := s.checkSlotFree(ctx, p.ProviderID, p.Start, end, uuid.Nil); err != nil {
			return err
		}
		if err := s.appts.CreateAppointment(ctx, appt); err != nil {
			return err
		}
		return s.orders.SetOrderStatus(ctx, order.ID, OrderScheduled)
	})
	if err != nil {
		return nil, err
	}

	effects := newEffectReport(s.log.With().Str("op", "book").Str("appointment_id", appt.ID.String()).Logger())
	effects.Run("karma", func() error {
		_, err := s.karma.Adjust(ctx, appt.PatientID, karma.Delta(karma.ActionBook, 0), karma.ActionBook)
		return err
	})
	effects.Run("notify", func() error {
		return s.dispatch(ctx, appt.PatientID, "Appointment booked",
			fmt.Sprintf("Your %s is set for %s.", appt.ProcedureType, appt.ScheduledStart.Format("Mon Jan 2 at 3:04 PM")),
			notify.PriorityNormal, "")
	})

	return &BookResult{Appointment: appt, Effects: effects}, nil
}

type CancelParams struct {
	AppointmentID uuid.UUID
	InitiatedBy   Initiator
	Reason        string
}

type CancelResult struct {
	Appointment *Appointment
	Matches     []match.MatchRecord
	Effects     *EffectReport
}

// Cancel frees an appointment's slot. The status flip and the order
// returning to unscheduled are the primary writes; karma, the cancellation
// alert, slot matching, and notifications follow best effort, so a
// downstream failure never resurrects the appointment.
func (s *Service) Cancel(ctx context.Context, p CancelParams) (*CancelResult, error) {
	return s.cancel(ctx, p, true)
}

// cancel is the shared cancellation pipeline. offerSlot controls whether
// the freed slot goes to the waitlist; block-time cascades pass false
// because a slot inside a block can never be claimed.
func (s *Service) cancel(ctx context.Context, p CancelParams, offerSlot bool) (*CancelResult, error) {
	appt, err := s.appts.GetAppointment(ctx, p.AppointmentID)
	if err != nil {
		return nil, err
	}
	if !appt.Status.active() {
		return nil, fmt.Errorf("%w: appointment is %s", ErrInvalidTransition, appt.Status)
	}

	if err := s.appts.UpdateAppointmentStatus(ctx, appt.ID, StatusCancelled); err != nil {
		return nil, err
	}
	if err := s.orders.SetOrderStatus(ctx, appt.OrderID, OrderUnscheduled); err != nil {
		return nil, err
	}
	appt.Status = StatusCancelled

	now := s.now()
	result := &CancelResult{Appointment: appt}
	effects := newEffectReport(s.log.With().Str("op", "cancel").Str("appointment_id", appt.ID.String()).Logger())

	effects.Run("karma", func() error {
		action := karma.ActionCancel
		if p.InitiatedBy == ByProvider {
			action = karma.ActionProviderCancel
		}
		hoursNotice := appt.ScheduledStart.Sub(now).Hours()
		_, err := s.karma.Adjust(ctx, appt.PatientID, karma.Delta(action, hoursNotice), action)
		return err
	})

	if offerSlot && appt.ScheduledStart.After(now) {
		alert := &CancellationAlert{
			ID:            uuid.New(),
			AppointmentID: appt.ID,
			ProviderID:    appt.ProviderID,
			ProcedureType: appt.ProcedureType,
			SlotStart:     appt.ScheduledStart,
			SlotEnd:       appt.ScheduledEnd,
			Status:        AlertActive,
			ExpiresAt:     now.Add(s.alertTTL),
		}
		effects.Run("alert", func() error {
			return s.alerts.CreateAlert(ctx, alert)
		})
		effects.Run("match", func() error {
			records, err := s.matcher.MatchCancellation(ctx, match.MatchParams{
				CancelledAppointmentID: appt.ID,
				ProviderID:             appt.ProviderID,
				ProviderName:           s.providerName(ctx, appt.ProviderID),
				ProcedureType:          appt.ProcedureType,
				SlotStart:              appt.ScheduledStart,
				Now:                    now,
			})
			if err != nil {
				return err
			}
			result.Matches = records
			return nil
		})
		if len(result.Matches) > 0 {
			primary := result.Matches[0].PatientID
			effects.Run("primary", func() error {
				return s.alerts.SetAlertNotifiedPatient(ctx, alert.ID, primary)
			})
		}
	}

	effects.Run("notify", func() error {
		return s.dispatch(ctx, appt.PatientID, "Appointment cancelled",
			fmt.Sprintf("Your %s on %s was cancelled.", appt.ProcedureType, appt.ScheduledStart.Format("Mon Jan 2 at 3:04 PM")),
			notify.PriorityNormal, "")
	})

	result.Effects = effects
	return result, nil
}

type RescheduleParams struct {
	AppointmentID   uuid.UUID
	NewStart        time.Time
	DurationMinutes int
}

type RescheduleResult struct {
	Appointment *Appointment
	Effects     *EffectReport
}

// Reschedule moves an active appointment to a new slot. Karma follows the
// same notice tiers as a cancellation, measured against the old slot. No
// cancellation alert or matching runs: the patient still holds a slot, so
// there is nothing freed to offer.
func (s *Service) Reschedule(ctx context.Context, p RescheduleParams) (*RescheduleResult, error) {
	appt, err := s.appts.GetAppointment(ctx, p.AppointmentID)
	if err != nil {
		return nil, err
	}
	if !appt.Status.active() {
		return nil, fmt.Errorf("%w: appointment is %s", ErrInvalidTransition, appt.Status)
	}

	duration := p.DurationMinutes
	if duration <= 0 {
		duration = int(appt.ScheduledEnd.Sub(appt.ScheduledStart) / time.Minute)
	}
	newEnd := p.NewStart.Add(time.Duration(duration) * time.Minute)
	oldStart := appt.ScheduledStart

	err = s.locker.WithSlotLock(ctx, appt.ProviderID, p.NewStart, func(ctx context.Context) error {
		if err := s.checkSlotFree(ctx, appt.ProviderID, p.NewStart, newEnd, appt.ID); err != nil {
			return err
		}
		return s.appts.UpdateAppointmentSlot(ctx, appt.ID, p.NewStart, newEnd)
	})
	if err != nil {
		return nil, err
	}
	appt.ScheduledStart = p.NewStart
	appt.ScheduledEnd = newEnd

	now := s.now()
	effects := newEffectReport(s.log.With().Str("op", "reschedule").Str("appointment_id", appt.ID.String()).Logger())
	effects.Run("karma", func() error {
		hoursNotice := oldStart.Sub(now).Hours()
		_, err := s.karma.Adjust(ctx, appt.PatientID, karma.Delta(karma.ActionReschedule, hoursNotice), karma.ActionReschedule)
		return err
	})
	effects.Run("notify", func() error {
		return s.dispatch(ctx, appt.PatientID, "Appointment rescheduled",
			fmt.Sprintf("Your %s moved to %s.", appt.ProcedureType, appt.ScheduledStart.Format("Mon Jan 2 at 3:04 PM")),
			notify.PriorityNormal, "")
	})

	return &RescheduleResult{Appointment: appt, Effects: effects}, nil
}

// Confirm marks a scheduled appointment as confirmed and rewards the
// patient for checking in.
func (s *Service) Confirm(ctx context.Context, appointmentID uuid.UUID) (*Appointment, *EffectReport, error) {
	appt, err := s.appts.GetAppointment(ctx, appointmentID)
	if err != nil {
		return nil, nil, err
	}
	if appt.Status != StatusScheduled {
		return nil, nil, fmt.Errorf("%w: appointment is %s", ErrInvalidTransition, appt.Status)
	}

	if err := s.appts.UpdateAppointmentStatus(ctx, appt.ID, StatusConfirmed); err != nil {
		return nil, nil, err
	}
	appt.Status = StatusConfirmed

	effects := newEffectReport(s.log.With().Str("op", "confirm").Str("appointment_id", appt.ID.String()).Logger())
	effects.Run("karma", func() error {
		_, err := s.karma.Adjust(ctx, appt.PatientID, karma.Delta(karma.ActionConfirm, 0), karma.ActionConfirm)
		return err
	})

	return appt, effects, nil
}

type ClaimParams struct {
	AlertID   uuid.UUID
	OrderID   uuid.UUID
	PatientID uuid.UUID
}

type ClaimResult struct {
	Appointment *Appointment
	Effects     *EffectReport
}

// Claim lets a waiting patient take a freed slot before its alert expires.
// The slot lock serializes racing claimers; only the first one through
// books the slot and flips the alert to claimed.
func (s *Service) Claim(ctx context.Context, p ClaimParams) (*ClaimResult, error) {
	alert, err := s.alerts.GetAlert(ctx, p.AlertID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	switch {
	case alert.Status == AlertClaimed:
		return nil, ErrAlertClaimed
	case alert.Status == AlertExpired || !alert.ExpiresAt.After(now):
		return nil, ErrAlertExpired
	}

	cancelled, err := s.appts.GetAppointment(ctx, alert.AppointmentID)
	if err != nil {
		return nil, err
	}
	if cancelled.Status != StatusCancelled {
		return nil, fmt.Errorf("%w: source appointment is %s", ErrInvalidTransition, cancelled.Status)
	}

	order, err := s.orders.GetOrder(ctx, p.OrderID)
	if err != nil {
		return nil, err
	}
	if order.PatientID != p.PatientID {
		return nil, fmt.Errorf("%w: order belongs to another patient", ErrOrderNotOpen)
	}
	if order.Status != OrderUnscheduled {
		return nil, fmt.Errorf("%w: order is %s", ErrOrderNotOpen, order.Status)
	}

	appt := &Appointment{
		ID:             uuid.New(),
		OrderID:        order.ID,
		PatientID:      order.PatientID,
		ProviderID:     alert.ProviderID,
		ProcedureType:  order.ProcedureType,
		ScheduledStart: alert.SlotStart,
		ScheduledEnd:   alert.SlotEnd,
		Status:         StatusScheduled,
		Location:       cancelled.Location,
	}

	err = s.locker.WithSlotLock(ctx, alert.ProviderID, alert.SlotStart, func(ctx context.Context) error {
		if err := s.checkSlotFree(ctx, alert.ProviderID, alert.SlotStart, alert.SlotEnd, uuid.Nil); err != nil {
			return err
		}
		if err := s.alerts.ClaimAlert(ctx, alert.ID, p.PatientID); err != nil {
			return err
		}
		if err := s.appts.CreateAppointment(ctx, appt); err != nil {
			return err
		}
		return s.orders.SetOrderStatus(ctx, order.ID, OrderScheduled)
	})
	if err != nil {
		return nil, err
	}

	effects := newEffectReport(s.log.With().Str("op", "claim").Str("appointment_id", appt.ID.String()).Logger())
	effects.Run("karma", func() error {
		_, err := s.karma.Adjust(ctx, appt.PatientID, karma.Delta(karma.ActionClaim, 0), karma.ActionClaim)
		return err
	})
	effects.Run("notify", func() error {
		return s.dispatch(ctx, appt.PatientID, "Slot claimed",
			fmt.Sprintf("You got the %s slot on %s.", appt.ProcedureType, appt.ScheduledStart.Format("Mon Jan 2 at 3:04 PM")),
			notify.PriorityHigh, "")
	})

	return &ClaimResult{Appointment: appt, Effects: effects}, nil
}

type BlockTimeParams struct {
	ProviderID uuid.UUID
	Start      time.Time
	End        time.Time
	BlockType  schedule.BlockType
	Reason     *string
}

type BlockTimeResult struct {
	Block     *schedule.BlockedPeriod
	Cancelled []Appointment
	Effects   *EffectReport
}

// BlockTime records a provider unavailability window and cascades over any
// appointments caught inside it: each one is cancelled provider-initiated,
// so the patients keep their karma and get told what happened. No alerts
// or waitlist matching run for the cascade; the slots now sit inside the
// block and cannot be claimed.
func (s *Service) BlockTime(ctx context.Context, p BlockTimeParams) (*BlockTimeResult, error) {
	if !schedule.ValidBlockTypes[p.BlockType] {
		return nil, fmt.Errorf("invalid block type %q", p.BlockType)
	}
	if !p.Start.Before(p.End) {
		return nil, fmt.Errorf("block start must be before end")
	}

	block := &schedule.BlockedPeriod{
		ID:         uuid.New(),
		ProviderID: p.ProviderID,
		StartAt:    p.Start,
		EndAt:      p.End,
		BlockType:  p.BlockType,
		Reason:     p.Reason,
		Active:     true,
	}
	if err := s.blocks.CreateBlock(ctx, block); err != nil {
		return nil, err
	}

	caught, err := s.appts.ListActiveInWindow(ctx, p.ProviderID, p.Start, p.End)
	if err != nil {
		return nil, fmt.Errorf("list appointments in block window: %w", err)
	}

	result := &BlockTimeResult{Block: block}
	effects := newEffectReport(s.log.With().Str("op", "block_time").Str("block_id", block.ID.String()).Logger())

	for _, appt := range caught {
		appt := appt
		effects.Run("cancel:"+appt.ID.String(), func() error {
			res, err := s.cancel(ctx, CancelParams{
				AppointmentID: appt.ID,
				InitiatedBy:   ByProvider,
				Reason:        "provider blocked this time",
			}, false)
			if err != nil {
				return err
			}
			result.Cancelled = append(result.Cancelled, *res.Appointment)
			return nil
		})
	}

	result.Effects = effects
	return result, nil
}

func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.appts.GetAppointment(ctx, id)
}

func (s *Service) ListPatientAppointments(ctx context.Context, patientID uuid.UUID) ([]Appointment, error) {
	return s.appts.ListByPatient(ctx, patientID)
}

// ExpireAlerts flips every overdue active alert to expired. Run
// periodically by the alert-expiry worker.
func (s *Service) ExpireAlerts(ctx context.Context) (int64, error) {
	return s.alerts.ExpireBefore(ctx, s.now())
}

// checkSlotFree runs the block-then-booking conflict check for the
// half-open window [start, end). A rescheduled appointment passes its own
// id as excludeID so it does not conflict with itself.
func (s *Service) checkSlotFree(ctx context.Context, providerID uuid.UUID, start, end time.Time, excludeID uuid.UUID) error {
	blocks, err := s.blocks.ListBlocksInRange(ctx, providerID, start, end)
	if err != nil {
		return err
	}
	intervals := make([]schedule.BookedInterval, 0)
	appts, err := s.appts.ListActiveInWindow(ctx, providerID, start, end)
	if err != nil {
		return err
	}
	for _, a := range appts {
		if a.ID == excludeID {
			continue
		}
		intervals = append(intervals, schedule.BookedInterval{Start: a.ScheduledStart, End: a.ScheduledEnd})
	}

	verdict := schedule.CheckSlot(start, end, blocks, intervals)
	if verdict.Available {
		return nil
	}
	if len(verdict.Reason) >= 7 && verdict.Reason[:7] == "Blocked" {
		return fmt.Errorf("%w: %s", ErrSlotBlocked, verdict.Reason)
	}
	return ErrSlotTaken
}

func (s *Service) providerName(ctx context.Context, providerID uuid.UUID) string {
	p, err := s.providers.GetProvider(ctx, providerID)
	if err != nil || p == nil {
		return ""
	}
	return p.Name
}

func (s *Service) dispatch(ctx context.Context, userID uuid.UUID, title, message string, priority notify.Priority, actionURL string) error {
	if s.notifier == nil {
		return nil
	}
	return s.notifier.Dispatch(ctx, &notify.Notification{
		UserID:    userID,
		Title:     title,
		Message:   message,
		Priority:  priority,
		ActionURL: actionURL,
	})
}
