package match

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/littlelanterns/medharmony-command-center-sub000/internal/notify"
)

// DefaultMatchLimit caps how many candidates are offered a freed slot.
const DefaultMatchLimit = 5

// Matcher finds waiting patients for a slot freed by a cancellation and
// ranks them by karma. Notification delivery is best effort: a dispatch
// failure is logged and never fails the match.
type Matcher struct {
	demand     DemandStore
	matches    MatchStore
	dispatcher notify.Dispatcher
	limit      int
	log        zerolog.Logger
}

func NewMatcher(demand DemandStore, matches MatchStore, dispatcher notify.Dispatcher, limit int, log zerolog.Logger) *Matcher {
	if limit <= 0 {
		limit = DefaultMatchLimit
	}
	return &Matcher{
		demand:     demand,
		matches:    matches,
		dispatcher: dispatcher,
		limit:      limit,
		log:        log,
	}
}

// MatchParams describes the freed slot being offered.
type MatchParams struct {
	CancelledAppointmentID uuid.UUID
	ProviderID             uuid.UUID
	ProviderName           string
	ProcedureType          string
	SlotStart              time.Time
	Now                    time.Time
}

// MatchCancellation ranks waiting patients for the freed slot and records
// the top offers. Candidates are sorted by karma, highest first, with the
// original demand order breaking ties, then filtered by each patient's
// minimum-notice preference. An empty result is a normal outcome, not an
// error.
func (m *Matcher) MatchCancellation(ctx context.Context, p MatchParams) ([]MatchRecord, error) {
	candidates, err := m.demand.ListUnscheduledByProcedure(ctx, p.ProcedureType)
	if err != nil {
		return nil, fmt.Errorf("list unscheduled demand: %w", err)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	ranked := make([]Candidate, len(candidates))
	copy(ranked, candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].KarmaScore > ranked[j].KarmaScore
	})

	hoursAvailable := p.SlotStart.Sub(p.Now).Hours()
	eligible := FilterByNotice(ranked, hoursAvailable)
	if len(eligible) > m.limit {
		eligible = eligible[:m.limit]
	}
	if len(eligible) == 0 {
		return nil, nil
	}

	now := p.Now
	records := make([]MatchRecord, 0, len(eligible))
	for i, c := range eligible {
		records = append(records, MatchRecord{
			ID:                     uuid.New(),
			CancelledAppointmentID: p.CancelledAppointmentID,
			OrderID:                c.OrderID,
			PatientID:              c.PatientID,
			Rank:                   i + 1,
			CreatedAt:              now,
		})
	}

	if err := m.matches.RecordMatches(ctx, records); err != nil {
		return nil, fmt.Errorf("record matches: %w", err)
	}

	m.notifyCandidates(ctx, p, eligible)
	return records, nil
}

func (m *Matcher) notifyCandidates(ctx context.Context, p MatchParams, eligible []Candidate) {
	if m.dispatcher == nil {
		return
	}
	slot := p.SlotStart.Format("Mon Jan 2 at 3:04 PM")
	for i, c := range eligible {
		n := &notify.Notification{
			UserID:    c.PatientID,
			Title:     "A slot just opened up",
			Message:   fmt.Sprintf("An earlier %s slot is available on %s. Claim it before it expires.", p.ProcedureType, slot),
			Priority:  notify.PriorityHigh,
			ActionURL: fmt.Sprintf("/appointments/claim/%s", p.CancelledAppointmentID),
		}
		if i == 0 {
			n.Priority = notify.PriorityUrgent
			n.Title = "You're first in line for an open slot"
		}
		if err := m.dispatcher.Dispatch(ctx, n); err != nil {
			m.log.Warn().Err(err).
				Str("patient_id", c.PatientID.String()).
				Str("appointment_id", p.CancelledAppointmentID.String()).
				Msg("slot offer notification failed")
		}
	}
}
