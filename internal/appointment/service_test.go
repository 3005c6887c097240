package appointment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/littlelanterns/medharmony-command-center-sub000/internal/karma"
	"github.com/littlelanterns/medharmony-command-center-sub000/internal/match"
	"github.com/littlelanterns/medharmony-command-center-sub000/internal/notify"
	redisclient "github.com/littlelanterns/medharmony-command-center-sub000/internal/redis"
	"github.com/littlelanterns/medharmony-command-center-sub000/internal/schedule"
)

// In-memory fakes

type memAppointments struct {
	byID map[uuid.UUID]*Appointment
}

func newMemAppointments() *memAppointments {
	return &memAppointments{byID: map[uuid.UUID]*Appointment{}}
}

func (m *memAppointments) GetAppointment(_ context.Context, id uuid.UUID) (*Appointment, error) {
	a, ok := m.byID[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memAppointments) CreateAppointment(_ context.Context, a *Appointment) error {
	cp := *a
	m.byID[a.ID] = &cp
	return nil
}

func (m *memAppointments) UpdateAppointmentStatus(_ context.Context, id uuid.UUID, status Status) error {
	a, ok := m.byID[id]
	if !ok {
		return ErrAppointmentNotFound
	}
	a.Status = status
	return nil
}

func (m *memAppointments) UpdateAppointmentSlot(_ context.Context, id uuid.UUID, start, end time.Time) error {
	a, ok := m.byID[id]
	if !ok {
		return ErrAppointmentNotFound
	}
	a.ScheduledStart = start
	a.ScheduledEnd = end
	return nil
}

func (m *memAppointments) ListActiveInWindow(_ context.Context, providerID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	var result []Appointment
	for _, a := range m.byID {
		if a.ProviderID != providerID || !a.Status.active() {
			continue
		}
		if a.ScheduledStart.Before(to) && from.Before(a.ScheduledEnd) {
			result = append(result, *a)
		}
	}
	return result, nil
}

func (m *memAppointments) ListByPatient(_ context.Context, patientID uuid.UUID) ([]Appointment, error) {
	var result []Appointment
	for _, a := range m.byID {
		if a.PatientID == patientID {
			result = append(result, *a)
		}
	}
	return result, nil
}

type memOrders struct {
	byID map[uuid.UUID]*Order
}

func newMemOrders() *memOrders {
	return &memOrders{byID: map[uuid.UUID]*Order{}}
}

func (m *memOrders) GetOrder(_ context.Context, id uuid.UUID) (*Order, error) {
	o, ok := m.byID[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *memOrders) SetOrderStatus(_ context.Context, id uuid.UUID, status OrderStatus) error {
	o, ok := m.byID[id]
	if !ok {
		return ErrOrderNotFound
	}
	o.Status = status
	return nil
}

type memAlerts struct {
	byID map[uuid.UUID]*CancellationAlert
}

func newMemAlerts() *memAlerts {
	return &memAlerts{byID: map[uuid.UUID]*CancellationAlert{}}
}

func (m *memAlerts) CreateAlert(_ context.Context, a *CancellationAlert) error {
	cp := *a
	m.byID[a.ID] = &cp
	return nil
}

func (m *memAlerts) GetAlert(_ context.Context, id uuid.UUID) (*CancellationAlert, error) {
	a, ok := m.byID[id]
	if !ok {
		return nil, ErrAlertNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memAlerts) SetAlertNotifiedPatient(_ context.Context, id, patientID uuid.UUID) error {
	a, ok := m.byID[id]
	if !ok {
		return ErrAlertNotFound
	}
	a.NotifiedPatientID = &patientID
	return nil
}

func (m *memAlerts) ClaimAlert(_ context.Context, id, patientID uuid.UUID) error {
	a, ok := m.byID[id]
	if !ok || a.Status != AlertActive {
		return ErrAlertClaimed
	}
	a.Status = AlertClaimed
	a.ClaimedBy = &patientID
	return nil
}

func (m *memAlerts) ExpireBefore(_ context.Context, cutoff time.Time) (int64, error) {
	var n int64
	for _, a := range m.byID {
		if a.Status == AlertActive && !a.ExpiresAt.After(cutoff) {
			a.Status = AlertExpired
			n++
		}
	}
	return n, nil
}

type memBlocks struct {
	blocks []schedule.BlockedPeriod
}

func (m *memBlocks) ListBlocksInRange(_ context.Context, _ uuid.UUID, _, _ time.Time) ([]schedule.BlockedPeriod, error) {
	return m.blocks, nil
}

func (m *memBlocks) ListBlocks(_ context.Context, _ uuid.UUID) ([]schedule.BlockedPeriod, error) {
	return m.blocks, nil
}

func (m *memBlocks) CreateBlock(_ context.Context, b *schedule.BlockedPeriod) error {
	m.blocks = append(m.blocks, *b)
	return nil
}

func (m *memBlocks) DeactivateBlock(_ context.Context, _ uuid.UUID) error {
	return schedule.ErrBlockNotFound
}

type memProviders struct{}

func (memProviders) GetProvider(_ context.Context, id uuid.UUID) (*schedule.Provider, error) {
	return &schedule.Provider{ID: id, Name: "Dr. Okafor"}, nil
}

type karmaCall struct {
	patientID uuid.UUID
	adj       karma.Adjustment
	action    karma.Action
}

type memKarma struct {
	calls []karmaCall
	err   error
}

func (m *memKarma) GetScore(_ context.Context, _ uuid.UUID) (int, error) { return 50, nil }

func (m *memKarma) Adjust(_ context.Context, patientID uuid.UUID, adj karma.Adjustment, action karma.Action) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.calls = append(m.calls, karmaCall{patientID: patientID, adj: adj, action: action})
	return karma.Clamp(50 + adj.Points), nil
}

func (m *memKarma) ListHistory(_ context.Context, _ uuid.UUID, _ int) ([]karma.HistoryEntry, error) {
	return nil, nil
}

type memMatcher struct {
	calls   []match.MatchParams
	matched uuid.UUID
	err     error
}

func (m *memMatcher) MatchCancellation(_ context.Context, p match.MatchParams) ([]match.MatchRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.calls = append(m.calls, p)
	return []match.MatchRecord{{
		ID:                     uuid.New(),
		CancelledAppointmentID: p.CancelledAppointmentID,
		PatientID:              m.matched,
		Rank:                   1,
	}}, nil
}

type memDispatcher struct {
	sent []*notify.Notification
}

func (m *memDispatcher) Dispatch(_ context.Context, n *notify.Notification) error {
	m.sent = append(m.sent, n)
	return nil
}

// passLocker runs the critical section inline.
type passLocker struct {
	acquired int
}

func (l *passLocker) WithSlotLock(ctx context.Context, _ uuid.UUID, _ time.Time, fn func(ctx context.Context) error) error {
	l.acquired++
	return fn(ctx)
}

type deniedLocker struct{}

func (deniedLocker) WithSlotLock(_ context.Context, _ uuid.UUID, _ time.Time, _ func(ctx context.Context) error) error {
	return redisclient.ErrLockNotAcquired
}

// Fixture

type fixture struct {
	svc        *Service
	appts      *memAppointments
	orders     *memOrders
	alerts     *memAlerts
	blocks     *memBlocks
	karma      *memKarma
	matcher    *memMatcher
	dispatcher *memDispatcher
	locker     *passLocker
	now        time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		appts:      newMemAppointments(),
		orders:     newMemOrders(),
		alerts:     newMemAlerts(),
		blocks:     &memBlocks{},
		karma:      &memKarma{},
		matcher:    &memMatcher{matched: uuid.New()},
		dispatcher: &memDispatcher{},
		locker:     &passLocker{},
		now:        time.Date(2025, time.November, 17, 8, 0, 0, 0, time.UTC),
	}
	f.svc = NewService(ServiceDeps{
		Appointments: f.appts,
		Orders:       f.orders,
		Alerts:       f.alerts,
		Blocks:       f.blocks,
		Providers:    memProviders{},
		Karma:        f.karma,
		Matcher:      f.matcher,
		Notifier:     f.dispatcher,
		Locker:       f.locker,
		AlertTTL:     2 * time.Hour,
		Log:          zerolog.Nop(),
	})
	f.svc.now = func() time.Time { return f.now }
	return f
}

func (f *fixture) addOrder(status OrderStatus) *Order {
	o := &Order{ID: uuid.New(), PatientID: uuid.New(), ProcedureType: "MRI", Status: status}
	f.orders.byID[o.ID] = o
	return o
}

func (f *fixture) addAppointment(status Status, start time.Time) *Appointment {
	order := f.addOrder(OrderScheduled)
	a := &Appointment{
		ID:             uuid.New(),
		OrderID:        order.ID,
		PatientID:      order.PatientID,
		ProviderID:     uuid.New(),
		ProcedureType:  order.ProcedureType,
		ScheduledStart: start,
		ScheduledEnd:   start.Add(30 * time.Minute),
		Status:         status,
	}
	f.appts.byID[a.ID] = a
	return a
}

// Book

func TestBook(t *testing.T) {
	f := newFixture(t)
	order := f.addOrder(OrderUnscheduled)
	start := f.now.Add(48 * time.Hour)

	res, err := f.svc.Book(context.Background(), BookParams{
		OrderID:    order.ID,
		ProviderID: uuid.New(),
		Start:      start,
		Location:   "Main Clinic",
	})
	if err != nil {
		t.Fatalf("Book: %v", err)
	}

	appt := res.Appointment
	if appt.Status != StatusScheduled {
		t.Errorf("status = %s, want scheduled", appt.Status)
	}
	if !appt.ScheduledEnd.Equal(start.Add(30 * time.Minute)) {
		t.Errorf("end = %s, want 30-minute default duration", appt.ScheduledEnd)
	}
	if appt.PatientID != order.PatientID || appt.ProcedureType != "MRI" {
		t.Error("appointment must inherit patient and procedure from the order")
	}

	if got := f.orders.byID[order.ID].Status; got != OrderScheduled {
		t.Errorf("order status = %s, want scheduled", got)
	}
	if f.locker.acquired != 1 {
		t.Errorf("lock acquisitions = %d, want 1", f.locker.acquired)
	}
	if len(f.karma.calls) != 1 || f.karma.calls[0].action != karma.ActionBook || f.karma.calls[0].adj.Points != 5 {
		t.Errorf("karma calls = %+v, want one +5 book adjustment", f.karma.calls)
	}
	if len(res.Effects.Failed()) != 0 {
		t.Errorf("failed effects = %v", res.Effects.Failed())
	}
}

func TestBookConfiguredDefaultDuration(t *testing.T) {
	f := newFixture(t)
	f.svc.duration = 45 * time.Minute
	order := f.addOrder(OrderUnscheduled)
	start := f.now.Add(48 * time.Hour)

	res, err := f.svc.Book(context.Background(), BookParams{
		OrderID:    order.ID,
		ProviderID: uuid.New(),
		Start:      start,
	})
	if err != nil {
		t.Fatalf("Book: %v", err)
	}
	if !res.Appointment.ScheduledEnd.Equal(start.Add(45 * time.Minute)) {
		t.Errorf("end = %s, want the configured 45-minute default", res.Appointment.ScheduledEnd)
	}
}

func TestBookSlotTaken(t *testing.T) {
	f := newFixture(t)
	start := f.now.Add(48 * time.Hour)
	existing := f.addAppointment(StatusScheduled, start)

	order := f.addOrder(OrderUnscheduled)
	_, err := f.svc.Book(context.Background(), BookParams{
		OrderID:    order.ID,
		ProviderID: existing.ProviderID,
		Start:      start,
	})
	if !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("err = %v, want ErrSlotTaken", err)
	}
	if got := f.orders.byID[order.ID].Status; got != OrderUnscheduled {
		t.Errorf("order status = %s, must stay unscheduled after a failed booking", got)
	}
}

func TestBookSlotBlocked(t *testing.T) {
	f := newFixture(t)
	start := f.now.Add(48 * time.Hour)
	f.blocks.blocks = []schedule.BlockedPeriod{{
		StartAt:   start.Add(-time.Hour),
		EndAt:     start.Add(time.Hour),
		BlockType: schedule.BlockVacation,
	}}

	order := f.addOrder(OrderUnscheduled)
	_, err := f.svc.Book(context.Background(), BookParams{
		OrderID:    order.ID,
		ProviderID: uuid.New(),
		Start:      start,
	})
	if !errors.Is(err, ErrSlotBlocked) {
		t.Fatalf("err = %v, want ErrSlotBlocked", err)
	}
}

func TestBookOrderNotOpen(t *testing.T) {
	f := newFixture(t)
	order := f.addOrder(OrderScheduled)

	_, err := f.svc.Book(context.Background(), BookParams{
		OrderID:    order.ID,
		ProviderID: uuid.New(),
		Start:      f.now.Add(time.Hour),
	})
	if !errors.Is(err, ErrOrderNotOpen) {
		t.Fatalf("err = %v, want ErrOrderNotOpen", err)
	}
}

func TestBookLockContention(t *testing.T) {
	f := newFixture(t)
	f.svc.locker = deniedLocker{}
	order := f.addOrder(OrderUnscheduled)

	_, err := f.svc.Book(context.Background(), BookParams{
		OrderID:    order.ID,
		ProviderID: uuid.New(),
		Start:      f.now.Add(time.Hour),
	})
	if !errors.Is(err, redisclient.ErrLockNotAcquired) {
		t.Fatalf("err = %v, want ErrLockNotAcquired", err)
	}
}

// Cancel

func TestCancelWithGoodNotice(t *testing.T) {
	f := newFixture(t)
	appt := f.addAppointment(StatusScheduled, f.now.Add(80*time.Hour))

	res, err := f.svc.Cancel(context.Background(), CancelParams{
		AppointmentID: appt.ID,
		InitiatedBy:   ByPatient,
	})
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	if got := f.appts.byID[appt.ID].Status; got != StatusCancelled {
		t.Errorf("appointment status = %s, want cancelled", got)
	}
	if got := f.orders.byID[appt.OrderID].Status; got != OrderUnscheduled {
		t.Errorf("order status = %s, want unscheduled", got)
	}

	if len(f.karma.calls) != 1 {
		t.Fatalf("karma calls = %d, want 1", len(f.karma.calls))
	}
	call := f.karma.calls[0]
	if call.action != karma.ActionCancel || call.adj.Points != 5 {
		t.Errorf("karma = %s %+d, want cancel +5 for 80 hours notice", call.action, call.adj.Points)
	}

	if len(f.alerts.byID) != 1 {
		t.Fatalf("alerts = %d, want 1", len(f.alerts.byID))
	}
	for _, a := range f.alerts.byID {
		if a.Status != AlertActive {
			t.Errorf("alert status = %s, want active", a.Status)
		}
		if !a.ExpiresAt.Equal(f.now.Add(2 * time.Hour)) {
			t.Errorf("alert expires = %s, want now + 2h", a.ExpiresAt)
		}
		if !a.SlotStart.Equal(appt.ScheduledStart) {
			t.Errorf("alert slot start = %s", a.SlotStart)
		}
		if a.NotifiedPatientID == nil || *a.NotifiedPatientID != f.matcher.matched {
			t.Errorf("alert primary = %v, want the top-ranked match %s", a.NotifiedPatientID, f.matcher.matched)
		}
	}

	if len(f.matcher.calls) != 1 {
		t.Fatalf("matcher calls = %d, want 1", len(f.matcher.calls))
	}
	if f.matcher.calls[0].ProcedureType != "MRI" || !f.matcher.calls[0].SlotStart.Equal(appt.ScheduledStart) {
		t.Errorf("matcher params = %+v", f.matcher.calls[0])
	}
	if len(res.Matches) != 1 {
		t.Errorf("matches = %d, want 1", len(res.Matches))
	}
	if len(res.Effects.Failed()) != 0 {
		t.Errorf("failed effects = %v", res.Effects.Failed())
	}
}

func TestCancelLateNotice(t *testing.T) {
	f := newFixture(t)

	cases := []struct {
		name   string
		notice time.Duration
		want   int
	}{
		{"30 hours", 30 * time.Hour, 2},
		{"10 hours", 10 * time.Hour, -3},
		{"1 hour", time.Hour, -10},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f.karma.calls = nil
			appt := f.addAppointment(StatusScheduled, f.now.Add(tc.notice))

			_, err := f.svc.Cancel(context.Background(), CancelParams{
				AppointmentID: appt.ID,
				InitiatedBy:   ByPatient,
			})
			if err != nil {
				t.Fatalf("Cancel: %v", err)
			}
			if len(f.karma.calls) != 1 || f.karma.calls[0].adj.Points != tc.want {
				t.Errorf("karma calls = %+v, want %+d", f.karma.calls, tc.want)
			}
		})
	}
}

func TestCancelProviderInitiatedKeepsKarma(t *testing.T) {
	f := newFixture(t)
	appt := f.addAppointment(StatusConfirmed, f.now.Add(time.Hour))

	_, err := f.svc.Cancel(context.Background(), CancelParams{
		AppointmentID: appt.ID,
		InitiatedBy:   ByProvider,
	})
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if len(f.karma.calls) != 1 {
		t.Fatalf("karma calls = %d, want 1", len(f.karma.calls))
	}
	call := f.karma.calls[0]
	if call.action != karma.ActionProviderCancel || call.adj.Points != 0 {
		t.Errorf("karma = %s %+d, want provider_cancel with zero points", call.action, call.adj.Points)
	}
}

func TestCancelKarmaFailureDoesNotUnwind(t *testing.T) {
	f := newFixture(t)
	f.karma.err = errors.New("karma db down")
	appt := f.addAppointment(StatusScheduled, f.now.Add(48*time.Hour))

	res, err := f.svc.Cancel(context.Background(), CancelParams{
		AppointmentID: appt.ID,
		InitiatedBy:   ByPatient,
	})
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	if got := f.appts.byID[appt.ID].Status; got != StatusCancelled {
		t.Errorf("appointment status = %s, primary write must survive effect failures", got)
	}
	failed := res.Effects.Failed()
	if len(failed) != 1 || failed[0] != "karma" {
		t.Errorf("failed effects = %v, want [karma]", failed)
	}
	// Later steps still run.
	if len(f.matcher.calls) != 1 {
		t.Errorf("matcher calls = %d, want 1 despite karma failure", len(f.matcher.calls))
	}
}

func TestCancelMatcherFailureLeavesNoPrimary(t *testing.T) {
	f := newFixture(t)
	f.matcher.err = errors.New("demand query failed")
	appt := f.addAppointment(StatusScheduled, f.now.Add(48*time.Hour))

	res, err := f.svc.Cancel(context.Background(), CancelParams{
		AppointmentID: appt.ID,
		InitiatedBy:   ByPatient,
	})
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	failed := res.Effects.Failed()
	if len(failed) != 1 || failed[0] != "match" {
		t.Errorf("failed effects = %v, want [match]", failed)
	}
	for _, a := range f.alerts.byID {
		if a.NotifiedPatientID != nil {
			t.Errorf("alert primary = %s, want unset when matching fails", *a.NotifiedPatientID)
		}
	}
}

func TestCancelPastAppointmentSkipsAlertAndMatch(t *testing.T) {
	f := newFixture(t)
	appt := f.addAppointment(StatusScheduled, f.now.Add(-time.Hour))

	_, err := f.svc.Cancel(context.Background(), CancelParams{
		AppointmentID: appt.ID,
		InitiatedBy:   ByPatient,
	})
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if len(f.alerts.byID) != 0 {
		t.Errorf("alerts = %d, want none for a past slot", len(f.alerts.byID))
	}
	if len(f.matcher.calls) != 0 {
		t.Errorf("matcher calls = %d, want none for a past slot", len(f.matcher.calls))
	}
}

func TestCancelAlreadyCancelled(t *testing.T) {
	f := newFixture(t)
	appt := f.addAppointment(StatusCancelled, f.now.Add(time.Hour))

	_, err := f.svc.Cancel(context.Background(), CancelParams{AppointmentID: appt.ID, InitiatedBy: ByPatient})
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}
}

// Reschedule

func TestReschedule(t *testing.T) {
	f := newFixture(t)
	appt := f.addAppointment(StatusScheduled, f.now.Add(30*time.Hour))
	newStart := f.now.Add(96 * time.Hour)

	res, err := f.svc.Reschedule(context.Background(), RescheduleParams{
		AppointmentID: appt.ID,
		NewStart:      newStart,
	})
	if err != nil {
		t.Fatalf("Reschedule: %v", err)
	}

	if !res.Appointment.ScheduledStart.Equal(newStart) {
		t.Errorf("start = %s, want %s", res.Appointment.ScheduledStart, newStart)
	}
	if !res.Appointment.ScheduledEnd.Equal(newStart.Add(30 * time.Minute)) {
		t.Errorf("end = %s, want preserved 30-minute duration", res.Appointment.ScheduledEnd)
	}

	// Notice is measured against the old slot: 30 hours out earns +2.
	if len(f.karma.calls) != 1 {
		t.Fatalf("karma calls = %d, want 1", len(f.karma.calls))
	}
	call := f.karma.calls[0]
	if call.action != karma.ActionReschedule || call.adj.Points != 2 {
		t.Errorf("karma = %s %+d, want reschedule +2", call.action, call.adj.Points)
	}

	if len(f.matcher.calls) != 0 {
		t.Errorf("matcher calls = %d, rescheduling frees no slot", len(f.matcher.calls))
	}
	if len(f.alerts.byID) != 0 {
		t.Errorf("alerts = %d, rescheduling must not create alerts", len(f.alerts.byID))
	}
}

func TestRescheduleConflict(t *testing.T) {
	f := newFixture(t)
	appt := f.addAppointment(StatusScheduled, f.now.Add(30*time.Hour))
	newStart := f.now.Add(96 * time.Hour)

	blocker := f.addAppointment(StatusScheduled, newStart)
	blocker.ProviderID = appt.ProviderID
	f.appts.byID[blocker.ID] = blocker

	_, err := f.svc.Reschedule(context.Background(), RescheduleParams{
		AppointmentID: appt.ID,
		NewStart:      newStart,
	})
	if !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("err = %v, want ErrSlotTaken", err)
	}
	if got := f.appts.byID[appt.ID].ScheduledStart; !got.Equal(appt.ScheduledStart) {
		t.Errorf("start moved to %s despite conflict", got)
	}
}

// Confirm

func TestConfirm(t *testing.T) {
	f := newFixture(t)
	appt := f.addAppointment(StatusScheduled, f.now.Add(24*time.Hour))

	got, effects, err := f.svc.Confirm(context.Background(), appt.ID)
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if got.Status != StatusConfirmed {
		t.Errorf("status = %s, want confirmed", got.Status)
	}
	if len(f.karma.calls) != 1 || f.karma.calls[0].action != karma.ActionConfirm || f.karma.calls[0].adj.Points != 2 {
		t.Errorf("karma calls = %+v, want one +2 confirm", f.karma.calls)
	}
	if len(effects.Failed()) != 0 {
		t.Errorf("failed effects = %v", effects.Failed())
	}
}

func TestConfirmTwice(t *testing.T) {
	f := newFixture(t)
	appt := f.addAppointment(StatusConfirmed, f.now.Add(24*time.Hour))

	if _, _, err := f.svc.Confirm(context.Background(), appt.ID); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("err = %v, want ErrInvalidTransition", err)
	}
}

// Claim

func (f *fixture) addAlert(status AlertStatus, expiresAt time.Time) (*CancellationAlert, *Appointment) {
	cancelled := f.addAppointment(StatusCancelled, f.now.Add(26*time.Hour))
	alert := &CancellationAlert{
		ID:            uuid.New(),
		AppointmentID: cancelled.ID,
		ProviderID:    cancelled.ProviderID,
		ProcedureType: cancelled.ProcedureType,
		SlotStart:     cancelled.ScheduledStart,
		SlotEnd:       cancelled.ScheduledEnd,
		Status:        status,
		ExpiresAt:     expiresAt,
	}
	f.alerts.byID[alert.ID] = alert
	return alert, cancelled
}

func TestClaim(t *testing.T) {
	f := newFixture(t)
	alert, cancelled := f.addAlert(AlertActive, f.now.Add(time.Hour))
	order := f.addOrder(OrderUnscheduled)

	res, err := f.svc.Claim(context.Background(), ClaimParams{
		AlertID:   alert.ID,
		OrderID:   order.ID,
		PatientID: order.PatientID,
	})
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}

	appt := res.Appointment
	if appt.PatientID != order.PatientID {
		t.Error("claimed appointment must belong to the claiming patient")
	}
	if !appt.ScheduledStart.Equal(cancelled.ScheduledStart) {
		t.Errorf("claimed start = %s, want the freed slot", appt.ScheduledStart)
	}
	if got := f.alerts.byID[alert.ID].Status; got != AlertClaimed {
		t.Errorf("alert status = %s, want claimed", got)
	}
	if got := f.orders.byID[order.ID].Status; got != OrderScheduled {
		t.Errorf("order status = %s, want scheduled", got)
	}
	if len(f.karma.calls) != 1 || f.karma.calls[0].action != karma.ActionClaim || f.karma.calls[0].adj.Points != 5 {
		t.Errorf("karma calls = %+v, want one +5 claim", f.karma.calls)
	}
}

func TestClaimExpiredAlert(t *testing.T) {
	f := newFixture(t)
	alert, _ := f.addAlert(AlertActive, f.now.Add(-time.Minute))
	order := f.addOrder(OrderUnscheduled)

	_, err := f.svc.Claim(context.Background(), ClaimParams{
		AlertID:   alert.ID,
		OrderID:   order.ID,
		PatientID: order.PatientID,
	})
	if !errors.Is(err, ErrAlertExpired) {
		t.Fatalf("err = %v, want ErrAlertExpired", err)
	}
}

func TestClaimAlreadyClaimed(t *testing.T) {
	f := newFixture(t)
	alert, _ := f.addAlert(AlertClaimed, f.now.Add(time.Hour))
	order := f.addOrder(OrderUnscheduled)

	_, err := f.svc.Claim(context.Background(), ClaimParams{
		AlertID:   alert.ID,
		OrderID:   order.ID,
		PatientID: order.PatientID,
	})
	if !errors.Is(err, ErrAlertClaimed) {
		t.Fatalf("err = %v, want ErrAlertClaimed", err)
	}
}

func TestClaimWrongPatient(t *testing.T) {
	f := newFixture(t)
	alert, _ := f.addAlert(AlertActive, f.now.Add(time.Hour))
	order := f.addOrder(OrderUnscheduled)

	_, err := f.svc.Claim(context.Background(), ClaimParams{
		AlertID:   alert.ID,
		OrderID:   order.ID,
		PatientID: uuid.New(),
	})
	if !errors.Is(err, ErrOrderNotOpen) {
		t.Fatalf("err = %v, want ErrOrderNotOpen", err)
	}
}

// BlockTime

func TestBlockTimeCascade(t *testing.T) {
	f := newFixture(t)
	providerID := uuid.New()

	inside := f.addAppointment(StatusScheduled, f.now.Add(25*time.Hour))
	inside.ProviderID = providerID
	f.appts.byID[inside.ID] = inside

	outside := f.addAppointment(StatusScheduled, f.now.Add(72*time.Hour))
	outside.ProviderID = providerID
	f.appts.byID[outside.ID] = outside

	res, err := f.svc.BlockTime(context.Background(), BlockTimeParams{
		ProviderID: providerID,
		Start:      f.now.Add(24 * time.Hour),
		End:        f.now.Add(32 * time.Hour),
		BlockType:  schedule.BlockSick,
	})
	if err != nil {
		t.Fatalf("BlockTime: %v", err)
	}

	if len(f.blocks.blocks) != 1 {
		t.Fatalf("blocks = %d, want 1", len(f.blocks.blocks))
	}
	if len(res.Cancelled) != 1 || res.Cancelled[0].ID != inside.ID {
		t.Fatalf("cancelled = %+v, want only the appointment inside the window", res.Cancelled)
	}
	if got := f.appts.byID[inside.ID].Status; got != StatusCancelled {
		t.Errorf("inside status = %s, want cancelled", got)
	}
	if got := f.appts.byID[outside.ID].Status; got != StatusScheduled {
		t.Errorf("outside status = %s, must be untouched", got)
	}

	// Cascade cancellations are provider-initiated: karma entry recorded
	// with zero points.
	if len(f.karma.calls) != 1 {
		t.Fatalf("karma calls = %d, want 1", len(f.karma.calls))
	}
	if f.karma.calls[0].action != karma.ActionProviderCancel || f.karma.calls[0].adj.Points != 0 {
		t.Errorf("karma = %+v, want zero-point provider_cancel", f.karma.calls[0])
	}

	// The cancelled slot sits inside the block now, so it is never
	// offered to the waitlist: no alert, no matching, just the patient
	// notification.
	if len(f.matcher.calls) != 0 {
		t.Errorf("matcher calls = %d, want none for a blocked slot", len(f.matcher.calls))
	}
	if len(f.alerts.byID) != 0 {
		t.Errorf("alerts = %d, want none for a blocked slot", len(f.alerts.byID))
	}
	var notified int
	for _, n := range f.dispatcher.sent {
		if n.UserID == inside.PatientID {
			notified++
		}
	}
	if notified != 1 {
		t.Errorf("patient notifications = %d, want 1", notified)
	}
}

func TestBlockTimeInvalidInput(t *testing.T) {
	f := newFixture(t)

	if _, err := f.svc.BlockTime(context.Background(), BlockTimeParams{
		ProviderID: uuid.New(),
		Start:      f.now.Add(2 * time.Hour),
		End:        f.now.Add(time.Hour),
		BlockType:  schedule.BlockVacation,
	}); err == nil {
		t.Error("inverted window must be rejected")
	}

	if _, err := f.svc.BlockTime(context.Background(), BlockTimeParams{
		ProviderID: uuid.New(),
		Start:      f.now,
		End:        f.now.Add(time.Hour),
		BlockType:  "long_lunch",
	}); err == nil {
		t.Error("unknown block type must be rejected")
	}
}

// ExpireAlerts

func TestExpireAlerts(t *testing.T) {
	f := newFixture(t)
	f.addAlert(AlertActive, f.now.Add(-time.Minute))
	f.addAlert(AlertActive, f.now.Add(time.Hour))

	n, err := f.svc.ExpireAlerts(context.Background())
	if err != nil {
		t.Fatalf("ExpireAlerts: %v", err)
	}
	if n != 1 {
		t.Errorf("expired = %d, want 1", n)
	}
}
