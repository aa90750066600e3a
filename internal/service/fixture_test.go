package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/seat-hold-reservation/internal/gateway"
	"github.com/iliyamo/seat-hold-reservation/internal/model"
	"github.com/iliyamo/seat-hold-reservation/internal/queue"
	"github.com/iliyamo/seat-hold-reservation/internal/repository"
)

const testEvent = "ev-1"

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.BookingConfirmedEvent
}

func (p *recordingPublisher) PublishBookingConfirmed(_ context.Context, ev queue.BookingConfirmedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

type fixture struct {
	clock    *fakeClock
	seats    *repository.MemorySeatRepo
	res      *repository.MemoryReservationRepo
	backups  *repository.MemoryBackupRepo
	bookings *repository.MemoryBookingRepo
	events   *repository.MemoryEventRepo
	gw       gateway.PaymentGateway
	pub      *recordingPublisher
	manager  *ReservationManager
	recon    *PaymentReconciler
}

// newFixture seeds an on-sale event with seats A1..A4 and B1..B4 at 1000
// cents each.
func newFixture(t *testing.T, gw gateway.PaymentGateway) *fixture {
	t.Helper()
	if gw == nil {
		gw = gateway.NewSandboxGateway(gateway.SandboxConfig{})
	}
	f := &fixture{
		clock:    newFakeClock(),
		seats:    repository.NewMemorySeatRepo(),
		res:      repository.NewMemoryReservationRepo(),
		backups:  repository.NewMemoryBackupRepo(),
		bookings: repository.NewMemoryBookingRepo(),
		gw:       gw,
		pub:      &recordingPublisher{},
	}
	f.events = repository.NewMemoryEventRepo(model.Event{
		ID:           testEvent,
		Name:         "Opening night",
		DefaultPrice: 1000,
		SaleEnabled:  true,
		Currency:     "usd",
	})
	require.NoError(t, f.seats.CreateBulk(context.Background(), model.GenerateSeatGrid(testEvent, 2, 4)))
	f.rewire(f.res)
	return f
}

// rewire rebuilds the manager and reconciler over store, which usually
// wraps f.res.
func (f *fixture) rewire(store ReservationStore) {
	f.manager = NewReservationManager(f.seats, store, f.backups, f.bookings, f.events, f.gw,
		WithClock(f.clock.Now),
		WithPublisher(f.pub),
	)
	f.recon = NewPaymentReconciler(f.manager, store, f.backups, f.bookings)
}

// hookedReservations lets a test run code in the middle of a store write.
type hookedReservations struct {
	ReservationStore
	beforeSetPayment func(id, paymentID string)
	setPaymentErr    error
	beforeMarkFailed func(id string)
}

func (h *hookedReservations) SetPayment(ctx context.Context, id, paymentID, paymentURL string) error {
	if h.beforeSetPayment != nil {
		h.beforeSetPayment(id, paymentID)
	}
	if h.setPaymentErr != nil {
		return h.setPaymentErr
	}
	return h.ReservationStore.SetPayment(ctx, id, paymentID, paymentURL)
}

func (h *hookedReservations) MarkPaymentFailed(ctx context.Context, id string) error {
	if h.beforeMarkFailed != nil {
		h.beforeMarkFailed(id)
	}
	return h.ReservationStore.MarkPaymentFailed(ctx, id)
}

func (f *fixture) hold(t *testing.T, seats ...string) *model.Reservation {
	t.Helper()
	res, err := f.manager.CreateHold(context.Background(), CreateHoldInput{EventID: testEvent, SeatIDs: seats})
	require.NoError(t, err)
	return res
}

func (f *fixture) seat(t *testing.T, label string) model.Seat {
	t.Helper()
	got, err := f.seats.GetByLabels(context.Background(), testEvent, []string{label})
	require.NoError(t, err)
	require.Len(t, got, 1)
	return got[0]
}

func (f *fixture) state(t *testing.T, id string) model.ReservationState {
	t.Helper()
	res, err := f.res.GetByID(context.Background(), id)
	require.NoError(t, err)
	return res.State
}

func bookingIDs(bs []model.Booking) []string {
	out := make([]string, 0, len(bs))
	for _, b := range bs {
		out = append(out, b.ID)
	}
	return out
}
