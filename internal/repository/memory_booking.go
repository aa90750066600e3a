package repository

import (
	"context"
	"sync"
	"time"

	"github.com/iliyamo/seat-hold-reservation/internal/model"
)

// MemoryBookingRepo is the in-process counterpart of BookingRepo, unique on
// (reservation, seat).
type MemoryBookingRepo struct {
	mu     sync.Mutex
	rows   map[string]*model.Booking
	order  []string
	bySeat map[[2]string]string
}

// NewMemoryBookingRepo returns an empty store.
func NewMemoryBookingRepo() *MemoryBookingRepo {
	return &MemoryBookingRepo{
		rows:   make(map[string]*model.Booking),
		bySeat: make(map[[2]string]string),
	}
}

func cloneBooking(b *model.Booking) model.Booking {
	out := *b
	if b.TransactionID != nil {
		v := *b.TransactionID
		out.TransactionID = &v
	}
	return out
}

func (m *MemoryBookingRepo) CreateForReservation(_ context.Context, bookings []model.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	for _, b := range bookings {
		k := [2]string{b.ReservationID, b.SeatID}
		if _, ok := m.bySeat[k]; ok {
			continue
		}
		if _, ok := m.rows[b.ID]; ok {
			continue
		}
		c := cloneBooking(&b)
		if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}
		m.rows[c.ID] = &c
		m.bySeat[k] = c.ID
		m.order = append(m.order, c.ID)
	}
	return nil
}

func (m *MemoryBookingRepo) ListByReservation(_ context.Context, reservationID string) ([]model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Booking{}
	for _, id := range m.order {
		if b := m.rows[id]; b.ReservationID == reservationID {
			out = append(out, cloneBooking(b))
		}
	}
	return out, nil
}

func (m *MemoryBookingRepo) GetByID(_ context.Context, id string) (*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := cloneBooking(b)
	return &out, nil
}

func (m *MemoryBookingRepo) SetPaymentState(_ context.Context, reservationID string, state model.PaymentState, transactionID *string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, b := range m.rows {
		if b.ReservationID != reservationID {
			continue
		}
		b.PaymentState = state
		if transactionID != nil {
			v := *transactionID
			b.TransactionID = &v
		}
		n++
	}
	return n, nil
}

// Count returns the total number of bookings stored.
func (m *MemoryBookingRepo) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}
