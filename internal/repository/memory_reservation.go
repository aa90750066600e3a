package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/seat-hold-reservation/internal/model"
)

// MemoryReservationRepo is an in-process reservation store with the same
// conditional-update contract as ReservationRepo.  Reads return copies.
type MemoryReservationRepo struct {
	mu   sync.Mutex
	rows map[string]*model.Reservation
}

// NewMemoryReservationRepo returns an empty store.
func NewMemoryReservationRepo() *MemoryReservationRepo {
	return &MemoryReservationRepo{rows: make(map[string]*model.Reservation)}
}

func cloneReservation(r *model.Reservation) *model.Reservation {
	out := *r
	out.SeatIDs = append([]string(nil), r.SeatIDs...)
	out.Tickets = append([]model.TicketLine(nil), r.Tickets...)
	if r.PaymentID != nil {
		v := *r.PaymentID
		out.PaymentID = &v
	}
	if r.PaymentURL != nil {
		v := *r.PaymentURL
		out.PaymentURL = &v
	}
	if r.Customer != nil {
		c := *r.Customer
		out.Customer = &c
	}
	if r.ReleasedAt != nil {
		t := *r.ReleasedAt
		out.ReleasedAt = &t
	}
	return &out
}

func (m *MemoryReservationRepo) Create(_ context.Context, res *model.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[res.ID]; ok {
		return ErrConflict
	}
	if res.PaymentState == "" {
		res.PaymentState = model.PaymentPending
	}
	if res.CreatedAt.IsZero() {
		res.CreatedAt = time.Now().UTC()
	}
	res.UpdatedAt = res.CreatedAt
	m.rows[res.ID] = cloneReservation(res)
	return nil
}

func (m *MemoryReservationRepo) GetByID(_ context.Context, id string) (*model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneReservation(r), nil
}

func (m *MemoryReservationRepo) GetByPaymentID(_ context.Context, paymentID string) (*model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.PaymentID != nil && *r.PaymentID == paymentID {
			return cloneReservation(r), nil
		}
	}
	return nil, ErrNotFound
}

// update runs fn on the row when guard accepts it.
func (m *MemoryReservationRepo) update(id string, guard func(*model.Reservation) bool, fn func(*model.Reservation)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return ErrNotFound
	}
	if guard != nil && !guard(r) {
		return ErrStateConflict
	}
	fn(r)
	r.UpdatedAt = time.Now().UTC()
	return nil
}

func inStates(s model.ReservationState, states []model.ReservationState) bool {
	for _, x := range states {
		if x == s {
			return true
		}
	}
	return false
}

func (m *MemoryReservationRepo) Transition(_ context.Context, id string, from []model.ReservationState, to model.ReservationState) error {
	return m.update(id,
		func(r *model.Reservation) bool { return inStates(r.State, from) },
		func(r *model.Reservation) { r.State = to },
	)
}

func (m *MemoryReservationRepo) UpdatePricing(_ context.Context, id string, price model.PriceSummary, tickets []model.TicketLine) error {
	return m.update(id,
		func(r *model.Reservation) bool { return r.State == model.StateCart },
		func(r *model.Reservation) {
			r.Price = price
			r.Tickets = append([]model.TicketLine(nil), tickets...)
		},
	)
}

func (m *MemoryReservationRepo) SetPayment(_ context.Context, id, paymentID, paymentURL string) error {
	return m.update(id,
		func(r *model.Reservation) bool { return r.State == model.StateAtGateway },
		func(r *model.Reservation) {
			r.PaymentID = &paymentID
			r.PaymentURL = &paymentURL
			r.PaymentState = model.PaymentProcessing
		},
	)
}

func (m *MemoryReservationRepo) SetPaymentID(_ context.Context, id, paymentID string) error {
	err := m.update(id,
		func(r *model.Reservation) bool { return r.PaymentID == nil },
		func(r *model.Reservation) { r.PaymentID = &paymentID },
	)
	if err == ErrStateConflict {
		return nil
	}
	return err
}

func (m *MemoryReservationRepo) SetPaymentState(_ context.Context, id string, state model.PaymentState) error {
	return m.update(id, nil, func(r *model.Reservation) { r.PaymentState = state })
}

func (m *MemoryReservationRepo) MarkPaymentFailed(_ context.Context, id string) error {
	return m.update(id,
		func(r *model.Reservation) bool { return r.State != model.StatePaid },
		func(r *model.Reservation) { r.PaymentState = model.PaymentFailed },
	)
}

func (m *MemoryReservationRepo) SetCustomer(_ context.Context, id string, c *model.Customer) error {
	return m.update(id, nil, func(r *model.Reservation) {
		if c == nil {
			r.Customer = nil
			return
		}
		cp := *c
		r.Customer = &cp
	})
}

func (m *MemoryReservationRepo) MarkReleased(_ context.Context, id string, at time.Time) error {
	err := m.update(id,
		func(r *model.Reservation) bool { return r.ReleasedAt == nil },
		func(r *model.Reservation) {
			t := at.UTC()
			r.ReleasedAt = &t
		},
	)
	if err == ErrStateConflict {
		return nil
	}
	return err
}

func (m *MemoryReservationRepo) ListExpiredCart(_ context.Context, now time.Time, limit int) ([]model.Reservation, error) {
	return m.list(limit, func(r *model.Reservation) bool {
		return r.State == model.StateCart && r.Expired(now)
	}, func(a, b *model.Reservation) bool { return a.ExpiresAt.Before(b.ExpiresAt) })
}

func (m *MemoryReservationRepo) ListUnreleased(_ context.Context, limit int) ([]model.Reservation, error) {
	return m.list(limit, func(r *model.Reservation) bool {
		return (r.State == model.StateTimedOut || r.State == model.StateCancelled) && r.ReleasedAt == nil
	}, func(a, b *model.Reservation) bool { return a.UpdatedAt.Before(b.UpdatedAt) })
}

func (m *MemoryReservationRepo) list(limit int, match func(*model.Reservation) bool, less func(a, b *model.Reservation) bool) ([]model.Reservation, error) {
	m.mu.Lock()
	var hits []*model.Reservation
	for _, r := range m.rows {
		if match(r) {
			hits = append(hits, cloneReservation(r))
		}
	}
	m.mu.Unlock()
	sort.Slice(hits, func(i, j int) bool { return less(hits[i], hits[j]) })
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]model.Reservation, 0, len(hits))
	for _, r := range hits {
		out = append(out, *r)
	}
	return out, nil
}

// MemoryBackupRepo is the in-process counterpart of ReservationBackupRepo.
type MemoryBackupRepo struct {
	mu   sync.Mutex
	rows map[string]model.ReservationBackup
}

// NewMemoryBackupRepo returns an empty store.
func NewMemoryBackupRepo() *MemoryBackupRepo {
	return &MemoryBackupRepo{rows: make(map[string]model.ReservationBackup)}
}

func (m *MemoryBackupRepo) Save(_ context.Context, b model.ReservationBackup) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.rows[b.ReservationID]; ok {
		if b.PaymentID == nil {
			b.PaymentID = prev.PaymentID
		}
		b.CreatedAt = prev.CreatedAt
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	b.Snapshot = *cloneReservation(&b.Snapshot)
	m.rows[b.ReservationID] = b
	return nil
}

func (m *MemoryBackupRepo) GetByPaymentID(_ context.Context, paymentID string) (*model.ReservationBackup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.rows {
		if b.PaymentID != nil && *b.PaymentID == paymentID {
			out := b
			out.Snapshot = *cloneReservation(&b.Snapshot)
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryBackupRepo) Delete(_ context.Context, reservationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, reservationID)
	return nil
}

// Len returns the number of stored backups.
func (m *MemoryBackupRepo) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}
