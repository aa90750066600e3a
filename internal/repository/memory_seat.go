package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/seat-hold-reservation/internal/model"
)

type seatKey struct{ event, label string }

// MemorySeatRepo is an in-process seat store.  Each call runs under one
// mutex, which gives every per-seat update the same compare-and-swap
// behaviour as the conditional UPDATEs of SeatRepo.
type MemorySeatRepo struct {
	mu    sync.Mutex
	seats map[seatKey]*model.Seat
	order []seatKey
}

// NewMemorySeatRepo returns an empty store.
func NewMemorySeatRepo() *MemorySeatRepo {
	return &MemorySeatRepo{seats: make(map[seatKey]*model.Seat)}
}

func cloneSeat(s *model.Seat) model.Seat {
	out := *s
	if s.HoldID != nil {
		v := *s.HoldID
		out.HoldID = &v
	}
	if s.BookedBy != nil {
		v := *s.BookedBy
		out.BookedBy = &v
	}
	if s.TicketTypeID != nil {
		v := *s.TicketTypeID
		out.TicketTypeID = &v
	}
	if s.PriceOverride != nil {
		v := *s.PriceOverride
		out.PriceOverride = &v
	}
	return out
}

// CreateBulk adds seats.  ErrConflict is returned if any seat already
// exists, in which case nothing is added.
func (r *MemorySeatRepo) CreateBulk(_ context.Context, seats []model.Seat) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range seats {
		if _, ok := r.seats[seatKey{s.EventID, s.Label}]; ok {
			return ErrConflict
		}
	}
	now := time.Now().UTC()
	for _, s := range seats {
		k := seatKey{s.EventID, s.Label}
		c := cloneSeat(&s)
		if c.State == "" {
			c.State = model.SeatAvailable
		}
		c.UpdatedAt = now
		r.seats[k] = &c
		r.order = append(r.order, k)
	}
	return nil
}

// GetByLabels returns the known seats among labels.
func (r *MemorySeatRepo) GetByLabels(_ context.Context, eventID string, labels []string) ([]model.Seat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []model.Seat{}
	for _, l := range dedupe(labels) {
		if s, ok := r.seats[seatKey{eventID, l}]; ok {
			out = append(out, cloneSeat(s))
		}
	}
	return out, nil
}

// ListByEvent returns every seat of the event ordered by row and number.
func (r *MemorySeatRepo) ListByEvent(_ context.Context, eventID string) ([]model.Seat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []model.Seat{}
	for _, k := range r.order {
		if k.event == eventID {
			out = append(out, cloneSeat(r.seats[k]))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if len(a.RowLabel) != len(b.RowLabel) {
			return len(a.RowLabel) < len(b.RowLabel)
		}
		if a.RowLabel != b.RowLabel {
			return a.RowLabel < b.RowLabel
		}
		return a.Number < b.Number
	})
	return out, nil
}

// casSeat applies one conditional transition and reports whether it matched.
func (r *MemorySeatRepo) casSeat(k seatKey, match func(*model.Seat) bool, apply func(*model.Seat)) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.seats[k]
	if !ok || !match(s) {
		return false
	}
	apply(s)
	s.UpdatedAt = time.Now().UTC()
	return true
}

func heldBy(s *model.Seat, holdID string) bool {
	return s.State == model.SeatPending && s.HoldID != nil && *s.HoldID == holdID
}

// TryLock has the same contract as SeatRepo.TryLock.  The lock is taken per
// seat so that overlapping requests interleave like they would on MySQL.
func (r *MemorySeatRepo) TryLock(_ context.Context, eventID string, labels []string, holdID string) (locked, failed []string, err error) {
	for _, label := range dedupe(labels) {
		ok := r.casSeat(seatKey{eventID, label},
			func(s *model.Seat) bool { return s.State == model.SeatAvailable },
			func(s *model.Seat) {
				id := holdID
				s.State = model.SeatPending
				s.HoldID = &id
			},
		)
		if ok {
			locked = append(locked, label)
		} else {
			failed = append(failed, label)
		}
	}
	if len(failed) == 0 {
		return locked, nil, nil
	}
	for _, label := range locked {
		r.casSeat(seatKey{eventID, label},
			func(s *model.Seat) bool { return heldBy(s, holdID) },
			func(s *model.Seat) {
				s.State = model.SeatAvailable
				s.HoldID = nil
			},
		)
	}
	return nil, failed, nil
}

// Confirm has the same all-or-nothing contract as SeatRepo.Confirm.
func (r *MemorySeatRepo) Confirm(_ context.Context, eventID string, labels []string, holdID string) (int, error) {
	labels = dedupe(labels)
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, label := range labels {
		s, ok := r.seats[seatKey{eventID, label}]
		if !ok {
			continue
		}
		if heldBy(s, holdID) || (s.State == model.SeatBooked && s.BookedBy != nil && *s.BookedBy == holdID) {
			count++
		}
	}
	if count != len(labels) {
		return count, nil
	}
	now := time.Now().UTC()
	for _, label := range labels {
		s := r.seats[seatKey{eventID, label}]
		if s.State == model.SeatPending {
			id := holdID
			s.State = model.SeatBooked
			s.HoldID = nil
			s.BookedBy = &id
			s.UpdatedAt = now
		}
	}
	return count, nil
}

// Release frees every seat pending under holdID.
func (r *MemorySeatRepo) Release(_ context.Context, holdID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	now := time.Now().UTC()
	for _, s := range r.seats {
		if heldBy(s, holdID) {
			s.State = model.SeatAvailable
			s.HoldID = nil
			s.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

// SetState forces a seat into a layout state such as broken or blocked.
// It is meant for seeding and tests and refuses to touch held seats.
func (r *MemorySeatRepo) SetState(_ context.Context, eventID, label string, state model.SeatState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.seats[seatKey{eventID, label}]
	if !ok {
		return ErrNotFound
	}
	if s.State == model.SeatPending || s.State == model.SeatBooked {
		return ErrStateConflict
	}
	s.State = state
	s.UpdatedAt = time.Now().UTC()
	return nil
}
