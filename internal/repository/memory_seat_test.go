package repository

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/seat-hold-reservation/internal/model"
)

func newSeededSeats(t *testing.T) *MemorySeatRepo {
	t.Helper()
	r := NewMemorySeatRepo()
	require.NoError(t, r.CreateBulk(context.Background(), model.GenerateSeatGrid("ev1", 2, 3)))
	return r
}

func seatState(t *testing.T, r *MemorySeatRepo, label string) model.Seat {
	t.Helper()
	seats, err := r.GetByLabels(context.Background(), "ev1", []string{label})
	require.NoError(t, err)
	require.Len(t, seats, 1)
	return seats[0]
}

func TestMemorySeatRepo_TryLock(t *testing.T) {
	ctx := context.Background()

	t.Run("locks every seat", func(t *testing.T) {
		r := newSeededSeats(t)
		locked, failed, err := r.TryLock(ctx, "ev1", []string{"A1", "A2", "A1"}, "R1")
		require.NoError(t, err)
		assert.Nil(t, failed)
		assert.Equal(t, []string{"A1", "A2"}, locked)

		s := seatState(t, r, "A1")
		assert.Equal(t, model.SeatPending, s.State)
		require.NotNil(t, s.HoldID)
		assert.Equal(t, "R1", *s.HoldID)
	})

	t.Run("rolls back on contention", func(t *testing.T) {
		r := newSeededSeats(t)
		_, _, err := r.TryLock(ctx, "ev1", []string{"A2"}, "R1")
		require.NoError(t, err)

		locked, failed, err := r.TryLock(ctx, "ev1", []string{"A1", "A2", "A3"}, "R2")
		require.NoError(t, err)
		assert.Nil(t, locked)
		assert.Equal(t, []string{"A2"}, failed)

		for _, l := range []string{"A1", "A3"} {
			s := seatState(t, r, l)
			assert.Equal(t, model.SeatAvailable, s.State, l)
			assert.Nil(t, s.HoldID, l)
		}
		s := seatState(t, r, "A2")
		assert.Equal(t, "R1", *s.HoldID)
	})

	t.Run("unknown and unholdable seats fail", func(t *testing.T) {
		r := newSeededSeats(t)
		require.NoError(t, r.SetState(ctx, "ev1", "B1", model.SeatBroken))

		locked, failed, err := r.TryLock(ctx, "ev1", []string{"A1", "Z9", "B1"}, "R1")
		require.NoError(t, err)
		assert.Nil(t, locked)
		assert.ElementsMatch(t, []string{"Z9", "B1"}, failed)
		assert.Equal(t, model.SeatAvailable, seatState(t, r, "A1").State)
	})
}

func TestMemorySeatRepo_NoDoubleLock(t *testing.T) {
	ctx := context.Background()
	r := newSeededSeats(t)

	const workers = 32
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners []string
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			holdID := "R" + string(rune('a'+i%26)) + string(rune('A'+i/26))
			locked, _, err := r.TryLock(ctx, "ev1", []string{"A1", "A2"}, holdID)
			assert.NoError(t, err)
			if len(locked) > 0 {
				mu.Lock()
				winners = append(winners, holdID)
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	require.LessOrEqual(t, len(winners), 1)
	for _, l := range []string{"A1", "A2"} {
		s := seatState(t, r, l)
		if len(winners) == 0 {
			assert.Equal(t, model.SeatAvailable, s.State)
			assert.Nil(t, s.HoldID)
			continue
		}
		assert.Equal(t, model.SeatPending, s.State)
		assert.Equal(t, winners[0], *s.HoldID)
	}
}

func TestMemorySeatRepo_SingleSeatRace(t *testing.T) {
	ctx := context.Background()
	r := newSeededSeats(t)

	var (
		wg   sync.WaitGroup
		wins int32
		mu   sync.Mutex
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			locked, failed, err := r.TryLock(ctx, "ev1", []string{"A1"}, "R"+string(rune('a'+i)))
			assert.NoError(t, err)
			mu.Lock()
			defer mu.Unlock()
			if len(locked) == 1 {
				wins++
			} else {
				assert.Equal(t, []string{"A1"}, failed)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins)
}

func TestMemorySeatRepo_ConfirmAndRelease(t *testing.T) {
	ctx := context.Background()
	r := newSeededSeats(t)
	_, _, err := r.TryLock(ctx, "ev1", []string{"A1", "A2"}, "R1")
	require.NoError(t, err)

	t.Run("short count books nothing", func(t *testing.T) {
		n, err := r.Confirm(ctx, "ev1", []string{"A1", "A2", "A3"}, "R1")
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		assert.Equal(t, model.SeatPending, seatState(t, r, "A1").State)
	})

	t.Run("confirm is repeatable", func(t *testing.T) {
		n, err := r.Confirm(ctx, "ev1", []string{"A1", "A2"}, "R1")
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		n, err = r.Confirm(ctx, "ev1", []string{"A1", "A2"}, "R1")
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		s := seatState(t, r, "A1")
		assert.Equal(t, model.SeatBooked, s.State)
		assert.Nil(t, s.HoldID)
		assert.Equal(t, "R1", *s.BookedBy)
	})

	t.Run("release skips booked seats", func(t *testing.T) {
		n, err := r.Release(ctx, "R1")
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	})

	t.Run("release frees pending seats", func(t *testing.T) {
		_, _, err := r.TryLock(ctx, "ev1", []string{"B1", "B2"}, "R2")
		require.NoError(t, err)
		n, err := r.Release(ctx, "R2")
		require.NoError(t, err)
		assert.Equal(t, 2, n)
		assert.Equal(t, model.SeatAvailable, seatState(t, r, "B1").State)
	})
}

func TestMemoryReservationRepo_Transition(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryReservationRepo()
	require.NoError(t, r.Create(ctx, &model.Reservation{ID: "R1", EventID: "ev1", State: model.StateCart}))
	assert.ErrorIs(t, r.Create(ctx, &model.Reservation{ID: "R1"}), ErrConflict)

	require.NoError(t, r.Transition(ctx, "R1", []model.ReservationState{model.StateCart}, model.StateAtGateway))
	assert.ErrorIs(t, r.Transition(ctx, "R1", []model.ReservationState{model.StateCart}, model.StateTimedOut), ErrStateConflict)
	assert.ErrorIs(t, r.Transition(ctx, "nope", []model.ReservationState{model.StateCart}, model.StateTimedOut), ErrNotFound)

	got, err := r.GetByID(ctx, "R1")
	require.NoError(t, err)
	assert.Equal(t, model.StateAtGateway, got.State)
	assert.Equal(t, model.PaymentPending, got.PaymentState)
}

func TestMemoryBookingRepo_InsertIfAbsent(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryBookingRepo()
	first := []model.Booking{{ID: "b1", ReservationID: "R1", SeatID: "A1"}, {ID: "b2", ReservationID: "R1", SeatID: "A2"}}
	again := []model.Booking{{ID: "b3", ReservationID: "R1", SeatID: "A1"}}
	require.NoError(t, r.CreateForReservation(ctx, first))
	require.NoError(t, r.CreateForReservation(ctx, again))

	got, err := r.ListByReservation(ctx, "R1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b1", got[0].ID)
	assert.Equal(t, 2, r.Count())

	txn := "txn_1"
	n, err := r.SetPaymentState(ctx, "R1", model.PaymentSuccess, &txn)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	b, err := r.GetByID(ctx, "b2")
	require.NoError(t, err)
	assert.Equal(t, model.PaymentSuccess, b.PaymentState)
	assert.Equal(t, "txn_1", *b.TransactionID)
}
