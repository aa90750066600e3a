package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	all := []ReservationState{StateCart, StateAtGateway, StateTimedOut, StateCancelled, StatePaid}

	t.Run("nothing returns to cart", func(t *testing.T) {
		for _, from := range all {
			if from == StateCart {
				continue
			}
			assert.False(t, CanTransition(from, StateCart), "%s -> CART", from)
		}
	})

	t.Run("terminal states have no exits", func(t *testing.T) {
		for _, from := range []ReservationState{StateTimedOut, StateCancelled, StatePaid} {
			assert.True(t, from.Terminal())
			for _, to := range all {
				assert.False(t, CanTransition(from, to), "%s -> %s", from, to)
			}
		}
	})

	t.Run("gateway cannot time out", func(t *testing.T) {
		assert.False(t, CanTransition(StateAtGateway, StateTimedOut))
		assert.True(t, CanTransition(StateAtGateway, StatePaid))
		assert.True(t, CanTransition(StateAtGateway, StateAtGateway))
	})

	t.Run("cart exits", func(t *testing.T) {
		assert.True(t, CanTransition(StateCart, StateAtGateway))
		assert.True(t, CanTransition(StateCart, StateTimedOut))
		assert.True(t, CanTransition(StateCart, StatePaid))
		assert.True(t, CanTransition(StateCart, StateCancelled))
		assert.False(t, StateCart.Terminal())
	})
}

func TestReservationStateString(t *testing.T) {
	assert.Equal(t, "AT_GATEWAY", StateAtGateway.String())
	assert.Equal(t, "UNKNOWN(7)", ReservationState(7).String())

	s, ok := ParseReservationState("TIMED_OUT")
	assert.True(t, ok)
	assert.Equal(t, StateTimedOut, s)
	_, ok = ParseReservationState("nope")
	assert.False(t, ok)
}

func TestEventOnSale(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	start := now.Add(-time.Hour)
	end := now.Add(time.Hour)

	assert.True(t, (&Event{SaleEnabled: true}).OnSale(now))
	assert.False(t, (&Event{SaleEnabled: false}).OnSale(now))
	assert.True(t, (&Event{SaleEnabled: true, SaleStart: &start, SaleEnd: &end}).OnSale(now))
	assert.False(t, (&Event{SaleEnabled: true, SaleStart: &end}).OnSale(now))
	assert.False(t, (&Event{SaleEnabled: true, SaleEnd: &now}).OnSale(now))
}

func TestGenerateSeatGrid(t *testing.T) {
	seats := GenerateSeatGrid("ev1", 2, 3)
	assert.Len(t, seats, 6)
	assert.Equal(t, "A1", seats[0].Label)
	assert.Equal(t, "B3", seats[5].Label)
	for _, s := range seats {
		assert.Equal(t, SeatAvailable, s.State)
		assert.Nil(t, s.HoldID)
	}
	assert.Nil(t, GenerateSeatGrid("ev1", 0, 3))

	assert.Equal(t, "A", RowLabel(0))
	assert.Equal(t, "Z", RowLabel(25))
	assert.Equal(t, "AA", RowLabel(26))
	assert.Equal(t, "", RowLabel(-1))
}
