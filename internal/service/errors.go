package service

import (
	"errors"
	"strings"
)

var (
	// ErrEventNotFound is returned when the event id is unknown.
	ErrEventNotFound = errors.New("event not found")
	// ErrReservationNotFound is returned when no reservation matches the id
	// or any payment correlation key.
	ErrReservationNotFound = errors.New("reservation not found")
	// ErrEmptySeatList is returned when a hold names no seats.
	ErrEmptySeatList = errors.New("no seats requested")
	// ErrSaleClosed is returned when the event is not on sale.
	ErrSaleClosed = errors.New("event is not on sale")
	// ErrHoldExpired is returned when a CART hold is used past its deadline.
	ErrHoldExpired = errors.New("hold expired")
	// ErrInvalidTransition is returned when the reservation is in a state the
	// operation cannot start from.
	ErrInvalidTransition = errors.New("invalid reservation state")
	// ErrPartialConfirmation means some seats of a paid reservation are no
	// longer held by it.  Nothing was booked; the reservation needs manual
	// attention.
	ErrPartialConfirmation = errors.New("seat confirmation count mismatch")
	// ErrUpstream wraps payment gateway failures.
	ErrUpstream = errors.New("payment gateway failure")
)

// SeatErrorKind tells contention apart from unknown seats.
type SeatErrorKind int

const (
	SeatUnavailable SeatErrorKind = iota
	SeatNotFound
)

// SeatError lists the seats responsible for a failed hold or re-pricing.
type SeatError struct {
	Kind  SeatErrorKind
	Seats []string
}

func (e *SeatError) Error() string {
	if e.Kind == SeatNotFound {
		return "seats not found: " + strings.Join(e.Seats, ",")
	}
	return "seats unavailable: " + strings.Join(e.Seats, ",")
}

// SeatsOf returns the seats listed by a *SeatError in err's chain.
func SeatsOf(err error) ([]string, SeatErrorKind, bool) {
	var se *SeatError
	if errors.As(err, &se) {
		return se.Seats, se.Kind, true
	}
	return nil, 0, false
}
