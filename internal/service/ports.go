package service

import (
	"context"
	"time"

	"github.com/iliyamo/seat-hold-reservation/internal/model"
	"github.com/iliyamo/seat-hold-reservation/internal/queue"
)

// SeatStore arbitrates seat ownership.  Every mutation is a conditional
// update on the seat's current state.
type SeatStore interface {
	GetByLabels(ctx context.Context, eventID string, labels []string) ([]model.Seat, error)
	ListByEvent(ctx context.Context, eventID string) ([]model.Seat, error)
	TryLock(ctx context.Context, eventID string, labels []string, holdID string) (locked, failed []string, err error)
	Confirm(ctx context.Context, eventID string, labels []string, holdID string) (int, error)
	Release(ctx context.Context, holdID string) (int, error)
}

// ReservationStore persists reservations.  Transition is the only way the
// state changes and returns repository.ErrStateConflict when the current
// state is not in from.  MarkPaymentFailed returns ErrStateConflict for a
// PAID reservation.
type ReservationStore interface {
	Create(ctx context.Context, res *model.Reservation) error
	GetByID(ctx context.Context, id string) (*model.Reservation, error)
	GetByPaymentID(ctx context.Context, paymentID string) (*model.Reservation, error)
	Transition(ctx context.Context, id string, from []model.ReservationState, to model.ReservationState) error
	UpdatePricing(ctx context.Context, id string, price model.PriceSummary, tickets []model.TicketLine) error
	SetPayment(ctx context.Context, id, paymentID, paymentURL string) error
	SetPaymentID(ctx context.Context, id, paymentID string) error
	SetPaymentState(ctx context.Context, id string, state model.PaymentState) error
	MarkPaymentFailed(ctx context.Context, id string) error
	SetCustomer(ctx context.Context, id string, c *model.Customer) error
	MarkReleased(ctx context.Context, id string, at time.Time) error
	ListExpiredCart(ctx context.Context, now time.Time, limit int) ([]model.Reservation, error)
	ListUnreleased(ctx context.Context, limit int) ([]model.Reservation, error)
}

// BackupStore keeps a snapshot of reservations sent to a payment gateway so
// a callback can still be matched if the primary row lost its payment id.
type BackupStore interface {
	Save(ctx context.Context, b model.ReservationBackup) error
	GetByPaymentID(ctx context.Context, paymentID string) (*model.ReservationBackup, error)
	Delete(ctx context.Context, reservationID string) error
}

// BookingStore persists one booking per paid seat.
type BookingStore interface {
	CreateForReservation(ctx context.Context, bookings []model.Booking) error
	ListByReservation(ctx context.Context, reservationID string) ([]model.Booking, error)
	SetPaymentState(ctx context.Context, reservationID string, state model.PaymentState, transactionID *string) (int, error)
}

// EventSource resolves event configuration.
type EventSource interface {
	GetEvent(ctx context.Context, id string) (*model.Event, error)
}

// EventPublisher announces confirmed bookings.
type EventPublisher interface {
	PublishBookingConfirmed(ctx context.Context, ev queue.BookingConfirmedEvent) error
}

// Clock returns the current time.  Tests inject a fixed or stepping clock.
type Clock func() time.Time
