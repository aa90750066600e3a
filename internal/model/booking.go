package model

import "time"

// Booking is one confirmed seat of a paid reservation.  There is at most one
// booking per (reservation, seat).
type Booking struct {
	ID            string       `json:"booking_id"`               // bookings.id
	ReservationID string       `json:"reservation_id"`           // bookings.reservation_id
	EventID       string       `json:"event_id"`                 // bookings.event_id
	SeatID        string       `json:"seat_id"`                  // bookings.seat_id
	AgeClass      AgeClass     `json:"age_class"`                // bookings.age_class
	PriceCents    int64        `json:"price_cents"`              // bookings.price_cents
	PaymentState  PaymentState `json:"payment_state"`            // bookings.payment_state
	TransactionID *string      `json:"transaction_id,omitempty"` // bookings.transaction_id (nullable)
	CreatedAt     time.Time    `json:"created_at"`               // bookings.created_at
}
