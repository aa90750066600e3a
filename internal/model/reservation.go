package model

import (
	"fmt"
	"time"
)

// ReservationState is the numeric lifecycle state of a hold.  The values are
// persisted as-is, so they must never be renumbered.
type ReservationState int

const (
	StateCart      ReservationState = -1 // seats held, subject to expiry
	StateAtGateway ReservationState = -2 // user is at the payment page, immune to expiry
	StateTimedOut  ReservationState = -3 // expired while in cart
	StateCancelled ReservationState = -4 // cancelled by the customer
	StatePaid      ReservationState = 1  // payment confirmed, bookings created
)

var stateNames = map[ReservationState]string{
	StateCart:      "CART",
	StateAtGateway: "AT_GATEWAY",
	StateTimedOut:  "TIMED_OUT",
	StateCancelled: "CANCELLED",
	StatePaid:      "PAID",
}

// transitions enumerates every legal (from, to) pair.  Anything missing is
// rejected by CanTransition.
var transitions = map[ReservationState]map[ReservationState]bool{
	StateCart: {
		StateAtGateway: true,
		StateTimedOut:  true,
		StatePaid:      true,
		StateCancelled: true,
	},
	StateAtGateway: {
		StateAtGateway: true,
		StatePaid:      true,
		StateCancelled: true,
	},
}

func (s ReservationState) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return fmt.Sprintf("UNKNOWN(%d)", int(s))
}

// Valid reports whether s is a known state.
func (s ReservationState) Valid() bool {
	_, ok := stateNames[s]
	return ok
}

// Terminal reports whether no transition leaves s.
func (s ReservationState) Terminal() bool {
	return s.Valid() && len(transitions[s]) == 0
}

// CanTransition reports whether moving from -> to is allowed.
func CanTransition(from, to ReservationState) bool {
	return transitions[from][to]
}

// ParseReservationState maps a state name back to its value.
func ParseReservationState(name string) (ReservationState, bool) {
	for s, n := range stateNames {
		if n == name {
			return s, true
		}
	}
	return 0, false
}

// AgeClass selects which tier price applies to a seat.
type AgeClass string

const (
	AgeAdult AgeClass = "adult"
	AgeChild AgeClass = "child"
)

// Valid reports whether a is a known age class.
func (a AgeClass) Valid() bool { return a == AgeAdult || a == AgeChild }

// PaymentState tracks the gateway outcome for a reservation and its bookings.
type PaymentState string

const (
	PaymentPending    PaymentState = "pending"
	PaymentProcessing PaymentState = "processing"
	PaymentSuccess    PaymentState = "success"
	PaymentFailed     PaymentState = "failed"
)

// PriceSummary is the priced snapshot of a reservation, all amounts in cents.
type PriceSummary struct {
	Subtotal   int64 `json:"subtotal"`
	Commission int64 `json:"commission"`
	Taxes      int64 `json:"taxes"`
	Total      int64 `json:"total"`
}

// TicketLine is the resolved price of one seat in a reservation.
type TicketLine struct {
	SeatID    string   `json:"seat_id"`
	AgeClass  AgeClass `json:"age_class"`
	UnitPrice int64    `json:"unit_price"`
}

// Customer is the optional contact and billing snapshot taken at hold or
// payment time.
type Customer struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty" validate:"omitempty,email"`
	Phone string `json:"phone,omitempty"`
}

// Reservation is a time-boxed hold over a set of seats of one event.
//
// Fields:
//  ID           – reservation id (UUID), also the gateway correlation key.
//  EventID      – event whose seats are held.
//  SeatIDs      – ordered seat labels.
//  State        – lifecycle state, see ReservationState.
//  ExpiresAt    – deadline after which a CART hold may be swept.
//  Price        – price summary.
//  Tickets      – per-seat price lines backing Price.
//  PaymentID    – external payment id once known.
//  PaymentURL   – gateway page the customer was sent to.
//  PaymentState – last gateway verdict.
//  Customer     – optional contact snapshot.
//  ReleasedAt   – set once seats of a cancelled/timed out hold were released.
type Reservation struct {
	ID           string           `json:"reservation_id"`          // reservations.id
	EventID      string           `json:"event_id"`                // reservations.event_id
	SeatIDs      []string         `json:"seat_ids"`                // reservations.seat_ids (JSON)
	State        ReservationState `json:"state"`                   // reservations.state
	ExpiresAt    time.Time        `json:"expires_at"`              // reservations.expires_at
	Price        PriceSummary     `json:"price"`                   // reservations.subtotal..total
	Tickets      []TicketLine     `json:"tickets"`                 // reservations.tickets (JSON)
	PaymentID    *string          `json:"payment_id,omitempty"`    // reservations.payment_id (nullable)
	PaymentURL   *string          `json:"payment_url,omitempty"`   // reservations.payment_url (nullable)
	PaymentState PaymentState     `json:"payment_state"`           // reservations.payment_state
	Customer     *Customer        `json:"customer,omitempty"`      // reservations.customer (JSON, nullable)
	ReleasedAt   *time.Time       `json:"released_at,omitempty"`   // reservations.released_at (nullable)
	CreatedAt    time.Time        `json:"created_at"`              // reservations.created_at
	UpdatedAt    time.Time        `json:"updated_at"`              // reservations.updated_at
}

// Expired reports whether the hold deadline has been reached at now.  The
// MySQL sweep query uses the same expires_at <= now comparison.
func (r *Reservation) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// ReservationBackup is the secondary copy written when a reservation goes to
// the gateway.  It is looked up by PaymentID when a callback arrives without
// the reservation id and the primary row has no payment id yet.
type ReservationBackup struct {
	ReservationID string      // reservation_backups.reservation_id
	PaymentID     *string     // reservation_backups.payment_id (nullable)
	Snapshot      Reservation // reservation_backups.snapshot (JSON)
	CreatedAt     time.Time   // reservation_backups.created_at
}
