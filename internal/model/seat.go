package model

import "time"

// SeatState is the lifecycle state of a seat.  Only available seats can be
// held; broken, blocked and aisle seats are layout markers that never move.
type SeatState string

const (
	SeatAvailable SeatState = "available"
	SeatPending   SeatState = "pending"
	SeatBooked    SeatState = "booked"
	SeatBroken    SeatState = "broken"
	SeatBlocked   SeatState = "blocked"
	SeatAisle     SeatState = "aisle"
)

// Valid reports whether s is one of the known seat states.
func (s SeatState) Valid() bool {
	switch s {
	case SeatAvailable, SeatPending, SeatBooked, SeatBroken, SeatBlocked, SeatAisle:
		return true
	}
	return false
}

// Seat describes one seat of an event.  Seats are uniquely identified by
// their event and label (for example "C12").  HoldID is set iff the seat is
// pending; BookedBy is set iff the seat is booked.
//
// Fields:
//  EventID       – event the seat belongs to.
//  Label         – unique label within the event, used as the seat id.
//  RowLabel      – row letter(s) produced by the grid generator.
//  Number        – seat number within the row.
//  State         – current seat state.
//  HoldID        – reservation currently holding the seat.
//  BookedBy      – reservation that booked the seat.
//  TicketTypeID  – optional price tier assignment.
//  PriceOverride – optional per-seat price in cents.
type Seat struct {
	EventID       string    `json:"event_id"`                       // seats.event_id
	Label         string    `json:"label"`                          // seats.label
	RowLabel      string    `json:"row_label,omitempty"`            // seats.row_label
	Number        int       `json:"number,omitempty"`               // seats.number
	State         SeatState `json:"state"`                          // seats.state
	HoldID        *string   `json:"-"`                              // seats.hold_id (nullable)
	BookedBy      *string   `json:"-"`                              // seats.booked_by (nullable)
	TicketTypeID  *string   `json:"ticket_type_id,omitempty"`       // seats.ticket_type_id (nullable)
	PriceOverride *int64    `json:"price_override_cents,omitempty"` // seats.price_override_cents (nullable)
	UpdatedAt     time.Time `json:"updated_at"`                     // seats.updated_at
}
