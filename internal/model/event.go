package model

import "time"

// CommissionKind selects how the service fee is computed.
type CommissionKind string

const (
	CommissionNone    CommissionKind = ""
	CommissionPercent CommissionKind = "percent"
	CommissionFlat    CommissionKind = "flat"
)

// Commission is the configured service fee of an event.  Value is a
// percentage for CommissionPercent and cents per seat for CommissionFlat.
type Commission struct {
	Kind  CommissionKind `json:"kind"`
	Value float64        `json:"value"`
}

// TicketType is a price tier seats can be assigned to.  A zero ChildPrice
// means the tier has no child discount.
type TicketType struct {
	ID         string `json:"id"`          // ticket_types.id
	Name       string `json:"name"`        // ticket_types.name
	AdultPrice int64  `json:"adult_price"` // ticket_types.adult_price_cents
	ChildPrice int64  `json:"child_price"` // ticket_types.child_price_cents
}

// Event is the read-only view of an event needed to hold and price seats.
// Events are managed elsewhere; this service only reads them.
type Event struct {
	ID           string       `json:"id"`            // events.id
	Name         string       `json:"name"`          // events.name
	DefaultPrice int64        `json:"default_price"` // events.default_price_cents
	TicketTypes  []TicketType `json:"ticket_types"`
	Commission   Commission   `json:"commission"`  // events.commission_kind, commission_value
	TaxPercent   float64      `json:"tax_percent"` // events.tax_percent
	SaleStart    *time.Time   `json:"sale_start,omitempty"`
	SaleEnd      *time.Time   `json:"sale_end,omitempty"`
	SaleEnabled  bool         `json:"sale_enabled"`
	Currency     string       `json:"currency"`
}

// TicketType returns the tier with the given id.
func (e *Event) TicketType(id string) (TicketType, bool) {
	for _, t := range e.TicketTypes {
		if t.ID == id {
			return t, true
		}
	}
	return TicketType{}, false
}

// OnSale reports whether holds may be placed at now.  Missing window bounds
// are open ended.
func (e *Event) OnSale(now time.Time) bool {
	if !e.SaleEnabled {
		return false
	}
	if e.SaleStart != nil && now.Before(*e.SaleStart) {
		return false
	}
	if e.SaleEnd != nil && !now.Before(*e.SaleEnd) {
		return false
	}
	return true
}
