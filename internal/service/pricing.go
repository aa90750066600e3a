package service

import (
	"math"

	"github.com/iliyamo/seat-hold-reservation/internal/model"
)

// Pricer resolves seat prices and the reservation summary for an event.
type Pricer struct{}

// UnitPrice resolves the price of one seat for the age class: the seat's
// ticket tier first, then the seat override, then the event default.  A
// child ticket on a tier without a child price pays the adult price.
func (Pricer) UnitPrice(ev *model.Event, seat model.Seat, age model.AgeClass) int64 {
	if seat.TicketTypeID != nil {
		if tt, ok := ev.TicketType(*seat.TicketTypeID); ok {
			if age == model.AgeChild && tt.ChildPrice > 0 {
				return tt.ChildPrice
			}
			return tt.AdultPrice
		}
	}
	if seat.PriceOverride != nil {
		return *seat.PriceOverride
	}
	return ev.DefaultPrice
}

// Quote prices seats in the given order.  Seats missing from ages are adult.
func (p Pricer) Quote(ev *model.Event, seats []model.Seat, ages map[string]model.AgeClass) (model.PriceSummary, []model.TicketLine) {
	lines := make([]model.TicketLine, 0, len(seats))
	var subtotal int64
	for _, s := range seats {
		age := ages[s.Label]
		if !age.Valid() {
			age = model.AgeAdult
		}
		price := p.UnitPrice(ev, s, age)
		subtotal += price
		lines = append(lines, model.TicketLine{SeatID: s.Label, AgeClass: age, UnitPrice: price})
	}

	var commission int64
	switch ev.Commission.Kind {
	case model.CommissionPercent:
		commission = percentOf(subtotal, ev.Commission.Value)
	case model.CommissionFlat:
		commission = int64(math.Round(ev.Commission.Value)) * int64(len(seats))
	}
	taxes := percentOf(subtotal+commission, ev.TaxPercent)
	return model.PriceSummary{
		Subtotal:   subtotal,
		Commission: commission,
		Taxes:      taxes,
		Total:      subtotal + commission + taxes,
	}, lines
}

// percentOf returns pct percent of cents rounded half away from zero.
func percentOf(cents int64, pct float64) int64 {
	if pct == 0 || cents == 0 {
		return 0
	}
	return int64(math.Round(float64(cents) * pct / 100))
}
