// Package queue carries booking events over RabbitMQ.
package queue

// BookingConfirmedQueue is the durable queue confirmed bookings are
// published to.
const BookingConfirmedQueue = "booking.confirmed"

// BookingConfirmedEvent is published once per reservation when it reaches
// PAID.  It carries enough for downstream consumers to notify the customer
// without querying the store.
type BookingConfirmedEvent struct {
	ReservationID string   `json:"reservation_id"`
	EventID       string   `json:"event_id"`
	EventName     string   `json:"event_name,omitempty"`
	SeatIDs       []string `json:"seats"`
	BookingIDs    []string `json:"booking_ids"`
	TotalCents    int64    `json:"total_cents"`
	Currency      string   `json:"currency,omitempty"`
	PaymentID     string   `json:"payment_id,omitempty"`
	CustomerName  string   `json:"customer_name,omitempty"`
	CustomerPhone string   `json:"customer_phone,omitempty"`
	CustomerEmail string   `json:"customer_email,omitempty"`
	ConfirmedAt   string   `json:"confirmed_at"`
}
