package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/seat-hold-reservation/internal/model"
)

// BookingRepo provides data access to the bookings table.  The unique key on
// (reservation_id, seat_id) makes creation insert-if-absent.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a BookingRepo bound to db.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = `id, reservation_id, event_id, seat_id, age_class, price_cents, payment_state, transaction_id, created_at`

// CreateForReservation inserts the given bookings, skipping any seat that
// already has a booking for the same reservation.
func (r *BookingRepo) CreateForReservation(ctx context.Context, bookings []model.Booking) error {
	if len(bookings) == 0 {
		return nil
	}
	query := `INSERT INTO bookings (` + bookingColumns + `) VALUES `
	args := make([]any, 0, len(bookings)*9)
	now := time.Now().UTC()
	for i, b := range bookings {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?, ?, ?, ?, ?)"
		created := b.CreatedAt
		if created.IsZero() {
			created = now
		}
		args = append(args, b.ID, b.ReservationID, b.EventID, b.SeatID, string(b.AgeClass), b.PriceCents, string(b.PaymentState), b.TransactionID, created)
	}
	// A duplicate key is a no-op; other errors still surface.
	query += ` ON DUPLICATE KEY UPDATE id = id`
	_, err := r.db.ExecContext(ctx, query, args...)
	return err
}

// ListByReservation returns the bookings of a reservation.
func (r *BookingRepo) ListByReservation(ctx context.Context, reservationID string) ([]model.Booking, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE reservation_id = ? ORDER BY created_at, seat_id`,
		reservationID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// GetByID returns a single booking or ErrNotFound.
func (r *BookingRepo) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// SetPaymentState updates the payment state of every booking of a
// reservation and attaches the transaction id when one is given.  It returns
// the number of bookings touched.
func (r *BookingRepo) SetPaymentState(ctx context.Context, reservationID string, state model.PaymentState, transactionID *string) (int, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE bookings SET payment_state = ?, transaction_id = COALESCE(?, transaction_id) WHERE reservation_id = ?`,
		string(state), transactionID, reservationID,
	)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func scanBooking(sc rowScanner) (model.Booking, error) {
	var (
		b     model.Booking
		age   string
		state string
		txn   sql.NullString
	)
	if err := sc.Scan(&b.ID, &b.ReservationID, &b.EventID, &b.SeatID, &age, &b.PriceCents, &state, &txn, &b.CreatedAt); err != nil {
		return model.Booking{}, err
	}
	b.AgeClass = model.AgeClass(age)
	b.PaymentState = model.PaymentState(state)
	if txn.Valid {
		b.TransactionID = &txn.String
	}
	return b, nil
}
