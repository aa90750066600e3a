package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/iliyamo/seat-hold-reservation/internal/model"
)

// ReservationRepo provides data access to the reservations table.  State
// changes are conditional on the current state so that the sweeper, the
// payment callback and cancellation arbitrate through the row alone.  All
// timestamps are stored in UTC.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

const reservationColumns = `id, event_id, seat_ids, state, expires_at, subtotal, commission, taxes, total, tickets,
	payment_id, payment_url, payment_state, customer, released_at, created_at, updated_at`

func scanReservation(sc rowScanner) (*model.Reservation, error) {
	var (
		res        model.Reservation
		seatIDs    []byte
		tickets    []byte
		customer   []byte
		paymentID  sql.NullString
		paymentURL sql.NullString
		payState   string
		releasedAt sql.NullTime
	)
	err := sc.Scan(&res.ID, &res.EventID, &seatIDs, &res.State, &res.ExpiresAt,
		&res.Price.Subtotal, &res.Price.Commission, &res.Price.Taxes, &res.Price.Total, &tickets,
		&paymentID, &paymentURL, &payState, &customer, &releasedAt, &res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(seatIDs, &res.SeatIDs); err != nil {
		return nil, err
	}
	if len(tickets) > 0 {
		if err := json.Unmarshal(tickets, &res.Tickets); err != nil {
			return nil, err
		}
	}
	if len(customer) > 0 && string(customer) != "null" {
		res.Customer = &model.Customer{}
		if err := json.Unmarshal(customer, res.Customer); err != nil {
			return nil, err
		}
	}
	if paymentID.Valid {
		res.PaymentID = &paymentID.String
	}
	if paymentURL.Valid {
		res.PaymentURL = &paymentURL.String
	}
	if releasedAt.Valid {
		t := releasedAt.Time
		res.ReleasedAt = &t
	}
	res.PaymentState = model.PaymentState(payState)
	return &res, nil
}

// Create inserts a new reservation.  ErrConflict is returned when the id is
// already taken.
func (r *ReservationRepo) Create(ctx context.Context, res *model.Reservation) error {
	seatIDs, err := json.Marshal(res.SeatIDs)
	if err != nil {
		return err
	}
	tickets, err := json.Marshal(res.Tickets)
	if err != nil {
		return err
	}
	var customer []byte
	if res.Customer != nil {
		if customer, err = json.Marshal(res.Customer); err != nil {
			return err
		}
	}
	if res.PaymentState == "" {
		res.PaymentState = model.PaymentPending
	}
	now := time.Now().UTC()
	if res.CreatedAt.IsZero() {
		res.CreatedAt = now
	}
	res.UpdatedAt = res.CreatedAt
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO reservations (id, event_id, seat_ids, state, expires_at, subtotal, commission, taxes, total, tickets, payment_state, customer, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		res.ID, res.EventID, seatIDs, int(res.State), res.ExpiresAt.UTC(),
		res.Price.Subtotal, res.Price.Commission, res.Price.Taxes, res.Price.Total, tickets,
		string(res.PaymentState), customer, res.CreatedAt, res.UpdatedAt,
	)
	if isDuplicateKey(err) {
		return ErrConflict
	}
	return err
}

// GetByID returns the reservation with the given id or ErrNotFound.
func (r *ReservationRepo) GetByID(ctx context.Context, id string) (*model.Reservation, error) {
	res, err := scanReservation(r.db.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return res, err
}

// GetByPaymentID returns the reservation whose external payment id matches.
func (r *ReservationRepo) GetByPaymentID(ctx context.Context, paymentID string) (*model.Reservation, error) {
	res, err := scanReservation(r.db.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE payment_id = ? LIMIT 1`, paymentID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return res, err
}

// Transition moves the reservation to state to if its current state is one
// of from.  It returns ErrNotFound for an unknown id and ErrStateConflict
// when the row exists but is in another state.
func (r *ReservationRepo) Transition(ctx context.Context, id string, from []model.ReservationState, to model.ReservationState) error {
	if len(from) == 0 {
		return ErrStateConflict
	}
	args := make([]any, 0, len(from)+3)
	args = append(args, int(to), time.Now().UTC(), id)
	for _, s := range from {
		args = append(args, int(s))
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE reservations SET state = ?, updated_at = ? WHERE id = ? AND state IN (`+placeholders(len(from))+`)`,
		args...,
	)
	if err != nil {
		return err
	}
	return r.checkAffected(ctx, res, id)
}

// checkAffected turns a zero-row conditional update into ErrNotFound or
// ErrStateConflict.
func (r *ReservationRepo) checkAffected(ctx context.Context, res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	var one int
	err = r.db.QueryRowContext(ctx, `SELECT 1 FROM reservations WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return ErrStateConflict
}

// UpdatePricing replaces the price summary and ticket lines of a reservation
// that is still in CART.
func (r *ReservationRepo) UpdatePricing(ctx context.Context, id string, price model.PriceSummary, tickets []model.TicketLine) error {
	raw, err := json.Marshal(tickets)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE reservations SET subtotal = ?, commission = ?, taxes = ?, total = ?, tickets = ?, updated_at = ? WHERE id = ? AND state = ?`,
		price.Subtotal, price.Commission, price.Taxes, price.Total, raw, time.Now().UTC(), id, int(model.StateCart),
	)
	if err != nil {
		return err
	}
	return r.checkAffected(ctx, res, id)
}

// SetPayment stores the gateway linkage of a reservation at the gateway and
// marks its payment as processing.
func (r *ReservationRepo) SetPayment(ctx context.Context, id, paymentID, paymentURL string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE reservations SET payment_id = ?, payment_url = ?, payment_state = ?, updated_at = ? WHERE id = ? AND state = ?`,
		paymentID, paymentURL, string(model.PaymentProcessing), time.Now().UTC(), id, int(model.StateAtGateway),
	)
	if err != nil {
		return err
	}
	return r.checkAffected(ctx, res, id)
}

// SetPaymentID fills in the external payment id when none is recorded yet.
// An id that is already set is left untouched.
func (r *ReservationRepo) SetPaymentID(ctx context.Context, id, paymentID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE reservations SET payment_id = ?, updated_at = ? WHERE id = ? AND payment_id IS NULL`,
		paymentID, time.Now().UTC(), id,
	)
	return err
}

// SetPaymentState records the latest gateway verdict.
func (r *ReservationRepo) SetPaymentState(ctx context.Context, id string, state model.PaymentState) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE reservations SET payment_state = ?, updated_at = ? WHERE id = ?`,
		string(state), time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	return r.checkAffected(ctx, res, id)
}

// MarkPaymentFailed records a failed payment unless the reservation is
// already PAID, in which case ErrStateConflict is returned.
func (r *ReservationRepo) MarkPaymentFailed(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE reservations SET payment_state = ?, updated_at = ? WHERE id = ? AND state <> ?`,
		string(model.PaymentFailed), time.Now().UTC(), id, int(model.StatePaid),
	)
	if err != nil {
		return err
	}
	return r.checkAffected(ctx, res, id)
}

// SetCustomer replaces the contact snapshot.
func (r *ReservationRepo) SetCustomer(ctx context.Context, id string, c *model.Customer) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE reservations SET customer = ?, updated_at = ? WHERE id = ?`,
		raw, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	return r.checkAffected(ctx, res, id)
}

// MarkReleased records that the seats of a terminal reservation have been
// released.
func (r *ReservationRepo) MarkReleased(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE reservations SET released_at = ?, updated_at = ? WHERE id = ? AND released_at IS NULL`,
		at.UTC(), time.Now().UTC(), id,
	)
	return err
}

// ListExpiredCart returns up to limit reservations in CART whose deadline is
// at or before now, oldest first.  Reservations at the gateway never match.
func (r *ReservationRepo) ListExpiredCart(ctx context.Context, now time.Time, limit int) ([]model.Reservation, error) {
	return r.list(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE state = ? AND expires_at <= ? ORDER BY expires_at LIMIT ?`,
		int(model.StateCart), now.UTC(), limit,
	)
}

// ListUnreleased returns up to limit timed out or cancelled reservations
// whose seats have not been marked released.
func (r *ReservationRepo) ListUnreleased(ctx context.Context, limit int) ([]model.Reservation, error) {
	return r.list(ctx,
		`SELECT `+reservationColumns+` FROM reservations WHERE state IN (?, ?) AND released_at IS NULL ORDER BY updated_at LIMIT ?`,
		int(model.StateTimedOut), int(model.StateCancelled), limit,
	)
}

func (r *ReservationRepo) list(ctx context.Context, query string, args ...any) ([]model.Reservation, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Reservation{}
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *res)
	}
	return out, rows.Err()
}
