package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/seat-hold-reservation/internal/model"
)

// SeatRepo provides data access to the seats table.  Every state change is
// a conditional UPDATE checked through RowsAffected, so concurrent callers
// on any number of instances serialize on the row itself.  The DSN must
// carry clientFoundRows=true so RowsAffected reports matched rows.
type SeatRepo struct {
	db *sql.DB
}

// NewSeatRepo constructs a SeatRepo with the given DB handle.
func NewSeatRepo(db *sql.DB) *SeatRepo { return &SeatRepo{db: db} }

const seatColumns = `event_id, label, row_label, number, state, hold_id, booked_by, ticket_type_id, price_override_cents, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSeat(sc rowScanner) (model.Seat, error) {
	var (
		s        model.Seat
		state    string
		holdID   sql.NullString
		bookedBy sql.NullString
		tier     sql.NullString
		override sql.NullInt64
	)
	if err := sc.Scan(&s.EventID, &s.Label, &s.RowLabel, &s.Number, &state, &holdID, &bookedBy, &tier, &override, &s.UpdatedAt); err != nil {
		return model.Seat{}, err
	}
	s.State = model.SeatState(state)
	if holdID.Valid {
		s.HoldID = &holdID.String
	}
	if bookedBy.Valid {
		s.BookedBy = &bookedBy.String
	}
	if tier.Valid {
		s.TicketTypeID = &tier.String
	}
	if override.Valid {
		s.PriceOverride = &override.Int64
	}
	return s, nil
}

// CreateBulk inserts multiple seats in a single statement.  It is used when
// an event's seat map is generated.
func (r *SeatRepo) CreateBulk(ctx context.Context, seats []model.Seat) error {
	if len(seats) == 0 {
		return nil
	}
	query := `INSERT INTO seats (event_id, label, row_label, number, state, ticket_type_id, price_override_cents, updated_at) VALUES `
	args := make([]any, 0, len(seats)*8)
	now := time.Now().UTC()
	for i, s := range seats {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?, ?, ?, ?)"
		state := s.State
		if state == "" {
			state = model.SeatAvailable
		}
		args = append(args, s.EventID, s.Label, s.RowLabel, s.Number, string(state), s.TicketTypeID, s.PriceOverride, now)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if isDuplicateKey(err) {
			return ErrConflict
		}
		return err
	}
	return nil
}

// GetByLabels returns the seats of the event whose labels are listed.
// Unknown labels are simply absent from the result.
func (r *SeatRepo) GetByLabels(ctx context.Context, eventID string, labels []string) ([]model.Seat, error) {
	labels = dedupe(labels)
	if len(labels) == 0 {
		return []model.Seat{}, nil
	}
	args := make([]any, 0, len(labels)+1)
	args = append(args, eventID)
	for _, l := range labels {
		args = append(args, l)
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+seatColumns+` FROM seats WHERE event_id = ? AND label IN (`+placeholders(len(labels))+`)`,
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSeats(rows)
}

// ListByEvent returns the full seat map of an event ordered by row and number.
func (r *SeatRepo) ListByEvent(ctx context.Context, eventID string) ([]model.Seat, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+seatColumns+` FROM seats WHERE event_id = ? ORDER BY CHAR_LENGTH(row_label), row_label, number, label`,
		eventID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSeats(rows)
}

func collectSeats(rows *sql.Rows) ([]model.Seat, error) {
	out := []model.Seat{}
	for rows.Next() {
		s, err := scanSeat(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// TryLock moves every listed seat from available to pending under holdID,
// one conditional UPDATE per seat.  If any seat cannot be locked (taken,
// not holdable or unknown) the seats locked so far are put back to
// available and the failing labels are returned.  On success failed is nil.
func (r *SeatRepo) TryLock(ctx context.Context, eventID string, labels []string, holdID string) (locked, failed []string, err error) {
	labels = dedupe(labels)
	now := time.Now().UTC()
	for _, label := range labels {
		res, execErr := r.db.ExecContext(ctx,
			`UPDATE seats SET state = 'pending', hold_id = ?, updated_at = ? WHERE event_id = ? AND label = ? AND state = 'available'`,
			holdID, now, eventID, label,
		)
		if execErr != nil {
			if undoErr := r.unlock(ctx, eventID, locked, holdID); undoErr != nil {
				return nil, nil, undoErr
			}
			return nil, nil, execErr
		}
		n, execErr := res.RowsAffected()
		if execErr != nil {
			if undoErr := r.unlock(ctx, eventID, append(locked, label), holdID); undoErr != nil {
				return nil, nil, undoErr
			}
			return nil, nil, execErr
		}
		if n == 1 {
			locked = append(locked, label)
		} else {
			failed = append(failed, label)
		}
	}
	if len(failed) > 0 {
		if err := r.unlock(ctx, eventID, locked, holdID); err != nil {
			return nil, failed, err
		}
		return nil, failed, nil
	}
	return locked, nil, nil
}

// unlock reverts the seats this hold managed to lock.  It runs detached from
// the request context so a cancelled client cannot leave seats pending.
func (r *SeatRepo) unlock(ctx context.Context, eventID string, labels []string, holdID string) error {
	if len(labels) == 0 {
		return nil
	}
	args := make([]any, 0, len(labels)+3)
	args = append(args, time.Now().UTC(), eventID, holdID)
	for _, l := range labels {
		args = append(args, l)
	}
	_, err := r.db.ExecContext(context.WithoutCancel(ctx),
		`UPDATE seats SET state = 'available', hold_id = NULL, updated_at = ? WHERE event_id = ? AND state = 'pending' AND hold_id = ? AND label IN (`+placeholders(len(labels))+`)`,
		args...,
	)
	return err
}

// Confirm moves the listed seats from pending to booked where they are still
// held by holdID and returns how many of them are booked by holdID
// afterwards, counting seats a previous attempt already booked.  When that
// count is short of len(labels) the transaction is rolled back, so a caller
// never observes a half-booked set.
func (r *SeatRepo) Confirm(ctx context.Context, eventID string, labels []string, holdID string) (int, error) {
	labels = dedupe(labels)
	if len(labels) == 0 {
		return 0, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	in := placeholders(len(labels))
	args := make([]any, 0, len(labels)+4)
	args = append(args, holdID, time.Now().UTC(), eventID, holdID)
	for _, l := range labels {
		args = append(args, l)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE seats SET state = 'booked', hold_id = NULL, booked_by = ?, updated_at = ? WHERE event_id = ? AND state = 'pending' AND hold_id = ? AND label IN (`+in+`)`,
		args...,
	); err != nil {
		return 0, err
	}

	countArgs := make([]any, 0, len(labels)+2)
	countArgs = append(countArgs, eventID, holdID)
	for _, l := range labels {
		countArgs = append(countArgs, l)
	}
	var booked int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM seats WHERE event_id = ? AND state = 'booked' AND booked_by = ? AND label IN (`+in+`)`,
		countArgs...,
	).Scan(&booked); err != nil {
		return 0, err
	}
	if booked != len(labels) {
		return booked, nil
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	committed = true
	return booked, nil
}

// Release moves every seat still pending under holdID back to available and
// returns the number of seats released.
func (r *SeatRepo) Release(ctx context.Context, holdID string) (int, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE seats SET state = 'available', hold_id = NULL, updated_at = ? WHERE hold_id = ? AND state = 'pending'`,
		time.Now().UTC(), holdID,
	)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}
