package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/seat-hold-reservation/internal/model"
)

// EventRepo reads events and their ticket tiers.  Events are owned by the
// catalogue service; this repo never writes them outside seeding.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo returns an EventRepo bound to db.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

// GetEvent returns the event with its ticket types or ErrNotFound.
func (r *EventRepo) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	var (
		ev        model.Event
		kind      sql.NullString
		value     sql.NullFloat64
		saleStart sql.NullTime
		saleEnd   sql.NullTime
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, default_price_cents, commission_kind, commission_value, tax_percent, sale_start, sale_end, sale_enabled, currency
		 FROM events WHERE id = ?`, id,
	).Scan(&ev.ID, &ev.Name, &ev.DefaultPrice, &kind, &value, &ev.TaxPercent, &saleStart, &saleEnd, &ev.SaleEnabled, &ev.Currency)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	ev.Commission = model.Commission{Kind: model.CommissionKind(kind.String), Value: value.Float64}
	if saleStart.Valid {
		t := saleStart.Time
		ev.SaleStart = &t
	}
	if saleEnd.Valid {
		t := saleEnd.Time
		ev.SaleEnd = &t
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, adult_price_cents, child_price_cents FROM ticket_types WHERE event_id = ? ORDER BY id`, id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ev.TicketTypes = []model.TicketType{}
	for rows.Next() {
		var (
			tt    model.TicketType
			child sql.NullInt64
		)
		if err := rows.Scan(&tt.ID, &tt.Name, &tt.AdultPrice, &child); err != nil {
			return nil, err
		}
		tt.ChildPrice = child.Int64
		ev.TicketTypes = append(ev.TicketTypes, tt)
	}
	return &ev, rows.Err()
}

// Create inserts an event and its ticket types in one transaction.  It is
// used by seeding only.
func (r *EventRepo) Create(ctx context.Context, ev *model.Event) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO events (id, name, default_price_cents, commission_kind, commission_value, tax_percent, sale_start, sale_end, sale_enabled, currency)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.Name, ev.DefaultPrice, string(ev.Commission.Kind), ev.Commission.Value, ev.TaxPercent,
		ev.SaleStart, ev.SaleEnd, ev.SaleEnabled, ev.Currency,
	); err != nil {
		if isDuplicateKey(err) {
			return ErrConflict
		}
		return err
	}
	for _, tt := range ev.TicketTypes {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO ticket_types (id, event_id, name, adult_price_cents, child_price_cents) VALUES (?, ?, ?, ?, ?)`,
			tt.ID, ev.ID, tt.Name, tt.AdultPrice, tt.ChildPrice,
		); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}
