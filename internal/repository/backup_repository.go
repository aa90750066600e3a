package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/iliyamo/seat-hold-reservation/internal/model"
)

// ReservationBackupRepo stores the secondary copy of reservations that went
// to the payment gateway, indexed by external payment id.
type ReservationBackupRepo struct {
	db *sql.DB
}

// NewReservationBackupRepo returns a repo bound to db.
func NewReservationBackupRepo(db *sql.DB) *ReservationBackupRepo {
	return &ReservationBackupRepo{db: db}
}

// Save upserts the backup keyed by reservation id.
func (r *ReservationBackupRepo) Save(ctx context.Context, b model.ReservationBackup) error {
	snap, err := json.Marshal(b.Snapshot)
	if err != nil {
		return err
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO reservation_backups (reservation_id, payment_id, snapshot, created_at) VALUES (?, ?, ?, ?)
		 ON DUPLICATE KEY UPDATE payment_id = COALESCE(VALUES(payment_id), payment_id), snapshot = VALUES(snapshot)`,
		b.ReservationID, b.PaymentID, snap, b.CreatedAt,
	)
	return err
}

// GetByPaymentID returns the backup carrying paymentID or ErrNotFound.
func (r *ReservationBackupRepo) GetByPaymentID(ctx context.Context, paymentID string) (*model.ReservationBackup, error) {
	var (
		b    model.ReservationBackup
		pid  sql.NullString
		snap []byte
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT reservation_id, payment_id, snapshot, created_at FROM reservation_backups WHERE payment_id = ? LIMIT 1`,
		paymentID,
	).Scan(&b.ReservationID, &pid, &snap, &b.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if pid.Valid {
		b.PaymentID = &pid.String
	}
	if err := json.Unmarshal(snap, &b.Snapshot); err != nil {
		return nil, err
	}
	return &b, nil
}

// Delete removes the backup of a reservation.  Deleting a missing backup is
// not an error.
func (r *ReservationBackupRepo) Delete(ctx context.Context, reservationID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM reservation_backups WHERE reservation_id = ?`, reservationID)
	return err
}
