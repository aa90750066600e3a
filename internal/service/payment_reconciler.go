package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/iliyamo/seat-hold-reservation/internal/gateway"
	"github.com/iliyamo/seat-hold-reservation/internal/logger"
	"github.com/iliyamo/seat-hold-reservation/internal/model"
	"github.com/iliyamo/seat-hold-reservation/internal/repository"
)

// Callback is a payment outcome reported by a gateway, either through the
// customer's browser redirect or a server-to-server webhook.
type Callback struct {
	ExternalPaymentID string
	CorrelationKey    string // reservation id, when the gateway echoes it
	Verdict           gateway.Verdict
	TransactionID     string
	Source            string // "callback", "return" or "webhook"; logged only
}

// ReconcileResult is the outcome of applying a Callback.
type ReconcileResult struct {
	Success       bool   `json:"success"`
	ReservationID string `json:"reservation_id"`
}

// PaymentReconciler applies gateway callbacks to reservations.  Callbacks
// may arrive more than once and in any order; applying the same callback
// again yields the same result.
type PaymentReconciler struct {
	manager  *ReservationManager
	res      ReservationStore
	backups  BackupStore
	bookings BookingStore
}

func NewPaymentReconciler(manager *ReservationManager, res ReservationStore, backups BackupStore, bookings BookingStore) *PaymentReconciler {
	return &PaymentReconciler{manager: manager, res: res, backups: backups, bookings: bookings}
}

// Reconcile finds the reservation a callback is about and applies its
// verdict.  A failure verdict for a reservation that is already PAID is
// stale and ignored.
func (p *PaymentReconciler) Reconcile(ctx context.Context, cb Callback) (ReconcileResult, error) {
	if !cb.Verdict.Valid() {
		return ReconcileResult{}, fmt.Errorf("unknown verdict %q", cb.Verdict)
	}
	res, err := p.find(ctx, cb)
	if err != nil {
		return ReconcileResult{}, err
	}
	log := logger.With(
		zap.String("reservation_id", res.ID),
		zap.String("payment_id", cb.ExternalPaymentID),
		zap.String("source", cb.Source),
		zap.String("verdict", string(cb.Verdict)),
	)
	out := ReconcileResult{ReservationID: res.ID}

	if cb.Verdict == gateway.VerdictFailure {
		if res.State == model.StatePaid {
			log.Warn("ignoring failure verdict for a paid reservation")
			out.Success = true
			return out, nil
		}
		// Bookings only exist once PAID.
		err := p.res.MarkPaymentFailed(ctx, res.ID)
		if errors.Is(err, repository.ErrStateConflict) {
			log.Warn("ignoring failure verdict, reservation was paid concurrently")
			out.Success = true
			return out, nil
		}
		if err != nil {
			return out, fmt.Errorf("mark payment failed: %w", err)
		}
		log.Info("payment failed")
		return out, nil
	}

	if _, err := p.manager.ConfirmPayment(ctx, res.ID, cb.ExternalPaymentID); err != nil {
		return out, err
	}
	if err := p.res.SetPaymentState(ctx, res.ID, model.PaymentSuccess); err != nil {
		return out, fmt.Errorf("set payment state: %w", err)
	}
	txn := cb.TransactionID
	if txn == "" {
		txn = cb.ExternalPaymentID
	}
	var txnPtr *string
	if txn != "" {
		txnPtr = &txn
	}
	if _, err := p.bookings.SetPaymentState(ctx, res.ID, model.PaymentSuccess, txnPtr); err != nil {
		return out, fmt.Errorf("set booking payment state: %w", err)
	}
	log.Info("payment reconciled")
	out.Success = true
	return out, nil
}

// find resolves the reservation by correlation key, then by payment id on
// the primary store, then through the backup table.  A reservation found
// only through its backup gets its payment id restored.
func (p *PaymentReconciler) find(ctx context.Context, cb Callback) (*model.Reservation, error) {
	if cb.CorrelationKey != "" {
		res, err := p.res.GetByID(ctx, cb.CorrelationKey)
		if err == nil {
			return res, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("load reservation: %w", err)
		}
	}
	if cb.ExternalPaymentID == "" {
		return nil, ErrReservationNotFound
	}

	res, err := p.res.GetByPaymentID(ctx, cb.ExternalPaymentID)
	if err == nil {
		return res, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("load reservation by payment: %w", err)
	}

	b, err := p.backups.GetByPaymentID(ctx, cb.ExternalPaymentID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrReservationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load backup: %w", err)
	}
	res, err = p.res.GetByID(ctx, b.ReservationID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrReservationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load reservation: %w", err)
	}
	if res.PaymentID == nil {
		if err := p.res.SetPaymentID(ctx, res.ID, cb.ExternalPaymentID); err != nil {
			logger.Warn("restore payment id from backup failed", zap.String("reservation_id", res.ID), zap.Error(err))
		} else {
			id := cb.ExternalPaymentID
			res.PaymentID = &id
		}
	}
	logger.Info("reservation resolved through backup", zap.String("reservation_id", res.ID))
	return res, nil
}
