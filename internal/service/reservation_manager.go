package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iliyamo/seat-hold-reservation/internal/gateway"
	"github.com/iliyamo/seat-hold-reservation/internal/logger"
	"github.com/iliyamo/seat-hold-reservation/internal/metrics"
	"github.com/iliyamo/seat-hold-reservation/internal/model"
	"github.com/iliyamo/seat-hold-reservation/internal/queue"
	"github.com/iliyamo/seat-hold-reservation/internal/repository"
)

const (
	defaultHoldDuration = 10 * time.Minute
	defaultHoldMax      = 30 * time.Minute
)

// ReservationManager drives a reservation from hold to payment, expiry or
// cancellation.  It keeps no state of its own; every decision is a
// conditional update in the stores, so any number of instances can run side
// by side.
type ReservationManager struct {
	seats    SeatStore
	res      ReservationStore
	backups  BackupStore
	bookings BookingStore
	events   EventSource
	gateway  gateway.PaymentGateway
	pricer   Pricer

	pub         EventPublisher
	metrics     *metrics.Metrics
	now         Clock
	newID       func() string
	holdDefault time.Duration
	holdMax     time.Duration
	currency    string
}

// Option configures a ReservationManager.
type Option func(*ReservationManager)

// WithClock replaces time.Now.
func WithClock(c Clock) Option { return func(m *ReservationManager) { m.now = c } }

// WithHoldDurations sets the default and maximum hold.  Zero keeps the
// built-in value.
func WithHoldDurations(def, limit time.Duration) Option {
	return func(m *ReservationManager) {
		if def > 0 {
			m.holdDefault = def
		}
		if limit > 0 {
			m.holdMax = limit
		}
	}
}

// WithPublisher sets where booking confirmations are announced.
func WithPublisher(p EventPublisher) Option { return func(m *ReservationManager) { m.pub = p } }

// WithMetrics sets the collectors to record on.
func WithMetrics(mt *metrics.Metrics) Option { return func(m *ReservationManager) { m.metrics = mt } }

// WithCurrency sets the currency used when an event has none.
func WithCurrency(c string) Option { return func(m *ReservationManager) { m.currency = c } }

// WithIDGenerator replaces uuid.NewString for reservation and booking ids.
func WithIDGenerator(fn func() string) Option { return func(m *ReservationManager) { m.newID = fn } }

func NewReservationManager(
	seats SeatStore,
	res ReservationStore,
	backups BackupStore,
	bookings BookingStore,
	events EventSource,
	gw gateway.PaymentGateway,
	opts ...Option,
) *ReservationManager {
	m := &ReservationManager{
		seats:       seats,
		res:         res,
		backups:     backups,
		bookings:    bookings,
		events:      events,
		gateway:     gw,
		now:         func() time.Time { return time.Now().UTC() },
		newID:       uuid.NewString,
		holdDefault: defaultHoldDuration,
		holdMax:     defaultHoldMax,
		currency:    "usd",
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.metrics == nil {
		m.metrics = metrics.Nop()
	}
	if m.holdDefault > m.holdMax {
		m.holdDefault = m.holdMax
	}
	return m
}

// CreateHoldInput is the request to hold seats of one event.
type CreateHoldInput struct {
	EventID      string
	SeatIDs      []string
	HoldDuration time.Duration // zero means the configured default
	Customer     *model.Customer
}

// CreateHold locks every requested seat or none of them and records a CART
// reservation that expires after the hold duration.
func (m *ReservationManager) CreateHold(ctx context.Context, in CreateHoldInput) (*model.Reservation, error) {
	labels := normalizeLabels(in.SeatIDs)
	if len(labels) == 0 {
		return nil, ErrEmptySeatList
	}
	ev, err := m.event(ctx, in.EventID)
	if err != nil {
		m.holdOutcome(err)
		return nil, err
	}
	now := m.now()
	if !ev.OnSale(now) {
		m.metrics.HoldsTotal.WithLabelValues("closed").Inc()
		return nil, ErrSaleClosed
	}

	seats, err := m.orderedSeats(ctx, ev.ID, labels)
	if err != nil {
		m.holdOutcome(err)
		return nil, err
	}

	id := m.newID()
	_, failed, err := m.seats.TryLock(ctx, ev.ID, labels, id)
	if err != nil {
		m.metrics.HoldsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("lock seats: %w", err)
	}
	if len(failed) > 0 {
		m.metrics.HoldsTotal.WithLabelValues("contention").Inc()
		return nil, &SeatError{Kind: SeatUnavailable, Seats: failed}
	}

	price, lines := m.pricer.Quote(ev, seats, nil)
	res := &model.Reservation{
		ID:           id,
		EventID:      ev.ID,
		SeatIDs:      labels,
		State:        model.StateCart,
		ExpiresAt:    now.Add(m.clampHold(in.HoldDuration)),
		Price:        price,
		Tickets:      lines,
		PaymentState: model.PaymentPending,
		Customer:     in.Customer,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := m.res.Create(ctx, res); err != nil {
		if _, rerr := m.seats.Release(context.WithoutCancel(ctx), id); rerr != nil {
			logger.Error("release after failed reservation insert", zap.String("reservation_id", id), zap.Error(rerr))
		}
		m.metrics.HoldsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("persist reservation: %w", err)
	}

	m.metrics.HoldsTotal.WithLabelValues("success").Inc()
	logger.Info("seats held",
		zap.String("reservation_id", id),
		zap.String("event_id", ev.ID),
		zap.Strings("seats", labels),
		zap.Time("expires_at", res.ExpiresAt),
	)
	return res, nil
}

func (m *ReservationManager) holdOutcome(err error) {
	outcome := "error"
	if _, kind, ok := SeatsOf(err); ok && kind == SeatNotFound {
		outcome = "not_found"
	} else if errors.Is(err, ErrEventNotFound) {
		outcome = "not_found"
	}
	m.metrics.HoldsTotal.WithLabelValues(outcome).Inc()
}

func (m *ReservationManager) clampHold(d time.Duration) time.Duration {
	if d <= 0 {
		d = m.holdDefault
	}
	if d > m.holdMax {
		d = m.holdMax
	}
	return d
}

// UpdateTickets assigns age classes to seats of a CART reservation and
// re-prices it.  Seats left out of assignments are priced as adult.
func (m *ReservationManager) UpdateTickets(ctx context.Context, reservationID string, assignments map[string]model.AgeClass) (*model.Reservation, error) {
	res, err := m.load(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if res.State != model.StateCart {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTransition, res.State)
	}
	if res.Expired(m.now()) {
		return nil, ErrHoldExpired
	}

	held := make(map[string]struct{}, len(res.SeatIDs))
	for _, s := range res.SeatIDs {
		held[s] = struct{}{}
	}
	var unknown []string
	for label := range assignments {
		if _, ok := held[label]; !ok {
			unknown = append(unknown, label)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, &SeatError{Kind: SeatNotFound, Seats: unknown}
	}

	ev, err := m.event(ctx, res.EventID)
	if err != nil {
		return nil, err
	}
	seats, err := m.orderedSeats(ctx, res.EventID, res.SeatIDs)
	if err != nil {
		return nil, err
	}
	price, lines := m.pricer.Quote(ev, seats, assignments)
	if err := m.res.UpdatePricing(ctx, res.ID, price, lines); err != nil {
		if errors.Is(err, repository.ErrStateConflict) {
			return nil, ErrInvalidTransition
		}
		return nil, fmt.Errorf("update pricing: %w", err)
	}
	res.Price = price
	res.Tickets = lines
	return res, nil
}

// BeginGatewayRedirect moves the reservation to AT_GATEWAY, which takes it
// out of the sweeper's reach, and opens a payment page for its total.
// Calling it again on an AT_GATEWAY reservation opens a fresh page.
func (m *ReservationManager) BeginGatewayRedirect(ctx context.Context, reservationID string, customer *model.Customer) (*model.Reservation, error) {
	res, err := m.load(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	now := m.now()
	switch res.State {
	case model.StateCart:
		if res.Expired(now) {
			return nil, ErrHoldExpired
		}
	case model.StateAtGateway:
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidTransition, res.State)
	}
	ev, err := m.event(ctx, res.EventID)
	if err != nil {
		return nil, err
	}

	if customer != nil {
		if err := m.res.SetCustomer(ctx, res.ID, customer); err != nil {
			return nil, fmt.Errorf("set customer: %w", err)
		}
		res.Customer = customer
	}
	if err := m.res.Transition(ctx, res.ID, []model.ReservationState{model.StateCart, model.StateAtGateway}, model.StateAtGateway); err != nil {
		if errors.Is(err, repository.ErrStateConflict) {
			return nil, ErrInvalidTransition
		}
		return nil, fmt.Errorf("transition to gateway: %w", err)
	}
	res.State = model.StateAtGateway

	if err := m.backups.Save(ctx, model.ReservationBackup{ReservationID: res.ID, Snapshot: *res, CreatedAt: now}); err != nil {
		return nil, fmt.Errorf("save backup: %w", err)
	}

	req := gateway.IntentRequest{
		Amount:        res.Price.Total,
		Currency:      m.currencyOf(ev),
		CorrelationID: res.ID,
		Description:   fmt.Sprintf("%s: %s", ev.Name, strings.Join(res.SeatIDs, ", ")),
	}
	if res.Customer != nil {
		req.CustomerEmail = res.Customer.Email
	}
	intent, err := m.gateway.CreatePaymentIntent(ctx, req)
	if err != nil {
		m.metrics.GatewayRequestsTotal.WithLabelValues(m.gateway.Name(), "error").Inc()
		logger.Warn("payment intent failed", zap.String("reservation_id", res.ID), zap.String("gateway", m.gateway.Name()), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	m.metrics.GatewayRequestsTotal.WithLabelValues(m.gateway.Name(), "ok").Inc()

	// The backup learns the payment id before the primary row does, so a
	// webhook that only carries that id can be matched even if the write
	// below is slow or lost.
	snap := *res
	snap.PaymentID = &intent.ExternalID
	snap.PaymentURL = &intent.PaymentURL
	snap.PaymentState = model.PaymentProcessing
	if err := m.backups.Save(ctx, model.ReservationBackup{ReservationID: res.ID, PaymentID: &intent.ExternalID, Snapshot: snap, CreatedAt: now}); err != nil {
		logger.Warn("backup payment id failed", zap.String("reservation_id", res.ID), zap.String("payment_id", intent.ExternalID), zap.Error(err))
	}

	if err := m.res.SetPayment(ctx, res.ID, intent.ExternalID, intent.PaymentURL); err != nil {
		if errors.Is(err, repository.ErrStateConflict) {
			return nil, ErrInvalidTransition
		}
		return nil, fmt.Errorf("store payment: %w", err)
	}
	res.PaymentID = snap.PaymentID
	res.PaymentURL = snap.PaymentURL
	res.PaymentState = model.PaymentProcessing

	logger.Info("redirecting to gateway",
		zap.String("reservation_id", res.ID),
		zap.String("gateway", m.gateway.Name()),
		zap.String("payment_id", intent.ExternalID),
	)
	return res, nil
}

// ConfirmPayment marks the reservation PAID, books its seats and returns one
// booking per seat in seat order.  It is idempotent: a replay on a PAID
// reservation repeats the seat and booking steps, which are no-ops when they
// already happened, and returns the same bookings.
//
// A CART reservation past its deadline is still confirmed when the sweeper
// has not timed it out yet; whichever state change commits first wins.
func (m *ReservationManager) ConfirmPayment(ctx context.Context, reservationID, externalPaymentID string) ([]model.Booking, error) {
	res, err := m.load(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	log := logger.With(zap.String("reservation_id", res.ID))

	first := false
	switch res.State {
	case model.StatePaid:
	case model.StateCart, model.StateAtGateway:
		if res.State == model.StateCart && res.Expired(m.now()) {
			log.Warn("confirming payment for an expired hold that was not swept yet")
		}
		err := m.res.Transition(ctx, res.ID, []model.ReservationState{model.StateCart, model.StateAtGateway}, model.StatePaid)
		switch {
		case err == nil:
			first = true
		case errors.Is(err, repository.ErrStateConflict):
			cur, lerr := m.load(ctx, res.ID)
			if lerr != nil {
				return nil, lerr
			}
			if cur.State != model.StatePaid {
				m.metrics.ConfirmationsTotal.WithLabelValues("invalid").Inc()
				return nil, fmt.Errorf("%w: %s", ErrInvalidTransition, cur.State)
			}
		default:
			m.metrics.ConfirmationsTotal.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("transition to paid: %w", err)
		}
		res.State = model.StatePaid
	default:
		m.metrics.ConfirmationsTotal.WithLabelValues("invalid").Inc()
		return nil, fmt.Errorf("%w: %s", ErrInvalidTransition, res.State)
	}

	if externalPaymentID != "" && res.PaymentID == nil {
		if err := m.res.SetPaymentID(ctx, res.ID, externalPaymentID); err != nil {
			log.Warn("record payment id failed", zap.Error(err))
		} else {
			res.PaymentID = &externalPaymentID
		}
	}

	n, err := m.seats.Confirm(ctx, res.EventID, res.SeatIDs, res.ID)
	if err != nil {
		m.metrics.ConfirmationsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("confirm seats: %w", err)
	}
	if n != len(res.SeatIDs) {
		m.metrics.ConfirmationsTotal.WithLabelValues("partial").Inc()
		log.Error("paid reservation could not book all seats",
			zap.Int("confirmed", n),
			zap.Int("expected", len(res.SeatIDs)),
		)
		return nil, fmt.Errorf("%w: %d of %d seats", ErrPartialConfirmation, n, len(res.SeatIDs))
	}

	bookings, err := m.ensureBookings(ctx, res)
	if err != nil {
		m.metrics.ConfirmationsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	if !first {
		m.metrics.ConfirmationsTotal.WithLabelValues("replay").Inc()
		return bookings, nil
	}
	m.metrics.ConfirmationsTotal.WithLabelValues("paid").Inc()
	log.Info("reservation paid", zap.Strings("seats", res.SeatIDs), zap.Int64("total", res.Price.Total))
	m.announce(ctx, res, bookings)
	if err := m.backups.Delete(ctx, res.ID); err != nil {
		log.Warn("delete backup failed", zap.Error(err))
	}
	return bookings, nil
}

func (m *ReservationManager) ensureBookings(ctx context.Context, res *model.Reservation) ([]model.Booking, error) {
	lines := make(map[string]model.TicketLine, len(res.Tickets))
	for _, t := range res.Tickets {
		lines[t.SeatID] = t
	}
	state := model.PaymentPending
	if res.PaymentState == model.PaymentProcessing || res.PaymentState == model.PaymentSuccess {
		state = res.PaymentState
	}
	now := m.now()
	want := make([]model.Booking, 0, len(res.SeatIDs))
	for _, seat := range res.SeatIDs {
		line, ok := lines[seat]
		if !ok {
			line = model.TicketLine{SeatID: seat, AgeClass: model.AgeAdult}
		}
		want = append(want, model.Booking{
			ID:            m.newID(),
			ReservationID: res.ID,
			EventID:       res.EventID,
			SeatID:        seat,
			AgeClass:      line.AgeClass,
			PriceCents:    line.UnitPrice,
			PaymentState:  state,
			CreatedAt:     now,
		})
	}
	if err := m.bookings.CreateForReservation(ctx, want); err != nil {
		return nil, fmt.Errorf("create bookings: %w", err)
	}
	got, err := m.bookings.ListByReservation(ctx, res.ID)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return sortBySeats(got, res.SeatIDs), nil
}

func (m *ReservationManager) announce(ctx context.Context, res *model.Reservation, bookings []model.Booking) {
	if m.pub == nil {
		return
	}
	ev := queue.BookingConfirmedEvent{
		ReservationID: res.ID,
		EventID:       res.EventID,
		SeatIDs:       res.SeatIDs,
		TotalCents:    res.Price.Total,
		ConfirmedAt:   m.now().Format(time.RFC3339),
	}
	for _, b := range bookings {
		ev.BookingIDs = append(ev.BookingIDs, b.ID)
	}
	if e, err := m.events.GetEvent(ctx, res.EventID); err == nil {
		ev.EventName = e.Name
		ev.Currency = m.currencyOf(e)
	}
	if res.PaymentID != nil {
		ev.PaymentID = *res.PaymentID
	}
	if c := res.Customer; c != nil {
		ev.CustomerName = c.Name
		ev.CustomerPhone = c.Phone
		ev.CustomerEmail = c.Email
	}
	if err := m.pub.PublishBookingConfirmed(ctx, ev); err != nil {
		logger.Warn("publish booking confirmed failed", zap.String("reservation_id", res.ID), zap.Error(err))
	}
}

// Cancel cancels a CART or AT_GATEWAY reservation and frees its seats.
// Cancelling a cancelled reservation succeeds.
func (m *ReservationManager) Cancel(ctx context.Context, reservationID string) error {
	res, err := m.load(ctx, reservationID)
	if err != nil {
		return err
	}
	if res.State != model.StateCancelled {
		err := m.res.Transition(ctx, res.ID, []model.ReservationState{model.StateCart, model.StateAtGateway}, model.StateCancelled)
		switch {
		case err == nil:
		case errors.Is(err, repository.ErrStateConflict):
			cur, lerr := m.load(ctx, res.ID)
			if lerr != nil {
				return lerr
			}
			if cur.State != model.StateCancelled {
				return fmt.Errorf("%w: %s", ErrInvalidTransition, cur.State)
			}
			res = cur
		default:
			return fmt.Errorf("cancel reservation: %w", err)
		}
	}

	if res.ReleasedAt == nil {
		if _, err := m.release(ctx, res.ID, "cancelled"); err != nil {
			return err
		}
	}
	if err := m.backups.Delete(ctx, res.ID); err != nil {
		logger.Warn("delete backup failed", zap.String("reservation_id", res.ID), zap.Error(err))
	}
	logger.Info("reservation cancelled", zap.String("reservation_id", res.ID))
	return nil
}

// release frees the seats held by reservationID and stamps released_at.
func (m *ReservationManager) release(ctx context.Context, reservationID, reason string) (int, error) {
	n, err := m.seats.Release(ctx, reservationID)
	if err != nil {
		return 0, fmt.Errorf("release seats: %w", err)
	}
	m.metrics.SeatsReleasedTotal.WithLabelValues(reason).Add(float64(n))
	if err := m.res.MarkReleased(ctx, reservationID, m.now()); err != nil {
		return n, fmt.Errorf("mark released: %w", err)
	}
	return n, nil
}

// ExpireHold times out one CART reservation and frees its seats.  It
// reports false without error when the reservation left CART first.
func (m *ReservationManager) ExpireHold(ctx context.Context, reservationID string) (bool, int, error) {
	err := m.res.Transition(ctx, reservationID, []model.ReservationState{model.StateCart}, model.StateTimedOut)
	if errors.Is(err, repository.ErrStateConflict) || errors.Is(err, repository.ErrNotFound) {
		return false, 0, nil
	}
	if err != nil {
		return false, 0, fmt.Errorf("time out reservation: %w", err)
	}
	n, err := m.release(ctx, reservationID, "expired")
	if err != nil {
		return true, n, err
	}
	logger.Info("hold expired", zap.String("reservation_id", reservationID), zap.Int("seats_released", n))
	return true, n, nil
}

// SweepExpired times out up to limit CART reservations that expired before
// now, then retries the release of timed out or cancelled reservations whose
// seats were never marked released.  AT_GATEWAY reservations are never
// touched.  Errors on single reservations do not stop the sweep; they are
// joined into the returned error.
func (m *ReservationManager) SweepExpired(ctx context.Context, now time.Time, limit int) (expired, released int, err error) {
	due, err := m.res.ListExpiredCart(ctx, now, limit)
	if err != nil {
		return 0, 0, fmt.Errorf("list expired: %w", err)
	}
	var errs []error
	for _, r := range due {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		ok, n, err := m.ExpireHold(ctx, r.ID)
		if err != nil {
			errs = append(errs, fmt.Errorf("reservation %s: %w", r.ID, err))
		}
		if ok {
			expired++
		}
		released += n
	}

	stale, err := m.res.ListUnreleased(ctx, limit)
	if err != nil {
		errs = append(errs, fmt.Errorf("list unreleased: %w", err))
		return expired, released, errors.Join(errs...)
	}
	for _, r := range stale {
		n, err := m.release(ctx, r.ID, "repair")
		if err != nil {
			errs = append(errs, fmt.Errorf("reservation %s: %w", r.ID, err))
		}
		released += n
	}
	return expired, released, errors.Join(errs...)
}

// Get returns the reservation.
func (m *ReservationManager) Get(ctx context.Context, reservationID string) (*model.Reservation, error) {
	return m.load(ctx, reservationID)
}

// Bookings returns the bookings of a reservation in seat order.  It is empty
// until the reservation is paid.
func (m *ReservationManager) Bookings(ctx context.Context, reservationID string) ([]model.Booking, error) {
	res, err := m.load(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	got, err := m.bookings.ListByReservation(ctx, res.ID)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return sortBySeats(got, res.SeatIDs), nil
}

// SeatMap returns every seat of the event.
func (m *ReservationManager) SeatMap(ctx context.Context, eventID string) ([]model.Seat, error) {
	if _, err := m.event(ctx, eventID); err != nil {
		return nil, err
	}
	seats, err := m.seats.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list seats: %w", err)
	}
	return seats, nil
}

func (m *ReservationManager) load(ctx context.Context, id string) (*model.Reservation, error) {
	res, err := m.res.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrReservationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load reservation: %w", err)
	}
	return res, nil
}

func (m *ReservationManager) event(ctx context.Context, id string) (*model.Event, error) {
	ev, err := m.events.GetEvent(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load event: %w", err)
	}
	return ev, nil
}

func (m *ReservationManager) currencyOf(ev *model.Event) string {
	if ev != nil && ev.Currency != "" {
		return ev.Currency
	}
	return m.currency
}

// orderedSeats loads the seats in labels order.  Labels unknown to the event
// fail with a SeatNotFound error listing them.
func (m *ReservationManager) orderedSeats(ctx context.Context, eventID string, labels []string) ([]model.Seat, error) {
	found, err := m.seats.GetByLabels(ctx, eventID, labels)
	if err != nil {
		return nil, fmt.Errorf("load seats: %w", err)
	}
	byLabel := make(map[string]model.Seat, len(found))
	for _, s := range found {
		byLabel[s.Label] = s
	}
	out := make([]model.Seat, 0, len(labels))
	var missing []string
	for _, l := range labels {
		s, ok := byLabel[l]
		if !ok {
			missing = append(missing, l)
			continue
		}
		out = append(out, s)
	}
	if len(missing) > 0 {
		return nil, &SeatError{Kind: SeatNotFound, Seats: missing}
	}
	return out, nil
}

// normalizeLabels trims, drops empties and dedupes while keeping order.
func normalizeLabels(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func sortBySeats(bookings []model.Booking, seats []string) []model.Booking {
	pos := make(map[string]int, len(seats))
	for i, s := range seats {
		pos[s] = i
	}
	out := append([]model.Booking(nil), bookings...)
	sort.SliceStable(out, func(i, j int) bool { return pos[out[i].SeatID] < pos[out[j].SeatID] })
	return out
}
