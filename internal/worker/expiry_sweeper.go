// Package worker runs the background jobs of the service.
package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/seat-hold-reservation/internal/logger"
	"github.com/iliyamo/seat-hold-reservation/internal/metrics"
	"github.com/iliyamo/seat-hold-reservation/internal/redislock"
)

// SweepLockKey is the lease an instance takes before sweeping.
const SweepLockKey = "expiry-sweeper"

// Sweeper times out expired holds.
type Sweeper interface {
	SweepExpired(ctx context.Context, now time.Time, limit int) (expired, released int, err error)
}

// Locker elects one sweeping instance per tick.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, err error)
}

// ExpirySweeper calls Sweeper every interval until stopped.
type ExpirySweeper struct {
	sweeper  Sweeper
	interval time.Duration
	batch    int

	locker  Locker
	lockTTL time.Duration
	metrics *metrics.Metrics
	now     func() time.Time

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// SweeperOption configures an ExpirySweeper.
type SweeperOption func(*ExpirySweeper)

// WithLocker makes each tick take the shared lease first.  A nil locker
// sweeps on every instance.
func WithLocker(l Locker, ttl time.Duration) SweeperOption {
	return func(s *ExpirySweeper) {
		s.locker = l
		s.lockTTL = ttl
	}
}

func WithSweepMetrics(m *metrics.Metrics) SweeperOption {
	return func(s *ExpirySweeper) { s.metrics = m }
}

func WithSweepClock(now func() time.Time) SweeperOption {
	return func(s *ExpirySweeper) { s.now = now }
}

func NewExpirySweeper(sw Sweeper, interval time.Duration, batch int, opts ...SweeperOption) *ExpirySweeper {
	s := &ExpirySweeper{
		sweeper:  sw,
		interval: interval,
		batch:    batch,
		now:      func() time.Time { return time.Now().UTC() },
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = metrics.Nop()
	}
	if s.lockTTL <= 0 {
		s.lockTTL = interval
	}
	return s
}

// Start blocks running sweeps until ctx is cancelled or Stop is called.
func (s *ExpirySweeper) Start(ctx context.Context) {
	logger.Info("expiry sweeper started",
		zap.Duration("interval", s.interval),
		zap.Int("batch", s.batch),
		zap.Bool("leader_lock", s.locker != nil),
	)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	defer close(s.doneCh)

	for {
		select {
		case <-ctx.Done():
			logger.Info("expiry sweeper stopped (context cancelled)")
			return
		case <-s.stopCh:
			logger.Info("expiry sweeper stopped")
			return
		case <-ticker.C:
			s.cleanup(ctx)
		}
	}
}

// Stop ends Start and waits for it to return.  It must only be called
// after Start.
func (s *ExpirySweeper) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	<-s.doneCh
}

// SweepNow runs one sweep on the caller's goroutine, without the lease.
func (s *ExpirySweeper) SweepNow(ctx context.Context) (expired, released int, err error) {
	start := time.Now()
	defer func() { s.metrics.SweepDuration.Observe(time.Since(start).Seconds()) }()
	return s.sweeper.SweepExpired(ctx, s.now(), s.batch)
}

// cleanup is one tick: take the lease if configured, then sweep.
func (s *ExpirySweeper) cleanup(ctx context.Context) {
	log := logger.Get()

	if s.locker != nil {
		release, err := s.locker.TryLock(ctx, SweepLockKey, s.lockTTL)
		if errors.Is(err, redislock.ErrLockNotAcquired) {
			log.Debug("another instance is sweeping")
			return
		}
		if err != nil {
			log.Warn("sweep lock unavailable, skipping tick", zap.Error(err))
			return
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, redislock.ErrLockNotOwned) {
				log.Warn("sweep lock release failed", zap.Error(err))
			}
		}()
	}

	expired, released, err := s.SweepNow(ctx)
	if err != nil {
		log.Error("expiry sweep failed", zap.Error(err), zap.Int("expired", expired), zap.Int("released", released))
		return
	}
	if expired > 0 || released > 0 {
		log.Info("expired holds released", zap.Int("expired", expired), zap.Int("seats_released", released))
	} else {
		log.Debug("no expired holds")
	}
}
