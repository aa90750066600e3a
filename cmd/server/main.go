package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/seat-hold-reservation/internal/config"
	"github.com/iliyamo/seat-hold-reservation/internal/database"
	"github.com/iliyamo/seat-hold-reservation/internal/gateway"
	"github.com/iliyamo/seat-hold-reservation/internal/handler"
	"github.com/iliyamo/seat-hold-reservation/internal/logger"
	"github.com/iliyamo/seat-hold-reservation/internal/metrics"
	"github.com/iliyamo/seat-hold-reservation/internal/middleware"
	"github.com/iliyamo/seat-hold-reservation/internal/model"
	"github.com/iliyamo/seat-hold-reservation/internal/notify"
	"github.com/iliyamo/seat-hold-reservation/internal/queue"
	"github.com/iliyamo/seat-hold-reservation/internal/redislock"
	"github.com/iliyamo/seat-hold-reservation/internal/repository"
	"github.com/iliyamo/seat-hold-reservation/internal/router"
	"github.com/iliyamo/seat-hold-reservation/internal/service"
	"github.com/iliyamo/seat-hold-reservation/internal/worker"
)

const demoEventID = "demo"

// stores groups the persistence layer picked by STORE_DRIVER.
type stores struct {
	seats    service.SeatStore
	res      service.ReservationStore
	backups  service.BackupStore
	bookings service.BookingStore
	events   repository.EventGetter

	createEvent func(context.Context, *model.Event) error
	createSeats func(context.Context, []model.Seat) error
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger.Set(logger.NewLogger(cfg.Env))
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var db *sql.DB
	var st stores
	switch cfg.StoreDriver {
	case "memory":
		st = memoryStores()
	case "mysql":
		var err error
		db, err = database.Open(ctx, database.DSN(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName))
		if err != nil {
			logger.Fatal("database connection failed", zap.Error(err))
		}
		defer db.Close()
		if cfg.DBMigrate {
			if err := database.Migrate(db); err != nil {
				logger.Fatal("migrations failed", zap.Error(err))
			}
		}
		st = mysqlStores(db)
	default:
		logger.Fatal("unknown STORE_DRIVER", zap.String("driver", cfg.StoreDriver))
	}
	if cfg.DemoSeed || cfg.StoreDriver == "memory" {
		if err := seedDemo(ctx, st); err != nil {
			logger.Fatal("demo seed failed", zap.Error(err))
		}
	}

	rdb := config.NewRedisClient()
	if rdb != nil {
		defer rdb.Close()
	}

	gw, err := newGateway(cfg.Payment)
	if err != nil {
		logger.Fatal("payment gateway setup failed", zap.Error(err))
	}

	m := metrics.New()
	opts := []service.Option{
		service.WithHoldDurations(cfg.Reservation.HoldDefault, cfg.Reservation.HoldMax),
		service.WithCurrency(cfg.Payment.Currency),
		service.WithMetrics(m),
	}
	if cfg.RabbitURL != "" {
		opts = append(opts, service.WithPublisher(queue.NewPublisher(cfg.RabbitURL)))
	}
	events := repository.NewCachedEventSource(st.events, rdb, cfg.EventCacheTTL)
	manager := service.NewReservationManager(st.seats, st.res, st.backups, st.bookings, events, gw, opts...)
	recon := service.NewPaymentReconciler(manager, st.res, st.backups, st.bookings)

	sweepOpts := []worker.SweeperOption{worker.WithSweepMetrics(m)}
	if rdb != nil {
		sweepOpts = append(sweepOpts, worker.WithLocker(redislock.NewLockManager(rdb), cfg.Reservation.SweepLockTTL))
	}
	sweeper := worker.NewExpirySweeper(manager, cfg.Reservation.SweepInterval, cfg.Reservation.SweepBatch, sweepOpts...)

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = handler.CustomHTTPErrorHandler
	e.Use(middleware.RequestIDMiddleware())
	e.Use(middleware.RequestLogger())
	e.Use(echomw.Recover())
	e.Use(middleware.PrometheusMiddleware(m))

	checks := map[string]handler.Check{}
	if db != nil {
		checks["mysql"] = db.PingContext
	}
	if rdb != nil {
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	router.RegisterRoutes(e, handler.NewHealthHandler(checks))
	router.RegisterReservations(e, handler.NewReservationHandler(manager),
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
		middleware.NewRedisCache(config.LoadCacheConfig(), rdb),
	)
	payments := handler.NewPaymentHandler(recon, cfg.Payment.StripeWebhookSecret, cfg.Payment.ReturnURL)
	router.RegisterPayments(e, payments)
	if gw.Name() == "sandbox" {
		router.RegisterSandbox(e, payments)
	}
	router.RegisterAdmin(e, handler.NewAdminHandler(sweeper), cfg.JWTSecret)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		addr := ":" + cfg.Port
		logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env), zap.String("store", cfg.StoreDriver))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		sweeper.Start(gctx)
		return nil
	})
	if cfg.RabbitURL != "" {
		g.Go(func() error {
			return queue.StartNotificationConsumer(gctx, cfg.RabbitURL, notify.NewLogNotifier())
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
		return
	}
	logger.Info("server stopped")
}

func memoryStores() stores {
	seats := repository.NewMemorySeatRepo()
	events := repository.NewMemoryEventRepo()
	return stores{
		seats:       seats,
		res:         repository.NewMemoryReservationRepo(),
		backups:     repository.NewMemoryBackupRepo(),
		bookings:    repository.NewMemoryBookingRepo(),
		events:      events,
		createEvent: events.Create,
		createSeats: seats.CreateBulk,
	}
}

func mysqlStores(db *sql.DB) stores {
	seats := repository.NewSeatRepo(db)
	events := repository.NewEventRepo(db)
	return stores{
		seats:       seats,
		res:         repository.NewReservationRepo(db),
		backups:     repository.NewReservationBackupRepo(db),
		bookings:    repository.NewBookingRepo(db),
		events:      events,
		createEvent: events.Create,
		createSeats: seats.CreateBulk,
	}
}

// seedDemo creates an on-sale event with a 10x12 seat grid unless it
// already exists.
func seedDemo(ctx context.Context, st stores) error {
	ev := &model.Event{
		ID:           demoEventID,
		Name:         "Demo concert",
		DefaultPrice: 2500,
		TicketTypes: []model.TicketType{
			{ID: "standard", Name: "Standard", AdultPrice: 2500, ChildPrice: 1500},
		},
		TaxPercent:  9,
		SaleEnabled: true,
		Currency:    "usd",
	}
	err := st.createEvent(ctx, ev)
	if errors.Is(err, repository.ErrConflict) {
		logger.Info("demo event already present", zap.String("event_id", demoEventID))
		return nil
	}
	if err != nil {
		return err
	}
	tier := ev.TicketTypes[0].ID
	grid := model.GenerateSeatGrid(demoEventID, 10, 12)
	for i := range grid {
		grid[i].TicketTypeID = &tier
	}
	if err := st.createSeats(ctx, grid); err != nil {
		return err
	}
	logger.Info("demo event seeded", zap.String("event_id", demoEventID), zap.Int("seats", len(grid)))
	return nil
}

func newGateway(cfg config.PaymentConfig) (gateway.PaymentGateway, error) {
	switch cfg.Gateway {
	case "stripe":
		gw, err := gateway.NewStripeGateway(&gateway.StripeGatewayConfig{
			SecretKey:     cfg.StripeSecretKey,
			WebhookSecret: cfg.StripeWebhookSecret,
			SuccessURL:    cfg.SuccessURL,
			CancelURL:     cfg.CancelURL,
		})
		if err != nil {
			return nil, err
		}
		return gw, nil
	case "sandbox", "":
		return gateway.NewSandboxGateway(gateway.SandboxConfig{BaseURL: cfg.SandboxBaseURL, Fail: cfg.SandboxFail}), nil
	}
	return nil, errors.New("unknown PAYMENT_GATEWAY " + cfg.Gateway)
}
