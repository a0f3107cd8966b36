package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/exaring/otelpgx"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/tranvd/cinebook/internal/domain"
	"github.com/tranvd/cinebook/internal/inventory"
	"github.com/tranvd/cinebook/internal/mailer"
	"github.com/tranvd/cinebook/internal/payment"
	"github.com/tranvd/cinebook/internal/pricing"
	"github.com/tranvd/cinebook/internal/repository"
	"github.com/tranvd/cinebook/internal/sweeper"
	appvalidator "github.com/tranvd/cinebook/internal/validator"
	"github.com/tranvd/cinebook/internal/vcs"
)

var (
	version = vcs.Version()
)

type application struct {
	config    config
	logger    *slog.Logger
	db        *pgxpool.Pool
	redis     redis.UniversalClient
	validator *validator.Validate
	mailer    mailer.Mailer
	pricing   *pricing.Engine
	inventory domain.SeatInventory
	sweeper   *sweeper.Sweeper

	movieRepo    domain.MovieRepository
	showtimeRepo domain.ShowtimeRepository
	seatRepo     domain.SeatRepository
	bookingRepo  domain.BookingRepository
	paymentRepo  domain.PaymentRepository
	ticketRepo   domain.TicketRepository

	paymentProvider domain.PaymentProvider
}

type config struct {
	port             int
	env              string
	otelCollectorUrl string
	db               struct {
		dsn          string
		maxOpenConns int
		maxIdleTime  time.Duration
	}
	redis struct {
		url          string
		maxOpenConns int
		maxIdleConns int
		maxIdleTime  time.Duration
	}
	smtp struct {
		host     string
		port     int
		username string
		password string
		sender   string
	}
	jwt struct {
		secret string
	}
	payment struct {
		clientId    string
		apiKey      string
		checksumKey string
		endpoint    string
		returnUrl   string
		cancelUrl   string
	}
	booking struct {
		holdTTL       time.Duration
		sweepInterval time.Duration
	}
	showtime struct {
		cleaningGap time.Duration
	}
}

func Run() error {
	var cfg config

	flag.IntVar(&cfg.port, "port", 3000, "server port")
	flag.StringVar(&cfg.env, "env", "dev", "Environment (dev|staging|prod)")
	flag.StringVar(&cfg.otelCollectorUrl, "otel-collector-url", "", "OpenTelemetry collector URL")

	flag.StringVar(&cfg.db.dsn, "db-dsn", "", "PostgreSQL DSN")
	flag.IntVar(&cfg.db.maxOpenConns, "db-max-open-conns", 25, "PostgreSQL max open connections")
	flag.DurationVar(&cfg.db.maxIdleTime, "db-max-idle-time", 15*time.Minute, "PostgreSQL max idle time for connections")

	flag.StringVar(&cfg.redis.url, "redis-url", "", "Redis URL")
	flag.IntVar(&cfg.redis.maxOpenConns, "redis-max-open-conns", 25, "Redis max open connections")
	flag.IntVar(&cfg.redis.maxIdleConns, "redis-max-idle-conns", 10, "Redis max idle connections")
	flag.DurationVar(&cfg.redis.maxIdleTime, "redis-max-idle-time", 2*time.Minute, "Redis max idle time for connections")

	flag.StringVar(&cfg.smtp.host, "smtp-host", "sandbox.smtp.mailtrap.io", "SMTP host")
	flag.IntVar(&cfg.smtp.port, "smtp-port", 2525, "SMTP port")
	flag.StringVar(&cfg.smtp.username, "smtp-username", "", "SMTP username")
	flag.StringVar(&cfg.smtp.password, "smtp-password", "", "SMTP password")
	flag.StringVar(&cfg.smtp.sender, "smtp-sender", "CineBook <no-reply@cinebook.tranvd.net>", "SMTP sender")

	flag.StringVar(&cfg.jwt.secret, "jwt-secret", "", "JWT signing secret")

	flag.StringVar(&cfg.payment.clientId, "payment-client-id", "", "Payment provider client ID")
	flag.StringVar(&cfg.payment.apiKey, "payment-api-key", "", "Payment provider API key")
	flag.StringVar(&cfg.payment.checksumKey, "payment-checksum-key", "", "Payment provider checksum key")
	flag.StringVar(&cfg.payment.endpoint, "payment-endpoint", "https://api-merchant.payos.vn", "Payment provider API endpoint")
	flag.StringVar(&cfg.payment.returnUrl, "payment-return-url", "https://example.com/success.html", "Payment success page")
	flag.StringVar(&cfg.payment.cancelUrl, "payment-cancel-url", "https://example.com/failure.html", "Payment failure page")

	flag.DurationVar(&cfg.booking.holdTTL, "booking-hold-ttl", 10*time.Minute, "How long a pending booking holds its seats")
	flag.DurationVar(&cfg.booking.sweepInterval, "booking-sweep-interval", time.Minute, "How often expired bookings are swept")

	flag.DurationVar(&cfg.showtime.cleaningGap, "showtime-cleaning-gap", 15*time.Minute, "Room turnaround time between showtimes")

	displayVersion := flag.Bool("version", false, "Display version and exit")

	flag.Parse()

	if *displayVersion {
		fmt.Printf("Version:\t%s\n", version)
		os.Exit(0)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	validator := appvalidator.NewValidator()

	db, err := newDatabasePool(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	movieRepo := repository.NewPostgresMovieRepository(db)
	showtimeRepo := repository.NewPostgresShowtimeRepository(db)
	seatRepo := repository.NewPostgresSeatRepository(db)
	bookingRepo := repository.NewPostgresBookingRepository(db)
	paymentRepo := repository.NewPostgresPaymentRepository(db)
	ticketRepo := repository.NewPostgresTicketRepository(db)

	payOSProvider := payment.NewPayOSProvider(
		cfg.payment.clientId,
		cfg.payment.apiKey,
		cfg.payment.checksumKey,
		cfg.payment.endpoint,
		cfg.payment.returnUrl,
		cfg.payment.cancelUrl,
	)

	redisClient, err := newRedisClient(cfg)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	seatInventory := inventory.NewManager(redisClient)

	app := &application{
		config:          cfg,
		logger:          logger,
		db:              db,
		redis:           redisClient,
		validator:       validator,
		mailer:          mailer.NewSMTPMailer(cfg.smtp.host, cfg.smtp.port, cfg.smtp.username, cfg.smtp.password, cfg.smtp.sender),
		pricing:         pricing.New(pricing.DefaultConfig()),
		inventory:       seatInventory,
		movieRepo:       movieRepo,
		showtimeRepo:    showtimeRepo,
		seatRepo:        seatRepo,
		bookingRepo:     bookingRepo,
		paymentRepo:     paymentRepo,
		ticketRepo:      ticketRepo,
		paymentProvider: payOSProvider,
	}

	shutdownTelemetry, err := app.InitTelemetry()
	if err != nil {
		return err
	}
	defer shutdownTelemetry(context.Background())

	app.sweeper = sweeper.New(bookingRepo, paymentRepo, seatInventory, app.logger, cfg.booking.sweepInterval)

	return app.run()
}

func newRedisClient(cfg config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:            cfg.redis.url,
		MaxIdleConns:    cfg.redis.maxIdleConns,
		MaxActiveConns:  cfg.redis.maxOpenConns,
		ConnMaxIdleTime: cfg.redis.maxIdleTime,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err := rdb.Ping(ctx).Err()
	if err != nil {
		return nil, err
	}

	return rdb, nil
}

func newDatabasePool(cfg config) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(cfg.db.dsn)
	if err != nil {
		return nil, err
	}

	config.MaxConnIdleTime = cfg.db.maxIdleTime
	config.MaxConns = int32(cfg.db.maxOpenConns)
	config.ConnConfig.Tracer = otelpgx.NewTracer()

	db, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err = db.Ping(ctx)
	if err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func (app *application) run() error {
	srv := &http.Server{
		Addr:         fmt.Sprintf("0.0.0.0:%d", app.config.port),
		Handler:      app.routes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorLog:     slog.NewLogLogger(app.logger.Handler(), slog.LevelDebug),
	}

	err := app.sweeper.Start()
	if err != nil {
		return err
	}

	shutdownError := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit

		app.logger.Info("shutting down server", "signal", s.String())

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := app.sweeper.Stop(); err != nil {
			app.logger.Error("failed to stop sweeper", "error", err)
		}

		err := srv.Shutdown(ctx)
		if err != nil {
			shutdownError <- err
		}

		shutdownError <- nil
	}()

	app.logger.Info("starting server", "addr", srv.Addr, "env", app.config.env)

	err = srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdownError
	if err != nil {
		return err
	}

	app.logger.Info("stopped server", "addr", srv.Addr)

	return nil
}
