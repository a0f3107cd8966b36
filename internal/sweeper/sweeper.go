// Package sweeper expires lapsed pending bookings in the background. The
// status flip and the seat release are performed per booking: the conditional
// update in ExpireDue is the atomic re-check against a concurrent confirm, so
// a booking confirmed between ticks is simply not selected.
package sweeper

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/tranvd/cinebook/internal/domain"
)

type Sweeper struct {
	bookings  domain.BookingRepository
	payments  domain.PaymentRepository
	inventory domain.SeatInventory
	logger    *slog.Logger
	interval  time.Duration
	scheduler gocron.Scheduler
}

func New(
	bookings domain.BookingRepository,
	payments domain.PaymentRepository,
	inventory domain.SeatInventory,
	logger *slog.Logger,
	interval time.Duration) *Sweeper {

	return &Sweeper{
		bookings:  bookings,
		payments:  payments,
		inventory: inventory,
		logger:    logger,
		interval:  interval,
	}
}

// Start schedules the sweep to run until Stop is called. The first run
// happens one interval after startup.
func (s *Sweeper) Start() error {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return err
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), s.interval)
			defer cancel()

			s.Sweep(ctx)
		}),
	)
	if err != nil {
		return err
	}

	s.scheduler = scheduler
	scheduler.Start()

	s.logger.Info("expiration sweeper started", "interval", s.interval)

	return nil
}

func (s *Sweeper) Stop() error {
	if s.scheduler == nil {
		return nil
	}

	return s.scheduler.Shutdown()
}

// Sweep runs a single pass. Release failures are logged and left for Redis
// key expiry to mop up; the next pass cannot retry them because the booking
// is no longer pending, but the lock TTL matches the hold deadline, so the
// seats are already past due.
func (s *Sweeper) Sweep(ctx context.Context) {
	expired, err := s.bookings.ExpireDue(ctx)
	if err != nil {
		s.logger.Error("failed to expire due bookings", "error", err)
		return
	}

	if len(expired) == 0 {
		return
	}

	bookingIDs := make([]uuid.UUID, 0, len(expired))

	for _, booking := range expired {
		bookingIDs = append(bookingIDs, booking.ID)

		err = s.inventory.Release(ctx, booking.ShowtimeID, booking.SeatCodes, booking.ID.String())
		if err != nil {
			s.logger.Error(
				"failed to release seats of expired booking",
				"booking_id", booking.ID,
				"showtime_id", booking.ShowtimeID,
				"error", err,
			)
		}
	}

	err = s.payments.ExpirePendingByBookingIds(ctx, bookingIDs)
	if err != nil {
		s.logger.Error("failed to expire pending payments of expired bookings", "error", err)
	}

	s.logger.Info("expired lapsed bookings", "count", len(expired))
}
