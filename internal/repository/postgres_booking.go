package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tranvd/cinebook/internal/domain"
)

type PostgresBookingRepository struct {
	db *pgxpool.Pool
}

func NewPostgresBookingRepository(db *pgxpool.Pool) *PostgresBookingRepository {
	return &PostgresBookingRepository{
		db: db,
	}
}

func (p *PostgresBookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	return runInTx(ctx, p.db, func(tx pgx.Tx) error {
		query := `
			INSERT INTO bookings (id, user_id, user_email, showtime_id, status, total_amount, expires_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING created_at
		`

		err := tx.QueryRow(
			ctx,
			query,
			booking.ID,
			booking.UserID,
			booking.UserEmail,
			booking.ShowtimeID,
			booking.Status,
			booking.TotalAmount,
			booking.ExpiresAt).Scan(&booking.CreatedAt)

		if err != nil {
			return err
		}

		rows := make([][]any, 0, len(booking.Seats))
		for _, seat := range booking.Seats {
			rows = append(rows, []any{
				booking.ID,
				booking.ShowtimeID,
				seat.SeatCode,
				seat.SeatType,
				seat.UnitPrice,
			})
		}

		_, err = tx.CopyFrom(
			ctx,
			pgx.Identifier{"booking_seats"},
			[]string{"booking_id", "showtime_id", "seat_code", "seat_type", "unit_price"},
			pgx.CopyFromRows(rows),
		)

		return err
	})
}

func (p *PostgresBookingRepository) GetById(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	query := `
		SELECT id, user_id, user_email, showtime_id, status, total_amount, payment_id,
			expires_at, confirmed_at, cancelled_at, created_at
		FROM bookings
		WHERE id = $1
	`

	var booking domain.Booking

	err := p.db.QueryRow(ctx, query, id).Scan(
		&booking.ID,
		&booking.UserID,
		&booking.UserEmail,
		&booking.ShowtimeID,
		&booking.Status,
		&booking.TotalAmount,
		&booking.PaymentID,
		&booking.ExpiresAt,
		&booking.ConfirmedAt,
		&booking.CancelledAt,
		&booking.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}

		return nil, err
	}

	seats, err := p.retrieveBookingSeats(ctx, id)
	if err != nil {
		return nil, err
	}

	booking.Seats = seats

	return &booking, nil
}

func (p *PostgresBookingRepository) retrieveBookingSeats(
	ctx context.Context,
	bookingID uuid.UUID) ([]domain.BookingSeat, error) {

	query := `
		SELECT seat_code, seat_type, unit_price
		FROM booking_seats
		WHERE booking_id = $1
		ORDER BY seat_code
	`

	rows, err := p.db.Query(ctx, query, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seats := make([]domain.BookingSeat, 0)

	for rows.Next() {
		var seat domain.BookingSeat

		err = rows.Scan(&seat.SeatCode, &seat.SeatType, &seat.UnitPrice)
		if err != nil {
			return nil, err
		}

		seats = append(seats, seat)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return seats, nil
}

func (p *PostgresBookingRepository) GetBookedSeatCodes(ctx context.Context, showtimeID int) ([]string, error) {
	query := `
		SELECT bs.seat_code
		FROM booking_seats bs
		JOIN bookings b ON bs.booking_id = b.id
		WHERE b.showtime_id = $1 AND b.status = 'confirmed'
	`

	rows, err := p.db.Query(ctx, query, showtimeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seatCodes := make([]string, 0)

	for rows.Next() {
		var code string

		if err = rows.Scan(&code); err != nil {
			return nil, err
		}

		seatCodes = append(seatCodes, code)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return seatCodes, nil
}

func (p *PostgresBookingRepository) Cancel(ctx context.Context, id uuid.UUID, userID int) (*domain.Booking, error) {
	query := `
		UPDATE bookings
		SET status = 'cancelled', cancelled_at = now()
		WHERE id = $1 AND user_id = $2 AND status = 'pending'
		RETURNING showtime_id
	`

	var showtimeID int

	err := p.db.QueryRow(ctx, query, id, userID).Scan(&showtimeID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, p.explainFailedTransition(ctx, id, userID)
		}

		return nil, err
	}

	return p.GetById(ctx, id)
}

// explainFailedTransition turns a zero-row conditional update into a typed
// failure the caller can branch on.
func (p *PostgresBookingRepository) explainFailedTransition(ctx context.Context, id uuid.UUID, userID int) error {
	var status domain.BookingStatus
	var ownerID int

	err := p.db.QueryRow(ctx, `SELECT status, user_id FROM bookings WHERE id = $1`, id).Scan(&status, &ownerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrRecordNotFound
		}

		return err
	}

	if ownerID != userID {
		return domain.ErrBookingNotOwned
	}

	return domain.ErrBookingNotPending
}

func (p *PostgresBookingRepository) Confirm(
	ctx context.Context,
	id uuid.UUID,
	paymentID int) (*domain.Booking, []domain.Ticket, error) {

	var booking domain.Booking
	var tickets []domain.Ticket

	err := runInTx(ctx, p.db, func(tx pgx.Tx) error {
		// The expires_at check makes a lapsed hold lose here even when the
		// sweeper has not expired the booking yet. Whoever flips the status
		// first wins the race; the loser sees zero rows.
		query := `
			UPDATE bookings
			SET status = 'confirmed', confirmed_at = now(), payment_id = $2
			WHERE id = $1 AND status = 'pending' AND expires_at > now()
			RETURNING user_id, user_email, showtime_id, total_amount, expires_at, confirmed_at, created_at
		`

		err := tx.QueryRow(ctx, query, id, paymentID).Scan(
			&booking.UserID,
			&booking.UserEmail,
			&booking.ShowtimeID,
			&booking.TotalAmount,
			&booking.ExpiresAt,
			&booking.ConfirmedAt,
			&booking.CreatedAt,
		)

		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return p.explainFailedConfirm(ctx, tx, id)
			}

			return err
		}

		booking.ID = id
		booking.Status = domain.BookingStatusConfirmed
		booking.PaymentID = &paymentID

		seats, err := retrieveBookingSeatsTx(ctx, tx, id)
		if err != nil {
			return err
		}

		booking.Seats = seats
		tickets, err = issueTickets(ctx, tx, &booking)

		return err
	})

	if err != nil {
		return nil, nil, err
	}

	return &booking, tickets, nil
}

func (p *PostgresBookingRepository) explainFailedConfirm(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	var status domain.BookingStatus
	var expiresAt time.Time

	err := tx.QueryRow(ctx, `SELECT status, expires_at FROM bookings WHERE id = $1`, id).Scan(&status, &expiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrRecordNotFound
		}

		return err
	}

	if status == domain.BookingStatusExpired || (status == domain.BookingStatusPending && !expiresAt.After(time.Now())) {
		return domain.ErrBookingExpired
	}

	return domain.ErrBookingNotPending
}

func retrieveBookingSeatsTx(ctx context.Context, tx pgx.Tx, bookingID uuid.UUID) ([]domain.BookingSeat, error) {
	query := `
		SELECT seat_code, seat_type, unit_price
		FROM booking_seats
		WHERE booking_id = $1
		ORDER BY seat_code
	`

	rows, err := tx.Query(ctx, query, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seats := make([]domain.BookingSeat, 0)

	for rows.Next() {
		var seat domain.BookingSeat

		err = rows.Scan(&seat.SeatCode, &seat.SeatType, &seat.UnitPrice)
		if err != nil {
			return nil, err
		}

		seats = append(seats, seat)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return seats, nil
}

// issueTickets snapshots one ticket per booked seat inside the confirming
// transaction, so a booking can never be confirmed without its tickets.
func issueTickets(ctx context.Context, tx pgx.Tx, booking *domain.Booking) ([]domain.Ticket, error) {
	issuedAt := time.Now()
	tickets := make([]domain.Ticket, 0, len(booking.Seats))
	rows := make([][]any, 0, len(booking.Seats))

	for _, seat := range booking.Seats {
		ticket := domain.Ticket{
			Code:       uuid.New(),
			BookingID:  booking.ID,
			ShowtimeID: booking.ShowtimeID,
			SeatCode:   seat.SeatCode,
			SeatType:   seat.SeatType,
			Price:      seat.UnitPrice,
			Status:     domain.TicketStatusValid,
			IssuedAt:   issuedAt,
		}

		tickets = append(tickets, ticket)
		rows = append(rows, []any{
			ticket.Code,
			ticket.BookingID,
			ticket.ShowtimeID,
			ticket.SeatCode,
			ticket.SeatType,
			ticket.Price,
			ticket.Status,
			ticket.IssuedAt,
		})
	}

	_, err := tx.CopyFrom(
		ctx,
		pgx.Identifier{"tickets"},
		[]string{"code", "booking_id", "showtime_id", "seat_code", "seat_type", "price", "status", "issued_at"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return nil, err
	}

	return tickets, nil
}

func (p *PostgresBookingRepository) ExpireDue(ctx context.Context) ([]domain.ExpiredBooking, error) {
	query := `
		WITH expired AS (
			UPDATE bookings
			SET status = 'expired'
			WHERE status = 'pending' AND expires_at <= now()
			RETURNING id, showtime_id
		)
		SELECT e.id, e.showtime_id, bs.seat_code
		FROM expired e
		JOIN booking_seats bs ON bs.booking_id = e.id
		ORDER BY e.id
	`

	rows, err := p.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	expired := make([]domain.ExpiredBooking, 0)

	for rows.Next() {
		var id uuid.UUID
		var showtimeID int
		var seatCode string

		if err = rows.Scan(&id, &showtimeID, &seatCode); err != nil {
			return nil, err
		}

		if n := len(expired); n > 0 && expired[n-1].ID == id {
			expired[n-1].SeatCodes = append(expired[n-1].SeatCodes, seatCode)
			continue
		}

		expired = append(expired, domain.ExpiredBooking{
			ID:         id,
			ShowtimeID: showtimeID,
			SeatCodes:  []string{seatCode},
		})
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return expired, nil
}

func (p *PostgresBookingRepository) GetSummariesByUserId(
	ctx context.Context,
	userID int,
	pagination domain.Pagination) ([]domain.BookingSummary, *domain.Metadata, error) {

	query := `
		SELECT
			COUNT(*) OVER(),
			b.id,
			m.title,
			s.start_at,
			b.status,
			b.total_amount,
			(SELECT COUNT(*) FROM booking_seats bs WHERE bs.booking_id = b.id),
			b.created_at
		FROM bookings b
		JOIN showtimes s ON b.showtime_id = s.id
		JOIN movies m ON s.movie_id = m.id
		WHERE b.user_id = $1
		ORDER BY b.created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := p.db.Query(ctx, query, userID, pagination.Limit(), pagination.Offset())
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	summaries := make([]domain.BookingSummary, 0)
	totalRecords := 0

	for rows.Next() {
		var summary domain.BookingSummary

		err = rows.Scan(
			&totalRecords,
			&summary.BookingID,
			&summary.MovieTitle,
			&summary.ShowtimeAt,
			&summary.Status,
			&summary.TotalAmount,
			&summary.SeatCount,
			&summary.CreatedAt,
		)
		if err != nil {
			return nil, nil, err
		}

		summaries = append(summaries, summary)
	}

	if err = rows.Err(); err != nil {
		return nil, nil, err
	}

	metadata := domain.NewMetadata(totalRecords, pagination.Page, pagination.PageSize)

	return summaries, metadata, nil
}
