package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tranvd/cinebook/internal/domain"
)

type PostgresTicketRepository struct {
	db *pgxpool.Pool
}

func NewPostgresTicketRepository(db *pgxpool.Pool) *PostgresTicketRepository {
	return &PostgresTicketRepository{
		db: db,
	}
}

func (p *PostgresTicketRepository) GetByBookingId(ctx context.Context, bookingID uuid.UUID) ([]domain.Ticket, error) {
	query := `
		SELECT id, code, booking_id, showtime_id, seat_code, seat_type,
			price, status, issued_at, scanned_at
		FROM tickets
		WHERE booking_id = $1
		ORDER BY seat_code
	`

	rows, err := p.db.Query(ctx, query, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tickets := make([]domain.Ticket, 0)

	for rows.Next() {
		var ticket domain.Ticket

		err = rows.Scan(
			&ticket.ID,
			&ticket.Code,
			&ticket.BookingID,
			&ticket.ShowtimeID,
			&ticket.SeatCode,
			&ticket.SeatType,
			&ticket.Price,
			&ticket.Status,
			&ticket.IssuedAt,
			&ticket.ScannedAt,
		)
		if err != nil {
			return nil, err
		}

		tickets = append(tickets, ticket)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return tickets, nil
}

func (p *PostgresTicketRepository) CheckIn(ctx context.Context, code uuid.UUID) (*domain.Ticket, error) {
	query := `
		UPDATE tickets
		SET status = 'USED', scanned_at = now()
		WHERE code = $1 AND status = 'VALID'
		RETURNING id, code, booking_id, showtime_id, seat_code, seat_type,
			price, status, issued_at, scanned_at
	`

	var ticket domain.Ticket

	err := p.db.QueryRow(ctx, query, code).Scan(
		&ticket.ID,
		&ticket.Code,
		&ticket.BookingID,
		&ticket.ShowtimeID,
		&ticket.SeatCode,
		&ticket.SeatType,
		&ticket.Price,
		&ticket.Status,
		&ticket.IssuedAt,
		&ticket.ScannedAt,
	)

	if err == nil {
		return &ticket, nil
	}

	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	var status domain.TicketStatus

	err = p.db.QueryRow(ctx, `SELECT status FROM tickets WHERE code = $1`, code).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}

		return nil, err
	}

	return nil, domain.ErrTicketAlreadyUsed
}
