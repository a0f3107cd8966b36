package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tranvd/cinebook/internal/domain"
)

type PostgresSeatRepository struct {
	db *pgxpool.Pool
}

func NewPostgresSeatRepository(db *pgxpool.Pool) *PostgresSeatRepository {
	return &PostgresSeatRepository{
		db: db,
	}
}

func (p *PostgresSeatRepository) GetSeatsByShowtime(ctx context.Context, showtimeID int) ([]domain.Seat, error) {
	query := `
		SELECT se.room_id, se.seat_code, se.seat_type
		FROM showtimes sh
		JOIN seats se ON se.room_id = sh.room_id
		WHERE sh.id = $1
		ORDER BY se.seat_code
	`

	return p.querySeats(ctx, query, showtimeID)
}

func (p *PostgresSeatRepository) GetSeatsByShowtimeAndCodes(
	ctx context.Context,
	showtimeID int,
	codes []string) ([]domain.Seat, error) {

	query := `
		SELECT se.room_id, se.seat_code, se.seat_type
		FROM showtimes sh
		JOIN seats se ON se.room_id = sh.room_id
		WHERE sh.id = $1 AND se.seat_code = ANY($2)
		ORDER BY se.seat_code
	`

	return p.querySeats(ctx, query, showtimeID, codes)
}

func (p *PostgresSeatRepository) querySeats(ctx context.Context, query string, args ...any) ([]domain.Seat, error) {
	rows, err := p.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seats := make([]domain.Seat, 0)

	for rows.Next() {
		var seat domain.Seat

		err = rows.Scan(&seat.RoomID, &seat.Code, &seat.Type)
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
