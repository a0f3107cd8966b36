package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tranvd/cinebook/internal/domain"
)

type PostgresShowtimeRepository struct {
	db *pgxpool.Pool
}

func NewPostgresShowtimeRepository(db *pgxpool.Pool) *PostgresShowtimeRepository {
	return &PostgresShowtimeRepository{
		db: db,
	}
}

func (p *PostgresShowtimeRepository) GetById(ctx context.Context, id int) (*domain.Showtime, error) {
	query := `
		SELECT id, movie_id, room_id, start_at, end_at, base_price
		FROM showtimes
		WHERE id = $1
	`

	var showtime domain.Showtime

	err := p.db.QueryRow(ctx, query, id).Scan(
		&showtime.ID,
		&showtime.MovieID,
		&showtime.RoomID,
		&showtime.StartAt,
		&showtime.EndAt,
		&showtime.BasePrice,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}

		return nil, err
	}

	return &showtime, nil
}

// CreateBatch inserts every showtime or none. The rooms involved are locked
// for the duration of the transaction, which serializes competing schedule
// writes for the same rooms and makes the overlap check race-free.
func (p *PostgresShowtimeRepository) CreateBatch(
	ctx context.Context,
	showtimes []domain.Showtime) ([]domain.Showtime, error) {

	created := make([]domain.Showtime, len(showtimes))
	copy(created, showtimes)

	err := runInTx(ctx, p.db, func(tx pgx.Tx) error {
		roomIDs := make([]int, 0, len(showtimes))
		seen := make(map[int]bool)

		for _, s := range showtimes {
			if !seen[s.RoomID] {
				seen[s.RoomID] = true
				roomIDs = append(roomIDs, s.RoomID)
			}
		}

		rows, err := tx.Query(ctx, `SELECT id FROM rooms WHERE id = ANY($1) ORDER BY id FOR UPDATE`, roomIDs)
		if err != nil {
			return err
		}

		lockedRooms := 0
		for rows.Next() {
			var id int
			if err = rows.Scan(&id); err != nil {
				rows.Close()
				return err
			}
			lockedRooms++
		}
		rows.Close()

		if err = rows.Err(); err != nil {
			return err
		}

		if lockedRooms != len(roomIDs) {
			return domain.ErrRecordNotFound
		}

		for i := range created {
			s := &created[i]

			var overlaps bool
			err = tx.QueryRow(
				ctx,
				`SELECT EXISTS (
					SELECT 1 FROM showtimes
					WHERE room_id = $1 AND start_at < $3 AND $2 < end_at
				)`,
				s.RoomID, s.StartAt, s.EndAt,
			).Scan(&overlaps)

			if err != nil {
				return err
			}

			if overlaps {
				return domain.ErrShowtimeOverlap
			}

			err = tx.QueryRow(
				ctx,
				`INSERT INTO showtimes (movie_id, room_id, start_at, end_at, base_price)
				VALUES ($1, $2, $3, $4, $5)
				RETURNING id`,
				s.MovieID, s.RoomID, s.StartAt, s.EndAt, s.BasePrice,
			).Scan(&s.ID)

			if err != nil {
				return err
			}
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return created, nil
}
