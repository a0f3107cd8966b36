package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type Movie struct {
	ID        int
	Title     string
	Duration  time.Duration
	BasePrice decimal.Decimal
}

type Showtime struct {
	ID        int
	MovieID   int
	RoomID    int
	StartAt   time.Time
	EndAt     time.Time
	BasePrice decimal.Decimal
}

// Overlaps reports whether the two showtimes' [StartAt, EndAt) intervals
// intersect. EndAt already includes the cleaning gap, so a showtime starting
// exactly at another's EndAt does not overlap.
func (s Showtime) Overlaps(other Showtime) bool {
	return s.RoomID == other.RoomID &&
		s.StartAt.Before(other.EndAt) && other.StartAt.Before(s.EndAt)
}

type MovieRepository interface {
	GetById(ctx context.Context, id int) (*Movie, error)
}

type ShowtimeRepository interface {
	GetById(ctx context.Context, id int) (*Showtime, error)
	// CreateBatch persists all showtimes or none. It returns
	// ErrShowtimeOverlap when any of them collides with an existing
	// showtime in the same room.
	CreateBatch(ctx context.Context, showtimes []Showtime) ([]Showtime, error)
}
