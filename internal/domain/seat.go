package domain

import (
	"context"
	"time"
)

type SeatType string

const (
	SeatTypeNormal SeatType = "NORMAL"
	SeatTypeVip    SeatType = "VIP"
	SeatTypeCouple SeatType = "COUPLE"
)

// Seat is a static catalog entry. Per-showtime availability lives in the
// inventory locks and in the confirmed bookings, never on the seat itself.
type Seat struct {
	RoomID int
	Code   string
	Type   SeatType
}

type SeatRepository interface {
	GetSeatsByShowtime(ctx context.Context, showtimeID int) ([]Seat, error)
	GetSeatsByShowtimeAndCodes(ctx context.Context, showtimeID int, codes []string) ([]Seat, error)
}

// SeatInventory coordinates the per-showtime seat holds. Reserve is
// all-or-nothing across the requested seat set; Release and Commit only act
// on holds owned by the given booking.
type SeatInventory interface {
	Reserve(ctx context.Context, showtimeID int, seatCodes []string, bookingID string, ttl time.Duration) error
	Release(ctx context.Context, showtimeID int, seatCodes []string, bookingID string) error
	Commit(ctx context.Context, showtimeID int, seatCodes []string, bookingID string) error
	HeldSeats(ctx context.Context, showtimeID int) ([]string, error)
}
