package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TicketStatus string

const (
	TicketStatusValid TicketStatus = "VALID"
	TicketStatusUsed  TicketStatus = "USED"
)

// Ticket is an immutable snapshot of seat, showtime and price taken at
// confirmation time. Only Status and ScannedAt change afterwards.
type Ticket struct {
	ID         int
	Code       uuid.UUID
	BookingID  uuid.UUID
	ShowtimeID int
	SeatCode   string
	SeatType   SeatType
	Price      decimal.Decimal
	Status     TicketStatus
	IssuedAt   time.Time
	ScannedAt  *time.Time
}

type TicketRepository interface {
	GetByBookingId(ctx context.Context, bookingID uuid.UUID) ([]Ticket, error)
	// CheckIn transitions VALID -> USED exactly once.
	CheckIn(ctx context.Context, code uuid.UUID) (*Ticket, error)
}
