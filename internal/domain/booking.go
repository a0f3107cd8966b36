package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusExpired   BookingStatus = "expired"
)

// Booking is the aggregate root of the reservation lifecycle. It is never
// deleted; terminal states are kept as an audit trail.
type Booking struct {
	ID          uuid.UUID
	UserID      int
	UserEmail   string
	ShowtimeID  int
	Status      BookingStatus
	Seats       []BookingSeat
	TotalAmount decimal.Decimal
	PaymentID   *int
	ExpiresAt   time.Time
	ConfirmedAt *time.Time
	CancelledAt *time.Time
	CreatedAt   time.Time
}

// BookingSeat snapshots the seat and its unit price at booking time, so later
// catalog edits never change an already-quoted total.
type BookingSeat struct {
	SeatCode  string
	SeatType  SeatType
	UnitPrice decimal.Decimal
}

func (b Booking) SeatCodes() []string {
	codes := make([]string, len(b.Seats))
	for i, s := range b.Seats {
		codes[i] = s.SeatCode
	}

	return codes
}

type BookingSummary struct {
	BookingID   uuid.UUID
	MovieTitle  string
	ShowtimeAt  time.Time
	Status      BookingStatus
	TotalAmount decimal.Decimal
	SeatCount   int
	CreatedAt   time.Time
}

// ExpiredBooking is what the sweeper needs to release a lapsed hold.
type ExpiredBooking struct {
	ID         uuid.UUID
	ShowtimeID int
	SeatCodes  []string
}

type BookingRepository interface {
	Create(ctx context.Context, booking *Booking) error
	GetById(ctx context.Context, id uuid.UUID) (*Booking, error)
	// GetBookedSeatCodes returns the seat codes of confirmed bookings for
	// the showtime, i.e. the durable BOOKED state.
	GetBookedSeatCodes(ctx context.Context, showtimeID int) ([]string, error)
	// Cancel transitions pending -> cancelled, only for the owning user.
	Cancel(ctx context.Context, id uuid.UUID, userID int) (*Booking, error)
	// Confirm transitions pending -> confirmed and issues one ticket per
	// seat in the same transaction. The conditional update checks
	// expires_at, so a lapsed hold fails with ErrBookingExpired even when
	// the sweeper has not run yet.
	Confirm(ctx context.Context, id uuid.UUID, paymentID int) (*Booking, []Ticket, error)
	// ExpireDue transitions every pending booking past its deadline to
	// expired and returns what was transitioned.
	ExpireDue(ctx context.Context) ([]ExpiredBooking, error)
	GetSummariesByUserId(ctx context.Context, userID int, pagination Pagination) ([]BookingSummary, *Metadata, error)
}
