package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusPaid      PaymentStatus = "paid"
	PaymentStatusCancelled PaymentStatus = "cancelled"
	PaymentStatusExpired   PaymentStatus = "expired"
	PaymentStatusFailed    PaymentStatus = "failed"
)

type Payment struct {
	ID            int
	BookingID     uuid.UUID
	OrderCode     int64
	Amount        decimal.Decimal
	Status        PaymentStatus
	Provider      string
	TransactionID *string
	TransactionAt *time.Time
	CreatedAt     time.Time
	UpdatedAt     *time.Time
}

type PaymentRepository interface {
	// Create inserts a pending payment. At most one pending payment may
	// exist per booking; a second attempt fails with
	// ErrPaymentAlreadyPending.
	Create(ctx context.Context, payment *Payment) error
	GetByOrderCode(ctx context.Context, orderCode int64) (*Payment, error)
	// MarkPaid transitions pending -> paid. It reports false without error
	// when the payment was not pending anymore, which is how duplicate
	// webhook deliveries are detected.
	MarkPaid(ctx context.Context, orderCode int64, transactionID string, transactionAt time.Time) (bool, error)
	UpdateStatus(ctx context.Context, orderCode int64, status PaymentStatus) error
	// ExpirePendingByBookingIds closes out pending payments whose bookings
	// were expired by the sweeper.
	ExpirePendingByBookingIds(ctx context.Context, bookingIDs []uuid.UUID) error
}
