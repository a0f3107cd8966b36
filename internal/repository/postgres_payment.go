package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tranvd/cinebook/internal/domain"
)

type PostgresPaymentRepository struct {
	db *pgxpool.Pool
}

func NewPostgresPaymentRepository(db *pgxpool.Pool) *PostgresPaymentRepository {
	return &PostgresPaymentRepository{
		db: db,
	}
}

func (p *PostgresPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (booking_id, order_code, amount, status, provider)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := p.db.QueryRow(
		ctx,
		query,
		payment.BookingID,
		payment.OrderCode,
		payment.Amount,
		payment.Status,
		payment.Provider,
	).Scan(&payment.ID, &payment.CreatedAt)

	if err != nil {
		// The partial unique index on (booking_id) WHERE status = 'pending'
		// enforces at most one open payment per booking.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return domain.ErrPaymentAlreadyPending
		}

		return err
	}

	return nil
}

func (p *PostgresPaymentRepository) GetByOrderCode(ctx context.Context, orderCode int64) (*domain.Payment, error) {
	query := `
		SELECT id, booking_id, order_code, amount, status, provider,
			transaction_id, transaction_at, created_at, updated_at
		FROM payments
		WHERE order_code = $1
	`

	var payment domain.Payment

	err := p.db.QueryRow(ctx, query, orderCode).Scan(
		&payment.ID,
		&payment.BookingID,
		&payment.OrderCode,
		&payment.Amount,
		&payment.Status,
		&payment.Provider,
		&payment.TransactionID,
		&payment.TransactionAt,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}

		return nil, err
	}

	return &payment, nil
}

func (p *PostgresPaymentRepository) MarkPaid(
	ctx context.Context,
	orderCode int64,
	transactionID string,
	transactionAt time.Time) (bool, error) {

	query := `
		UPDATE payments
		SET status = 'paid', transaction_id = $2, transaction_at = $3, updated_at = now()
		WHERE order_code = $1 AND status = 'pending'
	`

	tag, err := p.db.Exec(ctx, query, orderCode, transactionID, transactionAt)
	if err != nil {
		return false, err
	}

	return tag.RowsAffected() == 1, nil
}

func (p *PostgresPaymentRepository) UpdateStatus(
	ctx context.Context,
	orderCode int64,
	status domain.PaymentStatus) error {

	query := `
		UPDATE payments
		SET status = $2, updated_at = now()
		WHERE order_code = $1 AND status = 'pending'
	`

	_, err := p.db.Exec(ctx, query, orderCode, status)
	return err
}

func (p *PostgresPaymentRepository) ExpirePendingByBookingIds(ctx context.Context, bookingIDs []uuid.UUID) error {
	if len(bookingIDs) == 0 {
		return nil
	}

	query := `
		UPDATE payments
		SET status = 'expired', updated_at = now()
		WHERE booking_id = ANY($1) AND status = 'pending'
	`

	_, err := p.db.Exec(ctx, query, bookingIDs)
	return err
}
