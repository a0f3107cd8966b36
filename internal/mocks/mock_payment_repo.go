package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/tranvd/cinebook/internal/domain"
)

type MockPaymentRepo struct {
	mock.Mock
}

func (m *MockPaymentRepo) Create(ctx context.Context, payment *domain.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockPaymentRepo) GetByOrderCode(ctx context.Context, orderCode int64) (*domain.Payment, error) {
	args := m.Called(ctx, orderCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *MockPaymentRepo) MarkPaid(
	ctx context.Context,
	orderCode int64,
	transactionID string,
	transactionAt time.Time) (bool, error) {

	args := m.Called(ctx, orderCode, transactionID, transactionAt)
	return args.Bool(0), args.Error(1)
}

func (m *MockPaymentRepo) UpdateStatus(ctx context.Context, orderCode int64, status domain.PaymentStatus) error {
	args := m.Called(ctx, orderCode, status)
	return args.Error(0)
}

func (m *MockPaymentRepo) ExpirePendingByBookingIds(ctx context.Context, bookingIDs []uuid.UUID) error {
	args := m.Called(ctx, bookingIDs)
	return args.Error(0)
}
