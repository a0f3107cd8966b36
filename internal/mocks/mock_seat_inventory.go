package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

type MockSeatInventory struct {
	mock.Mock
}

func (m *MockSeatInventory) Reserve(
	ctx context.Context,
	showtimeID int,
	seatCodes []string,
	bookingID string,
	ttl time.Duration) error {

	args := m.Called(ctx, showtimeID, seatCodes, bookingID, ttl)
	return args.Error(0)
}

func (m *MockSeatInventory) Release(ctx context.Context, showtimeID int, seatCodes []string, bookingID string) error {
	args := m.Called(ctx, showtimeID, seatCodes, bookingID)
	return args.Error(0)
}

func (m *MockSeatInventory) Commit(ctx context.Context, showtimeID int, seatCodes []string, bookingID string) error {
	args := m.Called(ctx, showtimeID, seatCodes, bookingID)
	return args.Error(0)
}

func (m *MockSeatInventory) HeldSeats(ctx context.Context, showtimeID int) ([]string, error) {
	args := m.Called(ctx, showtimeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}
