package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/tranvd/cinebook/internal/domain"
)

type MockSeatRepo struct {
	mock.Mock
}

func (m *MockSeatRepo) GetSeatsByShowtime(ctx context.Context, showtimeID int) ([]domain.Seat, error) {
	args := m.Called(ctx, showtimeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Seat), args.Error(1)
}

func (m *MockSeatRepo) GetSeatsByShowtimeAndCodes(
	ctx context.Context,
	showtimeID int,
	codes []string) ([]domain.Seat, error) {

	args := m.Called(ctx, showtimeID, codes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Seat), args.Error(1)
}

type MockShowtimeRepo struct {
	mock.Mock
}

func (m *MockShowtimeRepo) GetById(ctx context.Context, id int) (*domain.Showtime, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Showtime), args.Error(1)
}

func (m *MockShowtimeRepo) CreateBatch(ctx context.Context, showtimes []domain.Showtime) ([]domain.Showtime, error) {
	args := m.Called(ctx, showtimes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Showtime), args.Error(1)
}

type MockMovieRepo struct {
	mock.Mock
}

func (m *MockMovieRepo) GetById(ctx context.Context, id int) (*domain.Movie, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Movie), args.Error(1)
}

type MockTicketRepo struct {
	mock.Mock
}

func (m *MockTicketRepo) GetByBookingId(ctx context.Context, bookingID uuid.UUID) ([]domain.Ticket, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Ticket), args.Error(1)
}

func (m *MockTicketRepo) CheckIn(ctx context.Context, code uuid.UUID) (*domain.Ticket, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}
