package sweeper

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"github.com/tranvd/cinebook/internal/domain"
	"github.com/tranvd/cinebook/internal/mocks"
)

type SweeperTestSuite struct {
	suite.Suite
	bookingRepo *mocks.MockBookingRepo
	paymentRepo *mocks.MockPaymentRepo
	inventory   *mocks.MockSeatInventory
	sweeper     *Sweeper
}

func (s *SweeperTestSuite) SetupTest() {
	s.bookingRepo = new(mocks.MockBookingRepo)
	s.paymentRepo = new(mocks.MockPaymentRepo)
	s.inventory = new(mocks.MockSeatInventory)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.sweeper = New(s.bookingRepo, s.paymentRepo, s.inventory, logger, 30*time.Second)
}

func TestSweeperSuite(t *testing.T) {
	suite.Run(t, new(SweeperTestSuite))
}

func (s *SweeperTestSuite) TestSweepReleasesSeatsAndExpiresPayments() {
	first := uuid.New()
	second := uuid.New()

	expired := []domain.ExpiredBooking{
		{ID: first, ShowtimeID: 1, SeatCodes: []string{"A1", "A2"}},
		{ID: second, ShowtimeID: 2, SeatCodes: []string{"B5"}},
	}

	s.bookingRepo.On("ExpireDue", mock.Anything).Return(expired, nil).Once()
	s.inventory.On("Release", mock.Anything, 1, []string{"A1", "A2"}, first.String()).Return(nil).Once()
	s.inventory.On("Release", mock.Anything, 2, []string{"B5"}, second.String()).Return(nil).Once()
	s.paymentRepo.On("ExpirePendingByBookingIds", mock.Anything, []uuid.UUID{first, second}).Return(nil).Once()

	s.sweeper.Sweep(context.Background())

	s.bookingRepo.AssertExpectations(s.T())
	s.inventory.AssertExpectations(s.T())
	s.paymentRepo.AssertExpectations(s.T())
}

func (s *SweeperTestSuite) TestSweepDoesNothingWhenNoBookingIsDue() {
	s.bookingRepo.On("ExpireDue", mock.Anything).Return([]domain.ExpiredBooking{}, nil).Once()

	s.sweeper.Sweep(context.Background())

	s.bookingRepo.AssertExpectations(s.T())
	s.inventory.AssertNotCalled(s.T(), "Release")
	s.paymentRepo.AssertNotCalled(s.T(), "ExpirePendingByBookingIds")
}

func (s *SweeperTestSuite) TestSweepTreatsReleaseFailureAsNonFatal() {
	first := uuid.New()
	second := uuid.New()

	expired := []domain.ExpiredBooking{
		{ID: first, ShowtimeID: 1, SeatCodes: []string{"A1"}},
		{ID: second, ShowtimeID: 1, SeatCodes: []string{"A2"}},
	}

	s.bookingRepo.On("ExpireDue", mock.Anything).Return(expired, nil).Once()
	s.inventory.On("Release", mock.Anything, 1, []string{"A1"}, first.String()).
		Return(fmt.Errorf("redis unavailable")).Once()
	s.inventory.On("Release", mock.Anything, 1, []string{"A2"}, second.String()).Return(nil).Once()
	s.paymentRepo.On("ExpirePendingByBookingIds", mock.Anything, []uuid.UUID{first, second}).Return(nil).Once()

	s.sweeper.Sweep(context.Background())

	s.inventory.AssertExpectations(s.T())
	s.paymentRepo.AssertExpectations(s.T())
}

func (s *SweeperTestSuite) TestSweepStopsWhenExpiryQueryFails() {
	s.bookingRepo.On("ExpireDue", mock.Anything).Return([]domain.ExpiredBooking{}, fmt.Errorf("db down")).Once()

	s.sweeper.Sweep(context.Background())

	s.inventory.AssertNotCalled(s.T(), "Release")
	s.paymentRepo.AssertNotCalled(s.T(), "ExpirePendingByBookingIds")
}
