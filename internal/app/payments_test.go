package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"github.com/tranvd/cinebook/api"
	"github.com/tranvd/cinebook/internal/domain"
	"github.com/tranvd/cinebook/internal/mocks"
)

type PaymentsTestSuite struct {
	suite.Suite
	app          *application
	bookingRepo  *mocks.MockBookingRepo
	paymentRepo  *mocks.MockPaymentRepo
	showtimeRepo *mocks.MockShowtimeRepo
	movieRepo    *mocks.MockMovieRepo
	inventory    *mocks.MockSeatInventory
	provider     *mocks.MockPaymentProvider
}

func (s *PaymentsTestSuite) SetupTest() {
	s.bookingRepo = new(mocks.MockBookingRepo)
	s.paymentRepo = new(mocks.MockPaymentRepo)
	s.showtimeRepo = new(mocks.MockShowtimeRepo)
	s.movieRepo = new(mocks.MockMovieRepo)
	s.inventory = new(mocks.MockSeatInventory)
	s.provider = new(mocks.MockPaymentProvider)

	s.app = newTestApplication(func(a *application) {
		a.bookingRepo = s.bookingRepo
		a.paymentRepo = s.paymentRepo
		a.showtimeRepo = s.showtimeRepo
		a.movieRepo = s.movieRepo
		a.inventory = s.inventory
		a.paymentProvider = s.provider
	})
}

func TestPaymentsSuite(t *testing.T) {
	suite.Run(t, new(PaymentsTestSuite))
}

func pendingBooking(userID int) *domain.Booking {
	return &domain.Booking{
		ID:         uuid.New(),
		UserID:     userID,
		ShowtimeID: 1,
		Status:     domain.BookingStatusPending,
		Seats: []domain.BookingSeat{
			{SeatCode: "A1", SeatType: domain.SeatTypeNormal, UnitPrice: decimal.NewFromInt(90000)},
		},
		TotalAmount: decimal.NewFromInt(90000),
		ExpiresAt:   time.Now().Add(5 * time.Minute),
	}
}

func (s *PaymentsTestSuite) TestCreateCheckoutSession() {
	booking := pendingBooking(7)

	tests := []struct {
		name           string
		setupMocks     func()
		wantStatus     int
		wantErrMessage string
	}{
		{
			name: "should return not found when booking does not exist",
			setupMocks: func() {
				s.bookingRepo.On("GetById", mock.Anything, booking.ID).Return(nil, domain.ErrRecordNotFound)
			},
			wantStatus: http.StatusNotFound,
		},
		{
			name: "should return not found for another user's booking",
			setupMocks: func() {
				other := *booking
				other.UserID = 8
				s.bookingRepo.On("GetById", mock.Anything, booking.ID).Return(&other, nil)
			},
			wantStatus: http.StatusNotFound,
		},
		{
			name: "should fail when booking is not pending",
			setupMocks: func() {
				confirmed := *booking
				confirmed.Status = domain.BookingStatusConfirmed
				s.bookingRepo.On("GetById", mock.Anything, booking.ID).Return(&confirmed, nil)
			},
			wantStatus:     http.StatusConflict,
			wantErrMessage: domain.ErrBookingNotPending.Error(),
		},
		{
			name: "should fail when the booking hold has lapsed",
			setupMocks: func() {
				expired := *booking
				expired.ExpiresAt = time.Now().Add(-time.Minute)
				s.bookingRepo.On("GetById", mock.Anything, booking.ID).Return(&expired, nil)
			},
			wantStatus:     http.StatusGone,
			wantErrMessage: domain.ErrBookingExpired.Error(),
		},
		{
			name: "should fail when a pending payment already exists",
			setupMocks: func() {
				s.bookingRepo.On("GetById", mock.Anything, booking.ID).Return(booking, nil)
				s.paymentRepo.On("Create", mock.Anything, mock.Anything).Return(domain.ErrPaymentAlreadyPending)
			},
			wantStatus:     http.StatusConflict,
			wantErrMessage: domain.ErrPaymentAlreadyPending.Error(),
		},
		{
			name: "should mark the payment failed when the provider rejects the checkout",
			setupMocks: func() {
				s.bookingRepo.On("GetById", mock.Anything, booking.ID).Return(booking, nil)
				s.paymentRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
				s.provider.On("InitiateCheckout", mock.Anything, mock.Anything).
					Return(nil, fmt.Errorf("provider unavailable"))
				s.paymentRepo.On("UpdateStatus", mock.Anything, mock.Anything, domain.PaymentStatusFailed).
					Return(nil)
			},
			wantStatus:     http.StatusInternalServerError,
			wantErrMessage: ErrInternalServer,
		},
		{
			name: "should return the checkout URL",
			setupMocks: func() {
				s.bookingRepo.On("GetById", mock.Anything, booking.ID).Return(booking, nil)
				s.paymentRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
				s.provider.On("InitiateCheckout", mock.Anything, mock.Anything).
					Return(&domain.CheckoutSession{OrderCode: 123456, CheckoutURL: "https://pay.example.com/123456"}, nil)
			},
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.SetupTest()

			defer s.bookingRepo.AssertExpectations(s.T())
			defer s.paymentRepo.AssertExpectations(s.T())
			defer s.provider.AssertExpectations(s.T())

			tt.setupMocks()

			w, r := executeRequest(s.T(), http.MethodPost, "/bookings/"+booking.ID.String()+"/checkout", nil)
			r = setupAuthContext(r, 7, "user@example.com")

			s.app.CreateCheckoutSession(w, r, booking.ID)

			s.Equal(tt.wantStatus, w.Code)

			if tt.wantStatus == http.StatusOK {
				var response api.CheckoutResponse
				err := json.NewDecoder(w.Body).Decode(&response)
				s.Require().NoError(err)

				s.Equal(int64(123456), response.OrderCode)
				s.Equal("https://pay.example.com/123456", response.CheckoutUrl)
				s.True(response.Amount.Equal(booking.TotalAmount))
			}

			checkErrorResponse(s.T(), w, struct {
				wantStatus     int
				wantErrMessage string
			}{
				wantStatus:     tt.wantStatus,
				wantErrMessage: tt.wantErrMessage,
			})
		})
	}
}

func (s *PaymentsTestSuite) executeWebhook(payload []byte) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodPost, "/webhooks/payment", bytes.NewReader(payload))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	s.app.PaymentWebhookHandler(w, r)

	return w
}

func (s *PaymentsTestSuite) TestPaymentWebhook() {
	payload := []byte(`{"code":"00","success":true}`)
	transactionAt := time.Now().Truncate(time.Second)

	booking := pendingBooking(7)
	// No email on the booking keeps the receipt goroutine a no-op.
	booking.UserEmail = ""

	payment := &domain.Payment{
		ID:        42,
		BookingID: booking.ID,
		OrderCode: 123456,
		Amount:    booking.TotalAmount,
		Status:    domain.PaymentStatusPending,
		Provider:  "payos",
	}

	event := &domain.WebhookEvent{
		OrderCode:     123456,
		Amount:        booking.TotalAmount,
		Succeeded:     true,
		Code:          "00",
		TransactionID: "FT123",
		TransactionAt: transactionAt,
	}

	tests := []struct {
		name           string
		setupMocks     func()
		wantStatus     int
		wantErrMessage string
	}{
		{
			name: "should reject a payload with an invalid signature",
			setupMocks: func() {
				s.provider.On("VerifySignature", payload).Return(domain.ErrInvalidSignature)
			},
			wantStatus:     http.StatusBadRequest,
			wantErrMessage: domain.ErrInvalidSignature.Error(),
		},
		{
			name: "should reject an unknown order code",
			setupMocks: func() {
				s.provider.On("VerifySignature", payload).Return(nil)
				s.provider.On("ParseWebhook", payload).Return(event, nil)
				s.paymentRepo.On("GetByOrderCode", mock.Anything, int64(123456)).
					Return(nil, domain.ErrRecordNotFound)
			},
			wantStatus:     http.StatusNotFound,
			wantErrMessage: domain.ErrUnknownOrder.Error(),
		},
		{
			name: "should mark the payment failed when the provider reports a failure",
			setupMocks: func() {
				failed := *event
				failed.Succeeded = false
				failed.Code = "07"

				s.provider.On("VerifySignature", payload).Return(nil)
				s.provider.On("ParseWebhook", payload).Return(&failed, nil)
				s.paymentRepo.On("GetByOrderCode", mock.Anything, int64(123456)).Return(payment, nil)
				s.paymentRepo.On("UpdateStatus", mock.Anything, int64(123456), domain.PaymentStatusFailed).
					Return(nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "should mark the payment cancelled when the customer abandoned the checkout",
			setupMocks: func() {
				cancelled := *event
				cancelled.Succeeded = false
				cancelled.Cancelled = true
				cancelled.Code = "02"

				s.provider.On("VerifySignature", payload).Return(nil)
				s.provider.On("ParseWebhook", payload).Return(&cancelled, nil)
				s.paymentRepo.On("GetByOrderCode", mock.Anything, int64(123456)).Return(payment, nil)
				s.paymentRepo.On("UpdateStatus", mock.Anything, int64(123456), domain.PaymentStatusCancelled).
					Return(nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "should reject a webhook whose amount does not match the payment",
			setupMocks: func() {
				wrong := *event
				wrong.Amount = decimal.NewFromInt(1000)

				s.provider.On("VerifySignature", payload).Return(nil)
				s.provider.On("ParseWebhook", payload).Return(&wrong, nil)
				s.paymentRepo.On("GetByOrderCode", mock.Anything, int64(123456)).Return(payment, nil)
			},
			wantStatus:     http.StatusBadRequest,
			wantErrMessage: domain.ErrAmountMismatch.Error(),
		},
		{
			name: "should ignore a duplicate delivery",
			setupMocks: func() {
				s.provider.On("VerifySignature", payload).Return(nil)
				s.provider.On("ParseWebhook", payload).Return(event, nil)
				s.paymentRepo.On("GetByOrderCode", mock.Anything, int64(123456)).Return(payment, nil)
				s.paymentRepo.On("MarkPaid", mock.Anything, int64(123456), "FT123", transactionAt).
					Return(false, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "should refuse confirmation when the seat holds are no longer owned",
			setupMocks: func() {
				s.provider.On("VerifySignature", payload).Return(nil)
				s.provider.On("ParseWebhook", payload).Return(event, nil)
				s.paymentRepo.On("GetByOrderCode", mock.Anything, int64(123456)).Return(payment, nil)
				s.paymentRepo.On("MarkPaid", mock.Anything, int64(123456), "FT123", transactionAt).
					Return(true, nil)
				s.bookingRepo.On("GetById", mock.Anything, booking.ID).Return(booking, nil)
				s.inventory.On("Commit", mock.Anything, 1, []string{"A1"}, booking.ID.String()).
					Return(domain.ErrNotHeldByBooking)
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "should acknowledge a payment whose booking already lapsed",
			setupMocks: func() {
				s.provider.On("VerifySignature", payload).Return(nil)
				s.provider.On("ParseWebhook", payload).Return(event, nil)
				s.paymentRepo.On("GetByOrderCode", mock.Anything, int64(123456)).Return(payment, nil)
				s.paymentRepo.On("MarkPaid", mock.Anything, int64(123456), "FT123", transactionAt).
					Return(true, nil)
				s.bookingRepo.On("GetById", mock.Anything, booking.ID).Return(booking, nil)
				s.inventory.On("Commit", mock.Anything, 1, []string{"A1"}, booking.ID.String()).Return(nil)
				s.bookingRepo.On("Confirm", mock.Anything, booking.ID, 42).
					Return(nil, nil, domain.ErrBookingExpired)
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "should commit the seat locks and confirm the booking",
			setupMocks: func() {
				confirmed := *booking
				confirmed.Status = domain.BookingStatusConfirmed

				tickets := []domain.Ticket{
					{Code: uuid.New(), BookingID: booking.ID, ShowtimeID: 1, SeatCode: "A1"},
				}

				s.provider.On("VerifySignature", payload).Return(nil)
				s.provider.On("ParseWebhook", payload).Return(event, nil)
				s.paymentRepo.On("GetByOrderCode", mock.Anything, int64(123456)).Return(payment, nil)
				s.paymentRepo.On("MarkPaid", mock.Anything, int64(123456), "FT123", transactionAt).
					Return(true, nil)
				s.bookingRepo.On("GetById", mock.Anything, booking.ID).Return(booking, nil)
				s.inventory.On("Commit", mock.Anything, 1, []string{"A1"}, booking.ID.String()).Return(nil)
				s.bookingRepo.On("Confirm", mock.Anything, booking.ID, 42).
					Return(&confirmed, tickets, nil)
			},
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.SetupTest()

			defer s.provider.AssertExpectations(s.T())
			defer s.paymentRepo.AssertExpectations(s.T())
			defer s.bookingRepo.AssertExpectations(s.T())
			defer s.inventory.AssertExpectations(s.T())

			tt.setupMocks()

			w := s.executeWebhook(payload)

			// The receipt goroutine must finish before mock assertions run.
			wg.Wait()

			s.Equal(tt.wantStatus, w.Code)

			checkErrorResponse(s.T(), w, struct {
				wantStatus     int
				wantErrMessage string
			}{
				wantStatus:     tt.wantStatus,
				wantErrMessage: tt.wantErrMessage,
			})
		})
	}
}
