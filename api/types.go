// Package api defines the request and response types of the HTTP boundary.
package api

import (
	"time"

	"github.com/shopspring/decimal"
)

type ErrorResponse struct {
	Message   string    `json:"message"`
	RequestId string    `json:"requestId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type ValidationError struct {
	Field string `json:"field"`
	Issue string `json:"issue"`
}

type ValidationErrorResponse struct {
	Message          string            `json:"message"`
	ValidationErrors []ValidationError `json:"validationErrors"`
	RequestId        string            `json:"requestId,omitempty"`
	Timestamp        time.Time         `json:"timestamp"`
}

type SystemInfo struct {
	Version     string `json:"version"`
	Environment string `json:"environment"`
}

type HealthcheckResponse struct {
	Status     string     `json:"status"`
	SystemInfo SystemInfo `json:"systemInfo"`
}

type Seat struct {
	Code      string `json:"code"`
	Type      string `json:"type"`
	Available bool   `json:"available"`
}

type AvailableSeatsResponse struct {
	ShowtimeId int    `json:"showtimeId"`
	Seats      []Seat `json:"seats"`
}

type CreateBookingRequest struct {
	ShowtimeId int      `json:"showtimeId" validate:"required,gt=0"`
	SeatCodes  []string `json:"seatCodes" validate:"required,min=1,max=8,unique,dive,seat_code"`
}

type BookingSeat struct {
	SeatCode  string          `json:"seatCode"`
	SeatType  string          `json:"seatType"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

type BookingResponse struct {
	Id          string          `json:"id"`
	ShowtimeId  int             `json:"showtimeId"`
	Status      string          `json:"status"`
	Seats       []BookingSeat   `json:"seats"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	ExpiresAt   *time.Time      `json:"expiresAt,omitempty"`
	ConfirmedAt *time.Time      `json:"confirmedAt,omitempty"`
	CancelledAt *time.Time      `json:"cancelledAt,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

type BookingSummary struct {
	Id          string          `json:"id"`
	MovieTitle  string          `json:"movieTitle"`
	ShowtimeAt  time.Time       `json:"showtimeAt"`
	Status      string          `json:"status"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	SeatCount   int             `json:"seatCount"`
	CreatedAt   time.Time       `json:"createdAt"`
}

type UserBookingsResponse struct {
	Bookings []BookingSummary `json:"bookings"`
	Metadata Metadata         `json:"metadata"`
}

type Metadata struct {
	CurrentPage  int `json:"currentPage"`
	FirstPage    int `json:"firstPage"`
	LastPage     int `json:"lastPage"`
	PageSize     int `json:"pageSize"`
	TotalRecords int `json:"totalRecords"`
}

type GetUserBookingsParams struct {
	Page     *int `validate:"omitempty,gte=1"`
	PageSize *int `validate:"omitempty,gte=1,lte=50"`
}

type CheckoutResponse struct {
	OrderCode   int64           `json:"orderCode"`
	Amount      decimal.Decimal `json:"amount"`
	CheckoutUrl string          `json:"checkoutUrl"`
}

type Ticket struct {
	Code      string          `json:"code"`
	SeatCode  string          `json:"seatCode"`
	SeatType  string          `json:"seatType"`
	Price     decimal.Decimal `json:"price"`
	Status    string          `json:"status"`
	ScannedAt *time.Time      `json:"scannedAt,omitempty"`
}

type TicketsResponse struct {
	BookingId string   `json:"bookingId"`
	Tickets   []Ticket `json:"tickets"`
}

type CheckInResponse struct {
	Code      string    `json:"code"`
	SeatCode  string    `json:"seatCode"`
	Status    string    `json:"status"`
	ScannedAt time.Time `json:"scannedAt"`
}

type CreateShowtimeBatchRequest struct {
	MovieId  int         `json:"movieId" validate:"required,gt=0"`
	RoomIds  []int       `json:"roomIds" validate:"required,min=1,unique,dive,gt=0"`
	StartAts []time.Time `json:"startAts" validate:"required,min=1"`
}

type Showtime struct {
	Id      int       `json:"id"`
	MovieId int       `json:"movieId"`
	RoomId  int       `json:"roomId"`
	StartAt time.Time `json:"startAt"`
	EndAt   time.Time `json:"endAt"`
}

type ShowtimesResponse struct {
	Showtimes []Showtime `json:"showtimes"`
}
