package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tranvd/cinebook/api"
	"github.com/tranvd/cinebook/internal/domain"
)

func (app *application) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req api.CreateBookingRequest

	err := app.readJSON(w, r, &req)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.validator.Struct(req)
	if err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			app.failedValidationResponse(w, r, validationErrors)
			return
		}

		app.serverErrorResponse(w, r, err)
		return
	}

	showtime, err := app.showtimeRepo.GetById(r.Context(), req.ShowtimeId)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			app.notFoundResponseWithErr(w, r, fmt.Errorf("showtime %d not found", req.ShowtimeId))
			return
		}

		app.serverErrorResponse(w, r, err)
		return
	}

	if !showtime.StartAt.After(time.Now()) {
		app.goneResponseWithErr(w, r, fmt.Errorf("showtime has already started"))
		return
	}

	seats, err := app.seatRepo.GetSeatsByShowtimeAndCodes(r.Context(), req.ShowtimeId, req.SeatCodes)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	if len(seats) != len(req.SeatCodes) {
		app.badRequestResponse(w, r, domain.ErrSeatUnknown)
		return
	}

	bookedCodes, err := app.bookingRepo.GetBookedSeatCodes(r.Context(), req.ShowtimeId)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	booked := make(map[string]bool, len(bookedCodes))
	for _, code := range bookedCodes {
		booked[code] = true
	}

	for _, code := range req.SeatCodes {
		if booked[code] {
			app.editConflictResponseWithErr(w, r, domain.ErrSeatAlreadyBooked)
			return
		}
	}

	bookingID := uuid.New()

	// The booking deadline and the lock TTL derive from the same instant,
	// so the Redis holds cannot lapse before the row does.
	expiresAt := time.Now().Add(app.config.booking.holdTTL)

	err = app.inventory.Reserve(r.Context(), req.ShowtimeId, req.SeatCodes, bookingID.String(), time.Until(expiresAt))
	if err != nil {
		if errors.Is(err, domain.ErrSeatAlreadyHeld) {
			app.editConflictResponseWithErr(w, r, err)
			return
		}

		app.serverErrorResponse(w, r, err)
		return
	}

	booking := app.buildBooking(bookingID, expiresAt, r, showtime, seats)

	err = app.bookingRepo.Create(r.Context(), booking)
	if err != nil {
		app.releaseHold(r.Context(), booking)
		app.serverErrorResponse(w, r, err)
		return
	}

	resp := toBookingResponse(booking)

	err = app.writeJSON(w, http.StatusCreated, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// buildBooking quotes each seat with the pricing engine and snapshots the
// result, so the total never changes after this point.
func (app *application) buildBooking(
	bookingID uuid.UUID,
	expiresAt time.Time,
	r *http.Request,
	showtime *domain.Showtime,
	seats []domain.Seat) *domain.Booking {

	bookingSeats := make([]domain.BookingSeat, 0, len(seats))
	total := decimal.Zero

	for _, seat := range seats {
		unitPrice := app.pricing.Price(showtime.BasePrice, seat.Type, showtime.StartAt.Weekday())
		total = total.Add(unitPrice)

		bookingSeats = append(bookingSeats, domain.BookingSeat{
			SeatCode:  seat.Code,
			SeatType:  seat.Type,
			UnitPrice: unitPrice,
		})
	}

	return &domain.Booking{
		ID:          bookingID,
		UserID:      app.contextGetUserId(r),
		UserEmail:   app.contextGetUserEmail(r),
		ShowtimeID:  showtime.ID,
		Status:      domain.BookingStatusPending,
		Seats:       bookingSeats,
		TotalAmount: total,
		ExpiresAt:   expiresAt,
	}
}

// releaseHold frees the booking's seat locks on a best-effort basis. The
// locks carry a TTL, so a failed release only delays the seats' return.
func (app *application) releaseHold(ctx context.Context, booking *domain.Booking) {
	err := app.inventory.Release(ctx, booking.ShowtimeID, booking.SeatCodes(), booking.ID.String())
	if err != nil {
		app.logger.Error("failed to release seat locks", "booking_id", booking.ID, "error", err)
	}
}

func (app *application) GetBooking(w http.ResponseWriter, r *http.Request, bookingID uuid.UUID) {
	booking, err := app.bookingRepo.GetById(r.Context(), bookingID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			app.notFoundResponse(w, r)
			return
		}

		app.serverErrorResponse(w, r, err)
		return
	}

	// Another user's booking is indistinguishable from a missing one.
	if booking.UserID != app.contextGetUserId(r) {
		app.notFoundResponse(w, r)
		return
	}

	resp := toBookingResponse(booking)

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) CancelBooking(w http.ResponseWriter, r *http.Request, bookingID uuid.UUID) {
	booking, err := app.bookingRepo.Cancel(r.Context(), bookingID, app.contextGetUserId(r))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRecordNotFound), errors.Is(err, domain.ErrBookingNotOwned):
			app.notFoundResponse(w, r)
		case errors.Is(err, domain.ErrBookingNotPending):
			app.editConflictResponseWithErr(w, r, err)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	app.releaseHold(r.Context(), booking)

	resp := toBookingResponse(booking)

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) GetUserBookings(w http.ResponseWriter, r *http.Request, params api.GetUserBookingsParams) {
	err := app.validator.Struct(params)
	if err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			app.failedValidationResponse(w, r, validationErrors)
			return
		}

		app.serverErrorResponse(w, r, err)
		return
	}

	pagination := domain.Pagination{Page: 1, PageSize: 10}

	if params.Page != nil {
		pagination.Page = *params.Page
	}

	if params.PageSize != nil {
		pagination.PageSize = *params.PageSize
	}

	userID := app.contextGetUserId(r)

	summaries, metadata, err := app.bookingRepo.GetSummariesByUserId(r.Context(), userID, pagination)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	apiSummaries := make([]api.BookingSummary, 0, len(summaries))
	for _, summary := range summaries {
		apiSummaries = append(apiSummaries, api.BookingSummary{
			Id:          summary.BookingID.String(),
			MovieTitle:  summary.MovieTitle,
			ShowtimeAt:  summary.ShowtimeAt,
			Status:      string(summary.Status),
			TotalAmount: summary.TotalAmount,
			SeatCount:   summary.SeatCount,
			CreatedAt:   summary.CreatedAt,
		})
	}

	resp := api.UserBookingsResponse{
		Bookings: apiSummaries,
		Metadata: api.Metadata{
			CurrentPage:  metadata.CurrentPage,
			FirstPage:    metadata.FirstPage,
			LastPage:     metadata.LastPage,
			PageSize:     metadata.PageSize,
			TotalRecords: metadata.TotalRecords,
		},
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func toBookingResponse(booking *domain.Booking) api.BookingResponse {
	seats := make([]api.BookingSeat, 0, len(booking.Seats))
	for _, seat := range booking.Seats {
		seats = append(seats, api.BookingSeat{
			SeatCode:  seat.SeatCode,
			SeatType:  string(seat.SeatType),
			UnitPrice: seat.UnitPrice,
		})
	}

	resp := api.BookingResponse{
		Id:          booking.ID.String(),
		ShowtimeId:  booking.ShowtimeID,
		Status:      string(booking.Status),
		Seats:       seats,
		TotalAmount: booking.TotalAmount,
		ConfirmedAt: booking.ConfirmedAt,
		CancelledAt: booking.CancelledAt,
		CreatedAt:   booking.CreatedAt,
	}

	if booking.Status == domain.BookingStatusPending {
		resp.ExpiresAt = &booking.ExpiresAt
	}

	return resp
}
