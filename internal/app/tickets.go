package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"
	"github.com/tranvd/cinebook/api"
	"github.com/tranvd/cinebook/internal/domain"
	"github.com/tranvd/cinebook/internal/mailer"
)

func (app *application) GetTicketsByBooking(w http.ResponseWriter, r *http.Request, bookingID uuid.UUID) {
	booking, err := app.bookingRepo.GetById(r.Context(), bookingID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			app.notFoundResponse(w, r)
			return
		}

		app.serverErrorResponse(w, r, err)
		return
	}

	if booking.UserID != app.contextGetUserId(r) {
		app.notFoundResponse(w, r)
		return
	}

	tickets, err := app.ticketRepo.GetByBookingId(r.Context(), bookingID)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	apiTickets := make([]api.Ticket, 0, len(tickets))
	for _, ticket := range tickets {
		apiTickets = append(apiTickets, api.Ticket{
			Code:      ticket.Code.String(),
			SeatCode:  ticket.SeatCode,
			SeatType:  string(ticket.SeatType),
			Price:     ticket.Price,
			Status:    string(ticket.Status),
			ScannedAt: ticket.ScannedAt,
		})
	}

	resp := api.TicketsResponse{
		BookingId: bookingID.String(),
		Tickets:   apiTickets,
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) CheckInTicket(w http.ResponseWriter, r *http.Request, code uuid.UUID) {
	ticket, err := app.ticketRepo.CheckIn(r.Context(), code)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		case errors.Is(err, domain.ErrTicketAlreadyUsed):
			app.editConflictResponseWithErr(w, r, err)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	resp := api.CheckInResponse{
		Code:     ticket.Code.String(),
		SeatCode: ticket.SeatCode,
		Status:   string(ticket.Status),
	}

	if ticket.ScannedAt != nil {
		resp.ScannedAt = *ticket.ScannedAt
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// sendTicketReceipt emails the confirmed booking's tickets, one QR code
// attachment per ticket. Failures are logged, never surfaced to the webhook.
func (app *application) sendTicketReceipt(booking *domain.Booking, tickets []domain.Ticket) {
	if booking.UserEmail == "" {
		app.logger.Warn("booking has no email, skipping ticket receipt", "booking_id", booking.ID)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	showtime, err := app.showtimeRepo.GetById(ctx, booking.ShowtimeID)
	if err != nil {
		app.logger.Error("failed to load showtime for ticket receipt", "booking_id", booking.ID, "error", err)
		return
	}

	movie, err := app.movieRepo.GetById(ctx, showtime.MovieID)
	if err != nil {
		app.logger.Error("failed to load movie for ticket receipt", "booking_id", booking.ID, "error", err)
		return
	}

	attachments := make([]mailer.Attachment, 0, len(tickets))
	for _, ticket := range tickets {
		png, err := qrcode.Encode(ticket.Code.String(), qrcode.Medium, 256)
		if err != nil {
			app.logger.Error("failed to encode ticket QR code", "ticket_code", ticket.Code, "error", err)
			return
		}

		attachments = append(attachments, mailer.Attachment{
			Name: fmt.Sprintf("ticket-%s.png", ticket.SeatCode),
			Data: png,
		})
	}

	data := map[string]any{
		"MovieTitle":  movie.Title,
		"BookingID":   booking.ID.String(),
		"ShowtimeAt":  showtime.StartAt.Format("Mon, 02 Jan 2006 15:04"),
		"Seats":       booking.SeatCodes(),
		"TotalAmount": booking.TotalAmount,
	}

	err = app.mailer.Send(booking.UserEmail, "ticket_receipt.tmpl", data, attachments...)
	if err != nil {
		app.logger.Error("failed to send ticket receipt", "booking_id", booking.ID, "error", err)
	}
}
