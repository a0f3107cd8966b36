package app

import (
	"fmt"
	"net/http"

	"github.com/tranvd/cinebook/api"
	"github.com/tranvd/cinebook/internal/domain"
)

// GetAvailableSeats returns the showtime's seat map. A seat is available when
// it is neither booked by a confirmed booking nor held by a live seat lock.
func (app *application) GetAvailableSeats(
	w http.ResponseWriter,
	r *http.Request,
	showtimeID int) {

	logger := app.contextGetLogger(r)

	if showtimeID < 1 {
		app.badRequestResponse(w, r, fmt.Errorf("showtime ID must be greater than zero"))
		return
	}

	seats, err := app.seatRepo.GetSeatsByShowtime(r.Context(), showtimeID)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	if len(seats) == 0 {
		logger.Warn("seat map not found for showtime", "showtime_id", showtimeID)
		app.notFoundResponse(w, r)
		return
	}

	bookedCodes, err := app.bookingRepo.GetBookedSeatCodes(r.Context(), showtimeID)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	heldCodes, err := app.inventory.HeldSeats(r.Context(), showtimeID)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	resp := toAvailableSeatsResponse(showtimeID, seats, bookedCodes, heldCodes)

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func toAvailableSeatsResponse(
	showtimeID int,
	seats []domain.Seat,
	bookedCodes, heldCodes []string) api.AvailableSeatsResponse {

	unavailable := make(map[string]bool, len(bookedCodes)+len(heldCodes))

	for _, code := range bookedCodes {
		unavailable[code] = true
	}

	for _, code := range heldCodes {
		unavailable[code] = true
	}

	apiSeats := make([]api.Seat, 0, len(seats))
	for _, seat := range seats {
		apiSeats = append(apiSeats, api.Seat{
			Code:      seat.Code,
			Type:      string(seat.Type),
			Available: !unavailable[seat.Code],
		})
	}

	return api.AvailableSeatsResponse{
		ShowtimeId: showtimeID,
		Seats:      apiSeats,
	}
}
