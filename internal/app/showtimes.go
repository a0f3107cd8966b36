package app

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/tranvd/cinebook/api"
	"github.com/tranvd/cinebook/internal/domain"
)

// CreateShowtimes schedules a movie in every requested room at every
// requested start time. The whole batch is created atomically; one overlap
// rejects all of it.
func (app *application) CreateShowtimes(w http.ResponseWriter, r *http.Request) {
	var req api.CreateShowtimeBatchRequest

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

	now := time.Now()
	for _, startAt := range req.StartAts {
		if !startAt.After(now) {
			app.badRequestResponse(w, r, fmt.Errorf("start time %s is in the past", startAt.Format(time.RFC3339)))
			return
		}
	}

	movie, err := app.movieRepo.GetById(r.Context(), req.MovieId)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			app.notFoundResponseWithErr(w, r, fmt.Errorf("movie %d not found", req.MovieId))
			return
		}

		app.serverErrorResponse(w, r, err)
		return
	}

	showtimes := app.buildShowtimes(movie, req)

	for i := range showtimes {
		for j := i + 1; j < len(showtimes); j++ {
			if showtimes[i].Overlaps(showtimes[j]) {
				app.editConflictResponseWithErr(w, r, domain.ErrShowtimeOverlap)
				return
			}
		}
	}

	created, err := app.showtimeRepo.CreateBatch(r.Context(), showtimes)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrRecordNotFound):
			app.notFoundResponseWithErr(w, r, fmt.Errorf("one or more rooms do not exist"))
		case errors.Is(err, domain.ErrShowtimeOverlap):
			app.editConflictResponseWithErr(w, r, err)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	apiShowtimes := make([]api.Showtime, 0, len(created))
	for _, showtime := range created {
		apiShowtimes = append(apiShowtimes, api.Showtime{
			Id:      showtime.ID,
			MovieId: showtime.MovieID,
			RoomId:  showtime.RoomID,
			StartAt: showtime.StartAt,
			EndAt:   showtime.EndAt,
		})
	}

	resp := api.ShowtimesResponse{Showtimes: apiShowtimes}

	err = app.writeJSON(w, http.StatusCreated, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// buildShowtimes expands the rooms x start times grid. EndAt absorbs the
// cleaning gap, so back-to-back showtimes at EndAt boundaries never collide.
func (app *application) buildShowtimes(movie *domain.Movie, req api.CreateShowtimeBatchRequest) []domain.Showtime {
	showtimes := make([]domain.Showtime, 0, len(req.RoomIds)*len(req.StartAts))

	for _, roomID := range req.RoomIds {
		for _, startAt := range req.StartAts {
			showtimes = append(showtimes, domain.Showtime{
				MovieID:   movie.ID,
				RoomID:    roomID,
				StartAt:   startAt,
				EndAt:     startAt.Add(movie.Duration + app.config.showtime.cleaningGap),
				BasePrice: movie.BasePrice,
			})
		}
	}

	return showtimes
}
