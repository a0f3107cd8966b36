package app

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/riandyrn/otelchi"
	"github.com/tranvd/cinebook/api"
)

func (app *application) routes() http.Handler {
	r := chi.NewRouter()

	r.NotFound(app.notFoundResponse)

	r.Use(middleware.RequestID)
	r.Use(otelchi.Middleware("cinebook-api", otelchi.WithChiRoutes(r)))
	r.Use(app.requestLogger)
	r.Use(app.recoverPanic)

	r.Get("/health", app.GetHealth)

	r.Get("/showtimes/{showtimeId}/seats", func(w http.ResponseWriter, r *http.Request) {
		showtimeID, err := strconv.Atoi(chi.URLParam(r, "showtimeId"))
		if err != nil {
			app.badRequestResponse(w, r, fmt.Errorf("invalid showtime ID"))
			return
		}
		app.GetAvailableSeats(w, r, showtimeID)
	})

	r.With(app.requireAuthentication).Route("/bookings", func(r chi.Router) {
		r.Post("/", app.CreateBooking)

		r.Route("/{bookingId}", func(r chi.Router) {
			r.Get("/", app.withBookingId(app.GetBooking))
			r.Delete("/", app.withBookingId(app.CancelBooking))
			r.Post("/checkout", app.withBookingId(app.CreateCheckoutSession))
			r.Get("/tickets", app.withBookingId(app.GetTicketsByBooking))
		})
	})

	r.With(app.requireAuthentication).Route("/users/me/bookings", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			params := api.GetUserBookingsParams{}

			if page := r.URL.Query().Get("page"); page != "" {
				if pageNum, err := strconv.Atoi(page); err == nil {
					params.Page = &pageNum
				}
			}

			if pageSize := r.URL.Query().Get("pageSize"); pageSize != "" {
				if pageSizeNum, err := strconv.Atoi(pageSize); err == nil {
					params.PageSize = &pageSizeNum
				}
			}
			app.GetUserBookings(w, r, params)
		})
	})

	r.With(app.requireAuthentication, app.requireAdmin).Route("/showtimes", func(r chi.Router) {
		r.Post("/", app.CreateShowtimes)
	})

	r.With(app.requireAuthentication, app.requireAdmin).Route("/tickets/{ticketCode}/check-in", func(r chi.Router) {
		r.Post("/", func(w http.ResponseWriter, r *http.Request) {
			code, err := uuid.Parse(chi.URLParam(r, "ticketCode"))
			if err != nil {
				app.badRequestResponse(w, r, fmt.Errorf("invalid ticket code"))
				return
			}
			app.CheckInTicket(w, r, code)
		})
	})

	r.Route("/webhooks/payment", func(r chi.Router) {
		r.Post("/", app.PaymentWebhookHandler)
	})

	return r
}

// withBookingId parses the bookingId path parameter before delegating to the
// typed handler.
func (app *application) withBookingId(
	handler func(http.ResponseWriter, *http.Request, uuid.UUID)) http.HandlerFunc {

	return func(w http.ResponseWriter, r *http.Request) {
		bookingID, err := uuid.Parse(chi.URLParam(r, "bookingId"))
		if err != nil {
			app.badRequestResponse(w, r, fmt.Errorf("invalid booking ID"))
			return
		}

		handler(w, r, bookingID)
	}
}
