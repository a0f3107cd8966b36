package app

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/tranvd/cinebook/api"
	"github.com/tranvd/cinebook/internal/domain"
)

// maxOrderCode keeps generated order codes within the provider's numeric
// limits.
var maxOrderCode = big.NewInt(9_007_199_254_740_991)

func (app *application) CreateCheckoutSession(w http.ResponseWriter, r *http.Request, bookingID uuid.UUID) {
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

	if booking.Status != domain.BookingStatusPending {
		app.editConflictResponseWithErr(w, r, domain.ErrBookingNotPending)
		return
	}

	if !booking.ExpiresAt.After(time.Now()) {
		app.goneResponseWithErr(w, r, domain.ErrBookingExpired)
		return
	}

	orderCode, err := newOrderCode()
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	payment := &domain.Payment{
		BookingID: booking.ID,
		OrderCode: orderCode,
		Amount:    booking.TotalAmount,
		Status:    domain.PaymentStatusPending,
		Provider:  app.paymentProvider.Name(),
	}

	err = app.paymentRepo.Create(r.Context(), payment)
	if err != nil {
		if errors.Is(err, domain.ErrPaymentAlreadyPending) {
			app.editConflictResponseWithErr(w, r, err)
			return
		}

		app.serverErrorResponse(w, r, err)
		return
	}

	session, err := app.paymentProvider.InitiateCheckout(r.Context(), toCheckoutRequest(orderCode, booking))
	if err != nil {
		app.failCheckout(r, orderCode)
		app.serverErrorResponse(w, r, err)
		return
	}

	resp := api.CheckoutResponse{
		OrderCode:   session.OrderCode,
		Amount:      booking.TotalAmount,
		CheckoutUrl: session.CheckoutURL,
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func toCheckoutRequest(orderCode int64, booking *domain.Booking) domain.CheckoutRequest {
	items := make([]domain.CheckoutItem, 0, len(booking.Seats))
	for _, seat := range booking.Seats {
		items = append(items, domain.CheckoutItem{
			Name:     fmt.Sprintf("Seat %s (%s)", seat.SeatCode, seat.SeatType),
			Quantity: 1,
			Price:    seat.UnitPrice,
		})
	}

	return domain.CheckoutRequest{
		OrderCode:   orderCode,
		Amount:      booking.TotalAmount,
		Description: fmt.Sprintf("Booking %s", booking.ID),
		Items:       items,
	}
}

// failCheckout closes out a pending payment whose checkout session could not
// be created, freeing the booking for another attempt.
func (app *application) failCheckout(r *http.Request, orderCode int64) {
	err := app.paymentRepo.UpdateStatus(r.Context(), orderCode, domain.PaymentStatusFailed)
	if err != nil {
		app.contextGetLogger(r).Error("failed to mark payment as failed", "order_code", orderCode, "error", err)
	}
}

func newOrderCode() (int64, error) {
	n, err := rand.Int(rand.Reader, maxOrderCode)
	if err != nil {
		return 0, err
	}

	return n.Int64() + 1, nil
}

// PaymentWebhookHandler reconciles provider notifications with bookings.
// Deliveries are at-least-once, so everything in here is idempotent: a replay
// of an already processed order returns 200 without side effects.
func (app *application) PaymentWebhookHandler(w http.ResponseWriter, r *http.Request) {
	logger := app.contextGetLogger(r)

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 65536))
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.paymentProvider.VerifySignature(payload)
	if err != nil {
		logger.Warn("rejected webhook with bad signature", "error", err)
		app.badRequestResponse(w, r, domain.ErrInvalidSignature)
		return
	}

	event, err := app.paymentProvider.ParseWebhook(payload)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	payment, err := app.paymentRepo.GetByOrderCode(r.Context(), event.OrderCode)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			app.notFoundResponseWithErr(w, r, domain.ErrUnknownOrder)
			return
		}

		app.serverErrorResponse(w, r, err)
		return
	}

	if !event.Succeeded {
		logger.Info("payment not completed at provider", "order_code", event.OrderCode, "code", event.Code)

		status := domain.PaymentStatusFailed
		if event.Cancelled {
			status = domain.PaymentStatusCancelled
		}

		err = app.paymentRepo.UpdateStatus(r.Context(), event.OrderCode, status)
		if err != nil {
			app.serverErrorResponse(w, r, err)
			return
		}

		w.WriteHeader(http.StatusOK)
		return
	}

	if !event.Amount.Equal(payment.Amount) {
		logger.Error("webhook amount mismatch",
			"order_code", event.OrderCode,
			"got", event.Amount,
			"want", payment.Amount,
		)
		app.badRequestResponse(w, r, domain.ErrAmountMismatch)
		return
	}

	// The conditional update is the replay guard. A duplicate delivery
	// finds the payment already paid and stops here.
	paid, err := app.paymentRepo.MarkPaid(r.Context(), event.OrderCode, event.TransactionID, event.TransactionAt)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	if !paid {
		logger.Info("ignoring duplicate webhook delivery", "order_code", event.OrderCode)
		w.WriteHeader(http.StatusOK)
		return
	}

	pending, err := app.bookingRepo.GetById(r.Context(), payment.BookingID)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	// The Redis holds convert before the row does. A hold that lapsed or
	// was re-acquired by another booking fails the whole confirmation, so
	// seats the sweeper already freed can never be double-allocated.
	err = app.inventory.Commit(r.Context(), pending.ShowtimeID, pending.SeatCodes(), pending.ID.String())
	if err != nil {
		if errors.Is(err, domain.ErrNotHeldByBooking) {
			app.refuseConfirmation(logger, payment.BookingID, event.OrderCode, domain.ErrBookingExpired)
			w.WriteHeader(http.StatusOK)
			return
		}

		app.serverErrorResponse(w, r, err)
		return
	}

	booking, tickets, err := app.bookingRepo.Confirm(r.Context(), payment.BookingID, payment.ID)
	if err != nil {
		if errors.Is(err, domain.ErrBookingExpired) || errors.Is(err, domain.ErrBookingNotPending) {
			app.refuseConfirmation(logger, payment.BookingID, event.OrderCode, err)
			w.WriteHeader(http.StatusOK)
			return
		}

		app.serverErrorResponse(w, r, err)
		return
	}

	app.background(func() {
		app.sendTicketReceipt(booking, tickets)
	})

	w.WriteHeader(http.StatusOK)
}

// refuseConfirmation records a payment that arrived after its booking could
// no longer be confirmed. The payment stays paid so it shows up in the
// refund queue.
func (app *application) refuseConfirmation(logger *slog.Logger, bookingID uuid.UUID, orderCode int64, reason error) {
	logger.Error("paid booking could not be confirmed",
		"booking_id", bookingID,
		"order_code", orderCode,
		"error", reason,
	)
}
