package domain

import "errors"

var (
	ErrRecordNotFound = errors.New("record not found")

	ErrSeatUnknown       = errors.New("seat(s) do not exist for this showtime")
	ErrSeatAlreadyHeld   = errors.New("seat(s) are already held by another booking")
	ErrSeatAlreadyBooked = errors.New("seat(s) are already booked")
	ErrNotHeldByBooking  = errors.New("seat(s) are no longer held by this booking")

	ErrBookingNotPending = errors.New("booking is not in a pending state")
	ErrBookingExpired    = errors.New("booking hold has expired")
	ErrBookingNotOwned   = errors.New("booking belongs to another user")

	ErrPaymentAlreadyPending = errors.New("a pending payment already exists for this booking")
	ErrUnknownOrder          = errors.New("no payment matches the given order code")
	ErrInvalidSignature      = errors.New("webhook signature verification failed")
	ErrAmountMismatch        = errors.New("webhook amount does not match the booking total")

	ErrShowtimeOverlap = errors.New("showtime overlaps with an existing showtime in the same room")

	ErrTicketAlreadyUsed = errors.New("ticket has already been used")
)
