package booking

import "errors"

var (
	// ErrSlotAlreadyTaken is returned when a competing transaction won the
	// race for the same master/time window — either caught by the
	// row lock or, in the rarer case two transactions still interleaved
	// past it, by the database's exclusion constraint.
	ErrSlotAlreadyTaken = errors.New("booking: slot already taken")
	// ErrServiceInactive is returned when the requested service is not bookable.
	ErrServiceInactive = errors.New("booking: service is not active")
	// ErrPriceUnavailable is returned when no price is configured for the
	// master/service pair as of now.
	ErrPriceUnavailable = errors.New("booking: no price configured for this service")
	// ErrAppointmentNotFound is returned when an operation targets an
	// appointment id that does not exist.
	ErrAppointmentNotFound = errors.New("booking: appointment not found")
	// ErrTerminalState is returned by Confirm, Arrive and Done when the
	// appointment has already reached a terminal status. Cancel on a
	// terminal appointment returns it unchanged instead.
	ErrTerminalState = errors.New("booking: appointment is already in a terminal state")
)
