package booking

import (
	"fmt"

	"tutorbook/models"
	"tutorbook/utils"
)

// transitions is the full lifecycle. A status missing as a key is terminal.
var transitions = map[models.BookingStatus][]models.BookingStatus{
	models.BookingPending:   {models.BookingConfirmed, models.BookingCancelled},
	models.BookingConfirmed: {models.BookingCompleted, models.BookingCancelled},
}

// CanTransition reports whether a booking may move from one status to another.
func CanTransition(from, to models.BookingStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// checkTransition returns nil when allowed, otherwise the most specific
// rejection for the pair.
func checkTransition(from, to models.BookingStatus) error {
	if CanTransition(from, to) {
		return nil
	}
	switch {
	case from == models.BookingConfirmed && to == models.BookingConfirmed:
		return ErrAlreadyConfirmed()
	case from == models.BookingCancelled && to == models.BookingCancelled:
		return ErrAlreadyCancelled()
	}
	return ErrInvalidTransition(from, to)
}

func ErrAlreadyConfirmed() error {
	return utils.NewAppError(utils.KindAlreadyConfirmed, "already_confirmed", "booking is already confirmed")
}

func ErrAlreadyCancelled() error {
	return utils.NewAppError(utils.KindAlreadyCancelled, "already_cancelled", "booking is already cancelled")
}

func ErrInvalidTransition(from, to models.BookingStatus) error {
	return utils.NewAppError(utils.KindInvalidTransition, "invalid_transition",
		fmt.Sprintf("cannot move booking from %s to %s", from, to))
}
