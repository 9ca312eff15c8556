package booking

import (
	"errors"
	"fmt"

	schedulerRepo "tutorbook/database/repository/scheduler"
	"tutorbook/utils"
)

// errNoAccess is shared by missing and foreign bookings so callers cannot
// probe which booking ids exist.
func errNoAccess() error {
	return utils.NewAppError(utils.KindUnauthorized, "forbidden", "you do not have access to this booking")
}

func errForbidden(message string) error {
	return utils.NewAppError(utils.KindUnauthorized, "forbidden", message)
}

func errSlotTaken(message string) error {
	return utils.NewAppError(utils.KindSlotTaken, "slot_taken", message)
}

func errSlotFull() error {
	return utils.NewAppError(utils.KindSlotFull, "slot_full", "this group session is full")
}

// mapCreateError turns repository rejections into caller-facing errors.
func mapCreateError(err error) error {
	switch {
	case errors.Is(err, schedulerRepo.ErrSlotTaken):
		return errSlotTaken("this timeslot is already booked")
	case errors.Is(err, schedulerRepo.ErrSlotFull):
		return errSlotFull()
	case errors.Is(err, schedulerRepo.ErrDuplicateBooking):
		return errSlotTaken("you already booked this timeslot")
	}
	return fmt.Errorf("failed to create booking: %w", err)
}
