package availability

import (
	"fmt"

	"tutorbook/utils"
)

const (
	ConflictInternal  = "internal"
	ConflictCrossKind = "cross_kind"
)

// NewScheduleConflict reports the first offending day of a weekly schedule.
func NewScheduleConflict(day, conflict, detail string) *utils.AppError {
	return &utils.AppError{
		Kind:    utils.KindScheduleConflict,
		Code:    "schedule_conflict",
		Message: fmt.Sprintf("%s: %s", day, detail),
		Fields:  map[string]string{"day": day, "conflict": conflict},
	}
}
