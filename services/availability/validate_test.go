package availability

import (
	"errors"
	"testing"

	"tutorbook/models"
	"tutorbook/utils"
)

func day(slots ...models.TimeRange) []models.TimeRange { return slots }

func tr(start, end string) models.TimeRange {
	return models.TimeRange{StartTime: start, EndTime: end}
}

func TestNormalizeSchedule(t *testing.T) {
	tests := []struct {
		name     string
		schedule models.WeeklySchedule
		other    models.WeeklySchedule
		kind     utils.ErrorKind
		conflict string
	}{
		{
			name:     "overlap on the same day",
			schedule: models.WeeklySchedule{"monday": day(tr("09:00", "10:00"), tr("09:30", "10:30"))},
			kind:     utils.KindScheduleConflict,
			conflict: ConflictInternal,
		},
		{
			name:     "overlap regardless of input order",
			schedule: models.WeeklySchedule{"monday": day(tr("09:30", "10:30"), tr("09:00", "10:00"))},
			kind:     utils.KindScheduleConflict,
			conflict: ConflictInternal,
		},
		{
			name:     "end before start",
			schedule: models.WeeklySchedule{"tuesday": day(tr("11:00", "10:00"))},
			kind:     utils.KindScheduleConflict,
			conflict: ConflictInternal,
		},
		{
			name:     "zero length slot",
			schedule: models.WeeklySchedule{"tuesday": day(tr("10:00", "10:00"))},
			kind:     utils.KindScheduleConflict,
			conflict: ConflictInternal,
		},
		{
			name:     "overlaps the other session type",
			schedule: models.WeeklySchedule{"friday": day(tr("14:00", "15:00"))},
			other:    models.WeeklySchedule{"friday": day(tr("14:30", "16:00"))},
			kind:     utils.KindScheduleConflict,
			conflict: ConflictCrossKind,
		},
		{
			name:     "bad clock format",
			schedule: models.WeeklySchedule{"monday": day(tr("9am", "10:00"))},
			kind:     utils.KindValidation,
		},
		{
			name:     "unknown weekday",
			schedule: models.WeeklySchedule{"funday": day(tr("09:00", "10:00"))},
			kind:     utils.KindValidation,
		},
		{
			name:     "touching slots are allowed",
			schedule: models.WeeklySchedule{"monday": day(tr("10:00", "11:00"), tr("09:00", "10:00"))},
			other:    models.WeeklySchedule{"monday": day(tr("11:00", "12:00"))},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := NormalizeSchedule(tt.schedule, tt.other)
			if tt.kind == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if len(out) != len(models.Weekdays) {
					t.Fatalf("expected all %d weekdays, got %d", len(models.Weekdays), len(out))
				}
				return
			}
			var appErr *utils.AppError
			if !errors.As(err, &appErr) {
				t.Fatalf("expected AppError, got %v", err)
			}
			if appErr.Kind != tt.kind {
				t.Fatalf("expected kind %s, got %s (%s)", tt.kind, appErr.Kind, appErr.Message)
			}
			if tt.conflict != "" && appErr.Fields["conflict"] != tt.conflict {
				t.Fatalf("expected conflict %s, got %v", tt.conflict, appErr.Fields)
			}
		})
	}
}

func TestNormalizeScheduleSortsSlots(t *testing.T) {
	out, err := NormalizeSchedule(models.WeeklySchedule{
		"wednesday": day(tr("15:00", "16:00"), tr("08:00", "09:00"), tr("11:00", "12:00")),
	}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := out["wednesday"]
	want := []string{"08:00", "11:00", "15:00"}
	for i, w := range want {
		if got[i].StartTime != w {
			t.Fatalf("slot %d: expected start %s, got %s", i, w, got[i].StartTime)
		}
	}
	if out["monday"] == nil || len(out["monday"]) != 0 {
		t.Fatalf("expected empty monday, got %v", out["monday"])
	}
}
