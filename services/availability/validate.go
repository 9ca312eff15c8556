package availability

import (
	"fmt"
	"sort"

	"tutorbook/models"
	"tutorbook/utils"
)

type span struct {
	start, end int
	raw        models.TimeRange
}

func parseDay(slots []models.TimeRange) ([]span, error) {
	out := make([]span, 0, len(slots))
	for _, s := range slots {
		start, err := utils.ParseClock(s.StartTime)
		if err != nil {
			return nil, err
		}
		end, err := utils.ParseClock(s.EndTime)
		if err != nil {
			return nil, err
		}
		out = append(out, span{start: start, end: end, raw: s})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].start < out[j].start })
	return out, nil
}

func overlaps(a, b span) bool {
	return a.start < b.end && b.start < a.end
}

// NormalizeSchedule validates a replacement schedule for kind against the
// tutor's current schedule of the other kind. It returns a copy holding all
// seven days with each day's slots sorted by start time.
func NormalizeSchedule(schedule, other models.WeeklySchedule) (models.WeeklySchedule, error) {
	for day := range schedule {
		if !isWeekday(day) {
			return nil, utils.ValidationError(fmt.Sprintf("unknown weekday %q", day))
		}
	}

	out := models.EmptyWeeklySchedule()
	for _, day := range models.Weekdays {
		spans, err := parseDay(schedule[day])
		if err != nil {
			return nil, utils.ValidationError(fmt.Sprintf("%s: %v", day, err))
		}
		for i, s := range spans {
			if s.end <= s.start {
				return nil, NewScheduleConflict(day, ConflictInternal,
					fmt.Sprintf("slot %s-%s must end after it starts", s.raw.StartTime, s.raw.EndTime))
			}
			if i > 0 && overlaps(spans[i-1], s) {
				return nil, NewScheduleConflict(day, ConflictInternal,
					fmt.Sprintf("slots %s-%s and %s-%s overlap", spans[i-1].raw.StartTime, spans[i-1].raw.EndTime, s.raw.StartTime, s.raw.EndTime))
			}
		}

		otherSpans, err := parseDay(other[day])
		if err != nil {
			// Stored data was validated on write.
			return nil, fmt.Errorf("stored schedule for %s is corrupt: %w", day, err)
		}
		for _, s := range spans {
			for _, o := range otherSpans {
				if overlaps(s, o) {
					return nil, NewScheduleConflict(day, ConflictCrossKind,
						fmt.Sprintf("slot %s-%s overlaps %s-%s of the other session type", s.raw.StartTime, s.raw.EndTime, o.raw.StartTime, o.raw.EndTime))
				}
			}
		}

		sorted := make([]models.TimeRange, len(spans))
		for i, s := range spans {
			sorted[i] = s.raw
		}
		out[day] = sorted
	}
	return out, nil
}

func isWeekday(day string) bool {
	for _, d := range models.Weekdays {
		if d == day {
			return true
		}
	}
	return false
}
