package availability

import (
	"time"

	"tutorbook/models"
	"tutorbook/utils"
)

const dateLayout = "2006-01-02"

// daysIn returns the number of days in month, rolling December into January
// of the following year.
func daysIn(year int, month time.Month) int {
	nextYear, nextMonth := year, month+1
	if month == time.December {
		nextYear, nextMonth = year+1, time.January
	}
	lastDay := time.Date(nextYear, nextMonth, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
	return lastDay.Day()
}

// ResolveMonth expands a template into per-day availability for one month.
// It is a pure function of its inputs. tpl may be nil for a tutor who never
// configured availability; every day is then unavailable.
func ResolveMonth(tpl *models.AvailabilityTemplate, blocked []models.BlockedDate, year int, month time.Month,
	kind models.SessionKind, view models.CalendarView, now time.Time) []models.DayStatus {

	loc := time.UTC
	if tpl != nil {
		loc = tpl.Location()
	}
	today := now.In(loc).Format(dateLayout)

	reasons := make(map[string]string, len(blocked))
	for _, b := range blocked {
		reasons[b.Date] = b.Reason
	}

	n := daysIn(year, month)
	days := make([]models.DayStatus, 0, n)
	for d := 1; d <= n; d++ {
		date := time.Date(year, month, d, 0, 0, 0, 0, loc)
		key := date.Format(dateLayout)
		reason, isBlocked := reasons[key]
		past := key < today

		var slots []models.TimeRange
		if tpl != nil {
			slots = tpl.Schedule(kind)[models.WeekdayKey(date.Weekday())]
		}

		status := models.DayStatus{Date: key}
		switch view {
		case models.ViewOwner:
			status.IsBlocked = isBlocked
			status.IsPast = past
			if isBlocked {
				status.Reason = reason
			}
			status.IsAvailable = len(slots) > 0 && !isBlocked
		default:
			status.IsBlocked = isBlocked || past
			accepting := tpl != nil && tpl.IsAcceptingStudents
			status.IsAvailable = len(slots) > 0 && !isBlocked && !past && accepting
		}

		if status.IsAvailable || view == models.ViewOwner {
			status.Slots = append([]models.TimeRange(nil), slots...)
			status.SlotsCount = len(slots)
		}
		days = append(days, status)
	}
	return days
}

// SlotOffered reports whether a booking of durationMinutes starting at `at`
// fits a configured slot of kind. Starts inside a longer slot must fall on the
// session grid (session length plus buffer) counted from the slot start.
func SlotOffered(tpl *models.AvailabilityTemplate, kind models.SessionKind, at time.Time, durationMinutes int) bool {
	if tpl == nil || durationMinutes <= 0 {
		return false
	}
	local := at.In(tpl.Location())
	if local.Second() != 0 || local.Nanosecond() != 0 {
		return false
	}
	startMin := local.Hour()*60 + local.Minute()
	endMin := startMin + durationMinutes

	step := tpl.SessionDurationMinutes + tpl.BufferMinutes
	if step <= 0 {
		step = models.DefaultSessionDuration
	}

	for _, slot := range tpl.Schedule(kind)[models.WeekdayKey(local.Weekday())] {
		s, err := utils.ParseClock(slot.StartTime)
		if err != nil {
			continue
		}
		e, err := utils.ParseClock(slot.EndTime)
		if err != nil {
			continue
		}
		if startMin < s || endMin > e {
			continue
		}
		if (startMin-s)%step == 0 {
			return true
		}
	}
	return false
}
