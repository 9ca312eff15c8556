package models

import (
	"strings"
	"time"
)

type SessionKind string

const (
	SessionPrivate SessionKind = "private"
	SessionGroup   SessionKind = "group"
)

// Valid reports whether k is one of the two supported session kinds.
func (k SessionKind) Valid() bool {
	switch k {
	case SessionPrivate, SessionGroup:
		return true
	}
	return false
}

// Other returns the opposite session kind.
func (k SessionKind) Other() SessionKind {
	if k == SessionGroup {
		return SessionPrivate
	}
	return SessionGroup
}

// ParseSessionKind accepts "private"/"group" in any case.
func ParseSessionKind(s string) (SessionKind, bool) {
	k := SessionKind(strings.ToLower(strings.TrimSpace(s)))
	return k, k.Valid()
}

type CalendarView string

const (
	ViewOwner  CalendarView = "owner"
	ViewPublic CalendarView = "public"
)

// TimeRange is a half-open wall clock interval in the template timezone.
type TimeRange struct {
	StartTime string `bson:"startTime" json:"startTime" binding:"required,hhmm"`
	EndTime   string `bson:"endTime" json:"endTime" binding:"required,hhmm"`
}

// WeeklySchedule maps lowercase weekday names to their ordered slots.
type WeeklySchedule map[string][]TimeRange

var Weekdays = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

// WeekdayKey maps a time.Weekday onto the schedule key.
func WeekdayKey(d time.Weekday) string {
	// time.Sunday == 0
	return Weekdays[(int(d)+6)%7]
}

func EmptyWeeklySchedule() WeeklySchedule {
	s := make(WeeklySchedule, len(Weekdays))
	for _, d := range Weekdays {
		s[d] = []TimeRange{}
	}
	return s
}

const (
	DefaultTimezone             = "UTC"
	DefaultSessionDuration      = 60
	DefaultBufferMinutes        = 15
	DefaultAdvanceBookingDays   = 30
	DefaultMinNoticeHours       = 24
	DefaultGroupSessionCapacity = 5
)

// AvailabilityTemplate is the recurring weekly availability of one tutor.
type AvailabilityTemplate struct {
	ID                     string         `bson:"id" json:"id"`
	TutorID                string         `bson:"tutorId" json:"tutorId"`
	Timezone               string         `bson:"timezone" json:"timezone"`
	SessionDurationMinutes int            `bson:"sessionDurationMinutes" json:"sessionDurationMinutes"`
	BufferMinutes          int            `bson:"bufferMinutes" json:"bufferMinutes"`
	AdvanceBookingDays     int            `bson:"advanceBookingDays" json:"advanceBookingDays"`
	MinNoticeHours         int            `bson:"minNoticeHours" json:"minNoticeHours"`
	IsAcceptingStudents    bool           `bson:"isAcceptingStudents" json:"isAcceptingStudents"`
	PrivateSchedule        WeeklySchedule `bson:"privateSchedule" json:"privateSchedule"`
	GroupSchedule          WeeklySchedule `bson:"groupSchedule" json:"groupSchedule"`
	GroupSessionCapacity   int            `bson:"groupSessionCapacity" json:"groupSessionCapacity"`
	Version                int            `bson:"version" json:"version"`
	CreatedAt              time.Time      `bson:"createdAt" json:"createdAt"`
	UpdatedAt              time.Time      `bson:"updatedAt" json:"updatedAt"`
}

// NewAvailabilityTemplate returns a template populated with the defaults a
// tutor gets before configuring anything.
func NewAvailabilityTemplate(id, tutorID string, now time.Time) *AvailabilityTemplate {
	return &AvailabilityTemplate{
		ID:                     id,
		TutorID:                tutorID,
		Timezone:               DefaultTimezone,
		SessionDurationMinutes: DefaultSessionDuration,
		BufferMinutes:          DefaultBufferMinutes,
		AdvanceBookingDays:     DefaultAdvanceBookingDays,
		MinNoticeHours:         DefaultMinNoticeHours,
		IsAcceptingStudents:    true,
		PrivateSchedule:        EmptyWeeklySchedule(),
		GroupSchedule:          EmptyWeeklySchedule(),
		GroupSessionCapacity:   DefaultGroupSessionCapacity,
		Version:                1,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
}

func (t *AvailabilityTemplate) Schedule(kind SessionKind) WeeklySchedule {
	if kind == SessionGroup {
		return t.GroupSchedule
	}
	return t.PrivateSchedule
}

// Location falls back to UTC when the stored zone cannot be loaded.
func (t *AvailabilityTemplate) Location() *time.Location {
	if t.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(t.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// AvailabilitySettingsUpdate carries the optional scalar fields of a template.
type AvailabilitySettingsUpdate struct {
	Timezone               *string `json:"timezone"`
	SessionDurationMinutes *int    `json:"sessionDurationMinutes" binding:"omitempty,min=15,max=480"`
	BufferMinutes          *int    `json:"bufferMinutes" binding:"omitempty,min=0,max=240"`
	AdvanceBookingDays     *int    `json:"advanceBookingDays" binding:"omitempty,min=1,max=365"`
	MinNoticeHours         *int    `json:"minNoticeHours" binding:"omitempty,min=0,max=720"`
	IsAcceptingStudents    *bool   `json:"isAcceptingStudents"`
	GroupSessionCapacity   *int    `json:"groupSessionCapacity" binding:"omitempty,min=1,max=100"`
}

type WeeklyScheduleRequest struct {
	SessionType string         `json:"sessionType" binding:"required,oneof=private group"`
	Schedule    WeeklySchedule `json:"schedule" binding:"required,dive,dive"`
}

// Clone returns a deep copy so callers can mutate schedules freely.
func (t *AvailabilityTemplate) Clone() *AvailabilityTemplate {
	c := *t
	c.PrivateSchedule = t.PrivateSchedule.Clone()
	c.GroupSchedule = t.GroupSchedule.Clone()
	return &c
}

func (s WeeklySchedule) Clone() WeeklySchedule {
	if s == nil {
		return nil
	}
	c := make(WeeklySchedule, len(s))
	for day, slots := range s {
		c[day] = append([]TimeRange(nil), slots...)
	}
	return c
}
