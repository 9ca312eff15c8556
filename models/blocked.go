package models

import "time"

// BlockedDate excludes one calendar date (template timezone) from booking.
type BlockedDate struct {
	ID        string    `bson:"id" json:"id"`
	TutorID   string    `bson:"tutorId" json:"tutorId"`
	Date      string    `bson:"date" json:"date"`
	Reason    string    `bson:"reason,omitempty" json:"reason,omitempty"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

type BlockDateRequest struct {
	Date   string `json:"date" binding:"required,datetime=2006-01-02"`
	Reason string `json:"reason" binding:"max=200"`
}

// DayStatus is one resolved day of a month calendar.
type DayStatus struct {
	Date        string      `json:"date"`
	IsAvailable bool        `json:"isAvailable"`
	IsBlocked   bool        `json:"isBlocked"`
	IsPast      bool        `json:"isPast,omitempty"`
	Reason      string      `json:"reason,omitempty"`
	SlotsCount  int         `json:"slotsCount"`
	Slots       []TimeRange `json:"slots"`
}

type MonthCalendar struct {
	TutorID     string       `json:"tutorId"`
	Year        int          `json:"year"`
	Month       int          `json:"month"`
	SessionType SessionKind  `json:"sessionType"`
	View        CalendarView `json:"view"`
	Timezone    string       `json:"timezone"`
	Days        []DayStatus  `json:"days"`
}
