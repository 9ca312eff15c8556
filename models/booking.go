package models

import (
	"fmt"
	"time"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCompleted BookingStatus = "completed"
	BookingCancelled BookingStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

type MeetingStatus string

const (
	MeetingNone     MeetingStatus = ""
	MeetingCreated  MeetingStatus = "created"
	MeetingReused   MeetingStatus = "reused"
	MeetingDegraded MeetingStatus = "degraded"
)

// Participants is the name/email snapshot taken when the booking is created.
type Participants struct {
	StudentName  string `bson:"studentName" json:"studentName"`
	StudentEmail string `bson:"studentEmail" json:"studentEmail"`
	TutorUserID  string `bson:"tutorUserId" json:"-"`
	TutorName    string `bson:"tutorName" json:"tutorName"`
	TutorEmail   string `bson:"tutorEmail" json:"tutorEmail"`
}

type Booking struct {
	ID              string        `bson:"id" json:"id"`
	StudentID       string        `bson:"studentId" json:"studentId"`
	TutorID         string        `bson:"tutorId" json:"tutorId"`
	Subject         string        `bson:"subject" json:"subject"`
	SessionType     SessionKind   `bson:"sessionType" json:"sessionType"`
	ScheduledAt     time.Time     `bson:"scheduledAt" json:"scheduledAt"`
	DurationMinutes int           `bson:"durationMinutes" json:"durationMinutes"`
	EndsAt          time.Time     `bson:"endsAt" json:"endsAt"`
	Price           float64       `bson:"price" json:"price"`
	Currency        string        `bson:"currency" json:"currency"`
	Status          BookingStatus `bson:"status" json:"status"`
	PaymentStatus   PaymentStatus `bson:"paymentStatus" json:"paymentStatus"`
	Notes           string        `bson:"notes,omitempty" json:"notes,omitempty"`

	MeetingLink     *string       `bson:"meetingLink" json:"meetingLink"`
	ExternalEventID *string       `bson:"externalEventId" json:"externalEventId"`
	MeetingStatus   MeetingStatus `bson:"meetingStatus" json:"meetingStatus,omitempty"`

	Participants Participants `bson:"participants" json:"participants"`

	// SeatHeld is true while the booking counts against its capacity bucket.
	SeatHeld bool `bson:"seatHeld" json:"-"`
	// ActiveKey is set while the booking is not cancelled; unique sparse index.
	ActiveKey string `bson:"activeKey,omitempty" json:"-"`

	CancelledBy Role       `bson:"cancelledBy,omitempty" json:"cancelledBy,omitempty"`
	CreatedAt   time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time  `bson:"updatedAt" json:"updatedAt"`
	ConfirmedAt *time.Time `bson:"confirmedAt,omitempty" json:"confirmedAt,omitempty"`
	CancelledAt *time.Time `bson:"cancelledAt,omitempty" json:"cancelledAt,omitempty"`
	CompletedAt *time.Time `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
}

// Bucket returns the capacity bucket key the booking reserves against.
func (b *Booking) Bucket() BucketKey {
	return BucketKey{
		TutorID:         b.TutorID,
		ScheduledAt:     b.ScheduledAt.UTC(),
		DurationMinutes: b.DurationMinutes,
		SessionType:     b.SessionType,
	}
}

// ActiveBookingKey identifies the (student, tutor, kind, start, duration)
// tuple that may hold at most one non-cancelled booking.
func ActiveBookingKey(studentID, tutorID string, kind SessionKind, at time.Time, duration int) string {
	return fmt.Sprintf("%s|%s|%s|%d|%d", studentID, tutorID, kind, at.UTC().Unix(), duration)
}

type CreateBookingRequest struct {
	TutorID         string    `json:"tutorId" binding:"required"`
	Subject         string    `json:"subject" binding:"required,max=200"`
	SessionType     string    `json:"sessionType" binding:"required,oneof=private group"`
	ScheduledAt     time.Time `json:"scheduledAt" binding:"required"`
	DurationMinutes int       `json:"durationMinutes" binding:"required,gt=0,max=480"`
	Currency        string    `json:"currency" binding:"omitempty,len=3"`
	Notes           string    `json:"notes" binding:"max=2000"`
}

type SetMeetingLinkRequest struct {
	MeetingLink string `json:"meetingLink" binding:"required,url"`
}
