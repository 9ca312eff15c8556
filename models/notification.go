package models

import "time"

type BookingEventType string

const (
	EventBookingCreated   BookingEventType = "booking.created"
	EventBookingConfirmed BookingEventType = "booking.confirmed"
	EventBookingCancelled BookingEventType = "booking.cancelled"
	EventBookingCompleted BookingEventType = "booking.completed"
)

// BookingEvent is handed to the notification sink after a transition commits.
type BookingEvent struct {
	Type            BookingEventType  `json:"type"`
	BookingID       string            `json:"bookingId"`
	RecipientUserID string            `json:"recipientUserId"`
	Title           string            `json:"title"`
	Body            string            `json:"body"`
	Data            map[string]string `json:"data,omitempty"`
	OccurredAt      time.Time         `json:"occurredAt"`
}

// Device is the push registration of a user.
type Device struct {
	UserID    string    `bson:"userId" json:"userId"`
	FCMToken  string    `bson:"fcmToken" json:"fcmToken"`
	Platform  string    `bson:"platform,omitempty" json:"platform,omitempty"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

type RegisterDeviceRequest struct {
	FCMToken string `json:"fcmToken" binding:"required"`
	Platform string `json:"platform" binding:"omitempty,oneof=android ios web"`
}
