package models

import "time"

// CalendarCredential holds a tutor's delegated calendar access. Tokens are
// stored sealed and only opened inside the meeting service.
type CalendarCredential struct {
	Connected    bool      `bson:"connected" json:"connected"`
	AccessToken  string    `bson:"accessToken,omitempty" json:"-"`
	RefreshToken string    `bson:"refreshToken,omitempty" json:"-"`
	TokenType    string    `bson:"tokenType,omitempty" json:"-"`
	Expiry       time.Time `bson:"expiry,omitempty" json:"expiry,omitempty"`
	Scopes       []string  `bson:"scopes,omitempty" json:"scopes,omitempty"`
	Email        string    `bson:"email,omitempty" json:"email,omitempty"`
	UpdatedAt    time.Time `bson:"updatedAt,omitempty" json:"updatedAt,omitempty"`
}

type TutorProfile struct {
	ID              string             `bson:"id" json:"id"`
	UserID          string             `bson:"userId" json:"userId"`
	FullName        string             `bson:"fullName" json:"fullName"`
	Email           string             `bson:"email" json:"email"`
	AvatarURL       string             `bson:"avatarUrl,omitempty" json:"avatarUrl,omitempty"`
	AvatarPublicID  string             `bson:"avatarPublicId,omitempty" json:"-"`
	HourlyRate      float64            `bson:"hourlyRate" json:"hourlyRate"`
	GroupHourlyRate *float64           `bson:"groupHourlyRate,omitempty" json:"groupHourlyRate,omitempty"`
	Currency        string             `bson:"currency" json:"currency"`
	OffersPrivate   bool               `bson:"offersPrivate" json:"offersPrivate"`
	OffersGroup     bool               `bson:"offersGroup" json:"offersGroup"`
	Calendar        CalendarCredential `bson:"calendar" json:"calendar"`
	CreatedAt       time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Offers reports whether the tutor accepts bookings of the given kind.
func (t *TutorProfile) Offers(kind SessionKind) bool {
	switch kind {
	case SessionPrivate:
		return t.OffersPrivate
	case SessionGroup:
		return t.OffersGroup
	}
	return false
}

// HourlyRateFor falls back to 60% of the private rate for group sessions
// without an explicit group rate.
func (t *TutorProfile) HourlyRateFor(kind SessionKind) float64 {
	if kind == SessionGroup {
		if t.GroupHourlyRate != nil && *t.GroupHourlyRate > 0 {
			return *t.GroupHourlyRate
		}
		return t.HourlyRate * 0.6
	}
	return t.HourlyRate
}

type UpsertTutorRequest struct {
	FullName        string   `json:"fullName" binding:"required,max=120"`
	Email           string   `json:"email" binding:"required,email"`
	HourlyRate      float64  `json:"hourlyRate" binding:"required,gt=0"`
	GroupHourlyRate *float64 `json:"groupHourlyRate" binding:"omitempty,gt=0"`
	Currency        string   `json:"currency" binding:"omitempty,oneof=INR USD"`
	OffersPrivate   bool     `json:"offersPrivate"`
	OffersGroup     bool     `json:"offersGroup"`
}
