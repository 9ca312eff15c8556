package meeting

import (
	"context"
	"errors"
	"time"

	"tutorbook/models"

	"golang.org/x/oauth2"
)

// ErrNotConnected means the tutor never granted calendar access or revoked it.
var ErrNotConnected = errors.New("tutor calendar is not connected")

// Artifact is a calendar event with its video conference.
type Artifact struct {
	ID       string
	JoinLink string
}

type EventRequest struct {
	// EventID is chosen by us so a retried insert cannot create a twin.
	EventID     string
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
	Timezone    string
	Attendees   []string
}

// MeetingAPI is the calendar provider. Every call acts with the tutor's
// delegated token.
type MeetingAPI interface {
	CreateEvent(ctx context.Context, token *oauth2.Token, req EventRequest) (*Artifact, error)
	AddAttendee(ctx context.Context, token *oauth2.Token, eventID, email string) (*Artifact, error)
	DeleteEvent(ctx context.Context, token *oauth2.Token, eventID string) error
	RefreshToken(ctx context.Context, token *oauth2.Token) (*oauth2.Token, error)
}

// CredentialStore persists sealed tutor credentials.
type CredentialStore interface {
	GetCalendarCredential(ctx context.Context, tutorID string) (*models.CalendarCredential, error)
	SaveCalendarCredential(ctx context.Context, tutorID string, cred models.CalendarCredential) error
}

// Result is what the booking flow records. Nil pointers mean "no value".
type Result struct {
	ArtifactID *string
	JoinLink   *string
	Status     models.MeetingStatus
}

type MeetingProvisioner interface {
	Provision(ctx context.Context, tutorID string, b *models.Booking) Result
	AddAttendee(ctx context.Context, tutorID, artifactID, email string) Result
	Cancel(ctx context.Context, tutorID, artifactID string) bool
}
