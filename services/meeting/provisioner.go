package meeting

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"tutorbook/models"
	"tutorbook/utils"

	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
)

const DefaultCallTimeout = 10 * time.Second

// DefaultProvisioner never fails the caller: every provider error is logged
// and reported as a degraded result.
type DefaultProvisioner struct {
	API         MeetingAPI
	Credentials CredentialStore
	Sealer      *utils.Sealer
	Timeout     time.Duration
	Logger      *zap.Logger

	cache tokenCache
}

func NewProvisioner(api MeetingAPI, creds CredentialStore, sealer *utils.Sealer, timeout time.Duration, logger *zap.Logger) *DefaultProvisioner {
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return &DefaultProvisioner{API: api, Credentials: creds, Sealer: sealer, Timeout: timeout, Logger: logger}
}

// EventIDFor derives the calendar event id from the booking id. Google only
// accepts base32hex characters, which a dash-less UUID satisfies.
func EventIDFor(bookingID string) string {
	return "tb" + strings.ToLower(strings.ReplaceAll(bookingID, "-", ""))
}

func (p *DefaultProvisioner) Provision(ctx context.Context, tutorID string, b *models.Booking) Result {
	degraded := Result{Status: models.MeetingDegraded}

	tok, err := p.token(ctx, tutorID)
	if err != nil {
		p.Logger.Warn("meeting provisioning skipped", zap.String("bookingID", b.ID), zap.Error(err))
		return degraded
	}

	req := EventRequest{
		EventID:     EventIDFor(b.ID),
		Summary:     fmt.Sprintf("Tutoring (%s): %s", b.SessionType, b.Subject),
		Description: fmt.Sprintf("Session with %s and %s.", b.Participants.TutorName, b.Participants.StudentName),
		Start:       b.ScheduledAt,
		End:         b.EndsAt,
		Timezone:    "UTC",
		Attendees:   []string{strings.ToLower(b.Participants.StudentEmail)},
	}

	var art *Artifact
	err = p.call(ctx, "create_event", func(ctx context.Context) error {
		var callErr error
		art, callErr = p.API.CreateEvent(ctx, tok, req)
		return callErr
	})
	if err != nil {
		p.Logger.Warn("meeting provisioning failed", zap.String("bookingID", b.ID), zap.Error(err))
		return degraded
	}

	res := Result{ArtifactID: &art.ID, Status: models.MeetingCreated}
	if art.JoinLink != "" {
		link := art.JoinLink
		res.JoinLink = &link
	} else {
		p.Logger.Warn("calendar event created without a join link", zap.String("bookingID", b.ID), zap.String("eventID", art.ID))
	}
	return res
}

// AddAttendee adds the email to an existing shared event. On failure the
// result still carries the artifact id so the booking can reuse it.
func (p *DefaultProvisioner) AddAttendee(ctx context.Context, tutorID, artifactID, email string) Result {
	id := artifactID
	degraded := Result{ArtifactID: &id, Status: models.MeetingDegraded}

	tok, err := p.token(ctx, tutorID)
	if err != nil {
		p.Logger.Warn("attendee update skipped", zap.String("eventID", artifactID), zap.Error(err))
		return degraded
	}

	var art *Artifact
	err = p.call(ctx, "add_attendee", func(ctx context.Context) error {
		var callErr error
		art, callErr = p.API.AddAttendee(ctx, tok, artifactID, strings.ToLower(email))
		return callErr
	})
	if err != nil {
		p.Logger.Warn("attendee update failed", zap.String("eventID", artifactID), zap.Error(err))
		return degraded
	}

	res := Result{ArtifactID: &id, Status: models.MeetingReused}
	if art != nil && art.JoinLink != "" {
		link := art.JoinLink
		res.JoinLink = &link
	}
	return res
}

func (p *DefaultProvisioner) Cancel(ctx context.Context, tutorID, artifactID string) bool {
	tok, err := p.token(ctx, tutorID)
	if err != nil {
		p.Logger.Warn("meeting cancellation skipped", zap.String("eventID", artifactID), zap.Error(err))
		return false
	}
	err = p.call(ctx, "delete_event", func(ctx context.Context) error {
		return p.API.DeleteEvent(ctx, tok, artifactID)
	})
	if err != nil {
		p.Logger.Warn("meeting cancellation failed", zap.String("eventID", artifactID), zap.Error(err))
		return false
	}
	return true
}

// call runs fn under the per-call timeout, retrying once on a transient error.
func (p *DefaultProvisioner) call(ctx context.Context, op string, fn func(context.Context) error) error {
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, p.Timeout)
		err = fn(callCtx)
		cancel()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil || !isTransient(err) {
			return err
		}
		p.Logger.Info("retrying calendar call", zap.String("op", op), zap.Int("attempt", attempt+1), zap.Error(err))
	}
	return err
}

func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		return gErr.Code == 429 || gErr.Code >= 500
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
