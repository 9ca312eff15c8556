package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"

	schedulerRepo "tutorbook/database/repository/scheduler"
	"tutorbook/models"
	"tutorbook/services/meeting"
	"tutorbook/utils"

	"go.uber.org/zap"
)

func (s *DefaultBookingService) Confirm(ctx context.Context, p *models.Principal, bookingID string) (*models.Booking, error) {
	b, who, err := s.load(ctx, p, bookingID)
	if err != nil {
		return nil, err
	}
	if who.role != models.RoleTutor {
		return nil, errForbidden("only the tutor of this booking can confirm it")
	}
	if err := checkTransition(b.Status, models.BookingConfirmed); err != nil {
		return nil, err
	}
	if strings.TrimSpace(b.Participants.StudentEmail) == "" {
		return nil, utils.ValidationError("student email is missing; the booking cannot be confirmed")
	}

	var update schedulerRepo.MeetingUpdate
	if b.SessionType == models.SessionGroup {
		ttl := s.lockTTL()
		unlock, err := s.Locker.Lock(ctx, b.Bucket().String(), ttl)
		if err != nil {
			return nil, fmt.Errorf("failed to lock group slot: %w", err)
		}
		defer unlock()

		// Provisioning must finish while the lock is still ours, leaving
		// lockMargin for the booking write.
		lockCtx, cancel := context.WithTimeout(ctx, ttl-lockMargin)
		defer cancel()
		update, err = s.provisionGroup(lockCtx, b)
		if err != nil {
			return nil, err
		}
	} else {
		update = toUpdate(s.provision(ctx, b))
	}

	confirmed, err := s.Scheduler.ConfirmBooking(ctx, b.ID, update, s.now())
	if errors.Is(err, schedulerRepo.ErrStatusChanged) && confirmed != nil {
		// A concurrent confirm of the same booking may already hold this
		// very event; only an event the stored booking does not carry is ours
		// to release.
		if update.Status == models.MeetingCreated && update.EventID != nil && !holdsEvent(confirmed, *update.EventID) {
			s.releaseArtifact(b.TutorID, *update.EventID, b.ID, nil)
		}
		return nil, checkTransition(confirmed.Status, models.BookingConfirmed)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to confirm booking: %w", err)
	}

	s.Logger.Info("booking confirmed",
		zap.String("bookingID", confirmed.ID),
		zap.String("meetingStatus", string(confirmed.MeetingStatus)),
		zap.Bool("hasLink", confirmed.MeetingLink != nil))

	body := fmt.Sprintf("%s confirmed your session on %s",
		displayName(confirmed.Participants.TutorName, "Your tutor"),
		confirmed.ScheduledAt.Format("Mon 2 Jan 15:04 MST"))
	s.emit(ctx, models.EventBookingConfirmed, confirmed, confirmed.StudentID, "Booking confirmed", body)
	return confirmed, nil
}

// provisionGroup joins the slot's existing conference when another
// confirmed booking already carries one. Callers hold the slot lock.
func (s *DefaultBookingService) provisionGroup(ctx context.Context, b *models.Booking) (schedulerRepo.MeetingUpdate, error) {
	shared, err := s.Scheduler.FindSharedArtifact(ctx, b.TutorID, b.ScheduledAt, b.DurationMinutes, b.ID)
	if err != nil {
		return schedulerRepo.MeetingUpdate{}, fmt.Errorf("failed to look up shared meeting: %w", err)
	}
	if shared == nil || shared.ExternalEventID == nil {
		return toUpdate(s.provision(ctx, b)), nil
	}

	eventID := *shared.ExternalEventID
	res := meeting.Result{ArtifactID: &eventID, Status: models.MeetingDegraded}
	if s.Meetings != nil {
		res = s.Meetings.AddAttendee(ctx, b.TutorID, eventID, b.Participants.StudentEmail)
	}
	update := toUpdate(res)
	if update.EventID == nil {
		update.EventID = &eventID
	}
	if update.Link == nil {
		update.Link = shared.MeetingLink
	}
	return update, nil
}

func (s *DefaultBookingService) provision(ctx context.Context, b *models.Booking) meeting.Result {
	if s.Meetings == nil {
		return meeting.Result{Status: models.MeetingDegraded}
	}
	return s.Meetings.Provision(ctx, b.TutorID, b)
}

func holdsEvent(b *models.Booking, eventID string) bool {
	return b.Status == models.BookingConfirmed && b.ExternalEventID != nil && *b.ExternalEventID == eventID
}

func toUpdate(r meeting.Result) schedulerRepo.MeetingUpdate {
	return schedulerRepo.MeetingUpdate{Link: r.JoinLink, EventID: r.ArtifactID, Status: r.Status}
}
