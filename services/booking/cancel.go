package booking

import (
	"context"
	"errors"
	"fmt"

	schedulerRepo "tutorbook/database/repository/scheduler"
	"tutorbook/models"

	"go.uber.org/zap"
)

func (s *DefaultBookingService) Cancel(ctx context.Context, p *models.Principal, bookingID string) (*models.Booking, error) {
	b, who, err := s.load(ctx, p, bookingID)
	if err != nil {
		return nil, err
	}
	if who.role != models.RoleStudent && who.role != models.RoleTutor {
		return nil, errForbidden("only the student or tutor of this booking can cancel it")
	}
	if err := checkTransition(b.Status, models.BookingCancelled); err != nil {
		return nil, err
	}

	cancelled, err := s.Scheduler.CancelBooking(ctx, b.ID, who.role, s.now())
	if errors.Is(err, schedulerRepo.ErrStatusChanged) && cancelled != nil {
		return nil, checkTransition(cancelled.Status, models.BookingCancelled)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to cancel booking: %w", err)
	}

	s.Logger.Info("booking cancelled",
		zap.String("bookingID", cancelled.ID),
		zap.String("by", string(who.role)))

	if cancelled.ExternalEventID != nil {
		var slot *models.BucketKey
		if cancelled.SessionType == models.SessionGroup {
			key := cancelled.Bucket()
			slot = &key
		}
		s.releaseArtifact(cancelled.TutorID, *cancelled.ExternalEventID, cancelled.ID, slot)
	}

	recipient, canceller := cancelled.Participants.TutorUserID, displayName(cancelled.Participants.StudentName, "The student")
	if who.role == models.RoleTutor {
		recipient, canceller = cancelled.StudentID, displayName(cancelled.Participants.TutorName, "Your tutor")
	}
	body := fmt.Sprintf("%s cancelled the session on %s", canceller, cancelled.ScheduledAt.Format("Mon 2 Jan 15:04 MST"))
	s.emit(ctx, models.EventBookingCancelled, cancelled, recipient, "Booking cancelled", body)
	return cancelled, nil
}

// releaseArtifact deletes the calendar event in the background once no other
// confirmed booking references it. Group slots are checked under the slot
// lock so a concurrent confirm cannot attach to an event being deleted.
func (s *DefaultBookingService) releaseArtifact(tutorID, eventID, bookingID string, slot *models.BucketKey) {
	if s.Meetings == nil {
		return
	}
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
		defer cancel()

		if slot != nil && s.Locker != nil {
			unlock, err := s.Locker.Lock(ctx, slot.String(), s.lockTTL())
			if err != nil {
				s.Logger.Warn("skipping meeting cleanup, slot lock failed", zap.String("eventID", eventID), zap.Error(err))
				return
			}
			defer unlock()
		}

		holders, err := s.Scheduler.CountArtifactHolders(ctx, eventID, bookingID)
		if err != nil {
			s.Logger.Warn("skipping meeting cleanup", zap.String("eventID", eventID), zap.Error(err))
			return
		}
		if holders > 0 {
			s.Logger.Debug("meeting still shared", zap.String("eventID", eventID), zap.Int64("holders", holders))
			return
		}
		if !s.Meetings.Cancel(ctx, tutorID, eventID) {
			s.Logger.Warn("meeting cleanup failed", zap.String("eventID", eventID), zap.String("bookingID", bookingID))
		}
	}()
}
