package booking

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	schedulerRepo "tutorbook/database/repository/scheduler"
	"tutorbook/models"
	"tutorbook/utils"

	"go.uber.org/zap"
)

func (s *DefaultBookingService) Get(ctx context.Context, p *models.Principal, bookingID string) (*models.Booking, error) {
	b, _, err := s.load(ctx, p, bookingID)
	return b, err
}

func (s *DefaultBookingService) ListForStudent(ctx context.Context, p *models.Principal, status []models.BookingStatus) ([]models.Booking, error) {
	if p == nil || p.Role != models.RoleStudent {
		return nil, errForbidden("only students have student bookings")
	}
	out, err := s.Scheduler.ListBookings(ctx, schedulerRepo.BookingFilter{StudentID: p.UserID, Status: status})
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return out, nil
}

func (s *DefaultBookingService) ListForTutor(ctx context.Context, p *models.Principal, status []models.BookingStatus) ([]models.Booking, error) {
	if p == nil || p.Role != models.RoleTutor {
		return nil, errForbidden("only tutors have tutor bookings")
	}
	t, err := s.tutorFor(ctx, p)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, utils.NotFoundError("tutor profile not found")
	}
	out, err := s.Scheduler.ListBookings(ctx, schedulerRepo.BookingFilter{TutorID: t.ID, Status: status})
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return out, nil
}

// SetMeetingLink stores a link the tutor shares by hand, typically after
// provisioning degraded.
func (s *DefaultBookingService) SetMeetingLink(ctx context.Context, p *models.Principal, bookingID, link string) (*models.Booking, error) {
	b, who, err := s.load(ctx, p, bookingID)
	if err != nil {
		return nil, err
	}
	if who.role != models.RoleTutor {
		return nil, errForbidden("only the tutor of this booking can set its meeting link")
	}
	link = strings.TrimSpace(link)
	u, err := url.Parse(link)
	if err != nil || u.Host == "" || (u.Scheme != "https" && u.Scheme != "http") {
		return nil, utils.ValidationError("meetingLink must be an http(s) URL")
	}
	if b.Status != models.BookingConfirmed {
		return nil, utils.NewAppError(utils.KindInvalidTransition, "invalid_transition",
			"a meeting link can only be set on a confirmed booking")
	}

	updated, err := s.Scheduler.SetMeetingLink(ctx, b.ID, link)
	if errors.Is(err, schedulerRepo.ErrStatusChanged) {
		return nil, utils.NewAppError(utils.KindInvalidTransition, "invalid_transition",
			"a meeting link can only be set on a confirmed booking")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to set meeting link: %w", err)
	}
	s.Logger.Info("meeting link set manually", zap.String("bookingID", b.ID))
	return updated, nil
}
