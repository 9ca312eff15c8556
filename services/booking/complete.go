package booking

import (
	"context"
	"errors"
	"fmt"

	schedulerRepo "tutorbook/database/repository/scheduler"
	"tutorbook/models"
	"tutorbook/utils"

	"go.uber.org/zap"
)

// Complete lets the tutor or an admin close a session once it has started.
func (s *DefaultBookingService) Complete(ctx context.Context, p *models.Principal, bookingID string) (*models.Booking, error) {
	b, who, err := s.load(ctx, p, bookingID)
	if err != nil {
		return nil, err
	}
	if who.role != models.RoleTutor && who.role != models.RoleAdmin {
		return nil, errForbidden("only the tutor of this booking can complete it")
	}
	if err := checkTransition(b.Status, models.BookingCompleted); err != nil {
		return nil, err
	}
	if s.now().Before(b.ScheduledAt) {
		return nil, utils.ValidationError("a session cannot be completed before it starts")
	}
	return s.complete(ctx, b.ID)
}

func (s *DefaultBookingService) complete(ctx context.Context, bookingID string) (*models.Booking, error) {
	done, err := s.Scheduler.CompleteBooking(ctx, bookingID, s.now())
	if errors.Is(err, schedulerRepo.ErrStatusChanged) && done != nil {
		return nil, checkTransition(done.Status, models.BookingCompleted)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to complete booking: %w", err)
	}
	s.Logger.Info("booking completed", zap.String("bookingID", done.ID))
	s.emit(ctx, models.EventBookingCompleted, done, done.StudentID,
		"Session completed",
		fmt.Sprintf("Your %s session is complete", done.Subject))
	return done, nil
}

func (s *DefaultBookingService) CompleteDue(ctx context.Context) (int, error) {
	due, err := s.Scheduler.ListBookings(ctx, schedulerRepo.BookingFilter{
		Status:     []models.BookingStatus{models.BookingConfirmed},
		EndsBefore: s.now(),
		Limit:      sweepBatchSize,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to list due bookings: %w", err)
	}

	completed := 0
	var lastErr error
	for _, b := range due {
		if _, err := s.complete(ctx, b.ID); err != nil {
			var appErr *utils.AppError
			if errors.As(err, &appErr) {
				// Cancelled or completed since the scan.
				continue
			}
			s.Logger.Error("failed to complete due booking", zap.String("bookingID", b.ID), zap.Error(err))
			lastErr = err
			continue
		}
		completed++
	}
	if completed > 0 {
		s.Logger.Info("completion sweep finished", zap.Int("completed", completed), zap.Int("scanned", len(due)))
	}
	return completed, lastErr
}
