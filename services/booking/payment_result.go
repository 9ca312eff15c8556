package booking

import (
	"context"
	"errors"
	"fmt"

	"tutorbook/database/repository"
	schedulerRepo "tutorbook/database/repository/scheduler"
	"tutorbook/models"
	"tutorbook/utils"

	"go.uber.org/zap"
)

// MarkPaymentResult records the gateway outcome for a booking. A failed
// payment only voids a ledger entry that is still pending.
func (s *DefaultBookingService) MarkPaymentResult(ctx context.Context, bookingID string, paid bool, paymentID string) error {
	b, err := s.Scheduler.GetBooking(ctx, bookingID)
	if errors.Is(err, repository.ErrNotFound) {
		return utils.NotFoundError("booking not found")
	}
	if err != nil {
		return fmt.Errorf("failed to load booking: %w", err)
	}

	if paymentID != "" {
		if err := s.Scheduler.SetGatewayPayment(ctx, bookingID, paymentID); err != nil && !errors.Is(err, repository.ErrNotFound) {
			return err
		}
	}

	if paid {
		if b.Status == models.BookingCancelled {
			s.Logger.Warn("payment captured for a cancelled booking", zap.String("bookingID", bookingID), zap.String("paymentID", paymentID))
		}
		if err := s.Scheduler.SetPaymentStatus(ctx, bookingID, models.PaymentPaid); err != nil {
			return err
		}
		s.Logger.Info("booking paid", zap.String("bookingID", bookingID))
		return nil
	}

	if b.PaymentStatus == models.PaymentPending {
		if err := s.Scheduler.SetPaymentStatus(ctx, bookingID, models.PaymentFailed); err != nil {
			return err
		}
	}
	_, err = s.Scheduler.TransitionLedger(ctx, bookingID,
		[]models.LedgerStatus{models.LedgerPending}, models.LedgerFailed, s.now())
	if err != nil && !errors.Is(err, schedulerRepo.ErrStatusChanged) {
		return fmt.Errorf("failed to void ledger entry: %w", err)
	}
	s.Logger.Info("booking payment failed", zap.String("bookingID", bookingID))
	return nil
}
