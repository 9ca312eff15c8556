package payment

import (
	"context"
	"errors"
	"fmt"

	"tutorbook/database/repository"
	schedulerRepo "tutorbook/database/repository/scheduler"
	"tutorbook/models"
	"tutorbook/services/booking"
	"tutorbook/utils"

	"go.uber.org/zap"
)

type PaymentService interface {
	CreateOrder(ctx context.Context, p *models.Principal, bookingID string) (*models.PaymentOrder, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

type DefaultPaymentService struct {
	Gateway   Gateway
	Bookings  booking.BookingService
	Scheduler schedulerRepo.SchedulerRepository
	Logger    *zap.Logger
}

// CreateOrder opens a gateway order for the ledger's charge amount, which
// includes any first booking student fee.
func (s *DefaultPaymentService) CreateOrder(ctx context.Context, p *models.Principal, bookingID string) (*models.PaymentOrder, error) {
	b, err := s.Bookings.Get(ctx, p, bookingID)
	if err != nil {
		return nil, err
	}
	if p.Role != models.RoleStudent {
		return nil, utils.NewAppError(utils.KindUnauthorized, "forbidden", "only the student can pay for a booking")
	}
	if b.Status == models.BookingCancelled || b.Status == models.BookingCompleted {
		return nil, utils.NewAppError(utils.KindInvalidTransition, "invalid_transition",
			fmt.Sprintf("cannot pay for a %s booking", b.Status))
	}
	if b.PaymentStatus == models.PaymentPaid {
		return nil, utils.ValidationError("booking is already paid")
	}

	entry, err := s.Scheduler.GetLedgerEntry(ctx, b.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, utils.NotFoundError("no ledger entry for booking")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger entry: %w", err)
	}

	order, err := s.Gateway.CreateOrder(ctx, OrderRequest{
		BookingID: b.ID,
		Amount:    entry.ChargeAmount,
		Currency:  entry.Currency,
		Email:     b.Participants.StudentEmail,
	})
	if err != nil {
		return nil, err
	}
	if err := s.Scheduler.SetGatewayOrder(ctx, b.ID, order.ID); err != nil {
		return nil, fmt.Errorf("failed to record gateway order: %w", err)
	}

	s.Logger.Info("payment order created",
		zap.String("bookingID", b.ID),
		zap.String("orderID", order.ID),
		zap.Float64("amount", entry.ChargeAmount))
	return &models.PaymentOrder{
		BookingID:    b.ID,
		OrderID:      order.ID,
		ClientSecret: order.ClientSecret,
		Amount:       entry.ChargeAmount,
		Currency:     entry.Currency,
	}, nil
}

func (s *DefaultPaymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	res, err := s.Gateway.ParseWebhook(payload, signature)
	if err != nil {
		s.Logger.Warn("rejected payment webhook", zap.Error(err))
		return utils.ValidationError("invalid webhook")
	}
	if !res.Relevant {
		return nil
	}
	return s.Bookings.MarkPaymentResult(ctx, res.BookingID, res.Paid, res.PaymentID)
}
