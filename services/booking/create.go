package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tutorbook/database/repository"
	schedulerRepo "tutorbook/database/repository/scheduler"
	"tutorbook/models"
	"tutorbook/services/ledger"
	"tutorbook/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func (s *DefaultBookingService) Create(ctx context.Context, p *models.Principal, req models.CreateBookingRequest) (*Receipt, error) {
	if p == nil || p.Role != models.RoleStudent {
		return nil, errForbidden("only students can book sessions")
	}
	if strings.TrimSpace(p.Email) == "" {
		return nil, utils.ValidationError("student email is required to book a session")
	}
	kind, ok := models.ParseSessionKind(req.SessionType)
	if !ok {
		return nil, utils.ValidationError("sessionType must be private or group")
	}
	if req.DurationMinutes <= 0 {
		return nil, utils.ValidationError("durationMinutes must be positive")
	}

	tutor, err := s.Tutors.GetByID(ctx, req.TutorID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, utils.NotFoundError("tutor not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load tutor: %w", err)
	}
	if tutor.UserID == p.UserID {
		return nil, utils.ValidationError("you cannot book your own sessions")
	}
	if !tutor.Offers(kind) {
		return nil, utils.ValidationError(fmt.Sprintf("tutor does not offer %s sessions", kind))
	}

	at := req.ScheduledAt.UTC()
	tpl, err := s.Availability.CheckBookable(ctx, tutor.ID, kind, at, req.DurationMinutes)
	if err != nil {
		return nil, err
	}

	settings, err := s.Ledger.CurrentSettings(ctx)
	if err != nil {
		return nil, err
	}

	base := tutor.Currency
	if base == "" {
		base = utils.CurrencyINR
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = base
	}
	baseAmount := utils.Round2(tutor.HourlyRateFor(kind) * float64(req.DurationMinutes) / 60)
	price, err := utils.ConvertAmount(baseAmount, base, currency, settings.InrToUsdRate)
	if err != nil {
		return nil, utils.ValidationError(err.Error())
	}

	capacity := 1
	if kind == models.SessionGroup {
		capacity = tpl.GroupSessionCapacity
		if capacity < 1 {
			capacity = models.DefaultGroupSessionCapacity
		}
	}

	now := s.now()
	b := &models.Booking{
		ID:              uuid.NewString(),
		StudentID:       p.UserID,
		TutorID:         tutor.ID,
		Subject:         strings.TrimSpace(req.Subject),
		SessionType:     kind,
		ScheduledAt:     at,
		DurationMinutes: req.DurationMinutes,
		EndsAt:          at.Add(minutes(req.DurationMinutes)),
		Price:           price,
		Currency:        currency,
		Status:          models.BookingPending,
		PaymentStatus:   models.PaymentPending,
		Notes:           req.Notes,
		Participants: models.Participants{
			StudentName:  p.Name,
			StudentEmail: strings.ToLower(strings.TrimSpace(p.Email)),
			TutorUserID:  tutor.UserID,
			TutorName:    tutor.FullName,
			TutorEmail:   tutor.Email,
		},
		ActiveKey: models.ActiveBookingKey(p.UserID, tutor.ID, kind, at, req.DurationMinutes),
		CreatedAt: now,
		UpdatedAt: now,
	}

	rates := settings.Rates()
	res, err := s.Scheduler.CreateBooking(ctx, schedulerRepo.CreateBookingInput{
		Booking:  b,
		Capacity: capacity,
		Fees: func(isFirst bool) models.FeeBreakdown {
			return ledger.ComputeFees(b.Price, isFirst, rates)
		},
	})
	if err != nil {
		return nil, mapCreateError(err)
	}

	s.Logger.Info("booking created",
		zap.String("bookingID", res.Booking.ID),
		zap.String("tutorID", tutor.ID),
		zap.String("sessionType", string(kind)),
		zap.Time("scheduledAt", at),
		zap.Bool("firstBooking", res.Entry.IsFirstBooking))

	s.emit(ctx, models.EventBookingCreated, res.Booking, tutor.UserID,
		"New booking request",
		fmt.Sprintf("%s requested a %s session on %s", displayName(p.Name, "A student"), kind, at.Format("Mon 2 Jan 15:04 MST")))

	return &Receipt{Booking: res.Booking, Fees: res.Entry.FeeBreakdown}, nil
}

func displayName(name, fallback string) string {
	if strings.TrimSpace(name) == "" {
		return fallback
	}
	return name
}
