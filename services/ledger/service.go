package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"tutorbook/database/repository"
	recordsRepo "tutorbook/database/repository/records"
	schedulerRepo "tutorbook/database/repository/scheduler"
	settingsRepo "tutorbook/database/repository/settings"
	"tutorbook/models"
	"tutorbook/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LedgerService answers fee, revenue and earnings questions.
type LedgerService interface {
	CurrentSettings(ctx context.Context) (models.PlatformSettings, error)
	UpdateSettings(ctx context.Context, req models.UpdateSettingsRequest) (models.PlatformSettings, error)
	Breakdown(ctx context.Context, bookingID string) (*models.PaymentLedgerEntry, error)
	RevenueStats(ctx context.Context) (*models.RevenueStats, error)
	// TutorEarnings totals a tutor's ledger and payouts in currency.
	TutorEarnings(ctx context.Context, tutorID, currency string) (*models.TutorEarnings, error)
	RequestWithdrawal(ctx context.Context, tutorID string, amount float64, currency string) (*models.Withdrawal, error)
	// ListWithdrawals lists one tutor's requests, or everyone's when tutorID is empty.
	ListWithdrawals(ctx context.Context, tutorID string, statuses ...models.WithdrawalStatus) ([]models.Withdrawal, error)
	ProcessWithdrawal(ctx context.Context, adminID, withdrawalID string, req models.ProcessWithdrawalRequest) (*models.Withdrawal, error)
}

// ReportingCurrency is the currency platform revenue is reported in.
const ReportingCurrency = utils.CurrencyINR

type DefaultLedgerService struct {
	Scheduler   schedulerRepo.SchedulerRepository
	Settings    settingsRepo.SettingsRepository
	Withdrawals recordsRepo.WithdrawalRepository
	Logger      *zap.Logger
	Now         func() time.Time
}

func (s *DefaultLedgerService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *DefaultLedgerService) CurrentSettings(ctx context.Context) (models.PlatformSettings, error) {
	settings, err := s.Settings.Get(ctx)
	if err != nil {
		return settings, fmt.Errorf("failed to read platform settings: %w", err)
	}
	return settings, nil
}

func (s *DefaultLedgerService) UpdateSettings(ctx context.Context, req models.UpdateSettingsRequest) (models.PlatformSettings, error) {
	check := func(name string, v *float64) error {
		if v != nil && (*v < 0 || *v > 1 || math.IsNaN(*v)) {
			return utils.ValidationError(name + " must be between 0 and 1")
		}
		return nil
	}
	if err := check("commissionRate", req.CommissionRate); err != nil {
		return models.PlatformSettings{}, err
	}
	if err := check("studentFeeRate", req.StudentFeeRate); err != nil {
		return models.PlatformSettings{}, err
	}
	if req.InrToUsdRate != nil && *req.InrToUsdRate <= 0 {
		return models.PlatformSettings{}, utils.ValidationError("inrToUsdRate must be positive")
	}
	if req.MinimumWithdrawalAmount != nil && *req.MinimumWithdrawalAmount < 0 {
		return models.PlatformSettings{}, utils.ValidationError("minimumWithdrawalAmount cannot be negative")
	}

	updated, err := s.Settings.Update(ctx, req)
	if err != nil {
		return updated, fmt.Errorf("failed to update platform settings: %w", err)
	}
	s.Logger.Info("platform settings updated",
		zap.Float64("commissionRate", updated.CommissionRate),
		zap.Float64("studentFeeRate", updated.StudentFeeRate))
	return updated, nil
}

func (s *DefaultLedgerService) Breakdown(ctx context.Context, bookingID string) (*models.PaymentLedgerEntry, error) {
	entry, err := s.Scheduler.GetLedgerEntry(ctx, bookingID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, utils.NotFoundError("payment record not found")
	}
	return entry, err
}

// weekStart returns Monday 00:00 UTC of the week containing t.
func weekStart(t time.Time) time.Time {
	t = t.UTC()
	offset := (int(t.Weekday()) + 6) % 7
	d := t.AddDate(0, 0, -offset)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

func monthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// converter moves amounts into one currency. An empty source currency is
// taken to already be the target.
type converter struct {
	to   string
	rate float64
}

func (c converter) amount(v float64, from string) (float64, error) {
	if from == "" {
		return v, nil
	}
	return utils.ConvertAmount(v, from, c.to, c.rate)
}

func (c converter) fees(e models.PaymentLedgerEntry) (models.FeeBreakdown, error) {
	f := e.FeeBreakdown
	if e.Currency == "" || strings.EqualFold(e.Currency, c.to) {
		return f, nil
	}
	for _, v := range []*float64{&f.SessionAmount, &f.CommissionFee, &f.StudentPlatformFee, &f.TotalPlatformFee, &f.TutorEarnings, &f.ChargeAmount} {
		converted, err := c.amount(*v, e.Currency)
		if err != nil {
			return f, fmt.Errorf("ledger entry %s: %w", e.ID, err)
		}
		*v = converted
	}
	return f, nil
}

func (s *DefaultLedgerService) converterTo(ctx context.Context, currency string) (converter, error) {
	settings, err := s.CurrentSettings(ctx)
	if err != nil {
		return converter{}, err
	}
	return converter{to: strings.ToUpper(currency), rate: settings.InrToUsdRate}, nil
}

func accumulate(w *models.RevenueWindow, f models.FeeBreakdown) {
	w.CommissionFees += f.CommissionFee
	w.StudentFees += f.StudentPlatformFee
	w.TotalRevenue += f.TotalPlatformFee
	w.GrossVolume += f.ChargeAmount
	w.TransactionCount++
}

func roundWindow(w *models.RevenueWindow) {
	w.CommissionFees = utils.Round2(w.CommissionFees)
	w.StudentFees = utils.Round2(w.StudentFees)
	w.TotalRevenue = utils.Round2(w.TotalRevenue)
	w.GrossVolume = utils.Round2(w.GrossVolume)
}

// RevenueStats sums completed ledger entries only, in ReportingCurrency.
func (s *DefaultLedgerService) RevenueStats(ctx context.Context) (*models.RevenueStats, error) {
	entries, err := s.Scheduler.ListLedgerEntries(ctx, models.LedgerFilter{Status: []models.LedgerStatus{models.LedgerCompleted}})
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}
	conv, err := s.converterTo(ctx, ReportingCurrency)
	if err != nil {
		return nil, err
	}

	now := s.now()
	month, week := monthStart(now), weekStart(now)
	stats := &models.RevenueStats{Currency: ReportingCurrency}
	for _, e := range entries {
		f, err := conv.fees(e)
		if err != nil {
			return nil, err
		}
		accumulate(&stats.AllTime, f)
		if !e.CreatedAt.Before(month) {
			accumulate(&stats.ThisMonth, f)
		}
		if !e.CreatedAt.Before(week) {
			accumulate(&stats.ThisWeek, f)
		}
	}
	roundWindow(&stats.AllTime)
	roundWindow(&stats.ThisMonth)
	roundWindow(&stats.ThisWeek)
	return stats, nil
}

func (s *DefaultLedgerService) TutorEarnings(ctx context.Context, tutorID, currency string) (*models.TutorEarnings, error) {
	if currency == "" {
		currency = ReportingCurrency
	}
	conv, err := s.converterTo(ctx, currency)
	if err != nil {
		return nil, err
	}
	entries, err := s.Scheduler.ListLedgerEntries(ctx, models.LedgerFilter{
		TutorID: tutorID,
		Status:  []models.LedgerStatus{models.LedgerCompleted, models.LedgerPending},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}

	out := &models.TutorEarnings{TutorID: tutorID, Currency: conv.to}
	for _, e := range entries {
		earned, err := conv.amount(e.TutorEarnings, e.Currency)
		if err != nil {
			return nil, fmt.Errorf("ledger entry %s: %w", e.ID, err)
		}
		switch e.Status {
		case models.LedgerCompleted:
			out.TotalEarned += earned
			out.CompletedSessions++
		case models.LedgerPending:
			out.PendingEarnings += earned
			out.PendingSessions++
		}
	}

	withdrawals, err := s.Withdrawals.ListByTutor(ctx, tutorID,
		models.WithdrawalPending, models.WithdrawalApproved, models.WithdrawalCompleted)
	if err != nil {
		return nil, fmt.Errorf("failed to load withdrawals: %w", err)
	}
	for _, w := range withdrawals {
		amount, err := conv.amount(w.Amount, w.Currency)
		if err != nil {
			return nil, fmt.Errorf("withdrawal %s: %w", w.ID, err)
		}
		switch w.Status {
		case models.WithdrawalPending, models.WithdrawalApproved:
			out.PendingWithdrawals += amount
		case models.WithdrawalCompleted:
			out.TotalWithdrawn += amount
		}
	}

	out.TotalEarned = utils.Round2(out.TotalEarned)
	out.PendingEarnings = utils.Round2(out.PendingEarnings)
	out.PendingWithdrawals = utils.Round2(out.PendingWithdrawals)
	out.TotalWithdrawn = utils.Round2(out.TotalWithdrawn)
	out.AvailableBalance = utils.Round2(math.Max(0, out.TotalEarned-out.PendingWithdrawals-out.TotalWithdrawn))
	return out, nil
}

func (s *DefaultLedgerService) RequestWithdrawal(ctx context.Context, tutorID string, amount float64, currency string) (*models.Withdrawal, error) {
	amount = utils.Round2(amount)
	if amount <= 0 {
		return nil, utils.ValidationError("amount must be positive")
	}
	settings, err := s.CurrentSettings(ctx)
	if err != nil {
		return nil, err
	}
	if amount < settings.MinimumWithdrawalAmount {
		return nil, utils.ValidationError(fmt.Sprintf("minimum withdrawal is %.2f", settings.MinimumWithdrawalAmount))
	}
	earnings, err := s.TutorEarnings(ctx, tutorID, currency)
	if err != nil {
		return nil, err
	}
	if amount > earnings.AvailableBalance {
		return nil, utils.ValidationError(fmt.Sprintf("amount exceeds available balance %.2f", earnings.AvailableBalance))
	}

	now := s.now()
	w := &models.Withdrawal{
		ID:        uuid.NewString(),
		TutorID:   tutorID,
		Amount:    amount,
		Currency:  earnings.Currency,
		Status:    models.WithdrawalPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Withdrawals.Create(ctx, w); err != nil {
		return nil, fmt.Errorf("failed to record withdrawal: %w", err)
	}
	s.Logger.Info("withdrawal requested", zap.String("tutorID", tutorID), zap.Float64("amount", amount))
	return w, nil
}

// withdrawalMoves lists the states an admin may move a request out of, per
// target state. Rejected and completed requests are final.
var withdrawalMoves = map[models.WithdrawalStatus][]models.WithdrawalStatus{
	models.WithdrawalApproved:  {models.WithdrawalPending},
	models.WithdrawalRejected:  {models.WithdrawalPending, models.WithdrawalApproved},
	models.WithdrawalCompleted: {models.WithdrawalPending, models.WithdrawalApproved},
}

func (s *DefaultLedgerService) ListWithdrawals(ctx context.Context, tutorID string, statuses ...models.WithdrawalStatus) ([]models.Withdrawal, error) {
	var (
		out []models.Withdrawal
		err error
	)
	if tutorID == "" {
		out, err = s.Withdrawals.List(ctx, statuses...)
	} else {
		out, err = s.Withdrawals.ListByTutor(ctx, tutorID, statuses...)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list withdrawals: %w", err)
	}
	return out, nil
}

func (s *DefaultLedgerService) ProcessWithdrawal(ctx context.Context, adminID, withdrawalID string, req models.ProcessWithdrawalRequest) (*models.Withdrawal, error) {
	from, ok := withdrawalMoves[req.Status]
	if !ok {
		return nil, utils.ValidationError("status must be approved, rejected or completed")
	}

	updated, err := s.Withdrawals.UpdateStatus(ctx, withdrawalID, from, recordsRepo.WithdrawalDecision{
		Status:        req.Status,
		AdminNotes:    strings.TrimSpace(req.AdminNotes),
		ProcessedBy:   adminID,
		TransactionID: strings.TrimSpace(req.TransactionID),
		At:            s.now(),
	})
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, utils.NotFoundError("withdrawal not found")
	case errors.Is(err, repository.ErrVersionConflict):
		current, getErr := s.Withdrawals.Get(ctx, withdrawalID)
		if getErr != nil {
			return nil, fmt.Errorf("failed to reload withdrawal: %w", getErr)
		}
		return nil, utils.NewAppError(utils.KindInvalidTransition, "invalid_transition",
			fmt.Sprintf("cannot move withdrawal from %s to %s", current.Status, req.Status))
	case err != nil:
		return nil, fmt.Errorf("failed to process withdrawal: %w", err)
	}

	s.Logger.Info("withdrawal processed",
		zap.String("withdrawalID", updated.ID),
		zap.String("tutorID", updated.TutorID),
		zap.String("status", string(updated.Status)),
		zap.String("processedBy", adminID))
	return updated, nil
}
