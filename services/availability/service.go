package availability

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tutorbook/database/repository"
	availabilityRepo "tutorbook/database/repository/availability"
	tutorRepo "tutorbook/database/repository/tutor"
	"tutorbook/models"
	"tutorbook/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AvailabilityService owns templates, blocked dates and month resolution.
type AvailabilityService interface {
	GetTemplate(ctx context.Context, tutorID string) (*models.AvailabilityTemplate, error)
	SetWeeklySchedule(ctx context.Context, tutorID string, kind models.SessionKind, schedule models.WeeklySchedule) (*models.AvailabilityTemplate, error)
	UpdateSettings(ctx context.Context, tutorID string, update models.AvailabilitySettingsUpdate) (*models.AvailabilityTemplate, error)
	AddBlockedDate(ctx context.Context, tutorID string, req models.BlockDateRequest) (*models.BlockedDate, error)
	RemoveBlockedDate(ctx context.Context, tutorID, blockedID string) error
	ListBlockedDates(ctx context.Context, tutorID, from, to string) ([]models.BlockedDate, error)
	ResolveMonth(ctx context.Context, tutorID string, year, month int, kind models.SessionKind, view models.CalendarView) (*models.MonthCalendar, error)
	// CheckBookable validates a requested start against the template, notice
	// window and blocked dates.
	CheckBookable(ctx context.Context, tutorID string, kind models.SessionKind, at time.Time, durationMinutes int) (*models.AvailabilityTemplate, error)
}

type DefaultAvailabilityService struct {
	Repo   availabilityRepo.AvailabilityRepository
	Tutors tutorRepo.TutorRepository
	Cache  MonthCache
	Logger *zap.Logger
	Now    func() time.Time
}

const maxScheduleRetries = 3

func (s *DefaultAvailabilityService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *DefaultAvailabilityService) invalidate(ctx context.Context, tutorID string) {
	if s.Cache != nil {
		s.Cache.InvalidateTutor(ctx, tutorID)
	}
}

func (s *DefaultAvailabilityService) GetTemplate(ctx context.Context, tutorID string) (*models.AvailabilityTemplate, error) {
	tpl, err := s.Repo.GetOrCreateTemplate(ctx, tutorID)
	if err != nil {
		return nil, fmt.Errorf("failed to load availability: %w", err)
	}
	return tpl, nil
}

func (s *DefaultAvailabilityService) SetWeeklySchedule(ctx context.Context, tutorID string, kind models.SessionKind, schedule models.WeeklySchedule) (*models.AvailabilityTemplate, error) {
	if !kind.Valid() {
		return nil, utils.ValidationError("sessionType must be private or group")
	}

	for attempt := 0; attempt < maxScheduleRetries; attempt++ {
		current, err := s.Repo.GetOrCreateTemplate(ctx, tutorID)
		if err != nil {
			return nil, fmt.Errorf("failed to load availability: %w", err)
		}
		normalized, err := NormalizeSchedule(schedule, current.Schedule(kind.Other()))
		if err != nil {
			return nil, err
		}

		updated, err := s.Repo.ReplaceSchedule(ctx, tutorID, kind, normalized, current.Version)
		if errors.Is(err, repository.ErrVersionConflict) {
			// The other kind may have changed under us; validate again.
			s.Logger.Debug("template version moved, retrying", zap.String("tutorID", tutorID), zap.Int("attempt", attempt+1))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to save schedule: %w", err)
		}
		s.invalidate(ctx, tutorID)
		s.Logger.Info("weekly schedule replaced", zap.String("tutorID", tutorID), zap.String("sessionType", string(kind)))
		return updated, nil
	}
	return nil, utils.NewAppError(utils.KindScheduleConflict, "concurrent_update", "availability was changed concurrently, please retry")
}

func (s *DefaultAvailabilityService) UpdateSettings(ctx context.Context, tutorID string, update models.AvailabilitySettingsUpdate) (*models.AvailabilityTemplate, error) {
	if update.Timezone != nil {
		tz := strings.TrimSpace(*update.Timezone)
		if _, err := time.LoadLocation(tz); err != nil || tz == "" {
			return nil, utils.ValidationError(fmt.Sprintf("unknown timezone %q", *update.Timezone))
		}
		update.Timezone = &tz
	}
	if update.GroupSessionCapacity != nil && *update.GroupSessionCapacity < 1 {
		return nil, utils.ValidationError("groupSessionCapacity must be at least 1")
	}
	if update.SessionDurationMinutes != nil && *update.SessionDurationMinutes <= 0 {
		return nil, utils.ValidationError("sessionDurationMinutes must be positive")
	}

	if _, err := s.Repo.GetOrCreateTemplate(ctx, tutorID); err != nil {
		return nil, fmt.Errorf("failed to load availability: %w", err)
	}
	tpl, err := s.Repo.UpdateSettings(ctx, tutorID, update)
	if err != nil {
		return nil, fmt.Errorf("failed to update availability settings: %w", err)
	}
	s.invalidate(ctx, tutorID)
	return tpl, nil
}

func (s *DefaultAvailabilityService) AddBlockedDate(ctx context.Context, tutorID string, req models.BlockDateRequest) (*models.BlockedDate, error) {
	if _, err := time.Parse(dateLayout, req.Date); err != nil {
		return nil, utils.ValidationError("date must be YYYY-MM-DD")
	}
	b := &models.BlockedDate{
		ID:        uuid.NewString(),
		TutorID:   tutorID,
		Date:      req.Date,
		Reason:    strings.TrimSpace(req.Reason),
		CreatedAt: s.now(),
	}
	if err := s.Repo.AddBlockedDate(ctx, b); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, utils.ValidationError(fmt.Sprintf("%s is already blocked", req.Date))
		}
		return nil, fmt.Errorf("failed to block date: %w", err)
	}
	s.invalidate(ctx, tutorID)
	return b, nil
}

func (s *DefaultAvailabilityService) RemoveBlockedDate(ctx context.Context, tutorID, blockedID string) error {
	if err := s.Repo.DeleteBlockedDate(ctx, tutorID, blockedID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return utils.NotFoundError("blocked date not found")
		}
		return fmt.Errorf("failed to unblock date: %w", err)
	}
	s.invalidate(ctx, tutorID)
	return nil
}

func (s *DefaultAvailabilityService) ListBlockedDates(ctx context.Context, tutorID, from, to string) ([]models.BlockedDate, error) {
	for _, d := range []string{from, to} {
		if d == "" {
			continue
		}
		if _, err := time.Parse(dateLayout, d); err != nil {
			return nil, utils.ValidationError("from/to must be YYYY-MM-DD")
		}
	}
	return s.Repo.ListBlockedDates(ctx, tutorID, from, to)
}

func (s *DefaultAvailabilityService) ResolveMonth(ctx context.Context, tutorID string, year, month int, kind models.SessionKind, view models.CalendarView) (*models.MonthCalendar, error) {
	if month < 1 || month > 12 || year < 1970 || year > 9999 {
		return nil, utils.ValidationError("invalid year or month")
	}
	if !kind.Valid() {
		return nil, utils.ValidationError("sessionType must be private or group")
	}
	if _, err := s.Tutors.GetByID(ctx, tutorID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, utils.NotFoundError("tutor not found")
		}
		return nil, fmt.Errorf("failed to load tutor: %w", err)
	}

	key := monthCacheKey(tutorID, kind, view, year, time.Month(month))
	if s.Cache != nil {
		if cal, ok := s.Cache.Get(ctx, key); ok {
			return cal, nil
		}
	}

	tpl, err := s.Repo.GetTemplate(ctx, tutorID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to load availability: %w", err)
	}
	if errors.Is(err, repository.ErrNotFound) {
		tpl = nil
	}

	first := fmt.Sprintf("%04d-%02d-01", year, month)
	last := fmt.Sprintf("%04d-%02d-%02d", year, month, daysIn(year, time.Month(month)))
	blocked, err := s.Repo.ListBlockedDates(ctx, tutorID, first, last)
	if err != nil {
		return nil, fmt.Errorf("failed to load blocked dates: %w", err)
	}

	cal := &models.MonthCalendar{
		TutorID:     tutorID,
		Year:        year,
		Month:       month,
		SessionType: kind,
		View:        view,
		Timezone:    models.DefaultTimezone,
		Days:        ResolveMonth(tpl, blocked, year, time.Month(month), kind, view, s.now()),
	}
	if tpl != nil {
		cal.Timezone = tpl.Timezone
	}
	if s.Cache != nil {
		s.Cache.Set(ctx, key, cal)
	}
	return cal, nil
}

func (s *DefaultAvailabilityService) CheckBookable(ctx context.Context, tutorID string, kind models.SessionKind, at time.Time, durationMinutes int) (*models.AvailabilityTemplate, error) {
	tpl, err := s.Repo.GetTemplate(ctx, tutorID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, utils.ValidationError("tutor has not published availability")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load availability: %w", err)
	}
	if !tpl.IsAcceptingStudents {
		return nil, utils.ValidationError("tutor is not accepting students")
	}

	now := s.now()
	if !at.After(now) {
		return nil, utils.ValidationError("scheduledAt must be in the future")
	}
	if at.Before(now.Add(time.Duration(tpl.MinNoticeHours) * time.Hour)) {
		return nil, utils.ValidationError(fmt.Sprintf("bookings need at least %d hours notice", tpl.MinNoticeHours))
	}
	if at.After(now.AddDate(0, 0, tpl.AdvanceBookingDays)) {
		return nil, utils.ValidationError(fmt.Sprintf("bookings open at most %d days ahead", tpl.AdvanceBookingDays))
	}
	if !SlotOffered(tpl, kind, at, durationMinutes) {
		return nil, utils.ValidationError("requested time is not an offered slot")
	}

	blocked, err := s.Repo.IsDateBlocked(ctx, tutorID, at.In(tpl.Location()).Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to check blocked dates: %w", err)
	}
	if blocked {
		return nil, utils.ValidationError("tutor is unavailable on that date")
	}
	return tpl, nil
}
