package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"tutorbook/database/repository"
	schedulerRepo "tutorbook/database/repository/scheduler"
	tutorRepo "tutorbook/database/repository/tutor"
	"tutorbook/models"
	"tutorbook/services/availability"
	"tutorbook/services/ledger"
	"tutorbook/services/meeting"
	"tutorbook/services/notification"
	"tutorbook/utils"

	"go.uber.org/zap"
)

// BookingService drives bookings through their lifecycle.
type BookingService interface {
	Create(ctx context.Context, p *models.Principal, req models.CreateBookingRequest) (*Receipt, error)
	Confirm(ctx context.Context, p *models.Principal, bookingID string) (*models.Booking, error)
	Cancel(ctx context.Context, p *models.Principal, bookingID string) (*models.Booking, error)
	Complete(ctx context.Context, p *models.Principal, bookingID string) (*models.Booking, error)
	// CompleteDue completes every confirmed booking that has ended.
	CompleteDue(ctx context.Context) (int, error)

	Get(ctx context.Context, p *models.Principal, bookingID string) (*models.Booking, error)
	ListForStudent(ctx context.Context, p *models.Principal, status []models.BookingStatus) ([]models.Booking, error)
	ListForTutor(ctx context.Context, p *models.Principal, status []models.BookingStatus) ([]models.Booking, error)
	SetMeetingLink(ctx context.Context, p *models.Principal, bookingID, link string) (*models.Booking, error)
	MarkPaymentResult(ctx context.Context, bookingID string, paid bool, paymentID string) error
}

// Receipt is what a student gets back after booking.
type Receipt struct {
	Booking *models.Booking     `json:"booking"`
	Fees    models.FeeBreakdown `json:"fees"`
}

type DefaultBookingService struct {
	Scheduler    schedulerRepo.SchedulerRepository
	Tutors       tutorRepo.TutorRepository
	Availability availability.AvailabilityService
	Ledger       ledger.LedgerService
	Meetings     meeting.MeetingProvisioner
	Notifier     notification.NotificationSink
	Locker       utils.SlotLocker
	Logger       *zap.Logger
	Now          func() time.Time
	// LockTTL bounds how long a group slot lock is held. Defaults to slotLockTTL.
	LockTTL time.Duration

	background sync.WaitGroup
}

const (
	slotLockTTL    = 60 * time.Second
	lockMargin     = 10 * time.Second
	cleanupTimeout = 30 * time.Second
	sweepBatchSize = 500
)

// LockTTLFor sizes the slot lock for a provisioner whose calls each take up
// to callTimeout: a token refresh and an event insert, each retried once,
// plus room for the booking write.
func LockTTLFor(callTimeout time.Duration) time.Duration {
	ttl := 4*callTimeout + lockMargin
	if ttl < slotLockTTL {
		return slotLockTTL
	}
	return ttl
}

func (s *DefaultBookingService) lockTTL() time.Duration {
	if s.LockTTL > lockMargin {
		return s.LockTTL
	}
	return slotLockTTL
}

func minutes(n int) time.Duration { return time.Duration(n) * time.Minute }

// Wait blocks until background artifact cleanups have finished.
func (s *DefaultBookingService) Wait() {
	s.background.Wait()
}

func (s *DefaultBookingService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// party is how the principal relates to a booking.
type party struct {
	role  models.Role
	tutor *models.TutorProfile
}

func (s *DefaultBookingService) tutorFor(ctx context.Context, p *models.Principal) (*models.TutorProfile, error) {
	t, err := s.Tutors.GetByUserID(ctx, p.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load tutor profile: %w", err)
	}
	return t, nil
}

// load fetches the booking and resolves the caller's side of it. Missing and
// foreign bookings produce the same error.
func (s *DefaultBookingService) load(ctx context.Context, p *models.Principal, bookingID string) (*models.Booking, party, error) {
	if p == nil {
		return nil, party{}, errNoAccess()
	}
	b, err := s.Scheduler.GetBooking(ctx, bookingID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, party{}, errNoAccess()
	}
	if err != nil {
		return nil, party{}, fmt.Errorf("failed to load booking: %w", err)
	}

	switch p.Role {
	case models.RoleStudent:
		if b.StudentID == p.UserID {
			return b, party{role: models.RoleStudent}, nil
		}
	case models.RoleTutor:
		t, err := s.tutorFor(ctx, p)
		if err != nil {
			return nil, party{}, err
		}
		if t != nil && t.ID == b.TutorID {
			return b, party{role: models.RoleTutor, tutor: t}, nil
		}
	case models.RoleAdmin:
		return b, party{role: models.RoleAdmin}, nil
	}
	return nil, party{}, errNoAccess()
}

func (s *DefaultBookingService) emit(ctx context.Context, typ models.BookingEventType, b *models.Booking, recipient, title, body string) {
	if s.Notifier == nil || recipient == "" {
		return
	}
	s.Notifier.Emit(ctx, models.BookingEvent{
		Type:            typ,
		BookingID:       b.ID,
		RecipientUserID: recipient,
		Title:           title,
		Body:            body,
		Data: map[string]string{
			"status":      string(b.Status),
			"scheduledAt": b.ScheduledAt.Format(time.RFC3339),
		},
		OccurredAt: s.now(),
	})
}
