package schedulerRepo

import (
	"context"
	"errors"
	"time"

	"tutorbook/models"
)

var (
	ErrSlotTaken        = errors.New("slot already taken")
	ErrSlotFull         = errors.New("slot is full")
	ErrDuplicateBooking = errors.New("an active booking already exists for this slot")
	// ErrStatusChanged is returned together with the current booking when a
	// conditional transition found the booking in a different status.
	ErrStatusChanged = errors.New("booking status does not allow this transition")
)

// FeeFunc computes the fee breakdown once first-booking status is known.
type FeeFunc func(isFirstBooking bool) models.FeeBreakdown

type CreateBookingInput struct {
	Booking  *models.Booking
	Capacity int
	Fees     FeeFunc
}

type CreateBookingResult struct {
	Booking *models.Booking
	Entry   *models.PaymentLedgerEntry
}

// MeetingUpdate is the provisioning outcome persisted on confirmation.
type MeetingUpdate struct {
	Link    *string
	EventID *string
	Status  models.MeetingStatus
}

type BookingFilter struct {
	StudentID  string
	TutorID    string
	Status     []models.BookingStatus
	EndsBefore time.Time
	Limit      int64
}

type SchedulerRepository interface {
	// CreateBooking reserves the seat, applies the duplicate guard, records
	// the student/tutor relation and inserts the booking with its ledger entry
	// as one unit. Nothing is persisted on error.
	CreateBooking(ctx context.Context, in CreateBookingInput) (*CreateBookingResult, error)
	GetBooking(ctx context.Context, id string) (*models.Booking, error)
	ListBookings(ctx context.Context, filter BookingFilter) ([]models.Booking, error)
	// FindSharedArtifact returns a confirmed group booking in the same slot
	// that already carries an external event, or nil.
	FindSharedArtifact(ctx context.Context, tutorID string, scheduledAt time.Time, durationMinutes int, excludeID string) (*models.Booking, error)
	CountArtifactHolders(ctx context.Context, eventID, excludeID string) (int64, error)

	ConfirmBooking(ctx context.Context, id string, meeting MeetingUpdate, at time.Time) (*models.Booking, error)
	CancelBooking(ctx context.Context, id string, by models.Role, at time.Time) (*models.Booking, error)
	CompleteBooking(ctx context.Context, id string, at time.Time) (*models.Booking, error)
	SetMeetingLink(ctx context.Context, id, link string) (*models.Booking, error)
	SetPaymentStatus(ctx context.Context, bookingID string, status models.PaymentStatus) error

	ReserveSeat(ctx context.Context, key models.BucketKey, capacity int) (*models.CapacityBucket, error)
	// ReleaseSeat frees the seat held by a booking; false when it held none.
	ReleaseSeat(ctx context.Context, bookingID string) (bool, error)
	GetBucket(ctx context.Context, key models.BucketKey) (*models.CapacityBucket, error)

	GetLedgerEntry(ctx context.Context, bookingID string) (*models.PaymentLedgerEntry, error)
	ListLedgerEntries(ctx context.Context, filter models.LedgerFilter) ([]models.PaymentLedgerEntry, error)
	// TransitionLedger moves the entry to `to` only from one of `from`.
	TransitionLedger(ctx context.Context, bookingID string, from []models.LedgerStatus, to models.LedgerStatus, at time.Time) (*models.PaymentLedgerEntry, error)
	SetGatewayOrder(ctx context.Context, bookingID, orderID string) error
	SetGatewayPayment(ctx context.Context, bookingID, paymentID string) error
	GetRelation(ctx context.Context, studentID, tutorID string) (*models.StudentTutorRelation, error)
}

func newLedgerEntry(id string, b *models.Booking, fees models.FeeBreakdown) *models.PaymentLedgerEntry {
	return &models.PaymentLedgerEntry{
		ID:           id,
		BookingID:    b.ID,
		StudentID:    b.StudentID,
		TutorID:      b.TutorID,
		Currency:     b.Currency,
		FeeBreakdown: fees,
		Status:       models.LedgerPending,
		CreatedAt:    b.CreatedAt,
		UpdatedAt:    b.CreatedAt,
	}
}

// capacityError picks the rejection reported when a bucket is exhausted.
func capacityError(capacity int) error {
	if capacity <= 1 {
		return ErrSlotTaken
	}
	return ErrSlotFull
}

// voidedLedgerStatus is where a ledger entry goes when its booking is cancelled.
func voidedLedgerStatus(s models.LedgerStatus) (models.LedgerStatus, bool) {
	switch s {
	case models.LedgerPending:
		return models.LedgerFailed, true
	case models.LedgerCompleted:
		return models.LedgerRefunded, true
	}
	return s, false
}
