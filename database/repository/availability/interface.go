package availabilityRepo

import (
	"context"

	"tutorbook/models"
)

// AvailabilityRepository stores templates and blocked dates.
type AvailabilityRepository interface {
	// GetTemplate returns repository.ErrNotFound when the tutor never configured one.
	GetTemplate(ctx context.Context, tutorID string) (*models.AvailabilityTemplate, error)
	// GetOrCreateTemplate lazily inserts a default template.
	GetOrCreateTemplate(ctx context.Context, tutorID string) (*models.AvailabilityTemplate, error)
	// ReplaceSchedule swaps one weekly map if the stored version still equals
	// expectedVersion, otherwise repository.ErrVersionConflict.
	ReplaceSchedule(ctx context.Context, tutorID string, kind models.SessionKind, schedule models.WeeklySchedule, expectedVersion int) (*models.AvailabilityTemplate, error)
	UpdateSettings(ctx context.Context, tutorID string, update models.AvailabilitySettingsUpdate) (*models.AvailabilityTemplate, error)

	// AddBlockedDate returns repository.ErrDuplicate for an existing (tutor, date).
	AddBlockedDate(ctx context.Context, blocked *models.BlockedDate) error
	DeleteBlockedDate(ctx context.Context, tutorID, id string) error
	// ListBlockedDates returns dates in [from, to] sorted ascending; empty bounds are open.
	ListBlockedDates(ctx context.Context, tutorID, from, to string) ([]models.BlockedDate, error)
	IsDateBlocked(ctx context.Context, tutorID, date string) (bool, error)
}
