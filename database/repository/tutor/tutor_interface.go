package tutorRepo

import (
	"context"

	"tutorbook/models"
)

type TutorRepository interface {
	// Create returns repository.ErrDuplicate when the user already has a profile.
	Create(ctx context.Context, t *models.TutorProfile) error
	GetByID(ctx context.Context, id string) (*models.TutorProfile, error)
	GetByUserID(ctx context.Context, userID string) (*models.TutorProfile, error)
	UpdateProfile(ctx context.Context, id string, req models.UpsertTutorRequest) (*models.TutorProfile, error)
	SetAvatar(ctx context.Context, id, url, publicID string) error

	GetCalendarCredential(ctx context.Context, tutorID string) (*models.CalendarCredential, error)
	SaveCalendarCredential(ctx context.Context, tutorID string, cred models.CalendarCredential) error
	ClearCalendarCredential(ctx context.Context, tutorID string) error
}
