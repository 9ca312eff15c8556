package recordsRepo

import (
	"context"
	"time"

	"tutorbook/models"
)

// WithdrawalDecision is what an admin records when processing a request.
type WithdrawalDecision struct {
	Status        models.WithdrawalStatus
	AdminNotes    string
	ProcessedBy   string
	TransactionID string
	At            time.Time
}

// WithdrawalRepository stores tutor payout requests.
type WithdrawalRepository interface {
	Create(ctx context.Context, w *models.Withdrawal) error
	Get(ctx context.Context, id string) (*models.Withdrawal, error)
	ListByTutor(ctx context.Context, tutorID string, statuses ...models.WithdrawalStatus) ([]models.Withdrawal, error)
	// List returns every tutor's withdrawals, newest first.
	List(ctx context.Context, statuses ...models.WithdrawalStatus) ([]models.Withdrawal, error)
	// UpdateStatus applies d only while the withdrawal is in one of from.
	// It returns repository.ErrNotFound for an unknown id and
	// repository.ErrVersionConflict when the status has moved on.
	UpdateStatus(ctx context.Context, id string, from []models.WithdrawalStatus, d WithdrawalDecision) (*models.Withdrawal, error)
}
