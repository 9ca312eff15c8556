package models

import "time"

type WithdrawalStatus string

const (
	WithdrawalPending   WithdrawalStatus = "pending"
	WithdrawalApproved  WithdrawalStatus = "approved"
	WithdrawalRejected  WithdrawalStatus = "rejected"
	WithdrawalCompleted WithdrawalStatus = "completed"
)

// Withdrawal is a tutor payout request against completed earnings.
type Withdrawal struct {
	ID        string           `bson:"id" json:"id"`
	TutorID   string           `bson:"tutorId" json:"tutorId"`
	Amount    float64          `bson:"amount" json:"amount"`
	Currency  string           `bson:"currency" json:"currency"`
	Status    WithdrawalStatus `bson:"status" json:"status"`
	CreatedAt time.Time        `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time        `bson:"updatedAt" json:"updatedAt"`

	AdminNotes    string     `bson:"adminNotes,omitempty" json:"adminNotes,omitempty"`
	ProcessedBy   string     `bson:"processedBy,omitempty" json:"processedBy,omitempty"`
	ProcessedAt   *time.Time `bson:"processedAt,omitempty" json:"processedAt,omitempty"`
	TransactionID string     `bson:"transactionId,omitempty" json:"transactionId,omitempty"`
}

// ProcessWithdrawalRequest is an admin decision on a payout request.
type ProcessWithdrawalRequest struct {
	Status        WithdrawalStatus `json:"status" binding:"required,oneof=approved rejected completed"`
	AdminNotes    string           `json:"adminNotes" binding:"max=1000"`
	TransactionID string           `json:"transactionId" binding:"max=200"`
}

type WithdrawalRequest struct {
	Amount float64 `json:"amount" binding:"required,gt=0"`
}
