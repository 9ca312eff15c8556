package models

import "time"

type LedgerStatus string

const (
	LedgerPending   LedgerStatus = "pending"
	LedgerCompleted LedgerStatus = "completed"
	LedgerFailed    LedgerStatus = "failed"
	LedgerRefunded  LedgerStatus = "refunded"
)

// PlatformRates are the fee rates in force when a booking is created.
type PlatformRates struct {
	CommissionRate float64 `json:"commissionRate"`
	StudentFeeRate float64 `json:"studentFeeRate"`
}

// FeeBreakdown is the output of fee computation for one session amount.
type FeeBreakdown struct {
	SessionAmount         float64 `bson:"sessionAmount" json:"sessionAmount"`
	CommissionFee         float64 `bson:"commissionFee" json:"commissionFee"`
	StudentPlatformFee    float64 `bson:"studentPlatformFee" json:"studentPlatformFee"`
	TotalPlatformFee      float64 `bson:"totalPlatformFee" json:"totalPlatformFee"`
	TutorEarnings         float64 `bson:"tutorEarnings" json:"tutorEarnings"`
	ChargeAmount          float64 `bson:"chargeAmount" json:"chargeAmount"`
	IsFirstBooking        bool    `bson:"isFirstBooking" json:"isFirstBooking"`
	CommissionRateApplied float64 `bson:"commissionRateApplied" json:"commissionRateApplied"`
	StudentFeeRateApplied float64 `bson:"studentFeeRateApplied" json:"studentFeeRateApplied"`
}

// PaymentLedgerEntry is written once with its booking; only Status and the
// gateway references change afterwards.
type PaymentLedgerEntry struct {
	ID        string `bson:"id" json:"id"`
	BookingID string `bson:"bookingId" json:"bookingId"`
	StudentID string `bson:"studentId" json:"studentId"`
	TutorID   string `bson:"tutorId" json:"tutorId"`
	Currency  string `bson:"currency" json:"currency"`

	FeeBreakdown `bson:",inline"`

	Status         LedgerStatus `bson:"status" json:"status"`
	GatewayOrderID *string      `bson:"gatewayOrderId" json:"gatewayOrderId"`
	GatewayPayment *string      `bson:"gatewayPaymentId" json:"gatewayPaymentId"`
	CreatedAt      time.Time    `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time    `bson:"updatedAt" json:"updatedAt"`
	CompletedAt    *time.Time   `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
}

// StudentTutorRelation is created by the first booking between a pair.
type StudentTutorRelation struct {
	StudentID        string    `bson:"studentId" json:"studentId"`
	TutorID          string    `bson:"tutorId" json:"tutorId"`
	FirstBookingID   string    `bson:"firstBookingId" json:"firstBookingId"`
	FirstBookingDate time.Time `bson:"firstBookingDate" json:"firstBookingDate"`
	TotalBookings    int       `bson:"totalBookings" json:"totalBookings"`
	TotalSpent       float64   `bson:"totalSpent" json:"totalSpent"`
	CreatedAt        time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time `bson:"updatedAt" json:"updatedAt"`
}

const (
	DefaultCommissionRate          = 0.05
	DefaultStudentFeeRate          = 0.0
	DefaultMinimumWithdrawalAmount = 10.0
	DefaultInrToUsdRate            = 0.012
)

// PlatformSettings is a singleton document.
type PlatformSettings struct {
	ID                      string    `bson:"id" json:"id"`
	CommissionRate          float64   `bson:"commissionRate" json:"commissionRate"`
	StudentFeeRate          float64   `bson:"studentFeeRate" json:"studentFeeRate"`
	MinimumWithdrawalAmount float64   `bson:"minimumWithdrawalAmount" json:"minimumWithdrawalAmount"`
	InrToUsdRate            float64   `bson:"inrToUsdRate" json:"inrToUsdRate"`
	UpdatedAt               time.Time `bson:"updatedAt" json:"updatedAt"`
}

func DefaultPlatformSettings() PlatformSettings {
	return PlatformSettings{
		ID:                      "platform",
		CommissionRate:          DefaultCommissionRate,
		StudentFeeRate:          DefaultStudentFeeRate,
		MinimumWithdrawalAmount: DefaultMinimumWithdrawalAmount,
		InrToUsdRate:            DefaultInrToUsdRate,
	}
}

func (s PlatformSettings) Rates() PlatformRates {
	return PlatformRates{CommissionRate: s.CommissionRate, StudentFeeRate: s.StudentFeeRate}
}

type UpdateSettingsRequest struct {
	CommissionRate          *float64 `json:"commissionRate" binding:"omitempty,min=0,max=1"`
	StudentFeeRate          *float64 `json:"studentFeeRate" binding:"omitempty,min=0,max=1"`
	MinimumWithdrawalAmount *float64 `json:"minimumWithdrawalAmount" binding:"omitempty,min=0"`
	InrToUsdRate            *float64 `json:"inrToUsdRate" binding:"omitempty,gt=0"`
}

type RevenueWindow struct {
	CommissionFees   float64 `json:"commissionFees"`
	StudentFees      float64 `json:"studentFees"`
	TotalRevenue     float64 `json:"totalRevenue"`
	GrossVolume      float64 `json:"grossVolume"`
	TransactionCount int     `json:"transactionCount"`
}

// RevenueStats is reported in one currency; entries in others are converted.
type RevenueStats struct {
	Currency  string        `json:"currency"`
	AllTime   RevenueWindow `json:"allTime"`
	ThisMonth RevenueWindow `json:"thisMonth"`
	ThisWeek  RevenueWindow `json:"thisWeek"`
}

type TutorEarnings struct {
	TutorID            string  `json:"tutorId"`
	Currency           string  `json:"currency"`
	TotalEarned        float64 `json:"totalEarned"`
	PendingEarnings    float64 `json:"pendingEarnings"`
	CompletedSessions  int     `json:"completedSessions"`
	PendingSessions    int     `json:"pendingSessions"`
	PendingWithdrawals float64 `json:"pendingWithdrawals"`
	TotalWithdrawn     float64 `json:"totalWithdrawn"`
	AvailableBalance   float64 `json:"availableBalance"`
}

// LedgerFilter narrows ledger scans; zero values mean "any".
type LedgerFilter struct {
	TutorID string
	Status  []LedgerStatus
	Since   time.Time
}

type PaymentOrder struct {
	BookingID    string  `json:"bookingId"`
	OrderID      string  `json:"orderId"`
	ClientSecret string  `json:"clientSecret"`
	Amount       float64 `json:"amount"`
	Currency     string  `json:"currency"`
}
