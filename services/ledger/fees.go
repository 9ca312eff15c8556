package ledger

import (
	"tutorbook/models"
	"tutorbook/utils"
)

// ComputeFees splits a session amount into platform and tutor shares. The
// student fee only applies to the first booking between a student and tutor.
func ComputeFees(sessionAmount float64, isFirstBooking bool, rates models.PlatformRates) models.FeeBreakdown {
	amount := utils.Round2(sessionAmount)
	commission := utils.Round2(amount * rates.CommissionRate)

	studentFee := 0.0
	if isFirstBooking {
		studentFee = utils.Round2(amount * rates.StudentFeeRate)
	}

	return models.FeeBreakdown{
		SessionAmount:         amount,
		CommissionFee:         commission,
		StudentPlatformFee:    studentFee,
		TotalPlatformFee:      utils.Round2(commission + studentFee),
		TutorEarnings:         utils.Round2(amount - commission),
		ChargeAmount:          utils.Round2(amount + studentFee),
		IsFirstBooking:        isFirstBooking,
		CommissionRateApplied: rates.CommissionRate,
		StudentFeeRateApplied: rates.StudentFeeRate,
	}
}

// ValidRates reports whether both rates lie in [0, 1].
func ValidRates(r models.PlatformRates) bool {
	return r.CommissionRate >= 0 && r.CommissionRate <= 1 &&
		r.StudentFeeRate >= 0 && r.StudentFeeRate <= 1
}
