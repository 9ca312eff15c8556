package utils

import (
	"fmt"
	"math"
	"strings"
)

const (
	CurrencyINR = "INR"
	CurrencyUSD = "USD"
)

// Round2 rounds half away from zero to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ConvertAmount converts between the two supported currencies using the
// configured INR to USD rate. The result is rounded to cents.
func ConvertAmount(amount float64, from, to string, inrToUsd float64) (float64, error) {
	from = strings.ToUpper(from)
	to = strings.ToUpper(to)
	if from == to {
		return Round2(amount), nil
	}
	if inrToUsd <= 0 {
		return 0, fmt.Errorf("invalid INR to USD rate %v", inrToUsd)
	}
	switch {
	case from == CurrencyINR && to == CurrencyUSD:
		return Round2(amount * inrToUsd), nil
	case from == CurrencyUSD && to == CurrencyINR:
		return Round2(amount / inrToUsd), nil
	}
	return 0, fmt.Errorf("unsupported currency conversion %s -> %s", from, to)
}

// MinorUnits converts a rounded amount into the gateway's smallest unit.
func MinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
