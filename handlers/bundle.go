package handlers

import (
	"github.com/go-redis/redis/v8"
)

// HandlerBundle groups all endpoint handlers into one struct.
type HandlerBundle struct {
	// AuthCache backs token revocation; nil disables the check.
	AuthCache *redis.Client

	Bookings        *BookingHandler
	Availability    *AvailabilityHandler
	Ledger          *LedgerHandler
	Tutors          *TutorHandler
	CalendarConnect *CalendarConnectHandler
	Payments        *PaymentHandler
	Devices         *DeviceHandler
	Auth            *AuthHandler
}
