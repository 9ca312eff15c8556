package routes

import (
	"time"

	"tutorbook/config"
	"tutorbook/handlers"
	"tutorbook/middleware"
	"tutorbook/models"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterTutorRoutes registers tutor profile, availability and calendar endpoints.
func RegisterTutorRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/tutors")
	{
		// Public endpoints
		api.GET("/id/:id", hb.Tutors.GetTutorHandler)
		api.GET("/id/:id/calendar", hb.Availability.PublicCalendarHandler)
		api.GET("/calendar/callback", hb.CalendarConnect.CallbackHandler)

		me := api.Group("/me")
		me.Use(middleware.JWTAuthMiddleware(hb.AuthCache), middleware.RequireRole(models.RoleTutor))
		me.POST("", hb.Tutors.RegisterTutorHandler)
		me.GET("", hb.Tutors.MyProfileHandler)
		me.PUT("", hb.Tutors.UpdateTutorHandler)
		me.POST("/avatar", hb.Tutors.UploadAvatarHandler)

		me.GET("/availability", hb.Availability.GetTemplateHandler)
		me.PUT("/availability/schedule", hb.Availability.SetWeeklyScheduleHandler)
		me.PATCH("/availability/settings", hb.Availability.UpdateSettingsHandler)
		me.GET("/calendar", hb.Availability.OwnerCalendarHandler)
		me.GET("/blocked-dates", hb.Availability.ListBlockedDatesHandler)
		me.POST("/blocked-dates", hb.Availability.AddBlockedDateHandler)
		me.DELETE("/blocked-dates/:blockedId", hb.Availability.RemoveBlockedDateHandler)

		me.GET("/earnings", hb.Ledger.MyEarningsHandler)
		me.POST("/withdrawals", hb.Ledger.RequestWithdrawalHandler)
		me.GET("/withdrawals", hb.Ledger.MyWithdrawalsHandler)

		me.GET("/google-calendar", hb.CalendarConnect.StatusHandler)
		me.GET("/google-calendar/connect", hb.CalendarConnect.ConnectURLHandler)
		me.DELETE("/google-calendar", hb.CalendarConnect.DisconnectHandler)
	}
}

// RegisterBookingRoutes sets up the endpoints for the booking lifecycle.
func RegisterBookingRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	bookingGroup := r.Group("/api/bookings")
	{
		bookingGroup.Use(middleware.JWTAuthMiddleware(hb.AuthCache))
		bookingGroup.GET("", hb.Bookings.ListBookingsHandler)
		bookingGroup.POST("", middleware.RequireRole(models.RoleStudent), hb.Bookings.CreateBookingHandler)
		bookingGroup.GET("/:id", hb.Bookings.GetBookingHandler)
		bookingGroup.GET("/:id/fees", hb.Ledger.FeeBreakdownHandler)
		bookingGroup.POST("/:id/confirm", middleware.RequireRole(models.RoleTutor), hb.Bookings.ConfirmBookingHandler)
		bookingGroup.POST("/:id/cancel", hb.Bookings.CancelBookingHandler)
		bookingGroup.POST("/:id/complete", middleware.RequireRole(models.RoleTutor), hb.Bookings.CompleteBookingHandler)
		bookingGroup.PUT("/:id/meeting-link", middleware.RequireRole(models.RoleTutor), hb.Bookings.SetMeetingLinkHandler)
		bookingGroup.POST("/:id/payment", middleware.RequireRole(models.RoleStudent), hb.Payments.CreateOrderHandler)
	}
}

// RegisterPaymentRoutes registers the gateway webhook. It is authenticated by
// its signature, not a bearer token.
func RegisterPaymentRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.POST("/api/payments/webhook", hb.Payments.WebhookHandler)
}

// RegisterAccountRoutes covers endpoints any signed in user can call.
func RegisterAccountRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/account")
	{
		api.Use(middleware.JWTAuthMiddleware(hb.AuthCache))
		api.POST("/devices", hb.Devices.RegisterDeviceHandler)
		api.POST("/revoke", hb.Auth.RevokeTokenHandler)
	}
}

// RegisterAdminRoutes sets up endpoints for admin operations.
func RegisterAdminRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	adminGroup := r.Group("/api/admin")
	{
		adminGroup.Use(middleware.JWTAuthMiddleware(hb.AuthCache), middleware.RequireRole(models.RoleAdmin))
		adminGroup.GET("/settings", hb.Ledger.GetSettingsHandler)
		adminGroup.PATCH("/settings", hb.Ledger.UpdateSettingsHandler)
		adminGroup.GET("/revenue", hb.Ledger.RevenueStatsHandler)
		adminGroup.GET("/withdrawals", hb.Ledger.ListWithdrawalsHandler)
		adminGroup.PUT("/withdrawals/:id", hb.Ledger.ProcessWithdrawalHandler)
	}
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/health", handlers.HealthHandler)
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	origins := config.AppConfig.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(middleware.RateLimitMiddleware())

	RegisterTutorRoutes(r, hb)
	RegisterBookingRoutes(r, hb)
	RegisterPaymentRoutes(r, hb)
	RegisterAccountRoutes(r, hb)
	RegisterAdminRoutes(r, hb)
	RegisterHealthRoute(r)
}
