package handlers

import (
	"net/http"
	"strings"

	"tutorbook/models"
	"tutorbook/services/booking"
	"tutorbook/services/ledger"
	"tutorbook/services/tutor"
	"tutorbook/utils"

	"github.com/gin-gonic/gin"
)

// LedgerHandler covers platform settings, revenue and tutor earnings.
type LedgerHandler struct {
	Service  ledger.LedgerService
	Bookings booking.BookingService
	Tutors   tutor.TutorService
}

func NewLedgerHandler(svc ledger.LedgerService, bookings booking.BookingService, tutors tutor.TutorService) *LedgerHandler {
	return &LedgerHandler{Service: svc, Bookings: bookings, Tutors: tutors}
}

func (h *LedgerHandler) GetSettingsHandler(c *gin.Context) {
	settings, err := h.Service.CurrentSettings(c.Request.Context())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (h *LedgerHandler) UpdateSettingsHandler(c *gin.Context) {
	var req models.UpdateSettingsRequest
	if !bindJSON(c, &req) {
		return
	}
	settings, err := h.Service.UpdateSettings(c.Request.Context(), req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (h *LedgerHandler) RevenueStatsHandler(c *gin.Context) {
	stats, err := h.Service.RevenueStats(c.Request.Context())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// FeeBreakdownHandler shows the ledger entry to either party of the booking.
func (h *LedgerHandler) FeeBreakdownHandler(c *gin.Context) {
	b, err := h.Bookings.Get(c.Request.Context(), principal(c), c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	entry, err := h.Service.Breakdown(c.Request.Context(), b.ID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (h *LedgerHandler) MyEarningsHandler(c *gin.Context) {
	t, err := h.Tutors.Mine(c.Request.Context(), principal(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	earnings, err := h.Service.TutorEarnings(c.Request.Context(), t.ID, t.Currency)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, earnings)
}

func (h *LedgerHandler) RequestWithdrawalHandler(c *gin.Context) {
	t, err := h.Tutors.Mine(c.Request.Context(), principal(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	var req models.WithdrawalRequest
	if !bindJSON(c, &req) {
		return
	}
	w, err := h.Service.RequestWithdrawal(c.Request.Context(), t.ID, req.Amount, t.Currency)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, w)
}

func (h *LedgerHandler) MyWithdrawalsHandler(c *gin.Context) {
	t, err := h.Tutors.Mine(c.Request.Context(), principal(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	list, err := h.Service.ListWithdrawals(c.Request.Context(), t.ID, withdrawalStatuses(c.Query("status"))...)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"withdrawals": list})
}

// ListWithdrawalsHandler is the admin view across all tutors.
func (h *LedgerHandler) ListWithdrawalsHandler(c *gin.Context) {
	list, err := h.Service.ListWithdrawals(c.Request.Context(), c.Query("tutorId"), withdrawalStatuses(c.Query("status"))...)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"withdrawals": list})
}

func (h *LedgerHandler) ProcessWithdrawalHandler(c *gin.Context) {
	var req models.ProcessWithdrawalRequest
	if !bindJSON(c, &req) {
		return
	}
	w, err := h.Service.ProcessWithdrawal(c.Request.Context(), principal(c).UserID, c.Param("id"), req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

func withdrawalStatuses(raw string) []models.WithdrawalStatus {
	var out []models.WithdrawalStatus
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, models.WithdrawalStatus(s))
		}
	}
	return out
}
