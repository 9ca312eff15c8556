package handlers

import (
	"net/http"

	"tutorbook/models"
	"tutorbook/services/availability"
	"tutorbook/services/tutor"
	"tutorbook/utils"

	"github.com/gin-gonic/gin"
)

// AvailabilityHandler serves the tutor's own template, blocked dates and
// both calendar views.
type AvailabilityHandler struct {
	Service availability.AvailabilityService
	Tutors  tutor.TutorService
}

func NewAvailabilityHandler(svc availability.AvailabilityService, tutors tutor.TutorService) *AvailabilityHandler {
	return &AvailabilityHandler{Service: svc, Tutors: tutors}
}

// myTutorID resolves the caller's tutor profile, writing the error itself.
func (h *AvailabilityHandler) myTutorID(c *gin.Context) (string, bool) {
	t, err := h.Tutors.Mine(c.Request.Context(), principal(c))
	if err != nil {
		utils.RespondError(c, err)
		return "", false
	}
	return t.ID, true
}

func (h *AvailabilityHandler) GetTemplateHandler(c *gin.Context) {
	tutorID, ok := h.myTutorID(c)
	if !ok {
		return
	}
	tpl, err := h.Service.GetTemplate(c.Request.Context(), tutorID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tpl)
}

func (h *AvailabilityHandler) SetWeeklyScheduleHandler(c *gin.Context) {
	tutorID, ok := h.myTutorID(c)
	if !ok {
		return
	}
	var req models.WeeklyScheduleRequest
	if !bindJSON(c, &req) {
		return
	}
	tpl, err := h.Service.SetWeeklySchedule(c.Request.Context(), tutorID, models.SessionKind(req.SessionType), req.Schedule)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tpl)
}

func (h *AvailabilityHandler) UpdateSettingsHandler(c *gin.Context) {
	tutorID, ok := h.myTutorID(c)
	if !ok {
		return
	}
	var req models.AvailabilitySettingsUpdate
	if !bindJSON(c, &req) {
		return
	}
	tpl, err := h.Service.UpdateSettings(c.Request.Context(), tutorID, req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tpl)
}

func (h *AvailabilityHandler) OwnerCalendarHandler(c *gin.Context) {
	tutorID, ok := h.myTutorID(c)
	if !ok {
		return
	}
	h.respondMonth(c, tutorID, models.ViewOwner)
}

// PublicCalendarHandler needs no authentication.
func (h *AvailabilityHandler) PublicCalendarHandler(c *gin.Context) {
	h.respondMonth(c, c.Param("id"), models.ViewPublic)
}

func (h *AvailabilityHandler) respondMonth(c *gin.Context, tutorID string, view models.CalendarView) {
	year, month, kind, err := monthQuery(c)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	cal, err := h.Service.ResolveMonth(c.Request.Context(), tutorID, year, month, kind, view)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cal)
}

func (h *AvailabilityHandler) AddBlockedDateHandler(c *gin.Context) {
	tutorID, ok := h.myTutorID(c)
	if !ok {
		return
	}
	var req models.BlockDateRequest
	if !bindJSON(c, &req) {
		return
	}
	blocked, err := h.Service.AddBlockedDate(c.Request.Context(), tutorID, req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, blocked)
}

func (h *AvailabilityHandler) RemoveBlockedDateHandler(c *gin.Context) {
	tutorID, ok := h.myTutorID(c)
	if !ok {
		return
	}
	if err := h.Service.RemoveBlockedDate(c.Request.Context(), tutorID, c.Param("blockedId")); err != nil {
		utils.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AvailabilityHandler) ListBlockedDatesHandler(c *gin.Context) {
	tutorID, ok := h.myTutorID(c)
	if !ok {
		return
	}
	list, err := h.Service.ListBlockedDates(c.Request.Context(), tutorID, c.Query("from"), c.Query("to"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	if list == nil {
		list = []models.BlockedDate{}
	}
	c.JSON(http.StatusOK, gin.H{"blockedDates": list})
}
