package handlers

import (
	"net/http"

	"tutorbook/models"
	"tutorbook/services/booking"
	"tutorbook/utils"

	"github.com/gin-gonic/gin"
)

type BookingHandler struct {
	Service booking.BookingService
}

func NewBookingHandler(svc booking.BookingService) *BookingHandler {
	return &BookingHandler{Service: svc}
}

func (h *BookingHandler) CreateBookingHandler(c *gin.Context) {
	var req models.CreateBookingRequest
	if !bindJSON(c, &req) {
		return
	}
	receipt, err := h.Service.Create(c.Request.Context(), principal(c), req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, receipt)
}

func (h *BookingHandler) GetBookingHandler(c *gin.Context) {
	b, err := h.Service.Get(c.Request.Context(), principal(c), c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// ListBookingsHandler lists the caller's bookings from the side of their role.
func (h *BookingHandler) ListBookingsHandler(c *gin.Context) {
	p := principal(c)
	status := parseStatuses(c.Query("status"))

	var (
		list []models.Booking
		err  error
	)
	if p.Role == models.RoleTutor {
		list, err = h.Service.ListForTutor(c.Request.Context(), p, status)
	} else {
		list, err = h.Service.ListForStudent(c.Request.Context(), p, status)
	}
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	if list == nil {
		list = []models.Booking{}
	}
	c.JSON(http.StatusOK, gin.H{"bookings": list})
}

func (h *BookingHandler) ConfirmBookingHandler(c *gin.Context) {
	b, err := h.Service.Confirm(c.Request.Context(), principal(c), c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *BookingHandler) CancelBookingHandler(c *gin.Context) {
	b, err := h.Service.Cancel(c.Request.Context(), principal(c), c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *BookingHandler) CompleteBookingHandler(c *gin.Context) {
	b, err := h.Service.Complete(c.Request.Context(), principal(c), c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (h *BookingHandler) SetMeetingLinkHandler(c *gin.Context) {
	var req models.SetMeetingLinkRequest
	if !bindJSON(c, &req) {
		return
	}
	b, err := h.Service.SetMeetingLink(c.Request.Context(), principal(c), c.Param("id"), req.MeetingLink)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}
