package handlers

import (
	"net/http"

	"tutorbook/services/meeting"
	"tutorbook/services/tutor"
	"tutorbook/utils"

	"github.com/gin-gonic/gin"
)

// CalendarConnectHandler links a tutor's Google calendar.
type CalendarConnectHandler struct {
	Connector *meeting.Connector
	Tutors    tutor.TutorService
}

func NewCalendarConnectHandler(connector *meeting.Connector, tutors tutor.TutorService) *CalendarConnectHandler {
	return &CalendarConnectHandler{Connector: connector, Tutors: tutors}
}

func (h *CalendarConnectHandler) ConnectURLHandler(c *gin.Context) {
	t, err := h.Tutors.Mine(c.Request.Context(), principal(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	url, err := h.Connector.ConnectURL(t.ID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// CallbackHandler is hit by Google's redirect, so it is unauthenticated; the
// signed state carries the tutor.
func (h *CalendarConnectHandler) CallbackHandler(c *gin.Context) {
	if e := c.Query("error"); e != "" {
		utils.RespondError(c, utils.ValidationError("calendar access was not granted: "+e))
		return
	}
	tutorID, err := h.Connector.CompleteConnect(c.Request.Context(), c.Query("state"), c.Query("code"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "calendar connected", "tutorId": tutorID})
}

func (h *CalendarConnectHandler) StatusHandler(c *gin.Context) {
	t, err := h.Tutors.Mine(c.Request.Context(), principal(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	cred, err := h.Connector.Status(c.Request.Context(), t.ID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cred)
}

func (h *CalendarConnectHandler) DisconnectHandler(c *gin.Context) {
	t, err := h.Tutors.Mine(c.Request.Context(), principal(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	if err := h.Connector.Disconnect(c.Request.Context(), t.ID); err != nil {
		utils.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
