package handlers

import (
	"net/http"

	userRepo "tutorbook/database/repository/user"
	"tutorbook/models"
	"tutorbook/utils"

	"github.com/gin-gonic/gin"
)

type DeviceHandler struct {
	Devices userRepo.DeviceRepository
}

func NewDeviceHandler(devices userRepo.DeviceRepository) *DeviceHandler {
	return &DeviceHandler{Devices: devices}
}

// RegisterDeviceHandler stores the caller's push token for booking events.
func (h *DeviceHandler) RegisterDeviceHandler(c *gin.Context) {
	var req models.RegisterDeviceRequest
	if !bindJSON(c, &req) {
		return
	}
	p := principal(c)
	err := h.Devices.Upsert(c.Request.Context(), models.Device{
		UserID:   p.UserID,
		FCMToken: req.FCMToken,
		Platform: req.Platform,
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
