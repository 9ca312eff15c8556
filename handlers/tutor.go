package handlers

import (
	"net/http"

	"tutorbook/models"
	"tutorbook/services/tutor"
	"tutorbook/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const maxAvatarBytes = 5 << 20

type TutorHandler struct {
	Service tutor.TutorService
}

func NewTutorHandler(svc tutor.TutorService) *TutorHandler {
	return &TutorHandler{Service: svc}
}

func (h *TutorHandler) RegisterTutorHandler(c *gin.Context) {
	var req models.UpsertTutorRequest
	if !bindJSON(c, &req) {
		return
	}
	t, err := h.Service.Register(c.Request.Context(), principal(c), req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

func (h *TutorHandler) UpdateTutorHandler(c *gin.Context) {
	var req models.UpsertTutorRequest
	if !bindJSON(c, &req) {
		return
	}
	t, err := h.Service.Update(c.Request.Context(), principal(c), req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *TutorHandler) MyProfileHandler(c *gin.Context) {
	t, err := h.Service.Mine(c.Request.Context(), principal(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *TutorHandler) GetTutorHandler(c *gin.Context) {
	t, err := h.Service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// UploadAvatarHandler expects a multipart form with a "file" field.
func (h *TutorHandler) UploadAvatarHandler(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		utils.RespondError(c, utils.ValidationError("file not provided"))
		return
	}
	if fileHeader.Size > maxAvatarBytes {
		utils.RespondError(c, utils.ValidationError("avatar must be at most 5MB"))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		getLogger(c).Warn("failed to open upload", zap.Error(err))
		utils.RespondError(c, utils.ValidationError("could not read uploaded file"))
		return
	}
	defer file.Close()

	t, err := h.Service.UploadAvatar(c.Request.Context(), principal(c), file)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"avatarUrl": t.AvatarURL})
}
