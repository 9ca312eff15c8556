package handlers

import (
	"errors"
	"strconv"
	"strings"

	"tutorbook/middleware"
	"tutorbook/models"
	"tutorbook/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// bindJSON binds the body and writes a validation error on failure.
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		getLogger(c).Debug("invalid request body", zap.String("path", c.FullPath()), zap.Error(err))
		utils.RespondError(c, &utils.AppError{
			Kind:    utils.KindValidation,
			Code:    "validation_error",
			Message: "Invalid request body",
			Fields:  fieldErrors(err),
			Err:     err,
		})
		return false
	}
	return true
}

// fieldErrors maps each failing field to the rule it broke.
func fieldErrors(err error) map[string]string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return nil
	}
	out := make(map[string]string, len(ve))
	for _, fe := range ve {
		out[fe.Field()] = fe.Tag()
	}
	return out
}

func principal(c *gin.Context) *models.Principal {
	return middleware.Principal(c)
}

func parseStatuses(raw string) []models.BookingStatus {
	if raw == "" {
		return nil
	}
	var out []models.BookingStatus
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, models.BookingStatus(s))
		}
	}
	return out
}

// monthQuery reads year, month and sessionType from the query string.
func monthQuery(c *gin.Context) (int, int, models.SessionKind, error) {
	year, err := strconv.Atoi(c.Query("year"))
	if err != nil {
		return 0, 0, "", utils.ValidationError("year must be a number")
	}
	month, err := strconv.Atoi(c.Query("month"))
	if err != nil {
		return 0, 0, "", utils.ValidationError("month must be a number")
	}
	kind, ok := models.ParseSessionKind(c.DefaultQuery("sessionType", string(models.SessionPrivate)))
	if !ok {
		return 0, 0, "", utils.ValidationError("sessionType must be private or group")
	}
	return year, month, kind, nil
}
