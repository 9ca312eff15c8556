package utils

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ErrorKind string

const (
	KindValidation        ErrorKind = "validation"
	KindScheduleConflict  ErrorKind = "schedule_conflict"
	KindSlotTaken         ErrorKind = "slot_taken"
	KindSlotFull          ErrorKind = "slot_full"
	KindInvalidTransition ErrorKind = "invalid_transition"
	KindAlreadyConfirmed  ErrorKind = "already_confirmed"
	KindAlreadyCancelled  ErrorKind = "already_cancelled"
	KindNotFound          ErrorKind = "not_found"
	KindUnauthorized      ErrorKind = "unauthorized"
	KindUnauthenticated   ErrorKind = "unauthenticated"
	KindInternal          ErrorKind = "internal"
)

// AppError is the error type every service returns for caller mistakes and
// business rule rejections. Anything else is treated as internal.
type AppError struct {
	Kind    ErrorKind
	Code    string
	Message string
	Fields  map[string]string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

// Status maps the error kind onto an HTTP status code.
func (e *AppError) Status() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindScheduleConflict, KindSlotTaken, KindSlotFull,
		KindInvalidTransition, KindAlreadyConfirmed, KindAlreadyCancelled:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthorized:
		return http.StatusForbidden
	case KindUnauthenticated:
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

func NewAppError(kind ErrorKind, code, message string) *AppError {
	return &AppError{Kind: kind, Code: code, Message: message}
}

func ValidationError(message string) *AppError {
	return NewAppError(KindValidation, "validation_error", message)
}

func NotFoundError(message string) *AppError {
	return NewAppError(KindNotFound, "not_found", message)
}

// IsKind reports whether err wraps an *AppError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Kind == kind
}

// ErrorResponse defines the structure of error responses
type ErrorResponse struct {
	Message string            `json:"message"`
	Code    string            `json:"code,omitempty"`
	Details string            `json:"details,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// ErrorHandler catches panics and returns a structured 500.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				GetLogger().Error("Unhandled panic", zap.Any("error", err), zap.String("path", c.FullPath()))

				c.JSON(http.StatusInternalServerError, ErrorResponse{
					Message: "Internal Server Error",
					Details: "An unexpected error occurred. Please try again later.",
				})
				c.Abort()
			}
		}()
		c.Next()
	}
}

// JSONError sends a standardized JSON error response
func JSONError(c *gin.Context, status int, message string, details string) {
	GetLogger().Warn(message, zap.String("details", details))
	c.AbortWithStatusJSON(status, ErrorResponse{Message: message, Details: details})
}

// RespondError writes err using its AppError kind; unknown errors become a 500
// without leaking their text.
func RespondError(c *gin.Context, err error) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		if appErr.Err != nil {
			GetLogger().Debug("request rejected", zap.String("code", appErr.Code), zap.Error(appErr.Err))
		}
		c.AbortWithStatusJSON(appErr.Status(), ErrorResponse{
			Message: appErr.Message,
			Code:    appErr.Code,
			Fields:  appErr.Fields,
		})
		return
	}
	GetLogger().Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
		Message: "Internal Server Error",
		Code:    string(KindInternal),
	})
}
