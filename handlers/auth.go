package handlers

import (
	"net/http"

	"tutorbook/middleware"
	"tutorbook/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

type AuthHandler struct {
	AuthCache *redis.Client
}

func NewAuthHandler(authCache *redis.Client) *AuthHandler {
	return &AuthHandler{AuthCache: authCache}
}

// RevokeTokenHandler signs the current token out until it would have expired.
func (h *AuthHandler) RevokeTokenHandler(c *gin.Context) {
	if h.AuthCache == nil {
		utils.RespondError(c, utils.ValidationError("token revocation is not available"))
		return
	}
	if err := utils.RevokeToken(c.Request.Context(), h.AuthCache, middleware.TokenHash(c), utils.AccessTokenTTL); err != nil {
		getLogger(c).Error("failed to revoke token", zap.Error(err))
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "token revoked"})
}
