package middleware

import (
	"strings"

	"tutorbook/models"
	"tutorbook/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	principalKey = "principal"
	tokenHashKey = "tokenHash"
)

func unauthenticated(c *gin.Context, message string) {
	utils.RespondError(c, utils.NewAppError(utils.KindUnauthenticated, "unauthenticated", message))
}

// JWTAuthMiddleware resolves the bearer token into a principal. When an auth
// cache is given, revoked tokens are rejected too.
func JWTAuthMiddleware(authCache *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			unauthenticated(c, "Missing or invalid Authorization header")
			return
		}
		tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))

		principal, err := utils.ParsePrincipal(tokenString)
		if err != nil {
			unauthenticated(c, "Invalid token")
			return
		}

		hash := utils.HashToken(tokenString)
		if authCache != nil {
			revoked, err := utils.IsTokenRevoked(c.Request.Context(), authCache, hash)
			if err != nil {
				// Redis being down should not lock everyone out.
				utils.GetLogger().Warn("revocation check failed", zap.Error(err))
			} else if revoked {
				unauthenticated(c, "Token has been revoked")
				return
			}
		}

		c.Set(principalKey, principal)
		c.Set(tokenHashKey, hash)
		c.Next()
	}
}

// Principal returns the caller set by JWTAuthMiddleware, or nil.
func Principal(c *gin.Context) *models.Principal {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil
	}
	p, _ := v.(*models.Principal)
	return p
}

// TokenHash returns the hash of the bearer token of the request.
func TokenHash(c *gin.Context) string {
	return c.GetString(tokenHashKey)
}
