package middleware

import (
	"tutorbook/models"
	"tutorbook/utils"

	"github.com/gin-gonic/gin"
)

// RequireRole admits only principals holding one of the roles. Admins are
// always admitted.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := Principal(c)
		if p == nil {
			utils.RespondError(c, utils.NewAppError(utils.KindUnauthenticated, "unauthenticated", "authentication required"))
			return
		}
		if p.IsAdmin() {
			c.Next()
			return
		}
		for _, r := range roles {
			if p.Role == r {
				c.Next()
				return
			}
		}
		utils.RespondError(c, utils.NewAppError(utils.KindUnauthorized, "forbidden", "your role cannot access this resource"))
	}
}
