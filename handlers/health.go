package handlers

import (
	"net/http"

	"tutorbook/utils"

	"github.com/gin-gonic/gin"
)

func HealthHandler(c *gin.Context) {
	status := utils.GetHealthStatus()
	code := http.StatusOK
	if status.Mongo != nil && !*status.Mongo {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{"status": "ok", "message": "Hi, I'm TutorBook", "dependencies": status})
}
