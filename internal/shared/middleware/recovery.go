package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"waterstore-backend/internal/shared/response"
	"waterstore-backend/pkg/logger"
)

// Recovery converts panics into a clean 500 envelope so one bad request
// never takes the process down.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered", fmt.Errorf("request_id=%s: %v", c.GetString("request_id"), r))
				response.InternalServerError(c, "internal server error")
				c.Abort()
			}
		}()

		c.Next()
	}
}
