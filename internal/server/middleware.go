package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"peopleops/internal/logging"
)

// requestLogger logs each request to the server category with a short
// correlation id.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqID := uuid.NewString()[:8]
		c.Set("request_id", reqID)

		c.Next()

		rl := logging.WithRequestID(logging.CategoryServer, reqID)
		rl.Info("%s %s -> %d (%v)", c.Request.Method, c.Request.URL.Path,
			c.Writer.Status(), time.Since(start))
	}
}

// envelope wraps API responses: {"data": ...} on success,
// {"error": "..."} on failure.
func respondData(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{"data": data})
}

func respondError(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}
