package middleware

import (
	"github.com/abcgaming/loyalty-engine/internal/services"
	"github.com/abcgaming/loyalty-engine/pkg/utils"
	"github.com/gin-gonic/gin"
)

// UploadRateLimit throttles dataset uploads per client IP.
func UploadRateLimit(limiter *services.UploadRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			utils.SendRateLimited(c, "Too many uploads, slow down and retry shortly")
			c.Abort()
			return
		}
		c.Next()
	}
}
