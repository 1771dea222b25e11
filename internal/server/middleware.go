package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// PaymentRateLimit throttles payment initiation per client IP. Callback
// endpoints stay unthrottled: providers retry notifications and a
// dropped retry would delay settlement.
func (s *Server) PaymentRateLimit(rate float64, burst int) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := s.limiter.Allow("pay:"+c.ClientIP(), rate, burst)
		if err != nil {
			c.Next()
			return
		}
		if !res.Allowed {
			retryAfter := int(res.RetryAfter.Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errorResponse{Error: errorPayload{
				Type:    "rate_limited",
				Message: "too many payment attempts, try again shortly",
			}})
			return
		}
		c.Next()
	}
}
