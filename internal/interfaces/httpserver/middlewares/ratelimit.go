package middlewares

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"skillstream/services/chat-api/internal/infrastructure/metrics"
	"skillstream/services/chat-api/internal/infrastructure/ratelimit"
	"skillstream/services/chat-api/internal/utils/platformerrors"
)

// SendRateLimit throttles message sends per authenticated user. A
// limiter backend failure lets the request through: losing a throttle
// beats failing real traffic.
func SendRateLimit(limiter ratelimit.Limiter, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := GetUserID(c)
		if userID == "" {
			c.Next()
			return
		}

		decision, err := limiter.Allow(c.Request.Context(), ratelimit.SendMessageKey(userID))
		if err != nil {
			log.Warn().Err(err).Str("user_id", userID).Msg("rate limiter unavailable, allowing request")
			c.Next()
			return
		}

		if !decision.Allowed {
			metrics.RateLimitRejections.Inc()
			retryAfter := int(decision.RetryAfter.Round(time.Second).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			platformerrors.WriteRateLimited(c, "message rate limit exceeded", retryAfter)
			c.Abort()
			return
		}

		c.Next()
	}
}
