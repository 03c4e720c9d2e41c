package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

type actionIdentity struct {
	UserID int64 `json:"userId"`
}

// ActionRateLimit limits economy actions per account (not per IP). The account
// comes from the JSON body; the body stays cached for the handler.
// Without Redis the count is kept in process.
func ActionRateLimit(maxActions int, window time.Duration) gin.HandlerFunc {
	local := newWindowCounter()
	return func(c *gin.Context) {
		var id actionIdentity
		if err := c.ShouldBindBodyWith(&id, binding.JSON); err != nil || id.UserID <= 0 {
			// handler answers with the validation error
			c.Next()
			return
		}
		endpoint := "action:" + c.FullPath()
		user := strconv.FormatInt(id.UserID, 10)

		var val int64
		if redisClient == nil {
			val = int64(local.hit(user, window))
		} else {
			key := "action_rl:" + user + ":" + strconv.FormatInt(int64(window.Seconds()), 10)
			ctx := context.Background()

			n, err := redisClient.Incr(ctx, key).Result()
			if err != nil {
				// On Redis error, fail-open but log
				c.Header("X-ActionRateLimit-Error", "redis-error")
				c.Next()
				return
			}
			if n == 1 {
				redisClient.Expire(ctx, key, window)
			}
			val = n
		}

		c.Header("X-ActionRateLimit-Limit", strconv.Itoa(maxActions))
		c.Header("X-ActionRateLimit-Remaining", strconv.FormatInt(max(0, int64(maxActions)-val), 10))

		if val > int64(maxActions) {
			RLBlocked.WithLabelValues(endpoint).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate_limited",
				"message":     "Too many actions, slow down.",
				"retry_after": int(window.Seconds()),
			})
			return
		}

		RLRequests.WithLabelValues(endpoint).Inc()
		c.Next()
	}
}
