package middleware

import (
	"fmt"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"github.com/clauseguard/clauseguard_server/config"
	"github.com/clauseguard/clauseguard_server/internal/pkg/response"
)

// RateLimit 基于 Redis 的固定窗口限流，按用户（未登录按 IP）计数。
// Redis 故障时放行，限流不应成为单点。
func RateLimit(rdb *redis.Client, cfg config.RateLimitConfig) gin.HandlerFunc {
	requests := cfg.Requests
	if requests <= 0 {
		requests = 60
	}
	window := time.Duration(cfg.WindowSeconds) * time.Second
	if window <= 0 {
		window = time.Minute
	}

	return func(c *gin.Context) {
		var key string
		if userID, ok := GetUserID(c); ok {
			key = fmt.Sprintf("ratelimit:user:%d", userID)
		} else {
			key = "ratelimit:ip:" + c.ClientIP()
		}

		ctx := c.Request.Context()
		count, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			log.Printf("rate limit: redis incr failed: %v", err)
			c.Next()
			return
		}
		if count == 1 {
			if err := rdb.Expire(ctx, key, window).Err(); err != nil {
				log.Printf("rate limit: redis expire failed: %v", err)
			}
		}

		if count > int64(requests) {
			response.RateLimitError(c, "")
			c.Abort()
			return
		}

		c.Next()
	}
}
