package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const rateLimitKeyPrefix = "ratelimit:"

// RateLimiter is a fixed-window per-IP counter kept in Redis.
type RateLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
	logger *logrus.Logger
}

func NewRateLimiter(client *redis.Client, limit int64, window time.Duration, logger *logrus.Logger) *RateLimiter {
	return &RateLimiter{
		client: client,
		limit:  limit,
		window: window,
		logger: logger,
	}
}

// RateLimitMiddleware lets requests through when Redis cannot be reached.
func (rl *RateLimiter) RateLimitMiddleware(c *gin.Context) {
	ctx := c.Request.Context()
	key := rateLimitKeyPrefix + c.ClientIP()

	count, err := rl.client.Incr(ctx, key).Result()
	if err == nil && count == 1 {
		err = rl.client.Expire(ctx, key, rl.window).Err()
	}
	if err != nil {
		rl.logger.WithFields(logrus.Fields{
			"field": "RateLimiter",
			"key":   key,
		}).Warn("rate limiter unavailable; allowing request: " + err.Error())
		c.Next()
		return
	}

	if count > rl.limit {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error": fmt.Sprintf("Rate limit exceeded. Try again in %d seconds", int(rl.window.Seconds())),
		})
		return
	}
	c.Next()
}
