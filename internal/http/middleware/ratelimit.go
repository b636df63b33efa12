package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/cifan-festival/submission-service/internal/ratelimit"
	"github.com/cifan-festival/submission-service/internal/utils/response"
	"github.com/go-redis/redis/v8"
)

type RateLimitConfig struct {
	redisClient *redis.Client
	limiters    map[string]*ratelimit.TokenBucket
	limits      map[string]int64
}

func NewRateLimitConfig(redisClient *redis.Client) *RateLimitConfig {
	config := &RateLimitConfig{
		redisClient: redisClient,
		limiters:    make(map[string]*ratelimit.TokenBucket),
		limits:      make(map[string]int64),
	}

	// Submissions upload hundreds of megabytes; a handful per minute is
	// plenty and bounds double-submit bursts.
	config.add("submit", 5, 5)
	config.add("upload-photo", 10, 10)

	return config
}

func (rlc *RateLimitConfig) add(action string, capacity, refill int64) {
	rlc.limiters[action] = ratelimit.NewTokenBucket(rlc.redisClient, capacity, refill)
	rlc.limits[action] = capacity
}

func (rlc *RateLimitConfig) RateLimitMiddleware(action string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Assumes auth middleware ran first
			userID, ok := GetUserIDFromContext(r.Context())
			if !ok {
				response.WriteJSON(w, http.StatusUnauthorized, response.GeneralError(
					errors.New("user not authenticated")))
				return
			}

			limiter, exists := rlc.limiters[action]
			if !exists {
				next.ServeHTTP(w, r)
				return
			}

			allowed, err := limiter.Allow(r.Context(), userID, action)
			if err != nil {
				response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(
					fmt.Errorf("rate limit check failed: %w", err)))
				return
			}

			remaining, _ := limiter.GetRemaining(r.Context(), userID, action)
			w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(rlc.limits[action], 10))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
			w.Header().Set("X-RateLimit-Reset", "60")

			if !allowed {
				response.WriteJSON(w, http.StatusTooManyRequests, response.GeneralError(
					errors.New("rate limit exceeded")))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
