package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/MolGraph-Codec/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MolGraph-Codec/pkg/errors"
	"github.com/turtacn/MolGraph-Codec/pkg/types/common"
)

// RateLimiter decides whether one more request for key fits the budget.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (allowed bool, remaining int, resetAt time.Time, err error)
	Limit() int
}

// RateLimit enforces limiter per client IP.  When the limiter itself fails
// the request is let through.
func RateLimit(limiter RateLimiter, logger logging.Logger, skipPaths ...string) gin.HandlerFunc {
	skip := make(map[string]bool, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = true
	}

	return func(c *gin.Context) {
		if skip[c.Request.URL.Path] {
			c.Next()
			return
		}

		allowed, remaining, resetAt, err := limiter.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			logging.FromContext(c.Request.Context(), logger).Warn("rate limiter unavailable", logging.Err(err))
			c.Next()
			return
		}

		h := c.Writer.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(limiter.Limit()))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		h.Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

		if !allowed {
			retryAfter := int(time.Until(resetAt).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			h.Set("Retry-After", strconv.Itoa(retryAfter))
			resp := common.NewErrorResponse(string(errors.ErrCodeServiceUnavailable), "rate limit exceeded, please retry later")
			resp.RequestID = logging.RequestIDFromContext(c.Request.Context())
			c.AbortWithStatusJSON(http.StatusTooManyRequests, resp)
			return
		}
		c.Next()
	}
}

//Personal.AI order the ending
