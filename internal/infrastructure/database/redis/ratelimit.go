package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/turtacn/MolGraph-Codec/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MolGraph-Codec/pkg/errors"
)

// WindowLimiter counts requests per key in fixed windows shared by every
// API replica.
type WindowLimiter struct {
	client *Client
	prefix string
	limit  int
	window time.Duration
	now    func() time.Time
	logger logging.Logger
}

func NewWindowLimiter(client *Client, prefix string, limit int, window time.Duration, log logging.Logger) *WindowLimiter {
	if log == nil {
		log = logging.NewNopLogger()
	}
	if window <= 0 {
		window = time.Minute
	}
	return &WindowLimiter{client: client, prefix: prefix, limit: limit, window: window, now: time.Now, logger: log}
}

// Limit returns the number of requests allowed per window.
func (l *WindowLimiter) Limit() int { return l.limit }

// Allow counts one request for key.  remaining never goes below zero.
func (l *WindowLimiter) Allow(ctx context.Context, key string) (allowed bool, remaining int, resetAt time.Time, err error) {
	now := l.now()
	slot := now.UnixNano() / int64(l.window)
	resetAt = time.Unix(0, (slot+1)*int64(l.window))
	redisKey := l.prefix + "ratelimit:" + key + ":" + strconv.FormatInt(slot, 10)

	if l.client.isClosed() {
		return false, 0, resetAt, ErrClientClosed
	}
	n, err := l.client.rdb.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, 0, resetAt, errors.Wrap(err, errors.ErrCodeCacheError, "rate limit counter failed")
	}
	if n == 1 {
		if err := l.client.rdb.PExpire(ctx, redisKey, l.window).Err(); err != nil {
			l.logger.Warn("failed to set rate limit expiry", logging.String("key", redisKey), logging.Err(err))
		}
	}

	remaining = l.limit - int(n)
	if remaining < 0 {
		remaining = 0
	}
	return int(n) <= l.limit, remaining, resetAt, nil
}

//Personal.AI order the ending
