// internal/pkg/ratelimit/ratelimit.go
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	maxResetRequests = 5
	resetWindow      = 1 * time.Hour
)

// Limiter throttles abuse-prone operations with a fixed redis INCR/EXPIRE
// window per key.
type Limiter struct {
	client *redis.Client
}

func NewLimiter(client *redis.Client) *Limiter {
	return &Limiter{client: client}
}

// AllowPasswordReset reports whether another reset token may be issued for
// the customer within the current window.
func (l *Limiter) AllowPasswordReset(ctx context.Context, customerID string) (bool, error) {
	key := fmt.Sprintf("ratelimit:password_reset:%s", customerID)

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("rate limiter error: %w", err)
	}

	if count == 1 {
		l.client.Expire(ctx, key, resetWindow)
	}

	return count <= maxResetRequests, nil
}

// ResetPasswordAttempts clears the window, e.g. after a successful password
// change.
func (l *Limiter) ResetPasswordAttempts(ctx context.Context, customerID string) error {
	key := fmt.Sprintf("ratelimit:password_reset:%s", customerID)
	return l.client.Del(ctx, key).Err()
}
