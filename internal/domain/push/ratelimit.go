package push

import (
	"context"
	"time"
)

// RateLimiter bounds push requests per user. Implementations must count
// atomically so concurrent requests cannot both pass on the last slot.
type RateLimiter interface {
	// Allow consumes one slot in the user's current window and reports
	// whether the request may proceed.
	Allow(ctx context.Context, userID int, now time.Time) (bool, error)
}
