package queue

import "time"

// Backoff returns the delay before the next attempt: base doubled per
// completed attempt, capped. attempt is the number of attempts already made,
// so the first retry after attempt 1 waits base*2.
func Backoff(base, ceil time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	d := base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= ceil || d <= 0 {
			return ceil
		}
	}
	if d > ceil {
		return ceil
	}
	return d
}
