package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Policy defines the admission rule for one bucket.
type Policy struct {
	// Limit is the maximum number of requests admitted per window.
	Limit int
	// Window is the trailing interval requests are counted over.
	Window time.Duration
	// BucketCap bounds stored hit timestamps per key. It protects memory
	// under abuse and never increases the admitted count. Zero means
	// max(Limit*5, 100).
	BucketCap int
}

// EffectiveCap returns the bucket capacity after defaulting.
func (p Policy) EffectiveCap() int {
	if p.BucketCap > 0 {
		return p.BucketCap
	}
	c := p.Limit * 5
	if c < 100 {
		c = 100
	}
	return c
}

// validate panics on a malformed policy. A non-positive limit or window is
// a programming error in the caller, not a per-request condition.
func (p Policy) validate() {
	if p.Limit <= 0 {
		panic(fmt.Sprintf("ratelimit: limit must be positive, got %d", p.Limit))
	}
	if p.Window <= 0 {
		panic(fmt.Sprintf("ratelimit: window must be positive, got %s", p.Window))
	}
}

// Decision is the immutable outcome of one Consume call.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	// Reset is the number of whole seconds until the oldest stored hit
	// falls out of the window, floored at zero.
	Reset int
}

// Store is the pluggable counter behind the limiter. Implementations must
// make the read-prune-append-decide sequence atomic per key.
type Store interface {
	Consume(ctx context.Context, key string, p Policy) (Decision, error)
}

// resetSeconds converts the remaining window of the oldest hit to whole
// seconds, rounding up.
func resetSeconds(oldestMs, windowMs, nowMs int64) int {
	ms := oldestMs + windowMs - nowMs
	if ms <= 0 {
		return 0
	}
	return int((ms + 999) / 1000)
}
