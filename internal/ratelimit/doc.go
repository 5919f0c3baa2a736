// Package ratelimit provides sliding-window admission control for the gateway.
//
// The window is recomputed on every call: events inside the trailing
// interval ending at now are counted, rather than reset on fixed
// boundaries. Two store variants implement the same contract:
//   - MemoryStore: process-local, per-key mutex, the default
//   - RedisStore: shared counter for multi-instance deployments
//
// Decision Semantics:
//   - The current request's own hit is counted before the limit check,
//     so the boundary request is admitted (limit=60 allows the 60th
//     call and denies the 61st)
//   - Denied requests still record a hit
//   - Reset reports whole seconds until the oldest stored hit leaves
//     the window
//
// Example Usage:
//
//	store := ratelimit.NewMemoryStore()
//	dec, _ := store.Consume(ctx, "1.2.3.4:/api/chat", ratelimit.Policy{
//		Limit:  60,
//		Window: time.Minute,
//	})
//	if !dec.Allowed {
//		// reject with 429
//	}
package ratelimit
