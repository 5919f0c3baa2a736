package ratelimit

import (
	"context"
	"sync"
	"time"
)

// pruneInterval is the minimum gap between prune passes on one record.
// Between passes the hit slice may briefly hold expired entries; the
// decision math tolerates that because expired hits only survive 500ms.
const pruneInterval = 500 * time.Millisecond

// record holds the mutable window state for one key. Hits are unix
// milliseconds in non-decreasing order.
type record struct {
	mu       sync.Mutex
	hits     []int64
	prunedAt int64
	lastSeen int64
}

// MemoryStore is the process-local Store. Limits enforced by concurrent
// gateway instances are independent; deployments that need a shared count
// swap in RedisStore at construction time.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*record

	now  func() time.Time
	stop chan struct{}
	once sync.Once
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock overrides the time source. Tests use this to drive the window
// deterministically.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		s.now = now
	}
}

// NewMemoryStore creates an in-memory sliding-window store and starts a
// background sweep that drops records idle for a full hour.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		records: make(map[string]*record),
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	go s.sweep()
	return s
}

// Consume records a hit for key and decides admission under p.
func (s *MemoryStore) Consume(_ context.Context, key string, p Policy) (Decision, error) {
	p.validate()
	if key == "" {
		panic("ratelimit: empty key")
	}

	nowMs := s.now().UnixMilli()
	windowMs := p.Window.Milliseconds()

	s.mu.Lock()
	r, ok := s.records[key]
	if !ok {
		r = &record{}
		s.records[key] = r
	}
	s.mu.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastSeen = nowMs

	if r.prunedAt == 0 || nowMs-r.prunedAt > pruneInterval.Milliseconds() {
		// Hits are time-ordered, so expired entries form a contiguous
		// prefix and the scan is O(evicted).
		cutoff := nowMs - windowMs
		n := 0
		for n < len(r.hits) && r.hits[n] < cutoff {
			n++
		}
		if n > 0 {
			r.hits = append(r.hits[:0], r.hits[n:]...)
		}
		r.prunedAt = nowMs
	}

	r.hits = append(r.hits, nowMs)
	if bucketCap := p.EffectiveCap(); len(r.hits) > bucketCap {
		drop := len(r.hits) - bucketCap
		r.hits = append(r.hits[:0], r.hits[drop:]...)
	}

	count := len(r.hits)
	allowed := count <= p.Limit
	remaining := 0
	if allowed {
		remaining = p.Limit - count
	}
	return Decision{
		Allowed:   allowed,
		Limit:     p.Limit,
		Remaining: remaining,
		Reset:     resetSeconds(r.hits[0], windowMs, nowMs),
	}, nil
}

// Len reports the number of tracked keys.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Close stops the background sweep.
func (s *MemoryStore) Close() {
	s.once.Do(func() { close(s.stop) })
}

// sweep drops records that have not been touched for an hour, bounding
// key growth from one-off clients.
func (s *MemoryStore) sweep() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			cutoff := s.now().Add(-time.Hour).UnixMilli()
			s.mu.Lock()
			for key, r := range s.records {
				r.mu.Lock()
				idle := r.lastSeen < cutoff
				r.mu.Unlock()
				if idle {
					delete(s.records, key)
				}
			}
			s.mu.Unlock()
		}
	}
}
