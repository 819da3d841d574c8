package repository

import "time"

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithTTL sets how long a session stays usable after its last Put.
// Zero or negative disables remembering entirely.
func WithTTL(ttl time.Duration) Option {
	return func(s *MemoryStore) {
		s.ttl = ttl
	}
}

// WithSweepInterval sets how often expired sessions are purged.
func WithSweepInterval(interval time.Duration) Option {
	return func(s *MemoryStore) {
		if interval > 0 {
			s.sweepInterval = interval
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}
