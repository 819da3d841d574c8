package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/coach/pkg/metrics"
)

// MemoryStore is a mutex-guarded in-process Store with per-entry expiry.
type MemoryStore struct {
	mu     sync.RWMutex
	byUser map[string]Session

	ttl           time.Duration
	sweepInterval time.Duration
	now           func() time.Time

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewMemoryStore creates a store and starts its sweeper. The sweeper stops
// when ctx is done or Close is called.
func NewMemoryStore(ctx context.Context, opts ...Option) *MemoryStore {
	s := &MemoryStore{
		byUser:        make(map[string]Session),
		ttl:           30 * time.Minute,
		sweepInterval: time.Minute,
		now:           time.Now,
		stopChan:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	metrics.UpdateSessionCount(0)
	if s.ttl > 0 {
		s.startSweeper(ctx)
	}
	return s
}

func (s *MemoryStore) Get(_ context.Context, userID string) (Session, error) {
	if s.ttl <= 0 {
		return Session{}, ErrNotFound
	}
	s.mu.RLock()
	sess, ok := s.byUser[userID]
	s.mu.RUnlock()
	if !ok || s.expired(sess) {
		return Session{}, fmt.Errorf("%w: %s", ErrNotFound, userID)
	}
	return sess, nil
}

func (s *MemoryStore) Put(ctx context.Context, userID, sessionID string) error {
	if userID == "" {
		return ErrEmptyUser
	}
	if s.ttl <= 0 {
		return nil
	}
	if sessionID == "" {
		s.Delete(ctx, userID)
		return nil
	}

	s.mu.Lock()
	s.byUser[userID] = Session{UserID: userID, SessionID: sessionID, UpdatedAt: s.now()}
	n := len(s.byUser)
	s.mu.Unlock()

	metrics.UpdateSessionCount(n)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, userID string) {
	s.mu.Lock()
	delete(s.byUser, userID)
	n := len(s.byUser)
	s.mu.Unlock()

	metrics.UpdateSessionCount(n)
}

// Count includes entries that expired but were not swept yet.
func (s *MemoryStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byUser)
}

// Close stops the sweeper and waits for it to exit. It is safe to call twice.
func (s *MemoryStore) Close() {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
}

func (s *MemoryStore) expired(sess Session) bool {
	return s.now().Sub(sess.UpdatedAt) >= s.ttl
}

func (s *MemoryStore) startSweeper(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.sweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.sweep()
			}
		}
	}()
}

// sweep drops expired sessions and returns how many it removed.
func (s *MemoryStore) sweep() int {
	s.mu.Lock()
	removed := 0
	for id, sess := range s.byUser {
		if s.expired(sess) {
			delete(s.byUser, id)
			removed++
		}
	}
	n := len(s.byUser)
	s.mu.Unlock()

	if removed > 0 {
		metrics.UpdateSessionCount(n)
	}
	return removed
}
