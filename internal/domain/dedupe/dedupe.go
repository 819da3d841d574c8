// Package dedupe tracks which keys have work in flight so the same key is
// never processed twice at once.
package dedupe

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

var (
	// ErrDuplicate is returned when the key already has work in flight.
	ErrDuplicate = errors.New("already in flight")
	// ErrFull is returned when a bounded registry holds maxSize keys.
	ErrFull = errors.New("in-flight registry full")
)

// Deduper records in-flight keys. Every successful Record must be paired
// with an Unrecord once the work finishes, whatever its outcome.
type Deduper interface {
	// SeenAndRecord atomically checks whether id is in flight and records it
	// if not. It returns ErrDuplicate or ErrFull instead of recording.
	SeenAndRecord(ctx context.Context, id string) error

	// Unrecord releases id. Unknown ids are ignored.
	Unrecord(ctx context.Context, id string)

	// Has reports whether id is in flight.
	Has(id string) bool

	Size() int64
}

type inMemoryDeduper struct {
	mu       sync.Mutex
	inFlight map[string]struct{}
	maxSize  int // 0 or negative = unbounded
	size     atomic.Int64
	onChange func(size int64)
}

// NewInMemoryDeduper creates an in-memory registry.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		inFlight: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id string) error {
	d.mu.Lock()
	if _, exists := d.inFlight[id]; exists {
		d.mu.Unlock()
		return ErrDuplicate
	}
	if d.maxSize > 0 && len(d.inFlight) >= d.maxSize {
		d.mu.Unlock()
		return ErrFull
	}
	d.inFlight[id] = struct{}{}
	d.notify(d.size.Add(1))
	d.mu.Unlock()
	return nil
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	if _, exists := d.inFlight[id]; !exists {
		d.mu.Unlock()
		return
	}
	delete(d.inFlight, id)
	d.notify(d.size.Add(-1))
	d.mu.Unlock()
}

func (d *inMemoryDeduper) Has(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.inFlight[id]
	return ok
}

func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}

// notify must be called with mu held so observers see sizes in order.
func (d *inMemoryDeduper) notify(n int64) {
	if d.onChange != nil {
		d.onChange(n)
	}
}
