package dedupe

// Option applies a configuration option to the in-memory registry.
type Option func(*inMemoryDeduper)

// WithMaxSize caps the number of keys in flight at once.
// If maxSize <= 0 the registry is unbounded.
func WithMaxSize(maxSize int) Option {
	return func(d *inMemoryDeduper) {
		d.maxSize = maxSize
	}
}

// WithOnChange registers a callback invoked with the new size after every
// record or release. It runs under the registry lock and must not call back
// into the registry.
func WithOnChange(fn func(size int64)) Option {
	return func(d *inMemoryDeduper) {
		d.onChange = fn
	}
}
