package dupfilter

import (
	"context"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

// BloomFilter is an in-process probabilistic filter.
// Exists may report a false positive at roughly the configured rate once
// the capacity is reached, but never a false negative.
type BloomFilter struct {
	mu     sync.Mutex
	filter *bloom.BloomFilter
}

var _ Filter = (*BloomFilter)(nil)

// NewBloomFilter reserves a filter for capacity items at errorRate.
func NewBloomFilter(capacity int64, errorRate float64) (*BloomFilter, error) {
	if err := validateReservation(capacity, errorRate); err != nil {
		return nil, err
	}
	return &BloomFilter{
		filter: bloom.NewWithEstimates(uint(capacity), errorRate),
	}, nil
}

// Connect does nothing.
func (f *BloomFilter) Connect(context.Context) error { return nil }

// Disconnect does nothing.
func (f *BloomFilter) Disconnect(context.Context) error { return nil }

// Add records item.
func (f *BloomFilter) Add(_ context.Context, item string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filter.AddString(item)
	return nil
}

// Exists reports whether item was probably added.
func (f *BloomFilter) Exists(_ context.Context, item string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.filter.TestString(item), nil
}
