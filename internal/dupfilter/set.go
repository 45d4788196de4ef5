package dupfilter

import (
	"context"
	"sync"
)

// SetFilter is an exact in-memory filter. Memory grows with the number of
// distinct items.
type SetFilter struct {
	mu    sync.RWMutex
	items map[string]struct{}
}

var _ Filter = (*SetFilter)(nil)

// NewSetFilter returns an empty SetFilter.
func NewSetFilter() *SetFilter {
	return &SetFilter{items: make(map[string]struct{})}
}

// Connect does nothing.
func (f *SetFilter) Connect(context.Context) error { return nil }

// Disconnect does nothing.
func (f *SetFilter) Disconnect(context.Context) error { return nil }

// Add records item.
func (f *SetFilter) Add(_ context.Context, item string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[item] = struct{}{}
	return nil
}

// Exists reports whether item was added.
func (f *SetFilter) Exists(_ context.Context, item string) (bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.items[item]
	return ok, nil
}

// Len returns the number of distinct items.
func (f *SetFilter) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.items)
}
