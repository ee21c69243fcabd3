package lel

import (
	"sync/atomic"

	"github.com/nvandessel/trace-semantics/internal/models"
)

// IDAllocator issues monotonically increasing event ids. It is safe for
// concurrent use. Each construction episode owns its allocator, so ids are
// reproducible without resetting shared state.
type IDAllocator struct {
	last atomic.Uint64
}

// NewIDAllocator returns an allocator whose first id is 1.
func NewIDAllocator() *IDAllocator {
	return &IDAllocator{}
}

// Next issues the next id.
func (a *IDAllocator) Next() models.EventID {
	return models.EventID(a.last.Add(1))
}

// Observe records that id is in use so that later ids are issued above it.
func (a *IDAllocator) Observe(id models.EventID) {
	for {
		cur := a.last.Load()
		if uint64(id) <= cur || a.last.CompareAndSwap(cur, uint64(id)) {
			return
		}
	}
}

// Last returns the most recently issued or observed id, or 0.
func (a *IDAllocator) Last() models.EventID {
	return models.EventID(a.last.Load())
}
