package rewardd

import (
	"sync"
	"time"

	rewards "azorion/native/taskrewards"
)

// ObservedEstimator counts distinct claimants seen within a trailing window.
type ObservedEstimator struct {
	window time.Duration
	floor  uint64

	mu   sync.Mutex
	seen map[rewards.Identity]int64
}

// NewObservedEstimator tracks claimants for window. The reported estimate
// never drops below floor.
func NewObservedEstimator(window time.Duration, floor uint64) *ObservedEstimator {
	if window <= 0 {
		window = 10 * time.Minute
	}
	return &ObservedEstimator{window: window, floor: floor, seen: make(map[rewards.Identity]int64)}
}

// Observe marks id as active at now (unix seconds).
func (e *ObservedEstimator) Observe(id rewards.Identity, now int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if last, ok := e.seen[id]; !ok || now > last {
		e.seen[id] = now
	}
}

// ActiveClaimants implements rewards.ClaimantEstimator.
func (e *ObservedEstimator) ActiveClaimants(now int64) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	cutoff := now - int64(e.window/time.Second)
	var active uint64
	for id, last := range e.seen {
		if last < cutoff {
			delete(e.seen, id)
			continue
		}
		active++
	}
	if active < e.floor {
		return e.floor
	}
	return active
}

type claimObserver interface {
	Observe(id rewards.Identity, now int64)
}
