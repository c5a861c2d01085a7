package analysis

import (
	"sync"
	"time"

	"github.com/magpi/listener/internal/conf"
)

// DuplicateFilter suppresses repeat detections of the same species within
// a configurable window. The decision compares candidate timestamps, not
// arrival order, so candidates processed out of order by concurrent
// analyzers are judged consistently.
type DuplicateFilter struct {
	mu       sync.Mutex
	runtime  *conf.Runtime
	lastSeen map[string]time.Time
}

// NewDuplicateFilter creates a filter reading its window from the runtime
// tunables.
func NewDuplicateFilter(runtime *conf.Runtime) *DuplicateFilter {
	return &DuplicateFilter{
		runtime:  runtime,
		lastSeen: make(map[string]time.Time),
	}
}

// Prime seeds the per-species last-seen table, typically from the
// datastore at startup so a restart does not re-admit a bird that was
// just recorded.
func (df *DuplicateFilter) Prime(lastSeen map[string]time.Time) {
	df.mu.Lock()
	defer df.mu.Unlock()
	for species, ts := range lastSeen {
		if ts.After(df.lastSeen[species]) {
			df.lastSeen[species] = ts
		}
	}
}

// Accept reports whether a detection of species at ts should be kept. A
// candidate is a duplicate when its timestamp falls within the window of
// the species' recorded last sighting, regardless of which side of it.
// Accepted timestamps only ever move the last sighting forward.
func (df *DuplicateFilter) Accept(species string, ts time.Time) bool {
	window := df.runtime.DuplicateWindow()

	df.mu.Lock()
	defer df.mu.Unlock()

	last, seen := df.lastSeen[species]
	if seen && window > 0 && absDelta(ts, last) < window {
		return false
	}
	if !seen || ts.After(last) {
		df.lastSeen[species] = ts
	}
	return true
}

// LastSeen returns the recorded last sighting for a species.
func (df *DuplicateFilter) LastSeen(species string) (time.Time, bool) {
	df.mu.Lock()
	defer df.mu.Unlock()
	ts, ok := df.lastSeen[species]
	return ts, ok
}

func absDelta(a, b time.Time) time.Duration {
	d := a.Sub(b)
	if d < 0 {
		return -d
	}
	return d
}
