package rf433

import (
	"sync"
	"time"
)

// dedupPruneThreshold is the cache size above which expired entries are swept.
const dedupPruneThreshold = 256

// dedupCache suppresses repeated detections of the same code.
//
// RF remotes send each frame many times per button press; a receiver
// reports every copy. Only the first within the window is published.
type dedupCache struct {
	window time.Duration
	mu     sync.Mutex
	seen   map[string]time.Time
}

func newDedupCache(window time.Duration) *dedupCache {
	return &dedupCache{
		window: window,
		seen:   make(map[string]time.Time),
	}
}

// duplicate reports whether key was seen within the window before now, and
// records now as the latest sighting. The window slides with every copy,
// so a button held down stays one event.
func (d *dedupCache) duplicate(key string, now time.Time) bool {
	if d.window <= 0 {
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	last, ok := d.seen[key]
	d.seen[key] = now

	if len(d.seen) > dedupPruneThreshold {
		d.prune(now)
	}

	return ok && now.Sub(last) < d.window
}

// prune removes entries older than the window. Caller holds mu.
func (d *dedupCache) prune(now time.Time) {
	for k, t := range d.seen {
		if now.Sub(t) >= d.window {
			delete(d.seen, k)
		}
	}
}

// clear drops every entry.
func (d *dedupCache) clear() {
	d.mu.Lock()
	d.seen = make(map[string]time.Time)
	d.mu.Unlock()
}
