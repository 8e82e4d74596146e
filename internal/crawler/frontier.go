package crawler

import "sync"

// frontier is the visited set and page budget of one crawl.
// The set only grows. Its size never exceeds limit.
type frontier struct {
	mu      sync.Mutex
	limit   int
	visited map[string]struct{}
	next    int
}

func newFrontier(limit int) *frontier {
	return &frontier{
		limit:   limit,
		visited: make(map[string]struct{}),
	}
}

// reserve claims a fetch slot for url. It returns false when the budget is
// spent or url was reserved before; otherwise url is recorded and the
// returned sequence number gives its discovery order. Checking and
// inserting happen under one lock so concurrent workers cannot both claim
// the same URL or the last slot.
func (f *frontier) reserve(url string) (int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.visited) >= f.limit {
		return 0, false
	}
	if _, ok := f.visited[url]; ok {
		return 0, false
	}
	f.visited[url] = struct{}{}
	seq := f.next
	f.next++
	return seq, true
}

// exhausted reports whether no more URLs can be reserved.
func (f *frontier) exhausted() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.visited) >= f.limit
}

// size returns the number of reserved URLs.
func (f *frontier) size() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.visited)
}
