// Package dedupe defines idempotency tracking for choice submissions.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/okian/pairrank/internal/domain/model"
)

// Deduper remembers the judgment produced for each presentation so that a
// retried or double-clicked submission is acknowledged with the original
// result instead of failing as stale.
type Deduper interface {
	// Lookup returns the judgment recorded for presentationID, if any.
	Lookup(ctx context.Context, presentationID string) (model.Judgment, bool)

	// Record stores j under presentationID. Recording an id twice keeps the
	// first judgment and returns false.
	Record(ctx context.Context, presentationID string, j model.Judgment) bool

	// Forget drops every entry. Used on session reset.
	Forget(ctx context.Context)

	Size() int64
}

// node is one entry of the insertion-ordered list; head is the newest.
type node struct {
	id       string
	judgment model.Judgment
	prev     *node
	next     *node
}

// inMemoryDeduper keeps a bounded map of presentation ids, evicting the
// oldest entry once maxSize is reached. maxSize <= 0 means unbounded.
type inMemoryDeduper struct {
	mu      sync.RWMutex
	seen    map[string]*node
	head    *node
	tail    *node
	maxSize int
	size    atomic.Int64
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: defaultMaxSize,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]*node)
	return d
}

func (d *inMemoryDeduper) Lookup(_ context.Context, presentationID string) (model.Judgment, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	n, ok := d.seen[presentationID]
	if !ok {
		return model.Judgment{}, false
	}
	return n.judgment, true
}

func (d *inMemoryDeduper) Record(_ context.Context, presentationID string, j model.Judgment) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[presentationID]; exists {
		return false
	}
	if d.maxSize > 0 && len(d.seen) >= d.maxSize {
		d.evictOldest()
	}

	n := &node{id: presentationID, judgment: j, next: d.head}
	if d.head != nil {
		d.head.prev = n
	}
	d.head = n
	if d.tail == nil {
		d.tail = n
	}
	d.seen[presentationID] = n
	d.size.Add(1)
	return true
}

func (d *inMemoryDeduper) Forget(_ context.Context) {
	d.mu.Lock()
	d.seen = make(map[string]*node)
	d.head, d.tail = nil, nil
	d.size.Store(0)
	d.mu.Unlock()
}

// evictOldest removes the tail. Must be called with d.mu held.
func (d *inMemoryDeduper) evictOldest() {
	t := d.tail
	if t == nil {
		return
	}
	delete(d.seen, t.id)
	d.tail = t.prev
	if d.tail != nil {
		d.tail.next = nil
	} else {
		d.head = nil
	}
	d.size.Add(-1)
}

// Size returns the current number of entries in the deduper.
func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
