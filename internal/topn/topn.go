// Package topn implements a bounded best-N collector for correlation scores.
// This is an internal package.
package topn

import "sort"

// Item is one scored candidate.
// Value-based (no pointers) for cache locality and zero allocations.
type Item struct {
	Ref   uint32  // Ref is the global template index.
	Score float32 // Score is the candidate's correlation score.
}

// Collector keeps the N highest-scoring items pushed into it. Ties on
// score are broken in favor of the lower Ref, so results are stable for
// a fixed push order.
type Collector struct {
	limit int
	items []Item
}

// New returns a collector bounded to limit items. limit must be positive.
func New(limit int) *Collector {
	return &Collector{
		limit: limit,
		items: make([]Item, 0, limit),
	}
}

// Push offers an item. When the collector is full the current worst item
// is evicted if the new one ranks higher.
func (c *Collector) Push(item Item) {
	if len(c.items) < c.limit {
		c.items = append(c.items, item)
		c.siftUp(len(c.items) - 1)
		return
	}
	// Root is the worst retained item.
	if !worse(item, c.items[0]) {
		c.items[0] = item
		c.siftDown(0)
	}
}

// Len returns the number of items currently retained.
func (c *Collector) Len() int { return len(c.items) }

// Drain empties the collector and returns the retained items ordered by
// descending score, ties by ascending Ref.
func (c *Collector) Drain() []Item {
	out := c.items
	c.items = nil
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Ref < out[j].Ref
	})
	return out
}

// worse reports whether a ranks below b.
func worse(a, b Item) bool {
	if a.Score != b.Score {
		return a.Score < b.Score
	}
	return a.Ref > b.Ref
}

// Min-heap ordered by worse: the root is the weakest retained item.

func (c *Collector) siftUp(i int) {
	for i > 0 {
		p := (i - 1) / 2
		if !worse(c.items[i], c.items[p]) {
			return
		}
		c.items[i], c.items[p] = c.items[p], c.items[i]
		i = p
	}
}

func (c *Collector) siftDown(i int) {
	n := len(c.items)
	for {
		l := 2*i + 1
		if l >= n {
			return
		}
		best := l
		if r := l + 1; r < n && worse(c.items[r], c.items[l]) {
			best = r
		}
		if !worse(c.items[best], c.items[i]) {
			return
		}
		c.items[i], c.items[best] = c.items[best], c.items[i]
		i = best
	}
}
