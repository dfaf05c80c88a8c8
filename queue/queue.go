// Package queue holds the per-guild ordered list of tracks waiting to play.
package queue

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/leeineian/cadence/media"
)

// Range is the 1-based span of positions an Enqueue call occupied.
type Range struct {
	Start int
	End   int
}

// MediaQueue is safe for concurrent use. Positions passed to and returned
// from its methods are 1-based.
type MediaQueue struct {
	mu      sync.Mutex
	items   []media.QueueItem
	looping bool
}

func New(looping bool) *MediaQueue {
	return &MediaQueue{looping: looping}
}

// Enqueue appends items and reports the positions they landed on. An empty
// call returns the zero Range.
func (q *MediaQueue) Enqueue(items ...media.QueueItem) Range {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(items) == 0 {
		return Range{}
	}
	start := len(q.items) + 1
	q.items = append(q.items, items...)
	return Range{Start: start, End: len(q.items)}
}

// DequeueNext pops the head of the queue.
func (q *MediaQueue) DequeueNext() (media.QueueItem, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return media.QueueItem{}, false
	}
	item := q.items[0]
	q.items[0] = media.QueueItem{}
	q.items = q.items[1:]
	return item, true
}

// Move takes the item at oldPos out and reinserts it at newPos.
func (q *MediaQueue) Move(oldPos, newPos int) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.check(oldPos); err != nil {
		return err
	}
	if err := q.check(newPos); err != nil {
		return err
	}
	item := q.items[oldPos-1]
	q.items = append(q.items[:oldPos-1], q.items[oldPos:]...)
	q.items = append(q.items[:newPos-1], append([]media.QueueItem{item}, q.items[newPos-1:]...)...)
	return nil
}

// Remove deletes and returns the item at pos.
func (q *MediaQueue) Remove(pos int) (media.QueueItem, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.check(pos); err != nil {
		return media.QueueItem{}, err
	}
	item := q.items[pos-1]
	q.items = append(q.items[:pos-1], q.items[pos:]...)
	return item, nil
}

func (q *MediaQueue) Shuffle() {
	q.mu.Lock()
	defer q.mu.Unlock()
	rand.Shuffle(len(q.items), func(i, j int) {
		q.items[i], q.items[j] = q.items[j], q.items[i]
	})
}

// Clear empties the queue. It reports how many items were dropped.
func (q *MediaQueue) Clear() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.items)
	q.items = nil
	return n
}

// ToggleLoop flips loop mode and returns the new state.
func (q *MediaQueue) ToggleLoop() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.looping = !q.looping
	return q.looping
}

func (q *MediaQueue) SetLooping(v bool) {
	q.mu.Lock()
	q.looping = v
	q.mu.Unlock()
}

func (q *MediaQueue) Looping() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.looping
}

func (q *MediaQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Items returns a copy of the queued items in play order.
func (q *MediaQueue) Items() []media.QueueItem {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]media.QueueItem, len(q.items))
	copy(out, q.items)
	return out
}

// Duration sums the known durations of everything queued.
func (q *MediaQueue) Duration() time.Duration {
	q.mu.Lock()
	defer q.mu.Unlock()
	var total time.Duration
	for _, it := range q.items {
		total += it.Track.Duration
	}
	return total
}

func (q *MediaQueue) check(pos int) error {
	if pos < 1 || pos > len(q.items) {
		return &media.OutOfRangeError{Index: pos, Len: len(q.items)}
	}
	return nil
}
