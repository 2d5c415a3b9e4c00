package webhooks

import (
	"cmp"
	"slices"
	"sync"
	"time"
)

// Delivery is one pending POST of an event payload.
type Delivery struct {
	ID            string
	EventType     string
	Payload       []byte
	Attempts      int
	NextAttemptAt time.Time

	seq uint64
}

// Queue holds deliveries until they succeed or run out of attempts. Route
// notifications are ephemeral, so the queue lives in memory.
type Queue struct {
	mu    sync.Mutex
	items map[string]*Delivery
	limit int
	seq   uint64
}

func NewQueue(limit int) *Queue {
	if limit <= 0 {
		limit = 1000
	}
	return &Queue{items: map[string]*Delivery{}, limit: limit}
}

// Enqueue reports false when the queue is full.
func (q *Queue) Enqueue(d Delivery) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) >= q.limit {
		return false
	}
	q.seq++
	d.seq = q.seq
	q.items[d.ID] = &d
	return true
}

// Due returns up to limit deliveries whose next attempt is not in the
// future, in enqueue order.
func (q *Queue) Due(now time.Time, limit int) []Delivery {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := []Delivery{}
	for _, d := range q.items {
		if !d.NextAttemptAt.After(now) {
			out = append(out, *d)
		}
	}
	slices.SortFunc(out, func(a, b Delivery) int { return cmp.Compare(a.seq, b.seq) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (q *Queue) Done(id string) {
	q.mu.Lock()
	delete(q.items, id)
	q.mu.Unlock()
}

func (q *Queue) Retry(id string, next time.Time) {
	q.mu.Lock()
	if d := q.items[id]; d != nil {
		d.Attempts++
		d.NextAttemptAt = next
	}
	q.mu.Unlock()
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
