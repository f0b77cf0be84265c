package orders

import "container/heap"

// Queue releases orders highest priority first; orders of equal priority
// come out in insertion order.
type Queue struct {
	h   orderHeap
	seq uint64
}

type queued struct {
	order Order
	seq   uint64
}

type orderHeap []queued

func (h orderHeap) Len() int { return len(h) }
func (h orderHeap) Less(i, j int) bool {
	if h[i].order.Priority == h[j].order.Priority {
		return h[i].seq < h[j].seq
	}
	return h[i].order.Priority > h[j].order.Priority
}
func (h orderHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *orderHeap) Push(x any)   { *h = append(*h, x.(queued)) }
func (h *orderHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// NewQueue builds a queue holding list.
func NewQueue(list []Order) *Queue {
	q := &Queue{}
	for _, o := range list {
		q.Push(o)
	}
	return q
}

// Push inserts an order.
func (q *Queue) Push(o Order) {
	heap.Push(&q.h, queued{order: o, seq: q.seq})
	q.seq++
}

// Next removes and returns the highest-priority order.
func (q *Queue) Next() (Order, bool) {
	if len(q.h) == 0 {
		return Order{}, false
	}
	return heap.Pop(&q.h).(queued).order, true
}

// Peek returns the order Next would return without removing it.
func (q *Queue) Peek() (Order, bool) {
	if len(q.h) == 0 {
		return Order{}, false
	}
	return q.h[0].order, true
}

// Len returns the number of queued orders.
func (q *Queue) Len() int { return len(q.h) }
