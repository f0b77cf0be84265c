package orders

import "time"

// Board is the list of orders currently open for pickup.
type Board struct {
	open []Order
}

// NewBoard creates an empty board.
func NewBoard() *Board {
	return &Board{}
}

// Add posts an order.
func (b *Board) Add(o Order) {
	b.open = append(b.open, o)
}

// Remove takes the order with the given ID off the board. Returns false if it
// was not there (already picked up by someone else).
func (b *Board) Remove(id string) bool {
	for i, o := range b.open {
		if o.ID == id {
			b.open = append(b.open[:i], b.open[i+1:]...)
			return true
		}
	}
	return false
}

// Orders returns a copy of the open orders in posting order.
func (b *Board) Orders() []Order {
	return append([]Order(nil), b.open...)
}

// Len returns the number of open orders.
func (b *Board) Len() int { return len(b.open) }

// Release moves up to n orders from the head of q onto the board.
// Returns how many were moved.
func (b *Board) Release(q *Queue, n int) int {
	moved := 0
	for moved < n {
		o, ok := q.Next()
		if !ok {
			break
		}
		b.Add(o)
		moved++
	}
	return moved
}

// ReleaseDue moves every queued order whose release offset has passed by
// elapsed. Orders come off the queue in priority order; an order that is not
// yet due is held back until a later call.
func (b *Board) ReleaseDue(q *Queue, elapsed time.Duration) int {
	var held []Order
	moved := 0
	for {
		o, ok := q.Next()
		if !ok {
			break
		}
		if o.ReleaseAfter > elapsed {
			held = append(held, o)
			continue
		}
		b.Add(o)
		moved++
	}
	for _, o := range held {
		q.Push(o)
	}
	return moved
}
