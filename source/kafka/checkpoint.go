package kafka

import (
	"context"
	"sync"
)

/* ───────────────────────── Uncapped & Capped ───────────────────────────── */

type node[T any] struct {
	pos        int64
	payload    T
	prev, next *node[T]
}

// Uncapped tracks in-flight payloads in arrival order. Payloads may resolve
// in any order; the checkpoint only advances over a contiguous run of
// resolved payloads starting at the oldest pending one.
type Uncapped[T any] struct {
	cpPos      int64
	cpPay      *T
	start, end *node[T]
}

func NewUncapped[T any]() *Uncapped[T] { return &Uncapped[T]{} }

// Track appends p with weight size and returns its resolve func. resolve
// returns the payload the checkpoint now stands on, or nil while nothing
// contiguous has resolved yet. Not safe for concurrent use; see Capped.
func (u *Uncapped[T]) Track(p T, size int64) func() *T {
	n := &node[T]{payload: p, pos: size}
	if u.start == nil {
		u.start = n
	}
	if u.end != nil {
		n.prev = u.end
		n.pos += u.end.pos
		u.end.next = n
	} else {
		n.pos += u.cpPos
	}
	u.end = n
	return func() *T {
		if n.prev != nil {
			// an older payload is still pending: fold n into it
			n.prev.pos = n.pos
			n.prev.payload = n.payload
			n.prev.next = n.next
		} else {
			tmp := n.payload
			u.cpPay, u.cpPos = &tmp, n.pos
			u.start = n.next
		}
		if n.next != nil {
			n.next.prev = n.prev
		} else {
			u.end = n.prev
		}
		return u.cpPay
	}
}

func (u *Uncapped[T]) Pending() int64 {
	if u.end == nil {
		return 0
	}
	return u.end.pos - u.cpPos
}

func (u *Uncapped[T]) Highest() *T { return u.cpPay }

// Capped is a goroutine-safe Uncapped that blocks Track while more than cap
// weight is pending.
type Capped[T any] struct {
	u    *Uncapped[T]
	cap  int64
	cond *sync.Cond
}

func NewCapped[T any](cap int64) *Capped[T] {
	return &Capped[T]{u: NewUncapped[T](), cap: cap, cond: sync.NewCond(&sync.Mutex{})}
}

func (c *Capped[T]) full(size int64) bool {
	pend := c.u.Pending()
	return pend > 0 && pend+size > c.cap
}

// Track blocks when pending+size exceeds cap, until something resolves or
// ctx ends.
func (c *Capped[T]) Track(ctx context.Context, p T, size int64) (func() *T, error) {
	c.cond.L.Lock()
	defer c.cond.L.Unlock()

	if c.full(size) {
		stop := context.AfterFunc(ctx, func() {
			c.cond.L.Lock()
			c.cond.Broadcast()
			c.cond.L.Unlock()
		})
		defer stop()
		for c.full(size) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			c.cond.Wait()
		}
	}
	res := c.u.Track(p, size)
	return func() *T {
		c.cond.L.Lock()
		defer c.cond.L.Unlock()
		r := res()
		c.cond.Broadcast()
		return r
	}, nil
}

func (c *Capped[T]) Pending() int64 {
	c.cond.L.Lock()
	defer c.cond.L.Unlock()
	return c.u.Pending()
}

func (c *Capped[T]) Highest() *T {
	c.cond.L.Lock()
	defer c.cond.L.Unlock()
	return c.u.Highest()
}
