// Package feed fans query results out to long-lived subscribers. Writers call
// Hub.Notify after changing the data a query reads; every live subscription
// then re-runs its query and delivers the fresh result.
package feed

import (
	"context"
	"sync"
)

// Snapshot is one emission of a subscription. Err is set when the query
// failed; Value is then the zero value.
type Snapshot[T any] struct {
	Value T
	Err   error
}

// Query produces the value a subscription emits.
type Query[T any] func(ctx context.Context) (T, error)

// Hub tracks the live subscriptions over one data source.
type Hub[T any] struct {
	mu     sync.Mutex
	subs   map[*Subscription[T]]struct{}
	closed bool
}

// NewHub creates an empty hub.
func NewHub[T any]() *Hub[T] {
	return &Hub[T]{subs: make(map[*Subscription[T]]struct{})}
}

// Subscribe runs query immediately and again after every Notify until the
// subscription is cancelled, either by Unsubscribe or by ctx.
func (h *Hub[T]) Subscribe(ctx context.Context, query Query[T]) *Subscription[T] {
	ctx, cancel := context.WithCancel(ctx)
	s := &Subscription[T]{
		hub:     h,
		updates: make(chan Snapshot[T]),
		kick:    make(chan struct{}, 1),
		cancel:  cancel,
		done:    make(chan struct{}),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		cancel()
		close(s.updates)
		close(s.done)
		return s
	}
	h.subs[s] = struct{}{}
	h.mu.Unlock()

	s.kick <- struct{}{}
	go s.run(ctx, query)
	return s
}

// Notify asks every live subscription to re-run its query. It never blocks;
// notifications arriving while a query is pending are coalesced.
func (h *Hub[T]) Notify() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs {
		s.poke()
	}
}

// Len returns the number of live subscriptions.
func (h *Hub[T]) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close cancels every subscription. Later Subscribe calls return
// subscriptions whose channel is already closed.
func (h *Hub[T]) Close() {
	h.mu.Lock()
	h.closed = true
	subs := make([]*Subscription[T], 0, len(h.subs))
	for s := range h.subs {
		subs = append(subs, s)
	}
	h.mu.Unlock()

	for _, s := range subs {
		s.Unsubscribe()
	}
}

func (h *Hub[T]) remove(s *Subscription[T]) {
	h.mu.Lock()
	delete(h.subs, s)
	h.mu.Unlock()
}

// Subscription is a cancellable handle on a stream of snapshots.
type Subscription[T any] struct {
	hub     *Hub[T]
	updates chan Snapshot[T]
	kick    chan struct{}
	cancel  context.CancelFunc
	done    chan struct{}
}

// Updates returns the channel snapshots are delivered on. It is closed once
// the subscription ends.
func (s *Subscription[T]) Updates() <-chan Snapshot[T] {
	return s.updates
}

// Unsubscribe stops future emissions. It is safe to call more than once and
// returns after the channel has been closed.
func (s *Subscription[T]) Unsubscribe() {
	s.cancel()
	<-s.done
}

// Done is closed when the subscription has ended.
func (s *Subscription[T]) Done() <-chan struct{} {
	return s.done
}

func (s *Subscription[T]) poke() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

func (s *Subscription[T]) run(ctx context.Context, query Query[T]) {
	defer close(s.done)
	defer close(s.updates)
	defer s.hub.remove(s)

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.kick:
		}

		snap := s.exec(ctx, query)
		if ctx.Err() != nil {
			return
		}

	deliver:
		for {
			select {
			case s.updates <- snap:
				break deliver
			case <-s.kick:
				// The reader has not caught up; replace the pending value.
				snap = s.exec(ctx, query)
				if ctx.Err() != nil {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}
}

func (s *Subscription[T]) exec(ctx context.Context, query Query[T]) Snapshot[T] {
	v, err := query(ctx)
	return Snapshot[T]{Value: v, Err: err}
}
