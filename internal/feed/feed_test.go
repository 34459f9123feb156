package feed

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

const wait = 2 * time.Second

func next[T any](t *testing.T, s *Subscription[T]) Snapshot[T] {
	t.Helper()
	select {
	case snap, ok := <-s.Updates():
		if !ok {
			t.Fatal("updates channel closed")
		}
		return snap
	case <-time.After(wait):
		t.Fatal("timed out waiting for snapshot")
	}
	return Snapshot[T]{}
}

func expectClosed[T any](t *testing.T, s *Subscription[T]) {
	t.Helper()
	select {
	case _, ok := <-s.Updates():
		if ok {
			t.Fatal("expected closed channel, got a snapshot")
		}
	case <-time.After(wait):
		t.Fatal("timed out waiting for channel close")
	}
}

type counter struct {
	mu sync.Mutex
	n  int
}

func (c *counter) set(n int) {
	c.mu.Lock()
	c.n = n
	c.mu.Unlock()
}

func (c *counter) query(context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n, nil
}

func TestSubscribeEmitsInitialValue(t *testing.T) {
	h := NewHub[int]()
	c := &counter{n: 7}
	s := h.Subscribe(context.Background(), c.query)
	defer s.Unsubscribe()

	if got := next(t, s); got.Value != 7 || got.Err != nil {
		t.Fatalf("initial snapshot = %+v", got)
	}
	if h.Len() != 1 {
		t.Fatalf("Len() = %d; want 1", h.Len())
	}
}

func TestNotifyReemits(t *testing.T) {
	h := NewHub[int]()
	c := &counter{n: 1}
	s := h.Subscribe(context.Background(), c.query)
	defer s.Unsubscribe()
	next(t, s)

	c.set(2)
	h.Notify()
	if got := next(t, s); got.Value != 2 {
		t.Fatalf("after notify = %d; want 2", got.Value)
	}
}

func TestSlowReaderSeesLatestValue(t *testing.T) {
	h := NewHub[int]()
	c := &counter{n: 0}
	s := h.Subscribe(context.Background(), c.query)
	defer s.Unsubscribe()
	next(t, s)

	for i := 1; i <= 50; i++ {
		c.set(i)
		h.Notify()
	}

	// Whatever intermediate values were skipped, the stream must settle on 50.
	deadline := time.After(wait)
	for {
		select {
		case snap := <-s.Updates():
			if snap.Value == 50 {
				return
			}
		case <-deadline:
			t.Fatal("never observed the latest value")
		}
	}
}

func TestQueryErrorIsDelivered(t *testing.T) {
	h := NewHub[string]()
	boom := errors.New("disk unavailable")
	s := h.Subscribe(context.Background(), func(context.Context) (string, error) {
		return "", boom
	})
	defer s.Unsubscribe()

	if got := next(t, s); !errors.Is(got.Err, boom) {
		t.Fatalf("snapshot err = %v; want %v", got.Err, boom)
	}
}

func TestUnsubscribeClosesAndStopsQueries(t *testing.T) {
	h := NewHub[int]()
	var calls atomic.Int32
	s := h.Subscribe(context.Background(), func(context.Context) (int, error) {
		return int(calls.Add(1)), nil
	})
	next(t, s)

	s.Unsubscribe()
	s.Unsubscribe()
	expectClosed(t, s)
	if h.Len() != 0 {
		t.Fatalf("Len() = %d after unsubscribe", h.Len())
	}

	before := calls.Load()
	h.Notify()
	time.Sleep(20 * time.Millisecond)
	if calls.Load() != before {
		t.Fatal("query ran after unsubscribe")
	}
}

func TestContextCancelEndsSubscription(t *testing.T) {
	h := NewHub[int]()
	ctx, cancel := context.WithCancel(context.Background())
	s := h.Subscribe(ctx, (&counter{}).query)
	next(t, s)

	cancel()
	expectClosed(t, s)
	select {
	case <-s.Done():
	case <-time.After(wait):
		t.Fatal("Done not closed")
	}
}

func TestCloseEndsAllSubscriptions(t *testing.T) {
	h := NewHub[int]()
	c := &counter{}
	a := h.Subscribe(context.Background(), c.query)
	b := h.Subscribe(context.Background(), c.query)
	next(t, a)
	next(t, b)

	h.Close()
	expectClosed(t, a)
	expectClosed(t, b)

	late := h.Subscribe(context.Background(), c.query)
	expectClosed(t, late)
	late.Unsubscribe()
}
