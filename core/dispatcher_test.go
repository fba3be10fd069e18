package orchestration

import (
	"sync"
	"testing"
	"time"
)

func TestSerialDispatcherRunsWorkInOrder(t *testing.T) {
	d := newSerialDispatcher()

	var mu sync.Mutex
	var order []int
	done := make(chan struct{})
	for i := range 50 {
		d.dispatch(func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			if i == 49 {
				close(done)
			}
		})
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for dispatched work")
	}
	d.close()

	mu.Lock()
	defer mu.Unlock()
	for i, got := range order {
		if got != i {
			t.Fatalf("expected work to run in dispatch order, got %v", order)
		}
	}
}

func TestSerialDispatcherCloseDrainsQueue(t *testing.T) {
	d := newSerialDispatcher()

	blocker := make(chan struct{})
	d.dispatch(func() { <-blocker })
	ran := false
	d.dispatch(func() { ran = true })

	closed := make(chan struct{})
	go func() {
		d.close()
		close(closed)
	}()
	close(blocker)

	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for close")
	}
	if !ran {
		t.Fatalf("expected queued work to run before close returns")
	}
	if d.dispatch(func() {}) {
		t.Fatalf("expected dispatch after close to be rejected")
	}
}

func TestSerialDispatcherSurvivesPanics(t *testing.T) {
	d := newSerialDispatcher()
	defer d.close()

	done := make(chan struct{})
	d.dispatch(func() { panic("boom") })
	d.dispatch(func() { close(done) })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected work after a panic to still run")
	}
}

func TestInlineDispatcherQueuesNestedWork(t *testing.T) {
	d := &inlineDispatcher{}

	var order []string
	d.dispatch(func() {
		order = append(order, "outer start")
		d.dispatch(func() { order = append(order, "nested") })
		order = append(order, "outer end")
	})

	want := []string{"outer start", "outer end", "nested"}
	if len(order) != len(want) {
		t.Fatalf("expected %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, order)
		}
	}

	d.close()
	if d.dispatch(func() {}) {
		t.Fatalf("expected dispatch after close to be rejected")
	}
}
