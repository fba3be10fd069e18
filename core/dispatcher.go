package orchestration

import (
	"context"
	"sync"
)

// dispatcher runs controller work one function at a time. Every device
// callback, timer expiry and executor result goes through it, so the
// controller state is only ever touched by one goroutine.
type dispatcher interface {
	// dispatch queues fn. It reports false if the dispatcher is closed and
	// fn will never run.
	dispatch(fn func()) bool
	close()
}

type serialDispatcher struct {
	mu      sync.Mutex
	pending []func()
	closed  bool

	wake chan struct{}
	done chan struct{}
}

func newSerialDispatcher() *serialDispatcher {
	d := &serialDispatcher{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go d.loop()
	return d
}

func (d *serialDispatcher) dispatch(fn func()) bool {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return false
	}
	d.pending = append(d.pending, fn)
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}
	return true
}

// close runs what is already queued and stops the loop. It must not be called
// from dispatched work.
func (d *serialDispatcher) close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}
	<-d.done
}

func (d *serialDispatcher) loop() {
	defer close(d.done)
	for {
		d.mu.Lock()
		for len(d.pending) == 0 && !d.closed {
			d.mu.Unlock()
			<-d.wake
			d.mu.Lock()
		}
		if len(d.pending) == 0 {
			d.mu.Unlock()
			return
		}
		batch := d.pending
		d.pending = nil
		d.mu.Unlock()

		for _, fn := range batch {
			runDispatched(fn)
		}
	}
}

// inlineDispatcher runs work on the calling goroutine. Work dispatched while
// other work is running is queued behind it, keeping the same ordering as
// serialDispatcher.
type inlineDispatcher struct {
	mu      sync.Mutex
	queue   []func()
	running bool
	closed  bool
}

func (d *inlineDispatcher) dispatch(fn func()) bool {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return false
	}
	d.queue = append(d.queue, fn)
	if d.running {
		d.mu.Unlock()
		return true
	}
	d.running = true

	for len(d.queue) > 0 {
		next := d.queue[0]
		d.queue = d.queue[1:]
		d.mu.Unlock()
		runDispatched(next)
		d.mu.Lock()
	}
	d.running = false
	d.mu.Unlock()
	return true
}

func (d *inlineDispatcher) close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
}

func runDispatched(fn func()) {
	if err := panicSafeNamedWorker("dispatched", func(context.Context) error {
		fn()
		return nil
	})(context.Background()); err != nil {
		logger.Error("dispatched work failed", "error", err)
	}
}
