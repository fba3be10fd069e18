package orchestration

import "time"

// scheduledTask is a cancellable, re-armable delayed action owned by a single
// component. All methods must be called from dispatched work; the action
// itself also runs as dispatched work.
type scheduledTask struct {
	clock    Clock
	dispatch func(func()) bool

	timer      Timer
	generation uint64
	armed      bool
}

func newScheduledTask(clock Clock, dispatch func(func()) bool) *scheduledTask {
	return &scheduledTask{clock: clock, dispatch: dispatch}
}

// schedule replaces any pending action with fn after delay.
func (t *scheduledTask) schedule(delay time.Duration, fn func()) {
	t.cancel()

	t.armed = true
	generation := t.generation
	t.timer = t.clock.AfterFunc(delay, func() {
		t.dispatch(func() {
			// An expiry that raced cancel or a re-arm is stale.
			if !t.armed || t.generation != generation {
				return
			}
			t.armed = false
			t.timer = nil
			fn()
		})
	})
}

func (t *scheduledTask) cancel() {
	t.generation++
	t.armed = false
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

func (t *scheduledTask) pending() bool {
	return t.armed
}
