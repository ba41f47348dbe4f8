package picker

import (
	"sync"
	"time"

	"github.com/moneyboard/moneyboard/internal/utils"
)

const DefaultDebounce = 500 * time.Millisecond

// Debouncer collapses bursts of Trigger calls into a single callback carrying
// the last value, fired once delay has passed without a new Trigger.
type Debouncer[T any] struct {
	clock    utils.Clock
	delay    time.Duration
	callback func(T)

	mu         sync.Mutex
	timer      utils.Timer
	generation uint64
}

func NewDebouncer[T any](clock utils.Clock, delay time.Duration, callback func(T)) *Debouncer[T] {
	if clock == nil {
		clock = utils.SystemClock{}
	}
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Debouncer[T]{clock: clock, delay: delay, callback: callback}
}

// Trigger cancels the pending timer, if any, and schedules a new one for value.
func (d *Debouncer[T]) Trigger(value T) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.generation++
	gen := d.generation
	d.timer = d.clock.AfterFunc(d.delay, func() {
		d.fire(gen, value)
	})
}

func (d *Debouncer[T]) fire(gen uint64, value T) {
	d.mu.Lock()
	// A timer that lost the race against Stop or a newer Trigger must not fire.
	if gen != d.generation || d.timer == nil {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	d.mu.Unlock()

	d.callback(value)
}

// Stop cancels the pending callback. It reports whether one was pending.
func (d *Debouncer[T]) Stop() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer == nil {
		return false
	}
	d.timer.Stop()
	d.timer = nil
	d.generation++
	return true
}

func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}
