package progress

import (
	"sync"
	"time"
)

const (
	DefaultInterval = 500 * time.Millisecond
	DefaultStep     = 10
	// Ceiling is the highest value reached while a request is still pending.
	Ceiling = 90
	// Done is reported only after a confirmed success.
	Done = 100
)

// Reporter ticks a synthetic percentage while a conversion is in flight.
// It is safe for concurrent use.
type Reporter struct {
	interval time.Duration
	step     int
	onChange func(int)

	mu      sync.Mutex
	value   int
	stop    chan struct{}
	stopped chan struct{}
}

// New builds a Reporter. Non-positive interval or step fall back to defaults.
// onChange, when set, is called with every new value; it must not call back
// into the Reporter.
func New(interval time.Duration, step int, onChange func(int)) *Reporter {
	if interval <= 0 {
		interval = DefaultInterval
	}

	if step <= 0 {
		step = DefaultStep
	}

	return &Reporter{interval: interval, step: step, onChange: onChange}
}

// Value returns the current percentage.
func (r *Reporter) Value() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.value
}

// Running reports whether the ticker goroutine is active.
func (r *Reporter) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.stop != nil
}

// Start resets the value to 0 and begins ticking. Calling Start while running
// restarts from 0.
func (r *Reporter) Start() {
	r.Stop()

	r.mu.Lock()
	r.value = 0
	r.stop = make(chan struct{})
	r.stopped = make(chan struct{})
	stop, stopped := r.stop, r.stopped
	r.mu.Unlock()

	r.notify(0)

	go r.run(stop, stopped)
}

func (r *Reporter) run(stop, stopped chan struct{}) {
	defer close(stopped)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			r.tick(stop)
		}
	}
}

func (r *Reporter) tick(stop chan struct{}) {
	r.mu.Lock()

	// A Stop racing with the ticker wins: no value change after Stop returns.
	select {
	case <-stop:
		r.mu.Unlock()
		return
	default:
	}

	if r.value >= Ceiling {
		r.mu.Unlock()
		return
	}

	r.value = min(r.value+r.step, Ceiling)
	v := r.value
	r.mu.Unlock()

	r.notify(v)
}

// Stop halts ticking and leaves the value where it is. It returns once the
// ticker goroutine has exited.
func (r *Reporter) Stop() {
	r.mu.Lock()
	stop, stopped := r.stop, r.stopped
	r.stop, r.stopped = nil, nil

	if stop != nil {
		close(stop)
	}
	r.mu.Unlock()

	if stopped != nil {
		<-stopped
	}
}

// Reset halts ticking and puts the value back to 0.
func (r *Reporter) Reset() {
	r.Stop()

	r.mu.Lock()
	r.value = 0
	r.mu.Unlock()

	r.notify(0)
}

// Complete halts ticking and forces the value to Done.
func (r *Reporter) Complete() {
	r.Stop()

	r.mu.Lock()
	r.value = Done
	r.mu.Unlock()

	r.notify(Done)
}

func (r *Reporter) notify(v int) {
	if r.onChange != nil {
		r.onChange(v)
	}
}
