// Package scheduler implements the cooperative deferred-task primitive and
// the tick scheduler that polls it. Nothing in here blocks or spawns a
// goroutine: the owner calls Poll from its own loop, once per pass.
package scheduler

import (
	"sync"
	"time"

	"lautenbacher.net/eyedancer/metrics"
)

// Clock is the scheduler's time source. Tests inject a ManualClock.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

// SystemClock returns the wall clock.
func SystemClock() Clock {
	return systemClock{}
}

// ManualClock is a virtual tick source that only moves when told to.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewManualClock() *ManualClock {
	return &ManualClock{now: time.Unix(0, 0)}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Scheduler measures elapsed time between passes and polls every
// registered task in registration order. Callbacks run strictly one after
// the other on the caller's goroutine.
type Scheduler struct {
	clock   Clock
	last    time.Time
	started bool
	tasks   []*Task
}

func New(clock Clock) *Scheduler {
	if clock == nil {
		clock = SystemClock()
	}
	return &Scheduler{clock: clock}
}

// Register adds a task to the poll set. Registering the same task twice is
// a no-op.
func (s *Scheduler) Register(t *Task) {
	for _, known := range s.tasks {
		if known == t {
			return
		}
	}
	s.tasks = append(s.tasks, t)
}

func (s *Scheduler) Tasks() []*Task {
	ret := make([]*Task, len(s.tasks))
	copy(ret, s.tasks)
	return ret
}

// Poll runs one scheduler pass and returns the number of callbacks fired.
func (s *Scheduler) Poll() int {
	now := s.clock.Now()
	var elapsed time.Duration
	if s.started {
		elapsed = now.Sub(s.last)
		if elapsed < 0 {
			elapsed = 0
		}
	}
	s.last = now
	s.started = true

	metrics.PollPasses.Inc()
	fired := 0
	for _, t := range s.tasks {
		if t.Poll(elapsed) {
			metrics.TaskFires.WithLabelValues(t.Name()).Inc()
			fired++
		}
	}
	return fired
}
