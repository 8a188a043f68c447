package scheduler

import (
	"time"
)

// Task is a single-shot deferred callback. It fires once, no sooner than
// the armed delay, and may re-arm itself from inside its own callback to
// build a chain. A task is owned by exactly one sequencer and never shared.
type Task struct {
	name       string
	resolution time.Duration
	callback   func()
	armed      bool
	// set by Arm, cleared by the first Poll after it. The first pass after
	// arming does not count elapsed time that passed before the arm call.
	fresh     bool
	remaining time.Duration
}

// NewTask creates a disarmed task. Every delay given to Arm is rounded down
// to a multiple of resolution. A resolution <= 0 means no quantization.
func NewTask(name string, resolution time.Duration, callback func()) *Task {
	return &Task{
		name:       name,
		resolution: resolution,
		callback:   callback,
	}
}

func (t *Task) Name() string {
	return t.name
}

func (t *Task) Resolution() time.Duration {
	return t.resolution
}

// Quantize rounds d down to the task's resolution. Negative durations
// become zero.
func (t *Task) Quantize(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	if t.resolution <= 0 {
		return d
	}
	return d.Truncate(t.resolution)
}

// Arm schedules the callback. Arming an armed task replaces the pending
// countdown, it never stacks a second firing.
func (t *Task) Arm(delay time.Duration) {
	t.remaining = t.Quantize(delay)
	t.armed = true
	t.fresh = true
}

// Cancel disarms the task without firing it.
func (t *Task) Cancel() {
	t.armed = false
	t.fresh = false
	t.remaining = 0
}

func (t *Task) Armed() bool {
	return t.armed
}

// Remaining returns the delay left before the task is due. It is zero for a
// disarmed task.
func (t *Task) Remaining() time.Duration {
	if !t.armed {
		return 0
	}
	return t.remaining
}

// Poll advances the countdown by elapsed and fires the callback when it is
// due. The task is disarmed before the callback runs, so the callback is
// free to arm it again. Returns true if the callback ran.
func (t *Task) Poll(elapsed time.Duration) bool {
	if !t.armed {
		return false
	}
	if t.fresh {
		t.fresh = false
	} else if elapsed > 0 {
		t.remaining -= elapsed
	}
	if t.remaining > 0 {
		return false
	}
	t.armed = false
	t.remaining = 0
	if t.callback != nil {
		t.callback()
	}
	return true
}
