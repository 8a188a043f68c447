package sequencer

import (
	"fmt"
	"log/slog"
	"time"

	"lautenbacher.net/eyedancer/actuator"
	"lautenbacher.net/eyedancer/metrics"
	"lautenbacher.net/eyedancer/scheduler"
)

// Sequencer is the outside interface all concrete sequencers fulfill.
type Sequencer interface {
	GetUID() string
	// Task is the one deferred task the sequencer advances with. The
	// controller registers it with the scheduler.
	Task() *scheduler.Task
	GetIsRunning() bool
	Stop()
}

// Observer is told about every state change of a sequencer.
type Observer func(uid string, from, to fmt.Stringer)

// AbstractSequencer carries what all the concrete sequencers share: the
// uid (which doubles as the actuator owner token), the task and the
// transition bookkeeping. The concrete implementation MUST pass its fire
// method as the task callback.
type AbstractSequencer struct {
	uid      string
	task     *scheduler.Task
	observer Observer
}

func NewAbstractSequencer(uid string, resolution time.Duration, fire func()) *AbstractSequencer {
	return &AbstractSequencer{
		uid:  uid,
		task: scheduler.NewTask(uid, resolution, fire),
	}
}

// The UID of the sequencer. Must be globally unique
func (s *AbstractSequencer) GetUID() string {
	return s.uid
}

func (s *AbstractSequencer) Task() *scheduler.Task {
	return s.task
}

// SetObserver installs the transition observer. Passing nil removes it.
func (s *AbstractSequencer) SetObserver(o Observer) {
	s.observer = o
}

func (s *AbstractSequencer) owner() actuator.Owner {
	return actuator.Owner(s.uid)
}

func (s *AbstractSequencer) transition(from, to fmt.Stringer) {
	if from == to {
		return
	}
	slog.Debug("Sequencer transition", "sequencer", s.uid, "from", from.String(), "to", to.String())
	metrics.Transitions.WithLabelValues(s.uid, to.String()).Inc()
	if s.observer != nil {
		s.observer(s.uid, from, to)
	}
}
