package platform

import (
	"sync"
	"time"

	"github.com/gammazero/deque"

	"lautenbacher.net/eyedancer/actuator"
	"lautenbacher.net/eyedancer/util"
)

// DefaultHistorySize is the number of output writes kept for inspection.
const DefaultHistorySize = 200

// Snapshot is the state of all outputs as last written.
type Snapshot struct {
	X          uint8 `json:"x"`
	Y          uint8 `json:"y"`
	Relay      bool  `json:"relay"`
	MotorRaise bool  `json:"motorRaise"`
	MotorLower bool  `json:"motorLower"`
	MotorSpeed uint8 `json:"motorSpeed"`
}

// outputs is what a concrete platform does with a write after the
// abstract platform recorded it.
type outputs interface {
	writeAxis(axis actuator.Axis, value uint8)
	writeRelay(on bool)
	writeMotorPin(pin actuator.MotorPin, on bool)
	writeMotorSpeed(speed uint8)
}

// AbstractPlatform records every write (state snapshot and a bounded
// history) before handing it to the concrete platform, and announces the
// new snapshot on an AtomicEvent.
type AbstractPlatform struct {
	mu          sync.Mutex
	state       Snapshot
	history     deque.Deque[util.Event]
	historySize int
	changes     *util.AtomicEvent[Snapshot]
	out         outputs
	now         func() time.Time
	readyChan   chan bool
}

func newAbstractPlatform(out outputs, historySize int) *AbstractPlatform {
	if historySize <= 0 {
		historySize = DefaultHistorySize
	}
	return &AbstractPlatform{
		historySize: historySize,
		changes:     util.NewAtomicEvent[Snapshot](),
		out:         out,
		now:         time.Now,
		readyChan:   make(chan bool),
	}
}

func (s *AbstractPlatform) Ready() <-chan bool {
	return s.readyChan
}

func (s *AbstractPlatform) SetAxis(axis actuator.Axis, value uint8) {
	s.record("axis-"+axis.String(), int(value), func(st *Snapshot) {
		if axis == actuator.AxisX {
			st.X = value
		} else {
			st.Y = value
		}
	})
	s.out.writeAxis(axis, value)
}

func (s *AbstractPlatform) SetRelay(on bool) {
	s.record("relay", boolValue(on), func(st *Snapshot) { st.Relay = on })
	s.out.writeRelay(on)
}

func (s *AbstractPlatform) SetMotorDirection(pin actuator.MotorPin, on bool) {
	s.record("motor-"+pin.String(), boolValue(on), func(st *Snapshot) {
		if pin == actuator.MotorPinRaise {
			st.MotorRaise = on
		} else {
			st.MotorLower = on
		}
	})
	s.out.writeMotorPin(pin, on)
}

func (s *AbstractPlatform) SetMotorSpeed(speed uint8) {
	s.record("motor-speed", int(speed), func(st *Snapshot) { st.MotorSpeed = speed })
	s.out.writeMotorSpeed(speed)
}

func (s *AbstractPlatform) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *AbstractPlatform) History() []util.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	ret := make([]util.Event, 0, s.history.Len())
	for i := 0; i < s.history.Len(); i++ {
		ret = append(ret, s.history.At(i))
	}
	return ret
}

// Changes notifies about new snapshots. Only the latest one is kept.
func (s *AbstractPlatform) Changes() *util.AtomicEvent[Snapshot] {
	return s.changes
}

// safeState stops the motor and releases both direction pins.
func (s *AbstractPlatform) safeState() {
	s.SetMotorSpeed(0)
	s.SetMotorDirection(actuator.MotorPinRaise, false)
	s.SetMotorDirection(actuator.MotorPinLower, false)
}

func (s *AbstractPlatform) record(source string, value int, apply func(*Snapshot)) {
	s.mu.Lock()
	apply(&s.state)
	s.history.PushBack(util.NewEvent(source, value, s.now()))
	for s.history.Len() > s.historySize {
		s.history.PopFront()
	}
	snap := s.state
	s.mu.Unlock()
	s.changes.Send(snap)
}

func boolValue(b bool) int {
	if b {
		return 1
	}
	return 0
}
