package sequencer

import (
	"log/slog"
	"time"

	"lautenbacher.net/eyedancer/actuator"
	"lautenbacher.net/eyedancer/metrics"
)

// CurtainUID is the uid of the curtain motor sequencer.
const CurtainUID = "curtain"

// HardCap is the longest the curtain motor may ever run per command.
const HardCap = 25 * time.Second

// Motor is the part of the actuator driver the curtain uses.
type Motor interface {
	SetMotorDirection(pin actuator.MotorPin, on bool)
	SetMotorSpeed(speed uint8)
}

// SpeedSource hands out the configured motor speed.
type SpeedSource interface {
	MotorSpeed() uint8
}

type CurtainDirection int

const (
	CurtainStop CurtainDirection = iota
	CurtainRaise
	CurtainLower
)

func (d CurtainDirection) String() string {
	switch d {
	case CurtainStop:
		return "stop"
	case CurtainRaise:
		return "raise"
	case CurtainLower:
		return "lower"
	default:
		return "unknown"
	}
}

// ClampTimeout returns the run length for a requested timeout: the
// requested value bounded by limit, or limit itself when nothing (zero or
// less) was requested.
func ClampTimeout(requested, limit time.Duration) time.Duration {
	if requested <= 0 || requested > limit {
		return limit
	}
	return requested
}

// Curtain drives the curtain motor. Every run is guarded by the safety
// timer: the timer is armed before the motor is started, and its firing
// stops the motor unconditionally.
type Curtain struct {
	*AbstractSequencer
	motor     Motor
	speed     SpeedSource
	limit     time.Duration
	direction CurtainDirection
	armedFor  time.Duration
}

// NewCurtain returns a stopped curtain. limit is the per-command run cap;
// values outside (0, HardCap] are replaced by HardCap.
func NewCurtain(motor Motor, speed SpeedSource, resolution, limit time.Duration) *Curtain {
	if limit <= 0 || limit > HardCap {
		limit = HardCap
	}
	inst := &Curtain{motor: motor, speed: speed, limit: limit}
	inst.AbstractSequencer = NewAbstractSequencer(CurtainUID, resolution, inst.fire)
	return inst
}

// Run starts the motor in direction dir for at most requested (clamped to
// the cap). Running again while running restarts the timeout. CurtainStop
// stops the motor and disarms the timer.
func (s *Curtain) Run(dir CurtainDirection, requested time.Duration) {
	if dir != CurtainRaise && dir != CurtainLower {
		s.Stop()
		return
	}
	timeout := s.task.Quantize(ClampTimeout(requested, s.limit))
	s.task.Arm(timeout)
	s.armedFor = timeout

	raise := dir == CurtainRaise
	// never both pins at once, so release the opposite one first
	s.motor.SetMotorDirection(actuator.MotorPinLower, false)
	s.motor.SetMotorDirection(actuator.MotorPinRaise, false)
	if raise {
		s.motor.SetMotorDirection(actuator.MotorPinRaise, true)
	} else {
		s.motor.SetMotorDirection(actuator.MotorPinLower, true)
	}
	speed := s.speed.MotorSpeed()
	s.motor.SetMotorSpeed(speed)
	metrics.MotorRunning.Set(1)
	slog.Info("Curtain running", "direction", dir.String(), "timeout", timeout, "speed", speed)
	s.setDirection(dir)
}

func (s *Curtain) fire() {
	slog.Info("Curtain timeout, stopping motor", "direction", s.direction.String(), "after", s.armedFor)
	metrics.MotorTimeouts.Inc()
	s.halt()
}

// Stop halts the motor and disarms the timer.
func (s *Curtain) Stop() {
	s.task.Cancel()
	s.halt()
}

func (s *Curtain) Direction() CurtainDirection {
	return s.direction
}

// ArmedFor is the run length the current (or last) run was armed with.
func (s *Curtain) ArmedFor() time.Duration {
	return s.armedFor
}

// Limit is the per-command run cap in effect.
func (s *Curtain) Limit() time.Duration {
	return s.limit
}

func (s *Curtain) GetIsRunning() bool {
	return s.direction != CurtainStop
}

func (s *Curtain) halt() {
	s.motor.SetMotorSpeed(0)
	s.motor.SetMotorDirection(actuator.MotorPinRaise, false)
	s.motor.SetMotorDirection(actuator.MotorPinLower, false)
	metrics.MotorRunning.Set(0)
	s.setDirection(CurtainStop)
}

func (s *Curtain) setDirection(d CurtainDirection) {
	from := s.direction
	s.direction = d
	s.transition(from, d)
}
