package sequencer

import (
	"log/slog"
	"time"

	"lautenbacher.net/eyedancer/actuator"
)

// SpinUID is the uid and actuator owner token of the spin sequencer.
const SpinUID = "spin"

// Aim is the part of the eyes the spin and spell sequencers drive.
type Aim interface {
	ClaimAim(o actuator.Owner)
	ReleaseAim(o actuator.Owner)
	Aim(o actuator.Owner, deg int) error
	AimDirection(o actuator.Owner, d actuator.Direction) error
	Center(o actuator.Owner) error
}

type SpinPhase int

const (
	SpinIdle SpinPhase = iota
	SpinSpinning
)

func (p SpinPhase) String() string {
	switch p {
	case SpinIdle:
		return "idle"
	case SpinSpinning:
		return "spinning"
	default:
		return "unknown"
	}
}

// Spin sweeps the eyes through full circles, one degree per tick of the
// task resolution, and re-centers them when done.
type Spin struct {
	*AbstractSequencer
	aim       Aim
	phase     SpinPhase
	angle     int
	remaining uint
}

func NewSpin(aim Aim, resolution time.Duration) *Spin {
	inst := &Spin{aim: aim}
	inst.AbstractSequencer = NewAbstractSequencer(SpinUID, resolution, inst.fire)
	return inst
}

// Start spins the eyes through revolutions full circles, i.e. exactly
// 360*revolutions one degree steps. Zero revolutions do nothing.
func (s *Spin) Start(revolutions uint) {
	if revolutions == 0 {
		return
	}
	slog.Info("Spinning", "revolutions", revolutions)
	s.angle = 0
	// the revolution in progress is not counted as remaining
	s.remaining = revolutions - 1
	s.aim.ClaimAim(s.owner())
	s.task.Arm(0)
	s.setPhase(SpinSpinning)
}

func (s *Spin) fire() {
	if s.phase != SpinSpinning {
		return
	}
	if err := s.aim.Aim(s.owner(), s.angle); err != nil {
		slog.Debug("Spin superseded", "error", err)
		s.finish()
		return
	}
	s.angle++
	if s.angle >= 360 {
		if s.remaining == 0 {
			if err := s.aim.Center(s.owner()); err != nil {
				slog.Debug("Spin could not re-center", "error", err)
			}
			s.aim.ReleaseAim(s.owner())
			s.finish()
			return
		}
		s.remaining--
		s.angle = 0
	}
	s.task.Arm(s.task.Resolution())
}

// Stop ends the spin where it is, without re-centering.
func (s *Spin) Stop() {
	s.task.Cancel()
	s.aim.ReleaseAim(s.owner())
	s.finish()
}

func (s *Spin) Phase() SpinPhase {
	return s.phase
}

// Angle is the angle the next step will aim at.
func (s *Spin) Angle() int {
	return s.angle
}

func (s *Spin) Remaining() uint {
	return s.remaining
}

func (s *Spin) GetIsRunning() bool {
	return s.phase != SpinIdle
}

func (s *Spin) finish() {
	s.angle = 0
	s.remaining = 0
	s.setPhase(SpinIdle)
}

func (s *Spin) setPhase(p SpinPhase) {
	from := s.phase
	s.phase = p
	s.transition(from, p)
}
