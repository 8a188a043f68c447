package sequencer

import (
	"log/slog"
	"time"

	"lautenbacher.net/eyedancer/actuator"
)

// BlinkUID is the uid and actuator owner token of the blink sequencer.
const BlinkUID = "blink"

// Lid is the part of the eyes the blink sequencer drives.
type Lid interface {
	ClaimLid(o actuator.Owner)
	ReleaseLid(o actuator.Owner)
	SetLid(o actuator.Owner, closed bool) error
}

type BlinkPhase int

const (
	BlinkIdle BlinkPhase = iota
	BlinkEyesClosed
	BlinkEyesOpenGap
)

func (p BlinkPhase) String() string {
	switch p {
	case BlinkIdle:
		return "idle"
	case BlinkEyesClosed:
		return "eyes-closed"
	case BlinkEyesOpenGap:
		return "eyes-open-gap"
	default:
		return "unknown"
	}
}

// Blink closes the lids count times, holding them closed for closedFor and
// open for openFor in between. It always leaves the eyes open.
type Blink struct {
	*AbstractSequencer
	lid       Lid
	phase     BlinkPhase
	remaining uint
	closedFor time.Duration
	openFor   time.Duration
}

func NewBlink(lid Lid, resolution time.Duration) *Blink {
	inst := &Blink{lid: lid}
	inst.AbstractSequencer = NewAbstractSequencer(BlinkUID, resolution, inst.fire)
	return inst
}

// Start begins a new blink sequence, overwriting one in progress. A count
// of zero does nothing.
func (s *Blink) Start(count uint, closedFor, openFor time.Duration) {
	if count == 0 {
		return
	}
	s.remaining = count
	s.closedFor = s.task.Quantize(closedFor)
	s.openFor = s.task.Quantize(openFor)
	slog.Info("Blinking", "count", count, "closed", s.closedFor, "open", s.openFor)

	s.lid.ClaimLid(s.owner())
	if !s.write(true) {
		return
	}
	s.task.Arm(s.closedFor)
	s.setPhase(BlinkEyesClosed)
}

func (s *Blink) fire() {
	switch s.phase {
	case BlinkEyesClosed:
		if !s.write(false) {
			return
		}
		s.remaining--
		if s.remaining > 0 {
			s.task.Arm(s.openFor)
			s.setPhase(BlinkEyesOpenGap)
		} else {
			s.lid.ReleaseLid(s.owner())
			s.setPhase(BlinkIdle)
		}
	case BlinkEyesOpenGap:
		if !s.write(true) {
			return
		}
		s.task.Arm(s.closedFor)
		s.setPhase(BlinkEyesClosed)
	}
}

// Stop cancels the sequence where it is. The lid is left as it was.
func (s *Blink) Stop() {
	s.task.Cancel()
	s.lid.ReleaseLid(s.owner())
	s.remaining = 0
	s.setPhase(BlinkIdle)
}

func (s *Blink) Phase() BlinkPhase {
	return s.phase
}

func (s *Blink) Remaining() uint {
	return s.remaining
}

func (s *Blink) GetIsRunning() bool {
	return s.phase != BlinkIdle
}

// write sets the lid; a rejected write means another owner took the lid
// and the sequence is abandoned.
func (s *Blink) write(closed bool) bool {
	if err := s.lid.SetLid(s.owner(), closed); err != nil {
		slog.Debug("Blink superseded", "error", err)
		s.task.Cancel()
		s.remaining = 0
		s.setPhase(BlinkIdle)
		return false
	}
	return true
}

func (s *Blink) setPhase(p BlinkPhase) {
	from := s.phase
	s.phase = p
	s.transition(from, p)
}
