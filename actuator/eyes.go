package actuator

import (
	"errors"
	"log/slog"

	"lautenbacher.net/eyedancer/metrics"
)

// ErrNotOwner is returned for a write from a caller that does not hold the
// resource it writes to.
var ErrNotOwner = errors.New("actuator: caller does not own the resource")

// Owner is the token a writer presents. Sequencers use their UID.
type Owner string

// OwnerManual is the owner of all direct operator commands.
const OwnerManual Owner = "manual"

// NoOwner marks an unclaimed resource.
const NoOwner Owner = ""

// EyesState is a snapshot of the eye outputs.
type EyesState struct {
	Degrees   int   `json:"degrees"`
	Centered  bool  `json:"centered"`
	X         uint8 `json:"x"`
	Y         uint8 `json:"y"`
	LidClosed bool  `json:"lidClosed"`
	AimOwner  Owner `json:"aimOwner"`
	LidOwner  Owner `json:"lidOwner"`
}

// Eyes arbitrates the aim (both axes) and the lid relay between the
// sequencers. Each resource has one owner at a time; the latest Claim wins
// and writes from anybody else are rejected with ErrNotOwner. Eyes is not
// safe for concurrent use, it lives on the controller's loop.
type Eyes struct {
	driver   Driver
	mapping  Mapping
	aimOwner Owner
	lidOwner Owner
	state    EyesState
}

func NewEyes(driver Driver, mapping Mapping) *Eyes {
	return &Eyes{
		driver:  driver,
		mapping: mapping,
		state:   EyesState{Centered: true},
	}
}

func (e *Eyes) Mapping() Mapping {
	return e.mapping
}

// ClaimAim hands the aim to o, superseding the previous owner.
func (e *Eyes) ClaimAim(o Owner) {
	if e.aimOwner != o && e.aimOwner != NoOwner {
		slog.Debug("Aim superseded", "from", e.aimOwner, "to", o)
	}
	e.aimOwner = o
	e.state.AimOwner = o
}

// ReleaseAim gives the aim up if o still holds it.
func (e *Eyes) ReleaseAim(o Owner) {
	if e.aimOwner == o {
		e.aimOwner = NoOwner
		e.state.AimOwner = NoOwner
	}
}

func (e *Eyes) AimOwner() Owner {
	return e.aimOwner
}

// ClaimLid hands the lid relay to o, superseding the previous owner.
func (e *Eyes) ClaimLid(o Owner) {
	if e.lidOwner != o && e.lidOwner != NoOwner {
		slog.Debug("Lid superseded", "from", e.lidOwner, "to", o)
	}
	e.lidOwner = o
	e.state.LidOwner = o
}

// ReleaseLid gives the lid up if o still holds it.
func (e *Eyes) ReleaseLid(o Owner) {
	if e.lidOwner == o {
		e.lidOwner = NoOwner
		e.state.LidOwner = NoOwner
	}
}

func (e *Eyes) LidOwner() Owner {
	return e.lidOwner
}

// Aim points the eyes at deg.
func (e *Eyes) Aim(o Owner, deg int) error {
	if err := e.checkAim(o); err != nil {
		return err
	}
	deg = NormalizeDegrees(deg)
	x, y := e.mapping.Project(deg)
	slog.Debug("Setting aim", "degrees", deg, "x", x, "y", y)
	e.write(x, y)
	e.state.Degrees = deg
	e.state.Centered = false
	return nil
}

// AimDirection points the eyes at a compass direction; Forward centers.
func (e *Eyes) AimDirection(o Owner, d Direction) error {
	deg, ok := d.Degrees()
	if !ok {
		return e.Center(o)
	}
	return e.Aim(o, deg)
}

// Center returns the eyes to the neutral forward position.
func (e *Eyes) Center(o Owner) error {
	if err := e.checkAim(o); err != nil {
		return err
	}
	x, y := e.mapping.Neutral()
	e.write(x, y)
	e.state.Centered = true
	return nil
}

// SetLid closes or opens the lids.
func (e *Eyes) SetLid(o Owner, closed bool) error {
	if e.lidOwner != o {
		metrics.RejectedWrites.WithLabelValues("lid", string(o)).Inc()
		return ErrNotOwner
	}
	e.driver.SetRelay(e.mapping.RelayLevel(closed))
	e.state.LidClosed = closed
	return nil
}

func (e *Eyes) State() EyesState {
	return e.state
}

func (e *Eyes) checkAim(o Owner) error {
	if e.aimOwner != o {
		metrics.RejectedWrites.WithLabelValues("aim", string(o)).Inc()
		return ErrNotOwner
	}
	return nil
}

func (e *Eyes) write(x, y uint8) {
	e.driver.SetAxis(AxisX, x)
	e.driver.SetAxis(AxisY, y)
	e.state.X = x
	e.state.Y = y
}
