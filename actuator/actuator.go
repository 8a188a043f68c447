// Package actuator holds the physical outputs of the eye dancer: the two
// eye axes driven by digital potentiometer wipers, the eyelid relay and the
// reversible curtain motor.
package actuator

// Axis identifies one of the two eye axes.
type Axis int

const (
	AxisX Axis = iota
	AxisY
)

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	default:
		return "unknown"
	}
}

// MotorPin identifies one of the two curtain motor direction pins.
type MotorPin int

const (
	MotorPinRaise MotorPin = iota
	MotorPinLower
)

func (p MotorPin) String() string {
	switch p {
	case MotorPinRaise:
		return "raise"
	case MotorPinLower:
		return "lower"
	default:
		return "unknown"
	}
}

// Driver is the hardware surface the core writes to. Implementations set
// the value physically and never fail from the caller's point of view.
type Driver interface {
	SetAxis(axis Axis, value uint8)
	SetRelay(on bool)
	SetMotorDirection(pin MotorPin, on bool)
	SetMotorSpeed(value uint8)
}

// Direction is one of the eight compass directions the eyes can point to,
// plus Forward (centered).
type Direction int

const (
	DirUp Direction = iota
	DirUpRight
	DirRight
	DirDownRight
	DirDown
	DirDownLeft
	DirLeft
	DirUpLeft
	DirForward
)

// CompassDirections is the number of directions with an angle.
const CompassDirections = 8

var directionNames = [...]string{"up", "up-right", "right", "down-right", "down", "down-left", "left", "up-left", "forward"}

func (d Direction) String() string {
	if d < 0 || int(d) >= len(directionNames) {
		return "unknown"
	}
	return directionNames[d]
}

// Degrees returns the aim angle of a compass direction. Forward has no
// angle and returns false.
func (d Direction) Degrees() (int, bool) {
	if d < DirUp || d > DirUpLeft {
		return 0, false
	}
	return int(d) * 45, true
}

// NormalizeDegrees folds any integer angle into [0, 360).
func NormalizeDegrees(deg int) int {
	deg %= 360
	if deg < 0 {
		deg += 360
	}
	return deg
}
