package actuator

import (
	"math"
)

// Mapping projects an aim angle onto the two axis drive values:
// center + radius*scale*cos for x and center + radius*scale*sin for y,
// clamped into [Min, Max]. ScaleX and ScaleY compensate mechanical
// asymmetry of the eye rig.
type Mapping struct {
	Center float64
	Radius float64
	ScaleX float64
	ScaleY float64
	Min    uint8
	Max    uint8
	// RelayOnWhenClosed selects the relay polarity. The stock rig energises
	// the relay to hold the lids open.
	RelayOnWhenClosed bool
}

// DefaultMapping matches the 8 bit MCP41xxx wipers of the stock rig.
func DefaultMapping() Mapping {
	return Mapping{
		Center: 128,
		Radius: 128,
		ScaleX: 1,
		ScaleY: 1,
		Min:    0,
		Max:    255,
	}
}

// Project converts deg (any integer, folded into [0, 360)) into axis values.
func (m Mapping) Project(deg int) (x, y uint8) {
	radians := float64(NormalizeDegrees(deg)) * 2 * math.Pi / 360
	return m.clamp(m.Center + m.Radius*m.ScaleX*math.Cos(radians)),
		m.clamp(m.Center + m.Radius*m.ScaleY*math.Sin(radians))
}

// Neutral returns the centered axis values.
func (m Mapping) Neutral() (x, y uint8) {
	c := m.clamp(m.Center)
	return c, c
}

// RelayLevel converts the logical lid state into the relay output level.
func (m Mapping) RelayLevel(closed bool) bool {
	if m.RelayOnWhenClosed {
		return closed
	}
	return !closed
}

func (m Mapping) clamp(v float64) uint8 {
	v = math.Floor(v)
	if v < float64(m.Min) {
		return m.Min
	}
	if v > float64(m.Max) {
		return m.Max
	}
	return uint8(v)
}
