package platform

import (
	"lautenbacher.net/eyedancer/actuator"
	"lautenbacher.net/eyedancer/util"
)

// Platform abstracts the real hardware from the TUI simulation. Both
// drive the eyes and the curtain through the actuator.Driver methods.
type Platform interface {
	actuator.Driver

	// Start initializes the platform (opens GPIO/SPI, or starts the TUI).
	Start() error

	// Stop puts every output into its safe state and frees the platform's
	// resources.
	Stop()

	// Ready is closed once the platform accepts writes.
	Ready() <-chan bool

	// Snapshot returns the current state of all outputs.
	Snapshot() Snapshot

	// History returns the most recent output writes, oldest first.
	History() []util.Event
}
