// Package metrics provides the Prometheus collectors of the eye dancer:
// command traffic, sequencer transitions, scheduler activity and the motor
// safety timer.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "eyedancer"

// Commands counts routed commands by command name ("unknown" for paths
// no route matched).
var Commands = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "commands_total",
	Help:      "Total routed commands.",
}, []string{"command"})

// Transitions counts sequencer state changes by the state entered.
var Transitions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "sequencer_transitions_total",
	Help:      "Total sequencer state transitions.",
}, []string{"sequencer", "state"})

// TaskFires counts deferred task callbacks.
var TaskFires = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "task_fires_total",
	Help:      "Total deferred task callbacks fired.",
}, []string{"task"})

// PollPasses counts scheduler passes.
var PollPasses = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "poll_passes_total",
	Help:      "Total scheduler poll passes.",
})

// MotorTimeouts counts motor runs ended by the safety timer.
var MotorTimeouts = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "motor_timeouts_total",
	Help:      "Total curtain motor runs stopped by the safety timeout.",
})

// MotorRunning is 1 while the curtain motor is commanded to run.
var MotorRunning = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Name:      "motor_running",
	Help:      "Whether the curtain motor is currently running.",
})

// RejectedWrites counts actuator writes refused because the writer did not
// own the resource.
var RejectedWrites = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "actuator_rejected_writes_total",
	Help:      "Total actuator writes rejected by owner arbitration.",
}, []string{"resource", "owner"})
