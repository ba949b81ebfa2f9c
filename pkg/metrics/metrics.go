// Copyright 2026 Dispenso Robotics GmbH
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// Component labels.
	ComponentStateMachine   = "state_machine"
	ComponentGlueProcess    = "glue_process"
	ComponentPumpController = "pump_controller"
	ComponentPumpAdjust     = "pump_adjust"
	ComponentRobotService   = "robot_service"
	ComponentGlueService    = "glue_service"

	// Outcome labels for pump actuation counters.
	OutcomeSuccess = "ok"
	OutcomeFailure = "failed"
)

var (
	namespace = "dispenso"
	subsystem = "gluecell"

	// Error counters.
	errorCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "errors_total",
			Help:      "Total number of errors encountered by component",
		},
		[]string{"component", "instance"},
	)

	// State transition counter.
	stateTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "state_transitions_total",
			Help:      "Total number of state machine transitions by source and destination state",
		},
		[]string{"from", "to"},
	)

	// Rejected transition counter.
	rejectedTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "state_transitions_rejected_total",
			Help:      "Total number of transitions rejected by the legality table",
		},
		[]string{"from", "to"},
	)

	// Handler timing.
	handlerDuration = promauto.NewSummaryVec(
		prometheus.SummaryOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "handler_duration_milliseconds",
			Help:      "Time taken by a state handler invocation (in milliseconds)",
			Objectives: map[float64]float64{
				0.5:  0.01,
				0.9:  0.01,
				0.95: 0.01,
				0.99: 0.01,
			},
		},
		[]string{"state"},
	)

	// Pump actuation counters.
	pumpStarts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "pump_starts_total",
			Help:      "Total number of pump start sequences by outcome",
		},
		[]string{"outcome"},
	)

	pumpStops = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "pump_stops_total",
			Help:      "Total number of pump stop sequences by outcome",
		},
		[]string{"outcome"},
	)
)

// IncErrorCount increments the error counter for a component and instance.
func IncErrorCount(component string, instance string) {
	errorCounter.WithLabelValues(component, instance).Inc()
}

// InitErrorCounter pre-registers the error counter labels so it is visible
// with a zero value before the first error occurs.
func InitErrorCounter(component string, instance string) {
	errorCounter.WithLabelValues(component, instance).Add(0)
}

// ObserveStateTransition records a successful state machine transition.
func ObserveStateTransition(from, to string) {
	stateTransitions.WithLabelValues(from, to).Inc()
}

// ObserveRejectedTransition records a transition rejected by the rule table.
func ObserveRejectedTransition(from, to string) {
	rejectedTransitions.WithLabelValues(from, to).Inc()
}

// ObserveHandlerDuration records how long a state handler took.
func ObserveHandlerDuration(state string, duration time.Duration) {
	handlerDuration.WithLabelValues(state).Observe(float64(duration.Milliseconds()))
}

// ObservePumpStart records the outcome ("ok" or "failed") of a pump start sequence.
func ObservePumpStart(outcome string) {
	pumpStarts.WithLabelValues(outcome).Inc()
}

// ObservePumpStop records the outcome ("ok" or "failed") of a pump stop sequence.
func ObservePumpStop(outcome string) {
	pumpStops.WithLabelValues(outcome).Inc()
}
