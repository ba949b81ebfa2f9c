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

package fsm

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/looplab/fsm"
	"go.uber.org/zap"

	"github.com/dispenso/gluecell/pkg/metrics"
	"github.com/dispenso/gluecell/pkg/procerror"
)

// Publisher receives state announcements on every successful transition.
type Publisher interface {
	Publish(topic string, payload any)
}

// Machine is an executable state machine: it owns the current state, validates
// every transition against a closed rule table, and drives a run loop that
// invokes the handler registered for the current state until a stop is
// requested.
//
// The rule table is compiled into one looplab/fsm event per reachable target
// state, so transition legality is enforced by the underlying FSM rather than
// re-implemented here.
type Machine[C any] struct {
	id       string
	fsm      *fsm.FSM
	rules    TransitionRules
	registry *Registry[C]
	context  C

	errorState State
	publisher  Publisher
	stateTopic string
	logger     *zap.SugaredLogger

	// transitionMu serializes Transition so hook and publish ordering
	// matches the order of state changes.
	transitionMu sync.Mutex

	stopRequested atomic.Bool
	running       atomic.Bool
}

// eventName is the looplab event that moves the machine into dst.
func eventName(dst State) string {
	return "to_" + string(dst)
}

// Current returns the state the machine is in right now.
func (m *Machine[C]) Current() State {
	return State(m.fsm.Current())
}

// Context returns the shared execution context the handlers operate on.
func (m *Machine[C]) Context() C {
	return m.context
}

// CanTransition reports whether the rule table permits moving from the
// current state to next.
func (m *Machine[C]) CanTransition(next State) bool {
	return m.rules.Allows(m.Current(), next)
}

// Transition moves the machine into next if the rule table allows it from the
// current state. It returns false, leaving the state untouched, otherwise.
// This is the single enforcement point for the legality of every state change.
func (m *Machine[C]) Transition(next State) bool {
	m.transitionMu.Lock()
	defer m.transitionMu.Unlock()

	src := m.Current()
	if err := m.fsm.Event(context.Background(), eventName(next)); err != nil {
		metrics.ObserveRejectedTransition(string(src), string(next))
		m.logger.Debugw("transition rejected", "from", src, "to", next, "reason", err)
		return false
	}

	if spec, ok := m.registry.Get(src); ok && spec.OnExit != nil {
		spec.OnExit(m.context)
	}
	if spec, ok := m.registry.Get(next); ok && spec.OnEnter != nil {
		spec.OnEnter(m.context)
	}

	metrics.ObserveStateTransition(string(src), string(next))
	if m.publisher != nil {
		m.publisher.Publish(m.stateTopic, next)
	}

	return true
}

// StopExecution requests the run loop to stop. The currently executing
// handler still completes: hardware calls cannot be interrupted safely
// mid-flight.
func (m *Machine[C]) StopExecution() {
	m.stopRequested.Store(true)
}

// StopRequested reports whether a stop has been requested.
func (m *Machine[C]) StopRequested() bool {
	return m.stopRequested.Load()
}

// Running reports whether the run loop is active.
func (m *Machine[C]) Running() bool {
	return m.running.Load()
}

// StartExecution runs the state machine loop on the calling goroutine until
// StopExecution is called. Each iteration invokes the handler bound to the
// current state and applies the returned next state via Transition. A handler
// error or panic forces the machine into its error state instead of
// propagating: an unsupervised robot or pump is the one outcome the loop must
// never produce.
func (m *Machine[C]) StartExecution(delay time.Duration) {
	if !m.running.CompareAndSwap(false, true) {
		m.logger.Warnw("state machine already executing", "id", m.id)
		return
	}
	defer m.running.Store(false)
	m.stopRequested.Store(false)

	for !m.stopRequested.Load() {
		state := m.Current()

		spec, ok := m.registry.Get(state)
		if !ok || spec.Handler == nil {
			time.Sleep(delay)
			continue
		}

		started := time.Now()
		next, err := m.invoke(spec)
		metrics.ObserveHandlerDuration(string(state), time.Since(started))

		switch {
		case err != nil:
			err = procerror.Categorize(err)
			m.logger.Errorw("state handler failed", "id", m.id, "state", state,
				"error", err, "cause", procerror.ExtractOriginalError(err))
			metrics.IncErrorCount(metrics.ComponentStateMachine, m.id)
			if state != m.errorState && !m.Transition(m.errorState) {
				// No legal route to the error state: nothing sane left to
				// run, stop supervising.
				m.logger.Errorw("cannot reach error state, stopping execution",
					"id", m.id, "from", state)
				m.stopRequested.Store(true)
			}
		case next != "" && next != state:
			m.Transition(next)
		}

		time.Sleep(delay)
	}

	m.logger.Debugw("state machine execution stopped", "id", m.id, "state", m.Current())
}

// invoke runs the handler with panic containment.
func (m *Machine[C]) invoke(spec StateSpec[C]) (next State, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic in state %s: %v\n%s", spec.State, r, debug.Stack())
		}
	}()

	return spec.Handler(m.context)
}

// SetStateForTesting forces the current state without consulting the rule
// table. Tests only.
func (m *Machine[C]) SetStateForTesting(state State) {
	m.fsm.SetState(string(state))
}
