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

// State identifies a single state of an executable state machine.
type State string

// TransitionRules maps each state to the set of states it may legally
// transition to. Every state change in the system is validated against this
// table; handlers never bypass it.
type TransitionRules map[State][]State

// Allows reports whether the table permits a transition from src to dst.
func (r TransitionRules) Allows(src, dst State) bool {
	for _, s := range r[src] {
		if s == dst {
			return true
		}
	}
	return false
}

// Handler executes the work bound to a state and returns the next state.
// Returning the empty state means "stay here". A returned error (or a panic)
// forces the machine into its configured error state.
type Handler[C any] func(c C) (State, error)

// Hook is an optional side-effect callback fired on state entry or exit.
// Hooks must not drive transitions.
type Hook[C any] func(c C)

// StateSpec binds a state to its handler and optional entry/exit hooks.
type StateSpec[C any] struct {
	State   State
	Handler Handler[C]
	OnEnter Hook[C]
	OnExit  Hook[C]
}

// Registry holds the full set of state bindings for a machine. Registering
// the same state twice overwrites the earlier binding; registration happens
// once at build time.
type Registry[C any] struct {
	specs map[State]StateSpec[C]
}

// NewRegistry creates an empty registry.
func NewRegistry[C any]() *Registry[C] {
	return &Registry[C]{specs: make(map[State]StateSpec[C])}
}

// Register adds or replaces the binding for spec.State.
func (r *Registry[C]) Register(spec StateSpec[C]) {
	r.specs[spec.State] = spec
}

// Get returns the binding for the state, if registered.
func (r *Registry[C]) Get(state State) (StateSpec[C], bool) {
	spec, ok := r.specs[state]
	return spec, ok
}

// Len returns the number of registered states.
func (r *Registry[C]) Len() int {
	return len(r.specs)
}
