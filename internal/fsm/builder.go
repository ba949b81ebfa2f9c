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
	"errors"

	"github.com/looplab/fsm"
	"go.uber.org/zap"

	"github.com/dispenso/gluecell/pkg/logger"
)

// Builder assembles a Machine from a rule table and a state registry.
type Builder[C any] struct {
	id         string
	initial    State
	rules      TransitionRules
	registry   *Registry[C]
	context    C
	errorState State
	publisher  Publisher
	stateTopic string
	logger     *zap.SugaredLogger
}

func NewBuilder[C any]() *Builder[C] {
	return &Builder[C]{}
}

func (b *Builder[C]) WithID(id string) *Builder[C] {
	b.id = id
	return b
}

func (b *Builder[C]) WithInitialState(s State) *Builder[C] {
	b.initial = s
	return b
}

func (b *Builder[C]) WithTransitionRules(rules TransitionRules) *Builder[C] {
	b.rules = rules
	return b
}

func (b *Builder[C]) WithRegistry(r *Registry[C]) *Builder[C] {
	b.registry = r
	return b
}

func (b *Builder[C]) WithContext(c C) *Builder[C] {
	b.context = c
	return b
}

// WithErrorState sets the state the run loop falls into after a handler
// error or panic.
func (b *Builder[C]) WithErrorState(s State) *Builder[C] {
	b.errorState = s
	return b
}

// WithPublisher makes every successful transition announce the new state on
// the given topic.
func (b *Builder[C]) WithPublisher(p Publisher, topic string) *Builder[C] {
	b.publisher = p
	b.stateTopic = topic
	return b
}

func (b *Builder[C]) WithLogger(log *zap.SugaredLogger) *Builder[C] {
	b.logger = log
	return b
}

// Build compiles the rule table into looplab events, one event per target
// state, and returns the ready machine.
func (b *Builder[C]) Build() (*Machine[C], error) {
	if b.initial == "" {
		return nil, errors.New("initial state must be set")
	}
	if b.registry == nil {
		return nil, errors.New("state registry must be set")
	}

	log := b.logger
	if log == nil {
		log = logger.For(logger.ComponentStateMachine)
	}

	// Group rules by destination so each target state gets one event with
	// every legal source listed.
	sources := make(map[State][]string)
	for src, dsts := range b.rules {
		for _, dst := range dsts {
			sources[dst] = append(sources[dst], string(src))
		}
	}

	events := make(fsm.Events, 0, len(sources))
	for dst, srcs := range sources {
		events = append(events, fsm.EventDesc{
			Name: eventName(dst),
			Src:  srcs,
			Dst:  string(dst),
		})
	}

	return &Machine[C]{
		id:         b.id,
		fsm:        fsm.NewFSM(string(b.initial), events, fsm.Callbacks{}),
		rules:      b.rules,
		registry:   b.registry,
		context:    b.context,
		errorState: b.errorState,
		publisher:  b.publisher,
		stateTopic: b.stateTopic,
		logger:     log,
	}, nil
}
