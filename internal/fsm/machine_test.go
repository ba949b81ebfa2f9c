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
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/dispenso/gluecell/pkg/procerror"
)

const (
	stateIdle    State = "IDLE"
	stateWork    State = "WORK"
	stateDone    State = "DONE"
	stateFailed  State = "ERROR"
	stateOrphan  State = "ORPHAN"
	tickInterval       = time.Millisecond
)

type testContext struct {
	mu      sync.Mutex
	visited []State
	entered []State
	exited  []State
}

func (c *testContext) record(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.visited = append(c.visited, s)
}

func (c *testContext) visits() []State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]State(nil), c.visited...)
}

type recordingPublisher struct {
	mu       sync.Mutex
	messages []any
}

func (p *recordingPublisher) Publish(topic string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, payload)
}

func (p *recordingPublisher) published() []any {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]any(nil), p.messages...)
}

func testRules() TransitionRules {
	return TransitionRules{
		stateIdle:   {stateWork, stateFailed},
		stateWork:   {stateDone, stateFailed},
		stateDone:   {stateIdle},
		stateFailed: {stateIdle},
	}
}

var _ = Describe("Machine", func() {
	var (
		ctx      *testContext
		registry *Registry[*testContext]
	)

	BeforeEach(func() {
		ctx = &testContext{}
		registry = NewRegistry[*testContext]()
	})

	buildMachine := func(opts ...func(*Builder[*testContext])) *Machine[*testContext] {
		b := NewBuilder[*testContext]().
			WithID("test-machine").
			WithInitialState(stateIdle).
			WithTransitionRules(testRules()).
			WithRegistry(registry).
			WithContext(ctx).
			WithErrorState(stateFailed)
		for _, opt := range opts {
			opt(b)
		}
		m, err := b.Build()
		Expect(err).ToNot(HaveOccurred())
		return m
	}

	Describe("Build", func() {
		It("should fail without an initial state", func() {
			_, err := NewBuilder[*testContext]().WithRegistry(registry).Build()
			Expect(err).To(MatchError("initial state must be set"))
		})

		It("should fail without a registry", func() {
			_, err := NewBuilder[*testContext]().WithInitialState(stateIdle).Build()
			Expect(err).To(MatchError("state registry must be set"))
		})

		It("should start in the initial state", func() {
			Expect(buildMachine().Current()).To(Equal(stateIdle))
		})
	})

	Describe("Transition", func() {
		It("should follow a legal transition", func() {
			m := buildMachine()
			Expect(m.Transition(stateWork)).To(BeTrue())
			Expect(m.Current()).To(Equal(stateWork))
		})

		It("should reject an illegal transition and keep the state", func() {
			m := buildMachine()
			Expect(m.Transition(stateDone)).To(BeFalse())
			Expect(m.Current()).To(Equal(stateIdle))
		})

		It("should reject a transition to an unknown state", func() {
			m := buildMachine()
			Expect(m.Transition(stateOrphan)).To(BeFalse())
			Expect(m.Current()).To(Equal(stateIdle))
		})

		It("should report legality via CanTransition", func() {
			m := buildMachine()
			Expect(m.CanTransition(stateWork)).To(BeTrue())
			Expect(m.CanTransition(stateDone)).To(BeFalse())
			Expect(m.CanTransition(stateOrphan)).To(BeFalse())

			Expect(m.Transition(stateWork)).To(BeTrue())
			Expect(m.CanTransition(stateDone)).To(BeTrue())
			Expect(m.CanTransition(stateWork)).To(BeFalse())
		})

		It("should fire exit and enter hooks in order", func() {
			registry.Register(StateSpec[*testContext]{
				State: stateIdle,
				OnExit: func(c *testContext) {
					c.mu.Lock()
					c.exited = append(c.exited, stateIdle)
					c.mu.Unlock()
				},
			})
			registry.Register(StateSpec[*testContext]{
				State: stateWork,
				OnEnter: func(c *testContext) {
					c.mu.Lock()
					c.entered = append(c.entered, stateWork)
					c.mu.Unlock()
				},
			})

			m := buildMachine()
			Expect(m.Transition(stateWork)).To(BeTrue())
			Expect(ctx.exited).To(Equal([]State{stateIdle}))
			Expect(ctx.entered).To(Equal([]State{stateWork}))
		})

		It("should publish the new state on every successful transition", func() {
			pub := &recordingPublisher{}
			m := buildMachine(func(b *Builder[*testContext]) {
				b.WithPublisher(pub, "test.state")
			})

			Expect(m.Transition(stateWork)).To(BeTrue())
			Expect(m.Transition(stateDone)).To(BeTrue())
			Expect(pub.published()).To(Equal([]any{stateWork, stateDone}))
		})

		It("should not publish rejected transitions", func() {
			pub := &recordingPublisher{}
			m := buildMachine(func(b *Builder[*testContext]) {
				b.WithPublisher(pub, "test.state")
			})

			Expect(m.Transition(stateDone)).To(BeFalse())
			Expect(pub.published()).To(BeEmpty())
		})
	})

	Describe("StartExecution", func() {
		It("should run handlers and follow the states they return", func() {
			registry.Register(StateSpec[*testContext]{
				State: stateIdle,
				Handler: func(c *testContext) (State, error) {
					c.record(stateIdle)
					return stateWork, nil
				},
			})
			registry.Register(StateSpec[*testContext]{
				State: stateWork,
				Handler: func(c *testContext) (State, error) {
					c.record(stateWork)
					return stateDone, nil
				},
			})

			m := buildMachine()
			done := make(chan struct{})
			go func() {
				defer close(done)
				m.StartExecution(tickInterval)
			}()

			Eventually(m.Current).Should(Equal(stateDone))
			m.StopExecution()
			Eventually(done).Should(BeClosed())
			Expect(ctx.visits()).To(ContainElements(stateIdle, stateWork))
		})

		It("should stay in the current state when the handler returns empty", func() {
			registry.Register(StateSpec[*testContext]{
				State: stateIdle,
				Handler: func(c *testContext) (State, error) {
					c.record(stateIdle)
					return "", nil
				},
			})

			m := buildMachine()
			done := make(chan struct{})
			go func() {
				defer close(done)
				m.StartExecution(tickInterval)
			}()

			Eventually(func() int { return len(ctx.visits()) }).Should(BeNumerically(">", 2))
			Expect(m.Current()).To(Equal(stateIdle))
			m.StopExecution()
			Eventually(done).Should(BeClosed())
		})

		It("should move to the error state when a handler returns an error", func() {
			registry.Register(StateSpec[*testContext]{
				State: stateIdle,
				Handler: func(c *testContext) (State, error) {
					return "", errors.New("hardware fault")
				},
			})

			m := buildMachine()
			done := make(chan struct{})
			go func() {
				defer close(done)
				m.StartExecution(tickInterval)
			}()

			Eventually(m.Current).Should(Equal(stateFailed))
			m.StopExecution()
			Eventually(done).Should(BeClosed())
		})

		It("should move to the error state when a handler returns a categorized error", func() {
			registry.Register(StateSpec[*testContext]{
				State: stateIdle,
				Handler: func(c *testContext) (State, error) {
					return "", procerror.NewPermanentError(errors.New("invalid motor address"))
				},
			})

			m := buildMachine()
			done := make(chan struct{})
			go func() {
				defer close(done)
				m.StartExecution(tickInterval)
			}()

			Eventually(m.Current).Should(Equal(stateFailed))
			m.StopExecution()
			Eventually(done).Should(BeClosed())
		})

		It("should move to the error state when a handler panics", func() {
			registry.Register(StateSpec[*testContext]{
				State: stateIdle,
				Handler: func(c *testContext) (State, error) {
					panic("boom")
				},
			})

			m := buildMachine()
			done := make(chan struct{})
			go func() {
				defer close(done)
				m.StartExecution(tickInterval)
			}()

			Eventually(m.Current).Should(Equal(stateFailed))
			m.StopExecution()
			Eventually(done).Should(BeClosed())
		})

		It("should stop between handler invocations when requested", func() {
			registry.Register(StateSpec[*testContext]{
				State: stateIdle,
				Handler: func(c *testContext) (State, error) {
					c.record(stateIdle)
					return "", nil
				},
			})

			m := buildMachine()
			done := make(chan struct{})
			go func() {
				defer close(done)
				m.StartExecution(tickInterval)
			}()

			Eventually(m.Running).Should(BeTrue())
			m.StopExecution()
			Eventually(done).Should(BeClosed())
			Expect(m.Running()).To(BeFalse())
		})

		It("should refuse a second concurrent execution", func() {
			registry.Register(StateSpec[*testContext]{
				State: stateIdle,
				Handler: func(c *testContext) (State, error) {
					return "", nil
				},
			})

			m := buildMachine()
			done := make(chan struct{})
			go func() {
				defer close(done)
				m.StartExecution(tickInterval)
			}()

			Eventually(m.Running).Should(BeTrue())
			// Returns immediately without taking over the loop.
			m.StartExecution(tickInterval)
			Expect(m.Running()).To(BeTrue())

			m.StopExecution()
			Eventually(done).Should(BeClosed())
		})

		It("should idle through states that have no handler", func() {
			m := buildMachine()
			done := make(chan struct{})
			go func() {
				defer close(done)
				m.StartExecution(tickInterval)
			}()

			Consistently(m.Current, 10*tickInterval).Should(Equal(stateIdle))
			m.StopExecution()
			Eventually(done).Should(BeClosed())
		})
	})

	Describe("TransitionRules", func() {
		It("should report allowed pairs", func() {
			rules := testRules()
			Expect(rules.Allows(stateIdle, stateWork)).To(BeTrue())
			Expect(rules.Allows(stateIdle, stateDone)).To(BeFalse())
			Expect(rules.Allows(stateOrphan, stateIdle)).To(BeFalse())
		})
	})

	Describe("Registry", func() {
		It("should overwrite a re-registered state", func() {
			r := NewRegistry[*testContext]()
			r.Register(StateSpec[*testContext]{State: stateIdle, Handler: func(*testContext) (State, error) {
				return stateWork, nil
			}})
			r.Register(StateSpec[*testContext]{State: stateIdle, Handler: func(*testContext) (State, error) {
				return stateDone, nil
			}})
			Expect(r.Len()).To(Equal(1))

			spec, ok := r.Get(stateIdle)
			Expect(ok).To(BeTrue())
			next, err := spec.Handler(nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(next).To(Equal(stateDone))
		})

		It("should miss states that were never registered", func() {
			r := NewRegistry[*testContext]()
			_, ok := r.Get(stateOrphan)
			Expect(ok).To(BeFalse())
		})
	})
})
