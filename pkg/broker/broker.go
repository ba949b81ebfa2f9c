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

// Package broker provides a small in-process topic bus used to surface
// process state and trajectory events to UI-facing consumers. Delivery is
// lossy: a subscriber whose buffer is full misses the message rather than
// blocking the process loop.
package broker

import "sync"

// Topic names published by the glue process core.
const (
	TopicProcessState    = "glue.process.state"
	TopicTrajectoryBreak = "glue.trajectory.break"
	TopicTrajectoryStop  = "glue.trajectory.stop"
)

const subscriberBuffer = 16

// Message is a single published event.
type Message struct {
	Topic   string
	Payload any
}

// Broker is a topic-based publish/subscribe hub.
type Broker struct {
	mu   sync.RWMutex
	subs map[string][]chan Message
}

// New creates an empty broker.
func New() *Broker {
	return &Broker{subs: make(map[string][]chan Message)}
}

// Subscribe registers a new subscriber for the topic and returns its channel.
func (b *Broker) Subscribe(topic string) <-chan Message {
	ch := make(chan Message, subscriberBuffer)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[topic] = append(b.subs[topic], ch)

	return ch
}

// Publish delivers the payload to every subscriber of the topic. Subscribers
// with a full buffer are skipped.
func (b *Broker) Publish(topic string, payload any) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs[topic] {
		select {
		case ch <- Message{Topic: topic, Payload: payload}:
		default:
		}
	}
}
