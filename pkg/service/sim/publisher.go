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

package sim

import (
	"time"

	"github.com/dispenso/gluecell/pkg/broker"
)

// Publisher forwards trajectory notifications onto in-process broker topics.
type Publisher struct {
	broker *broker.Broker
}

func NewPublisher(b *broker.Broker) *Publisher {
	return &Publisher{broker: b}
}

func (p *Publisher) PublishTrajectoryBreak() {
	p.broker.Publish(broker.TopicTrajectoryBreak, time.Now())
}

func (p *Publisher) PublishTrajectoryStop() {
	p.broker.Publish(broker.TopicTrajectoryStop, time.Now())
}
