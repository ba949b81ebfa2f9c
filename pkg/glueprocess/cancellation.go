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

package glueprocess

import (
	"sync"
	"time"
)

// CancelReason says why a blocking wait was cancelled. Handlers route on it:
// an operator pause sends the machine to PAUSED, a stop to STOPPED.
type CancelReason int

const (
	CancelNone CancelReason = iota
	CancelPaused
	CancelStopped
	CancelTimeout
)

func (r CancelReason) String() string {
	switch r {
	case CancelPaused:
		return "state changed to PAUSED"
	case CancelStopped:
		return "state changed to STOPPED"
	case CancelTimeout:
		return "wait budget exceeded"
	default:
		return "not cancelled"
	}
}

// CancellationToken is a cooperative, reason-carrying cancellation primitive.
// The first Cancel wins; later calls keep the original reason.
type CancellationToken struct {
	mu        sync.Mutex
	cancelled bool
	reason    CancelReason
}

func NewCancellationToken() *CancellationToken {
	return &CancellationToken{}
}

func (t *CancellationToken) Cancel(reason CancelReason) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancelled {
		return
	}
	t.cancelled = true
	t.reason = reason
}

func (t *CancellationToken) IsCancelled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancelled
}

func (t *CancellationToken) Reason() CancelReason {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.reason
}

// watchInterrupts polls the machine state and cancels the token when an
// operator pause or stop lands while a blocking wait is in flight. The
// returned func stops the watcher; it is safe to call after cancellation.
func watchInterrupts(c *ExecutionContext, token *CancellationToken, interval time.Duration) func() {
	done := make(chan struct{})
	var once sync.Once

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				switch c.Machine.Current() {
				case StatePaused:
					token.Cancel(CancelPaused)
					return
				case StateStopped:
					token.Cancel(CancelStopped)
					return
				}
			}
		}
	}()

	return func() {
		once.Do(func() { close(done) })
	}
}
