/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package gateway

import (
	"context"
	"sync"

	"github.com/carverauto/sensorgw/pkg/models"
)

// transitionQueue hands liveness transitions to the observer in the order
// the monitor produced them. The monitor pushes while holding its own lock.
// Whoever finds the queue idle drains it, so a transition pushed while
// another goroutine is draining, including one pushed from inside an
// observer callback, is delivered by that goroutine after everything
// already queued.
type transitionQueue struct {
	mu       sync.Mutex
	pending  []models.ChannelTransition
	draining bool
}

func (q *transitionQueue) push(t models.ChannelTransition) {
	q.mu.Lock()
	q.pending = append(q.pending, t)
	q.mu.Unlock()
}

func (q *transitionQueue) drain(ctx context.Context, observer Observer) {
	q.mu.Lock()
	if q.draining {
		q.mu.Unlock()

		return
	}

	q.draining = true

	for len(q.pending) > 0 {
		t := q.pending[0]
		q.pending = q.pending[1:]
		q.mu.Unlock()

		if t.Active {
			observer.ChannelUp(ctx, t)
		} else {
			observer.ChannelDown(ctx, t)
		}

		q.mu.Lock()
	}

	q.pending = nil
	q.draining = false
	q.mu.Unlock()
}
