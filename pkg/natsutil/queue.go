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

package natsutil

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/carverauto/sensorgw/pkg/logger"
	"github.com/carverauto/sensorgw/pkg/models"
)

// DefaultQueueSize bounds the transitions waiting to be published.
const DefaultQueueSize = 256

var errQueueFull = errors.New("channel event queue full")

// QueuedPublisher moves channel health publishing off the ingest path. The
// observer callbacks only enqueue and one worker publishes in arrival order.
// When the queue is full new transitions are dropped and counted.
type QueuedPublisher struct {
	publisher *ChannelEventPublisher
	logger    logger.Logger

	mu     sync.Mutex
	closed bool
	queue  chan models.ChannelTransition
	done   chan struct{}

	dropped atomic.Uint64
}

// NewQueuedPublisher starts the worker. size <= 0 uses DefaultQueueSize.
func NewQueuedPublisher(publisher *ChannelEventPublisher, size int, log logger.Logger) *QueuedPublisher {
	if size <= 0 {
		size = DefaultQueueSize
	}

	if log == nil {
		log = logger.NewTestLogger()
	}

	q := &QueuedPublisher{
		publisher: publisher,
		logger:    log,
		queue:     make(chan models.ChannelTransition, size),
		done:      make(chan struct{}),
	}

	go q.run()

	return q
}

func (q *QueuedPublisher) run() {
	defer close(q.done)

	for t := range q.queue {
		q.publisher.publish(context.Background(), t)
	}
}

func (q *QueuedPublisher) enqueue(t models.ChannelTransition) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	select {
	case q.queue <- t:
	default:
		q.dropped.Add(1)

		q.logger.Warn().
			Err(errQueueFull).
			Str("channel", t.Kind.String()).
			Str("state", t.State()).
			Msg("Dropping channel health event")
	}
}

// Dropped returns how many transitions were discarded because the queue
// was full.
func (q *QueuedPublisher) Dropped() uint64 {
	return q.dropped.Load()
}

// Close stops accepting transitions and waits for the queued ones to be
// published, or for ctx to expire.
func (q *QueuedPublisher) Close(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.queue)
	}
	q.mu.Unlock()

	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *QueuedPublisher) ChannelDown(_ context.Context, t models.ChannelTransition) {
	q.enqueue(t)
}

func (q *QueuedPublisher) ChannelUp(_ context.Context, t models.ChannelTransition) {
	q.enqueue(t)
}

func (*QueuedPublisher) RecordIngested(context.Context, string, models.TelemetryRecord) {}

func (*QueuedPublisher) BeaconReceived(context.Context, string, models.AliveBeacon) {}

func (*QueuedPublisher) FrameRejected(context.Context, string, error) {}
