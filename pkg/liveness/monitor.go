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

// Package liveness decides whether sensor channels are still reporting.
package liveness

import (
	"sort"
	"sync"
	"time"

	"github.com/carverauto/sensorgw/pkg/models"
)

type channel struct {
	lastSeenAt time.Time
	active     bool
	staleAfter time.Duration
}

// Sink receives every transition while the monitor lock is held, so
// transitions reach it in the order they happened. It must not call back
// into the Monitor.
type Sink func(t models.ChannelTransition)

// Option configures a Monitor.
type Option func(*Monitor)

// WithSink routes transitions to sink. A nil sink is ignored.
func WithSink(sink Sink) Option {
	return func(m *Monitor) {
		if sink != nil {
			m.sink = sink
		}
	}
}

// Monitor tracks one channel per monitored kind. Channels are fixed at
// construction; Touch, Evaluate and ResetSilence are the only mutations.
type Monitor struct {
	mu       sync.Mutex
	channels map[models.Kind]*channel
	order    []models.Kind
	sink     Sink
}

// New creates a monitor with one channel per entry in thresholds. Every
// channel starts active with its last-seen time set to the clock's now, so a
// sensor that never reports goes inactive once its threshold has passed.
func New(thresholds map[models.Kind]time.Duration, clock Clock, opts ...Option) *Monitor {
	if clock == nil {
		clock = RealClock{}
	}

	now := clock.Now()

	m := &Monitor{
		channels: make(map[models.Kind]*channel, len(thresholds)),
		sink:     func(models.ChannelTransition) {},
	}

	for _, opt := range opts {
		opt(m)
	}

	for _, kind := range models.Kinds() {
		if stale, ok := thresholds[kind]; ok {
			m.add(kind, stale, now)
		}
	}

	extra := make([]models.Kind, 0)

	for kind := range thresholds {
		if _, ok := m.channels[kind]; !ok {
			extra = append(extra, kind)
		}
	}

	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })

	for _, kind := range extra {
		m.add(kind, thresholds[kind], now)
	}

	return m
}

func (m *Monitor) add(kind models.Kind, stale time.Duration, now time.Time) {
	m.channels[kind] = &channel{lastSeenAt: now, active: true, staleAfter: stale}
	m.order = append(m.order, kind)
}

// Touch records traffic for kind at the given time. The channel becomes
// active and its last-seen time moves forward to at if at is later; an
// out-of-order touch never moves it back. Touch reports whether the channel
// was inactive before the call. Unknown kinds are ignored.
func (m *Monitor) Touch(kind models.Kind, at time.Time) (recovered bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch, ok := m.channels[kind]
	if !ok {
		return false
	}

	if at.After(ch.lastSeenAt) {
		ch.lastSeenAt = at
	}

	recovered = !ch.active
	ch.active = true

	if recovered {
		m.sink(models.ChannelTransition{
			Kind:       kind,
			Active:     true,
			LastSeenAt: ch.lastSeenAt,
			At:         at,
		})
	}

	return recovered
}

// Evaluate marks every active channel silent for longer than its threshold
// as inactive and returns those kinds. A channel is reported once per silence
// episode; calling Evaluate again without new staleness returns nothing.
func (m *Monitor) Evaluate(now time.Time) []models.Kind {
	m.mu.Lock()
	defer m.mu.Unlock()

	var flipped []models.Kind

	for _, kind := range m.order {
		ch := m.channels[kind]
		if ch.active && now.Sub(ch.lastSeenAt) > ch.staleAfter {
			ch.active = false
			flipped = append(flipped, kind)

			m.sink(models.ChannelTransition{
				Kind:       kind,
				Active:     false,
				LastSeenAt: ch.lastSeenAt,
				At:         now,
				SilentFor:  now.Sub(ch.lastSeenAt),
			})
		}
	}

	return flipped
}

// ResetSilence restarts the silence window of every active channel at now.
// Inactive channels stay inactive until traffic arrives.
func (m *Monitor) ResetSilence(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, ch := range m.channels {
		if ch.active && now.After(ch.lastSeenAt) {
			ch.lastSeenAt = now
		}
	}
}

// IsActive reports whether kind is currently considered alive. Unknown kinds
// are never active.
func (m *Monitor) IsActive(kind models.Kind) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch, ok := m.channels[kind]

	return ok && ch.active
}

// State returns a copy of the state of kind.
func (m *Monitor) State(kind models.Kind) (models.ChannelState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ch, ok := m.channels[kind]
	if !ok {
		return models.ChannelState{}, false
	}

	return ch.state(kind), true
}

// States returns a copy of every channel state in a stable order.
func (m *Monitor) States() []models.ChannelState {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.ChannelState, 0, len(m.order))
	for _, kind := range m.order {
		out = append(out, m.channels[kind].state(kind))
	}

	return out
}

func (c *channel) state(kind models.Kind) models.ChannelState {
	return models.ChannelState{
		Kind:       kind,
		LastSeenAt: c.lastSeenAt,
		Active:     c.active,
		StaleAfter: c.staleAfter,
	}
}
