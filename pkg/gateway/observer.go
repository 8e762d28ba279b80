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

	"github.com/carverauto/sensorgw/pkg/logger"
	"github.com/carverauto/sensorgw/pkg/models"
	"github.com/carverauto/sensorgw/pkg/wire"
)

// Observer is told about everything the gateway ingests or rejects and
// about every liveness transition. Implementations must be safe for
// concurrent use and must not block for long; they run on the ingest path.
type Observer interface {
	RecordIngested(ctx context.Context, transport string, rec models.TelemetryRecord)
	BeaconReceived(ctx context.Context, transport string, b models.AliveBeacon)
	FrameRejected(ctx context.Context, transport string, err error)
	ChannelDown(ctx context.Context, t models.ChannelTransition)
	ChannelUp(ctx context.Context, t models.ChannelTransition)
}

// MultiObserver dispatches every callback to several observers in order.
type MultiObserver struct {
	observers []Observer
}

// NewMultiObserver constructs a MultiObserver. Nil entries are skipped.
func NewMultiObserver(observers ...Observer) *MultiObserver {
	out := make([]Observer, 0, len(observers))

	for _, o := range observers {
		if o != nil {
			out = append(out, o)
		}
	}

	return &MultiObserver{observers: out}
}

func (m *MultiObserver) RecordIngested(ctx context.Context, transport string, rec models.TelemetryRecord) {
	for _, o := range m.observers {
		o.RecordIngested(ctx, transport, rec)
	}
}

func (m *MultiObserver) BeaconReceived(ctx context.Context, transport string, b models.AliveBeacon) {
	for _, o := range m.observers {
		o.BeaconReceived(ctx, transport, b)
	}
}

func (m *MultiObserver) FrameRejected(ctx context.Context, transport string, err error) {
	for _, o := range m.observers {
		o.FrameRejected(ctx, transport, err)
	}
}

func (m *MultiObserver) ChannelDown(ctx context.Context, t models.ChannelTransition) {
	for _, o := range m.observers {
		o.ChannelDown(ctx, t)
	}
}

func (m *MultiObserver) ChannelUp(ctx context.Context, t models.ChannelTransition) {
	for _, o := range m.observers {
		o.ChannelUp(ctx, t)
	}
}

// NopObserver ignores everything.
type NopObserver struct{}

func (NopObserver) RecordIngested(context.Context, string, models.TelemetryRecord) {}
func (NopObserver) BeaconReceived(context.Context, string, models.AliveBeacon)     {}
func (NopObserver) FrameRejected(context.Context, string, error)                   {}
func (NopObserver) ChannelDown(context.Context, models.ChannelTransition)          {}
func (NopObserver) ChannelUp(context.Context, models.ChannelTransition)            {}

// LogObserver writes every callback to a logger. Ingest is logged at debug,
// rejections at warn and transitions at info.
type LogObserver struct {
	logger logger.Logger
}

func NewLogObserver(log logger.Logger) *LogObserver {
	return &LogObserver{logger: log}
}

func (l *LogObserver) RecordIngested(_ context.Context, transport string, rec models.TelemetryRecord) {
	l.logger.Debug().
		Str("transport", transport).
		Str("kind", rec.Kind.String()).
		Float64("value", rec.Value).
		Time("observed_at", rec.ObservedAt).
		Msg("Telemetry record stored")
}

func (l *LogObserver) BeaconReceived(_ context.Context, transport string, b models.AliveBeacon) {
	l.logger.Debug().
		Str("transport", transport).
		Time("observed_at", b.ObservedAt).
		Msg("Heartbeat received")
}

func (l *LogObserver) FrameRejected(_ context.Context, transport string, err error) {
	l.logger.Warn().
		Err(err).
		Str("transport", transport).
		Str("reason", wire.ReasonOf(err)).
		Msg("Frame rejected")
}

func (l *LogObserver) ChannelDown(_ context.Context, t models.ChannelTransition) {
	l.logger.Info().
		Str("kind", t.Kind.String()).
		Time("last_seen", t.LastSeenAt).
		Dur("silent_for", t.SilentFor).
		Msg("Channel inactive")
}

func (l *LogObserver) ChannelUp(_ context.Context, t models.ChannelTransition) {
	l.logger.Info().
		Str("kind", t.Kind.String()).
		Time("last_seen", t.LastSeenAt).
		Msg("Channel active again")
}

var (
	_ Observer = (*MultiObserver)(nil)
	_ Observer = NopObserver{}
	_ Observer = (*LogObserver)(nil)
)
