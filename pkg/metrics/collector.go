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

// Package metrics exposes gateway activity as Prometheus metrics.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/carverauto/sensorgw/pkg/models"
	"github.com/carverauto/sensorgw/pkg/wire"
)

const (
	metricPrefix = "sensorgw_"

	resultAccepted = "accepted"
	resultRejected = "rejected"
)

// Collector counts frames, records and channel transitions. It keeps its own
// registry so several collectors can coexist in tests.
type Collector struct {
	registry *prometheus.Registry

	frames        *prometheus.CounterVec
	decodeErrors  *prometheus.CounterVec
	records       *prometheus.CounterVec
	lastValue     *prometheus.GaugeVec
	beacons       *prometheus.CounterVec
	transitions   *prometheus.CounterVec
	channelActive *prometheus.GaugeVec
}

// NewCollector creates a collector whose channel_active gauge starts at 1 for
// every kind, matching a freshly constructed liveness monitor.
func NewCollector(kinds ...models.Kind) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		frames: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "frames_total",
				Help: "Frames received by transport and result",
			},
			[]string{"transport", "result"},
		),
		decodeErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "frame_errors_total",
				Help: "Rejected frames by transport and reason",
			},
			[]string{"transport", "reason"},
		),
		records: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "records_total",
				Help: "Telemetry records stored by kind",
			},
			[]string{"kind"},
		),
		lastValue: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "last_value",
				Help: "Most recent telemetry value by kind",
			},
			[]string{"kind"},
		),
		beacons: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "beacons_total",
				Help: "ALIVE beacons received by transport",
			},
			[]string{"transport"},
		),
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "channel_transitions_total",
				Help: "Channel liveness transitions by kind and new state",
			},
			[]string{"kind", "state"},
		),
		channelActive: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "channel_active",
				Help: "1 when the channel is active, 0 when inactive",
			},
			[]string{"kind"},
		),
	}

	c.registry.MustRegister(
		c.frames,
		c.decodeErrors,
		c.records,
		c.lastValue,
		c.beacons,
		c.transitions,
		c.channelActive,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	for _, kind := range kinds {
		c.channelActive.WithLabelValues(kind.String()).Set(1)
	}

	return c
}

// Registry returns the registry the collector's metrics live in.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

func (c *Collector) RecordIngested(_ context.Context, transport string, rec models.TelemetryRecord) {
	c.frames.WithLabelValues(transport, resultAccepted).Inc()
	c.records.WithLabelValues(rec.Kind.String()).Inc()
	c.lastValue.WithLabelValues(rec.Kind.String()).Set(rec.Value)
}

func (c *Collector) BeaconReceived(_ context.Context, transport string, _ models.AliveBeacon) {
	c.frames.WithLabelValues(transport, resultAccepted).Inc()
	c.beacons.WithLabelValues(transport).Inc()
}

func (c *Collector) FrameRejected(_ context.Context, transport string, err error) {
	c.frames.WithLabelValues(transport, resultRejected).Inc()
	c.decodeErrors.WithLabelValues(transport, wire.ReasonOf(err)).Inc()
}

func (c *Collector) ChannelDown(_ context.Context, t models.ChannelTransition) {
	c.transitions.WithLabelValues(t.Kind.String(), models.ChannelStateInactive).Inc()
	c.channelActive.WithLabelValues(t.Kind.String()).Set(0)
}

func (c *Collector) ChannelUp(_ context.Context, t models.ChannelTransition) {
	c.transitions.WithLabelValues(t.Kind.String(), models.ChannelStateActive).Inc()
	c.channelActive.WithLabelValues(t.Kind.String()).Set(1)
}
