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

package simulator

import (
	"context"
	"math"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/carverauto/sensorgw/pkg/logger"
	"github.com/carverauto/sensorgw/pkg/models"
	"github.com/carverauto/sensorgw/pkg/wire"
)

const (
	TemperatureMin = 20.0
	TemperatureMax = 30.0
	HumidityMin    = 40.0
	HumidityMax    = 90.0

	// HumidityReportAbove is the level a humidity reading must exceed to be sent.
	HumidityReportAbove = 80.0

	DefaultReadingInterval   = time.Second
	DefaultHeartbeatInterval = 3 * time.Second
)

// Options tune a producer. Zero fields take defaults.
type Options struct {
	Interval time.Duration
	Codec    *wire.Codec
	Rand     *rand.Rand
	Now      func() time.Time
	Logger   logger.Logger
}

// Producer emits a frame on every tick until its context ends.
type Producer struct {
	name     string
	interval time.Duration
	sender   Sender
	now      func() time.Time
	logger   zerolog.Logger
	next     func(now time.Time) ([]byte, bool)

	sent   atomic.Int64
	failed atomic.Int64
}

// NewTemperatureSensor reports a reading between 20 and 30 every tick.
func NewTemperatureSensor(sender Sender, opts Options) *Producer {
	p, codec, r := newProducer("temperature", sender, DefaultReadingInterval, opts)

	p.next = func(now time.Time) ([]byte, bool) {
		return codec.Encode(models.TelemetryRecord{
			Kind:       models.KindTemperature,
			Value:      reading(r, TemperatureMin, TemperatureMax),
			ObservedAt: now,
		}), true
	}

	return p
}

// NewHumiditySensor samples a reading between 40 and 90 every tick and only
// sends it when it is above 80.
func NewHumiditySensor(sender Sender, opts Options) *Producer {
	p, codec, r := newProducer("humidity", sender, DefaultReadingInterval, opts)

	p.next = func(now time.Time) ([]byte, bool) {
		value := reading(r, HumidityMin, HumidityMax)
		if value <= HumidityReportAbove {
			return nil, false
		}

		return codec.Encode(models.TelemetryRecord{
			Kind:       models.KindHumidity,
			Value:      value,
			ObservedAt: now,
		}), true
	}

	return p
}

// NewHeartbeat sends ALIVE every 3s by default.
func NewHeartbeat(sender Sender, opts Options) *Producer {
	p, codec, _ := newProducer("heartbeat", sender, DefaultHeartbeatInterval, opts)

	p.next = func(now time.Time) ([]byte, bool) {
		return codec.EncodeBeacon(models.AliveBeacon{ObservedAt: now}), true
	}

	return p
}

func newProducer(name string, sender Sender, interval time.Duration, opts Options) (*Producer, *wire.Codec, *rand.Rand) {
	if opts.Interval > 0 {
		interval = opts.Interval
	}

	if opts.Codec == nil {
		opts.Codec = wire.NewCodec(nil)
	}

	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())) //nolint:gosec // simulated readings
	}

	if opts.Now == nil {
		opts.Now = time.Now
	}

	if opts.Logger == nil {
		opts.Logger = logger.NewTestLogger()
	}

	p := &Producer{
		name:     name,
		interval: interval,
		sender:   sender,
		now:      opts.Now,
		logger:   opts.Logger.With().Str("producer", name).Logger(),
	}

	return p, opts.Codec, opts.Rand
}

// Name identifies the producer in logs.
func (p *Producer) Name() string {
	return p.name
}

// Sent is the number of frames delivered so far.
func (p *Producer) Sent() int64 {
	return p.sent.Load()
}

// Failed is the number of frames the sender could not deliver.
func (p *Producer) Failed() int64 {
	return p.failed.Load()
}

// Run emits immediately and then once per interval. Delivery failures are
// logged and the next tick tries again. Run returns ctx.Err() when ctx ends.
func (p *Producer) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info().Dur("interval", p.interval).Msg("Producer started")

	for {
		if err := ctx.Err(); err != nil {
			p.logger.Info().Int64("sent", p.Sent()).Msg("Producer stopped")

			return err
		}

		p.tick(ctx)

		select {
		case <-ctx.Done():
		case <-ticker.C:
		}
	}
}

func (p *Producer) tick(ctx context.Context) {
	frame, ok := p.next(p.now())
	if !ok {
		return
	}

	if err := p.sender.Send(ctx, frame); err != nil {
		if ctx.Err() != nil {
			return
		}

		p.failed.Add(1)
		p.logger.Warn().Err(err).Msg("Failed to deliver frame")

		return
	}

	p.sent.Add(1)
	p.logger.Debug().Bytes("frame", frame).Msg("Frame sent")
}

// reading draws a value in [lo, hi] rounded to one decimal.
func reading(r *rand.Rand, lo, hi float64) float64 {
	return math.Round((lo+r.Float64()*(hi-lo))*10) / 10
}
