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

// Package natsutil publishes channel health CloudEvents to NATS JetStream.
package natsutil

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/carverauto/sensorgw/pkg/logger"
	"github.com/carverauto/sensorgw/pkg/models"
)

//go:generate mockgen -destination=mock_publisher.go -package=natsutil github.com/carverauto/sensorgw/pkg/natsutil Publisher

const (
	eventSource      = "sensorgw/gateway"
	eventType        = "com.carverauto.sensorgw.channel.health"
	defaultTimeout   = 5 * time.Second
	eventContentType = "application/json"
)

// Publisher is the part of jetstream.JetStream the event publisher needs.
type Publisher interface {
	Publish(ctx context.Context, subject string, payload []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// ChannelEventPublisher turns channel liveness transitions into CloudEvents.
// It satisfies the gateway observer contract; ingest callbacks are ignored.
type ChannelEventPublisher struct {
	js            Publisher
	subjectPrefix string
	host          string
	timeout       time.Duration
	logger        logger.Logger
	now           func() time.Time
}

// NewChannelEventPublisher creates a publisher writing to subjects below
// subjectPrefix, one per channel (e.g. events.sensor.channel.humidity).
func NewChannelEventPublisher(js Publisher, subjectPrefix string, timeout time.Duration, log logger.Logger) *ChannelEventPublisher {
	if subjectPrefix == "" {
		subjectPrefix = models.DefaultEventsSubjectBase
	}

	if timeout <= 0 {
		timeout = defaultTimeout
	}

	if log == nil {
		log = logger.NewTestLogger()
	}

	host, _ := os.Hostname()

	return &ChannelEventPublisher{
		js:            js,
		subjectPrefix: subjectPrefix,
		host:          host,
		timeout:       timeout,
		logger:        log,
		now:           time.Now,
	}
}

// SubjectFor returns the subject events for kind are published on.
func (p *ChannelEventPublisher) SubjectFor(kind models.Kind) string {
	return p.subjectPrefix + "." + strings.ToLower(kind.String())
}

// PublishChannelHealthEvent publishes one transition.
func (p *ChannelEventPublisher) PublishChannelHealthEvent(ctx context.Context, t models.ChannelTransition) error {
	previous := models.ChannelStateActive
	if t.Active {
		previous = models.ChannelStateInactive
	}

	data := models.ChannelHealthEventData{
		Channel:       t.Kind,
		PreviousState: previous,
		CurrentState:  t.State(),
		Timestamp:     t.At,
		LastSeen:      t.LastSeenAt,
		Host:          p.host,
	}

	if t.SilentFor > 0 {
		data.SilentFor = t.SilentFor.String()
	}

	eventTime := t.At
	if eventTime.IsZero() {
		eventTime = p.now()
	}

	event := models.CloudEvent{
		SpecVersion:     "1.0",
		ID:              uuid.New().String(),
		Source:          eventSource,
		Type:            eventType,
		DataContentType: eventContentType,
		Subject:         p.SubjectFor(t.Kind),
		Time:            &eventTime,
		Data:            data,
	}

	eventBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal channel health event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	ack, err := p.js.Publish(ctx, event.Subject, eventBytes)
	if err != nil {
		return fmt.Errorf("failed to publish channel health event: %w", err)
	}

	p.logger.Debug().
		Str("event_id", event.ID).
		Str("subject", event.Subject).
		Uint64("seq", ack.Sequence).
		Msg("Published channel health event")

	return nil
}

func (p *ChannelEventPublisher) ChannelDown(ctx context.Context, t models.ChannelTransition) {
	p.publish(ctx, t)
}

func (p *ChannelEventPublisher) ChannelUp(ctx context.Context, t models.ChannelTransition) {
	p.publish(ctx, t)
}

func (*ChannelEventPublisher) RecordIngested(context.Context, string, models.TelemetryRecord) {}

func (*ChannelEventPublisher) BeaconReceived(context.Context, string, models.AliveBeacon) {}

func (*ChannelEventPublisher) FrameRejected(context.Context, string, error) {}

func (p *ChannelEventPublisher) publish(ctx context.Context, t models.ChannelTransition) {
	if err := p.PublishChannelHealthEvent(ctx, t); err != nil {
		p.logger.Warn().
			Err(err).
			Str("channel", t.Kind.String()).
			Str("state", t.State()).
			Msg("Failed to publish channel health event")
	}
}
