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
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/carverauto/sensorgw/pkg/logger"
	"github.com/carverauto/sensorgw/pkg/models"
)

var errEventsDisabled = errors.New("channel events are disabled")

// Connect dials NATS, makes sure the events stream covers the channel
// subjects and returns a ready publisher together with the connection the
// caller must close.
func Connect(ctx context.Context, cfg *models.EventsConfig, log logger.Logger, extraOpts ...nats.Option) (*ChannelEventPublisher, *nats.Conn, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil, errEventsDisabled
	}

	if log == nil {
		log = logger.NewTestLogger()
	}

	opts, err := connectOptions(cfg, log)
	if err != nil {
		return nil, nil, err
	}

	nc, err := nats.Connect(cfg.URL, append(opts, extraOpts...)...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()

		return nil, nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	subjectPrefix := cfg.SubjectPrefix
	if subjectPrefix == "" {
		subjectPrefix = models.DefaultEventsSubjectBase
	}

	if err := ensureStream(ctx, js, cfg.StreamName, subjectPrefix+".>"); err != nil {
		nc.Close()

		return nil, nil, err
	}

	return NewChannelEventPublisher(js, subjectPrefix, time.Duration(cfg.Timeout), log), nc, nil
}

func connectOptions(cfg *models.EventsConfig, log logger.Logger) ([]nats.Option, error) {
	var opts []nats.Option

	if cfg.TLS != nil {
		tlsConf, err := TLSConfig(cfg.TLS)
		if err != nil {
			return nil, fmt.Errorf("failed to build NATS TLS config: %w", err)
		}

		opts = append(opts, nats.Secure(tlsConf))
	}

	opts = append(opts,
		nats.Name("sensorgw"),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	)

	return opts, nil
}

// ensureStream creates streamName if it is missing, or extends its subject
// list when it exists but does not cover subject.
func ensureStream(ctx context.Context, js jetstream.JetStream, streamName, subject string) error {
	stream, err := js.Stream(ctx, streamName)
	if err != nil {
		if !isStreamMissingErr(err) {
			return fmt.Errorf("failed to look up stream %s: %w", streamName, err)
		}

		_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
			Name:     streamName,
			Subjects: []string{subject},
		})
		if err != nil {
			return fmt.Errorf("failed to create stream %s: %w", streamName, err)
		}

		return nil
	}

	info, err := stream.Info(ctx)
	if err != nil {
		return fmt.Errorf("failed to read stream %s: %w", streamName, err)
	}

	subjects := ensureSubjectList(append([]string(nil), info.Config.Subjects...), subject)
	if len(subjects) == len(info.Config.Subjects) {
		return nil
	}

	streamConfig := info.Config
	streamConfig.Subjects = subjects

	if _, err := js.UpdateStream(ctx, streamConfig); err != nil {
		return fmt.Errorf("failed to update stream %s: %w", streamName, err)
	}

	return nil
}

// ensureSubjectList appends subject unless an existing pattern matches it.
func ensureSubjectList(subjects []string, subject string) []string {
	for _, pattern := range subjects {
		if matchesSubject(pattern, subject) {
			return subjects
		}
	}

	return append(subjects, subject)
}

// matchesSubject reports whether pattern (which may use the NATS * and >
// wildcards) covers subject. A pattern equal to subject always matches.
func matchesSubject(pattern, subject string) bool {
	if pattern == subject {
		return true
	}

	patternTokens := strings.Split(pattern, ".")
	subjectTokens := strings.Split(subject, ".")

	for i, token := range patternTokens {
		if token == ">" {
			return len(subjectTokens) > i
		}

		if i >= len(subjectTokens) {
			return false
		}

		if token != "*" && token != subjectTokens[i] {
			return false
		}
	}

	return len(patternTokens) == len(subjectTokens)
}

func isStreamMissingErr(err error) bool {
	return errors.Is(err, jetstream.ErrStreamNotFound) ||
		errors.Is(err, jetstream.ErrNoStreamResponse) ||
		errors.Is(err, nats.ErrStreamNotFound) ||
		errors.Is(err, nats.ErrNoStreamResponse) ||
		errors.Is(err, nats.ErrNoResponders)
}
