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

package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/carverauto/sensorgw/pkg/logger"
)

const (
	DefaultTCPListenAddr     = "localhost:8888"
	DefaultUDPListenAddr     = "localhost:9999"
	DefaultReportListenAddr  = "localhost:8080"
	DefaultMaxFrameBytes     = 1024
	DefaultConnReadTimeout   = 5 * time.Second
	DefaultEvaluateInterval  = time.Second
	DefaultShutdownTimeout   = 10 * time.Second
	DefaultTemperatureStale  = 3 * time.Second
	DefaultHumidityStale     = 7 * time.Second
	DefaultEventsStreamName  = "sensor-events"
	DefaultEventsSubjectBase = "events.sensor.channel"
)

var (
	ErrInvalidConfig           = errors.New("invalid gateway configuration")
	errListenAddrRequired      = errors.New("listen address is required")
	errFrameSizeInvalid        = errors.New("max_frame_bytes must be positive")
	errStaleAfterInvalid       = errors.New("stale_after must be positive")
	errUnknownChannel          = errors.New("unknown channel kind")
	errEvaluateIntervalTooLong = errors.New("evaluate_interval must be shorter than every stale_after")
	errNATSURLRequired         = errors.New("events.url is required when enabled")
	errEventLogPathRequired    = errors.New("event_log.path is required when enabled")
)

// ChannelConfig holds the liveness settings of one channel.
type ChannelConfig struct {
	StaleAfter Duration `json:"stale_after" yaml:"stale_after"`
}

// EventsConfig configures publishing of channel health events to NATS JetStream.
type EventsConfig struct {
	Enabled       bool       `json:"enabled" yaml:"enabled"`
	URL           string     `json:"url" yaml:"url"`
	StreamName    string     `json:"stream_name" yaml:"stream_name"`
	SubjectPrefix string     `json:"subject_prefix" yaml:"subject_prefix"`
	Timeout       Duration   `json:"timeout" yaml:"timeout"`
	TLS           *TLSConfig `json:"tls,omitempty" yaml:"tls,omitempty"`
}

// TLSConfig holds client certificate paths for mTLS connections.
type TLSConfig struct {
	CertFile   string `json:"cert_file" yaml:"cert_file"`
	KeyFile    string `json:"key_file" yaml:"key_file"`
	CAFile     string `json:"ca_file" yaml:"ca_file"`
	ServerName string `json:"server_name,omitempty" yaml:"server_name,omitempty"`
}

// EventLogConfig configures the append-only event log file.
type EventLogConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Path    string `json:"path" yaml:"path"`
}

// GatewayConfig is the configuration of the gateway binary.
type GatewayConfig struct {
	TCPListenAddr     string                 `json:"tcp_listen_addr" yaml:"tcp_listen_addr"`
	UDPListenAddr     string                 `json:"udp_listen_addr" yaml:"udp_listen_addr"`
	ReportListenAddr  string                 `json:"report_listen_addr" yaml:"report_listen_addr"`
	MaxFrameBytes     int                    `json:"max_frame_bytes" yaml:"max_frame_bytes"`
	ConnReadTimeout   Duration               `json:"conn_read_timeout" yaml:"conn_read_timeout"`
	EvaluateInterval  Duration               `json:"evaluate_interval" yaml:"evaluate_interval"`
	ShutdownTimeout   Duration               `json:"shutdown_timeout" yaml:"shutdown_timeout"`
	TimestampLocation string                 `json:"timestamp_location" yaml:"timestamp_location"`
	Channels          map[Kind]ChannelConfig `json:"channels" yaml:"channels"`
	Logging           *logger.Config         `json:"logging" yaml:"logging"`
	Events            *EventsConfig          `json:"events,omitempty" yaml:"events,omitempty"`
	EventLog          *EventLogConfig        `json:"event_log,omitempty" yaml:"event_log,omitempty"`
}

// DefaultGatewayConfig returns a configuration matching the classic deployment:
// TCP 8888, UDP 9999, report 8080, temperature stale after 3s, humidity after 7s.
func DefaultGatewayConfig() *GatewayConfig {
	cfg := &GatewayConfig{}
	cfg.ApplyDefaults()

	return cfg
}

// ApplyDefaults fills every zero field with its default.
func (c *GatewayConfig) ApplyDefaults() {
	if c.TCPListenAddr == "" {
		c.TCPListenAddr = DefaultTCPListenAddr
	}

	if c.UDPListenAddr == "" {
		c.UDPListenAddr = DefaultUDPListenAddr
	}

	if c.ReportListenAddr == "" {
		c.ReportListenAddr = DefaultReportListenAddr
	}

	if c.MaxFrameBytes == 0 {
		c.MaxFrameBytes = DefaultMaxFrameBytes
	}

	if c.ConnReadTimeout == 0 {
		c.ConnReadTimeout = Duration(DefaultConnReadTimeout)
	}

	if c.EvaluateInterval == 0 {
		c.EvaluateInterval = Duration(DefaultEvaluateInterval)
	}

	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = Duration(DefaultShutdownTimeout)
	}

	if c.Channels == nil {
		c.Channels = make(map[Kind]ChannelConfig)
	}

	defaults := map[Kind]time.Duration{
		KindTemperature: DefaultTemperatureStale,
		KindHumidity:    DefaultHumidityStale,
	}

	for kind, stale := range defaults {
		ch := c.Channels[kind]
		if ch.StaleAfter == 0 {
			ch.StaleAfter = Duration(stale)
		}

		c.Channels[kind] = ch
	}

	if c.Logging == nil {
		c.Logging = logger.DefaultConfig()
	}

	if c.Events != nil {
		if c.Events.StreamName == "" {
			c.Events.StreamName = DefaultEventsStreamName
		}

		if c.Events.SubjectPrefix == "" {
			c.Events.SubjectPrefix = DefaultEventsSubjectBase
		}
	}
}

// Validate implements config.Validator.
func (c *GatewayConfig) Validate() error {
	if c.TCPListenAddr == "" || c.UDPListenAddr == "" {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errListenAddrRequired)
	}

	if c.MaxFrameBytes <= 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errFrameSizeInvalid)
	}

	for kind, ch := range c.Channels {
		if _, ok := ParseKind(string(kind)); !ok {
			return fmt.Errorf("%w: %w: %q", ErrInvalidConfig, errUnknownChannel, kind)
		}

		if ch.StaleAfter <= 0 {
			return fmt.Errorf("%w: %s %w", ErrInvalidConfig, kind, errStaleAfterInvalid)
		}

		if c.EvaluateInterval >= ch.StaleAfter {
			return fmt.Errorf("%w: %w (%s stale_after=%s, evaluate_interval=%s)",
				ErrInvalidConfig, errEvaluateIntervalTooLong, kind, ch.StaleAfter, c.EvaluateInterval)
		}
	}

	if c.Events != nil && c.Events.Enabled && c.Events.URL == "" {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errNATSURLRequired)
	}

	if c.EventLog != nil && c.EventLog.Enabled && c.EventLog.Path == "" {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errEventLogPathRequired)
	}

	if _, err := c.Location(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return nil
}

// Thresholds returns the stale_after of every configured channel.
func (c *GatewayConfig) Thresholds() map[Kind]time.Duration {
	out := make(map[Kind]time.Duration, len(c.Channels))
	for kind, ch := range c.Channels {
		out[kind] = time.Duration(ch.StaleAfter)
	}

	return out
}

// Location resolves the zone wire timestamps are written in.
func (c *GatewayConfig) Location() (*time.Location, error) {
	switch c.TimestampLocation {
	case "", "Local":
		return time.Local, nil
	default:
		loc, err := time.LoadLocation(c.TimestampLocation)
		if err != nil {
			return nil, fmt.Errorf("timestamp_location %q: %w", c.TimestampLocation, err)
		}

		return loc, nil
	}
}
