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
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/carverauto/sensorgw/pkg/logger"
)

func TestDefaultGatewayConfig(t *testing.T) {
	cfg := DefaultGatewayConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}

	if cfg.TCPListenAddr != "localhost:8888" || cfg.UDPListenAddr != "localhost:9999" {
		t.Fatalf("unexpected listen addresses %q %q", cfg.TCPListenAddr, cfg.UDPListenAddr)
	}

	thresholds := cfg.Thresholds()
	if thresholds[KindTemperature] != 3*time.Second {
		t.Fatalf("expected temperature stale after 3s, got %v", thresholds[KindTemperature])
	}

	if thresholds[KindHumidity] != 7*time.Second {
		t.Fatalf("expected humidity stale after 7s, got %v", thresholds[KindHumidity])
	}

	if cfg.Logging == nil {
		t.Fatal("expected default logging config")
	}
}

func TestApplyDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := &GatewayConfig{
		MaxFrameBytes: 64,
		Channels: map[Kind]ChannelConfig{
			KindHumidity: {StaleAfter: Duration(12 * time.Second)},
		},
		Events: &EventsConfig{Enabled: true, URL: "nats://localhost:4222"},
	}
	cfg.ApplyDefaults()

	if cfg.MaxFrameBytes != 64 {
		t.Fatalf("max_frame_bytes overwritten: %d", cfg.MaxFrameBytes)
	}

	if got := cfg.Thresholds()[KindHumidity]; got != 12*time.Second {
		t.Fatalf("humidity threshold overwritten: %v", got)
	}

	if got := cfg.Thresholds()[KindTemperature]; got != DefaultTemperatureStale {
		t.Fatalf("temperature threshold not defaulted: %v", got)
	}

	if cfg.Events.StreamName != DefaultEventsStreamName || cfg.Events.SubjectPrefix != DefaultEventsSubjectBase {
		t.Fatalf("events defaults not applied: %+v", cfg.Events)
	}
}

func TestGatewayConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *GatewayConfig)
	}{
		{"missing tcp address", func(c *GatewayConfig) { c.TCPListenAddr = "" }},
		{"zero frame size", func(c *GatewayConfig) { c.MaxFrameBytes = 0 }},
		{"unknown channel", func(c *GatewayConfig) {
			c.Channels["PRESSURE"] = ChannelConfig{StaleAfter: Duration(time.Minute)}
		}},
		{"zero stale_after", func(c *GatewayConfig) {
			c.Channels[KindTemperature] = ChannelConfig{}
		}},
		{"evaluate interval too long", func(c *GatewayConfig) {
			c.EvaluateInterval = Duration(5 * time.Second)
		}},
		{"events without url", func(c *GatewayConfig) {
			c.Events = &EventsConfig{Enabled: true}
		}},
		{"event log without path", func(c *GatewayConfig) {
			c.EventLog = &EventLogConfig{Enabled: true}
		}},
		{"unknown location", func(c *GatewayConfig) { c.TimestampLocation = "Mars/Olympus_Mons" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultGatewayConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestGatewayConfigLocation(t *testing.T) {
	cfg := DefaultGatewayConfig()

	loc, err := cfg.Location()
	if err != nil || loc != time.Local {
		t.Fatalf("expected time.Local, got %v (%v)", loc, err)
	}

	cfg.TimestampLocation = "UTC"

	loc, err = cfg.Location()
	if err != nil || loc.String() != "UTC" {
		t.Fatalf("expected UTC, got %v (%v)", loc, err)
	}
}

func TestGatewayConfigJSONDurations(t *testing.T) {
	payload := `{"evaluate_interval":"250ms","conn_read_timeout":2000000000,` +
		`"channels":{"TEMPERATURE":{"stale_after":"4s"}}}`

	var cfg GatewayConfig
	if err := json.Unmarshal([]byte(payload), &cfg); err != nil {
		t.Fatalf("unmarshal gateway config: %v", err)
	}

	if time.Duration(cfg.EvaluateInterval) != 250*time.Millisecond {
		t.Fatalf("expected 250ms, got %v", cfg.EvaluateInterval)
	}

	if time.Duration(cfg.ConnReadTimeout) != 2*time.Second {
		t.Fatalf("expected 2s, got %v", cfg.ConnReadTimeout)
	}

	if cfg.Channels[KindTemperature].StaleAfter != Duration(4*time.Second) {
		t.Fatalf("expected 4s, got %v", cfg.Channels[KindTemperature].StaleAfter)
	}

	data, err := json.Marshal(cfg.Channels[KindTemperature])
	if err != nil {
		t.Fatalf("marshal channel config: %v", err)
	}

	if want := `"stale_after":"4s"`; !strings.Contains(string(data), want) {
		t.Fatalf("expected %s in %s", want, data)
	}
}

func TestGatewayConfigYAMLDurations(t *testing.T) {
	payload := `
tcp_listen_addr: 0.0.0.0:8888
evaluate_interval: 500ms
channels:
  HUMIDITY:
    stale_after: 10s
`

	var cfg GatewayConfig
	if err := yaml.Unmarshal([]byte(payload), &cfg); err != nil {
		t.Fatalf("unmarshal yaml: %v", err)
	}

	if cfg.TCPListenAddr != "0.0.0.0:8888" {
		t.Fatalf("unexpected tcp address %q", cfg.TCPListenAddr)
	}

	if time.Duration(cfg.EvaluateInterval) != 500*time.Millisecond {
		t.Fatalf("expected 500ms, got %v", cfg.EvaluateInterval)
	}

	if cfg.Channels[KindHumidity].StaleAfter != Duration(10*time.Second) {
		t.Fatalf("expected 10s, got %v", cfg.Channels[KindHumidity].StaleAfter)
	}

	var bad GatewayConfig
	if err := yaml.Unmarshal([]byte("evaluate_interval: soon"), &bad); !errors.Is(err, logger.ErrInvalidDuration) {
		t.Fatalf("expected ErrInvalidDuration, got %v", err)
	}
}

func TestParseKind(t *testing.T) {
	for _, kind := range Kinds() {
		got, ok := ParseKind(kind.String())
		if !ok || got != kind {
			t.Fatalf("ParseKind(%q) = %q, %v", kind, got, ok)
		}
	}

	if _, ok := ParseKind("temperature"); ok {
		t.Fatal("tags are case sensitive")
	}

	if _, ok := ParseKind("ALIVE"); ok {
		t.Fatal("ALIVE is not a telemetry kind")
	}
}

func TestChannelTransitionState(t *testing.T) {
	if got := (ChannelTransition{Active: true}).State(); got != ChannelStateActive {
		t.Fatalf("expected active, got %s", got)
	}

	if got := (ChannelTransition{}).State(); got != ChannelStateInactive {
		t.Fatalf("expected inactive, got %s", got)
	}
}
