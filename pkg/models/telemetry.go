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
	"time"
)

// Kind identifies a telemetry channel.
type Kind string

const (
	KindTemperature Kind = "TEMPERATURE"
	KindHumidity    Kind = "HUMIDITY"
)

// BeaconChannel is the channel an ALIVE beacon refreshes. The humidity producer
// is the only sender of beacons and its readings are sparse (it only reports
// values above its threshold), so the heartbeat stands in for humidity liveness.
const BeaconChannel = KindHumidity

// Kinds returns every monitored kind in a stable order.
func Kinds() []Kind {
	return []Kind{KindTemperature, KindHumidity}
}

// ParseKind maps a wire tag to a Kind.
func ParseKind(s string) (Kind, bool) {
	switch Kind(s) {
	case KindTemperature:
		return KindTemperature, true
	case KindHumidity:
		return KindHumidity, true
	default:
		return "", false
	}
}

func (k Kind) String() string {
	return string(k)
}

// TelemetryRecord is one timestamped sensor reading. It is a value type and is
// never modified once built.
type TelemetryRecord struct {
	Kind       Kind      `json:"kind"`
	Value      float64   `json:"value"`
	ObservedAt time.Time `json:"observed_at"`
}

// AliveBeacon is a heartbeat with no measurement attached.
type AliveBeacon struct {
	ObservedAt time.Time `json:"observed_at"`
}

// ChannelState is the liveness view of one channel.
type ChannelState struct {
	Kind       Kind          `json:"kind"`
	LastSeenAt time.Time     `json:"last_seen_at"`
	Active     bool          `json:"active"`
	StaleAfter time.Duration `json:"stale_after"`
}

// ChannelTransition describes a channel flipping between active and inactive.
type ChannelTransition struct {
	Kind       Kind          `json:"kind"`
	Active     bool          `json:"active"`
	LastSeenAt time.Time     `json:"last_seen_at"`
	At         time.Time     `json:"at"`
	SilentFor  time.Duration `json:"silent_for"`
}

// State returns the human readable state name used in events and logs.
func (t ChannelTransition) State() string {
	if t.Active {
		return ChannelStateActive
	}

	return ChannelStateInactive
}

const (
	ChannelStateActive   = "active"
	ChannelStateInactive = "inactive"
)
