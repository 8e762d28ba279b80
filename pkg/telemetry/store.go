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

// Package telemetry keeps the in-memory telemetry series of the gateway.
package telemetry

import (
	"sync"

	"github.com/carverauto/sensorgw/pkg/models"
)

const defaultSeriesCapacity = 64

// Store holds one append-only series per kind and the last value seen for
// each kind. All methods are safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	series map[models.Kind][]models.TelemetryRecord
	last   map[models.Kind]float64
}

var (
	_ Appender = (*Store)(nil)
	_ Reader   = (*Store)(nil)
)

// NewStore creates an empty store with series pre-allocated for kinds.
func NewStore(kinds ...models.Kind) *Store {
	s := &Store{
		series: make(map[models.Kind][]models.TelemetryRecord, len(kinds)),
		last:   make(map[models.Kind]float64, len(kinds)),
	}

	for _, kind := range kinds {
		s.series[kind] = make([]models.TelemetryRecord, 0, defaultSeriesCapacity)
	}

	return s
}

// Append adds record to the series of its kind and refreshes the last value.
// Records are never validated or rejected here.
func (s *Store) Append(record models.TelemetryRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.series[record.Kind] = append(s.series[record.Kind], record)
	s.last[record.Kind] = record.Value
}

// Snapshot returns a copy of the series for kind as of the call. Later
// appends are not visible through the returned slice.
func (s *Store) Snapshot(kind models.Kind) []models.TelemetryRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	series := s.series[kind]
	out := make([]models.TelemetryRecord, len(series))
	copy(out, series)

	return out
}

// LastValue returns the most recent value for kind, or false if nothing has
// been appended for it yet.
func (s *Store) LastValue(kind models.Kind) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.last[kind]

	return v, ok
}

// Len returns the number of records stored for kind.
func (s *Store) Len(kind models.Kind) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.series[kind])
}
