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
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/carverauto/sensorgw/pkg/models"
)

type mockObserver struct {
	mock.Mock
}

func (m *mockObserver) RecordIngested(ctx context.Context, transport string, rec models.TelemetryRecord) {
	m.Called(ctx, transport, rec)
}

func (m *mockObserver) BeaconReceived(ctx context.Context, transport string, b models.AliveBeacon) {
	m.Called(ctx, transport, b)
}

func (m *mockObserver) FrameRejected(ctx context.Context, transport string, err error) {
	m.Called(ctx, transport, err)
}

func (m *mockObserver) ChannelDown(ctx context.Context, t models.ChannelTransition) {
	m.Called(ctx, t)
}

func (m *mockObserver) ChannelUp(ctx context.Context, t models.ChannelTransition) {
	m.Called(ctx, t)
}

// recordingObserver keeps every callback for tests that run real sockets,
// where the order of background callbacks is not fixed.
type recordingObserver struct {
	mu       sync.Mutex
	records  []models.TelemetryRecord
	beacons  []models.AliveBeacon
	rejected []error
	down     []models.ChannelTransition
	up       []models.ChannelTransition
}

func (r *recordingObserver) RecordIngested(_ context.Context, _ string, rec models.TelemetryRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records = append(r.records, rec)
}

func (r *recordingObserver) BeaconReceived(_ context.Context, _ string, b models.AliveBeacon) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.beacons = append(r.beacons, b)
}

func (r *recordingObserver) FrameRejected(_ context.Context, _ string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rejected = append(r.rejected, err)
}

func (r *recordingObserver) ChannelDown(_ context.Context, t models.ChannelTransition) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.down = append(r.down, t)
}

func (r *recordingObserver) ChannelUp(_ context.Context, t models.ChannelTransition) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.up = append(r.up, t)
}

func (r *recordingObserver) rejections() []error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]error(nil), r.rejected...)
}

func (r *recordingObserver) downs() []models.ChannelTransition {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]models.ChannelTransition(nil), r.down...)
}

func (r *recordingObserver) beaconCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.beacons)
}

var start = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

func testConfig() *models.GatewayConfig {
	cfg := models.DefaultGatewayConfig()
	cfg.TCPListenAddr = "127.0.0.1:0"
	cfg.UDPListenAddr = "127.0.0.1:0"
	cfg.TimestampLocation = "UTC"
	cfg.ShutdownTimeout = models.Duration(2 * time.Second)

	return cfg
}
