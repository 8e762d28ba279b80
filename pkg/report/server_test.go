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

package report

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/sensorgw/pkg/models"
)

type fakeSource struct {
	series   map[models.Kind][]models.TelemetryRecord
	inactive map[models.Kind]bool
	channels []models.ChannelState

	snapshots int
}

func (f *fakeSource) Snapshot(kind models.Kind) []models.TelemetryRecord {
	f.snapshots++

	return f.series[kind]
}

func (f *fakeSource) Len(kind models.Kind) int {
	return len(f.series[kind])
}

func (f *fakeSource) LastValue(kind models.Kind) (float64, bool) {
	s := f.series[kind]
	if len(s) == 0 {
		return 0, false
	}

	return s[len(s)-1].Value, true
}

func (f *fakeSource) IsActive(kind models.Kind) bool {
	return !f.inactive[kind]
}

func (f *fakeSource) Channels() []models.ChannelState {
	return f.channels
}

var at = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

func newTestServer(src Source) *Server {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "sensorgw_up 1\n")
	})

	return NewServer("127.0.0.1:0", src, time.UTC, metrics, nil)
}

func get(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, http.NoBody))

	return rec
}

func TestTemperaturePage(t *testing.T) {
	t.Parallel()

	src := &fakeSource{series: map[models.Kind][]models.TelemetryRecord{
		models.KindTemperature: {
			{Kind: models.KindTemperature, Value: 25.3, ObservedAt: at},
			{Kind: models.KindTemperature, Value: 26, ObservedAt: at.Add(time.Minute)},
		},
	}}

	rec := get(t, newTestServer(src).Handler(), http.MethodGet, "/temperature")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "<title>Temperature Data</title>")
	assert.Contains(t, rec.Body.String(), "<p>Temperature: 25.3, Timestamp: 01/01/2024 - 10:00</p>")
	assert.Contains(t, rec.Body.String(), "<p>Temperature: 26, Timestamp: 01/01/2024 - 10:01</p>")
	assert.NotContains(t, rec.Body.String(), "Sensor inactive")
}

func TestHumidityPageMarksInactive(t *testing.T) {
	t.Parallel()

	src := &fakeSource{inactive: map[models.Kind]bool{models.KindHumidity: true}}

	rec := get(t, newTestServer(src).Handler(), http.MethodGet, "/humidity")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<title>Humidity Data</title>")
	assert.Contains(t, rec.Body.String(), "Sensor inactive")
}

func TestGetHumidity(t *testing.T) {
	t.Parallel()

	empty := get(t, newTestServer(&fakeSource{}).Handler(), http.MethodGet, "/gethumidity")
	require.Equal(t, http.StatusOK, empty.Code)
	assert.Contains(t, empty.Body.String(), "No humidity data available")

	src := &fakeSource{series: map[models.Kind][]models.TelemetryRecord{
		models.KindHumidity: {{Kind: models.KindHumidity, Value: 85.5, ObservedAt: at}},
	}}

	full := get(t, newTestServer(src).Handler(), http.MethodGet, "/gethumidity")
	assert.Contains(t, full.Body.String(), "Last Humidity Value: 85.5")
}

func TestStatusDocument(t *testing.T) {
	t.Parallel()

	src := &fakeSource{
		series: map[models.Kind][]models.TelemetryRecord{
			models.KindTemperature: {{Kind: models.KindTemperature, Value: 21, ObservedAt: at}},
		},
		channels: []models.ChannelState{
			{Kind: models.KindTemperature, Active: true, LastSeenAt: at, StaleAfter: 3 * time.Second},
			{Kind: models.KindHumidity, Active: false, LastSeenAt: at, StaleAfter: 7 * time.Second},
		},
	}

	rec := get(t, newTestServer(src).Handler(), http.MethodGet, "/status")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var doc Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	require.Len(t, doc.Channels, 2)

	assert.Equal(t, models.KindTemperature, doc.Channels[0].Kind)
	assert.True(t, doc.Channels[0].Active)
	assert.Equal(t, 1, doc.Channels[0].Records)
	require.NotNil(t, doc.Channels[0].LastValue)
	assert.InDelta(t, 21, *doc.Channels[0].LastValue, 0)
	assert.Equal(t, "7s", doc.Channels[1].StaleAfter)
	assert.False(t, doc.Channels[1].Active)
	assert.Nil(t, doc.Channels[1].LastValue)
	assert.Zero(t, src.snapshots, "status counts records without copying the series")
}

func TestUnknownPathIs404(t *testing.T) {
	t.Parallel()

	rec := get(t, newTestServer(&fakeSource{}).Handler(), http.MethodGet, "/nope")

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "<h1>404 Not Found</h1>")
}

func TestMetricsRoute(t *testing.T) {
	t.Parallel()

	rec := get(t, newTestServer(&fakeSource{}).Handler(), http.MethodGet, "/metrics")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "sensorgw_up 1\n", rec.Body.String())
}

func TestMethodsAreRestricted(t *testing.T) {
	t.Parallel()

	h := newTestServer(&fakeSource{}).Handler()

	post := get(t, h, http.MethodPost, "/temperature")
	assert.Equal(t, http.StatusMethodNotAllowed, post.Code)

	preflight := get(t, h, http.MethodOptions, "/temperature")
	assert.Equal(t, http.StatusOK, preflight.Code)
	assert.Equal(t, "*", preflight.Header().Get("Access-Control-Allow-Origin"))
}

func TestServerStartStop(t *testing.T) {
	t.Parallel()

	s := newTestServer(&fakeSource{})
	require.NoError(t, s.Start(context.Background()))
	require.ErrorIs(t, s.Start(context.Background()), errAlreadyStarted)

	resp, err := http.Get("http://" + s.Addr().String() + "/gethumidity")
	require.NoError(t, err)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	assert.Contains(t, string(body), "No humidity data available")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, s.Stop(ctx))
}
