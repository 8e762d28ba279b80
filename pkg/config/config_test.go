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

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/sensorgw/pkg/logger"
	"github.com/carverauto/sensorgw/pkg/models"
)

var errRejected = errors.New("rejected")

type validatingConfig struct {
	Name string `json:"name" yaml:"name"`
	Port int    `json:"port" yaml:"port"`

	defaulted bool
}

func (v *validatingConfig) ApplyDefaults() {
	v.defaulted = true

	if v.Port == 0 {
		v.Port = 8080
	}
}

func (v *validatingConfig) Validate() error {
	if v.Name == "bad" {
		return errRejected
	}

	return nil
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	return path
}

func TestLoadAndValidateJSONFile(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "")

	path := writeFile(t, "cfg.json", `{"name":"gw","port":9000}`)

	var cfg validatingConfig

	require.NoError(t, NewConfig(logger.NewTestLogger()).LoadAndValidate(context.Background(), path, &cfg))
	assert.Equal(t, "gw", cfg.Name)
	assert.Equal(t, 9000, cfg.Port)
	assert.True(t, cfg.defaulted)
}

func TestLoadAndValidateYAMLFile(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "file")

	path := writeFile(t, "cfg.yaml", "name: gw\n")

	var cfg validatingConfig

	require.NoError(t, NewConfig(nil).LoadAndValidate(context.Background(), path, &cfg))
	assert.Equal(t, "gw", cfg.Name)
	assert.Equal(t, 8080, cfg.Port)
}

func TestLoadAndValidateRunsValidator(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "")

	path := writeFile(t, "cfg.json", `{"name":"bad"}`)

	var cfg validatingConfig

	err := NewConfig(nil).LoadAndValidate(context.Background(), path, &cfg)
	require.ErrorIs(t, err, errRejected)
}

func TestLoadAndValidateMissingFile(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "")

	var cfg validatingConfig

	err := NewConfig(nil).LoadAndValidate(context.Background(), filepath.Join(t.TempDir(), "nope.json"), &cfg)
	require.Error(t, err)
}

func TestLoadAndValidateNoPathKeepsDefaults(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "")

	cfg := models.DefaultGatewayConfig()

	require.NoError(t, NewConfig(nil).LoadAndValidate(context.Background(), "", cfg))
	assert.Equal(t, models.DefaultTCPListenAddr, cfg.TCPListenAddr)
}

func TestLoadAndValidateInvalidSource(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "kv")

	var cfg validatingConfig

	err := NewConfig(nil).LoadAndValidate(context.Background(), "", &cfg)
	require.ErrorIs(t, err, errInvalidConfigSource)
}

func TestGatewayConfigFromYAMLOverlaysDefaults(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "")

	path := writeFile(t, "gateway.yaml", `
tcp_listen_addr: 127.0.0.1:7000
channels:
  HUMIDITY:
    stale_after: 12s
`)

	cfg := models.DefaultGatewayConfig()

	require.NoError(t, NewConfig(nil).LoadAndValidate(context.Background(), path, cfg))
	assert.Equal(t, "127.0.0.1:7000", cfg.TCPListenAddr)
	assert.Equal(t, models.DefaultUDPListenAddr, cfg.UDPListenAddr)
	assert.Equal(t, 12*time.Second, cfg.Thresholds()[models.KindHumidity])
	assert.Equal(t, models.DefaultTemperatureStale, cfg.Thresholds()[models.KindTemperature])
}

func TestGatewayConfigFromEnv(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "env")
	t.Setenv("CONFIG_ENV_PREFIX", "TESTGW_")
	t.Setenv("TESTGW_UDP_LISTEN_ADDR", "127.0.0.1:7001")
	t.Setenv("TESTGW_EVALUATE_INTERVAL", "500ms")
	t.Setenv("TESTGW_MAX_FRAME_BYTES", "2048")
	t.Setenv("TESTGW_CHANNELS", `{"TEMPERATURE":{"stale_after":"4s"}}`)

	cfg := models.DefaultGatewayConfig()

	require.NoError(t, NewConfig(nil).LoadAndValidate(context.Background(), "", cfg))
	assert.Equal(t, "127.0.0.1:7001", cfg.UDPListenAddr)
	assert.Equal(t, models.Duration(500*time.Millisecond), cfg.EvaluateInterval)
	assert.Equal(t, 2048, cfg.MaxFrameBytes)
	assert.Equal(t, 4*time.Second, cfg.Thresholds()[models.KindTemperature])
	assert.Nil(t, cfg.Events)
}

func TestEnvConfigJSONOverride(t *testing.T) {
	t.Setenv("TESTJSON_CONFIG_JSON", `{"name":"from-json","port":1}`)

	var cfg validatingConfig

	require.NoError(t, NewEnvConfigLoader(nil, "TESTJSON_").Load(context.Background(), "", &cfg))
	assert.Equal(t, "from-json", cfg.Name)
	assert.Equal(t, 1, cfg.Port)
}

func TestEnvLoaderRejectsNonPointer(t *testing.T) {
	err := NewEnvConfigLoader(nil, "X_").Load(context.Background(), "", validatingConfig{})
	require.ErrorIs(t, err, ErrDstMustBeNonNilPointer)
}

type envFixture struct {
	Name    string         `json:"name"`
	Tags    []string       `json:"tags"`
	Timeout time.Duration  `json:"timeout"`
	Ratio   float64        `json:"ratio"`
	Limits  map[string]int `json:"limits"`
	Nested  *struct {
		Enabled bool   `json:"enabled"`
		URL     string `json:"url"`
	} `json:"nested"`
	Skipped string `json:"-"`
}

func TestEnvLoaderFieldKinds(t *testing.T) {
	t.Setenv("FIX_NAME", "gw")
	t.Setenv("FIX_TAGS", "a, b,c")
	t.Setenv("FIX_TIMEOUT", "1m")
	t.Setenv("FIX_RATIO", "0.25")
	t.Setenv("FIX_LIMITS", `{"tcp":3}`)
	t.Setenv("FIX_NESTED_ENABLED", "true")
	t.Setenv("FIX_NESTED_URL", "nats://127.0.0.1:4222")

	var cfg envFixture

	require.NoError(t, NewEnvConfigLoader(nil, "FIX_").Load(context.Background(), "", &cfg))
	assert.Equal(t, "gw", cfg.Name)
	assert.Equal(t, []string{"a", "b", "c"}, cfg.Tags)
	assert.Equal(t, time.Minute, cfg.Timeout)
	assert.InDelta(t, 0.25, cfg.Ratio, 1e-9)
	assert.Equal(t, map[string]int{"tcp": 3}, cfg.Limits)
	require.NotNil(t, cfg.Nested)
	assert.True(t, cfg.Nested.Enabled)
	assert.Equal(t, "nats://127.0.0.1:4222", cfg.Nested.URL)
}

func TestEnvLoaderReportsBadValues(t *testing.T) {
	t.Setenv("BAD_TIMEOUT", "soon")
	t.Setenv("BAD_RATIO", "half")

	var cfg envFixture

	err := NewEnvConfigLoader(nil, "BAD_").Load(context.Background(), "", &cfg)
	require.ErrorIs(t, err, errEnvValue)
	assert.Contains(t, err.Error(), "BAD_TIMEOUT")
	assert.Contains(t, err.Error(), "BAD_RATIO")
	assert.Nil(t, cfg.Nested)
}

func TestGatewayConfigEventsFromEnv(t *testing.T) {
	t.Setenv("CONFIG_SOURCE", "env")
	t.Setenv("CONFIG_ENV_PREFIX", "TESTEV_")
	t.Setenv("TESTEV_EVENTS_ENABLED", "true")
	t.Setenv("TESTEV_EVENTS_URL", "nats://nats:4222")
	t.Setenv("TESTEV_EVENTS_TIMEOUT", "2s")
	t.Setenv("TESTEV_LOGGING_LEVEL", "debug")

	cfg := models.DefaultGatewayConfig()

	require.NoError(t, NewConfig(nil).LoadAndValidate(context.Background(), "", cfg))
	require.NotNil(t, cfg.Events)
	assert.Equal(t, "nats://nats:4222", cfg.Events.URL)
	assert.Equal(t, models.Duration(2*time.Second), cfg.Events.Timeout)
	assert.Equal(t, models.DefaultEventsStreamName, cfg.Events.StreamName)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Nil(t, cfg.EventLog)
}
