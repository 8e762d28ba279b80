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

package logger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

func TestOTelConfig(t *testing.T) {
	t.Setenv("OTEL_SERVICE_NAME", "")
	t.Setenv("OTEL_EXPORTER_OTLP_LOGS_TIMEOUT", "")
	t.Setenv("OTEL_EXPORTER_OTLP_LOGS_HEADERS", "x-api-key = abc, broken")

	config := DefaultOTelConfig()

	assert.Equal(t, defaultServiceName, config.ServiceName)
	assert.Equal(t, Duration(5*time.Second), config.BatchTimeout)
	assert.Equal(t, map[string]string{"x-api-key": "abc"}, config.Headers)
}

func TestOTelWriter_Disabled(t *testing.T) {
	writer, err := NewOTELWriter(context.Background(), OTelConfig{Enabled: false})

	require.ErrorIs(t, err, ErrOTelLoggingDisabled)
	assert.Nil(t, writer)
}

func TestOTelWriter_NoEndpoint(t *testing.T) {
	writer, err := NewOTELWriter(context.Background(), OTelConfig{Enabled: true})

	require.ErrorIs(t, err, ErrOTelEndpointRequired)
	assert.Nil(t, writer)
}

func TestBuildWithOTelEnabledButNoEndpoint(t *testing.T) {
	config := &Config{
		Level: "info",
		OTel:  OTelConfig{Enabled: true},
	}

	_, err := Build(context.Background(), config)
	require.ErrorIs(t, err, ErrOTelEndpointRequired)
}

func TestOTelWriterWithoutProviderSwallowsWrites(t *testing.T) {
	w := &OTelWriter{}

	n, err := w.Write([]byte("not json"))
	require.NoError(t, err)
	assert.Equal(t, 8, n)
}

func TestShutdownWithoutProvider(t *testing.T) {
	require.NoError(t, ShutdownOTEL())
}

func TestSeverityOf(t *testing.T) {
	tests := []struct {
		zerologLevel string
		expected     string
	}{
		{"trace", "TRACE"},
		{"debug", "DEBUG"},
		{"info", "INFO"},
		{"warn", "WARN"},
		{"error", "ERROR"},
		{"fatal", "FATAL"},
		{"unknown", "INFO"},
	}

	for _, test := range tests {
		assert.Equal(t, test.expected, severityOf(test.zerologLevel).String(), test.zerologLevel)
	}
}

func TestAttributeFor(t *testing.T) {
	kv := attributeFor("value", 25.3)
	assert.Equal(t, otellog.KindFloat64, kv.Value.Kind())
	assert.InDelta(t, 25.3, kv.Value.AsFloat64(), 1e-9)

	kv = attributeFor("active", true)
	assert.True(t, kv.Value.AsBool())

	kv = attributeFor("error", "bad frame")
	assert.Equal(t, "exception.message", kv.Key)
	assert.Equal(t, "bad frame", kv.Value.AsString())

	assert.Equal(t, "null", attributeFor("x", nil).Value.AsString())
	assert.Equal(t, `["a","b"]`, attributeFor("x", []interface{}{"a", "b"}).Value.AsString())
	assert.Len(t, attributeFor("x", string(make([]byte, 5000))).Value.AsString(), maxAttributeValueLength)
}

type emitted struct {
	scope    string
	body     string
	severity otellog.Severity
	attrs    map[string]otellog.Value
}

type recordingProcessor struct {
	mu      sync.Mutex
	records []emitted
}

func (p *recordingProcessor) OnEmit(_ context.Context, r *sdklog.Record) error {
	e := emitted{
		scope:    r.InstrumentationScope().Name,
		body:     r.Body().AsString(),
		severity: r.Severity(),
		attrs:    make(map[string]otellog.Value),
	}

	r.WalkAttributes(func(kv otellog.KeyValue) bool {
		e.attrs[kv.Key] = kv.Value
		return true
	})

	p.mu.Lock()
	p.records = append(p.records, e)
	p.mu.Unlock()

	return nil
}

func (*recordingProcessor) Shutdown(context.Context) error   { return nil }
func (*recordingProcessor) ForceFlush(context.Context) error { return nil }

func (*recordingProcessor) Enabled(context.Context, sdklog.EnabledParameters) bool {
	return true
}

func TestOTelWriterEmitsRecords(t *testing.T) {
	proc := &recordingProcessor{}
	provider := sdklog.NewLoggerProvider(sdklog.WithProcessor(proc))

	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	w := newOTelWriter(context.Background(), provider)
	l := zerolog.New(w).With().Timestamp().Logger()

	l.Warn().Str("component", "gateway").Str("transport", "udp").Float64("value", 81.2).Msg("Frame rejected")
	l.Info().Msg("no component")

	proc.mu.Lock()
	defer proc.mu.Unlock()

	require.Len(t, proc.records, 2)

	first := proc.records[0]
	assert.Equal(t, "gateway", first.scope)
	assert.Equal(t, "Frame rejected", first.body)
	assert.Equal(t, otellog.SeverityWarn, first.severity)
	assert.Equal(t, "udp", first.attrs["transport"].AsString())
	assert.InDelta(t, 81.2, first.attrs["value"].AsFloat64(), 1e-9)
	assert.NotContains(t, first.attrs, "component")

	assert.Equal(t, defaultScope, proc.records[1].scope)
}
