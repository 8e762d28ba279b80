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
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.31.0"
	"google.golang.org/grpc/credentials"
)

var (
	ErrOTelLoggingDisabled  = errors.New("OTel logging is disabled")
	ErrOTelEndpointRequired = errors.New("OTel endpoint is required when enabled")
	errCAAppend             = errors.New("failed to append CA certificate")
)

const (
	maxAttributeValueLength = 4096
	defaultScope            = "sensorgw-logger"
	defaultBatchTimeout     = 5 * time.Second
	shutdownTimeout         = 5 * time.Second
)

// OTelConfig enables shipping log lines to an OTLP/gRPC collector.
type OTelConfig struct {
	Enabled      bool              `json:"enabled" yaml:"enabled"`
	Endpoint     string            `json:"endpoint" yaml:"endpoint"`
	Headers      map[string]string `json:"headers" yaml:"headers"`
	ServiceName  string            `json:"service_name" yaml:"service_name"`
	BatchTimeout Duration          `json:"batch_timeout" yaml:"batch_timeout"`
	Insecure     bool              `json:"insecure" yaml:"insecure"`
	TLS          *TLSConfig        `json:"tls,omitempty" yaml:"tls,omitempty"`
}

type TLSConfig struct {
	CertFile string `json:"cert_file" yaml:"cert_file"`
	KeyFile  string `json:"key_file" yaml:"key_file"`
	CAFile   string `json:"ca_file,omitempty" yaml:"ca_file,omitempty"`
}

// OTelWriter is an io.Writer that turns zerolog JSON lines into OTel log
// records. Each component field gets its own instrumentation scope.
type OTelWriter struct {
	ctx      context.Context
	provider *sdklog.LoggerProvider

	mu     sync.Mutex
	scopes map[string]otellog.Logger
}

//nolint:gochecknoglobals // provider is shut down from Shutdown
var (
	otelMu       sync.Mutex
	otelProvider *sdklog.LoggerProvider
)

// NewOTELWriter dials the collector and installs the provider globally.
func NewOTELWriter(ctx context.Context, config OTelConfig) (*OTelWriter, error) {
	if !config.Enabled {
		return nil, ErrOTelLoggingDisabled
	}

	if config.Endpoint == "" {
		return nil, ErrOTelEndpointRequired
	}

	exporterOpts, err := exporterOptions(config)
	if err != nil {
		return nil, err
	}

	exporter, err := otlploggrpc.New(ctx, exporterOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP log exporter: %w", err)
	}

	serviceName := config.ServiceName
	if serviceName == "" {
		serviceName = defaultServiceName
	}

	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(serviceName)))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	batchTimeout := time.Duration(config.BatchTimeout)
	if batchTimeout <= 0 {
		batchTimeout = defaultBatchTimeout
	}

	provider := sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter, sdklog.WithExportTimeout(batchTimeout))),
	)

	otelMu.Lock()
	otelProvider = provider
	otelMu.Unlock()

	global.SetLoggerProvider(provider)

	return newOTelWriter(ctx, provider), nil
}

func newOTelWriter(ctx context.Context, provider *sdklog.LoggerProvider) *OTelWriter {
	return &OTelWriter{
		ctx:      ctx,
		provider: provider,
		scopes:   make(map[string]otellog.Logger),
	}
}

func exporterOptions(config OTelConfig) ([]otlploggrpc.Option, error) {
	opts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(config.Endpoint)}

	switch {
	case config.Insecure:
		opts = append(opts, otlploggrpc.WithInsecure())
	case config.TLS != nil:
		tlsConfig, err := clientTLSConfig(config.TLS)
		if err != nil {
			return nil, fmt.Errorf("failed to setup TLS configuration: %w", err)
		}

		opts = append(opts, otlploggrpc.WithTLSCredentials(credentials.NewTLS(tlsConfig)))
	}

	if len(config.Headers) > 0 {
		opts = append(opts, otlploggrpc.WithHeaders(config.Headers))
	}

	return opts, nil
}

// Write never fails: lines that are not JSON objects are dropped so the
// primary output is not affected.
func (w *OTelWriter) Write(p []byte) (int, error) {
	if w.provider == nil {
		return len(p), nil
	}

	fields := make(map[string]interface{})
	if err := json.Unmarshal(p, &fields); err != nil {
		return len(p), nil
	}

	record := otellog.Record{}
	record.SetObservedTimestamp(time.Now())

	if ts, ok := popString(fields, zerolog.TimestampFieldName); ok {
		if parsed, err := time.Parse(zerolog.TimeFieldFormat, ts); err == nil {
			record.SetTimestamp(parsed)
		}
	}

	if level, ok := popString(fields, zerolog.LevelFieldName); ok {
		record.SetSeverity(severityOf(level))
		record.SetSeverityText(level)
	}

	if msg, ok := popString(fields, zerolog.MessageFieldName); ok {
		record.SetBody(otellog.StringValue(msg))
	}

	scope := defaultScope
	if component, ok := popString(fields, "component"); ok && component != "" {
		scope = component
	}

	for key, value := range fields {
		record.AddAttributes(attributeFor(key, value))
	}

	w.scope(scope).Emit(w.ctx, record)

	return len(p), nil
}

func (w *OTelWriter) scope(name string) otellog.Logger {
	w.mu.Lock()
	defer w.mu.Unlock()

	l, ok := w.scopes[name]
	if !ok {
		l = w.provider.Logger(name)
		w.scopes[name] = l
	}

	return l
}

func popString(fields map[string]interface{}, key string) (string, bool) {
	s, ok := fields[key].(string)
	if ok {
		delete(fields, key)
	}

	return s, ok
}

// attributeFor keeps JSON numbers and booleans typed; zerolog's error field
// becomes exception.message.
func attributeFor(key string, value interface{}) otellog.KeyValue {
	if key == zerolog.ErrorFieldName {
		key = string(semconv.ExceptionMessageKey)
	}

	switch v := value.(type) {
	case bool:
		return otellog.Bool(key, v)
	case float64:
		return otellog.Float64(key, v)
	case string:
		return otellog.String(key, truncate(v))
	case nil:
		return otellog.String(key, "null")
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return otellog.String(key, truncate(fmt.Sprint(v)))
		}

		return otellog.String(key, truncate(string(b)))
	}
}

func truncate(s string) string {
	if len(s) > maxAttributeValueLength {
		return s[:maxAttributeValueLength]
	}

	return s
}

func severityOf(level string) otellog.Severity {
	switch level {
	case zerolog.LevelTraceValue:
		return otellog.SeverityTrace
	case zerolog.LevelDebugValue:
		return otellog.SeverityDebug
	case zerolog.LevelWarnValue:
		return otellog.SeverityWarn
	case zerolog.LevelErrorValue:
		return otellog.SeverityError
	case zerolog.LevelFatalValue:
		return otellog.SeverityFatal
	case zerolog.LevelPanicValue:
		return otellog.SeverityFatal4
	default:
		return otellog.SeverityInfo
	}
}

// ShutdownOTEL flushes and stops the OTel log provider, if any.
func ShutdownOTEL() error {
	otelMu.Lock()
	provider := otelProvider
	otelProvider = nil
	otelMu.Unlock()

	if provider == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return provider.Shutdown(ctx)
}

func clientTLSConfig(cfg *TLSConfig) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load client certificate: %w", err)
	}

	tlsConfig := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}

	if cfg.CAFile == "" {
		return tlsConfig, nil
	}

	pem, err := os.ReadFile(cfg.CAFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA certificate: %w", err)
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, errCAAppend
	}

	tlsConfig.RootCAs = pool

	return tlsConfig, nil
}
