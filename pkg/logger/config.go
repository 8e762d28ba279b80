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
	"os"
	"strings"
	"time"
)

const defaultServiceName = "sensorgw"

const (
	envLogLevel      = "LOG_LEVEL"
	envDebug         = "DEBUG"
	envLogOutput     = "LOG_OUTPUT"
	envLogTimeFormat = "LOG_TIME_FORMAT"

	envOTelEnabled  = "OTEL_LOGS_ENABLED"
	envOTelEndpoint = "OTEL_EXPORTER_OTLP_LOGS_ENDPOINT"
	envOTelHeaders  = "OTEL_EXPORTER_OTLP_LOGS_HEADERS"
	envOTelTimeout  = "OTEL_EXPORTER_OTLP_LOGS_TIMEOUT"
	envOTelInsecure = "OTEL_EXPORTER_OTLP_LOGS_INSECURE"
	envServiceName  = "OTEL_SERVICE_NAME"
)

// DefaultConfig reads the logging settings from the environment. Without
// any variables set it logs at info level to stdout.
func DefaultConfig() *Config {
	return &Config{
		Level:      envString(envLogLevel, "info"),
		Debug:      envFlag(envDebug),
		Output:     envString(envLogOutput, "stdout"),
		TimeFormat: os.Getenv(envLogTimeFormat),
		OTel:       DefaultOTelConfig(),
	}
}

// DefaultOTelConfig reads the OTLP log exporter settings. Export stays off
// unless OTEL_LOGS_ENABLED is set.
func DefaultOTelConfig() OTelConfig {
	timeout := defaultBatchTimeout
	if d, err := time.ParseDuration(os.Getenv(envOTelTimeout)); err == nil {
		timeout = d
	}

	return OTelConfig{
		Enabled:      envFlag(envOTelEnabled),
		Endpoint:     os.Getenv(envOTelEndpoint),
		Headers:      parseHeaders(os.Getenv(envOTelHeaders)),
		ServiceName:  envString(envServiceName, defaultServiceName),
		BatchTimeout: Duration(timeout),
		Insecure:     envFlag(envOTelInsecure),
	}
}

// parseHeaders reads "k1=v1,k2=v2". Pairs without '=' are skipped.
func parseHeaders(raw string) map[string]string {
	headers := make(map[string]string)

	for _, pair := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}

		headers[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}

	return headers
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

// envFlag accepts true/1/yes/on in any case.
func envFlag(key string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "true", "1", "yes", "on":
		return true
	default:
		return false
	}
}
