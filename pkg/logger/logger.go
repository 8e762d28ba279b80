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

// Package logger provides JSON structured logging using zerolog
package logger

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

//nolint:gochecknoglobals // process-wide logger, mirrors zerolog/log
var (
	globalMu     sync.RWMutex
	globalLogger zerolog.Logger
)

type Config struct {
	Level      string     `json:"level" yaml:"level"`
	Debug      bool       `json:"debug" yaml:"debug"`
	Output     string     `json:"output" yaml:"output"`
	TimeFormat string     `json:"time_format" yaml:"time_format"`
	OTel       OTelConfig `json:"otel" yaml:"otel"`
}

func init() {
	globalLogger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	zerolog.TimeFieldFormat = time.RFC3339
}

// Build creates a zerolog logger from config. When OTel export is enabled the
// JSON lines are also handed to an OTLP log exporter.
func Build(ctx context.Context, config *Config) (zerolog.Logger, error) {
	if config == nil {
		config = DefaultConfig()
	}

	var output io.Writer = os.Stdout

	if config.Output == "stderr" {
		output = os.Stderr
	}

	level, err := parseLevel(config)
	if err != nil {
		return zerolog.Nop(), err
	}

	if config.TimeFormat != "" {
		zerolog.TimeFieldFormat = config.TimeFormat
	}

	if config.OTel.Enabled {
		otelWriter, err := NewOTELWriter(ctx, config.OTel)
		if err != nil {
			return zerolog.Nop(), err
		}

		output = zerolog.MultiLevelWriter(output, otelWriter)
	}

	return zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger(), nil
}

func parseLevel(config *Config) (zerolog.Level, error) {
	if config.Debug {
		return zerolog.DebugLevel, nil
	}

	if config.Level == "" {
		return zerolog.InfoLevel, nil
	}

	return zerolog.ParseLevel(config.Level)
}

// Init replaces the process-wide logger.
func Init(ctx context.Context, config *Config) error {
	l, err := Build(ctx, config)
	if err != nil {
		return err
	}

	globalMu.Lock()
	globalLogger = l
	log.Logger = l
	globalMu.Unlock()

	return nil
}

func SetLevel(level zerolog.Level) {
	globalMu.Lock()
	defer globalMu.Unlock()

	globalLogger = globalLogger.Level(level)
	log.Logger = globalLogger
}

func SetDebug(debug bool) {
	if debug {
		SetLevel(zerolog.DebugLevel)
	} else {
		SetLevel(zerolog.InfoLevel)
	}
}

func GetLogger() zerolog.Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()

	return globalLogger
}

func WithComponent(component string) zerolog.Logger {
	l := GetLogger()

	return l.With().Str("component", component).Logger()
}

// Shutdown flushes the OTel exporter if one was started.
func Shutdown() error {
	return ShutdownOTEL()
}
