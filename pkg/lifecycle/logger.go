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

package lifecycle

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/carverauto/sensorgw/pkg/logger"
)

// LoggerImpl is an injectable logger.Logger backed by its own zerolog
// instance rather than the global one.
type LoggerImpl struct {
	zerolog.Logger
}

// NewLoggerImpl builds a logger from config.
func NewLoggerImpl(ctx context.Context, config *logger.Config) (*LoggerImpl, error) {
	zlog, err := logger.Build(ctx, config)
	if err != nil {
		return nil, err
	}

	return &LoggerImpl{Logger: zlog}, nil
}

func (l *LoggerImpl) WithComponent(component string) zerolog.Logger {
	return l.With().Str("component", component).Logger()
}

// CreateComponentLogger returns a logger whose lines carry component.
func CreateComponentLogger(ctx context.Context, component string, config *logger.Config) (logger.Logger, error) {
	impl, err := NewLoggerImpl(ctx, config)
	if err != nil {
		return nil, err
	}

	impl.Logger = impl.WithComponent(component)

	return impl, nil
}

// ShutdownLogger flushes any exporter started by the logger package.
func ShutdownLogger() error {
	return logger.Shutdown()
}
