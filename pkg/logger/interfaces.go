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
	"io"

	"github.com/rs/zerolog"
)

// Logger is what components take instead of the global logger. A zerolog
// logger wrapped by lifecycle.LoggerImpl satisfies it, as does NewTestLogger.
type Logger interface {
	Trace() *zerolog.Event
	Debug() *zerolog.Event
	Info() *zerolog.Event
	Warn() *zerolog.Event
	Error() *zerolog.Event
	With() zerolog.Context
	WithComponent(component string) zerolog.Logger
}

// NewTestLogger returns a Logger that drops everything.
func NewTestLogger() Logger {
	return &discardLogger{zerolog.New(io.Discard).Level(zerolog.Disabled)}
}

type discardLogger struct {
	zerolog.Logger
}

func (d *discardLogger) WithComponent(component string) zerolog.Logger {
	return d.With().Str("component", component).Logger()
}
