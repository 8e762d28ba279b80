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

// Package eventlog appends gateway events to a JSON-lines file.
package eventlog

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"github.com/carverauto/sensorgw/pkg/models"
	"github.com/carverauto/sensorgw/pkg/wire"
)

const (
	EventRecord      = "record"
	EventBeacon      = "beacon"
	EventRejected    = "rejected"
	EventChannelDown = "channel_down"
	EventChannelUp   = "channel_up"
)

// Writer records one JSON object per line for every ingest and liveness
// event. It is safe for concurrent use.
type Writer struct {
	mu     sync.Mutex
	out    zerolog.Logger
	closer io.Closer
	closed bool
}

// Open opens path for appending, creating it and its directory if needed.
func Open(path string) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create event log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open event log %s: %w", path, err)
	}

	return New(f), nil
}

// New writes events to w. If w is an io.Closer, Close closes it.
func New(w io.Writer) *Writer {
	ew := &Writer{
		out: zerolog.New(w).With().Timestamp().Logger(),
	}

	if c, ok := w.(io.Closer); ok {
		ew.closer = c
	}

	return ew
}

// Close stops further writes and closes the underlying file. It is safe to
// call more than once.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}

	w.closed = true

	if w.closer != nil {
		return w.closer.Close()
	}

	return nil
}

func (w *Writer) emit(name string, fill func(e *zerolog.Event)) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}

	e := w.out.Log().Str("event", name)
	fill(e)
	e.Send()
}

func (w *Writer) RecordIngested(_ context.Context, transport string, rec models.TelemetryRecord) {
	w.emit(EventRecord, func(e *zerolog.Event) {
		e.Str("transport", transport).
			Str("kind", rec.Kind.String()).
			Float64("value", rec.Value).
			Time("observed_at", rec.ObservedAt)
	})
}

func (w *Writer) BeaconReceived(_ context.Context, transport string, b models.AliveBeacon) {
	w.emit(EventBeacon, func(e *zerolog.Event) {
		e.Str("transport", transport).Time("observed_at", b.ObservedAt)
	})
}

func (w *Writer) FrameRejected(_ context.Context, transport string, err error) {
	w.emit(EventRejected, func(e *zerolog.Event) {
		e.Str("transport", transport).Str("reason", wire.ReasonOf(err)).Str("error", err.Error())
	})
}

func (w *Writer) ChannelDown(_ context.Context, t models.ChannelTransition) {
	w.emit(EventChannelDown, func(e *zerolog.Event) {
		e.Str("kind", t.Kind.String()).
			Time("last_seen", t.LastSeenAt).
			Str("silent_for", t.SilentFor.String())
	})
}

func (w *Writer) ChannelUp(_ context.Context, t models.ChannelTransition) {
	w.emit(EventChannelUp, func(e *zerolog.Event) {
		e.Str("kind", t.Kind.String()).Time("last_seen", t.LastSeenAt)
	})
}
