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

// Package report serves the stored telemetry and channel state over HTTP.
package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/carverauto/sensorgw/pkg/logger"
	"github.com/carverauto/sensorgw/pkg/models"
	"github.com/carverauto/sensorgw/pkg/wire"
)

const readHeaderTimeout = 5 * time.Second

var errAlreadyStarted = errors.New("report server already started")

// Source is the read surface the facade needs. The gateway implements it.
type Source interface {
	Snapshot(kind models.Kind) []models.TelemetryRecord
	LastValue(kind models.Kind) (float64, bool)
	Len(kind models.Kind) int
	IsActive(kind models.Kind) bool
	Channels() []models.ChannelState
}

// ChannelStatus is one entry of the /status document.
type ChannelStatus struct {
	Kind       models.Kind `json:"kind"`
	Active     bool        `json:"active"`
	LastSeen   time.Time   `json:"last_seen"`
	StaleAfter string      `json:"stale_after"`
	Records    int         `json:"records"`
	LastValue  *float64    `json:"last_value,omitempty"`
}

// Status is the /status document.
type Status struct {
	Channels []ChannelStatus `json:"channels"`
}

// Server is the HTTP reporting facade.
type Server struct {
	addr    string
	source  Source
	codec   *wire.Codec
	metrics http.Handler
	logger  logger.Logger

	mu  sync.Mutex
	srv *http.Server
	ln  net.Listener
}

// NewServer builds a facade on addr. Timestamps are rendered in loc, the
// zone of the wire format. metrics may be nil, which disables /metrics.
func NewServer(addr string, source Source, loc *time.Location, metrics http.Handler, log logger.Logger) *Server {
	if log == nil {
		log = logger.NewTestLogger()
	}

	return &Server{
		addr:    addr,
		source:  source,
		codec:   wire.NewCodec(loc),
		metrics: metrics,
		logger:  log,
	}
}

// Handler returns the routed and wrapped handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/temperature", s.series(models.KindTemperature, "Temperature Data", "Temperature"))
	mux.HandleFunc("/humidity", s.series(models.KindHumidity, "Humidity Data", "Humidity"))
	mux.HandleFunc("/gethumidity", s.lastHumidity)
	mux.HandleFunc("/status", s.status)

	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics)
	}

	mux.HandleFunc("/", s.notFound)

	return CommonMiddleware(mux, s.logger)
}

// Start binds addr and serves in the background.
func (s *Server) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.srv != nil {
		return errAlreadyStarted
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("report server: bind %s: %w", s.addr, err)
	}

	s.ln = ln
	s.srv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	s.logger.Info().Str("addr", ln.Addr().String()).Msg("Report server listening")

	go func(srv *http.Server) {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("Report server failed")
		}
	}(s.srv)

	return nil
}

// Stop shuts the server down gracefully within ctx.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.mu.Unlock()

	if srv == nil {
		return nil
	}

	return srv.Shutdown(ctx)
}

// Addr returns the bound address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ln == nil {
		return nil
	}

	return s.ln.Addr()
}

func (s *Server) series(kind models.Kind, title, label string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		records := s.source.Snapshot(kind)

		page := seriesPage{
			Title:  title,
			Label:  label,
			Active: s.source.IsActive(kind),
			Rows:   make([]seriesRow, 0, len(records)),
		}

		for _, rec := range records {
			page.Rows = append(page.Rows, seriesRow{
				Value:     formatValue(rec.Value),
				Timestamp: s.codec.FormatTimestamp(rec.ObservedAt),
			})
		}

		s.render(w, http.StatusOK, seriesTemplate, page)
	}
}

func (s *Server) lastHumidity(w http.ResponseWriter, _ *http.Request) {
	page := lastValuePage{Title: "Last Humidity Value"}

	if v, ok := s.source.LastValue(models.KindHumidity); ok {
		page.Found = true
		page.Value = formatValue(v)
	}

	s.render(w, http.StatusOK, lastValueTemplate, page)
}

func (s *Server) status(w http.ResponseWriter, _ *http.Request) {
	channels := s.source.Channels()
	doc := Status{Channels: make([]ChannelStatus, 0, len(channels))}

	for _, ch := range channels {
		entry := ChannelStatus{
			Kind:       ch.Kind,
			Active:     ch.Active,
			LastSeen:   ch.LastSeenAt,
			StaleAfter: ch.StaleAfter.String(),
			Records:    s.source.Len(ch.Kind),
		}

		if v, ok := s.source.LastValue(ch.Kind); ok {
			entry.LastValue = &v
		}

		doc.Channels = append(doc.Channels, entry)
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(doc); err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode status")
	}
}

func (s *Server) notFound(w http.ResponseWriter, _ *http.Request) {
	s.render(w, http.StatusNotFound, notFoundTemplate, nil)
}

func (s *Server) render(w http.ResponseWriter, status int, tmpl *template.Template, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)

	if err := tmpl.Execute(w, data); err != nil {
		s.logger.Error().Err(err).Str("template", tmpl.Name()).Msg("Failed to render page")
	}
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
