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

// Package gateway receives sensor frames over TCP and UDP, stores the
// telemetry and tracks which sensor channels are still reporting.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/carverauto/sensorgw/pkg/liveness"
	"github.com/carverauto/sensorgw/pkg/logger"
	"github.com/carverauto/sensorgw/pkg/models"
	"github.com/carverauto/sensorgw/pkg/telemetry"
	"github.com/carverauto/sensorgw/pkg/wire"
)

// Options carries the collaborators of a Gateway. Zero values fall back to
// the real clock, a NopObserver and a discarding logger.
type Options struct {
	Clock    liveness.Clock
	Observer Observer
	Logger   logger.Logger
}

// Gateway owns the telemetry store, the liveness monitor and both listeners.
type Gateway struct {
	config   *models.GatewayConfig
	codec    *wire.Codec
	store    *telemetry.Store
	monitor  *liveness.Monitor
	clock    liveness.Clock
	observer Observer
	logger   logger.Logger

	transitions transitionQueue

	tcp *TCPListener
	udp *UDPListener

	mu      sync.Mutex
	started bool
	stopped bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New validates cfg and builds a gateway. Nothing is bound until Start.
func New(cfg *models.GatewayConfig, opts Options) (*Gateway, error) {
	if cfg == nil {
		cfg = models.DefaultGatewayConfig()
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	if opts.Clock == nil {
		opts.Clock = liveness.RealClock{}
	}

	if opts.Observer == nil {
		opts.Observer = NopObserver{}
	}

	if opts.Logger == nil {
		opts.Logger = logger.NewTestLogger()
	}

	thresholds := cfg.Thresholds()

	kinds := make([]models.Kind, 0, len(thresholds))
	for kind := range thresholds {
		kinds = append(kinds, kind)
	}

	g := &Gateway{
		config:   cfg,
		codec:    wire.NewCodec(loc),
		store:    telemetry.NewStore(kinds...),
		clock:    opts.Clock,
		observer: opts.Observer,
		logger:   opts.Logger,
	}

	g.monitor = liveness.New(thresholds, opts.Clock, liveness.WithSink(g.transitions.push))

	listenerOpts := ListenerOptions{
		MaxFrameBytes: cfg.MaxFrameBytes,
		ReadTimeout:   time.Duration(cfg.ConnReadTimeout),
		OnError:       g.transportError,
	}

	g.tcp = NewTCPListener(cfg.TCPListenAddr, g.HandleFrame, listenerOpts, opts.Logger)
	g.udp = NewUDPListener(cfg.UDPListenAddr, g.HandleFrame, listenerOpts, opts.Logger)

	return g, nil
}

// Start binds both listeners and starts the TCP, UDP and liveness loops. If
// either bind fails nothing is left running and the *BindError is returned.
// Cancelling ctx has the same effect as Stop without the drain.
func (g *Gateway) Start(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.stopped {
		return ErrStopped
	}

	if g.started {
		return ErrAlreadyStarted
	}

	if err := g.tcp.Listen(); err != nil {
		return err
	}

	if err := g.udp.Listen(); err != nil {
		_ = g.tcp.Close()

		return err
	}

	// Silence is measured from Start, not from New.
	g.monitor.ResetSilence(g.clock.Now())

	interval := time.Duration(g.config.EvaluateInterval)
	ticker := g.clock.Ticker(interval)

	runCtx, cancel := context.WithCancel(ctx)
	g.cancel = cancel
	g.started = true

	g.logger.Info().
		Stringer("tcp_addr", g.tcp.Addr()).
		Stringer("udp_addr", g.udp.Addr()).
		Dur("evaluate_interval", interval).
		Msg("Starting gateway")

	g.wg.Add(4)

	go func() {
		defer g.wg.Done()

		if err := g.tcp.Serve(runCtx); err != nil {
			g.logger.Error().Err(err).Msg("TCP listener stopped")
		}
	}()

	go func() {
		defer g.wg.Done()

		if err := g.udp.Serve(runCtx); err != nil {
			g.logger.Error().Err(err).Msg("UDP listener stopped")
		}
	}()

	go func() {
		defer g.wg.Done()
		defer ticker.Stop()

		g.livenessLoop(runCtx, ticker)
	}()

	go func() {
		defer g.wg.Done()

		<-runCtx.Done()
		g.closeListeners()
	}()

	return nil
}

func (g *Gateway) livenessLoop(ctx context.Context, ticker liveness.Ticker) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			g.Evaluate(ctx)
		}
	}
}

func (g *Gateway) closeListeners() {
	if err := g.tcp.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		g.logger.Warn().Err(err).Msg("Error closing TCP listener")
	}

	if err := g.udp.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		g.logger.Warn().Err(err).Msg("Error closing UDP listener")
	}
}

// Stop closes both listeners, stops the liveness loop and waits for
// in-flight handlers, bounded by ctx and shutdown_timeout. Stored telemetry
// is kept. Stop is idempotent.
func (g *Gateway) Stop(ctx context.Context) error {
	g.mu.Lock()

	if g.stopped {
		g.mu.Unlock()

		return nil
	}

	g.stopped = true
	started := g.started
	cancel := g.cancel
	g.mu.Unlock()

	if !started {
		return nil
	}

	g.logger.Info().Msg("Stopping gateway")

	cancel()
	g.closeListeners()

	ctx, done := context.WithTimeout(ctx, time.Duration(g.config.ShutdownTimeout))
	defer done()

	if err := waitGroup(ctx, &g.wg); err != nil {
		return fmt.Errorf("gateway loops did not stop: %w", err)
	}

	if err := g.tcp.Wait(ctx); err != nil {
		return fmt.Errorf("in-flight connections did not finish: %w", err)
	}

	g.logger.Info().Msg("Gateway stopped")

	return nil
}

// TCPAddr returns the bound TCP address, or nil before Start.
func (g *Gateway) TCPAddr() net.Addr {
	return g.tcp.Addr()
}

// UDPAddr returns the bound UDP address, or nil before Start.
func (g *Gateway) UDPAddr() net.Addr {
	return g.udp.Addr()
}

// Snapshot returns a copy of the series for kind in arrival order.
func (g *Gateway) Snapshot(kind models.Kind) []models.TelemetryRecord {
	return g.store.Snapshot(kind)
}

// LastValue returns the most recently stored value for kind.
func (g *Gateway) LastValue(kind models.Kind) (float64, bool) {
	return g.store.LastValue(kind)
}

// Len returns the number of stored records for kind.
func (g *Gateway) Len(kind models.Kind) int {
	return g.store.Len(kind)
}

// IsActive reports whether kind is considered alive.
func (g *Gateway) IsActive(kind models.Kind) bool {
	return g.monitor.IsActive(kind)
}

// Channels returns the liveness state of every monitored channel.
func (g *Gateway) Channels() []models.ChannelState {
	return g.monitor.States()
}

var _ telemetry.Reader = (*Gateway)(nil)
