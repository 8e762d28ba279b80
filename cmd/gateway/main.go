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

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/carverauto/sensorgw/pkg/config"
	"github.com/carverauto/sensorgw/pkg/eventlog"
	"github.com/carverauto/sensorgw/pkg/gateway"
	"github.com/carverauto/sensorgw/pkg/lifecycle"
	"github.com/carverauto/sensorgw/pkg/metrics"
	"github.com/carverauto/sensorgw/pkg/models"
	"github.com/carverauto/sensorgw/pkg/natsutil"
	"github.com/carverauto/sensorgw/pkg/report"
	"github.com/carverauto/sensorgw/pkg/version"
)

var errFailedToLoadConfig = errors.New("failed to load config")

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	flags := pflag.NewFlagSet("sensorgw-gateway", pflag.ExitOnError)
	configPath := flags.StringP("config", "c", "", "Path to gateway config file (JSON or YAML); empty uses defaults")
	showVersion := flags.BoolP("version", "v", false, "Print version and exit")
	_ = flags.Parse(os.Args[1:])

	if *showVersion {
		fmt.Println(version.String("sensorgw-gateway"))

		return nil
	}

	ctx := context.Background()

	// Step 1: Load configuration on top of the defaults
	cfg := models.DefaultGatewayConfig()

	if err := config.NewConfig(nil).LoadAndValidate(ctx, *configPath, cfg); err != nil {
		return fmt.Errorf("%w: %w", errFailedToLoadConfig, err)
	}

	// Step 2: Create logger from loaded config
	gwLogger, err := lifecycle.CreateComponentLogger(ctx, "gateway", cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	defer func() {
		if err := lifecycle.ShutdownLogger(); err != nil {
			log.Printf("Failed to shut down logger: %v", err)
		}
	}()

	gwLogger.Info().
		Str("version", version.Version()).
		Str("tcp_addr", cfg.TCPListenAddr).
		Str("udp_addr", cfg.UDPListenAddr).
		Str("report_addr", cfg.ReportListenAddr).
		Msg("Starting sensor gateway")

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	// Step 3: Observers
	collector := metrics.NewCollector(models.Kinds()...)
	observers := []gateway.Observer{gateway.NewLogObserver(gwLogger), collector}

	if cfg.Events != nil && cfg.Events.Enabled {
		publisher, nc, err := natsutil.Connect(ctx, cfg.Events, gwLogger)
		if err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}

		defer func() {
			if err := nc.Drain(); err != nil {
				gwLogger.Warn().Err(err).Msg("Failed to drain NATS connection")
			}
		}()

		queued := natsutil.NewQueuedPublisher(publisher, natsutil.DefaultQueueSize, gwLogger)

		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeout))
			defer cancel()

			if err := queued.Close(flushCtx); err != nil {
				gwLogger.Warn().Err(err).Uint64("dropped", queued.Dropped()).Msg("Channel health events not flushed")
			}
		}()

		observers = append(observers, queued)
	}

	if cfg.EventLog != nil && cfg.EventLog.Enabled {
		writer, err := eventlog.Open(cfg.EventLog.Path)
		if err != nil {
			return fmt.Errorf("failed to open event log: %w", err)
		}

		defer func() { _ = writer.Close() }()

		observers = append(observers, writer)
	}

	// Step 4: Gateway and report server
	gw, err := gateway.New(cfg, gateway.Options{
		Observer: gateway.NewMultiObserver(observers...),
		Logger:   gwLogger,
	})
	if err != nil {
		return err
	}

	reportServer := report.NewServer(cfg.ReportListenAddr, gw, loc, collector.Handler(), gwLogger)

	return lifecycle.RunService(ctx, &lifecycle.ServiceOptions{
		ServiceName:     "sensorgw-gateway",
		ShutdownTimeout: time.Duration(cfg.ShutdownTimeout),
		Logger:          gwLogger,
	}, gw, reportServer)
}
