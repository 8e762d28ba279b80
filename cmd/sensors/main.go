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
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/carverauto/sensorgw/pkg/lifecycle"
	"github.com/carverauto/sensorgw/pkg/logger"
	"github.com/carverauto/sensorgw/pkg/models"
	"github.com/carverauto/sensorgw/pkg/simulator"
	"github.com/carverauto/sensorgw/pkg/version"
	"github.com/carverauto/sensorgw/pkg/wire"
)

var errNothingToRun = errors.New("every producer is disabled")

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	flags := pflag.NewFlagSet("sensorgw-sensors", pflag.ExitOnError)
	tcpAddr := flags.String("tcp-addr", models.DefaultTCPListenAddr, "Gateway TCP address for temperature readings")
	udpAddr := flags.String("udp-addr", models.DefaultUDPListenAddr, "Gateway UDP address for humidity readings and heartbeats")
	temperature := flags.Bool("temperature", true, "Run the temperature sensor")
	humidity := flags.Bool("humidity", true, "Run the humidity sensor")
	heartbeat := flags.Bool("heartbeat", true, "Run the ALIVE heartbeat")
	interval := flags.Duration("interval", simulator.DefaultReadingInterval, "Reading interval")
	heartbeatInterval := flags.Duration("heartbeat-interval", simulator.DefaultHeartbeatInterval, "Heartbeat interval")
	location := flags.String("timestamp-location", "Local", "Time zone used for wire timestamps")
	logLevel := flags.String("log-level", "info", "Log level")
	showVersion := flags.BoolP("version", "v", false, "Print version and exit")
	_ = flags.Parse(os.Args[1:])

	if *showVersion {
		fmt.Println(version.String("sensorgw-sensors"))

		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logConfig := logger.DefaultConfig()
	logConfig.Level = *logLevel

	sensorLogger, err := lifecycle.CreateComponentLogger(ctx, "sensors", logConfig)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	defer func() { _ = lifecycle.ShutdownLogger() }()

	loc, err := (&models.GatewayConfig{TimestampLocation: *location}).Location()
	if err != nil {
		return err
	}

	codec := wire.NewCodec(loc)
	udp := simulator.NewUDPSender(*udpAddr)

	defer func() { _ = udp.Close() }()

	var producers []*simulator.Producer

	if *temperature {
		producers = append(producers, simulator.NewTemperatureSensor(
			simulator.NewTCPSender(*tcpAddr, 0), options(codec, *interval, sensorLogger)))
	}

	if *humidity {
		producers = append(producers, simulator.NewHumiditySensor(udp, options(codec, *interval, sensorLogger)))
	}

	if *heartbeat {
		producers = append(producers, simulator.NewHeartbeat(udp, options(codec, *heartbeatInterval, sensorLogger)))
	}

	if len(producers) == 0 {
		return errNothingToRun
	}

	sensorLogger.Info().
		Str("tcp_addr", *tcpAddr).
		Str("udp_addr", *udpAddr).
		Int("producers", len(producers)).
		Msg("Starting sensor simulators")

	g, gctx := errgroup.WithContext(ctx)

	for _, p := range producers {
		g.Go(func() error { return p.Run(gctx) })
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	sensorLogger.Info().Msg("Sensor simulators stopped")

	return nil
}

func options(codec *wire.Codec, interval time.Duration, l logger.Logger) simulator.Options {
	return simulator.Options{
		Interval: interval,
		Codec:    codec,
		Logger:   l,
	}
}
