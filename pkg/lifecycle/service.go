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
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/carverauto/sensorgw/pkg/logger"
)

const defaultShutdownTimeout = 10 * time.Second

var errNoServices = errors.New("no services to run")

// Service is a long-running component with a non-blocking Start.
type Service interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// ServiceOptions controls RunService.
type ServiceOptions struct {
	ServiceName     string
	ShutdownTimeout time.Duration
	Logger          logger.Logger
	// Signals defaults to SIGINT and SIGTERM.
	Signals []os.Signal
}

// RunService starts every service in order, blocks until ctx is cancelled or
// a shutdown signal arrives, then stops them in reverse order. If a service
// fails to start, the ones already started are stopped and the start error
// is returned.
func RunService(ctx context.Context, opts *ServiceOptions, services ...Service) error {
	if len(services) == 0 {
		return errNoServices
	}

	if opts == nil {
		opts = &ServiceOptions{}
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewTestLogger()
	}

	signals := opts.Signals
	if len(signals) == 0 {
		signals = []os.Signal{syscall.SIGINT, syscall.SIGTERM}
	}

	ctx, stop := signal.NotifyContext(ctx, signals...)
	defer stop()

	started := make([]Service, 0, len(services))

	for _, svc := range services {
		if err := svc.Start(ctx); err != nil {
			stopErr := stopAll(opts, log, started)

			return errors.Join(fmt.Errorf("failed to start %s: %w", opts.ServiceName, err), stopErr)
		}

		started = append(started, svc)
	}

	log.Info().Str("service", opts.ServiceName).Msg("Service started")

	<-ctx.Done()

	log.Info().Str("service", opts.ServiceName).Msg("Shutting down")

	return stopAll(opts, log, started)
}

func stopAll(opts *ServiceOptions, log logger.Logger, started []Service) error {
	timeout := opts.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var errs []error

	for i := len(started) - 1; i >= 0; i-- {
		if err := started[i].Stop(ctx); err != nil {
			log.Error().Err(err).Str("service", opts.ServiceName).Msg("Error during shutdown")

			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
