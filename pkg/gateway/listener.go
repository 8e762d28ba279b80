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

package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/carverauto/sensorgw/pkg/models"
)

const (
	minAcceptBackoff = 5 * time.Millisecond
	maxAcceptBackoff = time.Second
)

// FrameHandler receives one raw frame. transport is TransportTCP or
// TransportUDP.
type FrameHandler func(ctx context.Context, transport string, frame []byte)

// ErrorHandler receives per-message transport failures: oversized frames,
// resets and read timeouts. None of them stop a listener.
type ErrorHandler func(ctx context.Context, transport string, err error)

// ListenerOptions bounds what a listener accepts.
type ListenerOptions struct {
	MaxFrameBytes int
	ReadTimeout   time.Duration
	OnError       ErrorHandler
}

func (o ListenerOptions) withDefaults() ListenerOptions {
	if o.MaxFrameBytes <= 0 {
		o.MaxFrameBytes = models.DefaultMaxFrameBytes
	}

	if o.ReadTimeout <= 0 {
		o.ReadTimeout = models.DefaultConnReadTimeout
	}

	if o.OnError == nil {
		o.OnError = func(context.Context, string, error) {}
	}

	return o
}

// waitGroup waits for wg or gives up when ctx is done.
func waitGroup(ctx context.Context, wg *sync.WaitGroup) error {
	done := make(chan struct{})

	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func nextBackoff(d time.Duration) time.Duration {
	if d == 0 {
		return minAcceptBackoff
	}

	d *= 2
	if d > maxAcceptBackoff {
		d = maxAcceptBackoff
	}

	return d
}
