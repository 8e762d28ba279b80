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
	"bytes"
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/carverauto/sensorgw/pkg/logger"
)

// UDPListener hands every datagram to its handler on the receive goroutine.
type UDPListener struct {
	addr    string
	handler FrameHandler
	opts    ListenerOptions
	logger  logger.Logger

	mu   sync.Mutex
	conn net.PacketConn

	closeOnce sync.Once
	closed    chan struct{}
}

func NewUDPListener(addr string, handler FrameHandler, opts ListenerOptions, log logger.Logger) *UDPListener {
	return &UDPListener{
		addr:    addr,
		handler: handler,
		opts:    opts.withDefaults(),
		logger:  log,
		closed:  make(chan struct{}),
	}
}

// Listen binds the address. It returns a *BindError on failure.
func (l *UDPListener) Listen() error {
	conn, err := net.ListenPacket("udp", l.addr)
	if err != nil {
		return &BindError{Transport: TransportUDP, Addr: l.addr, Err: err}
	}

	l.mu.Lock()
	l.conn = conn
	l.mu.Unlock()

	return nil
}

// Addr returns the bound address, or nil before Listen.
func (l *UDPListener) Addr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.conn == nil {
		return nil
	}

	return l.conn.LocalAddr()
}

// Serve receives datagrams until Close. A datagram longer than
// MaxFrameBytes is dropped and reported as ErrTruncatedDatagram.
func (l *UDPListener) Serve(ctx context.Context) error {
	l.mu.Lock()
	conn := l.conn
	l.mu.Unlock()

	if conn == nil {
		return ErrNotListening
	}

	// One spare byte tells a full-size datagram from a truncated one.
	buf := make([]byte, l.opts.MaxFrameBytes+1)

	var backoff time.Duration

	for {
		n, from, err := conn.ReadFrom(buf)
		if err != nil {
			if l.isClosed() || errors.Is(err, net.ErrClosed) {
				return nil
			}

			backoff = nextBackoff(backoff)

			l.logger.Warn().Err(err).Dur("retry_in", backoff).Msg("Receive failed")
			l.opts.OnError(ctx, TransportUDP, err)

			select {
			case <-time.After(backoff):
				continue
			case <-l.closed:
				return nil
			}
		}

		backoff = 0

		if n > l.opts.MaxFrameBytes {
			l.logger.Debug().Stringer("remote", from).Int("max_bytes", l.opts.MaxFrameBytes).Msg("Dropping oversized datagram")
			l.opts.OnError(ctx, TransportUDP, ErrTruncatedDatagram)

			continue
		}

		l.handler(ctx, TransportUDP, bytes.Clone(buf[:n]))
	}
}

// Close unblocks Serve.
func (l *UDPListener) Close() error {
	var err error

	l.closeOnce.Do(func() {
		l.mu.Lock()
		close(l.closed)
		conn := l.conn
		l.mu.Unlock()

		if conn != nil {
			err = conn.Close()
		}
	})

	return err
}

func (l *UDPListener) isClosed() bool {
	select {
	case <-l.closed:
		return true
	default:
		return false
	}
}
