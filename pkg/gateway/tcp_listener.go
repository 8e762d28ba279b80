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
	"io"
	"net"
	"sync"
	"time"

	"github.com/carverauto/sensorgw/pkg/logger"
)

// TCPListener accepts one frame per connection. Every connection gets its
// own goroutine; the frame ends at the first newline or when the peer
// closes its side.
type TCPListener struct {
	addr    string
	handler FrameHandler
	opts    ListenerOptions
	logger  logger.Logger

	mu       sync.Mutex
	ln       net.Listener
	conns    map[net.Conn]struct{}
	handlers sync.WaitGroup

	closeOnce sync.Once
	closed    chan struct{}
}

func NewTCPListener(addr string, handler FrameHandler, opts ListenerOptions, log logger.Logger) *TCPListener {
	return &TCPListener{
		addr:    addr,
		handler: handler,
		opts:    opts.withDefaults(),
		logger:  log,
		conns:   make(map[net.Conn]struct{}),
		closed:  make(chan struct{}),
	}
}

// Listen binds the address. It returns a *BindError on failure.
func (l *TCPListener) Listen() error {
	ln, err := net.Listen("tcp", l.addr)
	if err != nil {
		return &BindError{Transport: TransportTCP, Addr: l.addr, Err: err}
	}

	l.mu.Lock()
	l.ln = ln
	l.mu.Unlock()

	return nil
}

// Addr returns the bound address, or nil before Listen.
func (l *TCPListener) Addr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.ln == nil {
		return nil
	}

	return l.ln.Addr()
}

// Serve runs the accept loop until Close. It returns nil after Close.
func (l *TCPListener) Serve(ctx context.Context) error {
	l.mu.Lock()
	ln := l.ln
	l.mu.Unlock()

	if ln == nil {
		return ErrNotListening
	}

	var backoff time.Duration

	for {
		conn, err := ln.Accept()
		if err != nil {
			if l.isClosed() || errors.Is(err, net.ErrClosed) {
				return nil
			}

			backoff = nextBackoff(backoff)

			l.logger.Warn().Err(err).Dur("retry_in", backoff).Msg("Accept failed")

			select {
			case <-time.After(backoff):
				continue
			case <-l.closed:
				return nil
			}
		}

		backoff = 0

		if !l.track(conn) {
			_ = conn.Close()

			return nil
		}

		go l.handleConn(ctx, conn)
	}
}

// track registers conn as in flight unless the listener is closing.
func (l *TCPListener) track(conn net.Conn) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.isClosed() {
		return false
	}

	l.conns[conn] = struct{}{}
	l.handlers.Add(1)

	return true
}

func (l *TCPListener) untrack(conn net.Conn) {
	l.mu.Lock()
	delete(l.conns, conn)
	l.mu.Unlock()

	l.handlers.Done()
}

func (l *TCPListener) handleConn(ctx context.Context, conn net.Conn) {
	defer l.untrack(conn)

	defer func() {
		if err := conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			l.logger.Debug().Err(err).Msg("Error closing connection")
		}
	}()

	if err := conn.SetReadDeadline(time.Now().Add(l.opts.ReadTimeout)); err != nil {
		l.opts.OnError(ctx, TransportTCP, err)

		return
	}

	frame, err := readFrame(conn, l.opts.MaxFrameBytes)
	if err != nil {
		if errors.Is(err, io.EOF) {
			l.logger.Debug().Str("remote", conn.RemoteAddr().String()).Msg("Connection closed without data")

			return
		}

		l.logger.Debug().Err(err).Str("remote", conn.RemoteAddr().String()).Msg("Failed to read frame")
		l.opts.OnError(ctx, TransportTCP, err)

		return
	}

	l.handler(ctx, TransportTCP, frame)
}

// readFrame reads up to the first '\n' or EOF. A frame longer than max bytes
// fails with ErrOversizedFrame; a connection closed before any byte arrives
// fails with io.EOF.
func readFrame(r io.Reader, maxBytes int) ([]byte, error) {
	buf := make([]byte, 0, 128)
	chunk := make([]byte, 512)

	for {
		n, err := r.Read(chunk)
		if n > 0 {
			if i := bytes.IndexByte(chunk[:n], '\n'); i >= 0 {
				buf = append(buf, chunk[:i]...)
				if len(buf) > maxBytes {
					return nil, ErrOversizedFrame
				}

				return buf, nil
			}

			buf = append(buf, chunk[:n]...)
			if len(buf) > maxBytes {
				return nil, ErrOversizedFrame
			}
		}

		if err != nil {
			if errors.Is(err, io.EOF) && len(buf) > 0 {
				return buf, nil
			}

			return nil, err
		}
	}
}

// Close stops accepting. In-flight connections keep running until they
// finish or Wait gives up.
func (l *TCPListener) Close() error {
	var err error

	l.closeOnce.Do(func() {
		l.mu.Lock()
		close(l.closed)
		ln := l.ln
		l.mu.Unlock()

		if ln != nil {
			err = ln.Close()
		}
	})

	return err
}

// Wait blocks until every in-flight connection is done or ctx expires. On
// expiry the remaining connections are closed.
func (l *TCPListener) Wait(ctx context.Context) error {
	err := waitGroup(ctx, &l.handlers)
	if err == nil {
		return nil
	}

	l.mu.Lock()
	for conn := range l.conns {
		_ = conn.Close()
	}
	l.mu.Unlock()

	return err
}

func (l *TCPListener) isClosed() bool {
	select {
	case <-l.closed:
		return true
	default:
		return false
	}
}
