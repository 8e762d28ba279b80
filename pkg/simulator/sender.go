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

// Package simulator contains the sensor producers used to drive a gateway in
// development: a temperature sensor on TCP, a humidity sensor on UDP and the
// ALIVE heartbeat.
package simulator

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"
)

const defaultDialTimeout = 2 * time.Second

var errNoAddress = errors.New("sender address is required")

// Sender delivers one encoded frame to the gateway.
type Sender interface {
	Send(ctx context.Context, frame []byte) error
}

// TCPSender opens a new connection for every frame, writes the frame followed
// by a newline and closes the connection.
type TCPSender struct {
	addr        string
	dialTimeout time.Duration
	dialer      net.Dialer
}

// NewTCPSender returns a sender for addr. A zero dialTimeout uses 2s.
func NewTCPSender(addr string, dialTimeout time.Duration) *TCPSender {
	if dialTimeout <= 0 {
		dialTimeout = defaultDialTimeout
	}

	return &TCPSender{addr: addr, dialTimeout: dialTimeout}
}

func (s *TCPSender) Send(ctx context.Context, frame []byte) error {
	if s.addr == "" {
		return errNoAddress
	}

	dialCtx, cancel := context.WithTimeout(ctx, s.dialTimeout)
	defer cancel()

	conn, err := s.dialer.DialContext(dialCtx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("dial tcp %s: %w", s.addr, err)
	}
	defer func() { _ = conn.Close() }()

	if err := conn.SetWriteDeadline(time.Now().Add(s.dialTimeout)); err != nil {
		return err
	}

	line := make([]byte, 0, len(frame)+1)
	line = append(append(line, frame...), '\n')

	if _, err := conn.Write(line); err != nil {
		return fmt.Errorf("write tcp %s: %w", s.addr, err)
	}

	return nil
}

// UDPSender writes each frame as one datagram. The socket is opened lazily
// and reopened after a write error.
type UDPSender struct {
	addr string

	mu   sync.Mutex
	conn net.Conn
}

// NewUDPSender returns a sender for addr.
func NewUDPSender(addr string) *UDPSender {
	return &UDPSender{addr: addr}
}

func (s *UDPSender) Send(ctx context.Context, frame []byte) error {
	if s.addr == "" {
		return errNoAddress
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		var d net.Dialer

		conn, err := d.DialContext(ctx, "udp", s.addr)
		if err != nil {
			return fmt.Errorf("dial udp %s: %w", s.addr, err)
		}

		s.conn = conn
	}

	if _, err := s.conn.Write(frame); err != nil {
		_ = s.conn.Close()
		s.conn = nil

		return fmt.Errorf("write udp %s: %w", s.addr, err)
	}

	return nil
}

// Close releases the socket, if one is open.
func (s *UDPSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil
	}

	err := s.conn.Close()
	s.conn = nil

	return err
}
