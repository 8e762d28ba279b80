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
	"errors"
	"fmt"
)

const (
	TransportTCP = "tcp"
	TransportUDP = "udp"
)

var (
	// ErrOversizedFrame is reported when a stream frame exceeds max_frame_bytes.
	ErrOversizedFrame = errors.New("frame exceeds maximum size")
	// ErrTruncatedDatagram is reported when a datagram exceeds max_frame_bytes.
	ErrTruncatedDatagram = errors.New("datagram exceeds maximum size")
	// ErrAlreadyStarted is returned by a second Start.
	ErrAlreadyStarted = errors.New("gateway already started")
	// ErrStopped is returned by Start after Stop.
	ErrStopped = errors.New("gateway stopped")
	// ErrNotListening is returned by Serve before Listen.
	ErrNotListening = errors.New("listener is not bound")
)

// BindError reports a listener that could not bind its address.
type BindError struct {
	Transport string
	Addr      string
	Err       error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("%s listener: bind %s: %v", e.Transport, e.Addr, e.Err)
}

func (e *BindError) Unwrap() error {
	return e.Err
}
