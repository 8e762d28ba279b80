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

package wire

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedFrame is returned when the field count does not match the tag
	// or a field cannot be read at all.
	ErrMalformedFrame = errors.New("malformed frame")
	// ErrUnknownTag is returned for a tag that is not TEMPERATURE, HUMIDITY or ALIVE.
	ErrUnknownTag = errors.New("unknown tag")
	// ErrInvalidNumber is returned when the value field is not a finite float.
	ErrInvalidNumber = errors.New("invalid number")
)

// DecodeError reports why a frame was rejected. It matches one of the
// sentinel errors above with errors.Is.
type DecodeError struct {
	Class error
	Frame string
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v: %v (frame %q)", e.Class, e.Err, e.Frame)
	}

	return fmt.Sprintf("%v (frame %q)", e.Class, e.Frame)
}

func (e *DecodeError) Is(target error) bool {
	return target == e.Class
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Reason is a short label suitable for metrics.
func (e *DecodeError) Reason() string {
	switch e.Class {
	case ErrUnknownTag:
		return "unknown_tag"
	case ErrInvalidNumber:
		return "invalid_number"
	default:
		return "malformed_frame"
	}
}

// ReasonOf returns the metric label for any error produced while reading a frame.
func ReasonOf(err error) string {
	var de *DecodeError
	if errors.As(err, &de) {
		return de.Reason()
	}

	return "transport"
}

const maxQuotedFrame = 64

func newDecodeError(kind error, frame string, err error) *DecodeError {
	if len(frame) > maxQuotedFrame {
		frame = frame[:maxQuotedFrame] + "..."
	}

	return &DecodeError{Class: kind, Frame: frame, Err: err}
}

var (
	errInvalidUTF8 = errors.New("frame is not valid UTF-8")
	errNotFinite   = errors.New("value is not finite")
)
