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

// Package wire reads and writes the pipe-delimited sensor line protocol:
//
//	TEMPERATURE|<value>|<DD/MM/YYYY - HH:MM>
//	HUMIDITY|<value>|<DD/MM/YYYY - HH:MM>
//	ALIVE|<DD/MM/YYYY - HH:MM>
package wire

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/carverauto/sensorgw/pkg/models"
)

const (
	// TimestampLayout is the wire timestamp format, minute resolution.
	TimestampLayout = "02/01/2006 - 15:04"
	// Delimiter separates fields in a frame.
	Delimiter = "|"
	// TagAlive marks a heartbeat frame.
	TagAlive = "ALIVE"

	telemetryFields = 3
	beaconFields    = 2
)

// Frame is the result of decoding one message. Exactly one of Record and
// Beacon is set.
type Frame struct {
	Record *models.TelemetryRecord
	Beacon *models.AliveBeacon
}

// IsBeacon reports whether the frame is a heartbeat.
func (f Frame) IsBeacon() bool {
	return f.Beacon != nil
}

// Codec converts between frames and typed records. The zero value is not
// usable; use NewCodec.
type Codec struct {
	loc *time.Location
}

// NewCodec returns a codec that reads and writes timestamps in loc. A nil loc
// means time.Local.
func NewCodec(loc *time.Location) *Codec {
	if loc == nil {
		loc = time.Local
	}

	return &Codec{loc: loc}
}

//nolint:gochecknoglobals // default codec backing the package-level helpers
var defaultCodec = NewCodec(nil)

// Decode decodes raw with the default codec.
func Decode(raw []byte) (Frame, error) {
	return defaultCodec.Decode(raw)
}

// Encode encodes record with the default codec.
func Encode(record models.TelemetryRecord) []byte {
	return defaultCodec.Encode(record)
}

// EncodeBeacon encodes beacon with the default codec.
func EncodeBeacon(beacon models.AliveBeacon) []byte {
	return defaultCodec.EncodeBeacon(beacon)
}

// Decode parses one frame. It either returns a complete record or beacon, or
// a *DecodeError; it never returns a partial result.
func (c *Codec) Decode(raw []byte) (Frame, error) {
	line := string(bytes.TrimSpace(raw))

	if line == "" {
		return Frame{}, newDecodeError(ErrMalformedFrame, line, nil)
	}

	if !utf8.ValidString(line) {
		return Frame{}, newDecodeError(ErrMalformedFrame, line, errInvalidUTF8)
	}

	fields := strings.Split(line, Delimiter)
	tag := fields[0]

	if tag == TagAlive {
		return c.decodeBeacon(line, fields)
	}

	kind, ok := models.ParseKind(tag)
	if !ok {
		return Frame{}, newDecodeError(ErrUnknownTag, line, nil)
	}

	if len(fields) != telemetryFields {
		return Frame{}, newDecodeError(ErrMalformedFrame, line,
			fmt.Errorf("%s expects %d fields, got %d", tag, telemetryFields, len(fields)))
	}

	value, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
	if err != nil {
		return Frame{}, newDecodeError(ErrInvalidNumber, line, err)
	}

	if math.IsNaN(value) || math.IsInf(value, 0) {
		return Frame{}, newDecodeError(ErrInvalidNumber, line, errNotFinite)
	}

	observedAt, err := c.parseTimestamp(fields[2])
	if err != nil {
		return Frame{}, newDecodeError(ErrMalformedFrame, line, err)
	}

	return Frame{Record: &models.TelemetryRecord{
		Kind:       kind,
		Value:      value,
		ObservedAt: observedAt,
	}}, nil
}

func (c *Codec) decodeBeacon(line string, fields []string) (Frame, error) {
	if len(fields) != beaconFields {
		return Frame{}, newDecodeError(ErrMalformedFrame, line,
			fmt.Errorf("%s expects %d fields, got %d", TagAlive, beaconFields, len(fields)))
	}

	observedAt, err := c.parseTimestamp(fields[1])
	if err != nil {
		return Frame{}, newDecodeError(ErrMalformedFrame, line, err)
	}

	return Frame{Beacon: &models.AliveBeacon{ObservedAt: observedAt}}, nil
}

func (c *Codec) parseTimestamp(s string) (time.Time, error) {
	return time.ParseInLocation(TimestampLayout, strings.TrimSpace(s), c.loc)
}

// FormatTimestamp renders t in the wire format.
func (c *Codec) FormatTimestamp(t time.Time) string {
	return t.In(c.loc).Format(TimestampLayout)
}

// Encode renders record as a frame without a trailing newline.
func (c *Codec) Encode(record models.TelemetryRecord) []byte {
	var b strings.Builder

	b.WriteString(string(record.Kind))
	b.WriteString(Delimiter)
	b.WriteString(strconv.FormatFloat(record.Value, 'f', -1, 64))
	b.WriteString(Delimiter)
	b.WriteString(c.FormatTimestamp(record.ObservedAt))

	return []byte(b.String())
}

// EncodeBeacon renders beacon as a frame without a trailing newline.
func (c *Codec) EncodeBeacon(beacon models.AliveBeacon) []byte {
	return []byte(TagAlive + Delimiter + c.FormatTimestamp(beacon.ObservedAt))
}

// Truncate drops everything below minute resolution, which is what survives a
// trip over the wire.
func (c *Codec) Truncate(t time.Time) time.Time {
	t = t.In(c.loc)

	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, c.loc)
}
