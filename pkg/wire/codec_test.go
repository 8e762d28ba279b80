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
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carverauto/sensorgw/pkg/models"
)

func TestDecodeTelemetry(t *testing.T) {
	t.Parallel()

	codec := NewCodec(time.UTC)

	frame, err := codec.Decode([]byte("TEMPERATURE|25.3|01/01/2024 - 10:00"))
	require.NoError(t, err)
	require.NotNil(t, frame.Record)
	assert.False(t, frame.IsBeacon())

	assert.Equal(t, models.KindTemperature, frame.Record.Kind)
	assert.InDelta(t, 25.3, frame.Record.Value, 0)
	assert.True(t, frame.Record.ObservedAt.Equal(time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)))
}

func TestDecodeHumidityWithTrailingNewline(t *testing.T) {
	t.Parallel()

	codec := NewCodec(time.UTC)

	frame, err := codec.Decode([]byte("HUMIDITY|84.1|31/12/2023 - 23:59\r\n"))
	require.NoError(t, err)
	require.NotNil(t, frame.Record)
	assert.Equal(t, models.KindHumidity, frame.Record.Kind)
	assert.InDelta(t, 84.1, frame.Record.Value, 0)
	assert.Equal(t, 23, frame.Record.ObservedAt.Hour())
	assert.Equal(t, 59, frame.Record.ObservedAt.Minute())
}

func TestDecodeBeacon(t *testing.T) {
	t.Parallel()

	codec := NewCodec(time.UTC)

	frame, err := codec.Decode([]byte("ALIVE|15/06/2024 - 08:30"))
	require.NoError(t, err)
	require.True(t, frame.IsBeacon())
	assert.Nil(t, frame.Record)
	assert.True(t, frame.Beacon.ObservedAt.Equal(time.Date(2024, 6, 15, 8, 30, 0, 0, time.UTC)))
}

func TestDecodeErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		want   error
		reason string
	}{
		{"empty", "", ErrMalformedFrame, "malformed_frame"},
		{"whitespace only", "  \n", ErrMalformedFrame, "malformed_frame"},
		{"garbage", "GARBAGE", ErrUnknownTag, "unknown_tag"},
		{"lowercase tag", "temperature|25.3|01/01/2024 - 10:00", ErrUnknownTag, "unknown_tag"},
		{"missing timestamp", "TEMPERATURE|25.3", ErrMalformedFrame, "malformed_frame"},
		{"extra field", "HUMIDITY|81|01/01/2024 - 10:00|x", ErrMalformedFrame, "malformed_frame"},
		{"beacon with value", "ALIVE|1|01/01/2024 - 10:00", ErrMalformedFrame, "malformed_frame"},
		{"beacon without timestamp", "ALIVE", ErrMalformedFrame, "malformed_frame"},
		{"not a number", "TEMPERATURE|warm|01/01/2024 - 10:00", ErrInvalidNumber, "invalid_number"},
		{"nan", "TEMPERATURE|NaN|01/01/2024 - 10:00", ErrInvalidNumber, "invalid_number"},
		{"infinity", "HUMIDITY|+Inf|01/01/2024 - 10:00", ErrInvalidNumber, "invalid_number"},
		{"bad timestamp", "TEMPERATURE|25.3|2024-01-01T10:00:00Z", ErrMalformedFrame, "malformed_frame"},
		{"invalid utf8", "TEMPERATURE|25.3|\xff\xfe", ErrMalformedFrame, "malformed_frame"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			frame, err := Decode([]byte(tc.input))
			require.Error(t, err)
			require.ErrorIs(t, err, tc.want)
			assert.Nil(t, frame.Record)
			assert.Nil(t, frame.Beacon)

			var de *DecodeError
			require.True(t, errors.As(err, &de))
			assert.Equal(t, tc.reason, de.Reason())
			assert.Equal(t, tc.reason, ReasonOf(err))
		})
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("UTC+3", 3*60*60)
	codec := NewCodec(loc)

	records := []models.TelemetryRecord{
		{Kind: models.KindTemperature, Value: 25.3, ObservedAt: time.Date(2024, 1, 1, 10, 0, 0, 0, loc)},
		{Kind: models.KindTemperature, Value: -4, ObservedAt: time.Date(2023, 2, 28, 0, 1, 0, 0, loc)},
		{Kind: models.KindHumidity, Value: 89.99, ObservedAt: time.Date(2024, 12, 31, 23, 59, 0, 0, loc)},
		{Kind: models.KindHumidity, Value: 0.1 + 0.2, ObservedAt: time.Date(2024, 7, 4, 12, 30, 0, 0, loc)},
		{Kind: models.KindHumidity, Value: math.MaxFloat64, ObservedAt: time.Date(2000, 1, 1, 0, 0, 0, 0, loc)},
	}

	for _, rec := range records {
		frame, err := codec.Decode(codec.Encode(rec))
		require.NoError(t, err)
		require.NotNil(t, frame.Record)

		assert.Equal(t, rec.Kind, frame.Record.Kind)
		assert.Equal(t, rec.Value, frame.Record.Value) //nolint:testifylint // exact round trip is the point
		assert.True(t, rec.ObservedAt.Equal(frame.Record.ObservedAt),
			"observed_at %v != %v", rec.ObservedAt, frame.Record.ObservedAt)
	}
}

func TestEncodeFormat(t *testing.T) {
	t.Parallel()

	codec := NewCodec(time.UTC)
	at := time.Date(2024, 1, 1, 10, 0, 42, 999, time.UTC)

	assert.Equal(t, "TEMPERATURE|25.3|01/01/2024 - 10:00",
		string(codec.Encode(models.TelemetryRecord{Kind: models.KindTemperature, Value: 25.3, ObservedAt: at})))
	assert.Equal(t, "ALIVE|01/01/2024 - 10:00", string(codec.EncodeBeacon(models.AliveBeacon{ObservedAt: at})))
}

func TestTruncateMatchesWirePrecision(t *testing.T) {
	t.Parallel()

	codec := NewCodec(time.UTC)
	at := time.Date(2024, 3, 9, 17, 45, 31, 123456789, time.UTC)

	rec := models.TelemetryRecord{Kind: models.KindHumidity, Value: 82.5, ObservedAt: at}
	frame, err := codec.Decode(codec.Encode(rec))
	require.NoError(t, err)

	assert.True(t, codec.Truncate(at).Equal(frame.Record.ObservedAt))
}
