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
	"errors"
	"time"

	"github.com/carverauto/sensorgw/pkg/models"
	"github.com/carverauto/sensorgw/pkg/wire"
)

// HandleFrame decodes one frame and applies it. A frame that does not decode
// is reported to the observer and changes nothing. A telemetry record is
// appended to the store before its channel is touched, so a reader that sees
// the channel refreshed also sees the record.
func (g *Gateway) HandleFrame(ctx context.Context, transport string, frame []byte) {
	receivedAt := g.clock.Now()

	decoded, err := g.codec.Decode(frame)
	if err != nil {
		var decodeErr *wire.DecodeError
		if errors.As(err, &decodeErr) {
			g.logger.Warn().
				Str("transport", transport).
				Str("reason", decodeErr.Reason()).
				Str("frame", decodeErr.Frame).
				Msg("Discarding undecodable frame")
		}

		g.observer.FrameRejected(ctx, transport, err)

		return
	}

	if decoded.IsBeacon() {
		g.observer.BeaconReceived(ctx, transport, *decoded.Beacon)
		g.touch(ctx, models.BeaconChannel, receivedAt)

		return
	}

	rec := *decoded.Record

	g.store.Append(rec)
	g.observer.RecordIngested(ctx, transport, rec)
	g.touch(ctx, rec.Kind, receivedAt)
}

func (g *Gateway) touch(ctx context.Context, kind models.Kind, at time.Time) {
	g.monitor.Touch(kind, at)
	g.transitions.drain(ctx, g.observer)
}

// Evaluate runs one liveness pass at the current clock time and returns the
// channels that went silent. Their ChannelDown callbacks are delivered in
// order with any recovery that races the pass.
func (g *Gateway) Evaluate(ctx context.Context) []models.Kind {
	flipped := g.monitor.Evaluate(g.clock.Now())
	g.transitions.drain(ctx, g.observer)

	return flipped
}

func (g *Gateway) transportError(ctx context.Context, transport string, err error) {
	g.observer.FrameRejected(ctx, transport, err)
}
