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

package telemetry

import (
	"github.com/carverauto/sensorgw/pkg/models"
)

// Appender accepts decoded records.
type Appender interface {
	Append(record models.TelemetryRecord)
}

// Reader is the read surface of the store.
type Reader interface {
	Snapshot(kind models.Kind) []models.TelemetryRecord
	LastValue(kind models.Kind) (float64, bool)
	Len(kind models.Kind) int
}
