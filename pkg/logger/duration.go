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

package logger

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalidDuration is returned for values that are neither a Go duration
// string nor integer nanoseconds.
var ErrInvalidDuration = errors.New("invalid duration")

// Duration is a time.Duration that reads "3s" style strings or integer
// nanoseconds from JSON and YAML, and writes the string form.
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value))

		return nil
	case string:
		return d.parse(value)
	default:
		return fmt.Errorf("%w: %s", ErrInvalidDuration, b)
	}
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("%w: expected scalar, got yaml kind %d", ErrInvalidDuration, node.Kind)
	}

	var ns int64
	if err := node.Decode(&ns); err == nil {
		*d = Duration(time.Duration(ns))

		return nil
	}

	return d.parse(node.Value)
}

func (d *Duration) parse(s string) error {
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDuration, err)
	}

	*d = Duration(parsed)

	return nil
}

func (d Duration) String() string {
	return time.Duration(d).String()
}
