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

package config

import (
	"context"
	"encoding"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/carverauto/sensorgw/pkg/logger"
)

var (
	// ErrDstMustBeNonNilPointer indicates that the destination must be a non-nil pointer.
	ErrDstMustBeNonNilPointer = errors.New("dst must be a non-nil pointer")
	// ErrDstMustBePointerToStruct indicates that the destination must be a pointer to a struct.
	ErrDstMustBePointerToStruct = errors.New("dst must be a pointer to a struct")

	errEnvValue = errors.New("invalid environment value")
)

//nolint:gochecknoglobals // reflect type lookups
var (
	durationType        = reflect.TypeOf(time.Duration(0))
	jsonUnmarshalerType = reflect.TypeOf((*json.Unmarshaler)(nil)).Elem()
	textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()
)

// EnvConfigLoader fills a struct from environment variables named after the
// json tags of its fields, upper-cased and joined with underscores:
// SENSORGW_EVENTS_URL sets cfg.Events.URL. Fields without a variable keep
// whatever value they already hold.
type EnvConfigLoader struct {
	logger logger.Logger
	prefix string
}

// NewEnvConfigLoader creates a loader reading variables that start with prefix.
func NewEnvConfigLoader(log logger.Logger, prefix string) *EnvConfigLoader {
	if log == nil {
		log = logger.NewTestLogger()
	}

	return &EnvConfigLoader{
		logger: log,
		prefix: prefix,
	}
}

// Load implements ConfigLoader. A <prefix>CONFIG_JSON variable, when set,
// is decoded as the whole document and individual variables are ignored.
func (e *EnvConfigLoader) Load(_ context.Context, _ string, dst interface{}) error {
	if raw := os.Getenv(e.prefix + "CONFIG_JSON"); raw != "" {
		if err := json.Unmarshal([]byte(raw), dst); err != nil {
			return fmt.Errorf("failed to unmarshal %sCONFIG_JSON: %w", e.prefix, err)
		}

		e.logger.Info().Msg("Loaded configuration from CONFIG_JSON environment variable")

		return nil
	}

	v := reflect.ValueOf(dst)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return ErrDstMustBeNonNilPointer
	}

	if v.Elem().Kind() != reflect.Struct {
		return ErrDstMustBePointerToStruct
	}

	var errs []error

	set := e.walk(v.Elem(), e.prefix, &errs)

	if err := errors.Join(errs...); err != nil {
		return err
	}

	e.logger.Info().Int("variables", set).Str("prefix", e.prefix).Msg("Loaded configuration from environment")

	return nil
}

// walk visits every tagged field of v and returns how many were set.
func (e *EnvConfigLoader) walk(v reflect.Value, prefix string, errs *[]error) int {
	t := v.Type()
	set := 0

	for i := range t.NumField() {
		sf := t.Field(i)
		field := v.Field(i)

		name, ok := envFieldName(sf)
		if !ok || !field.CanSet() {
			continue
		}

		envName := prefix + name

		if nested, ok := structTarget(field); ok {
			if nested.Kind() == reflect.Ptr {
				if nested.IsNil() && !anyEnvWithPrefix(envName+"_") {
					continue
				}

				if nested.IsNil() {
					nested.Set(reflect.New(nested.Type().Elem()))
				}

				nested = nested.Elem()
			}

			set += e.walk(nested, envName+"_", errs)

			continue
		}

		raw, ok := os.LookupEnv(envName)
		if !ok || raw == "" {
			continue
		}

		if err := assign(field, raw); err != nil {
			*errs = append(*errs, fmt.Errorf("%w: %s: %w", errEnvValue, envName, err))

			continue
		}

		e.logger.Debug().Str("env", envName).Msg("Loaded value from environment variable")

		set++
	}

	return set
}

// structTarget reports whether field should be walked as a nested struct
// rather than decoded from a single variable.
func structTarget(field reflect.Value) (reflect.Value, bool) {
	ft := field.Type()
	if ft.Kind() == reflect.Ptr {
		ft = ft.Elem()
	}

	if ft.Kind() != reflect.Struct {
		return reflect.Value{}, false
	}

	ptr := reflect.PointerTo(ft)
	if ptr.Implements(jsonUnmarshalerType) || ptr.Implements(textUnmarshalerType) {
		return reflect.Value{}, false
	}

	return field, true
}

func envFieldName(sf reflect.StructField) (string, bool) {
	tag := sf.Tag.Get("json")
	if tag == "" || tag == "-" {
		return "", false
	}

	name, _, _ := strings.Cut(tag, ",")
	if name == "" {
		return "", false
	}

	return strings.ToUpper(strings.ReplaceAll(name, ".", "_")), true
}

// assign decodes raw into field. Types with their own JSON or text decoding
// get raw first as JSON, then as a JSON string.
func assign(field reflect.Value, raw string) error {
	if field.Kind() == reflect.Ptr {
		if field.IsNil() {
			field.Set(reflect.New(field.Type().Elem()))
		}

		return assign(field.Elem(), raw)
	}

	target := field.Addr()

	switch {
	case target.Type().Implements(jsonUnmarshalerType):
		if json.Unmarshal([]byte(raw), target.Interface()) == nil {
			return nil
		}

		return json.Unmarshal([]byte(strconv.Quote(raw)), target.Interface())
	case target.Type().Implements(textUnmarshalerType):
		return target.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(raw))
	case field.Type() == durationType:
		d, err := time.ParseDuration(raw)
		if err != nil {
			return err
		}

		field.SetInt(int64(d))

		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}

		field.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, field.Type().Bits())
		if err != nil {
			return err
		}

		field.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(raw, 10, field.Type().Bits())
		if err != nil {
			return err
		}

		field.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(raw, field.Type().Bits())
		if err != nil {
			return err
		}

		field.SetFloat(f)
	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String && !strings.HasPrefix(strings.TrimSpace(raw), "[") {
			parts := strings.Split(raw, ",")
			out := reflect.MakeSlice(field.Type(), len(parts), len(parts))

			for i, part := range parts {
				out.Index(i).SetString(strings.TrimSpace(part))
			}

			field.Set(out)

			return nil
		}

		return json.Unmarshal([]byte(raw), target.Interface())
	default:
		// maps and anything else are JSON documents
		return json.Unmarshal([]byte(raw), target.Interface())
	}

	return nil
}

func anyEnvWithPrefix(prefix string) bool {
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, prefix) {
			return true
		}
	}

	return false
}
