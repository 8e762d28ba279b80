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

package report

import (
	"net/http"
	"time"

	"github.com/carverauto/sensorgw/pkg/logger"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// CommonMiddleware logs every request and answers CORS preflights. The
// facade is read-only, so anything but GET and HEAD is refused.
func CommonMiddleware(next http.Handler, log logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS")
		w.Header().Set("Access-Control-Max-Age", "3600")

		switch r.Method {
		case http.MethodOptions:
			rec.WriteHeader(http.StatusOK)
		case http.MethodGet, http.MethodHead:
			next.ServeHTTP(rec, r)
		default:
			w.Header().Set("Allow", "GET, HEAD, OPTIONS")
			http.Error(rec, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		}

		log.Debug().
			Str("remote", r.RemoteAddr).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("took", time.Since(started)).
			Msg("HTTP request")
	})
}
