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

import "html/template"

const pageStyle = `<style>
body { font-family: 'Arial', sans-serif; margin: 20px; background-color: #f4f4f4; }
h2 { color: #333; text-align: center; background-color: #e0e0e0; padding: 10px; border-radius: 5px; }
hr { border: 1px solid #ddd; }
p { color: #555; }
.inactive { color: #a33; }
</style>`

type seriesRow struct {
	Value     string
	Timestamp string
}

type seriesPage struct {
	Title  string
	Label  string
	Active bool
	Rows   []seriesRow
}

type lastValuePage struct {
	Title string
	Value string
	Found bool
}

//nolint:gochecknoglobals // parsed once at init
var (
	seriesTemplate = template.Must(template.New("series").Parse(`<html><head><title>{{.Title}}</title>` + pageStyle + `</head><body>
<h2>{{.Title}}</h2>{{if not .Active}}<p class="inactive">Sensor inactive</p>{{end}}<hr>
{{range .Rows}}<p>{{$.Label}}: {{.Value}}, Timestamp: {{.Timestamp}}</p><hr>
{{end}}</body></html>
`))

	lastValueTemplate = template.Must(template.New("last").Parse(`<html><head><title>{{.Title}}</title>` + pageStyle + `</head><body>
<h2>{{.Title}}</h2><hr>
{{if .Found}}<p>Last Humidity Value: {{.Value}}</p><hr>{{else}}<p>No humidity data available</p><hr>{{end}}
</body></html>
`))

	notFoundTemplate = template.Must(template.New("404").Parse(`<html><head><title>404 Not Found</title>` + pageStyle + `</head><body><h1>404 Not Found</h1></body></html>
`))
)
