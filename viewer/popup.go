// Copyright 2025 The AfyaMap Authors
// SPDX-License-Identifier: Apache-2.0

package viewer

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/jcodagnone/afyamap/facility"
)

var fragments = template.Must(template.New("fragments").Parse(`
{{define "facility"}}<strong>{{.Name}}</strong><br>Type: {{.Type}}<br>County: {{.Region}}<br>Location: {{.LocationOrNA}}{{end}}
{{define "selected"}}<strong>{{.Name}}</strong><br>Type: {{.Type}}<br>County: {{.Region}}{{end}}
{{define "nearest"}}<strong>{{.Facility.Name}}</strong><br>Type: {{.Facility.Type}}<br>Distance: {{.Distance}} km<br>County: {{.Facility.Region}}{{end}}
{{define "result"}}<strong>{{.Name}}</strong><br>{{.Type}}<br>{{.Region}}{{end}}
{{define "legend"}}<div class="legend"><h4>Facility Types</h4>{{range .}}<div class="legend-item"><span class="legend-swatch" style="background: {{.Color}}"></span><span>{{.Type}}</span></div>{{end}}</div>{{end}}
`))

func render(name string, data any) template.HTML {
	var buf bytes.Buffer
	if err := fragments.ExecuteTemplate(&buf, name, data); err != nil {
		// the templates are static, an error here is a programming mistake
		panic(fmt.Sprintf("rendering %s: %v", name, err))
	}

	return template.HTML(buf.String()) //nolint:gosec // produced by html/template
}

// FacilityPopup is the popup bound to every facility marker.
func FacilityPopup(f *facility.Facility) template.HTML {
	return render("facility", f)
}

// SelectedPopup is the popup of the highlighted facility.
func SelectedPopup(f *facility.Facility) template.HTML {
	return render("selected", f)
}

// NearestPopup reports the nearest facility and its distance in kilometres.
func NearestPopup(f *facility.Facility, km float64) template.HTML {
	return render("nearest", struct {
		Facility *facility.Facility
		Distance string
	}{f, FormatKm(km)})
}

// ResultHTML is the body of a search result item.
func ResultHTML(f *facility.Facility) template.HTML {
	return render("result", f)
}

// LegendHTML renders the facility type legend.
func LegendHTML(entries []facility.LegendEntry) template.HTML {
	return render("legend", entries)
}

// FormatKm formats a distance with two decimals.
func FormatKm(km float64) string {
	return fmt.Sprintf("%.2f", km)
}
