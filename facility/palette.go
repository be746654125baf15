// Copyright 2025 The AfyaMap Authors
// SPDX-License-Identifier: Apache-2.0

package facility

import "sort"

// OtherType is the legend entry used for types without their own colour.
const OtherType = "Other"

var typeColors = map[string]string{
	"National Referral Hospital":  "#e74c3c",
	"Provincial General Hospital": "#d35400",
	"District Hospital":           "#e67e22",
	"Sub-District Hospital":       "#f39c12",
	"Health Centre":               "#27ae60",
	"Dispensary":                  "#3498db",
	"Medical Clinic":              "#9b59b6",
	"Medical Centre":              "#8e44ad",
	"Nursing Home":                "#f1c40f",
	"Maternity Home":              "#ff7979",
	"VCT Centre (Stand-Alone)":    "#2ecc71",
	"Laboratory (Stand-alone)":    "#16a085",
	OtherType:                     "#95a5a6",
}

// Color returns the marker colour for a facility type.
func Color(typ string) string {
	if c, ok := typeColors[typ]; ok {
		return c
	}

	return typeColors[OtherType]
}

// LegendEntry is one line of the map legend.
type LegendEntry struct {
	Type  string `json:"type"`
	Color string `json:"color"`
}

// Legend lists every coloured type sorted by label.
func Legend() []LegendEntry {
	ret := make([]LegendEntry, 0, len(typeColors))
	for t, c := range typeColors {
		ret = append(ret, LegendEntry{Type: t, Color: c})
	}

	sort.Slice(ret, func(i, j int) bool { return ret[i].Type < ret[j].Type })

	return ret
}
