// Copyright 2025 The AfyaMap Authors
// SPDX-License-Identifier: Apache-2.0

// Package facility loads health-facility records and answers the read-only
// queries the map viewer needs: filtering, searching and nearest lookups.
package facility

import (
	"github.com/jcodagnone/afyamap/spatial"
)

// Facility is a single health facility as published in the dataset.
type Facility struct {
	Name     string        `json:"name"`
	Point    spatial.Point `json:"point"`
	Type     string        `json:"type"`
	Region   string        `json:"region"`
	Location string        `json:"location,omitempty"`
}

// LocationOrNA returns the sub-location, or "N/A" when the dataset left it blank.
func (f *Facility) LocationOrNA() string {
	if f.Location == "" {
		return "N/A"
	}

	return f.Location
}
