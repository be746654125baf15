// Copyright 2025 The AfyaMap Authors
//
// SPDX-License-Identifier: Apache-2.0
package spatial

import (
	"fmt"

	"github.com/uber/h3-go/v4"
)

// Cell returns the H3 cell containing p at the given resolution.
func Cell(p Point, resolution int) (h3.Cell, error) {
	cell, err := h3.LatLngToCell(h3.NewLatLng(p.Lat, p.Lng), resolution)
	if err != nil {
		return 0, fmt.Errorf("converting %s to h3 cell at res %d: %w", p, resolution, err)
	}

	return cell, nil
}

// CellCenter returns the centroid of an H3 cell.
func CellCenter(cell h3.Cell) (Point, error) {
	ll, err := h3.CellToLatLng(cell)
	if err != nil {
		return Point{}, fmt.Errorf("locating h3 cell %s: %w", cell, err)
	}

	return Point{Lat: ll.Lat, Lng: ll.Lng}, nil
}
