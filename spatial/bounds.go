// Copyright 2025 The AfyaMap Authors
//
// SPDX-License-Identifier: Apache-2.0
package spatial

import "math"

// Bounds is a rectangular area delimited by its south-west and north-east corners.
type Bounds struct {
	SouthWest Point `json:"south_west"`
	NorthEast Point `json:"north_east"`
}

// BoundsOf returns the smallest Bounds containing every point. The second
// result is false when no points are given.
func BoundsOf(points ...Point) (Bounds, bool) {
	if len(points) == 0 {
		return Bounds{}, false
	}

	b := Bounds{SouthWest: points[0], NorthEast: points[0]}
	for _, p := range points[1:] {
		b = b.Extend(p)
	}

	return b, true
}

// Extend returns a copy of b grown to include p.
func (b Bounds) Extend(p Point) Bounds {
	b.SouthWest.Lat = math.Min(b.SouthWest.Lat, p.Lat)
	b.SouthWest.Lng = math.Min(b.SouthWest.Lng, p.Lng)
	b.NorthEast.Lat = math.Max(b.NorthEast.Lat, p.Lat)
	b.NorthEast.Lng = math.Max(b.NorthEast.Lng, p.Lng)

	return b
}

// Pad returns bounds enlarged by ratio of the current height and width on every side.
func (b Bounds) Pad(ratio float64) Bounds {
	dLat := math.Abs(b.NorthEast.Lat-b.SouthWest.Lat) * ratio
	dLng := math.Abs(b.NorthEast.Lng-b.SouthWest.Lng) * ratio

	return Bounds{
		SouthWest: Point{Lat: b.SouthWest.Lat - dLat, Lng: b.SouthWest.Lng - dLng},
		NorthEast: Point{Lat: b.NorthEast.Lat + dLat, Lng: b.NorthEast.Lng + dLng},
	}
}

// Contains reports whether p lies inside b, edges included.
func (b Bounds) Contains(p Point) bool {
	return p.Lat >= b.SouthWest.Lat && p.Lat <= b.NorthEast.Lat &&
		p.Lng >= b.SouthWest.Lng && p.Lng <= b.NorthEast.Lng
}

// Center returns the midpoint of the bounds.
func (b Bounds) Center() Point {
	return Point{
		Lat: (b.SouthWest.Lat + b.NorthEast.Lat) / 2,
		Lng: (b.SouthWest.Lng + b.NorthEast.Lng) / 2,
	}
}

// IsPoint reports whether the bounds collapse to a single coordinate.
func (b Bounds) IsPoint() bool {
	return b.SouthWest == b.NorthEast
}
