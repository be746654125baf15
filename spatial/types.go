// Copyright 2025 The AfyaMap Authors
//
// SPDX-License-Identifier: Apache-2.0
package spatial

import (
	"database/sql/driver"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// EarthRadiusKm is the mean Earth radius used by HaversineDistance.
const EarthRadiusKm = 6371

// Point represents a geographical point with latitude and longitude.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// String returns a string representation of the Point.
func (p Point) String() string {
	return fmt.Sprintf("POINT(%f %f)", p.Lng, p.Lat)
}

// Valid reports whether the point lies within the WGS84 coordinate ranges.
func (p Point) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) {
		return false
	}

	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// Value implements the driver.Valuer interface for database serialization.
// The text is WKT in the form DuckDB prints points, without rounding.
func (p Point) Value() (driver.Value, error) {
	return "POINT (" + strconv.FormatFloat(p.Lng, 'g', -1, 64) + " " +
		strconv.FormatFloat(p.Lat, 'g', -1, 64) + ")", nil
}

func (p *Point) scanWKT(s string) error {
	// both "POINT (lng lat)" and "POINT(lng lat)"
	s = strings.Replace(strings.TrimSpace(s), "POINT(", "POINT (", 1)
	if _, err := fmt.Sscanf(s, "POINT (%f %f)", &p.Lng, &p.Lat); err != nil {
		return fmt.Errorf("spatial: invalid point %q: %w", s, err)
	}

	return nil
}

// Scan implements the sql.Scanner interface for database deserialization.
func (p *Point) Scan(value interface{}) error {
	if value == nil {
		p.Lat, p.Lng = 0, 0

		return nil
	}

	switch v := value.(type) {
	case []byte:
		return p.scanWKT(string(v))
	case string:
		return p.scanWKT(v)
	case map[string]interface{}:
		x, okX := v["x"].(float64)
		y, okY := v["y"].(float64)

		if !okX || !okY {
			return fmt.Errorf("spatial: invalid map for point: expected 'x' and 'y' float64 fields, got %+v", v)
		}

		p.Lng = x
		p.Lat = y

		return nil
	default:
		return fmt.Errorf("spatial: unsupported type for Point scan: %T", value)
	}
}

// HaversineDistance calculates the great-circle distance between two points in kilometers.
func (p Point) HaversineDistance(other Point) float64 {
	lat1 := p.Lat * math.Pi / 180
	lat2 := other.Lat * math.Pi / 180
	dLat := (other.Lat - p.Lat) * math.Pi / 180
	dLng := (other.Lng - p.Lng) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKm * c
}
