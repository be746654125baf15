// Copyright 2025 The AfyaMap Authors
// SPDX-License-Identifier: Apache-2.0

package geolocation

import (
	"context"
	"fmt"
	"net"

	"github.com/jcodagnone/afyamap/spatial"
	"github.com/oschwald/geoip2-golang"
)

// GeoIP approximates positions from IP addresses with a MaxMind City database.
type GeoIP struct {
	reader *geoip2.Reader
}

// OpenGeoIP opens the database at path.
func OpenGeoIP(path string) (*GeoIP, error) {
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening geoip database %s: %w", path, err)
	}

	return &GeoIP{reader: reader}, nil
}

// Close releases the database.
func (g *GeoIP) Close() error {
	return g.reader.Close()
}

// Lookup returns the position recorded for ip.
func (g *GeoIP) Lookup(ip net.IP) (spatial.Point, error) {
	if ip == nil {
		return spatial.Point{}, &Error{Code: PositionUnavailable, Message: "no address"}
	}

	if ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() {
		return spatial.Point{}, &Error{Code: PositionUnavailable, Message: fmt.Sprintf("%s is not routable", ip)}
	}

	record, err := g.reader.City(ip)
	if err != nil {
		return spatial.Point{}, &Error{Code: PositionUnavailable, Err: err}
	}

	// addresses missing from the database decode as an empty record
	if record.Location.Latitude == 0 && record.Location.Longitude == 0 {
		return spatial.Point{}, &Error{Code: PositionUnavailable, Message: fmt.Sprintf("%s not found", ip)}
	}

	return spatial.Point{Lat: record.Location.Latitude, Lng: record.Location.Longitude}, nil
}

// ForIP returns a Locator that answers with the position of ip.
func (g *GeoIP) ForIP(ip net.IP) Locator {
	return LocatorFunc(func(ctx context.Context, _ Options) (spatial.Point, error) {
		if err := ctx.Err(); err != nil {
			return spatial.Point{}, err
		}

		return g.Lookup(ip)
	})
}
