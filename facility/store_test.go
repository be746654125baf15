// Copyright 2025 The AfyaMap Authors
// SPDX-License-Identifier: Apache-2.0

package facility

import (
	"testing"

	"github.com/jcodagnone/afyamap/spatial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreFacets(t *testing.T) {
	s := NewStore(kenya())

	assert.Equal(t, 7, s.Len())
	assert.Equal(t, []string{"Kisumu", "Mombasa", "Nairobi"}, s.Regions())
	assert.Equal(t, []string{
		"Dispensary",
		"District Hospital",
		"Health Centre",
		"Medical Clinic",
		"National Referral Hospital",
		"Provincial General Hospital",
	}, s.Types())

	assert.True(t, s.HasRegion("Nairobi"))
	assert.False(t, s.HasRegion("nairobi"))
	assert.True(t, s.HasType("Dispensary"))
	assert.False(t, s.HasType("Spa"))
	assert.Equal(t, names(kenya()), names(s.All()))
}

func TestStoreEmpty(t *testing.T) {
	s := NewStore(nil)

	assert.Zero(t, s.Len())
	assert.Empty(t, s.Types())
	assert.Empty(t, s.Regions())
	assert.Empty(t, s.Within(spatial.Bounds{
		SouthWest: spatial.Point{Lat: -5, Lng: 33},
		NorthEast: spatial.Point{Lat: 5, Lng: 42},
	}))

	cov, err := s.Coverage(CoverageResolution)
	require.NoError(t, err)
	assert.Empty(t, cov)
}

func TestStoreWithin(t *testing.T) {
	s := NewStore(kenya())

	nairobi := spatial.Bounds{
		SouthWest: spatial.Point{Lat: -1.45, Lng: 36.65},
		NorthEast: spatial.Point{Lat: -1.15, Lng: 37.05},
	}
	assert.Equal(t, []string{
		"Kenyatta National Hospital",
		"Mbagathi District Hospital",
		"Riruta Health Centre",
	}, names(s.Within(nairobi)))

	coast := spatial.Bounds{
		SouthWest: spatial.Point{Lat: -4.2, Lng: 39.5},
		NorthEast: spatial.Point{Lat: -3.9, Lng: 39.8},
	}
	assert.Equal(t, []string{
		"Coast Provincial General Hospital",
		"Port Reitz District Hospital",
		"Bamburi Dispensary",
	}, names(s.Within(coast)))

	nowhere := spatial.Bounds{
		SouthWest: spatial.Point{Lat: 10, Lng: 10},
		NorthEast: spatial.Point{Lat: 11, Lng: 11},
	}
	assert.Empty(t, s.Within(nowhere))
}

func TestStoreCoverage(t *testing.T) {
	s := NewStore([]Facility{
		{Name: "a", Point: spatial.Point{Lat: -1.3008, Lng: 36.8070}},
		{Name: "b", Point: spatial.Point{Lat: -1.3009, Lng: 36.8071}},
		{Name: "c", Point: spatial.Point{Lat: -4.0565, Lng: 39.6775}},
	})

	cov, err := s.Coverage(CoverageResolution)
	require.NoError(t, err)
	require.Len(t, cov, 2)

	assert.Equal(t, 2, cov[0].Count)
	assert.Equal(t, 1, cov[1].Count)
	assert.InDelta(t, -1.30, cov[0].Center.Lat, 0.05)
	assert.InDelta(t, 36.80, cov[0].Center.Lng, 0.05)

	_, err = s.Coverage(42)
	assert.Error(t, err)
}
