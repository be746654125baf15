// Copyright 2025 The AfyaMap Authors
// SPDX-License-Identifier: Apache-2.0

package facility

import (
	"strings"

	"github.com/jcodagnone/afyamap/spatial"
	"github.com/jcodagnone/afyamap/utils/textutils"
)

// SearchLimit is the number of search results shown to the user.
const SearchLimit = 5

// Criteria restricts a facility listing. Empty fields match everything.
type Criteria struct {
	Type   string `form:"type" json:"type"`
	Region string `form:"region" json:"region"`
}

// Matches reports whether f satisfies every active constraint, comparing
// labels exactly.
func (c Criteria) Matches(f *Facility) bool {
	return (c.Type == "" || f.Type == c.Type) &&
		(c.Region == "" || f.Region == c.Region)
}

// Filter returns the facilities matching c, in their original order.
func Filter(facilities []Facility, c Criteria) []Facility {
	ret := make([]Facility, 0)

	for i := range facilities {
		if c.Matches(&facilities[i]) {
			ret = append(ret, facilities[i])
		}
	}

	return ret
}

// Search returns every facility whose name, type or region contains query,
// ignoring case. Results keep the dataset order. A blank query matches nothing.
func Search(facilities []Facility, query string) []Facility {
	if strings.TrimSpace(query) == "" {
		return nil
	}

	term := textutils.Lower(query)
	ret := make([]Facility, 0)

	for i := range facilities {
		f := &facilities[i]
		if textutils.ContainsFold(f.Name, term) ||
			textutils.ContainsFold(f.Type, term) ||
			textutils.ContainsFold(f.Region, term) {
			ret = append(ret, *f)
		}
	}

	return ret
}

// Top returns at most n leading facilities.
func Top(facilities []Facility, n int) []Facility {
	if len(facilities) > n {
		return facilities[:n]
	}

	return facilities
}

// BoundsOf returns the bounding box of the facilities, false when there are none.
func BoundsOf(facilities []Facility) (spatial.Bounds, bool) {
	points := make([]spatial.Point, 0, len(facilities))
	for i := range facilities {
		points = append(points, facilities[i].Point)
	}

	return spatial.BoundsOf(points...)
}

// Nearest scans facilities for the one closest to p by great-circle distance.
// Equidistant facilities resolve to the first one in order. The boolean is
// false when facilities is empty.
func Nearest(facilities []Facility, p spatial.Point) (Facility, float64, bool) {
	if len(facilities) == 0 {
		return Facility{}, 0, false
	}

	best := 0
	shortest := p.HaversineDistance(facilities[0].Point)

	for i := 1; i < len(facilities); i++ {
		if d := p.HaversineDistance(facilities[i].Point); d < shortest {
			best, shortest = i, d
		}
	}

	return facilities[best], shortest, true
}
