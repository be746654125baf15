// Copyright 2025 The AfyaMap Authors
// SPDX-License-Identifier: Apache-2.0

package facility

import (
	"sort"

	"github.com/asim/quadtree"
	"github.com/jcodagnone/afyamap/spatial"
)

// Store is the ordered, read-only set of facilities loaded for a session.
type Store struct {
	facilities []Facility
	types      []string
	regions    []string
	tree       *quadtree.QuadTree
	// facilities the quadtree refused, scanned linearly by Within
	overflow []int
}

// NewStore builds a store preserving the order of facilities.
func NewStore(facilities []Facility) *Store {
	s := &Store{
		facilities: facilities,
		types:      distinct(facilities, func(f *Facility) string { return f.Type }),
		regions:    distinct(facilities, func(f *Facility) string { return f.Region }),
		tree: quadtree.New(
			quadtree.NewAABB(quadtree.NewPoint(0, 0, nil), quadtree.NewPoint(90, 180, nil)),
			0,
			nil,
		),
	}

	for i := range facilities {
		p := facilities[i].Point
		if !s.tree.Insert(quadtree.NewPoint(p.Lat, p.Lng, i)) {
			s.overflow = append(s.overflow, i)
		}
	}

	return s
}

func distinct(facilities []Facility, field func(*Facility) string) []string {
	seen := make(map[string]bool)
	ret := make([]string, 0)

	for i := range facilities {
		v := field(&facilities[i])
		if !seen[v] {
			seen[v] = true
			ret = append(ret, v)
		}
	}

	sort.Strings(ret)

	return ret
}

// All returns the facilities in dataset order. The slice must not be modified.
func (s *Store) All() []Facility {
	return s.facilities
}

// Len returns the number of facilities.
func (s *Store) Len() int {
	return len(s.facilities)
}

// Types returns the distinct facility types, sorted.
func (s *Store) Types() []string {
	return s.types
}

// Regions returns the distinct regions, sorted.
func (s *Store) Regions() []string {
	return s.regions
}

// HasRegion reports whether region is one of the store regions.
func (s *Store) HasRegion(region string) bool {
	i := sort.SearchStrings(s.regions, region)

	return i < len(s.regions) && s.regions[i] == region
}

// HasType reports whether typ is one of the store types.
func (s *Store) HasType(typ string) bool {
	i := sort.SearchStrings(s.types, typ)

	return i < len(s.types) && s.types[i] == typ
}

// Within returns the facilities inside b, in dataset order.
func (s *Store) Within(b spatial.Bounds) []Facility {
	center := b.Center()
	half := quadtree.NewPoint(
		(b.NorthEast.Lat-b.SouthWest.Lat)/2,
		(b.NorthEast.Lng-b.SouthWest.Lng)/2,
		nil,
	)

	var idx []int

	for _, p := range s.tree.Search(quadtree.NewAABB(quadtree.NewPoint(center.Lat, center.Lng, nil), half)) {
		i, ok := p.Data().(int)
		if ok && b.Contains(s.facilities[i].Point) {
			idx = append(idx, i)
		}
	}

	for _, i := range s.overflow {
		if b.Contains(s.facilities[i].Point) {
			idx = append(idx, i)
		}
	}

	sort.Ints(idx)

	ret := make([]Facility, 0, len(idx))
	for _, i := range idx {
		ret = append(ret, s.facilities[i])
	}

	return ret
}

// CellCount is the number of facilities falling in one H3 cell.
type CellCount struct {
	Cell   string        `json:"cell"`
	Center spatial.Point `json:"center"`
	Count  int           `json:"count"`
}

// Coverage counts facilities per H3 cell at the given resolution, busiest cells first.
func (s *Store) Coverage(resolution int) ([]CellCount, error) {
	counts := make(map[string]*CellCount)

	for i := range s.facilities {
		cell, err := spatial.Cell(s.facilities[i].Point, resolution)
		if err != nil {
			return nil, err
		}

		key := cell.String()
		if c, ok := counts[key]; ok {
			c.Count++

			continue
		}

		center, err := spatial.CellCenter(cell)
		if err != nil {
			return nil, err
		}

		counts[key] = &CellCount{Cell: key, Center: center, Count: 1}
	}

	ret := make([]CellCount, 0, len(counts))
	for _, c := range counts {
		ret = append(ret, *c)
	}

	sort.Slice(ret, func(i, j int) bool {
		if ret[i].Count != ret[j].Count {
			return ret[i].Count > ret[j].Count
		}

		return ret[i].Cell < ret[j].Cell
	})

	return ret, nil
}
