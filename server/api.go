// Copyright 2025 The AfyaMap Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"bytes"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jcodagnone/afyamap/facility"
	"github.com/jcodagnone/afyamap/geolocation"
	"github.com/jcodagnone/afyamap/spatial"
	"github.com/jcodagnone/afyamap/utils/textutils"
	"github.com/jcodagnone/afyamap/viewer"
)

func (s *Server) indexView(ctx *gin.Context) {
	ctx.HTML(http.StatusOK, "index.html", gin.H{
		"Types":         s.store.Types(),
		"Regions":       s.store.Regions(),
		"DefaultRegion": s.defaultRegion(),
		"Count":         textutils.FormatInt(int64(s.store.Len())),
		"TriggerLabel":  viewer.TriggerLabel,
	})
}

func (s *Server) dataset(ctx *gin.Context) {
	var buf bytes.Buffer
	if err := facility.WriteCSV(&buf, s.store.All()); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	ctx.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// FiltersResponse lists the filter options of the store.
type FiltersResponse struct {
	Types         []string               `json:"types"`
	Regions       []string               `json:"regions"`
	DefaultRegion string                 `json:"default_region"`
	Legend        []facility.LegendEntry `json:"legend"`
	Count         int                    `json:"count"`
}

func (s *Server) getFilters(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, FiltersResponse{
		Types:         s.store.Types(),
		Regions:       s.store.Regions(),
		DefaultRegion: s.defaultRegion(),
		Legend:        facility.Legend(),
		Count:         s.store.Len(),
	})
}

// FacilitiesResponse is a filtered listing.
type FacilitiesResponse struct {
	Count      int                 `json:"count"`
	CountText  string              `json:"count_text"`
	Facilities []facility.Facility `json:"facilities"`
	Bounds     *spatial.Bounds     `json:"bounds,omitempty"`
}

// parseBBox reads a "west,south,east,north" box, the order Leaflet's
// toBBoxString produces.
func parseBBox(s string) (spatial.Bounds, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return spatial.Bounds{}, fmt.Errorf("bbox must be west,south,east,north: %q", s)
	}

	var v [4]float64

	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return spatial.Bounds{}, fmt.Errorf("bbox value %q: %w", p, err)
		}

		v[i] = f
	}

	b := spatial.Bounds{
		SouthWest: spatial.Point{Lat: v[1], Lng: v[0]},
		NorthEast: spatial.Point{Lat: v[3], Lng: v[2]},
	}

	if !b.SouthWest.Valid() || !b.NorthEast.Valid() ||
		b.SouthWest.Lat > b.NorthEast.Lat || b.SouthWest.Lng > b.NorthEast.Lng {
		return spatial.Bounds{}, fmt.Errorf("invalid bbox %q", s)
	}

	return b, nil
}

func (s *Server) listFacilities(ctx *gin.Context) {
	var criteria facility.Criteria
	if err := ctx.ShouldBindQuery(&criteria); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	candidates := s.store.All()

	if bbox := ctx.Query("bbox"); bbox != "" {
		b, err := parseBBox(bbox)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

			return
		}

		candidates = s.store.Within(b)
	}

	filtered := facility.Filter(candidates, criteria)
	resp := FacilitiesResponse{
		Count:      len(filtered),
		CountText:  textutils.FormatInt(int64(len(filtered))),
		Facilities: filtered,
	}

	if b, ok := facility.BoundsOf(filtered); ok {
		resp.Bounds = &b
	}

	ctx.JSON(http.StatusOK, resp)
}

// SearchResponse holds the first matches of a query.
type SearchResponse struct {
	Query   string              `json:"query"`
	Total   int                 `json:"total"`
	Results []facility.Facility `json:"results"`
}

func (s *Server) search(ctx *gin.Context) {
	q := ctx.Query("q")
	matches := facility.Search(s.store.All(), q)

	ctx.JSON(http.StatusOK, SearchResponse{
		Query:   q,
		Total:   len(matches),
		Results: append([]facility.Facility{}, facility.Top(matches, facility.SearchLimit)...),
	})
}

// NearestResponse reports the facility closest to a position.
type NearestResponse struct {
	User         spatial.Point     `json:"user"`
	Facility     facility.Facility `json:"facility"`
	DistanceKm   float64           `json:"distance_km"`
	DistanceText string            `json:"distance_text"`
	Source       string            `json:"source"`
}

var errMissingCoordinates = errors.New("lat and lon are required")

func queryPoint(ctx *gin.Context) (spatial.Point, bool, error) {
	lat, lon := ctx.Query("lat"), ctx.Query("lon")
	if lat == "" && lon == "" {
		return spatial.Point{}, false, nil
	}

	if lat == "" || lon == "" {
		return spatial.Point{}, false, errMissingCoordinates
	}

	var (
		p   spatial.Point
		err error
	)

	if p.Lat, err = strconv.ParseFloat(lat, 64); err != nil {
		return p, false, fmt.Errorf("invalid lat %q", lat)
	}

	if p.Lng, err = strconv.ParseFloat(lon, 64); err != nil {
		return p, false, fmt.Errorf("invalid lon %q", lon)
	}

	if !p.Valid() {
		return p, false, fmt.Errorf("coordinates out of range %s", p)
	}

	return p, true, nil
}

func (s *Server) nearest(ctx *gin.Context) {
	p, ok, err := queryPoint(ctx)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	source := "query"

	if !ok {
		if s.opts.GeoIP == nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": errMissingCoordinates.Error()})

			return
		}

		source = "geoip"

		p, err = geolocation.Locate(ctx.Request.Context(), s.opts.GeoIP.ForIP(net.ParseIP(ctx.ClientIP())), s.opts.LocateOptions)
		if err != nil {
			ctx.JSON(http.StatusServiceUnavailable, gin.H{
				"error": viewer.LocateFailedMessage,
				"code":  geolocation.CodeOf(err).String(),
			})

			return
		}
	}

	f, km, found := facility.Nearest(s.store.All(), p)
	if !found {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "no facilities loaded"})

		return
	}

	ctx.JSON(http.StatusOK, NearestResponse{
		User:         p,
		Facility:     f,
		DistanceKm:   km,
		DistanceText: viewer.FormatKm(km),
		Source:       source,
	})
}

func (s *Server) coverage(ctx *gin.Context) {
	res := facility.CoverageResolution

	if v := ctx.Query("res"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid res %q", v)})

			return
		}

		res = n
	}

	cells, err := s.store.Coverage(res)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	ctx.JSON(http.StatusOK, gin.H{"resolution": res, "cells": cells})
}
