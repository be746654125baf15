// Copyright 2025 The AfyaMap Authors
// SPDX-License-Identifier: Apache-2.0

package viewer

import (
	"html/template"
	"strconv"

	"github.com/jcodagnone/afyamap/spatial"
)

// Icon selects how a marker is drawn. The zero value is a coloured circle.
type Icon string

const (
	IconCircle   Icon = ""
	IconSelected Icon = "selected-facility-marker"
	IconUser     Icon = "user-location-marker"
	IconNearest  Icon = "nearest-facility-marker"
)

// Marker is a point on the map.
type Marker struct {
	ID        string        `json:"id"`
	Point     spatial.Point `json:"point"`
	Icon      Icon          `json:"icon,omitempty"`
	Color     string        `json:"color,omitempty"`
	Radius    int           `json:"radius,omitempty"`
	Tooltip   string        `json:"tooltip,omitempty"`
	Popup     template.HTML `json:"popup,omitempty"`
	PopupOpen bool          `json:"popup_open,omitempty"`
}

// Polyline joins points on the map.
type Polyline struct {
	ID        string          `json:"id"`
	Points    []spatial.Point `json:"points"`
	Color     string          `json:"color"`
	Weight    int             `json:"weight"`
	Opacity   float64         `json:"opacity"`
	DashArray string          `json:"dash_array,omitempty"`
}

// LayerGroup is a clearable set of markers and lines. Ids are never reused.
type LayerGroup struct {
	seq     int
	markers []*Marker
	lines   []*Polyline
}

func (g *LayerGroup) nextID(prefix string) string {
	g.seq++

	return prefix + strconv.Itoa(g.seq)
}

// AddMarker assigns m an id and adds it to the group.
func (g *LayerGroup) AddMarker(m Marker) string {
	m.ID = g.nextID("m")
	g.markers = append(g.markers, &m)

	return m.ID
}

// AddPolyline assigns l an id and adds it to the group.
func (g *LayerGroup) AddPolyline(l Polyline) string {
	l.ID = g.nextID("l")
	g.lines = append(g.lines, &l)

	return l.ID
}

// Remove drops the layer with the given id, reporting whether it was present.
func (g *LayerGroup) Remove(id string) bool {
	for i, m := range g.markers {
		if m.ID == id {
			g.markers = append(g.markers[:i], g.markers[i+1:]...)

			return true
		}
	}

	for i, l := range g.lines {
		if l.ID == id {
			g.lines = append(g.lines[:i], g.lines[i+1:]...)

			return true
		}
	}

	return false
}

// Clear drops every layer.
func (g *LayerGroup) Clear() {
	g.markers = nil
	g.lines = nil
}

// Marker returns the marker with the given id.
func (g *LayerGroup) Marker(id string) (*Marker, bool) {
	for _, m := range g.markers {
		if m.ID == id {
			return m, true
		}
	}

	return nil, false
}

// Markers returns a copy of the markers in insertion order.
func (g *LayerGroup) Markers() []Marker {
	ret := make([]Marker, 0, len(g.markers))
	for _, m := range g.markers {
		ret = append(ret, *m)
	}

	return ret
}

// Polylines returns a copy of the lines in insertion order.
func (g *LayerGroup) Polylines() []Polyline {
	ret := make([]Polyline, 0, len(g.lines))
	for _, l := range g.lines {
		p := *l
		p.Points = append([]spatial.Point(nil), l.Points...)
		ret = append(ret, p)
	}

	return ret
}

// Control is a fixed panel drawn over the map.
type Control struct {
	ID       string        `json:"id"`
	Position string        `json:"position"`
	HTML     template.HTML `json:"html"`
}

// Map is what the controller needs from a map widget.
type Map interface {
	SetView(center spatial.Point, zoom int)
	FitBounds(b spatial.Bounds)
	Layers() *LayerGroup
	AddControl(c Control)
}

// SceneState is a serialisable picture of a Scene.
type SceneState struct {
	Center    spatial.Point   `json:"center"`
	Zoom      int             `json:"zoom"`
	Bounds    *spatial.Bounds `json:"bounds,omitempty"`
	Markers   []Marker        `json:"markers"`
	Polylines []Polyline      `json:"polylines"`
	Controls  []Control       `json:"controls"`
}

// Scene is an in-memory Map. The browser mirrors its state into the real
// widget. A Scene is not safe for concurrent use.
type Scene struct {
	center   spatial.Point
	zoom     int
	bounds   *spatial.Bounds
	layers   LayerGroup
	controls []Control
}

// NewScene creates a scene looking at center.
func NewScene(center spatial.Point, zoom int) *Scene {
	return &Scene{center: center, zoom: zoom}
}

// SetView implements Map.
func (s *Scene) SetView(center spatial.Point, zoom int) {
	s.center, s.zoom, s.bounds = center, zoom, nil
}

// FitBounds implements Map. The zoom is left to the widget.
func (s *Scene) FitBounds(b spatial.Bounds) {
	s.center = b.Center()
	s.bounds = &b
}

// Layers implements Map.
func (s *Scene) Layers() *LayerGroup {
	return &s.layers
}

// AddControl implements Map. A control with an existing id replaces it.
func (s *Scene) AddControl(c Control) {
	for i := range s.controls {
		if s.controls[i].ID == c.ID {
			s.controls[i] = c

			return
		}
	}

	s.controls = append(s.controls, c)
}

// State returns a copy of the scene.
func (s *Scene) State() SceneState {
	st := SceneState{
		Center:    s.center,
		Zoom:      s.zoom,
		Markers:   s.layers.Markers(),
		Polylines: s.layers.Polylines(),
		Controls:  append([]Control{}, s.controls...),
	}

	if s.bounds != nil {
		b := *s.bounds
		st.Bounds = &b
	}

	return st
}
