// Copyright 2025 The AfyaMap Authors
// SPDX-License-Identifier: Apache-2.0

package viewer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jcodagnone/afyamap/facility"
	"github.com/jcodagnone/afyamap/geolocation"
	"github.com/jcodagnone/afyamap/spatial"
	"github.com/jcodagnone/afyamap/utils/debounce"
	"github.com/jcodagnone/afyamap/utils/htmlutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kenya() []facility.Facility {
	return []facility.Facility{
		{Name: "Kenyatta National Hospital", Point: spatial.Point{Lat: -1.3008, Lng: 36.8070}, Type: "National Referral Hospital", Region: "Nairobi", Location: "Upper Hill"},
		{Name: "Mbagathi District Hospital", Point: spatial.Point{Lat: -1.3086, Lng: 36.8038}, Type: "District Hospital", Region: "Nairobi"},
		{Name: "Riruta Health Centre", Point: spatial.Point{Lat: -1.2917, Lng: 36.7419}, Type: "Health Centre", Region: "Nairobi"},
		{Name: "Coast Provincial General Hospital", Point: spatial.Point{Lat: -4.0565, Lng: 39.6775}, Type: "Provincial General Hospital", Region: "Mombasa"},
		{Name: "Port Reitz District Hospital", Point: spatial.Point{Lat: -4.0257, Lng: 39.6100}, Type: "District Hospital", Region: "Mombasa"},
		{Name: "Bamburi Dispensary", Point: spatial.Point{Lat: -3.9996, Lng: 39.7206}, Type: "Dispensary", Region: "Mombasa"},
		{Name: "Kisumu Medical Clinic", Point: spatial.Point{Lat: -0.1022, Lng: 34.7617}, Type: "Medical Clinic", Region: "Kisumu"},
	}
}

type fixture struct {
	app   *App
	scene *Scene
	clock *debounce.ManualClock

	mu    sync.Mutex
	views []View
}

func newFixture(t *testing.T, facilities []facility.Facility, locator geolocation.Locator) *fixture {
	t.Helper()

	fx := &fixture{
		scene: NewScene(spatial.Point{}, 0),
		clock: debounce.NewManualClock(),
	}
	fx.app = New(fx.scene, locator,
		WithClock(fx.clock),
		WithOnUpdate(func(v View) {
			fx.mu.Lock()
			fx.views = append(fx.views, v)
			fx.mu.Unlock()
		}),
	)
	fx.app.Init(facility.NewStore(facilities))

	return fx
}

func (fx *fixture) reset() {
	fx.mu.Lock()
	fx.views = nil
	fx.mu.Unlock()
}

func (fx *fixture) snapshots() []View {
	fx.mu.Lock()
	defer fx.mu.Unlock()

	return append([]View(nil), fx.views...)
}

func markersWith(st SceneState, icon Icon) []Marker {
	var ret []Marker

	for _, m := range st.Markers {
		if m.Icon == icon {
			ret = append(ret, m)
		}
	}

	return ret
}

// popupText returns the text content of a popup, one entry per line break.
func popupText(t *testing.T, popup string) []string {
	t.Helper()

	lines, err := htmlutils.Lines(popup)
	require.NoError(t, err)

	return lines
}

func TestLoad(t *testing.T) {
	t.Run("dataset", func(t *testing.T) {
		fx := newFixture(t, nil, nil)

		err := fx.app.Load(context.Background(), &facility.FileSource{Path: "../data/kenya_healthcare_facilities.csv"}, facility.DefaultColumns)
		require.NoError(t, err)

		v := fx.app.View()
		assert.Contains(t, v.Controls.Regions, "Nairobi")
		assert.Equal(t, "Nairobi", v.Controls.Region)
		assert.Positive(t, v.Controls.Count)
	})

	t.Run("missing dataset", func(t *testing.T) {
		fx := newFixture(t, kenya(), nil)

		err := fx.app.Load(context.Background(), &facility.FileSource{Path: "testdata/nope.csv"}, facility.DefaultColumns)
		require.Error(t, err)
		assert.True(t, facility.IsLoadError(err))

		v := fx.app.View()
		assert.Empty(t, v.Controls.Regions)
		assert.Zero(t, v.Controls.Count)
		assert.Empty(t, v.Map.Markers)
		assert.True(t, v.Controls.Trigger.Enabled)
	})
}

func TestInit(t *testing.T) {
	fx := newFixture(t, kenya(), nil)

	v := fx.app.View()
	assert.Equal(t, StateIdle, v.State)
	assert.Equal(t, []string{"Kisumu", "Mombasa", "Nairobi"}, v.Controls.Regions)
	assert.Len(t, v.Controls.Types, 6)
	assert.Equal(t, "Nairobi", v.Controls.Region)
	assert.Empty(t, v.Controls.Type)
	assert.Equal(t, 3, v.Controls.Count)
	assert.Equal(t, "3", v.Controls.CountText)
	assert.Equal(t, Trigger{Enabled: true, Label: TriggerLabel}, v.Controls.Trigger)

	require.NotNil(t, v.Map)
	assert.Equal(t, DefaultCenter, v.Map.Center)
	assert.Equal(t, DefaultZoom, v.Map.Zoom)
	assert.Len(t, v.Map.Markers, 3)
	require.Len(t, v.Map.Controls, 1)
	assert.Equal(t, "bottomright", v.Map.Controls[0].Position)
	assert.Contains(t, string(v.Map.Controls[0].HTML), "Facility Types")

	for _, m := range v.Map.Markers {
		assert.Equal(t, IconCircle, m.Icon)
		assert.Equal(t, MarkerRadius, m.Radius)
	}
}

func TestInitDefaultRegionIgnoresCase(t *testing.T) {
	fx := newFixture(t, []facility.Facility{
		{Name: "x", Point: spatial.Point{Lat: -1.3, Lng: 36.8}, Type: "Dispensary", Region: "NAIROBI"},
		{Name: "y", Point: spatial.Point{Lat: -4.0, Lng: 39.6}, Type: "Dispensary", Region: "Mombasa"},
	}, nil)
	assert.Equal(t, "NAIROBI", fx.app.View().Controls.Region)
}

func TestInitWithoutDefaultRegion(t *testing.T) {
	fx := newFixture(t, kenya()[3:], nil)

	v := fx.app.View()
	assert.Empty(t, v.Controls.Region)
	assert.Equal(t, 4, v.Controls.Count)
}

func TestInitEmpty(t *testing.T) {
	fx := newFixture(t, nil, nil)

	v := fx.app.View()
	assert.Zero(t, v.Controls.Count)
	assert.Empty(t, v.Map.Markers)
	assert.Empty(t, v.Controls.Regions)
}

func TestExampleScenario(t *testing.T) {
	fx := newFixture(t, []facility.Facility{
		{Name: "A", Point: spatial.Point{Lat: -1.30, Lng: 36.80}, Type: "Health Centre", Region: "Nairobi"},
		{Name: "B", Point: spatial.Point{Lat: -4.05, Lng: 39.67}, Type: "Dispensary", Region: "Mombasa"},
	}, nil)

	fx.app.SetRegion("")
	assert.Equal(t, 2, fx.app.View().Controls.Count)

	fx.app.SetRegion("Nairobi")

	v := fx.app.View()
	assert.Equal(t, 1, v.Controls.Count)
	require.Len(t, v.Map.Markers, 1)
	assert.Equal(t, "A", v.Map.Markers[0].Tooltip)

	require.NotNil(t, v.Map.Bounds)
	assert.True(t, v.Map.Bounds.IsPoint())
	assert.Equal(t, spatial.Point{Lat: -1.30, Lng: 36.80}, v.Map.Bounds.SouthWest)
}

func TestFilters(t *testing.T) {
	fx := newFixture(t, kenya(), nil)

	tests := []struct {
		typ, region string
		count       int
	}{
		{"", "", 7},
		{"District Hospital", "", 2},
		{"District Hospital", "Mombasa", 1},
		{"", "Mombasa", 3},
		{"Dispensary", "Nairobi", 0},
		{"", "Atlantis", 0},
	}

	for _, tt := range tests {
		fx.app.SetRegion(tt.region)
		fx.app.SetType(tt.typ)

		v := fx.app.View()
		assert.Equal(t, tt.count, v.Controls.Count, "%q/%q", tt.typ, tt.region)
		assert.Len(t, v.Map.Markers, tt.count)

		// reapplying the same constraints changes nothing
		fx.app.SetType(tt.typ)
		assert.Equal(t, v.Controls.Count, fx.app.View().Controls.Count)
	}
}

func TestSetRegionWithoutFacilitiesKeepsView(t *testing.T) {
	fx := newFixture(t, kenya(), nil)

	before := fx.app.View().Map
	fx.app.SetRegion("Atlantis")
	after := fx.app.View().Map

	assert.Equal(t, before.Center, after.Center)
	assert.Nil(t, after.Bounds)
}

func TestSetRegionFitsRegion(t *testing.T) {
	fx := newFixture(t, kenya(), nil)
	fx.app.SetType("Dispensary")
	fx.app.SetRegion("Mombasa")

	v := fx.app.View()
	require.NotNil(t, v.Map.Bounds)
	// bounds cover the whole region, not only the filtered type
	assert.InDelta(t, -4.0565, v.Map.Bounds.SouthWest.Lat, 1e-9)
	assert.InDelta(t, 39.6100, v.Map.Bounds.SouthWest.Lng, 1e-9)
	assert.InDelta(t, -3.9996, v.Map.Bounds.NorthEast.Lat, 1e-9)
	assert.InDelta(t, 39.7206, v.Map.Bounds.NorthEast.Lng, 1e-9)
	assert.Equal(t, 1, v.Controls.Count)
}

func TestMarkerPopupRoundTrip(t *testing.T) {
	tricky := facility.Facility{
		Name:   `St. Mary's <Mission> & "Clinic"`,
		Point:  spatial.Point{Lat: -0.5, Lng: 37.1},
		Type:   "Medical Clinic",
		Region: "Kirinyaga",
	}
	fx := newFixture(t, append(kenya(), tricky), nil)
	fx.app.SetRegion("")

	for _, m := range fx.app.View().Map.Markers {
		lines := popupText(t, string(m.Popup))
		require.Len(t, lines, 4)

		var f facility.Facility

		for _, c := range append(kenya(), tricky) {
			if c.Name == m.Tooltip {
				f = c
			}
		}

		require.NotEmpty(t, f.Name, m.Tooltip)
		assert.Equal(t, f.Point, m.Point)
		assert.Equal(t, f.Name, lines[0])
		assert.Equal(t, "Type: "+f.Type, lines[1])
		assert.Equal(t, "County: "+f.Region, lines[2])
		assert.Equal(t, "Location: "+f.LocationOrNA(), lines[3])
		assert.Equal(t, facility.Color(f.Type), m.Color)
	}
}

func TestDebouncedSearch(t *testing.T) {
	fx := newFixture(t, kenya(), nil)
	fx.reset()

	for _, q := range []string{"h", "ho", "hos", "hosp"} {
		fx.app.Input(q)
		fx.clock.Advance(100 * time.Millisecond)
	}

	assert.False(t, fx.app.View().Search.Open)

	fx.clock.Advance(SearchDelay)

	var computed []View

	for _, v := range fx.snapshots() {
		if v.Search.Open {
			computed = append(computed, v)
		}
	}

	require.Len(t, computed, 1)
	assert.Equal(t, "hosp", computed[0].Search.Query)
	assert.Len(t, computed[0].Search.Items, 4)
	assert.Equal(t, "search-result-0", computed[0].Search.Items[0].ID)
}

func TestSearchCapsResults(t *testing.T) {
	fx := newFixture(t, kenya(), nil)

	fx.app.Input("i")
	fx.clock.Advance(SearchDelay)

	v := fx.app.View()
	assert.True(t, v.Search.Open)
	assert.Len(t, v.Search.Items, facility.SearchLimit)
	assert.Empty(t, v.Search.Placeholder)
}

func TestSearchNoResults(t *testing.T) {
	fx := newFixture(t, kenya(), nil)

	fx.app.Input("zzz")
	fx.clock.Advance(SearchDelay)

	v := fx.app.View()
	assert.True(t, v.Search.Open)
	assert.Empty(t, v.Search.Items)
	assert.Equal(t, NoResultsText, v.Search.Placeholder)
	assert.False(t, fx.app.KeyDown("ArrowDown"))
}

func TestBlankInputClosesList(t *testing.T) {
	fx := newFixture(t, kenya(), nil)

	fx.app.Input("hosp")
	fx.clock.Advance(SearchDelay)
	require.True(t, fx.app.View().Search.Open)

	fx.app.Input("ken")
	fx.app.Input("  ")
	assert.False(t, fx.app.View().Search.Open)

	// the pending search was cancelled
	fx.clock.Advance(SearchDelay)
	assert.False(t, fx.app.View().Search.Open)
}

func TestKeyboardNavigation(t *testing.T) {
	fx := newFixture(t, kenya(), nil)

	fx.app.Input("hosp")
	fx.clock.Advance(SearchDelay)

	assert.False(t, fx.app.KeyDown("Enter"))

	require.True(t, fx.app.KeyDown("ArrowDown"))
	v := fx.app.View()
	assert.Equal(t, 0, v.Search.Focus)
	assert.Equal(t, "search-result-0", v.Search.ActiveDescendant)
	assert.True(t, v.Search.Items[0].Selected)

	fx.app.KeyDown("ArrowUp")
	v = fx.app.View()
	assert.Equal(t, 3, v.Search.Focus)
	assert.Equal(t, "search-result-3", v.Search.ActiveDescendant)
	assert.False(t, v.Search.Items[0].Selected)
	assert.True(t, v.Search.Items[3].Selected)

	fx.app.KeyDown("ArrowDown")
	assert.Equal(t, 0, fx.app.View().Search.Focus)
	fx.app.KeyDown("ArrowDown")
	assert.False(t, fx.app.KeyDown("Tab"))

	require.True(t, fx.app.KeyDown("Enter"))

	v = fx.app.View()
	assert.False(t, v.Search.Open)
	assert.Empty(t, v.Search.ActiveDescendant)
	assert.Equal(t, "Mbagathi District Hospital", v.Controls.Query)
	assert.Equal(t, "Selected facility: Mbagathi District Hospital in Nairobi", v.Live.Status)

	selected := markersWith(*v.Map, IconSelected)
	require.Len(t, selected, 1)
	assert.True(t, selected[0].PopupOpen)
	assert.Equal(t, []string{"Mbagathi District Hospital", "Type: District Hospital", "County: Nairobi"},
		popupText(t, string(selected[0].Popup)))
	assert.Equal(t, selected[0].Point, v.Map.Center)
	assert.Equal(t, HighlightZoom, v.Map.Zoom)
}

func TestEscapeAndClickOutside(t *testing.T) {
	fx := newFixture(t, kenya(), nil)

	fx.app.Input("mombasa")
	fx.clock.Advance(SearchDelay)
	fx.app.KeyDown("ArrowDown")
	require.True(t, fx.app.KeyDown("Escape"))

	v := fx.app.View()
	assert.False(t, v.Search.Open)
	assert.Empty(t, v.Search.ActiveDescendant)
	assert.Empty(t, markersWith(*v.Map, IconSelected))

	fx.app.Input("mombasas")
	fx.clock.Advance(SearchDelay)
	require.True(t, fx.app.View().Search.Open)
	fx.app.ClickOutside()
	assert.False(t, fx.app.View().Search.Open)
}

func TestClickOutsideClosedListSendsNoUpdate(t *testing.T) {
	fx := newFixture(t, kenya(), nil)
	fx.reset()

	fx.app.ClickOutside()
	assert.Empty(t, fx.snapshots())

	fx.app.DismissAlert()
	assert.Empty(t, fx.snapshots())

	fx.app.Input("hosp")
	fx.clock.Advance(SearchDelay)
	fx.reset()

	fx.app.ClickOutside()
	views := fx.snapshots()
	require.Len(t, views, 1)
	assert.False(t, views[0].Search.Open)
}

// A search whose timer already fired but has not taken the session lock yet
// must not reopen the list once a result was selected.
func TestSearchFiredDuringSelectIsDropped(t *testing.T) {
	fx := newFixture(t, kenya(), nil)

	fx.app.Input("hosp")
	fx.clock.Advance(SearchDelay)
	require.True(t, fx.app.View().Search.Open)

	fx.app.Input("hospital")
	require.True(t, fx.app.debouncer.Pending())

	fx.app.mu.Lock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		fx.clock.Advance(SearchDelay)
	}()

	// the timer is past the debouncer and waiting for the session lock
	require.Eventually(t, func() bool { return !fx.app.debouncer.Pending() }, 5*time.Second, time.Millisecond)

	fx.app.selectLocked(0)
	fx.app.mu.Unlock()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("search timer did not return")
	}

	v := fx.app.View()
	assert.False(t, v.Search.Open)
	assert.Equal(t, "Kenyatta National Hospital", v.Controls.Query)
	assert.Equal(t, "Selected facility: Kenyatta National Hospital in Nairobi", v.Live.Status)
}

func TestEscapeDropsPendingSearch(t *testing.T) {
	fx := newFixture(t, kenya(), nil)

	fx.app.Input("hosp")
	fx.clock.Advance(SearchDelay)
	fx.app.Input("hospital")
	require.True(t, fx.app.KeyDown("Escape"))

	fx.clock.Advance(SearchDelay)
	assert.False(t, fx.app.View().Search.Open)
}

func TestClickResult(t *testing.T) {
	fx := newFixture(t, kenya(), nil)

	require.Error(t, fx.app.ClickResult(0))

	fx.app.Input("kisumu")
	fx.clock.Advance(SearchDelay)

	require.Error(t, fx.app.ClickResult(1))
	require.NoError(t, fx.app.ClickResult(0))

	v := fx.app.View()
	assert.False(t, v.Search.Open)
	assert.Equal(t, "Selected facility: Kisumu Medical Clinic in Kisumu", v.Live.Status)
}

func TestHighlightKeepsSingleMarker(t *testing.T) {
	fx := newFixture(t, kenya(), nil)

	all := kenya()
	fx.app.Highlight(all[0])
	fx.app.Highlight(all[3])

	v := fx.app.View()
	selected := markersWith(*v.Map, IconSelected)
	require.Len(t, selected, 1)
	assert.Equal(t, all[3].Point, selected[0].Point)
	assert.Equal(t, all[3].Point, v.Map.Center)
	assert.Equal(t, HighlightZoom, v.Map.Zoom)
}

func TestLocate(t *testing.T) {
	user := spatial.Point{Lat: -1.2921, Lng: 36.8219}
	fx := newFixture(t, kenya(), &geolocation.Static{Point: user})
	fx.reset()

	res, err := fx.app.Locate(context.Background())
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "Kenyatta National Hospital", res.Facility.Name)

	km := FormatKm(user.HaversineDistance(res.Facility.Point))
	assert.Equal(t, km, FormatKm(res.Distance))

	v := fx.app.View()
	assert.Equal(t, StateIdle, v.State)
	assert.Equal(t, Trigger{Enabled: true, Label: TriggerLabel}, v.Controls.Trigger)
	assert.Equal(t, "Found nearest facility: Kenyatta National Hospital, "+km+" kilometers away", v.Live.Status)
	assert.Empty(t, v.Alert)

	require.Len(t, markersWith(*v.Map, IconUser), 1)
	nearest := markersWith(*v.Map, IconNearest)
	require.Len(t, nearest, 1)
	assert.True(t, nearest[0].PopupOpen)
	assert.Equal(t, []string{
		"Kenyatta National Hospital",
		"Type: National Referral Hospital",
		"Distance: " + km + " km",
		"County: Nairobi",
	}, popupText(t, string(nearest[0].Popup)))

	require.Len(t, v.Map.Polylines, 1)
	assert.Equal(t, "5, 10", v.Map.Polylines[0].DashArray)
	assert.Equal(t, []spatial.Point{user, res.Facility.Point}, v.Map.Polylines[0].Points)

	require.NotNil(t, v.Map.Bounds)
	assert.True(t, v.Map.Bounds.Contains(user))
	assert.True(t, v.Map.Bounds.Contains(res.Facility.Point))
	assert.Less(t, v.Map.Bounds.SouthWest.Lat, res.Facility.Point.Lat)

	// the first notification is the Locating state
	views := fx.snapshots()
	require.GreaterOrEqual(t, len(views), 2)
	assert.Equal(t, StateLocating, views[0].State)
	assert.Equal(t, Trigger{Enabled: false, Label: LocatingLabel}, views[0].Controls.Trigger)
	assert.Equal(t, LocatingStatus, views[0].Live.Status)

	// locating again replaces the previous markers
	_, err = fx.app.Locate(context.Background())
	require.NoError(t, err)

	v = fx.app.View()
	assert.Len(t, markersWith(*v.Map, IconUser), 1)
	assert.Len(t, markersWith(*v.Map, IconNearest), 1)
	assert.Len(t, v.Map.Polylines, 1)
}

func TestLocateFailures(t *testing.T) {
	for _, code := range []geolocation.ErrorCode{
		geolocation.PermissionDenied,
		geolocation.Timeout,
		geolocation.PositionUnavailable,
	} {
		t.Run(code.String(), func(t *testing.T) {
			fx := newFixture(t, kenya(), geolocation.Denied(code))

			res, err := fx.app.Locate(context.Background())
			require.Error(t, err)
			assert.Nil(t, res)
			assert.Equal(t, code, geolocation.CodeOf(err))

			v := fx.app.View()
			assert.Equal(t, StateIdle, v.State)
			assert.True(t, v.Controls.Trigger.Enabled)
			assert.Equal(t, TriggerLabel, v.Controls.Trigger.Label)
			assert.Equal(t, LocateFailedMessage, v.Alert)
			assert.Equal(t, "Error: "+LocateFailedMessage, v.Live.Alert)
			assert.Empty(t, markersWith(*v.Map, IconUser))

			fx.app.DismissAlert()
			assert.Empty(t, fx.app.View().Alert)
		})
	}
}

func TestLocateEmptyStore(t *testing.T) {
	fx := newFixture(t, nil, &geolocation.Static{Point: DefaultCenter})

	res, err := fx.app.Locate(context.Background())
	require.NoError(t, err)
	assert.Nil(t, res)

	v := fx.app.View()
	assert.Empty(t, v.Map.Markers)
	assert.Empty(t, v.Map.Polylines)
	assert.True(t, v.Controls.Trigger.Enabled)
	assert.Empty(t, v.Alert)
}

func TestLocateRejectsWhileLocating(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})

	locator := geolocation.LocatorFunc(func(ctx context.Context, _ geolocation.Options) (spatial.Point, error) {
		close(started)

		select {
		case <-release:
			return DefaultCenter, nil
		case <-ctx.Done():
			return spatial.Point{}, ctx.Err()
		}
	})

	fx := newFixture(t, kenya(), locator)

	done := make(chan error, 1)

	go func() {
		_, err := fx.app.Locate(context.Background())
		done <- err
	}()

	<-started

	v := fx.app.View()
	assert.Equal(t, StateLocating, v.State)
	assert.False(t, v.Controls.Trigger.Enabled)

	_, err := fx.app.Locate(context.Background())
	require.ErrorIs(t, err, ErrLocating)

	close(release)
	require.NoError(t, <-done)
	assert.True(t, fx.app.View().Controls.Trigger.Enabled)
}
