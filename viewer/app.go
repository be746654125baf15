// Copyright 2025 The AfyaMap Authors
// SPDX-License-Identifier: Apache-2.0

// Package viewer holds the interactive state of a facility map session: the
// filter selectors, the debounced search list, the highlighted facility and
// the nearest-facility lookup. It drives a Map and never touches a real UI,
// so every interaction can be exercised from tests.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/jcodagnone/afyamap/facility"
	"github.com/jcodagnone/afyamap/geolocation"
	"github.com/jcodagnone/afyamap/spatial"
	"github.com/jcodagnone/afyamap/utils/debounce"
	"github.com/jcodagnone/afyamap/utils/textutils"
)

// DefaultCenter is the initial map centre (Nairobi).
var DefaultCenter = spatial.Point{Lat: -1.2921, Lng: 36.8219}

const (
	DefaultZoom    = 11
	HighlightZoom  = 14
	NearestPadding = 0.2
	SearchDelay    = 300 * time.Millisecond

	// DefaultRegion is preselected, ignoring case, when the dataset has it.
	DefaultRegion = "Nairobi"

	MarkerRadius = 6
	LineColor    = "#1a237e"

	TriggerLabel        = "Find Nearest Facility"
	LocatingLabel       = "Finding your location..."
	LocatingStatus      = "Searching for your location..."
	LocateFailedMessage = "Unable to get your location. Please make sure location services are enabled."
	NoResultsText       = "No facilities found"
)

// ErrLocating is returned by Locate while a previous request is still running.
var ErrLocating = errors.New("a location request is already in progress")

// State is the geolocation state of the session.
type State string

const (
	StateIdle     State = "idle"
	StateLocating State = "locating"
)

// Trigger is the "find nearest facility" control.
type Trigger struct {
	Enabled bool   `json:"enabled"`
	Label   string `json:"label"`
}

// Controls are the values of the on-screen inputs.
type Controls struct {
	Types     []string `json:"types"`
	Regions   []string `json:"regions"`
	Type      string   `json:"type"`
	Region    string   `json:"region"`
	Count     int      `json:"count"`
	CountText string   `json:"count_text"`
	Query     string   `json:"query"`
	Trigger   Trigger  `json:"trigger"`
}

// ResultItem is one entry of the search list.
type ResultItem struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	HTML     template.HTML `json:"html"`
	Selected bool          `json:"selected"`
}

// SearchList is the drop-down under the search box.
type SearchList struct {
	Open             bool         `json:"open"`
	Query            string       `json:"query"`
	Items            []ResultItem `json:"items"`
	Placeholder      string       `json:"placeholder,omitempty"`
	Focus            int          `json:"focus"`
	ActiveDescendant string       `json:"active_descendant"`
}

// LiveRegions are the assistive technology announcements.
type LiveRegions struct {
	Status string `json:"status"`
	Alert  string `json:"alert"`
}

// View is a snapshot of everything a page needs to draw the session.
type View struct {
	State    State       `json:"state"`
	Controls Controls    `json:"controls"`
	Search   SearchList  `json:"search"`
	Live     LiveRegions `json:"live"`
	// Alert is a blocking message the page must show once, then dismiss.
	Alert string      `json:"alert,omitempty"`
	Map   *SceneState `json:"map,omitempty"`
}

// NearestResult is the outcome of a successful Locate.
type NearestResult struct {
	User     spatial.Point     `json:"user"`
	Facility facility.Facility `json:"facility"`
	Distance float64           `json:"distance_km"`
}

// Option configures an App.
type Option func(*App)

// WithClock schedules debounced searches on c.
func WithClock(c debounce.Clock) Option {
	return func(a *App) { a.debouncer = debounce.NewWithClock(SearchDelay, c) }
}

// WithOnUpdate registers f to receive a View after every state change. f is
// called without internal locks held, possibly from a timer goroutine.
func WithOnUpdate(f func(View)) Option {
	return func(a *App) { a.onUpdate = f }
}

// WithLocateOptions overrides the position request options.
func WithLocateOptions(opts geolocation.Options) Option {
	return func(a *App) { a.locateOpts = opts }
}

// App is the controller of one map session. It is safe for concurrent use.
type App struct {
	mu sync.Mutex

	store      *facility.Store
	m          Map
	locator    geolocation.Locator
	locateOpts geolocation.Options
	debouncer  *debounce.Debouncer
	onUpdate   func(View)

	state    State
	controls Controls
	search   SearchList
	results  []facility.Facility
	live     LiveRegions
	// bumped whenever the search text or the list changes, a search that
	// was scheduled before a newer change is dropped
	searchSeq uint64
	alert    string

	selectedID string
	userID     string
	nearestID  string
	lineID     string
}

// New creates an App drawing on m and asking locator for positions. Init
// must be called before the App is used.
func New(m Map, locator geolocation.Locator, opts ...Option) *App {
	if locator == nil {
		locator = geolocation.Denied(geolocation.PositionUnavailable)
	}

	a := &App{
		store:      facility.NewStore(nil),
		m:          m,
		locator:    locator,
		locateOpts: geolocation.DefaultOptions,
		state:      StateIdle,
		controls: Controls{
			Trigger: Trigger{Enabled: true, Label: TriggerLabel},
		},
		search: SearchList{Focus: -1},
	}

	for _, opt := range opts {
		opt(a)
	}

	if a.debouncer == nil {
		a.debouncer = debounce.New(SearchDelay)
	}

	return a
}

// Load reads the dataset from src and initialises the session with it. When
// the dataset cannot be fetched the session starts empty and the error is
// returned.
func (a *App) Load(ctx context.Context, src facility.Source, columns facility.Columns) error {
	store, _, err := facility.Load(ctx, src, columns)
	if err != nil {
		log.Printf("Error loading facilities: %v", err)
	}

	a.Init(store)

	return err
}

// Init shows store on the map: default view, legend, filter options with the
// default region preselected, and the matching markers.
func (a *App) Init(store *facility.Store) {
	if store == nil {
		store = facility.NewStore(nil)
	}

	a.mu.Lock()

	a.store = store
	a.m.SetView(DefaultCenter, DefaultZoom)
	a.m.AddControl(Control{ID: "legend", Position: "bottomright", HTML: LegendHTML(facility.Legend())})

	a.controls.Types = store.Types()
	a.controls.Regions = store.Regions()
	a.controls.Type = ""
	a.controls.Region = ""

	for _, r := range a.controls.Regions {
		if strings.EqualFold(r, DefaultRegion) {
			a.controls.Region = r

			break
		}
	}

	a.displayLocked()
	a.mu.Unlock()

	a.notify()
}

// SetType changes the facility type filter. An empty type matches all.
func (a *App) SetType(typ string) {
	a.mu.Lock()
	a.controls.Type = typ
	a.displayLocked()
	a.mu.Unlock()

	a.notify()
}

// SetRegion changes the region filter and, for a non-empty region, fits the
// map to the facilities of that region.
func (a *App) SetRegion(region string) {
	a.mu.Lock()

	a.controls.Region = region
	if region != "" {
		regional := facility.Filter(a.store.All(), facility.Criteria{Region: region})
		if b, ok := facility.BoundsOf(regional); ok {
			a.m.FitBounds(b)
		}
	}

	a.displayLocked()
	a.mu.Unlock()

	a.notify()
}

func (a *App) criteria() facility.Criteria {
	return facility.Criteria{Type: a.controls.Type, Region: a.controls.Region}
}

// displayLocked clears the map and draws one marker per filtered facility.
func (a *App) displayLocked() {
	layers := a.m.Layers()
	layers.Clear()

	a.selectedID, a.userID, a.nearestID, a.lineID = "", "", "", ""

	filtered := facility.Filter(a.store.All(), a.criteria())
	a.controls.Count = len(filtered)
	a.controls.CountText = textutils.FormatInt(int64(len(filtered)))

	for i := range filtered {
		f := &filtered[i]
		color := facility.Color(f.Type)
		layers.AddMarker(Marker{
			Point:   f.Point,
			Color:   color,
			Radius:  MarkerRadius,
			Tooltip: f.Name,
			Popup:   FacilityPopup(f),
		})
	}
}

// Input records the search box text. The search runs once the text has been
// stable for SearchDelay; a blank text closes the list right away.
func (a *App) Input(query string) {
	a.mu.Lock()

	a.controls.Query = query
	if strings.TrimSpace(query) == "" {
		a.closeSearchLocked()
		a.mu.Unlock()
		a.notify()

		return
	}

	a.searchSeq++
	seq := a.searchSeq
	a.debouncer.Schedule(func() { a.runSearch(seq) })
	a.mu.Unlock()

	a.notify()
}

func (a *App) runSearch(seq uint64) {
	a.mu.Lock()

	query := a.controls.Query
	if seq != a.searchSeq || strings.TrimSpace(query) == "" {
		a.mu.Unlock()

		return
	}

	results := facility.Top(facility.Search(a.store.All(), query), facility.SearchLimit)
	a.results = append([]facility.Facility(nil), results...)

	a.search = SearchList{Open: true, Query: query, Focus: -1}
	if len(results) == 0 {
		a.search.Placeholder = NoResultsText
	}

	for i := range a.results {
		f := &a.results[i]
		a.search.Items = append(a.search.Items, ResultItem{
			ID:   fmt.Sprintf("search-result-%d", i),
			Name: f.Name,
			HTML: ResultHTML(f),
		})
	}

	a.mu.Unlock()

	a.notify()
}

func (a *App) closeSearchLocked() {
	a.searchSeq++
	a.debouncer.Cancel()
	a.search.Open = false
	a.search.Focus = -1
	a.search.ActiveDescendant = ""

	for i := range a.search.Items {
		a.search.Items[i].Selected = false
	}
}

func (a *App) focusLocked(i int) {
	a.search.Focus = i
	a.search.ActiveDescendant = a.search.Items[i].ID

	for j := range a.search.Items {
		a.search.Items[j].Selected = j == i
	}
}

// KeyDown handles a key pressed in the search box and reports whether the
// key was consumed. ArrowDown and ArrowUp cycle the focus, Enter picks the
// focused result and Escape closes the list.
func (a *App) KeyDown(key string) bool {
	a.mu.Lock()

	if !a.search.Open || len(a.search.Items) == 0 {
		a.mu.Unlock()

		return false
	}

	n := len(a.search.Items)
	handled := true

	switch key {
	case "ArrowDown", "Down":
		a.focusLocked((a.search.Focus + 1) % n)
	case "ArrowUp", "Up":
		a.focusLocked((a.search.Focus - 1 + n) % n)
	case "Enter":
		if a.search.Focus < 0 {
			handled = false

			break
		}

		a.selectLocked(a.search.Focus)
	case "Escape", "Esc":
		a.closeSearchLocked()
	default:
		handled = false
	}

	a.mu.Unlock()

	if handled {
		a.notify()
	}

	return handled
}

// ClickResult picks the i-th visible search result.
func (a *App) ClickResult(i int) error {
	a.mu.Lock()

	if !a.search.Open || i < 0 || i >= len(a.results) {
		a.mu.Unlock()

		return fmt.Errorf("no search result at position %d", i)
	}

	a.selectLocked(i)
	a.mu.Unlock()

	a.notify()

	return nil
}

// ClickOutside closes the search list. With the list already closed nothing
// changes and no update is sent.
func (a *App) ClickOutside() {
	a.mu.Lock()

	if !a.search.Open {
		a.mu.Unlock()

		return
	}

	a.closeSearchLocked()
	a.mu.Unlock()

	a.notify()
}

func (a *App) selectLocked(i int) {
	f := a.results[i]

	a.highlightLocked(&f)
	a.closeSearchLocked()
	a.controls.Query = f.Name
	a.live.Status = fmt.Sprintf("Selected facility: %s in %s", f.Name, f.Region)
}

// Highlight marks f as the selected facility and zooms onto it.
func (a *App) Highlight(f facility.Facility) {
	a.mu.Lock()
	a.highlightLocked(&f)
	a.mu.Unlock()

	a.notify()
}

func (a *App) highlightLocked(f *facility.Facility) {
	layers := a.m.Layers()
	if a.selectedID != "" {
		layers.Remove(a.selectedID)
	}

	a.selectedID = layers.AddMarker(Marker{
		Point:     f.Point,
		Icon:      IconSelected,
		Tooltip:   f.Name,
		Popup:     SelectedPopup(f),
		PopupOpen: true,
	})
	a.m.SetView(f.Point, HighlightZoom)
}

func (a *App) clearNearestLocked() {
	layers := a.m.Layers()
	for _, id := range []string{a.userID, a.nearestID, a.lineID} {
		if id != "" {
			layers.Remove(id)
		}
	}

	a.userID, a.nearestID, a.lineID = "", "", ""
}

// Locate asks for the user position and marks the nearest facility. It blocks
// until the locator answers. While it runs the trigger is disabled and further
// calls fail with ErrLocating. With no facilities loaded it returns nil, nil.
func (a *App) Locate(ctx context.Context) (*NearestResult, error) {
	a.mu.Lock()

	if a.state == StateLocating {
		a.mu.Unlock()

		return nil, ErrLocating
	}

	a.state = StateLocating
	a.controls.Trigger = Trigger{Enabled: false, Label: LocatingLabel}
	a.live.Status = LocatingStatus
	a.live.Alert = ""
	a.clearNearestLocked()
	a.mu.Unlock()

	a.notify()

	p, err := geolocation.Locate(ctx, a.locator, a.locateOpts)

	a.mu.Lock()

	a.state = StateIdle
	a.controls.Trigger = Trigger{Enabled: true, Label: TriggerLabel}

	if err != nil {
		log.Printf("Error getting location: %v", err)

		a.alert = LocateFailedMessage
		a.live.Alert = "Error: " + LocateFailedMessage
		a.mu.Unlock()

		a.notify()

		return nil, err
	}

	nearest, km, ok := facility.Nearest(a.store.All(), p)
	if !ok {
		a.mu.Unlock()

		a.notify()

		return nil, nil
	}

	layers := a.m.Layers()
	a.userID = layers.AddMarker(Marker{Point: p, Icon: IconUser})
	a.nearestID = layers.AddMarker(Marker{
		Point:     nearest.Point,
		Icon:      IconNearest,
		Tooltip:   nearest.Name,
		Popup:     NearestPopup(&nearest, km),
		PopupOpen: true,
	})
	a.lineID = layers.AddPolyline(Polyline{
		Points:    []spatial.Point{p, nearest.Point},
		Color:     LineColor,
		Weight:    2,
		Opacity:   0.7,
		DashArray: "5, 10",
	})

	b, _ := spatial.BoundsOf(p, nearest.Point)
	a.m.FitBounds(b.Pad(NearestPadding))

	a.live.Status = fmt.Sprintf("Found nearest facility: %s, %s kilometers away", nearest.Name, FormatKm(km))
	a.mu.Unlock()

	a.notify()

	return &NearestResult{User: p, Facility: nearest, Distance: km}, nil
}

// DismissAlert acknowledges the blocking alert.
func (a *App) DismissAlert() {
	a.mu.Lock()

	if a.alert == "" {
		a.mu.Unlock()

		return
	}

	a.alert = ""
	a.mu.Unlock()

	a.notify()
}

// View returns a snapshot of the session.
func (a *App) View() View {
	a.mu.Lock()
	defer a.mu.Unlock()

	v := View{
		State:    a.state,
		Controls: a.controls,
		Search:   a.search,
		Live:     a.live,
		Alert:    a.alert,
	}

	v.Controls.Types = append([]string(nil), a.controls.Types...)
	v.Controls.Regions = append([]string(nil), a.controls.Regions...)
	v.Search.Items = append([]ResultItem(nil), a.search.Items...)

	if s, ok := a.m.(interface{ State() SceneState }); ok {
		st := s.State()
		v.Map = &st
	}

	return v
}

func (a *App) notify() {
	if a.onUpdate != nil {
		a.onUpdate(a.View())
	}
}
