// Copyright 2025 The AfyaMap Authors
// SPDX-License-Identifier: Apache-2.0

// Package server exposes a facility store over HTTP: the map page, a JSON API
// and a websocket that drives one viewer session per browser tab.
package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/jcodagnone/afyamap/facility"
	"github.com/jcodagnone/afyamap/geolocation"
	"github.com/jcodagnone/afyamap/utils/textutils"
	"github.com/jcodagnone/afyamap/viewer"
	"golang.org/x/sync/errgroup"
)

//go:embed templates/*.html static/*
var assets embed.FS

const shutdownTimeout = 5 * time.Second

// Options configure a Server.
type Options struct {
	// GeoIP answers /api/nearest requests that carry no coordinates.
	GeoIP *geolocation.GeoIP
	// LocateOptions are sent to browsers with every position request.
	LocateOptions geolocation.Options
	// AllowedOrigins restricts websocket origins. Empty allows any origin.
	AllowedOrigins []string
}

// Server serves one immutable facility store.
type Server struct {
	store    *facility.Store
	opts     Options
	upgrader websocket.Upgrader
}

// NewServer creates a server for store.
func NewServer(store *facility.Store, opts Options) *Server {
	if store == nil {
		store = facility.NewStore(nil)
	}

	if opts.LocateOptions == (geolocation.Options{}) {
		opts.LocateOptions = geolocation.DefaultOptions
	}

	s := &Server{store: store, opts: opts}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}

	return s
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.opts.AllowedOrigins) == 0 {
		return true
	}

	origin := r.Header.Get("Origin")
	for _, o := range s.opts.AllowedOrigins {
		if strings.EqualFold(o, origin) {
			return true
		}
	}

	return false
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	r := gin.Default()
	r.SetHTMLTemplate(template.Must(template.New("").ParseFS(assets, "templates/*.html")))

	static, err := fs.Sub(assets, "static")
	if err != nil {
		panic(err)
	}

	r.StaticFS("/static", http.FS(static))

	r.GET("/", s.indexView)
	r.GET("/data/facilities.csv", s.dataset)
	r.GET("/api/filters", s.getFilters)
	r.GET("/api/facilities", s.listFacilities)
	r.GET("/api/search", s.search)
	r.GET("/api/nearest", s.nearest)
	r.GET("/api/coverage", s.coverage)
	r.GET("/ws", s.session)

	return r
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Printf("Serving %s facilities on http://%s", textutils.FormatInt(int64(s.store.Len())), addr)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving %s: %w", addr, err)
		}

		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		log.Println("Shutting down server...")

		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func (s *Server) defaultRegion() string {
	for _, r := range s.store.Regions() {
		if strings.EqualFold(r, viewer.DefaultRegion) {
			return r
		}
	}

	return ""
}
