// Copyright 2025 The AfyaMap Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jcodagnone/afyamap/geolocation"
	"github.com/jcodagnone/afyamap/server"
	"github.com/spf13/cobra"
)

type serveOptions struct {
	Addr           string
	GeoIPPath      string
	AllowedOrigins []string
	LocateTimeout  time.Duration
	LocateMaxAge   time.Duration
}

var serveOpts = &serveOptions{}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the facility map",
	Long: `Serves the map page, the JSON API and the websocket sessions that drive it.

A dataset that cannot be loaded is logged and the map starts empty.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if !cmd.Flags().Changed("addr") {
			if v := os.Getenv("AFYAMAP_ADDR"); v != "" {
				serveOpts.Addr = v
			}
		}

		if !cmd.Flags().Changed("geoip-db") {
			serveOpts.GeoIPPath = os.Getenv("GEOIP_DB")
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		store, err := loadFacilities(ctx)
		if err != nil {
			log.Printf("Error loading facilities: %v", err)
		}

		locate := geolocation.DefaultOptions
		locate.Timeout = serveOpts.LocateTimeout
		locate.MaximumAge = serveOpts.LocateMaxAge

		opts := server.Options{
			LocateOptions:  locate,
			AllowedOrigins: serveOpts.AllowedOrigins,
		}

		if serveOpts.GeoIPPath != "" {
			geo, err := geolocation.OpenGeoIP(serveOpts.GeoIPPath)
			if err != nil {
				return fmt.Errorf("opening GeoIP database: %w", err)
			}
			defer geo.Close()

			opts.GeoIP = geo
		}

		return server.NewServer(store, opts).Run(ctx, serveOpts.Addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveOpts.Addr, "addr", "localhost:8080", "Listen address (env AFYAMAP_ADDR)")
	serveCmd.Flags().StringVar(&serveOpts.GeoIPPath, "geoip-db", "", "MaxMind GeoIP2 City database used by /api/nearest (env GEOIP_DB)")
	serveCmd.Flags().StringSliceVar(&serveOpts.AllowedOrigins, "allowed-origin", nil, "Origins allowed to open websocket sessions, any when empty")
	serveCmd.Flags().DurationVar(&serveOpts.LocateTimeout, "locate-timeout", geolocation.DefaultOptions.Timeout, "How long a browser may take to report its position")
	serveCmd.Flags().DurationVar(&serveOpts.LocateMaxAge, "locate-max-age", 0, "Reuse a session's last position while younger than this")
}
