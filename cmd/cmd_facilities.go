// Copyright 2025 The AfyaMap Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"

	"github.com/jcodagnone/afyamap/facility"
	"github.com/jcodagnone/afyamap/geolocation"
	"github.com/jcodagnone/afyamap/spatial"
	"github.com/jcodagnone/afyamap/utils/htmlutils"
	"github.com/jcodagnone/afyamap/utils/textutils"
	"github.com/jcodagnone/afyamap/viewer"
	"github.com/spf13/cobra"
)

var facilitiesCmd = &cobra.Command{
	Use:   "facilities",
	Short: "Query the facility dataset",
}

func printTable(w io.Writer, facilities []facility.Facility) {
	a, b, c := strings.Repeat("─", 40), strings.Repeat("─", 28), strings.Repeat("─", 14)
	fmt.Fprintf(w, "╭─%s─┬─%s─┬─%s─┬─%-21s─╮\n", a, b, c, strings.Repeat("─", 21))
	fmt.Fprintf(w, "│ %-40s │ %-28s │ %-14s │ %-21s │\n", "Name", "Type", "County", "Position")
	fmt.Fprintf(w, "├─%s─┼─%s─┼─%s─┼─%-21s─┤\n", a, b, c, strings.Repeat("─", 21))

	for i := range facilities {
		f := &facilities[i]
		fmt.Fprintf(w, "│ %-40.40s │ %-28.28s │ %-14.14s │ %21s │\n",
			f.Name, f.Type, f.Region, fmt.Sprintf("%.4f,%.4f", f.Point.Lat, f.Point.Lng))
	}

	fmt.Fprintf(w, "╰─%s─┴─%s─┴─%s─┴─%-21s─╯\n", a, b, c, strings.Repeat("─", 21))
}

var listCriteria facility.Criteria

var facilitiesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the facilities matching the type and county filters",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, err := loadFacilities(cmd.Context())
		if err != nil {
			return err
		}

		if listCriteria.Region != "" && !store.HasRegion(listCriteria.Region) {
			return fmt.Errorf("unknown county %q, expected one of: %s",
				listCriteria.Region, strings.Join(store.Regions(), ", "))
		}

		if listCriteria.Type != "" && !store.HasType(listCriteria.Type) {
			return fmt.Errorf("unknown facility type %q, expected one of: %s",
				listCriteria.Type, strings.Join(store.Types(), ", "))
		}

		filtered := facility.Filter(store.All(), listCriteria)
		printTable(os.Stdout, filtered)
		fmt.Printf("Facilities shown: %s\n", textutils.FormatInt(int64(len(filtered))))

		return nil
	},
}

var searchAll bool

var facilitiesSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search facilities by name, type or county",
	Long: `Prints the facilities whose name, type or county contains the query,
ignoring case. Only the first matches are shown unless --all is given.

$ afyamap facilities search hosp`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := loadFacilities(cmd.Context())
		if err != nil {
			return err
		}

		matches := facility.Search(store.All(), strings.Join(args, " "))
		if len(matches) == 0 {
			fmt.Println(viewer.NoResultsText)

			return nil
		}

		shown := matches
		if !searchAll {
			shown = facility.Top(matches, facility.SearchLimit)
		}

		printTable(os.Stdout, shown)
		fmt.Printf("Showing %d of %s matches\n", len(shown), textutils.FormatInt(int64(len(matches))))

		return nil
	},
}

type nearestOptions struct {
	Lat, Lon float64
	Locate   string
	IP       string
}

var nearestOpts = &nearestOptions{}

func nearestLocator(ctx context.Context, cmd *cobra.Command) (geolocation.Locator, func(), error) {
	noop := func() {}

	if cmd.Flags().Changed("lat") || cmd.Flags().Changed("lon") {
		if nearestOpts.Locate != "" {
			return nil, noop, errors.New("--locate cannot be combined with --lat/--lon")
		}

		return &geolocation.Static{Point: spatial.Point{Lat: nearestOpts.Lat, Lng: nearestOpts.Lon}}, noop, nil
	}

	switch nearestOpts.Locate {
	case "google":
		key, err := geolocation.ResolveAPIKey(ctx)
		if err != nil {
			return nil, noop, err
		}

		return geolocation.NewGoogle(key, httpClient()), noop, nil
	case "geoip":
		path := os.Getenv("GEOIP_DB")
		if path == "" {
			return nil, noop, errors.New("--locate geoip requires GEOIP_DB")
		}

		ip := net.ParseIP(nearestOpts.IP)
		if ip == nil {
			return nil, noop, fmt.Errorf("--ip must be a public IP address, got %q", nearestOpts.IP)
		}

		geo, err := geolocation.OpenGeoIP(path)
		if err != nil {
			return nil, noop, err
		}

		return geo.ForIP(ip), func() { _ = geo.Close() }, nil
	case "":
		return nil, noop, errors.New("either --lat and --lon or --locate is required")
	default:
		return nil, noop, fmt.Errorf("unknown locator %q, expected google or geoip", nearestOpts.Locate)
	}
}

var facilitiesNearestCmd = &cobra.Command{
	Use:   "nearest",
	Short: "Find the facility nearest to a position",
	Long: `Finds the facility nearest to the given coordinates, or to the position
reported by the Google Geolocation API or a GeoIP database.

$ afyamap facilities nearest --lat -1.2921 --lon 36.8219
$ afyamap facilities nearest --locate geoip --ip 197.248.0.1`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		locator, release, err := nearestLocator(ctx, cmd)
		if err != nil {
			return err
		}
		defer release()

		store, err := loadFacilities(ctx)
		if err != nil {
			return err
		}

		app := viewer.New(viewer.NewScene(viewer.DefaultCenter, viewer.DefaultZoom), locator)
		app.Init(store)

		res, err := app.Locate(ctx)
		if err != nil {
			return fmt.Errorf("%s: %w", viewer.LocateFailedMessage, err)
		}

		if res == nil {
			fmt.Println("No facilities loaded")

			return nil
		}

		text, err := htmlutils.Text(string(viewer.NearestPopup(&res.Facility, res.Distance)), "\n")
		if err != nil {
			return err
		}

		fmt.Println(text)
		fmt.Printf("Your position: %s\n", res.User)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(facilitiesCmd)
	facilitiesCmd.AddCommand(facilitiesListCmd)
	facilitiesCmd.AddCommand(facilitiesSearchCmd)
	facilitiesCmd.AddCommand(facilitiesNearestCmd)

	facilitiesListCmd.Flags().StringVar(&listCriteria.Type, "type", "", "Facility type, all when empty")
	facilitiesListCmd.Flags().StringVar(&listCriteria.Region, "county", "", "County, all when empty")

	facilitiesSearchCmd.Flags().BoolVar(&searchAll, "all", false, "Show every match")

	facilitiesNearestCmd.Flags().Float64Var(&nearestOpts.Lat, "lat", 0, "Latitude of the position")
	facilitiesNearestCmd.Flags().Float64Var(&nearestOpts.Lon, "lon", 0, "Longitude of the position")
	facilitiesNearestCmd.Flags().StringVar(&nearestOpts.Locate, "locate", "", "Position source when no coordinates are given: google or geoip")
	facilitiesNearestCmd.Flags().StringVar(&nearestOpts.IP, "ip", "", "IP address to look up with --locate geoip")
}
