// Copyright 2025 The AfyaMap Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/jcodagnone/afyamap/facility"
	"github.com/jcodagnone/afyamap/spatial"
	"github.com/jcodagnone/afyamap/viewer"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

var debugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Dev tools",
}

func parsePoint(lat, lng string) (spatial.Point, error) {
	var (
		p   spatial.Point
		err error
	)

	if p.Lat, err = strconv.ParseFloat(lat, 64); err != nil {
		return p, fmt.Errorf("invalid latitude %q", lat)
	}

	if p.Lng, err = strconv.ParseFloat(lng, 64); err != nil {
		return p, fmt.Errorf("invalid longitude %q", lng)
	}

	if !p.Valid() {
		return p, fmt.Errorf("coordinates out of range %s", p)
	}

	return p, nil
}

var debugDistanceCmd = &cobra.Command{
	Use:   "distance [lat1 lng1 lat2 lng2]",
	Short: "Great-circle distance in kilometres between two points",
	Long: `Prints the haversine distance between two points. Without arguments it
reads one "lat1 lng1 lat2 lng2" quadruple per line from stdin. Use "--" before
negative coordinates given as arguments.

$ afyamap debug distance -- -1.2921 36.8219 -4.0435 39.6682
439.92

$ echo "-1.2921 36.8219 -4.0435 39.6682" | afyamap debug distance
-1.2921 36.8219 -4.0435 39.6682		439.92`,
	Args: func(_ *cobra.Command, args []string) error {
		if len(args) != 0 && len(args) != 4 {
			return fmt.Errorf("expected 0 or 4 arguments, got %d", len(args))
		}

		return nil
	},
	RunE: func(_ *cobra.Command, args []string) error {
		if len(args) == 4 {
			km, err := distance(args)
			if err != nil {
				return err
			}

			fmt.Println(viewer.FormatKm(km))

			return nil
		}

		input := os.Stdin
		if isatty.IsTerminal(input.Fd()) {
			fmt.Fprintln(os.Stderr, "Enter lat1 lng1 lat2 lng2, one quadruple per line…")
		}

		scanner := bufio.NewScanner(input)
		for scanner.Scan() {
			line := scanner.Text()

			km, err := distance(strings.Fields(line))
			if err != nil {
				fmt.Printf("%s\t%q\n", line, err)
			} else {
				fmt.Printf("%s\t\t%s\n", line, viewer.FormatKm(km))
			}
		}

		if err := scanner.Err(); err != nil {
			return fmt.Errorf("reading input: %w", err)
		}

		return nil
	},
}

func distance(fields []string) (float64, error) {
	if len(fields) != 4 {
		return 0, fmt.Errorf("expected 4 values, got %d", len(fields))
	}

	a, err := parsePoint(fields[0], fields[1])
	if err != nil {
		return 0, err
	}

	b, err := parsePoint(fields[2], fields[3])
	if err != nil {
		return 0, err
	}

	return a.HaversineDistance(b), nil
}

var coverageResolution int

var debugCoverageCmd = &cobra.Command{
	Use:   "coverage",
	Short: "Facility count per H3 cell",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, err := loadFacilities(cmd.Context())
		if err != nil {
			return err
		}

		cells, err := store.Coverage(coverageResolution)
		if err != nil {
			return err
		}

		for _, c := range cells {
			fmt.Printf("%s\t%s\t%d\n", c.Cell, c.Center, c.Count)
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(debugCmd)
	debugCmd.AddCommand(debugDistanceCmd)
	debugCmd.AddCommand(debugCoverageCmd)
	debugCoverageCmd.Flags().IntVar(&coverageResolution, "res", facility.CoverageResolution, "H3 resolution, 0 to 15")
}
