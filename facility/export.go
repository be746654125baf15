// Copyright 2025 The AfyaMap Authors
// SPDX-License-Identifier: Apache-2.0

package facility

import (
	"encoding/csv"
	"io"
	"strconv"
)

// WriteCSV writes facilities in the layout of the Kenya export, header first.
// The output parses back with DefaultColumns.
func WriteCSV(w io.Writer, facilities []Facility) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"Facility_N", "Latitude", "Longitude", "Type", "County", "Location"}); err != nil {
		return err
	}

	for i := range facilities {
		f := &facilities[i]
		if err := cw.Write([]string{
			f.Name,
			strconv.FormatFloat(f.Point.Lat, 'f', -1, 64),
			strconv.FormatFloat(f.Point.Lng, 'f', -1, 64),
			f.Type,
			f.Region,
			f.Location,
		}); err != nil {
			return err
		}
	}

	cw.Flush()

	return cw.Error()
}
