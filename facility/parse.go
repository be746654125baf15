// Copyright 2025 The AfyaMap Authors
// SPDX-License-Identifier: Apache-2.0

package facility

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jcodagnone/afyamap/spatial"
)

// Row is a dataset row keyed by header column.
type Row map[string]string

// Columns maps the dataset header to Facility fields. Each entry lists the
// accepted header names, compared case-insensitively.
type Columns struct {
	Name      []string
	Latitude  []string
	Longitude []string
	Type      []string
	Region    []string
	Location  []string
}

// DefaultColumns matches the Kenya health facilities export and a few common aliases.
var DefaultColumns = Columns{
	Name:      []string{"Facility_N", "facility_name", "name"},
	Latitude:  []string{"Latitude", "lat"},
	Longitude: []string{"Longitude", "lon", "lng"},
	Type:      []string{"Type", "facility_type"},
	Region:    []string{"County", "region"},
	Location:  []string{"Location", "sub_location"},
}

// ErrMissingColumn is returned when a required column is absent from the header.
var ErrMissingColumn = errors.New("missing required column")

const utf8BOM = "\uFEFF"

type header struct {
	name, lat, lng, typ, region, location string
}

func resolve(fields []string, aliases []string) string {
	for _, alias := range aliases {
		for _, f := range fields {
			if strings.EqualFold(strings.TrimSpace(f), alias) {
				return f
			}
		}
	}

	return ""
}

func (c Columns) resolve(fields []string) (header, error) {
	h := header{
		name:     resolve(fields, c.Name),
		lat:      resolve(fields, c.Latitude),
		lng:      resolve(fields, c.Longitude),
		typ:      resolve(fields, c.Type),
		region:   resolve(fields, c.Region),
		location: resolve(fields, c.Location),
	}

	var missing []string

	for _, m := range []struct{ got, want string }{
		{h.name, c.Name[0]},
		{h.lat, c.Latitude[0]},
		{h.lng, c.Longitude[0]},
		{h.typ, c.Type[0]},
		{h.region, c.Region[0]},
	} {
		if m.got == "" {
			missing = append(missing, m.want)
		}
	}

	if len(missing) > 0 {
		return header{}, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}

	return h, nil
}

// Parse reads a comma separated dataset with a header row. Rows that cannot
// become a Facility are reported and skipped; the returned error is reserved
// for failures that make the whole input unusable.
func Parse(r io.Reader, columns Columns) ([]Facility, []*ParseRowError, error) {
	br := bufio.NewReader(r)
	if b, err := br.Peek(len(utf8BOM)); err == nil && string(b) == utf8BOM {
		_, _ = br.Discard(len(utf8BOM))
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	fields, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, nil
	}

	if err != nil {
		return nil, nil, fmt.Errorf("reading header: %w", err)
	}

	h, err := columns.resolve(fields)
	if err != nil {
		return nil, nil, err
	}

	var (
		facilities []Facility
		rowErrs    []*ParseRowError
	)

	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				rowErrs = append(rowErrs, &ParseRowError{Line: perr.Line, Reason: "malformed row", Err: perr.Err})

				continue
			}

			return facilities, rowErrs, fmt.Errorf("reading dataset: %w", err)
		}

		line, _ := cr.FieldPos(0)

		if isBlank(record) {
			continue
		}

		if len(record) != len(fields) {
			rowErrs = append(rowErrs, &ParseRowError{
				Line:   line,
				Reason: fmt.Sprintf("expected %d fields but parsed %d", len(fields), len(record)),
			})

			continue
		}

		row := make(Row, len(fields))
		for i, f := range fields {
			row[f] = strings.TrimSpace(record[i])
		}

		f, rowErr := h.decode(row)
		if rowErr != nil {
			rowErr.Line = line
			rowErrs = append(rowErrs, rowErr)

			continue
		}

		facilities = append(facilities, f)
	}

	return facilities, rowErrs, nil
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}

	return true
}

func parseCoordinate(row Row, column string) (float64, *ParseRowError) {
	raw := row[column]
	if raw == "" {
		return 0, &ParseRowError{Column: column, Reason: "empty coordinate"}
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, &ParseRowError{Column: column, Reason: fmt.Sprintf("non numeric coordinate %q", raw), Err: err}
	}

	return v, nil
}

func (h header) decode(row Row) (Facility, *ParseRowError) {
	lat, err := parseCoordinate(row, h.lat)
	if err != nil {
		return Facility{}, err
	}

	lng, err := parseCoordinate(row, h.lng)
	if err != nil {
		return Facility{}, err
	}

	p := spatial.Point{Lat: lat, Lng: lng}
	if !p.Valid() {
		return Facility{}, &ParseRowError{Reason: fmt.Sprintf("coordinate out of range %s", p)}
	}

	f := Facility{
		Name:   row[h.name],
		Point:  p,
		Type:   row[h.typ],
		Region: row[h.region],
	}

	if h.location != "" {
		f.Location = row[h.location]
	}

	return f, nil
}
