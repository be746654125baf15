// Copyright 2025 The AfyaMap Authors
// SPDX-License-Identifier: Apache-2.0

package facility

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jcodagnone/afyamap/spatial"
)

// CoverageResolution is the H3 resolution stored next to every facility.
const CoverageResolution = 7

// Repository persists a facility dataset.
type Repository interface {
	// CreateSchema creates the facilities table
	CreateSchema() error

	// SaveFacilities replaces the stored dataset, keeping the given order
	SaveFacilities(facilities []Facility, progress func()) error

	// All returns the stored facilities in dataset order
	All() ([]Facility, error)

	// Count returns the number of stored facilities
	Count() (int, error)
}

type sqlRepository struct {
	db *sql.DB
}

// NewRepository creates a repository backed by a DuckDB database.
func NewRepository(db *sql.DB) Repository {
	return &sqlRepository{db: db}
}

func (r *sqlRepository) CreateSchema() error {
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS facilities (
			ordinal INTEGER PRIMARY KEY,
			name VARCHAR NOT NULL,
			point VARCHAR NOT NULL,
			type VARCHAR NOT NULL,
			region VARCHAR NOT NULL,
			location VARCHAR,
			h3_res7 UBIGINT
		);
	`)

	return err
}

func (r *sqlRepository) SaveFacilities(facilities []Facility, progress func()) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM facilities`); err != nil {
		return errors.Join(fmt.Errorf("clearing facilities: %w", err), tx.Rollback())
	}

	stmt, err := tx.Prepare(`
		INSERT INTO facilities(ordinal, name, point, type, region, location, h3_res7)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return errors.Join(err, tx.Rollback())
	}
	defer stmt.Close()

	for i := range facilities {
		f := &facilities[i]

		cell, err := spatial.Cell(f.Point, CoverageResolution)
		if err != nil {
			return errors.Join(err, tx.Rollback())
		}

		point, err := f.Point.Value()
		if err != nil {
			return errors.Join(err, tx.Rollback())
		}

		var location *string
		if f.Location != "" {
			location = &f.Location
		}

		if _, err := stmt.Exec(i, f.Name, point, f.Type, f.Region, location, uint64(cell)); err != nil {
			return errors.Join(fmt.Errorf("inserting %q: %w", f.Name, err), tx.Rollback())
		}

		if progress != nil {
			progress()
		}
	}

	return tx.Commit()
}

func (r *sqlRepository) All() ([]Facility, error) {
	rows, err := r.db.Query(`
		SELECT name, point, type, region, location
		FROM facilities
		ORDER BY ordinal
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var facilities []Facility

	for rows.Next() {
		var (
			f        Facility
			location sql.NullString
		)

		if err := rows.Scan(&f.Name, &f.Point, &f.Type, &f.Region, &location); err != nil {
			return nil, err
		}

		if location.Valid {
			f.Location = location.String
		}

		facilities = append(facilities, f)
	}

	return facilities, rows.Err()
}

func (r *sqlRepository) Count() (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM facilities`).Scan(&n)

	return n, err
}
