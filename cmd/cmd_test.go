// Copyright 2025 The AfyaMap Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/jcodagnone/afyamap/facility"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistance(t *testing.T) {
	km, err := distance([]string{"-1.2921", "36.8219", "-4.0435", "39.6682"})
	require.NoError(t, err)
	assert.InDelta(t, 439.92, km, 0.01)

	for _, fields := range [][]string{
		{"1", "2", "3"},
		{"x", "0", "0", "0"},
		{"0", "0", "0", "y"},
		{"91", "0", "0", "0"},
	} {
		_, err := distance(fields)
		assert.Error(t, err, fields)
	}
}

func TestImportAndLoadFromDuckDB(t *testing.T) {
	dir := t.TempDir()
	saved := *rootOptions
	t.Cleanup(func() { *rootOptions = saved })

	rootOptions.DbPath = dir
	rootOptions.Data = filepath.Join("..", "data", "kenya_healthcare_facilities.csv")

	csvStore, err := loadFacilities(context.Background())
	require.NoError(t, err)
	require.Positive(t, csvStore.Len())

	db, err := sql.Open("duckdb", dbFile())
	require.NoError(t, err)
	require.NoError(t, importFacilities(facility.NewRepository(db), csvStore.All()))
	require.NoError(t, db.Close())

	rootOptions.Data = duckdbScheme + dbFile()

	dbStore, err := loadFacilities(context.Background())
	require.NoError(t, err)
	assert.Equal(t, csvStore.All(), dbStore.All())
}

func TestLoadFromMissingDuckDB(t *testing.T) {
	saved := *rootOptions
	t.Cleanup(func() { *rootOptions = saved })

	rootOptions.Data = duckdbScheme + filepath.Join(t.TempDir(), "nope.duckdb")

	store, err := loadFacilities(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store import")
	assert.Zero(t, store.Len())
}
