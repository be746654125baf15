// Copyright 2025 The AfyaMap Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"database/sql"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/jcodagnone/afyamap/facility"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Keep a local copy of the dataset in DuckDB",
	Long: `Imports the dataset into a DuckDB database under --db-path. Other commands
read it back with --data duckdb://<db-path>/afyamap.duckdb.`,
}

var storeImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Replaces the stored facilities with the dataset given by --data",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if strings.HasPrefix(rootOptions.Data, duckdbScheme) {
			return fmt.Errorf("cannot import from %s, use a CSV source", rootOptions.Data)
		}

		store, err := loadFacilities(cmd.Context())
		if err != nil {
			return err
		}

		if err := os.MkdirAll(rootOptions.DbPath, 0o750); err != nil {
			return fmt.Errorf("creating db directory: %w", err)
		}

		db, err := sql.Open("duckdb", dbFile())
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer db.Close()

		return importFacilities(facility.NewRepository(db), store.All())
	},
}

func importFacilities(repo facility.Repository, facilities []facility.Facility) error {
	if err := repo.CreateSchema(); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}

	var bar *progressbar.ProgressBar
	if isatty.IsTerminal(os.Stderr.Fd()) {
		bar = progressbar.NewOptions(len(facilities),
			progressbar.OptionSetDescription("Importing facilities"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	err := repo.SaveFacilities(facilities, func() {
		if bar != nil {
			_ = bar.Add(1)
		}
	})
	if bar != nil {
		_ = bar.Finish()
	}

	if err != nil {
		return fmt.Errorf("saving facilities: %w", err)
	}

	n, err := repo.Count()
	if err != nil {
		return err
	}

	log.Printf("Stored %d facilities in %s", n, dbFile())

	return nil
}

var storeExportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Writes the stored facilities as CSV to a file or stdout",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		db, err := openDB(dbFile())
		if err != nil {
			return err
		}
		defer db.Close()

		facilities, err := facility.NewRepository(db).All()
		if err != nil {
			return fmt.Errorf("reading facilities: %w", err)
		}

		var w io.Writer = os.Stdout

		if len(args) > 0 {
			f, err := os.Create(args[0])
			if err != nil {
				return fmt.Errorf("creating %s: %w", args[0], err)
			}
			defer f.Close()

			w = f
		}

		if err := facility.WriteCSV(w, facilities); err != nil {
			return fmt.Errorf("writing CSV: %w", err)
		}

		log.Printf("Exported %d facilities", len(facilities))

		return nil
	},
}

func init() {
	rootCmd.AddCommand(storeCmd)
	storeCmd.AddCommand(storeImportCmd)
	storeCmd.AddCommand(storeExportCmd)
}
