// Copyright 2025 The AfyaMap Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/duckdb/duckdb-go/v2" // register duckdb driver
	"github.com/jcodagnone/afyamap/facility"
	"github.com/jcodagnone/afyamap/utils/httputils"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type logWriter struct {
	writer io.Writer
}

func (w *logWriter) Write(bytes []byte) (int, error) {
	return fmt.Fprintf(w.writer, "%s %s", time.Now().Format("2006-01-02 15:04:05"), string(bytes))
}

func init() {
	log.SetFlags(0)
	log.SetOutput(&logWriter{writer: os.Stderr})
}

const (
	defaultData  = "data/kenya_healthcare_facilities.csv"
	dbFileName   = "afyamap.duckdb"
	duckdbScheme = "duckdb://"
)

// RootOptions are the flags shared by every command.
type RootOptions struct {
	// Data is the dataset URI: a path, http(s)://, s3://bucket/key or duckdb://path
	Data string

	// DbPath is the directory holding the local database
	DbPath string

	// Enables light tracing of HTTP requests and responses
	EnableHTTPTrace bool
}

var rootOptions = &RootOptions{}

var rootCmd = &cobra.Command{
	Use:   "afyamap",
	Short: "Kenya health facilities on a map",
	Long: `
afyamap plots the Kenya health facilities dataset over a map. It filters the
facilities by type and county, searches them by name and finds the one nearest
to the user, either in the browser (serve) or from the command line.
`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading .env: %w", err)
		}

		if !cmd.Flags().Changed("data") {
			if v := os.Getenv("AFYAMAP_DATA"); v != "" {
				rootOptions.Data = v
			}
		}

		return nil
	},
}

var Version = "dev"

func Execute(version string) {
	Version = version

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&rootOptions.Data,
		"data",
		defaultData,
		"Dataset location: a path, http(s)://, s3://bucket/key or duckdb://<file> (env AFYAMAP_DATA)",
	)
	rootCmd.PersistentFlags().StringVar(
		&rootOptions.DbPath,
		"db-path",
		"db",
		"Directory where the local database is stored",
	)
	rootCmd.PersistentFlags().BoolVar(
		&rootOptions.EnableHTTPTrace,
		"trace-http",
		false,
		"Display HTTP requests-responses",
	)
}

func httpClient() *http.Client {
	opts := httputils.ClientOptions{UserAgent: httputils.UserAgent(Version)}
	if rootOptions.EnableHTTPTrace {
		opts.Trace = os.Stderr
	}

	return httputils.NewClient(opts)
}

func dbFile() string {
	return filepath.Join(rootOptions.DbPath, dbFileName)
}

func openDB(path string) (*sql.DB, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("database not found at %s - run 'store import' first", path)
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	return db, nil
}

// loadFacilities reads the dataset named by --data.
func loadFacilities(ctx context.Context) (*facility.Store, error) {
	if path, ok := strings.CutPrefix(rootOptions.Data, duckdbScheme); ok {
		db, err := openDB(path)
		if err != nil {
			return facility.NewStore(nil), err
		}
		defer db.Close()

		facilities, err := facility.NewRepository(db).All()
		if err != nil {
			return facility.NewStore(nil), fmt.Errorf("reading facilities from %s: %w", path, err)
		}

		log.Printf("Loaded %d facilities from %s", len(facilities), rootOptions.Data)

		return facility.NewStore(facilities), nil
	}

	src, err := facility.ParseSource(rootOptions.Data, httpClient(), facility.S3OptionsFromEnv())
	if err != nil {
		return facility.NewStore(nil), err
	}

	store, _, err := facility.Load(ctx, src, facility.DefaultColumns)

	return store, err
}
