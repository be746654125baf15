// Copyright 2025 The AfyaMap Authors
// SPDX-License-Identifier: Apache-2.0

package facility

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/jcodagnone/afyamap/utils/httputils"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Source is somewhere a dataset can be read from.
type Source interface {
	// Open returns the raw dataset. Failures are reported as *LoadError.
	Open(ctx context.Context) (io.ReadCloser, error)
	String() string
}

// HTTPSource fetches the dataset with a GET request.
type HTTPSource struct {
	URL    string
	Client *http.Client
}

func (s *HTTPSource) String() string { return s.URL }

// Open implements Source.
func (s *HTTPSource) Open(ctx context.Context) (io.ReadCloser, error) {
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, &LoadError{Source: s.URL, Err: err}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &LoadError{Source: s.URL, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()

		return nil, &LoadError{
			Source:     s.URL,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	body, err := httputils.DecodeBody(resp)
	if err != nil {
		_ = resp.Body.Close()

		return nil, &LoadError{Source: s.URL, Err: err}
	}

	return struct {
		io.Reader
		io.Closer
	}{body, resp.Body}, nil
}

// FileSource reads the dataset from the local filesystem.
type FileSource struct {
	Path string
}

func (s *FileSource) String() string { return s.Path }

// Open implements Source.
func (s *FileSource) Open(_ context.Context) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Clean(s.Path))
	if err != nil {
		return nil, &LoadError{Source: s.Path, Err: err}
	}

	return f, nil
}

// S3Source reads the dataset from an S3 compatible object store.
type S3Source struct {
	Client *minio.Client
	Bucket string
	Key    string
}

func (s *S3Source) String() string { return fmt.Sprintf("s3://%s/%s", s.Bucket, s.Key) }

// Open implements Source.
func (s *S3Source) Open(ctx context.Context) (io.ReadCloser, error) {
	// GetObject is lazy; Stat surfaces missing buckets and keys up front.
	object, err := s.Client.GetObject(ctx, s.Bucket, s.Key, minio.GetObjectOptions{})
	if err != nil {
		return nil, &LoadError{Source: s.String(), Err: err}
	}

	if _, err := object.Stat(); err != nil {
		_ = object.Close()

		return nil, &LoadError{
			Source:     s.String(),
			StatusCode: minio.ToErrorResponse(err).StatusCode,
			Err:        err,
		}
	}

	return object, nil
}

// S3Options configures the object store used by s3:// sources.
type S3Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// S3OptionsFromEnv reads MINIO_ENDPOINT, MINIO_ACCESS_KEY, MINIO_SECRET_KEY and MINIO_USE_SSL.
func S3OptionsFromEnv() S3Options {
	return S3Options{
		Endpoint:  os.Getenv("MINIO_ENDPOINT"),
		AccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		SecretKey: os.Getenv("MINIO_SECRET_KEY"),
		UseSSL:    os.Getenv("MINIO_USE_SSL") == "true",
	}
}

// ParseSource resolves a dataset URI: http(s)://, s3://bucket/key or a local path.
func ParseSource(uri string, client *http.Client, s3 S3Options) (Source, error) {
	switch {
	case strings.HasPrefix(uri, "http://"), strings.HasPrefix(uri, "https://"):
		return &HTTPSource{URL: uri, Client: client}, nil
	case strings.HasPrefix(uri, "s3://"):
		u, err := url.Parse(uri)
		if err != nil {
			return nil, fmt.Errorf("parsing %q: %w", uri, err)
		}

		key := strings.TrimPrefix(u.Path, "/")
		if u.Host == "" || key == "" {
			return nil, fmt.Errorf("s3 source %q must look like s3://bucket/key", uri)
		}

		if s3.Endpoint == "" {
			return nil, fmt.Errorf("s3 source %q requires MINIO_ENDPOINT", uri)
		}

		mc, err := minio.New(s3.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(s3.AccessKey, s3.SecretKey, ""),
			Secure: s3.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("creating object store client: %w", err)
		}

		return &S3Source{Client: mc, Bucket: u.Host, Key: key}, nil
	case uri == "":
		return nil, fmt.Errorf("empty dataset source")
	default:
		return &FileSource{Path: uri}, nil
	}
}

// Load reads and parses the dataset behind src. Dropped rows are logged and
// returned; on a LoadError the returned store is empty, never nil.
func Load(ctx context.Context, src Source, columns Columns) (*Store, []*ParseRowError, error) {
	log.Printf("Fetching facility data from %s", src)

	rc, err := src.Open(ctx)
	if err != nil {
		return NewStore(nil), nil, err
	}
	defer rc.Close()

	facilities, rowErrs, err := Parse(rc, columns)
	if err != nil {
		return NewStore(nil), rowErrs, &LoadError{Source: src.String(), Err: err}
	}

	for _, rowErr := range rowErrs {
		log.Printf("Skipping row from %s - %s", src, rowErr)
	}

	log.Printf("Loaded %d facilities from %s (%d rows skipped)", len(facilities), src, len(rowErrs))

	return NewStore(facilities), rowErrs, nil
}
