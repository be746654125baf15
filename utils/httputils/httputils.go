// Copyright 2025 The AfyaMap Authors
// SPDX-License-Identifier: Apache-2.0

// Package httputils builds the HTTP clients used to fetch datasets and
// positions.
package httputils

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"strings"
	"time"

	"golang.org/x/net/html/charset"
)

// DefaultTimeout bounds a whole request, body included.
const DefaultTimeout = 30 * time.Second

// ClientOptions configure NewClient.
type ClientOptions struct {
	// UserAgent is sent with every request when not empty
	UserAgent string
	// Trace receives a dump of every exchange when not nil
	Trace io.Writer
	// TraceBody includes response bodies in the dump
	TraceBody bool
	Timeout   time.Duration
}

// UserAgent formats the agent string of a given release.
func UserAgent(version string) string {
	return fmt.Sprintf("afyamap/%s (+https://github.com/jcodagnone/afyamap)", version)
}

// NewClient stacks the header and tracing transports over the default one.
func NewClient(opts ClientOptions) *http.Client {
	var transport http.RoundTripper = http.DefaultTransport

	if opts.Trace != nil {
		transport = &LoggingRoundTripper{Transport: transport, Writer: opts.Trace, DumpBody: opts.TraceBody}
	}

	if opts.UserAgent != "" {
		transport = &AppendRequestHeadersRoundTripper{
			Transport: transport,
			Headers:   map[string]string{"User-Agent": opts.UserAgent},
		}
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	return &http.Client{Transport: transport, Timeout: timeout}
}

// LoggingRoundTripper writes an abbreviated dump of each exchange to Writer.
type LoggingRoundTripper struct {
	Transport http.RoundTripper
	Writer    io.Writer
	DumpBody  bool
}

// abbreviate prefixes the dump lines and caps their number and width.
func abbreviate(lines []string, prefix rune) []string {
	const maxLines, maxChars = 2048, 512

	if len(lines) > maxLines {
		lines = append(lines[:maxLines], "…")
	}

	for i, line := range lines {
		if strings.HasPrefix(line, "Authorization:") || strings.HasPrefix(line, "X-Goog-Api-Key:") {
			line = line[:strings.IndexByte(line, ':')+1] + " <redacted>"
		}

		if len(line) > maxChars {
			line = line[:maxChars] + "…"
		}

		lines[i] = fmt.Sprintf("%c %s", prefix, line)
	}

	return lines
}

func (t *LoggingRoundTripper) dumpRequest(req *http.Request) error {
	dump, err := httputil.DumpRequestOut(req, true)
	if err != nil {
		return fmt.Errorf("tracing HTTP request: %w", err)
	}

	lines := append(abbreviate(strings.Split(string(dump), "\n"), '>'), "")
	_, err = fmt.Fprint(t.Writer, strings.Join(lines, "\n"))

	return err
}

func (t *LoggingRoundTripper) dumpResponse(resp *http.Response, duration time.Duration) error {
	dump, err := httputil.DumpResponse(resp, t.DumpBody)
	if err != nil {
		return fmt.Errorf("tracing HTTP response: %w", err)
	}

	if _, err = fmt.Fprintf(t.Writer, "< RESPONSE: [%v]\n", duration); err != nil {
		return fmt.Errorf("tracing HTTP response: %w", err)
	}

	lines := append(abbreviate(strings.Split(string(dump), "\n"), '<'), "")
	_, err = fmt.Fprint(t.Writer, strings.Join(lines, "\n"))

	return err
}

// RoundTrip implements the http.RoundTripper interface.
func (t *LoggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Writer == nil {
		return t.Transport.RoundTrip(req)
	}

	if err := t.dumpRequest(req); err != nil {
		return nil, err
	}

	start := time.Now()

	resp, err := t.Transport.RoundTrip(req)
	if err != nil {
		fmt.Fprintf(t.Writer, "< ERROR: [%v] %v\n", time.Since(start), err)

		return nil, err
	}

	if err := t.dumpResponse(resp, time.Since(start)); err != nil {
		_ = resp.Body.Close()

		return nil, err
	}

	return resp, nil
}

// AppendRequestHeadersRoundTripper sets Headers on every request.
type AppendRequestHeadersRoundTripper struct {
	Transport http.RoundTripper
	Headers   map[string]string
}

// RoundTrip implements the http.RoundTripper interface.
func (t *AppendRequestHeadersRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for k, v := range t.Headers {
		req.Header.Set(k, v)
	}

	return t.Transport.RoundTrip(req)
}

// DecodeBody converts a response body to UTF-8, following the charset of its
// Content-Type or, when absent, sniffing the leading bytes.
func DecodeBody(resp *http.Response) (io.Reader, error) {
	r, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("decoding body: %w", err)
	}

	return r, nil
}
