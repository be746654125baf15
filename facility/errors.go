// Copyright 2025 The AfyaMap Authors
// SPDX-License-Identifier: Apache-2.0

package facility

import (
	"errors"
	"fmt"
)

// LoadError reports that the dataset could not be fetched at all.
type LoadError struct {
	Source     string
	StatusCode int // zero when the failure happened before a response
	Err        error
}

func (e *LoadError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("loading %s: HTTP error! status: %d", e.Source, e.StatusCode)
	}

	return fmt.Sprintf("loading %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// ParseRowError reports a single dataset row that had to be dropped.
type ParseRowError struct {
	Line   int
	Column string
	Reason string
	Err    error
}

func (e *ParseRowError) Error() string {
	msg := fmt.Sprintf("line %d", e.Line)
	if e.Column != "" {
		msg += fmt.Sprintf(", column %q", e.Column)
	}

	msg += ": " + e.Reason
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}

	return msg
}

func (e *ParseRowError) Unwrap() error {
	return e.Err
}

// IsLoadError reports whether err, or any error it wraps, is a LoadError.
func IsLoadError(err error) bool {
	var loadErr *LoadError

	return errors.As(err, &loadErr)
}
