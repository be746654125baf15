// Copyright 2025 The AfyaMap Authors
// SPDX-License-Identifier: Apache-2.0

// Package geolocation answers "where is the user right now" with a single,
// non-retried request to some position provider.
package geolocation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jcodagnone/afyamap/spatial"
)

// ErrorCode classifies a failed position request. The values follow the
// browser Geolocation API so codes reported by clients can be used directly.
type ErrorCode int

const (
	PermissionDenied    ErrorCode = 1
	PositionUnavailable ErrorCode = 2
	Timeout             ErrorCode = 3
)

func (c ErrorCode) String() string {
	switch c {
	case PermissionDenied:
		return "permission denied"
	case PositionUnavailable:
		return "position unavailable"
	case Timeout:
		return "timeout"
	default:
		return fmt.Sprintf("ErrorCode(%d)", int(c))
	}
}

// Error is returned by every Locator when no position could be obtained.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := "geolocation: " + e.Code.String()
	if e.Message != "" {
		msg += ": " + e.Message
	}

	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf extracts the ErrorCode carried by err. Errors that are not a
// geolocation Error are reported as PositionUnavailable.
func CodeOf(err error) ErrorCode {
	var geoErr *Error
	if errors.As(err, &geoErr) {
		return geoErr.Code
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout
	}

	return PositionUnavailable
}

// Options mirror the knobs of a browser position request.
type Options struct {
	EnableHighAccuracy bool          `json:"enableHighAccuracy"`
	Timeout            time.Duration `json:"-"`
	MaximumAge         time.Duration `json:"-"`
}

// DefaultOptions asks for a fresh, accurate fix within five seconds.
var DefaultOptions = Options{
	EnableHighAccuracy: true,
	Timeout:            5 * time.Second,
	MaximumAge:         0,
}

// Locator obtains the current position once.
type Locator interface {
	CurrentPosition(ctx context.Context, opts Options) (spatial.Point, error)
}

// LocatorFunc adapts a function to Locator.
type LocatorFunc func(ctx context.Context, opts Options) (spatial.Point, error)

// CurrentPosition implements Locator.
func (f LocatorFunc) CurrentPosition(ctx context.Context, opts Options) (spatial.Point, error) {
	return f(ctx, opts)
}

// Locate runs a single request against l, bounded by opts.Timeout. Every
// failure is returned as *Error and a position outside the valid coordinate
// range counts as unavailable.
func Locate(ctx context.Context, l Locator, opts Options) (spatial.Point, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	p, err := l.CurrentPosition(ctx, opts)
	if err != nil {
		var geoErr *Error
		if errors.As(err, &geoErr) {
			return spatial.Point{}, err
		}

		return spatial.Point{}, &Error{Code: CodeOf(err), Err: err}
	}

	if !p.Valid() {
		return spatial.Point{}, &Error{Code: PositionUnavailable, Message: fmt.Sprintf("invalid position %s", p)}
	}

	return p, nil
}

// Static always answers with the same position, or with Err when set.
type Static struct {
	Point spatial.Point
	Err   error
}

// CurrentPosition implements Locator.
func (s *Static) CurrentPosition(ctx context.Context, _ Options) (spatial.Point, error) {
	if err := ctx.Err(); err != nil {
		return spatial.Point{}, err
	}

	if s.Err != nil {
		return spatial.Point{}, s.Err
	}

	return s.Point, nil
}

// Denied is a Locator that always fails with code.
func Denied(code ErrorCode) Locator {
	return &Static{Err: &Error{Code: code}}
}
