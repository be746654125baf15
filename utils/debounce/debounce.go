// Copyright 2025 The AfyaMap Authors
// SPDX-License-Identifier: Apache-2.0

// Package debounce provides a cancellable scheduled task: only the last of a
// burst of calls runs, once the burst has been quiet for a fixed delay.
package debounce

import (
	"sync"
	"time"
)

// Timer is the handle of a scheduled function.
type Timer interface {
	Stop() bool
}

// Clock schedules functions after a delay.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// RealClock schedules on the runtime timers.
var RealClock Clock = realClock{}

// Debouncer runs the most recently scheduled function after Delay has elapsed
// without another Schedule call. It is safe for concurrent use.
type Debouncer struct {
	mu    sync.Mutex
	delay time.Duration
	clock Clock
	timer Timer
	// bumped on every Schedule and Cancel, a timer that fired late but lost
	// the race against a newer call sees a stale value and does nothing
	gen uint64
}

// New creates a Debouncer on the real clock.
func New(delay time.Duration) *Debouncer {
	return NewWithClock(delay, RealClock)
}

// NewWithClock creates a Debouncer on the given clock.
func NewWithClock(delay time.Duration, clock Clock) *Debouncer {
	if clock == nil {
		clock = RealClock
	}

	return &Debouncer{delay: delay, clock: clock}
}

// Delay returns the quiet period.
func (d *Debouncer) Delay() time.Duration {
	return d.delay
}

// Schedule cancels any pending function and schedules f.
func (d *Debouncer) Schedule(f func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopLocked()

	gen := d.gen
	d.timer = d.clock.AfterFunc(d.delay, func() {
		d.mu.Lock()
		if d.gen != gen {
			d.mu.Unlock()

			return
		}

		d.timer = nil
		d.mu.Unlock()

		f()
	})
}

// Cancel drops the pending function, if any, and reports whether there was one.
func (d *Debouncer) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.stopLocked()
}

// Pending reports whether a function is scheduled and has not run yet.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.timer != nil
}

func (d *Debouncer) stopLocked() bool {
	d.gen++

	if d.timer == nil {
		return false
	}

	d.timer.Stop()
	d.timer = nil

	return true
}
