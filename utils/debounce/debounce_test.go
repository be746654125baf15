// Copyright 2025 The AfyaMap Authors
// SPDX-License-Identifier: Apache-2.0

package debounce

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const delay = 300 * time.Millisecond

func TestRapidScheduleRunsOnlyLast(t *testing.T) {
	clock := NewManualClock()
	d := NewWithClock(delay, clock)

	var runs []string

	for _, q := range []string{"h", "ho", "hos", "hosp"} {
		d.Schedule(func() { runs = append(runs, q) })
		clock.Advance(100 * time.Millisecond)
	}

	assert.Empty(t, runs)
	assert.True(t, d.Pending())

	clock.Advance(199 * time.Millisecond)
	assert.Empty(t, runs)

	clock.Advance(time.Millisecond)
	assert.Equal(t, []string{"hosp"}, runs)
	assert.False(t, d.Pending())
	assert.Zero(t, clock.Pending())

	// nothing left to fire
	clock.Advance(time.Hour)
	assert.Equal(t, []string{"hosp"}, runs)
}

func TestSpacedScheduleRunsEach(t *testing.T) {
	clock := NewManualClock()
	d := NewWithClock(delay, clock)

	count := 0

	d.Schedule(func() { count++ })
	clock.Advance(delay)
	d.Schedule(func() { count++ })
	clock.Advance(delay)

	assert.Equal(t, 2, count)
}

func TestCancel(t *testing.T) {
	clock := NewManualClock()
	d := NewWithClock(delay, clock)

	assert.False(t, d.Cancel())

	ran := false

	d.Schedule(func() { ran = true })
	assert.True(t, d.Cancel())
	assert.False(t, d.Pending())

	clock.Advance(time.Second)
	assert.False(t, ran)
}

// A timer whose callback was already dispatched when Schedule runs again must
// not execute the superseded function.
func TestStaleTimerIgnored(t *testing.T) {
	clock := &captureClock{}
	d := NewWithClock(delay, clock)

	ran := ""

	d.Schedule(func() { ran = "first" })
	d.Schedule(func() { ran = "second" })
	require.Len(t, clock.funcs, 2)

	// the runtime may still deliver a stopped timer that already fired
	clock.funcs[0]()
	assert.Empty(t, ran)

	clock.funcs[1]()
	assert.Equal(t, "second", ran)
}

type captureClock struct {
	funcs []func()
}

type nopTimer struct{}

func (nopTimer) Stop() bool { return false }

func (c *captureClock) AfterFunc(_ time.Duration, f func()) Timer {
	c.funcs = append(c.funcs, f)

	return nopTimer{}
}

func TestRealClock(t *testing.T) {
	d := New(10 * time.Millisecond)
	assert.Equal(t, 10*time.Millisecond, d.Delay())

	var (
		mu   sync.Mutex
		last string
		runs int
	)

	done := make(chan struct{})

	for _, q := range []string{"a", "ab", "abc"} {
		d.Schedule(func() {
			mu.Lock()
			defer mu.Unlock()

			last = q
			runs++

			close(done)
		})
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("debounced function never ran")
	}

	mu.Lock()
	defer mu.Unlock()

	assert.Equal(t, "abc", last)
	assert.Equal(t, 1, runs)
}
