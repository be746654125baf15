// Copyright 2025 The AfyaMap Authors
// SPDX-License-Identifier: Apache-2.0

package geolocation

import (
	"context"
	"sync"
	"time"

	"github.com/jcodagnone/afyamap/spatial"
)

// Cached remembers the last successful fix of Locator and hands it back while
// it is younger than the MaximumAge of the request.
type Cached struct {
	Locator Locator
	Now     func() time.Time

	mu    sync.Mutex
	last  spatial.Point
	at    time.Time
	valid bool
}

func (c *Cached) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}

	return time.Now()
}

// CurrentPosition implements Locator.
func (c *Cached) CurrentPosition(ctx context.Context, opts Options) (spatial.Point, error) {
	if opts.MaximumAge > 0 {
		c.mu.Lock()
		if c.valid && c.now().Sub(c.at) <= opts.MaximumAge {
			p := c.last
			c.mu.Unlock()

			return p, nil
		}
		c.mu.Unlock()
	}

	p, err := c.Locator.CurrentPosition(ctx, opts)
	if err != nil {
		return p, err
	}

	c.mu.Lock()
	c.last, c.at, c.valid = p, c.now(), true
	c.mu.Unlock()

	return p, nil
}
