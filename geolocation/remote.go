// Copyright 2025 The AfyaMap Authors
// SPDX-License-Identifier: Apache-2.0

package geolocation

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/jcodagnone/afyamap/spatial"
)

// ErrClosed is wrapped by the errors of requests pending when a Remote is closed.
var ErrClosed = errors.New("geolocation client disconnected")

// Request asks a remote client for its position. Durations are in milliseconds,
// as the browser expects them.
type Request struct {
	ID                 string `json:"request_id"`
	EnableHighAccuracy bool   `json:"enableHighAccuracy"`
	Timeout            int64  `json:"timeout"`
	MaximumAge         int64  `json:"maximumAge"`
}

type result struct {
	point spatial.Point
	err   error
}

// Remote delegates position requests to a client reached through send, such as
// a browser on the other end of a websocket, and waits for Resolve or Reject.
type Remote struct {
	send func(Request) error

	mu      sync.Mutex
	pending map[string]chan result
	closed  bool
}

// NewRemote creates a Remote that delivers requests with send.
func NewRemote(send func(Request) error) *Remote {
	return &Remote{send: send, pending: make(map[string]chan result)}
}

// CurrentPosition implements Locator.
func (r *Remote) CurrentPosition(ctx context.Context, opts Options) (spatial.Point, error) {
	req := Request{
		ID:                 uuid.NewString(),
		EnableHighAccuracy: opts.EnableHighAccuracy,
		Timeout:            opts.Timeout.Milliseconds(),
		MaximumAge:         opts.MaximumAge.Milliseconds(),
	}
	ch := make(chan result, 1)

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()

		return spatial.Point{}, &Error{Code: PositionUnavailable, Err: ErrClosed}
	}

	r.pending[req.ID] = ch
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		delete(r.pending, req.ID)
		r.mu.Unlock()
	}()

	if err := r.send(req); err != nil {
		return spatial.Point{}, &Error{Code: PositionUnavailable, Message: "sending request", Err: err}
	}

	select {
	case res := <-ch:
		return res.point, res.err
	case <-ctx.Done():
		return spatial.Point{}, &Error{Code: CodeOf(ctx.Err()), Err: ctx.Err()}
	}
}

func (r *Remote) deliver(id string, res result) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch, ok := r.pending[id]
	if !ok {
		return false
	}

	delete(r.pending, id)
	ch <- res

	return true
}

// Resolve answers request id with p. It reports false for unknown or expired ids.
func (r *Remote) Resolve(id string, p spatial.Point) bool {
	return r.deliver(id, result{point: p})
}

// Reject fails request id with the given code.
func (r *Remote) Reject(id string, code ErrorCode, message string) bool {
	return r.deliver(id, result{err: &Error{Code: code, Message: message}})
}

// Close fails every pending request and refuses new ones.
func (r *Remote) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true

	for id, ch := range r.pending {
		ch <- result{err: &Error{Code: PositionUnavailable, Err: ErrClosed}}

		delete(r.pending, id)
	}
}
