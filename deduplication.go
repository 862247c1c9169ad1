package rexel

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// InFlightTracker collapses concurrent calls that share a key into one
// underlying fetch. A key is released as soon as its fetch settles,
// whatever the outcome, so a failed fetch never wedges it.
type InFlightTracker struct {
	group   singleflight.Group
	pending atomic.Int64
}

// NewInFlightTracker returns an empty tracker.
func NewInFlightTracker() *InFlightTracker {
	return &InFlightTracker{}
}

// FetchFunc performs the shared fetch for a key.
type FetchFunc func(ctx context.Context) (*Response, error)

// Do runs fetch unless a fetch for key is already running, in which case
// the caller joins it and receives the same result. joined reports whether
// the caller rode on another caller's fetch.
//
// The fetch runs detached from ctx cancellation; a caller whose ctx ends
// stops waiting but the fetch keeps going for the others.
func (t *InFlightTracker) Do(ctx context.Context, key string, fetch FetchFunc) (resp *Response, joined bool, err error) {
	owner := false
	fetchCtx := context.WithoutCancel(ctx)

	ch := t.group.DoChan(key, func() (interface{}, error) {
		owner = true
		t.pending.Add(1)
		defer t.pending.Add(-1)
		return fetch(fetchCtx)
	})

	select {
	case res := <-ch:
		resp, _ = res.Val.(*Response)
		return resp, !owner, res.Err
	case <-ctx.Done():
		return nil, false, context.Cause(ctx)
	}
}

// Len reports how many distinct keys are currently being fetched.
func (t *InFlightTracker) Len() int {
	return int(t.pending.Load())
}
