// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package registry implements the process-wide feed registry of spec
// §4.4: a fid -> *store.Feed map plus a fid -> []Callback multimap,
// dispatched synchronously whenever a feed gains new data.
package registry

import (
	"sync"

	"golang.org/x/exp/maps"

	"github.com/luxfi/tinylog/ids"
	"github.com/luxfi/tinylog/internal/tlog"
	"github.com/luxfi/tinylog/store"
)

// Callback is invoked with the fid of a feed that just gained new
// data (a committed append or a completed blob chain).
type Callback func(fid ids.FID)

// Token identifies a registered callback for later removal. Go
// function values are not comparable, so Register hands back a token
// rather than asking callers to pass the closure back to Remove.
type Token uint64

type entry struct {
	tok Token
	cb  Callback
}

// Registry is the fid -> feed map and fid -> callbacks multimap of
// spec §4.4.
type Registry struct {
	mu        sync.Mutex
	feeds     map[ids.FID]*store.Feed
	callbacks map[ids.FID][]entry
	nextTok   Token
	log       tlog.Logger
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		feeds:     make(map[ids.FID]*store.Feed),
		callbacks: make(map[ids.FID][]entry),
		log:       tlog.NewNoOp(),
	}
}

// WithLogger attaches a logger, returning r for chaining.
func (r *Registry) WithLogger(l tlog.Logger) *Registry {
	r.log = l
	return r
}

// PutFeed registers (or replaces) the feed handle for fid.
func (r *Registry) PutFeed(fid ids.FID, feed *store.Feed) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.feeds[fid] = feed
}

// GetFeed returns the feed handle registered for fid, if any.
func (r *Registry) GetFeed(fid ids.FID) (*store.Feed, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.feeds[fid]
	return f, ok
}

// FIDs returns a snapshot of every fid currently known to the registry.
func (r *Registry) FIDs() []ids.FID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return maps.Keys(r.feeds)
}

// Register subscribes cb to dispatches for fid, returning a token that
// Remove can use to unsubscribe it later.
func (r *Registry) Register(fid ids.FID, cb Callback) Token {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextTok++
	tok := r.nextTok
	// Replacing the slice (rather than appending in place) means a
	// Dispatch currently iterating its own copy of the previous slice
	// never observes this registration; per §5 it takes effect on the
	// next Dispatch.
	r.callbacks[fid] = append(append([]entry(nil), r.callbacks[fid]...), entry{tok: tok, cb: cb})
	return tok
}

// Remove unsubscribes the callback identified by tok from fid. Takes
// effect on the next Dispatch, per the same re-entrancy rule as
// Register.
func (r *Registry) Remove(fid ids.FID, tok Token) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing := r.callbacks[fid]
	out := make([]entry, 0, len(existing))
	for _, e := range existing {
		if e.tok != tok {
			out = append(out, e)
		}
	}
	r.callbacks[fid] = out
}

// Dispatch invokes every callback currently registered for fid, in
// registration order, against a snapshot taken before the first call
// so re-entrant Register/Remove calls affect only the next Dispatch.
func (r *Registry) Dispatch(fid ids.FID) {
	r.mu.Lock()
	snapshot := append([]entry(nil), r.callbacks[fid]...)
	r.mu.Unlock()

	for _, e := range snapshot {
		e.cb(fid)
	}
}
